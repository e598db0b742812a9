package object

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueEqual(t *testing.T) {
	t.Parallel()
	heap := NewHeap()
	klass := heap.NewClass(heap.NewString("A"))
	inst1 := heap.NewInstance(klass)
	inst2 := heap.NewInstance(klass)
	strA := &String{chars: "abc"}
	strB := &String{chars: "abc"}

	testcases := []struct {
		desc  string
		left  Value
		right Value
		equal bool
	}{
		{"null null", Null, Null, true},
		{"numbers", Number(1), Number(1), true},
		{"different numbers", Number(1), Number(2), false},
		{"nan", Number(math.NaN()), Number(math.NaN()), false},
		{"bools", Bool(true), Bool(true), true},
		{"different bools", Bool(true), Bool(false), false},
		{"null false", Null, Bool(false), false},
		{"zero false", Number(0), Bool(false), false},
		{"number string", Number(1), Obj(heap.NewString("1")), false},
		{"string content", Obj(strA), Obj(strB), true},
		{"interned strings", Obj(heap.NewString("x")), Obj(heap.NewString("x")), true},
		{"same instance", Obj(inst1), Obj(inst1), true},
		{"different instance", Obj(inst1), Obj(inst2), false},
		{"class and instance", Obj(klass), Obj(inst1), false},
	}
	for _, tc := range testcases {
		assert.Equal(t, tc.equal, tc.left.Equal(tc.right), tc.desc)
		assert.Equal(t, tc.equal, tc.right.Equal(tc.left), tc.desc)
	}
}

func TestValueIsFalsy(t *testing.T) {
	t.Parallel()
	heap := NewHeap()
	assert.True(t, Null.IsFalsy())
	assert.True(t, Bool(false).IsFalsy())
	assert.False(t, Bool(true).IsFalsy())
	assert.False(t, Number(0).IsFalsy())
	assert.False(t, Obj(heap.NewString("")).IsFalsy())
	assert.False(t, Obj(heap.NewClass(heap.NewString("A"))).IsFalsy())
}

func TestValueString(t *testing.T) {
	t.Parallel()
	heap := NewHeap()
	klass := heap.NewClass(heap.NewString("Point"))
	fn := heap.NewFunction(heap.NewString("add"))
	testcases := []struct {
		val      Value
		expected string
		typeName string
	}{
		{Null, "null", "null"},
		{Bool(true), "true", "boolean"},
		{Number(1), "1", "number"},
		{Number(2.5), "2.5", "number"},
		{Number(-0.125), "-0.125", "number"},
		{Obj(heap.NewString("hi")), "hi", "string"},
		{Obj(fn), "<fn add>", "function"},
		{Obj(heap.NewFunction(nil)), "<script>", "function"},
		{Obj(heap.NewClosure(fn)), "<fn add>", "function"},
		{Obj(heap.NewNative("print", nil)), "<native fn print>", "function"},
		{Obj(klass), "Point", "class"},
		{Obj(heap.NewInstance(klass)), "Point instance", "instance"},
	}
	for _, tc := range testcases {
		assert.Equal(t, tc.expected, tc.val.String())
		assert.Equal(t, tc.typeName, tc.val.TypeName())
	}
}

func TestValueAccessors(t *testing.T) {
	t.Parallel()
	heap := NewHeap()
	str := heap.NewString("s")
	val := Obj(str)
	assert.True(t, val.IsObj())
	assert.True(t, val.IsType(StringType))
	assert.False(t, val.IsType(ClassType))
	got, ok := val.AsString()
	assert.True(t, ok)
	assert.Same(t, str, got)
	_, ok = val.AsInstance()
	assert.False(t, ok)
	_, ok = Number(1).AsString()
	assert.False(t, ok)
	assert.False(t, Number(1).IsType(StringType))
	assert.InDelta(t, 3.5, Number(3.5).AsNumber(), 0)
	assert.True(t, Bool(true).AsBool())
}

func TestUpvalue(t *testing.T) {
	t.Parallel()
	heap := NewHeap()
	stack := []Value{Number(1), Number(2)}
	up := heap.NewUpvalue(stack, 1)
	assert.True(t, up.IsOpen())
	assert.Equal(t, 1, up.Slot())
	assert.Equal(t, Number(2), up.Get())

	up.Set(Number(3))
	assert.Equal(t, Number(3), stack[1])

	up.Close()
	assert.False(t, up.IsOpen())
	stack[1] = Number(99)
	assert.Equal(t, Number(3), up.Get())
	up.Set(Number(4))
	assert.Equal(t, Number(4), up.Get())
	assert.Equal(t, Number(99), stack[1])
}

func TestClassFindMethod(t *testing.T) {
	t.Parallel()
	heap := NewHeap()
	name := heap.NewString("speak")
	other := heap.NewString("walk")
	base := heap.NewClass(heap.NewString("Base"))
	child := heap.NewClass(heap.NewString("Child"))
	child.Superclass = base

	_, ok := child.FindMethod(name)
	assert.False(t, ok)

	baseMethod := Obj(heap.NewClosure(heap.NewFunction(name)))
	base.SetMethod(name, baseMethod)
	base.SetMethod(other, baseMethod)
	method, ok := child.FindMethod(name)
	assert.True(t, ok)
	assert.Equal(t, baseMethod, method)

	childMethod := Obj(heap.NewClosure(heap.NewFunction(name)))
	child.SetMethod(name, childMethod)
	method, ok = child.FindMethod(name)
	assert.True(t, ok)
	assert.Equal(t, childMethod, method)
	method, ok = child.FindMethod(other)
	assert.True(t, ok)
	assert.Equal(t, baseMethod, method)
}

func TestChunk(t *testing.T) {
	t.Parallel()
	heap := NewHeap()
	chunk := &Chunk{}
	chunk.Write(1, 10)
	chunk.Write(2, 11)
	assert.Equal(t, []byte{1, 2}, chunk.Code)
	assert.Equal(t, 11, chunk.Line(1))
	assert.Equal(t, 0, chunk.Line(5))

	assert.Equal(t, 0, chunk.AddConstant(Number(1)))
	assert.Equal(t, 1, chunk.AddConstant(Obj(heap.NewString("a"))))
	assert.Equal(t, 0, chunk.AddConstant(Number(1)))
	assert.Equal(t, 1, chunk.AddConstant(Obj(heap.NewString("a"))))
	assert.Equal(t, 2, chunk.AddConstant(Null))
	assert.Len(t, chunk.Constants, 3)
}
