package object

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rootSet struct {
	values []Value
}

func (r *rootSet) MarkRoots(h *Heap) {
	for _, val := range r.values {
		h.MarkValue(val)
	}
}

func TestHeapInterning(t *testing.T) {
	t.Parallel()
	heap := NewHeap()
	a := heap.NewString("hello")
	b := heap.NewString("hello")
	assert.Same(t, a, b)
	assert.Equal(t, 1, heap.Stats().Objects)
	assert.Equal(t, 5, a.Len())
}

func TestHeapCollectUnreachable(t *testing.T) {
	t.Parallel()
	heap := NewHeap()
	roots := &rootSet{}
	heap.AddRoots(roots)

	kept := heap.NewString("kept")
	roots.values = append(roots.values, Obj(kept))
	for range 10 {
		heap.NewInstance(heap.NewClass(heap.NewString("garbage")))
	}
	before := heap.Stats()
	assert.Equal(t, 22, before.Objects)

	heap.Collect()
	after := heap.Stats()
	assert.Equal(t, 1, after.Objects)
	assert.Equal(t, 21, after.Freed)
	assert.Equal(t, 1, after.Collections)
	assert.Less(t, after.Bytes, before.Bytes)
	assert.Same(t, kept, heap.NewString("kept"))
	assert.Equal(t, 1, heap.Stats().Objects)

	heap.RemoveRoots(roots)
	heap.Collect()
	assert.Equal(t, 0, heap.Stats().Objects)
	assert.Equal(t, 0, heap.Stats().Bytes)
}

func TestHeapTracesReferences(t *testing.T) {
	t.Parallel()
	heap := NewHeap()
	roots := &rootSet{}
	heap.AddRoots(roots)

	fnName := heap.NewString("method")
	fn := heap.NewFunction(fnName)
	fn.Chunk.AddConstant(Obj(heap.NewString("constant")))
	fn.UpvalueCount = 1
	closure := heap.NewClosure(fn)
	closure.Upvalues[0] = heap.NewUpvalue([]Value{Null}, 0)
	closure.Upvalues[0].Set(Obj(heap.NewString("captured")))
	closure.Upvalues[0].Close()

	base := heap.NewClass(heap.NewString("Base"))
	klass := heap.NewClass(heap.NewString("Child"))
	klass.Superclass = base
	klass.SetMethod(fnName, Obj(closure))
	closure.Owner = klass
	inst := heap.NewInstance(klass)
	inst.Fields.Set(heap.NewString("field"), Obj(heap.NewString("value")))

	heap.NewString("garbage")
	total := heap.Stats().Objects

	roots.values = append(roots.values, Obj(inst))
	heap.Collect()
	assert.Equal(t, total-1, heap.Stats().Objects)

	val, ok := inst.Fields.Get(heap.NewString("field"))
	require.True(t, ok)
	assert.Equal(t, "value", val.String())
	method, ok := inst.Class.FindMethod(fnName)
	require.True(t, ok)
	cls, ok := method.AsClosure()
	require.True(t, ok)
	assert.Equal(t, "captured", cls.Upvalues[0].Get().String())
	assert.Equal(t, "constant", cls.Function.Chunk.Constants[0].String())
	assert.Equal(t, total-1, heap.Stats().Objects)
}

func TestHeapThreshold(t *testing.T) {
	t.Parallel()
	heap := NewHeap(WithInitialThreshold(256), WithGrowFactor(2))
	assert.Equal(t, 256, heap.Stats().NextGC)
	for range 20 {
		heap.NewString("padding padding padding padding padding")
		heap.NewClass(heap.NewString("c"))
	}
	assert.Positive(t, heap.Stats().Collections)
	assert.GreaterOrEqual(t, heap.Stats().NextGC, 256)
}

func TestHeapStress(t *testing.T) {
	t.Parallel()
	heap := NewHeap(WithStress(true))
	roots := &rootSet{}
	heap.AddRoots(roots)
	for i := range 5 {
		str := heap.NewString(string(rune('a' + i)))
		roots.values = append(roots.values, Obj(str))
	}
	assert.Equal(t, 5, heap.Stats().Collections)
	assert.Equal(t, 5, heap.Stats().Objects)
}

func TestHeapOutOfMemory(t *testing.T) {
	t.Parallel()
	var got error
	heap := NewHeap(WithLimit(8), WithOOMHandler(func(err error) { got = err }))
	assert.Panics(t, func() { heap.NewString("this will never fit") })
	require.Error(t, got)
	assert.True(t, errors.Is(got, ErrOutOfMemory))
	assert.Equal(t, 0, heap.Stats().Objects)
}

func TestHeapLimitCollectsBeforeOutOfMemory(t *testing.T) {
	t.Parallel()
	var got error
	heap := NewHeap(WithLimit(4096), WithOOMHandler(func(err error) { got = err }))
	assert.NotPanics(t, func() {
		for i := range 1000 {
			heap.NewString(fmt.Sprintf("garbage-%d", i))
		}
	})
	assert.NoError(t, got)
	assert.Positive(t, heap.Stats().Collections)
	assert.LessOrEqual(t, heap.Stats().Bytes, 4096)
}

func TestHeapRelease(t *testing.T) {
	t.Parallel()
	heap := NewHeap()
	heap.NewString("a")
	heap.NewClass(heap.NewString("b"))
	heap.Release()
	assert.Equal(t, 0, heap.Stats().Objects)
	assert.Equal(t, 0, heap.Stats().Bytes)
	heap.NewString("a")
	assert.Equal(t, 1, heap.Stats().Objects)
}
