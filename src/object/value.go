// Package object holds the runtime value model of the vm: the compact Value
// union, the heap allocated object kinds, chunks, tables and the mark and sweep
// heap that owns every object.
package object

import (
	"strconv"
)

type (
	// ValueKind is the tag of a Value.
	ValueKind uint8
	// Value is anything that can live on the vm stack. Null, booleans and numbers
	// are stored inline, everything else is a reference to a heap Object. The
	// zero Value is null.
	Value struct {
		obj  Object
		num  float64
		kind ValueKind
		b    bool
	}
)

const (
	// NullKind is the null literal, it is the absence of a value.
	NullKind ValueKind = iota
	// BoolKind is true or false.
	BoolKind
	// NumberKind is a double precision float.
	NumberKind
	// ObjKind is a reference to a heap object.
	ObjKind
)

// Null is the null value.
var Null = Value{}

// Bool wraps a go bool.
func Bool(b bool) Value { return Value{kind: BoolKind, b: b} }

// Number wraps a go float64.
func Number(n float64) Value { return Value{kind: NumberKind, num: n} }

// Obj wraps a heap object.
func Obj(o Object) Value { return Value{kind: ObjKind, obj: o} }

// Kind returns the tag of the value.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull is true only for the null value.
func (v Value) IsNull() bool { return v.kind == NullKind }

// IsBool is true for booleans.
func (v Value) IsBool() bool { return v.kind == BoolKind }

// IsNumber is true for numbers.
func (v Value) IsNumber() bool { return v.kind == NumberKind }

// IsObj is true for any heap object reference.
func (v Value) IsObj() bool { return v.kind == ObjKind }

// AsBool returns the bool payload, false for anything that is not a bool.
func (v Value) AsBool() bool { return v.b }

// AsNumber returns the number payload, 0 for anything that is not a number.
func (v Value) AsNumber() float64 { return v.num }

// AsObj returns the object payload, nil for inline values.
func (v Value) AsObj() Object { return v.obj }

// IsType is true if the value references an object of type t.
func (v Value) IsType(t ObjType) bool {
	return v.kind == ObjKind && v.obj.Type() == t
}

// AsString returns the string object if the value is one.
func (v Value) AsString() (*String, bool) {
	str, ok := v.obj.(*String)
	return str, ok
}

// AsClosure returns the closure object if the value is one.
func (v Value) AsClosure() (*Closure, bool) {
	cls, ok := v.obj.(*Closure)
	return cls, ok
}

// AsFunction returns the function object if the value is one.
func (v Value) AsFunction() (*Function, bool) {
	fn, ok := v.obj.(*Function)
	return fn, ok
}

// AsClass returns the class object if the value is one.
func (v Value) AsClass() (*Class, bool) {
	klass, ok := v.obj.(*Class)
	return klass, ok
}

// AsInstance returns the instance object if the value is one.
func (v Value) AsInstance() (*Instance, bool) {
	inst, ok := v.obj.(*Instance)
	return inst, ok
}

// AsNative returns the native function object if the value is one.
func (v Value) AsNative() (*Native, bool) {
	fn, ok := v.obj.(*Native)
	return fn, ok
}

// IsFalsy is true for null and false. Everything else, including 0 and the
// empty string, is truthy.
func (v Value) IsFalsy() bool {
	return v.kind == NullKind || (v.kind == BoolKind && !v.b)
}

// Equal compares two values. Values of different kinds are never equal, strings
// compare by content and every other object by identity.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case NullKind:
		return true
	case BoolKind:
		return v.b == other.b
	case NumberKind:
		return v.num == other.num
	default:
		lstr, lok := v.obj.(*String)
		rstr, rok := other.obj.(*String)
		if lok && rok {
			return lstr.chars == rstr.chars
		}
		return v.obj == other.obj
	}
}

// TypeName is the user facing name of the type of the value.
func (v Value) TypeName() string {
	switch v.kind {
	case NullKind:
		return "null"
	case BoolKind:
		return "boolean"
	case NumberKind:
		return "number"
	default:
		return v.obj.Type().String()
	}
}

func (v Value) String() string {
	switch v.kind {
	case NullKind:
		return "null"
	case BoolKind:
		return strconv.FormatBool(v.b)
	case NumberKind:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	default:
		return v.obj.String()
	}
}
