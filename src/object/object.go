package object

import (
	"fmt"
)

type (
	// ObjType is the tag of every heap object.
	ObjType uint8
	// Object is any value that is allocated on the Heap. The set of objects is
	// closed, only this package can implement it.
	Object interface {
		Type() ObjType
		String() string
		header() *Header
		blacken(h *Heap)
	}
	// Header is embedded in every object and links it into the heap registry.
	Header struct {
		next   Object
		size   int
		marked bool
	}
	// NativeFn is the calling convention of host functions. args is the window of
	// arguments on the vm stack and must not be retained.
	NativeFn func(args []Value) (Value, error)
	// String is an immutable, interned string.
	String struct {
		Header
		chars string
	}
	// Function is a compiled function, it owns its chunk.
	Function struct {
		Header
		Name         *String
		Chunk        Chunk
		Arity        int
		UpvalueCount int
	}
	// Closure is a function paired with the upvalues it captured.
	Closure struct {
		Header
		Function *Function
		// Owner is the class the closure was bound into as a method, it is nil for
		// plain functions.
		Owner    *Class
		Upvalues []*Upvalue
	}
	// Upvalue is a reference cell to a variable of an enclosing scope. While open
	// it reads and writes a vm stack slot, once closed it owns a copy.
	Upvalue struct {
		Header
		// Next links open upvalues, deepest slot first.
		Next   *Upvalue
		stack  []Value
		closed Value
		slot   int
	}
	// Native is a go function callable from scripts.
	Native struct {
		Header
		Fn   NativeFn
		Name string
	}
	// Class is a single inheritance class with a method table that is created on
	// first method definition.
	Class struct {
		Header
		Name       *String
		Superclass *Class
		Methods    *Table
	}
	// Instance is an object of a class with its own field table.
	Instance struct {
		Header
		Class  *Class
		Fields *Table
	}
)

const (
	// StringType is a string object.
	StringType ObjType = iota
	// FunctionType is a compiled function.
	FunctionType
	// ClosureType is a function with captured upvalues.
	ClosureType
	// UpvalueType is an upvalue cell.
	UpvalueType
	// NativeType is a host function.
	NativeType
	// ClassType is a class.
	ClassType
	// InstanceType is an instance of a class.
	InstanceType
)

var objTypeNames = map[ObjType]string{
	StringType:   "string",
	FunctionType: "function",
	ClosureType:  "function",
	UpvalueType:  "upvalue",
	NativeType:   "function",
	ClassType:    "class",
	InstanceType: "instance",
}

func (t ObjType) String() string {
	if name, ok := objTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

func (hd *Header) header() *Header { return hd }

// Type implements Object.
func (str *String) Type() ObjType { return StringType }

// Chars returns the content of the string.
func (str *String) Chars() string { return str.chars }

// Len is the length of the string in bytes.
func (str *String) Len() int { return len(str.chars) }

func (str *String) String() string { return str.chars }

func (str *String) blacken(*Heap) {}

// Type implements Object.
func (fn *Function) Type() ObjType { return FunctionType }

func (fn *Function) String() string {
	if fn.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", fn.Name.chars)
}

func (fn *Function) blacken(h *Heap) {
	if fn.Name != nil {
		h.MarkObject(fn.Name)
	}
	for _, val := range fn.Chunk.Constants {
		h.MarkValue(val)
	}
}

// Type implements Object.
func (cls *Closure) Type() ObjType { return ClosureType }

func (cls *Closure) String() string { return cls.Function.String() }

func (cls *Closure) blacken(h *Heap) {
	h.MarkObject(cls.Function)
	if cls.Owner != nil {
		h.MarkObject(cls.Owner)
	}
	for _, up := range cls.Upvalues {
		if up != nil {
			h.MarkObject(up)
		}
	}
}

// Type implements Object.
func (up *Upvalue) Type() ObjType { return UpvalueType }

func (up *Upvalue) String() string {
	return fmt.Sprintf("upvalue<slot: %v open: %v>", up.slot, up.IsOpen())
}

func (up *Upvalue) blacken(h *Heap) { h.MarkValue(up.closed) }

// Slot is the stack slot the upvalue was created over.
func (up *Upvalue) Slot() int { return up.slot }

// IsOpen is true while the upvalue still refers to a live stack slot.
func (up *Upvalue) IsOpen() bool { return up.stack != nil }

// Get reads through the upvalue.
func (up *Upvalue) Get() Value {
	if up.stack != nil {
		return up.stack[up.slot]
	}
	return up.closed
}

// Set writes through the upvalue.
func (up *Upvalue) Set(val Value) {
	if up.stack != nil {
		up.stack[up.slot] = val
		return
	}
	up.closed = val
}

// Close copies the current slot value into the upvalue and redirects every
// future read and write to that copy.
func (up *Upvalue) Close() {
	if up.stack == nil {
		return
	}
	up.closed = up.stack[up.slot]
	up.stack = nil
}

// Type implements Object.
func (fn *Native) Type() ObjType { return NativeType }

func (fn *Native) String() string { return fmt.Sprintf("<native fn %s>", fn.Name) }

func (fn *Native) blacken(*Heap) {}

// Type implements Object.
func (klass *Class) Type() ObjType { return ClassType }

func (klass *Class) String() string { return klass.Name.chars }

func (klass *Class) blacken(h *Heap) {
	h.MarkObject(klass.Name)
	if klass.Superclass != nil {
		h.MarkObject(klass.Superclass)
	}
	h.MarkTable(klass.Methods)
}

// SetMethod binds a method, creating the method table if this is the first one.
func (klass *Class) SetMethod(name *String, method Value) {
	if klass.Methods == nil {
		klass.Methods = NewTable()
	}
	klass.Methods.Set(name, method)
}

// FindMethod looks up a method on the class and then up the superclass chain.
func (klass *Class) FindMethod(name *String) (Value, bool) {
	for k := klass; k != nil; k = k.Superclass {
		if k.Methods == nil {
			continue
		}
		if method, ok := k.Methods.Get(name); ok {
			return method, true
		}
	}
	return Null, false
}

// Type implements Object.
func (inst *Instance) Type() ObjType { return InstanceType }

func (inst *Instance) String() string { return fmt.Sprintf("%s instance", inst.Class.Name.chars) }

func (inst *Instance) blacken(h *Heap) {
	h.MarkObject(inst.Class)
	h.MarkTable(inst.Fields)
}
