package object

import (
	"os"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/tanema/loxvm/src/conf"
)

type (
	// RootSource is anything that holds references the collector cannot see by
	// tracing, like the vm stack or the functions of an in flight compile.
	RootSource interface {
		MarkRoots(h *Heap)
	}
	// HeapOption configures a Heap.
	HeapOption func(*Heap)
	// Stats is a snapshot of the heap accounting.
	Stats struct {
		Objects     int
		Bytes       int
		NextGC      int
		Collections int
		Freed       int
	}
	// Heap owns every object, tracks allocation size and reclaims unreachable
	// objects with a mark and sweep collector. Objects are kept in an intrusive
	// list through their header.
	Heap struct {
		logger     zerolog.Logger
		objects    Object
		strings    map[string]*String
		oom        func(error)
		gray       []Object
		roots      []RootSource
		stats      Stats
		minNextGC  int
		growFactor int
		limit      int
		stress     bool
	}
)

// ErrOutOfMemory is reported to the oom handler when an allocation would grow
// the heap past its limit even after a full collection.
var ErrOutOfMemory = errors.New("out of memory")

// WithGrowFactor sets the multiplier applied to the live size after a collection
// to find the next threshold.
func WithGrowFactor(factor int) HeapOption {
	return func(h *Heap) {
		if factor > 1 {
			h.growFactor = factor
		}
	}
}

// WithInitialThreshold sets the allocation size that triggers the first
// collection. It is also the lowest the threshold will ever go.
func WithInitialThreshold(bytes int) HeapOption {
	return func(h *Heap) {
		if bytes > 0 {
			h.minNextGC = bytes
			h.stats.NextGC = bytes
		}
	}
}

// WithStress collects before every single allocation.
func WithStress(stress bool) HeapOption {
	return func(h *Heap) { h.stress = stress }
}

// WithLimit caps the accounted heap size. 0 means no limit.
func WithLimit(bytes int) HeapOption {
	return func(h *Heap) { h.limit = bytes }
}

// WithLogger sets the logger that receives collection events.
func WithLogger(logger zerolog.Logger) HeapOption {
	return func(h *Heap) { h.logger = logger }
}

// WithOOMHandler replaces the handler called when the heap limit is exceeded.
// The handler should not return, if it does the heap panics with the error.
func WithOOMHandler(fn func(error)) HeapOption {
	return func(h *Heap) { h.oom = fn }
}

// NewHeap creates an empty heap.
func NewHeap(opts ...HeapOption) *Heap {
	h := &Heap{
		logger:     zerolog.Nop(),
		strings:    map[string]*String{},
		growFactor: conf.GCGROWFACTOR,
		minNextGC:  conf.GCINITIALTHRESHOLD,
		stats:      Stats{NextGC: conf.GCINITIALTHRESHOLD},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.oom == nil {
		h.oom = h.fatalOOM
	}
	return h
}

func (h *Heap) fatalOOM(err error) {
	h.logger.Fatal().Err(err).Int("bytes", h.stats.Bytes).Int("limit", h.limit).Msg("heap exhausted")
	os.Exit(1)
}

// Stats returns the current accounting of the heap.
func (h *Heap) Stats() Stats { return h.stats }

// AddRoots registers a root source that is marked on every collection.
func (h *Heap) AddRoots(src RootSource) {
	h.roots = append(h.roots, src)
}

// RemoveRoots unregisters a root source.
func (h *Heap) RemoveRoots(src RootSource) {
	for i, root := range h.roots {
		if root == src {
			h.roots = append(h.roots[:i], h.roots[i+1:]...)
			return
		}
	}
}

// NewString returns the interned string for chars, allocating it only if it does
// not exist yet.
func (h *Heap) NewString(chars string) *String {
	if str, ok := h.strings[chars]; ok {
		return str
	}
	str := &String{chars: chars}
	h.allocate(str, int(unsafe.Sizeof(String{}))+len(chars))
	h.strings[chars] = str
	return str
}

// NewFunction allocates an empty function ready to be filled by the compiler.
func (h *Heap) NewFunction(name *String) *Function {
	fn := &Function{Name: name}
	h.allocate(fn, int(unsafe.Sizeof(Function{})))
	return fn
}

// NewClosure allocates a closure over fn with room for all of its upvalues.
func (h *Heap) NewClosure(fn *Function) *Closure {
	cls := &Closure{Function: fn, Upvalues: make([]*Upvalue, fn.UpvalueCount)}
	h.allocate(cls, int(unsafe.Sizeof(Closure{}))+fn.UpvalueCount*int(unsafe.Sizeof(&Upvalue{})))
	return cls
}

// NewUpvalue allocates an open upvalue over slot of stack.
func (h *Heap) NewUpvalue(stack []Value, slot int) *Upvalue {
	up := &Upvalue{stack: stack, slot: slot}
	h.allocate(up, int(unsafe.Sizeof(Upvalue{})))
	return up
}

// NewNative allocates a host function.
func (h *Heap) NewNative(name string, fn NativeFn) *Native {
	native := &Native{Name: name, Fn: fn}
	h.allocate(native, int(unsafe.Sizeof(Native{})))
	return native
}

// NewClass allocates a class without methods.
func (h *Heap) NewClass(name *String) *Class {
	klass := &Class{Name: name}
	h.allocate(klass, int(unsafe.Sizeof(Class{})))
	return klass
}

// NewInstance allocates an instance of klass with an empty field table.
func (h *Heap) NewInstance(klass *Class) *Instance {
	inst := &Instance{Class: klass, Fields: NewTable()}
	h.allocate(inst, int(unsafe.Sizeof(Instance{})))
	return inst
}

// allocate collects if needed and then links obj into the heap. Callers must
// keep every object they still need reachable from a root before calling.
func (h *Heap) allocate(obj Object, size int) {
	collected := h.stress || h.stats.Bytes+size > h.stats.NextGC
	if collected {
		h.Collect()
	}
	if h.limit > 0 && h.stats.Bytes+size > h.limit && !collected {
		h.Collect()
	}
	if h.limit > 0 && h.stats.Bytes+size > h.limit {
		err := errors.Wrapf(ErrOutOfMemory, "allocating %d bytes with %d live", size, h.stats.Bytes)
		h.oom(err)
		panic(err)
	}
	hdr := obj.header()
	hdr.size = size
	hdr.next = h.objects
	h.objects = obj
	h.stats.Bytes += size
	h.stats.Objects++
	h.logger.Trace().Str("type", obj.Type().String()).Int("size", size).Msg("alloc")
}

// MarkValue marks the object referenced by val, if any.
func (h *Heap) MarkValue(val Value) {
	if val.kind == ObjKind {
		h.MarkObject(val.obj)
	}
}

// MarkObject greys obj so that its references are traced.
func (h *Heap) MarkObject(obj Object) {
	if obj == nil {
		return
	}
	hdr := obj.header()
	if hdr.marked {
		return
	}
	hdr.marked = true
	h.gray = append(h.gray, obj)
}

// MarkTable marks every key and value of a table. A nil table is ignored.
func (h *Heap) MarkTable(t *Table) {
	if t == nil {
		return
	}
	for key, val := range t.entries {
		h.MarkObject(key)
		h.MarkValue(val)
	}
}

// Collect runs a full mark and sweep cycle.
func (h *Heap) Collect() {
	before := h.stats.Bytes
	h.logger.Debug().Int("bytes", before).Int("objects", h.stats.Objects).Msg("gc begin")

	for _, root := range h.roots {
		root.MarkRoots(h)
	}
	h.traceReferences()
	h.removeWhiteStrings()
	freed := h.sweep()

	h.stats.NextGC = max(h.stats.Bytes*h.growFactor, h.minNextGC)
	h.stats.Collections++
	h.stats.Freed += freed
	h.logger.Debug().
		Int("before", before).
		Int("after", h.stats.Bytes).
		Int("freed", freed).
		Int("next", h.stats.NextGC).
		Msg("gc end")
}

func (h *Heap) traceReferences() {
	for len(h.gray) > 0 {
		obj := h.gray[len(h.gray)-1]
		h.gray = h.gray[:len(h.gray)-1]
		obj.blacken(h)
	}
}

func (h *Heap) removeWhiteStrings() {
	for chars, str := range h.strings {
		if !str.marked {
			delete(h.strings, chars)
		}
	}
}

func (h *Heap) sweep() int {
	freed := 0
	var prev Object
	obj := h.objects
	for obj != nil {
		hdr := obj.header()
		if hdr.marked {
			hdr.marked = false
			prev = obj
			obj = hdr.next
			continue
		}
		unreached := obj
		obj = hdr.next
		if prev == nil {
			h.objects = obj
		} else {
			prev.header().next = obj
		}
		h.stats.Bytes -= hdr.size
		h.stats.Objects--
		freed++
		h.release(unreached)
	}
	return freed
}

// release breaks the links of a dead object so nothing it referenced is kept
// alive through it.
func (h *Heap) release(obj Object) {
	hdr := obj.header()
	hdr.next = nil
	h.logger.Trace().Str("type", obj.Type().String()).Int("size", hdr.size).Msg("free")
}

// Release drops every object of the heap, after this the heap is empty but can
// still be used.
func (h *Heap) Release() {
	for obj := h.objects; obj != nil; {
		next := obj.header().next
		h.release(obj)
		obj = next
	}
	h.objects = nil
	h.strings = map[string]*String{}
	h.gray = nil
	h.stats.Bytes = 0
	h.stats.Objects = 0
	h.stats.NextGC = h.minNextGC
}
