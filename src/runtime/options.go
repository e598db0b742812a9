package runtime

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/tanema/loxvm/src/object"
)

type (
	// Option configures a VM.
	Option func(*VM)
	native struct {
		fn   object.NativeFn
		name string
	}
)

// WithStdout sets where print writes, os.Stdout by default.
func WithStdout(w io.Writer) Option {
	return func(vm *VM) { vm.stdout = w }
}

// WithStderr sets where the repl reports errors, os.Stderr by default.
func WithStderr(w io.Writer) Option {
	return func(vm *VM) { vm.stderr = w }
}

// WithLogger sets the logger of the vm and its heap.
func WithLogger(logger zerolog.Logger) Option {
	return func(vm *VM) { vm.logger = logger }
}

// WithTrace writes the stack and the disassembled instruction to w before every
// instruction is executed.
func WithTrace(w io.Writer) Option {
	return func(vm *VM) { vm.trace = w }
}

// WithNative defines a global native function before anything runs.
func WithNative(name string, fn object.NativeFn) Option {
	return func(vm *VM) { vm.natives = append(vm.natives, native{name: name, fn: fn}) }
}

// WithGCStress makes the heap collect before every allocation.
func WithGCStress(stress bool) Option {
	return WithHeapOptions(object.WithStress(stress))
}

// WithHeapOptions passes options through to the heap of the vm.
func WithHeapOptions(opts ...object.HeapOption) Option {
	return func(vm *VM) { vm.heapOpts = append(vm.heapOpts, opts...) }
}
