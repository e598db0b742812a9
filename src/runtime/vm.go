package runtime

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/tanema/loxvm/src/bytecode"
	"github.com/tanema/loxvm/src/conf"
	"github.com/tanema/loxvm/src/dis"
	"github.com/tanema/loxvm/src/object"
	"github.com/tanema/loxvm/src/parse"
)

type (
	// frame is a single activation of a closure. slots is the stack index of
	// local slot 0 and ret is where the result is written when the frame
	// returns.
	frame struct {
		closure *object.Closure
		ip      int
		slots   int
		ret     int
	}
	// InterpretResult reports how far a source got through Interpret.
	InterpretResult int
	// VM is a stack based bytecode interpreter. It owns its heap, value stack
	// and call frames. A VM is not safe for concurrent use.
	VM struct {
		heap         *object.Heap
		logger       zerolog.Logger
		stdout       io.Writer
		stderr       io.Writer
		trace        io.Writer
		globals      *object.Table
		openUpvalues *object.Upvalue
		natives      []native
		heapOpts     []object.HeapOption
		filename     string
		stack        []object.Value
		frames       [conf.FRAMESMAX]frame
		frameCount   int
		top          int
	}
)

const (
	// InterpretOK means the source compiled and ran without error.
	InterpretOK InterpretResult = iota
	// InterpretCompileError means the source did not compile, nothing was run.
	InterpretCompileError
	// InterpretRuntimeError means the source compiled but failed while running.
	InterpretRuntimeError
)

var errStackOverflow = errors.New("Stack overflow.")

func (res InterpretResult) String() string {
	switch res {
	case InterpretOK:
		return "ok"
	case InterpretCompileError:
		return "compile error"
	case InterpretRuntimeError:
		return "runtime error"
	default:
		return "unknown"
	}
}

// New creates a vm with an empty heap and the print native defined.
func New(opts ...Option) *VM {
	vm := &VM{
		logger:  zerolog.Nop(),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		globals: object.NewTable(),
		stack:   make([]object.Value, conf.STACKMAX),
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.heap = object.NewHeap(append([]object.HeapOption{object.WithLogger(vm.logger)}, vm.heapOpts...)...)
	vm.heap.AddRoots(vm)
	// the stack is still empty so defining cannot overflow.
	_ = vm.DefineNative("print", vm.print)
	for _, fn := range vm.natives {
		_ = vm.DefineNative(fn.name, fn.fn)
	}
	return vm
}

// Heap is the heap that every object of this vm is allocated on.
func (vm *VM) Heap() *object.Heap { return vm.heap }

// DefineNative binds a go function to a global name. It can be called between
// runs, it fails if the stack has no room for the name and the function.
func (vm *VM) DefineNative(name string, fn object.NativeFn) error {
	// both are kept on the stack so that they survive a collection triggered by
	// the other allocation.
	if err := vm.push(object.Obj(vm.heap.NewString(name))); err != nil {
		return err
	}
	native := vm.heap.NewNative(name, fn)
	if err := vm.push(object.Obj(native)); err != nil {
		vm.pop()
		return err
	}
	nameStr, _ := vm.peek(1).AsString()
	vm.globals.Set(nameStr, vm.peek(0))
	vm.top -= 2
	return nil
}

// Global returns the value of a global variable.
func (vm *VM) Global(name string) (object.Value, bool) {
	return vm.globals.Get(vm.heap.NewString(name))
}

// Close releases every object on the heap. The vm cannot be used afterwards.
func (vm *VM) Close() error {
	vm.reset()
	vm.heap.RemoveRoots(vm)
	vm.heap.Release()
	return nil
}

// Interpret compiles src and runs it.
func (vm *VM) Interpret(filename string, src io.Reader) (InterpretResult, error) {
	fn, err := vm.Compile(filename, src)
	if err != nil {
		return InterpretCompileError, err
	}
	if err := vm.Run(fn); err != nil {
		return InterpretRuntimeError, err
	}
	return InterpretOK, nil
}

// Compile compiles src onto the heap of the vm without running it.
func (vm *VM) Compile(filename string, src io.Reader) (*object.Function, error) {
	vm.filename = filename
	return parse.Compile(vm.heap, filename, src)
}

// Run executes a compiled script. On a runtime error the stack, frames and
// open upvalues are reset so that the vm can run again, globals are kept.
func (vm *VM) Run(fn *object.Function) error {
	logger := vm.logger.With().Str("run", uuid.NewString()).Str("file", vm.filename).Logger()
	logger.Debug().Msg("run begin")
	start := time.Now()

	// the function is pushed before the closure allocation so that it stays
	// reachable if that allocation collects.
	if err := vm.push(object.Obj(fn)); err != nil {
		return vm.fail(logger, vm.runtimeErr(err))
	}
	cls := vm.heap.NewClosure(fn)
	vm.stack[vm.top-1] = object.Obj(cls)
	if err := vm.call(cls, 0, vm.top); err != nil {
		return vm.fail(logger, vm.runtimeErr(err))
	}
	if err := vm.run(); err != nil {
		return vm.fail(logger, err)
	}

	stats := vm.heap.Stats()
	logger.Debug().
		Dur("elapsed", time.Since(start)).
		Int("objects", stats.Objects).
		Int("bytes", stats.Bytes).
		Int("collections", stats.Collections).
		Msg("run end")
	return nil
}

func (vm *VM) fail(logger zerolog.Logger, err error) error {
	logger.Debug().Err(err).Msg("runtime error")
	vm.reset()
	return err
}

func (vm *VM) reset() {
	vm.closeUpvalues(0)
	for i := range vm.stack[:vm.top] {
		vm.stack[i] = object.Null
	}
	vm.top = 0
	vm.frameCount = 0
}

// MarkRoots marks everything the running program can still reach directly.
func (vm *VM) MarkRoots(h *object.Heap) {
	for _, val := range vm.stack[:vm.top] {
		h.MarkValue(val)
	}
	for i := range vm.frameCount {
		h.MarkObject(vm.frames[i].closure)
	}
	for up := vm.openUpvalues; up != nil; up = up.Next {
		h.MarkObject(up)
	}
	h.MarkTable(vm.globals)
}

func (vm *VM) run() error {
	f := &vm.frames[vm.frameCount-1]
	for {
		if f.ip >= len(f.closure.Function.Chunk.Code) {
			return vm.runtimeErr(errors.New("instruction pointer out of range"))
		}
		if vm.trace != nil {
			vm.traceInstruction(f)
		}

		var err error
		op := bytecode.Op(f.readByte())
		switch op {
		case bytecode.CONSTANT:
			err = vm.push(f.readConstant())
		case bytecode.NIL:
			err = vm.push(object.Null)
		case bytecode.TRUE:
			err = vm.push(object.Bool(true))
		case bytecode.FALSE:
			err = vm.push(object.Bool(false))
		case bytecode.POP:
			vm.pop()
		case bytecode.GETLOCAL:
			err = vm.push(vm.stack[f.slots+int(f.readByte())])
		case bytecode.SETLOCAL:
			vm.stack[f.slots+int(f.readByte())] = vm.peek(0)
		case bytecode.GETGLOBAL:
			name := f.readString()
			val, ok := vm.globals.Get(name)
			if !ok {
				err = errors.Errorf("Undefined variable '%s'.", name.Chars())
				break
			}
			err = vm.push(val)
		case bytecode.DEFGLOBAL:
			vm.globals.Set(f.readString(), vm.peek(0))
			vm.pop()
		case bytecode.SETGLOBAL:
			name := f.readString()
			if !vm.globals.Has(name) {
				err = errors.Errorf("Undefined variable '%s'.", name.Chars())
				break
			}
			vm.globals.Set(name, vm.peek(0))
		case bytecode.GETUPVAL:
			err = vm.push(f.closure.Upvalues[f.readByte()].Get())
		case bytecode.SETUPVAL:
			f.closure.Upvalues[f.readByte()].Set(vm.peek(0))
		case bytecode.GETFIELD:
			err = vm.getField(f.readString())
		case bytecode.SETFIELD:
			err = vm.setField(f.readString())
		case bytecode.EQUAL:
			b := vm.pop()
			a := vm.pop()
			err = vm.push(object.Bool(a.Equal(b)))
		case bytecode.GREATER, bytecode.LESS, bytecode.SUBTRACT, bytecode.MULTIPLY, bytecode.DIVIDE:
			err = vm.arith(op)
		case bytecode.ADD:
			err = vm.add()
		case bytecode.NOT:
			if !vm.peek(0).IsBool() {
				err = errors.New("Operand must be a boolean.")
				break
			}
			vm.stack[vm.top-1] = object.Bool(!vm.peek(0).AsBool())
		case bytecode.NEGATE:
			if !vm.peek(0).IsNumber() {
				err = errors.New("Operand must be a number.")
				break
			}
			vm.stack[vm.top-1] = object.Number(-vm.peek(0).AsNumber())
		case bytecode.JMP:
			offset := f.readShort()
			f.ip += offset
		case bytecode.JMPFALSE:
			offset := f.readShort()
			if vm.peek(0).IsFalsy() {
				f.ip += offset
			}
		case bytecode.LOOP:
			offset := f.readShort()
			f.ip -= offset
		case bytecode.CALL0, bytecode.CALL1, bytecode.CALL2, bytecode.CALL3, bytecode.CALL4,
			bytecode.CALL5, bytecode.CALL6, bytecode.CALL7, bytecode.CALL8:
			argc := int(op - bytecode.CALL0)
			err = vm.callValue(vm.peek(argc), argc)
			f = &vm.frames[vm.frameCount-1]
		case bytecode.INVOKE0, bytecode.INVOKE1, bytecode.INVOKE2, bytecode.INVOKE3, bytecode.INVOKE4,
			bytecode.INVOKE5, bytecode.INVOKE6, bytecode.INVOKE7, bytecode.INVOKE8:
			err = vm.invoke(f.readString(), int(op-bytecode.INVOKE0))
			f = &vm.frames[vm.frameCount-1]
		case bytecode.SUPER0, bytecode.SUPER1, bytecode.SUPER2, bytecode.SUPER3, bytecode.SUPER4,
			bytecode.SUPER5, bytecode.SUPER6, bytecode.SUPER7, bytecode.SUPER8:
			err = vm.superInvoke(f.closure.Owner, f.readString(), int(op-bytecode.SUPER0))
			f = &vm.frames[vm.frameCount-1]
		case bytecode.CLOSURE:
			err = vm.closure(f)
		case bytecode.CLOSEUPVAL:
			vm.closeUpvalues(vm.top - 1)
			vm.pop()
		case bytecode.RETURN:
			result := vm.pop()
			vm.closeUpvalues(f.slots)
			vm.frameCount--
			vm.top = f.ret
			if vm.frameCount == 0 {
				return nil
			}
			err = vm.push(result)
			f = &vm.frames[vm.frameCount-1]
		case bytecode.CLASS:
			err = vm.push(object.Obj(vm.heap.NewClass(f.readString())))
		case bytecode.SUBCLASS:
			err = vm.subclass(f.readString())
		case bytecode.METHOD:
			name := f.readString()
			method, _ := vm.peek(0).AsClosure()
			klass, _ := vm.peek(1).AsClass()
			method.Owner = klass
			klass.SetMethod(name, vm.peek(0))
			vm.pop()
		default:
			err = errors.Errorf("unknown opcode %v", op)
		}
		if err != nil {
			return vm.runtimeErr(err)
		}
	}
}

func (vm *VM) push(val object.Value) error {
	if vm.top >= len(vm.stack) {
		return errStackOverflow
	}
	vm.stack[vm.top] = val
	vm.top++
	return nil
}

func (vm *VM) pop() object.Value {
	vm.top--
	return vm.stack[vm.top]
}

func (vm *VM) peek(distance int) object.Value {
	return vm.stack[vm.top-1-distance]
}

func (vm *VM) arith(op bytecode.Op) error {
	if !vm.peek(0).IsNumber() {
		return errors.New("Right operand must be a number.")
	} else if !vm.peek(1).IsNumber() {
		return errors.New("Left operand must be a number.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	switch op {
	case bytecode.GREATER:
		return vm.push(object.Bool(a > b))
	case bytecode.LESS:
		return vm.push(object.Bool(a < b))
	case bytecode.SUBTRACT:
		return vm.push(object.Number(a - b))
	case bytecode.MULTIPLY:
		return vm.push(object.Number(a * b))
	default:
		return vm.push(object.Number(a / b))
	}
}

func (vm *VM) add() error {
	right, rok := vm.peek(0).AsString()
	left, lok := vm.peek(1).AsString()
	switch {
	case rok && lok:
		// operands stay on the stack until the result is allocated.
		str := vm.heap.NewString(left.Chars() + right.Chars())
		vm.top -= 2
		return vm.push(object.Obj(str))
	case vm.peek(0).IsNumber() && vm.peek(1).IsNumber():
		b := vm.pop().AsNumber()
		a := vm.pop().AsNumber()
		return vm.push(object.Number(a + b))
	default:
		return errors.New("Can only add two strings or two numbers.")
	}
}

func (vm *VM) getField(name *object.String) error {
	inst, ok := vm.peek(0).AsInstance()
	if !ok {
		return errors.New("Primitive values cannot have fields.")
	}
	val, ok := inst.Fields.Get(name)
	if !ok {
		return errors.Errorf("Undefined field '%s'.", name.Chars())
	}
	vm.stack[vm.top-1] = val
	return nil
}

func (vm *VM) setField(name *object.String) error {
	inst, ok := vm.peek(1).AsInstance()
	if !ok {
		return errors.New("Primitive values cannot have fields.")
	}
	inst.Fields.Set(name, vm.peek(0))
	val := vm.pop()
	vm.stack[vm.top-1] = val
	return nil
}

func (vm *VM) closure(f *frame) error {
	fn, _ := f.readConstant().AsFunction()
	cls := vm.heap.NewClosure(fn)
	cls.Owner = f.closure.Owner
	// pushed before capturing so the upvalue allocations cannot collect it.
	if err := vm.push(object.Obj(cls)); err != nil {
		return err
	}
	for i := range cls.Upvalues {
		isLocal := f.readByte()
		index := int(f.readByte())
		if isLocal == 1 {
			cls.Upvalues[i] = vm.captureUpvalue(f.slots + index)
		} else {
			cls.Upvalues[i] = f.closure.Upvalues[index]
		}
	}
	return nil
}

func (vm *VM) subclass(name *object.String) error {
	super, ok := vm.peek(0).AsClass()
	if !ok {
		return errors.New("Superclass must be a class.")
	}
	klass := vm.heap.NewClass(name)
	klass.Superclass = super
	vm.stack[vm.top-1] = object.Obj(klass)
	return nil
}

func (vm *VM) traceInstruction(f *frame) {
	fmt.Fprint(vm.trace, "          ")
	for _, val := range vm.stack[:vm.top] {
		fmt.Fprintf(vm.trace, "[ %v ]", val)
	}
	fmt.Fprintln(vm.trace)
	dis.Instruction(vm.trace, &f.closure.Function.Chunk, f.ip)
}

func (f *frame) readByte() byte {
	b := f.closure.Function.Chunk.Code[f.ip]
	f.ip++
	return b
}

func (f *frame) readShort() int {
	val := bytecode.ReadShort(f.closure.Function.Chunk.Code, f.ip)
	f.ip += 2
	return int(val)
}

func (f *frame) readConstant() object.Value {
	return f.closure.Function.Chunk.Constants[f.readByte()]
}

func (f *frame) readString() *object.String {
	str, _ := f.readConstant().AsString()
	return str
}
