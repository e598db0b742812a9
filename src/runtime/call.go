package runtime

import (
	"github.com/pkg/errors"

	"github.com/tanema/loxvm/src/conf"
	"github.com/tanema/loxvm/src/object"
)

// callValue calls the callee that sits below its argc arguments on the stack.
func (vm *VM) callValue(callee object.Value, argc int) error {
	if callee.IsObj() {
		switch fn := callee.AsObj().(type) {
		case *object.Class:
			// constructors are not run, the arguments are dropped.
			vm.stack[vm.top-argc-1] = object.Obj(vm.heap.NewInstance(fn))
			vm.top -= argc
			return nil
		case *object.Closure:
			return vm.call(fn, argc, vm.top-argc)
		case *object.Native:
			return vm.callNative(fn, argc)
		}
	}
	return errors.New("Can only call functions and classes.")
}

// call pushes a frame for cls with local slot 0 at slots. Methods have the
// receiver in slot 0, functions have their first argument there. Either way the
// result replaces the callee. Arguments past the arity are dropped.
func (vm *VM) call(cls *object.Closure, argc, slots int) error {
	arity := cls.Function.Arity
	if argc < arity {
		return errors.New("Not enough arguments.")
	} else if vm.frameCount == conf.FRAMESMAX {
		return errStackOverflow
	}
	f := &vm.frames[vm.frameCount]
	vm.frameCount++
	f.closure = cls
	f.ip = 0
	f.slots = slots
	f.ret = vm.top - argc - 1
	vm.top -= argc - arity
	return nil
}

func (vm *VM) callNative(fn *object.Native, argc int) error {
	result, err := fn.Fn(vm.stack[vm.top-argc : vm.top])
	if err != nil {
		return err
	}
	vm.top -= argc
	vm.stack[vm.top-1] = result
	return nil
}

// invoke calls the method name on the receiver below the arguments. A field
// holding a callable shadows a method of the same name.
func (vm *VM) invoke(name *object.String, argc int) error {
	inst, ok := vm.peek(argc).AsInstance()
	if !ok {
		return errors.New("Primitive values cannot have methods.")
	}
	if field, ok := inst.Fields.Get(name); ok {
		vm.stack[vm.top-argc-1] = field
		return vm.callValue(field, argc)
	}
	return vm.invokeFromClass(inst.Class, name, argc)
}

// superInvoke calls name as found from the superclass of owner, the class the
// running method was defined in.
func (vm *VM) superInvoke(owner *object.Class, name *object.String, argc int) error {
	if owner == nil || owner.Superclass == nil {
		return errors.Errorf("Undefined property '%s'.", name.Chars())
	}
	return vm.invokeFromClass(owner.Superclass, name, argc)
}

func (vm *VM) invokeFromClass(klass *object.Class, name *object.String, argc int) error {
	method, ok := klass.FindMethod(name)
	if !ok {
		return errors.Errorf("Undefined property '%s'.", name.Chars())
	}
	cls, ok := method.AsClosure()
	if !ok {
		return errors.New("Can only call functions and classes.")
	}
	return vm.call(cls, argc, vm.top-argc-1)
}
