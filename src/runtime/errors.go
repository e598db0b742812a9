package runtime

import (
	"fmt"

	"github.com/tanema/loxvm/src/lerrors"
)

// runtimeErr wraps err with the location of the failing instruction and a
// traceback of every active frame, innermost first.
func (vm *VM) runtimeErr(err error) error {
	lerr := &lerrors.Error{
		Kind:      lerrors.RuntimeErr,
		Filename:  vm.filename,
		Err:       err,
		Traceback: vm.formatCallstack(),
	}
	if vm.frameCount > 0 {
		lerr.Line = int64(vm.frames[vm.frameCount-1].line())
	}
	return lerr
}

func (vm *VM) formatCallstack() []string {
	parts := make([]string, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		if name := f.closure.Function.Name; name != nil {
			parts = append(parts, fmt.Sprintf("[line %v] in %v()", f.line(), name.Chars()))
		} else {
			parts = append(parts, fmt.Sprintf("[line %v] in script", f.line()))
		}
	}
	return parts
}

// line is the source line of the last instruction the frame started.
func (f *frame) line() int {
	return f.closure.Function.Chunk.Line(max(f.ip-1, 0))
}
