package runtime

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/tanema/loxvm/src/object"
)

// print writes its first argument and a newline and returns the argument.
func (vm *VM) print(args []object.Value) (object.Value, error) {
	if len(args) == 0 {
		return object.Null, errors.New("Not enough arguments.")
	}
	if _, err := fmt.Fprintln(vm.stdout, args[0]); err != nil {
		return object.Null, errors.Wrap(err, "print")
	}
	return args[0], nil
}
