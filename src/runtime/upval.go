package runtime

import "github.com/tanema/loxvm/src/object"

// captureUpvalue returns the open upvalue over slot, creating it if no closure
// captured the slot yet. Open upvalues are kept sorted by slot, deepest first.
func (vm *VM) captureUpvalue(slot int) *object.Upvalue {
	var prev *object.Upvalue
	up := vm.openUpvalues
	for up != nil && up.Slot() > slot {
		prev = up
		up = up.Next
	}
	if up != nil && up.Slot() == slot {
		return up
	}
	created := vm.heap.NewUpvalue(vm.stack, slot)
	created.Next = up
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvalues closes every open upvalue at or above boundary.
func (vm *VM) closeUpvalues(boundary int) {
	for vm.openUpvalues != nil && vm.openUpvalues.Slot() >= boundary {
		up := vm.openUpvalues
		up.Close()
		vm.openUpvalues = up.Next
		up.Next = nil
	}
}
