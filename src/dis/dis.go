// Package dis renders chunks as human readable listings. It is used by the
// listing mode of the cli and by the vm execution trace.
package dis

import (
	"fmt"
	"io"

	"github.com/tanema/loxvm/src/bytecode"
	"github.com/tanema/loxvm/src/object"
)

// Function writes the listing of fn and then of every function nested in its
// constants.
func Function(w io.Writer, fn *object.Function) {
	fmt.Fprintf(w, "%v params, %v upvalues, %v constants\n", fn.Arity, fn.UpvalueCount, len(fn.Chunk.Constants))
	Chunk(w, &fn.Chunk, fn.String())
	for _, val := range fn.Chunk.Constants {
		if nested, ok := val.AsFunction(); ok {
			fmt.Fprintln(w)
			Function(w, nested)
		}
	}
}

// Chunk writes a header with name and then every instruction of the chunk.
func Chunk(w io.Writer, chunk *object.Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(chunk.Code); {
		offset = Instruction(w, chunk, offset)
	}
}

// Instruction writes the instruction at offset as a single line, followed by one
// line per captured upvalue for closures. It returns the offset of the next
// instruction.
func Instruction(w io.Writer, chunk *object.Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && chunk.Line(offset) == chunk.Line(offset-1) {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", chunk.Line(offset))
	}

	op := bytecode.Op(chunk.Code[offset])
	if op.String() == "UNDEFINED" {
		fmt.Fprintf(w, "unknown opcode %d\n", op)
		return offset + 1
	}
	next := offset + 1 + bytecode.Width(op)
	if next > len(chunk.Code) {
		fmt.Fprintf(w, "%-16s <truncated>\n", op)
		return len(chunk.Code)
	}

	switch bytecode.Kind(op) {
	case bytecode.TypeByte:
		fmt.Fprintf(w, "%-16s %4d\n", op, chunk.Code[offset+1])
	case bytecode.TypeConst:
		idx := chunk.Code[offset+1]
		fmt.Fprintf(w, "%-16s %4d '%v'\n", op, idx, constant(chunk, idx))
	case bytecode.TypeJump:
		jump := int(bytecode.ReadShort(chunk.Code, offset+1))
		target := next + jump
		if op == bytecode.LOOP {
			target = next - jump
		}
		fmt.Fprintf(w, "%-16s %4d -> %d\n", op, jump, target)
	case bytecode.TypeClosure:
		return closure(w, chunk, offset, next)
	default:
		fmt.Fprintf(w, "%s\n", op)
	}
	return next
}

func closure(w io.Writer, chunk *object.Chunk, offset, next int) int {
	idx := chunk.Code[offset+1]
	val := constant(chunk, idx)
	fmt.Fprintf(w, "%-16s %4d %v\n", bytecode.CLOSURE, idx, val)
	fn, ok := val.AsFunction()
	if !ok {
		return next
	}
	for range fn.UpvalueCount {
		if next+1 >= len(chunk.Code) {
			return len(chunk.Code)
		}
		kind := "upvalue"
		if chunk.Code[next] == 1 {
			kind = "local"
		}
		fmt.Fprintf(w, "%04d    |                     %s %d\n", next, kind, chunk.Code[next+1])
		next += 2
	}
	return next
}

func constant(chunk *object.Chunk, idx byte) object.Value {
	if int(idx) >= len(chunk.Constants) {
		return object.Null
	}
	return chunk.Constants[idx]
}
