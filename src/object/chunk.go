package object

import (
	"github.com/tanema/loxvm/src/bytecode"
)

// Chunk is a compiled unit: the instruction stream, its constant pool and the
// source line of every byte of code. It is read only once compiling is done.
type Chunk struct {
	Code      []byte
	Constants []Value
	Lines     []int
}

// Write appends a byte of code that originated from line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp appends an opcode followed by its operands.
func (c *Chunk) WriteOp(op bytecode.Op, line int, operands ...byte) {
	c.Write(byte(op), line)
	for _, b := range operands {
		c.Write(b, line)
	}
}

// AddConstant adds a value to the constant pool and returns its index. Equal
// values share a single slot.
func (c *Chunk) AddConstant(val Value) int {
	for i, k := range c.Constants {
		if k.Equal(val) {
			return i
		}
	}
	c.Constants = append(c.Constants, val)
	return len(c.Constants) - 1
}

// Line returns the source line of the code at offset.
func (c *Chunk) Line(offset int) int {
	if offset < 0 || offset >= len(c.Lines) {
		return 0
	}
	return c.Lines[offset]
}
