// Package bytecode defines the instruction set of the vm. An instruction is a
// single opcode byte followed by a fixed amount of operand bytes that depends on
// the opcode. 16 bit operands are stored big-endian.
package bytecode

import (
	"fmt"
)

type (
	// Op is the descriptor of which kind of instruction each bytecode is.
	Op uint8
	// Type is a descriptor of what operands an instruction has.
	Type string
)

const (
	// TypeNone is an instruction without operands.
	TypeNone Type = "none"
	// TypeByte is an instruction with a single u8 operand like a slot or an index.
	TypeByte Type = "byte"
	// TypeConst is an instruction with a single u8 index into the constant pool.
	TypeConst Type = "const"
	// TypeJump is an instruction with a u16 relative offset.
	TypeJump Type = "jump"
	// TypeClosure is a constant index followed by a (isLocal, index) pair for each
	// upvalue of the function constant.
	TypeClosure Type = "closure"
)

const (
	// CONSTANT push a value from the constant pool.
	CONSTANT Op = iota
	// NIL push null.
	NIL
	// TRUE push boolean true.
	TRUE
	// FALSE push boolean false.
	FALSE
	// POP discard the top of the stack.
	POP
	// GETLOCAL push a slot of the current frame window.
	GETLOCAL
	// SETLOCAL write the top of the stack into a slot of the current frame window.
	SETLOCAL
	// GETGLOBAL push a global by name.
	GETGLOBAL
	// DEFGLOBAL define a global by name and pop its value.
	DEFGLOBAL
	// SETGLOBAL assign an already defined global.
	SETGLOBAL
	// GETUPVAL push the value of an upvalue of the running closure.
	GETUPVAL
	// SETUPVAL write the top of the stack into an upvalue of the running closure.
	SETUPVAL
	// GETFIELD replace an instance with the value of one of its fields.
	GETFIELD
	// SETFIELD write a field on an instance.
	SETFIELD
	// EQUAL value equality.
	EQUAL
	// GREATER numeric greater than.
	GREATER
	// LESS numeric less than.
	LESS
	// ADD number addition or string concatenation.
	ADD
	// SUBTRACT number subtraction.
	SUBTRACT
	// MULTIPLY number multiplication.
	MULTIPLY
	// DIVIDE number division.
	DIVIDE
	// NOT boolean negation.
	NOT
	// NEGATE unary minus.
	NEGATE
	// JMP unconditional forward jump.
	JMP
	// JMPFALSE forward jump if the top of the stack is falsy, does not pop.
	JMPFALSE
	// LOOP unconditional backward jump.
	LOOP
	// CALL0 call with zero arguments, CALL0+n calls with n arguments.
	CALL0
	CALL1
	CALL2
	CALL3
	CALL4
	CALL5
	CALL6
	CALL7
	CALL8
	// INVOKE0 call a method by name on a receiver, INVOKE0+n passes n arguments.
	INVOKE0
	INVOKE1
	INVOKE2
	INVOKE3
	INVOKE4
	INVOKE5
	INVOKE6
	INVOKE7
	INVOKE8
	// SUPER0 call a superclass method by name, SUPER0+n passes n arguments.
	SUPER0
	SUPER1
	SUPER2
	SUPER3
	SUPER4
	SUPER5
	SUPER6
	SUPER7
	SUPER8
	// CLOSURE create a closure of a function constant.
	CLOSURE
	// CLOSEUPVAL close the upvalue over the top of the stack and pop it.
	CLOSEUPVAL
	// RETURN return from function call.
	RETURN
	// CLASS push a new class.
	CLASS
	// SUBCLASS replace the superclass on the top of the stack with a new subclass.
	SUBCLASS
	// METHOD bind the closure on the top of the stack into the class below it.
	METHOD
)

var opcodeToString = map[Op]string{
	CONSTANT:   "CONSTANT",
	NIL:        "NIL",
	TRUE:       "TRUE",
	FALSE:      "FALSE",
	POP:        "POP",
	GETLOCAL:   "GETLOCAL",
	SETLOCAL:   "SETLOCAL",
	GETGLOBAL:  "GETGLOBAL",
	DEFGLOBAL:  "DEFGLOBAL",
	SETGLOBAL:  "SETGLOBAL",
	GETUPVAL:   "GETUPVAL",
	SETUPVAL:   "SETUPVAL",
	GETFIELD:   "GETFIELD",
	SETFIELD:   "SETFIELD",
	EQUAL:      "EQUAL",
	GREATER:    "GREATER",
	LESS:       "LESS",
	ADD:        "ADD",
	SUBTRACT:   "SUBTRACT",
	MULTIPLY:   "MULTIPLY",
	DIVIDE:     "DIVIDE",
	NOT:        "NOT",
	NEGATE:     "NEGATE",
	JMP:        "JMP",
	JMPFALSE:   "JMPFALSE",
	LOOP:       "LOOP",
	CLOSURE:    "CLOSURE",
	CLOSEUPVAL: "CLOSEUPVAL",
	RETURN:     "RETURN",
	CLASS:      "CLASS",
	SUBCLASS:   "SUBCLASS",
	METHOD:     "METHOD",
}

func (op Op) String() string {
	if n, ok := op.ArgCount(); ok {
		switch {
		case op <= CALL8:
			return fmt.Sprintf("CALL%d", n)
		case op <= INVOKE8:
			return fmt.Sprintf("INVOKE%d", n)
		default:
			return fmt.Sprintf("SUPER%d", n)
		}
	}
	if name, ok := opcodeToString[op]; ok {
		return name
	}
	return "UNDEFINED"
}

// ArgCount returns the argument count encoded in a call, invoke or super opcode.
// The second return value is false for any other opcode.
func (op Op) ArgCount() (int, bool) {
	switch {
	case op >= CALL0 && op <= CALL8:
		return int(op - CALL0), true
	case op >= INVOKE0 && op <= INVOKE8:
		return int(op - INVOKE0), true
	case op >= SUPER0 && op <= SUPER8:
		return int(op - SUPER0), true
	default:
		return 0, false
	}
}

// Call returns the call opcode for argc arguments.
func Call(argc int) Op { return CALL0 + Op(argc) }

// Invoke returns the invoke opcode for argc arguments.
func Invoke(argc int) Op { return INVOKE0 + Op(argc) }

// Super returns the super invoke opcode for argc arguments.
func Super(argc int) Op { return SUPER0 + Op(argc) }

// Kind will return what kind of operands the opcode takes.
func Kind(op Op) Type {
	switch {
	case op == GETLOCAL, op == SETLOCAL, op == GETUPVAL, op == SETUPVAL:
		return TypeByte
	case op == CONSTANT, op == GETGLOBAL, op == DEFGLOBAL, op == SETGLOBAL,
		op == GETFIELD, op == SETFIELD, op == CLASS, op == SUBCLASS, op == METHOD:
		return TypeConst
	case op >= INVOKE0 && op <= SUPER8:
		return TypeConst
	case op == JMP, op == JMPFALSE, op == LOOP:
		return TypeJump
	case op == CLOSURE:
		return TypeClosure
	default:
		return TypeNone
	}
}

// Width is the amount of fixed operand bytes following the opcode. CLOSURE
// reports only its constant index, the upvalue pairs depend on the function.
func Width(op Op) int {
	switch Kind(op) {
	case TypeByte, TypeConst, TypeClosure:
		return 1
	case TypeJump:
		return 2
	default:
		return 0
	}
}

// Inst encodes an opcode followed by its single byte operands.
func Inst(op Op, operands ...uint8) []byte {
	return append([]byte{byte(op)}, operands...)
}

// IJump encodes a jump instruction with its big-endian offset.
func IJump(op Op, offset uint16) []byte {
	return []byte{byte(op), byte(offset >> 8), byte(offset)}
}

// ReadShort decodes the big-endian u16 at offset.
func ReadShort(code []byte, offset int) uint16 {
	return uint16(code[offset])<<8 | uint16(code[offset+1])
}

// PutShort encodes val big-endian at offset, used to patch forward jumps.
func PutShort(code []byte, offset int, val uint16) {
	code[offset] = byte(val >> 8)
	code[offset+1] = byte(val)
}
