package parse

import (
	"github.com/tanema/loxvm/src/bytecode"
	"github.com/tanema/loxvm/src/object"
)

type (
	// expression is a pending value. Emitting the code that puts it on the stack
	// is delayed until discharge so that assignment targets can be turned into
	// stores instead of loads.
	expression interface {
		discharge(p *Parser) error
	}
	exString struct {
		val string
		LineInfo
	}
	exNumber struct {
		LineInfo
		val float64
	}
	exNull struct {
		LineInfo
	}
	exBool struct {
		LineInfo
		val bool
	}
	exLocal struct {
		LineInfo
		slot uint8
	}
	exUpval struct {
		LineInfo
		index uint8
	}
	exGlobal struct {
		LineInfo
		name uint8
	}
	// exField expects the instance to already be on the stack.
	exField struct {
		LineInfo
		name uint8
	}
	// exValue is already on the stack.
	exValue struct{}
)

func (ex *exString) discharge(p *Parser) error {
	idx, err := p.makeConstant(object.Obj(p.heap.NewString(ex.val)))
	if err != nil {
		return err
	}
	p.code(bytecode.CONSTANT, idx)
	return nil
}

func (ex *exNumber) discharge(p *Parser) error {
	idx, err := p.makeConstant(object.Number(ex.val))
	if err != nil {
		return err
	}
	p.code(bytecode.CONSTANT, idx)
	return nil
}

func (ex *exNull) discharge(p *Parser) error {
	p.code(bytecode.NIL)
	return nil
}

func (ex *exBool) discharge(p *Parser) error {
	if ex.val {
		p.code(bytecode.TRUE)
	} else {
		p.code(bytecode.FALSE)
	}
	return nil
}

func (ex *exLocal) discharge(p *Parser) error {
	p.code(bytecode.GETLOCAL, ex.slot)
	return nil
}

func (ex *exUpval) discharge(p *Parser) error {
	p.code(bytecode.GETUPVAL, ex.index)
	return nil
}

func (ex *exGlobal) discharge(p *Parser) error {
	p.code(bytecode.GETGLOBAL, ex.name)
	return nil
}

func (ex *exField) discharge(p *Parser) error {
	p.code(bytecode.GETFIELD, ex.name)
	return nil
}

func (ex *exValue) discharge(*Parser) error { return nil }

// assignTo emits the store for dst, the value to store must already be on the
// top of the stack and stays there.
func (p *Parser) assignTo(tk *token, dst expression) error {
	switch ex := dst.(type) {
	case *exLocal:
		p.code(bytecode.SETLOCAL, ex.slot)
	case *exUpval:
		p.code(bytecode.SETUPVAL, ex.index)
	case *exGlobal:
		p.code(bytecode.SETGLOBAL, ex.name)
	case *exField:
		p.code(bytecode.SETFIELD, ex.name)
	default:
		return p.errf(tk, "invalid assignment target")
	}
	return nil
}

func isAssignable(ex expression) bool {
	switch ex.(type) {
	case *exLocal, *exUpval, *exGlobal, *exField:
		return true
	default:
		return false
	}
}
