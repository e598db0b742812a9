// Package parse is the front end of the vm. It lexes source text and compiles it
// in a single pass straight into bytecode, there is no intermediate tree.
package parse

import (
	"io"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/tanema/loxvm/src/bytecode"
	"github.com/tanema/loxvm/src/conf"
	"github.com/tanema/loxvm/src/lerrors"
	"github.com/tanema/loxvm/src/object"
)

type (
	fnKind uint8
	local  struct {
		name     string
		depth    int
		captured bool
	}
	upindex struct {
		index     uint8
		fromStack bool
	}
	// fnState is the compile state of a single function. Nested function
	// declarations chain their state to the enclosing one.
	fnState struct {
		prev      *fnState
		fn        *object.Function
		locals    []local
		upindexes []upindex
		depth     int
		kind      fnKind
	}
	classState struct {
		prev     *classState
		hasSuper bool
	}
	// Parser compiles one source at a time into a script function allocated on
	// its heap.
	Parser struct {
		heap          *object.Heap
		lex           *lexer
		fs            *fnState
		class         *classState
		errs          *multierror.Error
		filename      string
		lastKind      tokenType
		lastTokenInfo LineInfo
	}
)

const (
	kindScript fnKind = iota
	kindFunction
	kindMethod
)

// ErrIncomplete is the cause of compile errors that were hit at the end of the
// source, more input may make the source valid.
var ErrIncomplete = errors.New("unexpected end of source")

// New creates a parser that allocates on heap.
func New(heap *object.Heap) *Parser {
	return &Parser{heap: heap}
}

// Compile is a helper around Parser.Parse.
func Compile(heap *object.Heap, filename string, src io.Reader) (*object.Function, error) {
	return New(heap).Parse(filename, src)
}

// Parse compiles src into the function of a script. Every error in the source is
// collected before returning, the parser resynchronizes at statement boundaries.
// While parsing, the functions being compiled are roots of the heap.
func (p *Parser) Parse(filename string, src io.Reader) (*object.Function, error) {
	p.filename = filename
	p.lex = newLexer(filename, src)
	p.errs = nil
	p.fs = nil
	p.class = nil
	p.heap.AddRoots(p)
	defer p.heap.RemoveRoots(p)

	p.openFunction(kindScript, "")
	p.declarations(tokenEOS)
	fn, _ := p.closeFunction()
	if err := p.errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return fn, nil
}

// MarkRoots marks every function that is still being compiled.
func (p *Parser) MarkRoots(h *object.Heap) {
	for fs := p.fs; fs != nil; fs = fs.prev {
		h.MarkObject(fs.fn)
	}
}

func formatErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

func (p *Parser) report(err error) {
	if p.errs != nil && len(p.errs.Errors) > 0 && p.errs.Errors[len(p.errs.Errors)-1] == err {
		return
	}
	p.errs = multierror.Append(p.errs, err)
	p.errs.ErrorFormat = formatErrors
}

// isReadErr is true for errors of the underlying reader, the lexer cannot make
// progress after those.
func isReadErr(err error) bool {
	_, ok := lerrors.KindOf(err)
	return !ok
}

func (p *Parser) errf(tk *token, msg string, data ...any) error {
	linfo := p.lastTokenInfo
	var err error
	if tk != nil {
		linfo = tk.LineInfo
		if tk.Kind == tokenEOS {
			err = errors.Wrapf(ErrIncomplete, msg, data...)
		}
	}
	if err == nil {
		err = errors.Errorf(msg, data...)
	}
	return &lerrors.Error{
		Kind:     lerrors.CompileErr,
		Filename: p.filename,
		Line:     linfo.Line,
		Column:   linfo.Column,
		Err:      err,
	}
}

func (p *Parser) peek() (*token, error) {
	return p.lex.Peek()
}

func (p *Parser) consume() (*token, error) {
	tk, err := p.lex.Next()
	if err != nil {
		return nil, err
	}
	p.lastTokenInfo = tk.LineInfo
	p.lastKind = tk.Kind
	return tk, nil
}

// consumeToken will only consume the next token if it is of kind tt.
func (p *Parser) consumeToken(tt tokenType, msg string) (*token, error) {
	tk, err := p.peek()
	if err != nil {
		return nil, err
	} else if tk.Kind != tt {
		if tk.Kind == tokenEOS {
			return nil, p.errf(tk, msg)
		}
		return nil, p.errf(tk, "%s near '%v'", msg, tk)
	}
	return p.consume()
}

func (p *Parser) next(tt tokenType, msg string) error {
	_, err := p.consumeToken(tt, msg)
	return err
}

// accept consumes the next token only if it is of kind tt and reports if it did.
func (p *Parser) accept(tt tokenType) (bool, error) {
	tk, err := p.peek()
	if err != nil {
		return false, err
	} else if tk.Kind != tt {
		return false, nil
	}
	_, err = p.consume()
	return err == nil, err
}

func (p *Parser) check(tt tokenType) bool {
	tk, err := p.peek()
	return err == nil && tk.Kind == tt
}

// synchronize skips tokens until a statement boundary so that one mistake does
// not cascade into a flood of errors.
func (p *Parser) synchronize() {
	for p.lastKind != tokenSemiColon {
		tk, err := p.peek()
		if err != nil {
			p.report(err)
			if isReadErr(err) {
				return
			}
			_, _ = p.consume()
			continue
		}
		if tk.Kind == tokenEOS || syncTokens[tk.Kind] {
			return
		}
		_, _ = p.consume()
	}
}

func (p *Parser) chunk() *object.Chunk {
	return &p.fs.fn.Chunk
}

func (p *Parser) code(op bytecode.Op, operands ...byte) int {
	chunk := p.chunk()
	chunk.WriteOp(op, int(p.lastTokenInfo.Line), operands...)
	return len(chunk.Code) - len(operands) - 1
}

func (p *Parser) emitJump(op bytecode.Op) int {
	return p.code(op, 0xff, 0xff) + 1
}

func (p *Parser) patchJump(offset int) error {
	code := p.chunk().Code
	jump := len(code) - offset - 2
	if jump > conf.MAXJUMP {
		return p.errf(nil, "too much code to jump over")
	}
	bytecode.PutShort(code, offset, uint16(jump))
	return nil
}

func (p *Parser) emitLoop(start int) error {
	jump := len(p.chunk().Code) - start + 3
	if jump > conf.MAXJUMP {
		return p.errf(nil, "loop body too large")
	}
	p.chunk().WriteOp(bytecode.LOOP, int(p.lastTokenInfo.Line), byte(jump>>8), byte(jump))
	return nil
}

func (p *Parser) emitReturn() {
	p.code(bytecode.NIL)
	p.code(bytecode.RETURN)
}

func (p *Parser) makeConstant(val object.Value) (uint8, error) {
	idx := p.chunk().AddConstant(val)
	if idx >= conf.MAXCONST {
		return 0, p.errf(nil, "too many constants in one function")
	}
	return uint8(idx), nil
}

func (p *Parser) identConst(name string) (uint8, error) {
	return p.makeConstant(object.Obj(p.heap.NewString(name)))
}

func (p *Parser) openFunction(kind fnKind, name string) *fnState {
	fs := &fnState{prev: p.fs, kind: kind, fn: p.heap.NewFunction(nil)}
	p.fs = fs
	if name != "" {
		fs.fn.Name = p.heap.NewString(name)
	}
	if kind == kindMethod {
		fs.locals = append(fs.locals, local{name: string(tokenThis)})
	}
	return fs
}

func (p *Parser) closeFunction() (*object.Function, []upindex) {
	p.emitReturn()
	fs := p.fs
	fs.fn.UpvalueCount = len(fs.upindexes)
	p.fs = fs.prev
	return fs.fn, fs.upindexes
}

func (p *Parser) beginScope() {
	p.fs.depth++
}

func (p *Parser) endScope() {
	fs := p.fs
	fs.depth--
	for len(fs.locals) > 0 && fs.locals[len(fs.locals)-1].depth > fs.depth {
		if fs.locals[len(fs.locals)-1].captured {
			p.code(bytecode.CLOSEUPVAL)
		} else {
			p.code(bytecode.POP)
		}
		fs.locals = fs.locals[:len(fs.locals)-1]
	}
}

// declarations compiles until the until token is next. Errors are collected and
// the parser resynchronizes so that compiling can continue.
func (p *Parser) declarations(until tokenType) {
	for {
		tk, err := p.peek()
		if err != nil {
			p.report(err)
			if isReadErr(err) {
				return
			}
			_, _ = p.consume()
			p.synchronize()
			continue
		} else if tk.Kind == until || tk.Kind == tokenEOS {
			return
		}
		if err := p.declaration(); err != nil {
			p.report(err)
			p.synchronize()
		}
	}
}

func (p *Parser) declaration() error {
	p.lastKind = ""
	tk, err := p.peek()
	if err != nil {
		return err
	}
	switch tk.Kind {
	case tokenClass:
		return p.classdecl()
	case tokenFun:
		return p.fundecl()
	case tokenVar:
		return p.vardecl()
	default:
		return p.stat()
	}
}

// classdecl -> 'class' NAME ['<' NAME] '{' {method} '}'.
func (p *Parser) classdecl() error {
	if _, err := p.consume(); err != nil {
		return err
	}
	name, err := p.consumeToken(tokenIdentifier, "expected class name")
	if err != nil {
		return err
	}
	nameConst, err := p.identConst(name.StringVal)
	if err != nil {
		return err
	}
	global, err := p.declareVariable(name)
	if err != nil {
		return err
	}

	cs := &classState{prev: p.class}
	p.class = cs
	defer func() { p.class = cs.prev }()

	if ok, err := p.accept(tokenLt); err != nil {
		return err
	} else if ok {
		super, err := p.consumeToken(tokenIdentifier, "expected superclass name")
		if err != nil {
			return err
		} else if super.StringVal == name.StringVal {
			return p.errf(super, "a class cannot inherit from itself")
		} else if err := p.namedVariable(super); err != nil {
			return err
		}
		cs.hasSuper = true
		p.code(bytecode.SUBCLASS, nameConst)
	} else {
		p.code(bytecode.CLASS, nameConst)
	}
	p.defineVariable(global)

	if err := p.namedVariable(name); err != nil {
		return err
	} else if err := p.next(tokenOpenCurly, "expected '{' before class body"); err != nil {
		return err
	}
	for !p.check(tokenCloseCurly) && !p.check(tokenEOS) {
		if err := p.method(); err != nil {
			return err
		}
	}
	if err := p.next(tokenCloseCurly, "expected '}' after class body"); err != nil {
		return err
	}
	p.code(bytecode.POP)
	return nil
}

func (p *Parser) method() error {
	name, err := p.consumeToken(tokenIdentifier, "expected method name")
	if err != nil {
		return err
	}
	nameConst, err := p.identConst(name.StringVal)
	if err != nil {
		return err
	} else if err := p.function(kindMethod, name.StringVal); err != nil {
		return err
	}
	p.code(bytecode.METHOD, nameConst)
	return nil
}

// fundecl -> 'fun' NAME funcbody.
func (p *Parser) fundecl() error {
	if _, err := p.consume(); err != nil {
		return err
	}
	name, err := p.consumeToken(tokenIdentifier, "expected function name")
	if err != nil {
		return err
	}
	global, err := p.declareVariable(name)
	if err != nil {
		return err
	}
	p.markInitialized()
	if err := p.function(kindFunction, name.StringVal); err != nil {
		return err
	}
	p.defineVariable(global)
	return nil
}

// vardecl -> 'var' NAME ['=' expr] ';'.
func (p *Parser) vardecl() error {
	if _, err := p.consume(); err != nil {
		return err
	}
	name, err := p.consumeToken(tokenIdentifier, "expected variable name")
	if err != nil {
		return err
	}
	global, err := p.declareVariable(name)
	if err != nil {
		return err
	}
	if ok, err := p.accept(tokenAssign); err != nil {
		return err
	} else if ok {
		if err := p.dischargeExpr(); err != nil {
			return err
		}
	} else {
		p.code(bytecode.NIL)
	}
	if err := p.next(tokenSemiColon, "expected ';' after variable declaration"); err != nil {
		return err
	}
	p.defineVariable(global)
	return nil
}

// function compiles the parameters and body of a function and emits the closure
// that captures it into the enclosing function.
func (p *Parser) function(kind fnKind, name string) error {
	fs := p.openFunction(kind, name)
	err := p.funcbody(fs)
	fn, upindexes := p.closeFunction()
	if err != nil {
		return err
	}
	idx, err := p.makeConstant(object.Obj(fn))
	if err != nil {
		return err
	}
	operands := []byte{idx}
	for _, up := range upindexes {
		isLocal := byte(0)
		if up.fromStack {
			isLocal = 1
		}
		operands = append(operands, isLocal, up.index)
	}
	p.code(bytecode.CLOSURE, operands...)
	return nil
}

// funcbody -> '(' [NAME {',' NAME}] ')' block.
func (p *Parser) funcbody(fs *fnState) error {
	p.beginScope()
	if err := p.next(tokenOpenParen, "expected '(' after function name"); err != nil {
		return err
	}
	if !p.check(tokenCloseParen) {
		for {
			if fs.fn.Arity == conf.MAXARGS {
				tk, _ := p.peek()
				return p.errf(tk, "cannot have more than %v parameters", conf.MAXARGS)
			}
			fs.fn.Arity++
			name, err := p.consumeToken(tokenIdentifier, "expected parameter name")
			if err != nil {
				return err
			} else if _, err := p.declareVariable(name); err != nil {
				return err
			}
			p.markInitialized()
			if ok, err := p.accept(tokenComma); err != nil {
				return err
			} else if !ok {
				break
			}
		}
	}
	if err := p.next(tokenCloseParen, "expected ')' after parameters"); err != nil {
		return err
	} else if err := p.next(tokenOpenCurly, "expected '{' before function body"); err != nil {
		return err
	}
	return p.block()
}

// block -> {declaration} '}'. The opening curly is already consumed.
func (p *Parser) block() error {
	p.declarations(tokenCloseCurly)
	return p.next(tokenCloseCurly, "expected '}' after block")
}

func (p *Parser) stat() error {
	tk, err := p.peek()
	if err != nil {
		return err
	}
	switch tk.Kind {
	case tokenIf:
		return p.ifstat()
	case tokenWhile:
		return p.whilestat()
	case tokenFor:
		return p.forstat()
	case tokenReturn:
		return p.retstat()
	case tokenOpenCurly:
		if _, err := p.consume(); err != nil {
			return err
		}
		p.beginScope()
		err := p.block()
		p.endScope()
		return err
	default:
		return p.exprstat()
	}
}

func (p *Parser) exprstat() error {
	if err := p.dischargeExpr(); err != nil {
		return err
	} else if err := p.next(tokenSemiColon, "expected ';' after expression"); err != nil {
		return err
	}
	p.code(bytecode.POP)
	return nil
}

// condition -> '(' expr ')'.
func (p *Parser) condition(keyword string) error {
	if err := p.next(tokenOpenParen, "expected '(' after '"+keyword+"'"); err != nil {
		return err
	} else if err := p.dischargeExpr(); err != nil {
		return err
	}
	return p.next(tokenCloseParen, "expected ')' after condition")
}

// ifstat -> 'if' '(' expr ')' stat ['else' stat].
func (p *Parser) ifstat() error {
	if _, err := p.consume(); err != nil {
		return err
	} else if err := p.condition("if"); err != nil {
		return err
	}
	thenJump := p.emitJump(bytecode.JMPFALSE)
	p.code(bytecode.POP)
	if err := p.stat(); err != nil {
		return err
	}
	elseJump := p.emitJump(bytecode.JMP)
	if err := p.patchJump(thenJump); err != nil {
		return err
	}
	p.code(bytecode.POP)
	if ok, err := p.accept(tokenElse); err != nil {
		return err
	} else if ok {
		if err := p.stat(); err != nil {
			return err
		}
	}
	return p.patchJump(elseJump)
}

// whilestat -> 'while' '(' expr ')' stat.
func (p *Parser) whilestat() error {
	if _, err := p.consume(); err != nil {
		return err
	}
	loopStart := len(p.chunk().Code)
	if err := p.condition("while"); err != nil {
		return err
	}
	exitJump := p.emitJump(bytecode.JMPFALSE)
	p.code(bytecode.POP)
	if err := p.stat(); err != nil {
		return err
	} else if err := p.emitLoop(loopStart); err != nil {
		return err
	} else if err := p.patchJump(exitJump); err != nil {
		return err
	}
	p.code(bytecode.POP)
	return nil
}

// forstat -> 'for' '(' [vardecl | exprstat | ';'] [expr] ';' [expr] ')' stat.
func (p *Parser) forstat() error {
	if _, err := p.consume(); err != nil {
		return err
	}
	p.beginScope()
	err := p.forbody()
	p.endScope()
	return err
}

func (p *Parser) forbody() error {
	if err := p.next(tokenOpenParen, "expected '(' after 'for'"); err != nil {
		return err
	}
	tk, err := p.peek()
	if err != nil {
		return err
	}
	switch tk.Kind {
	case tokenSemiColon:
		if _, err := p.consume(); err != nil {
			return err
		}
	case tokenVar:
		if err := p.vardecl(); err != nil {
			return err
		}
	default:
		if err := p.exprstat(); err != nil {
			return err
		}
	}

	loopStart := len(p.chunk().Code)
	exitJump := -1
	if ok, err := p.accept(tokenSemiColon); err != nil {
		return err
	} else if !ok {
		if err := p.dischargeExpr(); err != nil {
			return err
		} else if err := p.next(tokenSemiColon, "expected ';' after loop condition"); err != nil {
			return err
		}
		exitJump = p.emitJump(bytecode.JMPFALSE)
		p.code(bytecode.POP)
	}

	if ok, err := p.accept(tokenCloseParen); err != nil {
		return err
	} else if !ok {
		bodyJump := p.emitJump(bytecode.JMP)
		incrStart := len(p.chunk().Code)
		if err := p.dischargeExpr(); err != nil {
			return err
		}
		p.code(bytecode.POP)
		if err := p.next(tokenCloseParen, "expected ')' after for clauses"); err != nil {
			return err
		} else if err := p.emitLoop(loopStart); err != nil {
			return err
		}
		loopStart = incrStart
		if err := p.patchJump(bodyJump); err != nil {
			return err
		}
	}

	if err := p.stat(); err != nil {
		return err
	} else if err := p.emitLoop(loopStart); err != nil {
		return err
	}
	if exitJump != -1 {
		if err := p.patchJump(exitJump); err != nil {
			return err
		}
		p.code(bytecode.POP)
	}
	return nil
}

// retstat -> 'return' [expr] ';'.
func (p *Parser) retstat() error {
	tk, err := p.consume()
	if err != nil {
		return err
	} else if p.fs.kind == kindScript {
		return p.errf(tk, "cannot return from top-level code")
	}
	if ok, err := p.accept(tokenSemiColon); err != nil {
		return err
	} else if ok {
		p.emitReturn()
		return nil
	}
	if err := p.dischargeExpr(); err != nil {
		return err
	} else if err := p.next(tokenSemiColon, "expected ';' after return value"); err != nil {
		return err
	}
	p.code(bytecode.RETURN)
	return nil
}

func (p *Parser) declareVariable(name *token) (uint8, error) {
	fs := p.fs
	if fs.depth == 0 {
		return p.identConst(name.StringVal)
	}
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].depth != -1 && fs.locals[i].depth < fs.depth {
			break
		} else if fs.locals[i].name == name.StringVal {
			return 0, p.errf(name, "already a variable named '%v' in this scope", name.StringVal)
		}
	}
	if len(fs.locals) >= conf.MAXLOCALS {
		return 0, p.errf(name, "too many local variables in function")
	}
	fs.locals = append(fs.locals, local{name: name.StringVal, depth: -1})
	return 0, nil
}

func (p *Parser) markInitialized() {
	fs := p.fs
	if fs.depth == 0 {
		return
	}
	fs.locals[len(fs.locals)-1].depth = fs.depth
}

func (p *Parser) defineVariable(global uint8) {
	if p.fs.depth > 0 {
		p.markInitialized()
		return
	}
	p.code(bytecode.DEFGLOBAL, global)
}

func (p *Parser) resolveLocal(fs *fnState, name *token) (int, error) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name.StringVal {
			if fs.locals[i].depth == -1 {
				return -1, p.errf(name, "cannot read local variable '%v' in its own initializer", name.StringVal)
			}
			return i, nil
		}
	}
	return -1, nil
}

func (p *Parser) resolveUpvalue(fs *fnState, name *token) (int, error) {
	if fs.prev == nil {
		return -1, nil
	}
	if idx, err := p.resolveLocal(fs.prev, name); err != nil {
		return -1, err
	} else if idx != -1 {
		fs.prev.locals[idx].captured = true
		return p.addUpvalue(fs, name, uint8(idx), true)
	}
	idx, err := p.resolveUpvalue(fs.prev, name)
	if err != nil || idx == -1 {
		return idx, err
	}
	return p.addUpvalue(fs, name, uint8(idx), false)
}

func (p *Parser) addUpvalue(fs *fnState, name *token, index uint8, fromStack bool) (int, error) {
	for i, up := range fs.upindexes {
		if up.index == index && up.fromStack == fromStack {
			return i, nil
		}
	}
	if len(fs.upindexes) >= conf.MAXUPVALUES {
		return -1, p.errf(name, "too many closure variables in function")
	}
	fs.upindexes = append(fs.upindexes, upindex{index: index, fromStack: fromStack})
	return len(fs.upindexes) - 1, nil
}

// variable resolves a name to a local, an upvalue or finally a global.
func (p *Parser) variable(name *token) (expression, error) {
	if idx, err := p.resolveLocal(p.fs, name); err != nil {
		return nil, err
	} else if idx != -1 {
		return &exLocal{LineInfo: name.LineInfo, slot: uint8(idx)}, nil
	}
	if idx, err := p.resolveUpvalue(p.fs, name); err != nil {
		return nil, err
	} else if idx != -1 {
		return &exUpval{LineInfo: name.LineInfo, index: uint8(idx)}, nil
	}
	idx, err := p.identConst(name.StringVal)
	if err != nil {
		return nil, err
	}
	return &exGlobal{LineInfo: name.LineInfo, name: idx}, nil
}

func (p *Parser) namedVariable(name *token) error {
	ex, err := p.variable(name)
	if err != nil {
		return err
	}
	return ex.discharge(p)
}

func (p *Parser) dischargeExpr() error {
	ex, err := p.expression()
	if err != nil {
		return err
	}
	return ex.discharge(p)
}

// expression -> assignable '=' expression | expr.
func (p *Parser) expression() (expression, error) {
	ex, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	tk, err := p.peek()
	if err != nil {
		return nil, err
	} else if tk.Kind != tokenAssign {
		return ex, nil
	} else if !isAssignable(ex) {
		return nil, p.errf(tk, "invalid assignment target")
	} else if _, err := p.consume(); err != nil {
		return nil, err
	} else if err := p.dischargeExpr(); err != nil {
		return nil, err
	} else if err := p.assignTo(tk, ex); err != nil {
		return nil, err
	}
	return &exValue{}, nil
}

// expr -> (simpleexp | unop expr) { binop expr }
// where binop is any binary operator with a priority higher than 'limit'.
func (p *Parser) expr(limit int) (expression, error) {
	tk, err := p.peek()
	if err != nil {
		return nil, err
	}
	var desc expression
	if tk.isUnary() {
		if _, err := p.consume(); err != nil {
			return nil, err
		}
		operand, err := p.expr(unaryPriority)
		if err != nil {
			return nil, err
		} else if err := operand.discharge(p); err != nil {
			return nil, err
		}
		if tk.Kind == tokenNot {
			p.code(bytecode.NOT)
		} else {
			p.code(bytecode.NEGATE)
		}
		desc = &exValue{}
	} else if desc, err = p.simpleexp(); err != nil {
		return nil, err
	}

	for {
		op, err := p.peek()
		if err != nil {
			return nil, err
		} else if !op.isBinary() || binaryPriority[op.Kind][0] <= limit {
			return desc, nil
		} else if _, err := p.consume(); err != nil {
			return nil, err
		} else if err := desc.discharge(p); err != nil {
			return nil, err
		}
		if err := p.binop(op); err != nil {
			return nil, err
		}
		desc = &exValue{}
	}
}

// binop compiles the right operand of op, the left operand is already on the
// stack.
func (p *Parser) binop(op *token) error {
	prio := binaryPriority[op.Kind][1]
	switch op.Kind {
	case tokenAnd:
		endJump := p.emitJump(bytecode.JMPFALSE)
		p.code(bytecode.POP)
		if err := p.operand(prio); err != nil {
			return err
		}
		return p.patchJump(endJump)
	case tokenOr:
		elseJump := p.emitJump(bytecode.JMPFALSE)
		endJump := p.emitJump(bytecode.JMP)
		if err := p.patchJump(elseJump); err != nil {
			return err
		}
		p.code(bytecode.POP)
		if err := p.operand(prio); err != nil {
			return err
		}
		return p.patchJump(endJump)
	}

	if err := p.operand(prio); err != nil {
		return err
	}
	p.lastTokenInfo = op.LineInfo
	switch op.Kind {
	case tokenAdd:
		p.code(bytecode.ADD)
	case tokenMinus:
		p.code(bytecode.SUBTRACT)
	case tokenMultiply:
		p.code(bytecode.MULTIPLY)
	case tokenDivide:
		p.code(bytecode.DIVIDE)
	case tokenEq:
		p.code(bytecode.EQUAL)
	case tokenNe:
		p.code(bytecode.EQUAL)
		p.code(bytecode.NOT)
	case tokenGt:
		p.code(bytecode.GREATER)
	case tokenGe:
		p.code(bytecode.LESS)
		p.code(bytecode.NOT)
	case tokenLt:
		p.code(bytecode.LESS)
	case tokenLe:
		p.code(bytecode.GREATER)
		p.code(bytecode.NOT)
	}
	return nil
}

func (p *Parser) operand(limit int) error {
	ex, err := p.expr(limit)
	if err != nil {
		return err
	}
	return ex.discharge(p)
}

// simpleexp -> NUMBER | STRING | 'null' | 'true' | 'false' | suffixedexp.
func (p *Parser) simpleexp() (expression, error) {
	tk, err := p.peek()
	if err != nil {
		return nil, err
	}
	switch tk.Kind {
	case tokenNumber:
		_, err = p.consume()
		return &exNumber{LineInfo: tk.LineInfo, val: tk.FloatVal}, err
	case tokenString:
		_, err = p.consume()
		return &exString{LineInfo: tk.LineInfo, val: tk.StringVal}, err
	case tokenNull:
		_, err = p.consume()
		return &exNull{LineInfo: tk.LineInfo}, err
	case tokenTrue, tokenFalse:
		_, err = p.consume()
		return &exBool{LineInfo: tk.LineInfo, val: tk.Kind == tokenTrue}, err
	default:
		return p.suffixedexp()
	}
}

// suffixedexp -> primaryexp { '.' NAME | '.' NAME args | args }.
func (p *Parser) suffixedexp() (expression, error) {
	desc, err := p.primaryexp()
	if err != nil {
		return nil, err
	}
	for {
		tk, err := p.peek()
		if err != nil {
			return nil, err
		}
		switch tk.Kind {
		case tokenPeriod:
			if _, err := p.consume(); err != nil {
				return nil, err
			}
			name, err := p.consumeToken(tokenIdentifier, "expected property name after '.'")
			if err != nil {
				return nil, err
			}
			nameConst, err := p.identConst(name.StringVal)
			if err != nil {
				return nil, err
			} else if err := desc.discharge(p); err != nil {
				return nil, err
			}
			if ok, err := p.accept(tokenOpenParen); err != nil {
				return nil, err
			} else if ok {
				argc, err := p.arguments()
				if err != nil {
					return nil, err
				}
				p.code(bytecode.Invoke(argc), nameConst)
				desc = &exValue{}
			} else {
				desc = &exField{LineInfo: name.LineInfo, name: nameConst}
			}
		case tokenOpenParen:
			if _, err := p.consume(); err != nil {
				return nil, err
			} else if err := desc.discharge(p); err != nil {
				return nil, err
			}
			argc, err := p.arguments()
			if err != nil {
				return nil, err
			}
			p.code(bytecode.Call(argc))
			desc = &exValue{}
		default:
			return desc, nil
		}
	}
}

// primaryexp -> NAME | 'this' | 'super' '.' NAME args | '(' expr ')'.
func (p *Parser) primaryexp() (expression, error) {
	tk, err := p.consume()
	if err != nil {
		return nil, err
	}
	switch tk.Kind {
	case tokenIdentifier:
		return p.variable(tk)
	case tokenThis:
		if p.class == nil {
			return nil, p.errf(tk, "cannot use 'this' outside of a class")
		}
		return p.variable(&token{Kind: tokenIdentifier, StringVal: string(tokenThis), LineInfo: tk.LineInfo})
	case tokenSuper:
		return p.superexp(tk)
	case tokenOpenParen:
		if err := p.dischargeExpr(); err != nil {
			return nil, err
		} else if err := p.next(tokenCloseParen, "expected ')' after expression"); err != nil {
			return nil, err
		}
		return &exValue{}, nil
	case tokenEOS:
		return nil, p.errf(tk, "expected expression")
	default:
		return nil, p.errf(tk, "unexpected symbol near '%v'", tk)
	}
}

// superexp compiles a superclass method call. The receiver is pushed before the
// arguments so that it becomes slot 0 of the method frame.
func (p *Parser) superexp(tk *token) (expression, error) {
	if p.class == nil {
		return nil, p.errf(tk, "cannot use 'super' outside of a class")
	} else if !p.class.hasSuper {
		return nil, p.errf(tk, "cannot use 'super' in a class with no superclass")
	} else if err := p.next(tokenPeriod, "expected '.' after 'super'"); err != nil {
		return nil, err
	}
	name, err := p.consumeToken(tokenIdentifier, "expected superclass method name")
	if err != nil {
		return nil, err
	}
	nameConst, err := p.identConst(name.StringVal)
	if err != nil {
		return nil, err
	} else if err := p.next(tokenOpenParen, "expected '(' after superclass method name"); err != nil {
		return nil, err
	} else if err := p.namedVariable(&token{Kind: tokenIdentifier, StringVal: string(tokenThis), LineInfo: tk.LineInfo}); err != nil {
		return nil, err
	}
	argc, err := p.arguments()
	if err != nil {
		return nil, err
	}
	p.code(bytecode.Super(argc), nameConst)
	return &exValue{}, nil
}

// args -> '(' [expr {',' expr}] ')'. The opening paren is already consumed.
func (p *Parser) arguments() (int, error) {
	argc := 0
	if !p.check(tokenCloseParen) {
		for {
			if argc == conf.MAXARGS {
				tk, _ := p.peek()
				return 0, p.errf(tk, "cannot have more than %v arguments", conf.MAXARGS)
			} else if err := p.dischargeExpr(); err != nil {
				return 0, err
			}
			argc++
			if ok, err := p.accept(tokenComma); err != nil {
				return 0, err
			} else if !ok {
				break
			}
		}
	}
	return argc, p.next(tokenCloseParen, "expected ')' after arguments")
}
