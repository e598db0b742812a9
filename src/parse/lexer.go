package parse

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"unicode"

	"github.com/pkg/errors"

	"github.com/tanema/loxvm/src/lerrors"
)

var escapeCodes = map[rune]rune{
	'n':  '\n', // newline
	'r':  '\r', // carriage return
	't':  '\t', // tab
	'\\': '\\', // backslash
	'"':  '"',  // quote
}

type lexer struct {
	filename string
	rdr      *bufio.Reader
	peeked   []*token
	err      error
	LineInfo
}

func newLexer(filename string, src io.Reader) *lexer {
	return &lexer{
		filename: filename,
		LineInfo: LineInfo{Line: 1},
		rdr:      bufio.NewReaderSize(src, 4096),
		peeked:   []*token{},
	}
}

func (lex *lexer) errf(linfo LineInfo, msg string, data ...any) error {
	return &lerrors.Error{
		Filename: lex.filename,
		Kind:     lerrors.CompileErr,
		Line:     linfo.Line,
		Column:   linfo.Column,
		Err:      errors.Errorf(msg, data...),
	}
}

func (lex *lexer) incomplete(linfo LineInfo, msg string) error {
	return &lerrors.Error{
		Filename: lex.filename,
		Kind:     lerrors.CompileErr,
		Line:     linfo.Line,
		Column:   linfo.Column,
		Err:      errors.Wrap(ErrIncomplete, msg),
	}
}

func (lex *lexer) peek() rune {
	chs, _ := lex.rdr.Peek(1)
	if len(chs) == 0 {
		return 0
	}
	return rune(chs[0])
}

func (lex *lexer) next() (rune, error) {
	ch, _, err := lex.rdr.ReadRune()
	if err != nil {
		return ch, err
	}
	if ch == '\n' {
		lex.Line++
		lex.Column = 0
		return ch, nil
	}
	lex.Column++
	return ch, nil
}

func (lex *lexer) skipWhitespace() error {
	for {
		switch lex.peek() {
		case ' ', '\t', '\n', '\r':
			if _, err := lex.next(); err != nil {
				return err
			}
		case '/':
			if next, _ := lex.rdr.Peek(2); len(next) < 2 || next[1] != '/' {
				return nil
			}
			if err := lex.skipComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (lex *lexer) skipComment() error {
	for {
		ch, err := lex.next()
		if err != nil {
			return err
		} else if ch == '\n' {
			return nil
		}
	}
}

func (lex *lexer) tokenVal(tk tokenType) (*token, error) {
	return &token{Kind: tk, LineInfo: LineInfo{Line: lex.Line, Column: lex.Column - int64(len(tk)) + 1}}, nil
}

func (lex *lexer) takeTokenVal(tk tokenType) (*token, error) {
	if _, err := lex.next(); err != nil {
		return nil, err
	}
	return lex.tokenVal(tk)
}

// allow for FIFO stack.
func (lex *lexer) back(tk *token) {
	lex.peeked = append(lex.peeked, tk)
}

// Peek returns the next token without consuming it. An error is kept and
// returned again until Next consumes it.
func (lex *lexer) Peek() (*token, error) {
	if lex.err != nil {
		return lex.eos(), lex.err
	} else if len(lex.peeked) == 0 {
		tk, err := lex.scan()
		if err != nil {
			lex.err = err
			return lex.eos(), err
		}
		lex.back(tk)
	}
	return lex.peeked[len(lex.peeked)-1], nil
}

// Next consumes the next token. At the end of the source it keeps returning an
// EOS token.
func (lex *lexer) Next() (*token, error) {
	if len(lex.peeked) != 0 {
		top := lex.peeked[len(lex.peeked)-1]
		lex.peeked = lex.peeked[:len(lex.peeked)-1]
		return top, nil
	} else if err := lex.err; err != nil {
		lex.err = nil
		return lex.eos(), err
	}
	return lex.scan()
}

func (lex *lexer) scan() (*token, error) {
	if err := lex.skipWhitespace(); err != nil && !errors.Is(err, io.EOF) {
		return lex.eos(), err
	}
	ch, err := lex.next()
	if errors.Is(err, io.EOF) {
		return lex.eos(), nil
	} else if err != nil {
		return lex.eos(), err
	}
	peekCh := lex.peek()
	switch {
	case ch == '(':
		return lex.tokenVal(tokenOpenParen)
	case ch == ')':
		return lex.tokenVal(tokenCloseParen)
	case ch == '{':
		return lex.tokenVal(tokenOpenCurly)
	case ch == '}':
		return lex.tokenVal(tokenCloseCurly)
	case ch == ',':
		return lex.tokenVal(tokenComma)
	case ch == '.':
		return lex.tokenVal(tokenPeriod)
	case ch == '-':
		return lex.tokenVal(tokenMinus)
	case ch == '+':
		return lex.tokenVal(tokenAdd)
	case ch == ';':
		return lex.tokenVal(tokenSemiColon)
	case ch == '/':
		return lex.tokenVal(tokenDivide)
	case ch == '*':
		return lex.tokenVal(tokenMultiply)
	case ch == '!' && peekCh == '=':
		return lex.takeTokenVal(tokenNe)
	case ch == '!':
		return lex.tokenVal(tokenNot)
	case ch == '=' && peekCh == '=':
		return lex.takeTokenVal(tokenEq)
	case ch == '=':
		return lex.tokenVal(tokenAssign)
	case ch == '<' && peekCh == '=':
		return lex.takeTokenVal(tokenLe)
	case ch == '<':
		return lex.tokenVal(tokenLt)
	case ch == '>' && peekCh == '=':
		return lex.takeTokenVal(tokenGe)
	case ch == '>':
		return lex.tokenVal(tokenGt)
	case ch == '"':
		return lex.parseString()
	case unicode.IsDigit(ch):
		return lex.parseNumber(ch)
	case unicode.IsLetter(ch) || ch == '_':
		return lex.parseIdentifier(ch)
	}
	return nil, lex.errf(lex.LineInfo, "unexpected character %q", string(ch))
}

func (lex *lexer) eos() *token {
	return &token{Kind: tokenEOS, LineInfo: lex.LineInfo}
}

func (lex *lexer) parseIdentifier(start rune) (*token, error) {
	linfo := lex.LineInfo
	var ident bytes.Buffer
	ident.WriteRune(start)
	for {
		peekCh := lex.peek()
		if !unicode.IsLetter(peekCh) && !unicode.IsDigit(peekCh) && peekCh != '_' {
			break
		}
		ch, err := lex.next()
		if err != nil {
			return nil, err
		}
		ident.WriteRune(ch)
	}

	strVal := ident.String()
	if kw, ok := keywords[strVal]; ok {
		return &token{Kind: kw, LineInfo: linfo}, nil
	}
	return &token{Kind: tokenIdentifier, StringVal: strVal, LineInfo: linfo}, nil
}

// strings are double quoted, may span lines and support the escapes \n \r \t
// \" and \\.
func (lex *lexer) parseString() (*token, error) {
	linfo := lex.LineInfo
	var str bytes.Buffer
	for {
		ch, err := lex.next()
		if errors.Is(err, io.EOF) {
			return nil, lex.incomplete(linfo, "unterminated string")
		} else if err != nil {
			return nil, err
		}
		switch ch {
		case '"':
			return &token{Kind: tokenString, StringVal: str.String(), LineInfo: linfo}, nil
		case '\\':
			esc, err := lex.next()
			if errors.Is(err, io.EOF) {
				return nil, lex.incomplete(linfo, "unterminated string")
			} else if err != nil {
				return nil, err
			}
			code, ok := escapeCodes[esc]
			if !ok {
				return nil, lex.errf(lex.LineInfo, "unexpected escape code \\%s", string(esc))
			}
			str.WriteRune(code)
		default:
			str.WriteRune(ch)
		}
	}
}

func (lex *lexer) parseNumber(start rune) (*token, error) {
	linfo := lex.LineInfo
	var number bytes.Buffer
	number.WriteRune(start)
	if err := lex.consumeDigits(&number); err != nil {
		return nil, err
	}
	if next, _ := lex.rdr.Peek(2); len(next) == 2 && next[0] == '.' && unicode.IsDigit(rune(next[1])) {
		if err := lex.writeNext(&number); err != nil {
			return nil, err
		} else if err := lex.consumeDigits(&number); err != nil {
			return nil, err
		}
	}
	fval, err := strconv.ParseFloat(number.String(), 64)
	if err != nil {
		return nil, lex.errf(linfo, "malformed number %v", number.String())
	}
	return &token{Kind: tokenNumber, FloatVal: fval, LineInfo: linfo}, nil
}

func (lex *lexer) consumeDigits(number *bytes.Buffer) error {
	for unicode.IsDigit(lex.peek()) {
		if err := lex.writeNext(number); err != nil {
			return err
		}
	}
	return nil
}

func (lex *lexer) writeNext(buf *bytes.Buffer) error {
	ch, err := lex.next()
	if err != nil {
		return err
	}
	buf.WriteRune(ch)
	return nil
}
