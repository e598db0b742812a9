package parse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanema/loxvm/src/lerrors"
)

func TestNextToken(t *testing.T) {
	t.Parallel()
	linfo := LineInfo{Line: 1, Column: 1}
	tests := []struct {
		src   string
		token *token
	}{
		{`"this is a string"`, &token{Kind: tokenString, StringVal: "this is a string", LineInfo: linfo}},
		{`"tab\tquote\"slash\\nl\n"`, &token{Kind: tokenString, StringVal: "tab\tquote\"slash\\nl\n", LineInfo: linfo}},
		{"\"multi\nline\"", &token{Kind: tokenString, StringVal: "multi\nline", LineInfo: linfo}},
		{"22", &token{Kind: tokenNumber, FloatVal: 22, LineInfo: linfo}},
		{"23.43", &token{Kind: tokenNumber, FloatVal: 23.43, LineInfo: linfo}},
		{"0", &token{Kind: tokenNumber, FloatVal: 0, LineInfo: linfo}},
		{"foobar", &token{Kind: tokenIdentifier, StringVal: "foobar", LineInfo: linfo}},
		{"_foo_bar42", &token{Kind: tokenIdentifier, StringVal: "_foo_bar42", LineInfo: linfo}},
		{"// comment\nfoo", &token{Kind: tokenIdentifier, StringVal: "foo", LineInfo: LineInfo{Line: 2, Column: 1}}},
		{"   \t\n  foo", &token{Kind: tokenIdentifier, StringVal: "foo", LineInfo: LineInfo{Line: 2, Column: 3}}},
		{"", &token{Kind: tokenEOS, LineInfo: LineInfo{Line: 1}}},
		{"// only a comment", &token{Kind: tokenEOS, LineInfo: LineInfo{Line: 1, Column: 17}}},
	}

	operators := []tokenType{
		tokenOpenParen, tokenCloseParen, tokenOpenCurly, tokenCloseCurly, tokenComma,
		tokenPeriod, tokenMinus, tokenAdd, tokenSemiColon, tokenDivide, tokenMultiply,
		tokenNot, tokenNe, tokenAssign, tokenEq, tokenGt, tokenGe, tokenLt, tokenLe,
	}
	for _, op := range operators {
		tests = append(tests, struct {
			src   string
			token *token
		}{string(op), &token{Kind: op, LineInfo: linfo}})
	}
	for key, kw := range keywords {
		tests = append(tests, struct {
			src   string
			token *token
		}{key, &token{Kind: kw, LineInfo: linfo}})
	}

	for _, test := range tests {
		out, err := lex(test.src)
		require.NoError(t, err, test.src)
		assert.Equal(t, test.token, out, test.src)
	}
}

func TestLexNumberPeriod(t *testing.T) {
	t.Parallel()
	lexer := newLexer("test", strings.NewReader("1.foo 2."))
	kinds := []tokenType{}
	for {
		tk, err := lexer.Next()
		require.NoError(t, err)
		kinds = append(kinds, tk.Kind)
		if tk.Kind == tokenEOS {
			break
		}
	}
	assert.Equal(t, []tokenType{tokenNumber, tokenPeriod, tokenIdentifier, tokenNumber, tokenPeriod, tokenEOS}, kinds)
}

func TestLexPeek(t *testing.T) {
	t.Parallel()
	lexer := newLexer("test", strings.NewReader(`var a = 1;`))
	tk, err := lexer.Peek()
	require.NoError(t, err)
	assert.Equal(t, tokenVar, tk.Kind)
	tk, err = lexer.Peek()
	require.NoError(t, err)
	assert.Equal(t, tokenVar, tk.Kind)
	tk, err = lexer.Next()
	require.NoError(t, err)
	assert.Equal(t, tokenVar, tk.Kind)

	for _, kind := range []tokenType{tokenIdentifier, tokenAssign, tokenNumber, tokenSemiColon, tokenEOS, tokenEOS} {
		tk, err = lexer.Next()
		require.NoError(t, err)
		assert.Equal(t, kind, tk.Kind)
	}
}

func TestLexErrors(t *testing.T) {
	t.Parallel()
	testcases := []struct {
		src string
		msg string
	}{
		{"@", `test:1:1: unexpected character "@"`},
		{`"abc`, "test:1:1: unterminated string: unexpected end of source"},
		{`"a\q"`, `test:1:4: unexpected escape code \q`},
	}
	for _, tc := range testcases {
		_, err := newLexer("test", strings.NewReader(tc.src)).Next()
		require.Error(t, err)
		kind, ok := lerrors.KindOf(err)
		assert.True(t, ok)
		assert.Equal(t, lerrors.CompileErr, kind)
		assert.Equal(t, tc.msg, err.Error())
	}
}

func lex(str string) (*token, error) {
	return newLexer("test", strings.NewReader(str)).Next()
}
