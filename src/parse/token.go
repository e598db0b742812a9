package parse

import (
	"fmt"
)

type (
	tokenType string
	// LineInfo is a shared struct that is used for tracking where the behaviour
	// originated from in the sourcecode.
	LineInfo struct {
		Line   int64
		Column int64
	}
	token struct {
		LineInfo
		Kind      tokenType
		StringVal string
		FloatVal  float64
	}
)

const (
	tokenOpenParen  tokenType = "("
	tokenCloseParen tokenType = ")"
	tokenOpenCurly  tokenType = "{"
	tokenCloseCurly tokenType = "}"
	tokenComma      tokenType = ","
	tokenPeriod     tokenType = "."
	tokenMinus      tokenType = "-"
	tokenAdd        tokenType = "+"
	tokenSemiColon  tokenType = ";"
	tokenDivide     tokenType = "/"
	tokenMultiply   tokenType = "*"
	tokenNot        tokenType = "!"
	tokenNe         tokenType = "!="
	tokenAssign     tokenType = "="
	tokenEq         tokenType = "=="
	tokenGt         tokenType = ">"
	tokenGe         tokenType = ">="
	tokenLt         tokenType = "<"
	tokenLe         tokenType = "<="
	tokenAnd        tokenType = "and"
	tokenClass      tokenType = "class"
	tokenElse       tokenType = "else"
	tokenFalse      tokenType = "false"
	tokenFor        tokenType = "for"
	tokenFun        tokenType = "fun"
	tokenIf         tokenType = "if"
	tokenNull       tokenType = "null"
	tokenOr         tokenType = "or"
	tokenReturn     tokenType = "return"
	tokenSuper      tokenType = "super"
	tokenThis       tokenType = "this"
	tokenTrue       tokenType = "true"
	tokenVar        tokenType = "var"
	tokenWhile      tokenType = "while"
	tokenNumber     tokenType = "number"
	tokenIdentifier tokenType = "identifier"
	tokenString     tokenType = "string"
	tokenEOS        tokenType = "<EOS>"
)

const unaryPriority = 7

// left, right priority for binary ops.
var (
	binaryPriority = map[tokenType][2]int{
		tokenOr:       {1, 1},
		tokenAnd:      {2, 2},
		tokenEq:       {3, 3},
		tokenNe:       {3, 3},
		tokenLt:       {4, 4},
		tokenLe:       {4, 4},
		tokenGt:       {4, 4},
		tokenGe:       {4, 4},
		tokenAdd:      {5, 5},
		tokenMinus:    {5, 5},
		tokenMultiply: {6, 6},
		tokenDivide:   {6, 6},
	}
	keywords = map[string]tokenType{
		string(tokenAnd):    tokenAnd,
		string(tokenClass):  tokenClass,
		string(tokenElse):   tokenElse,
		string(tokenFalse):  tokenFalse,
		string(tokenFor):    tokenFor,
		string(tokenFun):    tokenFun,
		string(tokenIf):     tokenIf,
		string(tokenNull):   tokenNull,
		string(tokenOr):     tokenOr,
		string(tokenReturn): tokenReturn,
		string(tokenSuper):  tokenSuper,
		string(tokenThis):   tokenThis,
		string(tokenTrue):   tokenTrue,
		string(tokenVar):    tokenVar,
		string(tokenWhile):  tokenWhile,
	}
	// statement starters, used to find a safe point to resume after an error.
	syncTokens = map[tokenType]bool{
		tokenClass:  true,
		tokenFun:    true,
		tokenVar:    true,
		tokenFor:    true,
		tokenIf:     true,
		tokenWhile:  true,
		tokenReturn: true,
	}
)

func (tk *token) String() string {
	switch tk.Kind {
	case tokenNumber:
		return fmt.Sprintf("%v", tk.FloatVal)
	case tokenIdentifier:
		return tk.StringVal
	case tokenString:
		return fmt.Sprintf("%q", tk.StringVal)
	default:
		return string(tk.Kind)
	}
}

func (tk *token) isUnary() bool {
	return tk.Kind == tokenNot || tk.Kind == tokenMinus
}

func (tk *token) isBinary() bool {
	_, ok := binaryPriority[tk.Kind]
	return ok
}
