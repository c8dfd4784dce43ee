package token

import (
	"escript/internal/source"
)

// Token is one lexeme with its location. Line and Col are 1-based; Indent
// is the number of leading spaces of the line the token belongs to.
type Token struct {
	Kind   Kind
	Span   source.Span
	Text   string
	Line   uint32
	Col    uint32
	Indent uint32
}

func (t Token) Category() Category { return t.Kind.Category() }

// IsLiteral reports whether the token is an int, string, bool or nil literal.
func (t Token) IsLiteral() bool {
	switch t.Kind {
	case IntLit, StringLit, TrueLit, FalseLit, NilLit:
		return true
	default:
		return false
	}
}

// IsOperator reports whether the token is an expression operator, including
// the 'and'/'or' keywords.
func (t Token) IsOperator() bool {
	return t.Kind.Category() == CatOperator || t.Kind == KwAnd || t.Kind == KwOr
}

func (t Token) IsKeyword() bool { return t.Kind.Category() == CatKeyword }

func (t Token) IsIdent() bool { return t.Kind == Ident }

// EndsStatement reports whether the token terminates a statement.
func (t Token) EndsStatement() bool {
	return t.Kind == Newline || t.Kind == EOF || t.Kind == Semicolon
}
