package token

// Kind identifies a lexeme.
type Kind uint8

const (
	// Invalid marks an illegal character or an unterminated string.
	Invalid Kind = iota
	// EOF terminates every stream.
	EOF
	// Newline ends a source line; its Indent is that of the line it ends.
	Newline

	Ident

	IntLit
	StringLit
	TrueLit
	FalseLit
	NilLit

	KwAnd
	KwOr
	KwIn
	KwIs
	KwFunc
	KwConst
	KwVar
	KwStruct
	KwIf
	KwElse
	KwFor
	KwSwitch
	KwBreak
	KwContinue
	KwImport
	KwReturn
	KwBlock

	Plus    // +
	Minus   // -
	Star    // *
	Slash   // /
	Percent // %
	Amp     // &
	Pipe    // |
	Caret   // ^
	Tilde   // ~
	AndAnd  // &&
	OrOr    // ||
	Bang    // !
	EqEq    // ==
	BangEq  // !=
	Lt      // <
	LtEq    // <=
	Gt      // >
	GtEq    // >=

	LParen    // (
	RParen    // )
	LBracket  // [
	RBracket  // ]
	LBrace    // {
	RBrace    // }
	Semicolon // ;
	Comma     // ,

	Assign        // =
	PlusAssign    // +=
	MinusAssign   // -=
	StarAssign    // *=
	SlashAssign   // /=
	PercentAssign // %=
	AmpAssign     // &=
	PipeAssign    // |=
	CaretAssign   // ^=

	kindCount
)

var kindNames = [kindCount]string{
	Invalid: "INVALID", EOF: "EOF", Newline: "NEWLINE", Ident: "IDENT",
	IntLit: "INT", StringLit: "STRING", TrueLit: "TRUE", FalseLit: "FALSE", NilLit: "NIL",
	KwAnd: "and", KwOr: "or", KwIn: "in", KwIs: "is", KwFunc: "func", KwConst: "const",
	KwVar: "var", KwStruct: "struct", KwIf: "if", KwElse: "else", KwFor: "for",
	KwSwitch: "switch", KwBreak: "break", KwContinue: "continue", KwImport: "import",
	KwReturn: "return", KwBlock: "block",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%", Amp: "&", Pipe: "|",
	Caret: "^", Tilde: "~", AndAnd: "&&", OrOr: "||", Bang: "!", EqEq: "==", BangEq: "!=",
	Lt: "<", LtEq: "<=", Gt: ">", GtEq: ">=",
	LParen: "(", RParen: ")", LBracket: "[", RBracket: "]", LBrace: "{", RBrace: "}",
	Semicolon: ";", Comma: ",",
	Assign: "=", PlusAssign: "+=", MinusAssign: "-=", StarAssign: "*=", SlashAssign: "/=",
	PercentAssign: "%=", AmpAssign: "&=", PipeAssign: "|=", CaretAssign: "^=",
}

func (k Kind) String() string {
	if k >= kindCount {
		return "?"
	}
	return kindNames[k]
}

// Category groups kinds the way the compiler's dispatch table does.
type Category uint8

const (
	CatInvalid Category = iota
	CatOperator
	CatKeyword
	CatLiteral
	CatStructure
	CatWhite
)

func (c Category) String() string {
	switch c {
	case CatOperator:
		return "operator"
	case CatKeyword:
		return "keyword"
	case CatLiteral:
		return "literal"
	case CatStructure:
		return "structure"
	case CatWhite:
		return "white"
	default:
		return "invalid"
	}
}

// Category returns the category of k.
func (k Kind) Category() Category {
	switch {
	case k == Invalid:
		return CatInvalid
	case k == EOF || k == Newline:
		return CatWhite
	case k >= Ident && k <= NilLit:
		return CatLiteral
	case k >= KwAnd && k <= KwBlock:
		return CatKeyword
	case k >= Plus && k <= GtEq:
		return CatOperator
	case k >= LParen && k < kindCount:
		return CatStructure
	}
	return CatInvalid
}

// IsAssign reports whether k is '=' or a compound assignment.
func (k Kind) IsAssign() bool { return k >= Assign && k <= CaretAssign }

// CompoundOp maps a compound assignment to its binary operator.
func (k Kind) CompoundOp() (Kind, bool) {
	switch k {
	case PlusAssign:
		return Plus, true
	case MinusAssign:
		return Minus, true
	case StarAssign:
		return Star, true
	case SlashAssign:
		return Slash, true
	case PercentAssign:
		return Percent, true
	case AmpAssign:
		return Amp, true
	case PipeAssign:
		return Pipe, true
	case CaretAssign:
		return Caret, true
	}
	return Invalid, false
}
