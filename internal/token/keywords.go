package token

var keywords = map[string]Kind{
	"and":      KwAnd,
	"or":       KwOr,
	"in":       KwIn,
	"is":       KwIs,
	"func":     KwFunc,
	"const":    KwConst,
	"var":      KwVar,
	"struct":   KwStruct,
	"if":       KwIf,
	"else":     KwElse,
	"for":      KwFor,
	"switch":   KwSwitch,
	"break":    KwBreak,
	"continue": KwContinue,
	"import":   KwImport,
	"return":   KwReturn,
	"block":    KwBlock,
	"true":     TrueLit,
	"false":    FalseLit,
	"nil":      NilLit,
}

// LookupKeyword classifies an identifier-shaped word as a keyword or a
// true/false/nil literal. Matching is case-sensitive.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	return k, ok
}

var operators = map[string]Kind{
	"+": Plus, "-": Minus, "*": Star, "/": Slash, "%": Percent,
	"&": Amp, "|": Pipe, "^": Caret, "~": Tilde, "!": Bang,
	"&&": AndAnd, "||": OrOr,
	"==": EqEq, "!=": BangEq, "<": Lt, "<=": LtEq, ">": Gt, ">=": GtEq,
	"=": Assign, "+=": PlusAssign, "-=": MinusAssign, "*=": StarAssign, "/=": SlashAssign,
	"%=": PercentAssign, "&=": AmpAssign, "|=": PipeAssign, "^=": CaretAssign,
}

// LookupOperator matches an exact operator or assignment spelling.
func LookupOperator(s string) (Kind, bool) {
	k, ok := operators[s]
	return k, ok
}
