package testkit

import (
	"strings"
	"testing"

	"escript/internal/lexer"
	"escript/internal/source"
	"escript/internal/token"
)

func TestLexerOutputHolds(t *testing.T) {
	fs := source.NewFileSet()
	sf := fs.Get(fs.AddVirtual("ok.es", []byte("func f(a, b)\n  if a >= b return a else return b\n")))
	if err := CheckTokenInvariants(lexer.All(sf, lexer.Options{}), sf); err != nil {
		t.Fatalf("CheckTokenInvariants: %v", err)
	}
}

func TestViolations(t *testing.T) {
	fs := source.NewFileSet()
	sf := fs.Get(fs.AddVirtual("v.es", []byte("ab cd")))
	ident := func(start, end uint32, text string) token.Token {
		return token.Token{Kind: token.Ident, Span: source.Span{File: sf.ID, Start: start, End: end}, Text: text}
	}
	eof := token.Token{Kind: token.EOF, Span: source.Span{File: sf.ID, Start: 5, End: 5}}

	tests := []struct {
		name string
		toks []token.Token
		want string
	}{
		{"no EOF", []token.Token{ident(0, 2, "ab")}, "does not end with EOF"},
		{"early EOF", []token.Token{eof, eof}, "EOF at index 0"},
		{"out of range", []token.Token{ident(3, 9, "cd"), eof}, "outside content"},
		{"out of order", []token.Token{ident(3, 5, "cd"), ident(0, 2, "ab"), eof}, "before its predecessor"},
		{"wrong text", []token.Token{ident(0, 2, "xx"), eof}, "identifier text"},
		{"wrong file", []token.Token{{Kind: token.EOF, Span: source.Span{File: sf.ID + 1}}}, "file mismatch"},
	}
	for _, tt := range tests {
		err := CheckTokenInvariants(tt.toks, sf)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: err = %v, want %q", tt.name, err, tt.want)
		}
	}
}
