// Package token defines lexeme kinds, their categories and the Token record.
//
// Token.Text is the exact source text, except for string literals whose
// Text excludes the quotes. Newline is a real token: the compiler uses it to
// end statements and reads block structure from Token.Indent.
package token
