// Package fuzztests houses fuzz harnesses for the front ends: the lexer,
// the compiler and the assembler. They only check that arbitrary input
// never panics and never yields a chunk after reported errors.
package fuzztests
