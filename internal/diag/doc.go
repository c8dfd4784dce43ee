// Package diag defines the diagnostic model shared by the lexer, compiler,
// assembler and driver.
//
// A Diagnostic carries a Severity, a numeric Code with a stable string ID
// (LEX1xxx lexer, SYN2xxx compiler, ASM3xxx assembler, IO4xxx, PRJ5xxx),
// a message, the primary span and optional notes.
//
// Phases emit through a Reporter; BagReporter collects into a Bag, which
// supports limits, sorting and deduplication. Rendering lives in
// internal/diagfmt.
package diag
