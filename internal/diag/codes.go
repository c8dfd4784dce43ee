package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Lexical
	LexInfo               Code = 1000
	LexUnknownChar        Code = 1001
	LexUnterminatedString Code = 1002
	LexBadNumber          Code = 1003

	// Compiler
	SynInfo             Code = 2000
	SynUnexpectedToken  Code = 2001
	SynExpectIdentifier Code = 2002
	SynExpectExpression Code = 2003
	SynExpectRParen     Code = 2004
	SynExpectNewline    Code = 2005
	SynBadIndent        Code = 2006
	SynUndefinedName    Code = 2007
	SynRedeclared       Code = 2008
	SynArity            Code = 2009
	SynArgCount         Code = 2010
	SynReturnCount      Code = 2011
	SynNotCallable      Code = 2012
	SynUnsupported      Code = 2013
	SynTooManyRegisters Code = 2014
	SynTooManyConsts    Code = 2015
	SynDuplicateFunc    Code = 2016
	SynExpectFunc       Code = 2017
	SynBadLiteral       Code = 2018
	SynJumpTooFar       Code = 2019

	// Assembler
	AsmInfo            Code = 3000
	AsmUnknownMnemonic Code = 3001
	AsmDuplicateLabel  Code = 3002
	AsmUndefinedLabel  Code = 3003
	AsmBadOperand      Code = 3004
	AsmOperandCount    Code = 3005
	AsmOperandRange    Code = 3006
	AsmCountMismatch   Code = 3007
	AsmBadLabel        Code = 3008

	// I/O
	IOLoadFileError Code = 4001
	IOCacheError    Code = 4002
	IOImageError    Code = 4003

	// Project
	ProjInfo            Code = 5000
	ProjManifestInvalid Code = 5001
	ProjMissingEntry    Code = 5002
	ProjUnknownExt      Code = 5003
)

var codeDescription = map[Code]string{
	UnknownCode:           "Unknown error",
	LexInfo:               "Lexical information",
	LexUnknownChar:        "Unknown character",
	LexUnterminatedString: "Unterminated string literal",
	LexBadNumber:          "Malformed number",

	SynInfo:             "Compiler information",
	SynUnexpectedToken:  "Unexpected token",
	SynExpectIdentifier: "Expected identifier",
	SynExpectExpression: "Expected expression",
	SynExpectRParen:     "Expected ')'",
	SynExpectNewline:    "Expected end of line",
	SynBadIndent:        "Inconsistent indentation",
	SynUndefinedName:    "Undefined name",
	SynRedeclared:       "Name redeclared in this block",
	SynArity:            "Assignment count mismatch",
	SynArgCount:         "Wrong number of arguments",
	SynReturnCount:      "Inconsistent return count",
	SynNotCallable:      "Name is not a function",
	SynUnsupported:      "Construct not yet supported",
	SynTooManyRegisters: "Too many registers",
	SynTooManyConsts:    "Constant pool overflow",
	SynDuplicateFunc:    "Function redeclared",
	SynExpectFunc:       "Expected function declaration",
	SynBadLiteral:       "Invalid literal",
	SynJumpTooFar:       "Jump offset out of range",

	AsmInfo:            "Assembler information",
	AsmUnknownMnemonic: "Unknown mnemonic",
	AsmDuplicateLabel:  "Duplicate label",
	AsmUndefinedLabel:  "Undefined label",
	AsmBadOperand:      "Malformed operand",
	AsmOperandCount:    "Wrong number of operands",
	AsmOperandRange:    "Operand out of range",
	AsmCountMismatch:   "Instruction count mismatch between passes",
	AsmBadLabel:        "Malformed label",

	IOLoadFileError: "I/O load file error",
	IOCacheError:    "Build cache error",
	IOImageError:    "Bytecode image error",

	ProjInfo:            "Project information",
	ProjManifestInvalid: "Invalid escript.toml",
	ProjMissingEntry:    "Entry function not found",
	ProjUnknownExt:      "Unknown source file extension",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("ASM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
