package compiler

import (
	"escript/internal/bytecode"
	"escript/internal/token"
)

// Precedence levels, lowest first.
type prec uint8

const (
	precNone prec = iota
	precAssignment
	precOr         // || or
	precAnd        // && and
	precBitOr      // |
	precBitXor     // ^
	precBitAnd     // &
	precEquality   // == !=
	precComparison // < <= > >=
	precIn         // in is
	precShift
	precTerm   // + -
	precFactor // * / %
	precUnary  // ! ~ -
	precCall
	precPrimary
)

// binaryPrec returns the precedence of k as an infix operator.
func binaryPrec(k token.Kind) prec {
	switch k {
	case token.OrOr, token.KwOr:
		return precOr
	case token.AndAnd, token.KwAnd:
		return precAnd
	case token.Pipe:
		return precBitOr
	case token.Caret:
		return precBitXor
	case token.Amp:
		return precBitAnd
	case token.EqEq, token.BangEq:
		return precEquality
	case token.Lt, token.LtEq, token.Gt, token.GtEq:
		return precComparison
	case token.KwIn, token.KwIs:
		return precIn
	case token.Plus, token.Minus:
		return precTerm
	case token.Star, token.Slash, token.Percent:
		return precFactor
	}
	return precNone
}

// binaryOp maps an infix operator to its opcode. swap is set for '>' and
// '>=', which compile as '<' and '<=' with the operands exchanged.
func binaryOp(k token.Kind) (op bytecode.Opcode, swap, ok bool) {
	switch k {
	case token.Plus:
		return bytecode.OpAdd, false, true
	case token.Minus:
		return bytecode.OpSub, false, true
	case token.Star:
		return bytecode.OpMul, false, true
	case token.Slash:
		return bytecode.OpDiv, false, true
	case token.Percent:
		return bytecode.OpMod, false, true
	case token.Amp:
		return bytecode.OpBand, false, true
	case token.Pipe:
		return bytecode.OpBor, false, true
	case token.Caret:
		return bytecode.OpBxor, false, true
	case token.AndAnd, token.KwAnd:
		return bytecode.OpLand, false, true
	case token.OrOr, token.KwOr:
		return bytecode.OpLor, false, true
	case token.EqEq:
		return bytecode.OpEq, false, true
	case token.BangEq:
		return bytecode.OpNe, false, true
	case token.Lt:
		return bytecode.OpLt, false, true
	case token.LtEq:
		return bytecode.OpLe, false, true
	case token.Gt:
		return bytecode.OpLt, true, true
	case token.GtEq:
		return bytecode.OpLe, true, true
	}
	return bytecode.OpInvalid, false, false
}

func unaryOp(k token.Kind) (bytecode.Opcode, bool) {
	switch k {
	case token.Minus:
		return bytecode.OpNeg, true
	case token.Bang:
		return bytecode.OpLnot, true
	case token.Tilde:
		return bytecode.OpBnot, true
	}
	return bytecode.OpInvalid, false
}
