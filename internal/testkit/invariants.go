// Package testkit holds invariant checks shared by tests and fuzz targets.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"escript/internal/source"
	"escript/internal/token"
)

// CheckTokenInvariants checks a token stream produced for sf:
// 1) it ends with the only EOF token
// 2) every span lies within sf and points at it
// 3) spans start in source order
// 4) identifier text is the source slice under the span
func CheckTokenInvariants(toks []token.Token, sf *source.File) error {
	if sf == nil {
		return fmt.Errorf("nil file")
	}
	if len(toks) == 0 || toks[len(toks)-1].Kind != token.EOF {
		return fmt.Errorf("token stream does not end with EOF")
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}

	var prev uint32
	for i, tok := range toks {
		sp := tok.Span
		if tok.Kind == token.EOF && i != len(toks)-1 {
			return fmt.Errorf("EOF at index %d of %d", i, len(toks))
		}
		if sp.File != sf.ID {
			return fmt.Errorf("token %d (%s) span file mismatch: got=%d want=%d", i, tok.Kind, sp.File, sf.ID)
		}
		if sp.End < sp.Start || sp.End > lenContent {
			return fmt.Errorf("token %d (%s) span %v outside content of %d bytes", i, tok.Kind, sp, lenContent)
		}
		if sp.Start < prev {
			return fmt.Errorf("token %d (%s) starts at %d before its predecessor at %d", i, tok.Kind, sp.Start, prev)
		}
		prev = sp.Start
		if tok.Kind == token.Ident {
			if got := string(sf.Content[sp.Start:sp.End]); got != tok.Text {
				return fmt.Errorf("token %d identifier text %q, source has %q", i, tok.Text, got)
			}
		}
	}
	return nil
}
