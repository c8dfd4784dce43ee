package diag

import (
	"strings"
	"testing"

	"escript/internal/source"
)

func TestBagLimitAndCounts(t *testing.T) {
	b := NewBag(2)
	r := BagReporter{Bag: b}
	r.Report(LexUnknownChar, SevError, source.Span{}, "one", nil)
	r.Report(SynUnsupported, SevWarning, source.Span{}, "two", nil)
	r.Report(SynArity, SevError, source.Span{}, "three", nil)
	if b.Len() != 2 || b.Dropped() != 1 {
		t.Fatalf("len=%d dropped=%d, want 2/1", b.Len(), b.Dropped())
	}
	if b.ErrorCount() != 1 || !b.HasWarnings() {
		t.Fatalf("ErrorCount=%d HasWarnings=%v", b.ErrorCount(), b.HasWarnings())
	}
	unlimited := NewBag(0)
	for i := 0; i < 100; i++ {
		unlimited.Add(NewError(SynArity, source.Span{}, "x"))
	}
	if unlimited.Len() != 100 {
		t.Fatalf("unlimited bag kept %d", unlimited.Len())
	}
}

func TestBagSortDedup(t *testing.T) {
	b := NewBag(0)
	b.Add(NewError(SynArity, source.Span{Start: 5, End: 6}, "later"))
	b.Add(NewError(LexUnknownChar, source.Span{Start: 1, End: 2}, "first"))
	b.Add(NewError(LexUnknownChar, source.Span{Start: 1, End: 2}, "dup"))
	b.Sort()
	b.Dedup()
	items := b.Items()
	if len(items) != 2 || items[0].Message != "first" || items[1].Message != "later" {
		t.Fatalf("items = %+v", items)
	}
}

func TestDedupReporter(t *testing.T) {
	b := NewBag(0)
	r := NewDedupReporter(BagReporter{Bag: b})
	for i := 0; i < 3; i++ {
		ReportError(r, AsmBadOperand, source.Span{Start: 3, End: 4}, "bad operand").Emit()
	}
	if b.Len() != 1 {
		t.Fatalf("dedup kept %d diagnostics", b.Len())
	}
}

func TestCodeID(t *testing.T) {
	tests := map[Code]string{
		LexUnknownChar:   "LEX1001",
		SynArity:         "SYN2009",
		AsmCountMismatch: "ASM3007",
		IOLoadFileError:  "IO4001",
		ProjMissingEntry: "PRJ5002",
		UnknownCode:      "E0000",
	}
	for c, want := range tests {
		if got := c.ID(); got != want {
			t.Errorf("%d.ID() = %q, want %q", c, got, want)
		}
	}
}

func TestFormatShort(t *testing.T) {
	fs := newTestFileSet(t)
	id := fs.AddVirtual("m.es", []byte("func main()\n  x = @\n"))
	diags := []Diagnostic{
		NewError(LexUnknownChar, source.Span{File: id, Start: 18, End: 19}, "unknown character '@'").
			WithNote(source.Span{File: id, Start: 0, End: 4}, "in function main"),
	}
	out := FormatShort(diags, fs, true)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "note LEX1001 ") || !strings.HasSuffix(lines[0], "m.es:1:1 in function main") {
		t.Errorf("note line = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "m.es:2:7 unknown character '@'") || !strings.HasPrefix(lines[1], "error LEX1001 ") {
		t.Errorf("error line = %q", lines[1])
	}
}

func newTestFileSet(t *testing.T) *source.FileSet {
	t.Helper()
	return source.NewFileSetWithBase(".")
}
