package observ

import (
	"strings"
	"sync"
	"testing"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	lex := tm.Begin("lex")
	tm.End(lex, "2 files")
	tm.End(lex, "again")
	open := tm.Begin("compile")
	tm.Measure("execute", func() string { return "main" })

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("phases = %+v, want lex and execute", r.Phases)
	}
	if r.Phases[0].Name != "lex" || r.Phases[0].Note != "2 files" {
		t.Fatalf("lex = %+v", r.Phases[0])
	}
	tm.End(open, "")
	sum := tm.Summary()
	for _, want := range []string{"lex", "compile", "execute", "total"} {
		if !strings.Contains(sum, want) {
			t.Fatalf("summary missing %q:\n%s", want, sum)
		}
	}
}

func TestTimerConcurrent(t *testing.T) {
	tm := NewTimer()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.End(tm.Begin("unit"), "")
		}()
	}
	wg.Wait()
	if n := len(tm.Report().Phases); n != 16 {
		t.Fatalf("recorded %d phases, want 16", n)
	}
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	tm.End(tm.Begin("x"), "")
	if r := tm.Report(); len(r.Phases) != 0 {
		t.Fatalf("nil timer reported %+v", r)
	}
}
