package asm

import (
	"reflect"
	"testing"
)

func TestSplitLinesOffsets(t *testing.T) {
	src := "main: ; entry\n  mov r0, \"a b\"\n\n  ret 1"
	got := splitLines([]byte(src))
	want := []line{
		{fields: []field{{"main:", 0, 5}}},
		{fields: []field{{"mov", 16, 19}, {"r0", 20, 22}, {`"a b"`, 24, 29}}},
		{fields: []field{{"ret", 33, 36}, {"1", 37, 38}}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("splitLines = %+v\nwant %+v", got, want)
	}
}
