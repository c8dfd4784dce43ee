package value_test

import (
	"testing"

	"escript/internal/value"
)

func TestCopyTransfersUnsharedString(t *testing.T) {
	src := value.NewString("hello")
	if got := value.Refs(src); got != 0 {
		t.Fatalf("fresh string refcount = %d, want 0", got)
	}
	srcStr, _ := src.AsString()

	var dst value.Value
	value.Copy(&dst, &src)

	dstStr, ok := dst.AsString()
	if !ok {
		t.Fatalf("dst is %s, want string", dst.Tid())
	}
	if dstStr != srcStr {
		t.Fatalf("copy of unshared string allocated a new object")
	}
	if &dstStr.Bytes()[0] != &srcStr.Bytes()[0] {
		t.Fatalf("copy of unshared string did not transfer the buffer")
	}
	if got := value.Refs(dst); got != 1 {
		t.Fatalf("refcount after transfer = %d, want 1", got)
	}
}

func TestCopyClonesSharedString(t *testing.T) {
	src := value.NewString("shared")
	var owner value.Value
	value.Copy(&owner, &src)

	var dst value.Value
	value.Copy(&dst, &owner)

	a, _ := owner.AsString()
	b, _ := dst.AsString()
	if a == b {
		t.Fatalf("copy of shared string reused the object")
	}
	if a.String() != b.String() {
		t.Fatalf("contents differ: %q vs %q", a, b)
	}
	b.Append([]byte("!"))
	if a.String() != "shared" {
		t.Fatalf("clone is not independent: original became %q", a)
	}
	if value.Refs(dst) != 1 || value.Refs(owner) != 1 {
		t.Fatalf("refcounts = %d/%d, want 1/1", value.Refs(owner), value.Refs(dst))
	}
}

func TestCopyInline(t *testing.T) {
	src := value.Int(42)
	dst := value.NewString("old")
	value.Copy(&dst, &src)
	if dst.Tid() != value.TInt || dst.AsInt() != 42 {
		t.Fatalf("dst = %v (%s), want int 42", dst, dst.Tid())
	}
	if dst.Object() != nil {
		t.Fatalf("inline value kept an object")
	}
}

func TestDestroy(t *testing.T) {
	s := value.NewString("x")
	var a, b value.Value
	value.Copy(&a, &s)
	value.Retain(a)
	value.Copy(&b, &a)

	value.Destroy(&a)
	if !a.IsNil() {
		t.Fatalf("destroyed value is %s, want nil", a.Tid())
	}
	str, _ := s.AsString()
	if str.Refs() != 1 {
		t.Fatalf("refcount after one destroy = %d, want 1", str.Refs())
	}

	f := value.Float(1.5)
	value.Destroy(&f)
	if !f.IsNil() || f.Bits() != 0 {
		t.Fatalf("inline destroy left %v", f)
	}
	value.Destroy(&b)
	if !b.IsNil() {
		t.Fatalf("clone not nulled")
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b value.Value
		want bool
	}{
		{"ints", value.Int(3), value.Int(3), true},
		{"int vs float", value.Int(3), value.Float(3), false},
		{"floats", value.Float(2.5), value.Float(2.5), true},
		{"bools", value.Bool(true), value.Bool(false), false},
		{"nils", value.Nil(), value.Nil(), true},
		{"strings by content", value.NewString("ab"), value.NewString("ab"), true},
		{"different strings", value.NewString("ab"), value.NewString("abc"), false},
		{"funcs by index", value.NewFunc(1, "f"), value.NewFunc(1, "g"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := value.Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestValueString(t *testing.T) {
	tests := map[string]value.Value{
		"-7":       value.Int(-7),
		"1.500000": value.Float(1.5),
		"true":     value.Bool(true),
		"nil":      value.Nil(),
		"hi":       value.NewString("hi"),
		"func:m":   value.NewFunc(0, "m"),
	}
	for want, v := range tests {
		if got := v.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
