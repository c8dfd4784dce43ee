package value

import "bytes"

// String is a heap byte buffer with explicit size and capacity.
// The buffer keeps one trailing zero byte past Size.
type String struct {
	Header
	data []byte
}

// NewString allocates an unshared string value holding s.
func NewString(s string) Value {
	return FromObject(TString, newString([]byte(s)))
}

// NewStringBytes allocates an unshared string value holding a copy of b.
func NewStringBytes(b []byte) Value {
	return FromObject(TString, newString(b))
}

func newString(b []byte) *String {
	buf := make([]byte, len(b), len(b)+1)
	copy(buf, b)
	return &String{data: buf}
}

// Size is the number of bytes in the string.
func (s *String) Size() int { return len(s.data) }

// Capacity is the allocated buffer size, including the terminator slot.
func (s *String) Capacity() int { return cap(s.data) }

// Bytes exposes the backing buffer. Callers must not retain it past the object's life.
func (s *String) Bytes() []byte { return s.data }

func (s *String) String() string { return string(s.data) }

// Compare orders strings bytewise; a shorter prefix sorts first.
func (s *String) Compare(o *String) int {
	return bytes.Compare(s.data, o.data)
}

// Append grows the buffer in place.
func (s *String) Append(b []byte) {
	s.data = append(s.data, b...)
}

func (s *String) clone() Object { return newString(s.data) }

func (s *String) release() {
	s.data = nil
}
