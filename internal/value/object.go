package value

import "fmt"

// Object is a refcounted heap payload shared by every Value that references it.
//
// A refcount of 0 on a freshly constructed object means "uniquely owned, not yet
// shared": Copy transfers such an object instead of cloning it.
type Object interface {
	header() *Header
	clone() Object
	release()
}

// Header is embedded at the start of every heap object.
type Header struct {
	refs int32
}

func (h *Header) header() *Header { return h }

// Refs returns the current reference count.
func (h *Header) Refs() int32 { return h.refs }

// Refs returns the reference count of the object held by v, or 0 for inline values.
func Refs(v Value) int32 {
	if v.obj == nil {
		return 0
	}
	return v.obj.header().refs
}

// Copy assigns src to dst following the ownership rules:
// dst is released first when it holds a heap value; inline payloads are copied;
// an unshared object (refcount 0) is transferred and its refcount becomes 1;
// a shared object is deep-copied into a fresh object owned by dst.
func Copy(dst, src *Value) {
	if dst == src {
		return
	}
	if dst.IsHeap() {
		Destroy(dst)
	}
	if !src.IsHeap() {
		dst.tid = src.tid
		dst.bits = src.bits
		dst.obj = nil
		return
	}
	if src.obj == nil {
		*dst = Value{}
		return
	}
	h := src.obj.header()
	if h.refs == 0 {
		h.refs = 1
		*dst = Value{tid: src.tid, obj: src.obj}
		return
	}
	c := src.obj.clone()
	c.header().refs = 1
	*dst = Value{tid: src.tid, obj: c}
}

// Destroy releases v. Inline values reset to nil. Heap values drop one reference
// and the object is freed once no references remain. v is always nil afterwards.
func Destroy(v *Value) {
	if v.IsHeap() && v.obj != nil {
		h := v.obj.header()
		h.refs--
		if h.refs <= 0 {
			h.refs = 0
			v.obj.release()
		}
	}
	*v = Value{}
}

// Retain marks v's object as shared so later copies clone it.
func Retain(v Value) {
	if v.obj != nil {
		v.obj.header().refs++
	}
}

// Func is a function-pointer object. Index addresses the owning state's function table.
type Func struct {
	Header
	Index int
	Name  string
}

// NewFunc returns an unshared function pointer value.
func NewFunc(index int, name string) Value {
	return FromObject(TFuncPtr, &Func{Index: index, Name: name})
}

func (f *Func) clone() Object { return &Func{Index: f.Index, Name: f.Name} }

func (f *Func) release() {}

func (f *Func) String() string { return fmt.Sprintf("func#%d(%s)", f.Index, f.Name) }
