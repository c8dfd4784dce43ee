package value

import (
	"fmt"
	"math"
	"strconv"
)

// Tid is the runtime type tag of a Value.
type Tid uint8

const (
	TNil Tid = iota
	TInt
	TFloat
	TBool
	TStruct
	TFuncPtr
	TString
	TArray
	TMap
)

// FirstHeap is the first tag whose payload lives in an Object.
const FirstHeap = TStruct

// String returns the lowercase tag name.
func (t Tid) String() string {
	switch t {
	case TNil:
		return "nil"
	case TInt:
		return "int"
	case TFloat:
		return "float"
	case TBool:
		return "bool"
	case TStruct:
		return "struct"
	case TFuncPtr:
		return "funcptr"
	case TString:
		return "string"
	case TArray:
		return "array"
	case TMap:
		return "map"
	default:
		return fmt.Sprintf("tid(%d)", uint8(t))
	}
}

// IsHeap reports whether values with this tag reference an Object.
func (t Tid) IsHeap() bool { return t >= FirstHeap }

// Value is a tagged 8-byte payload or a reference to a heap Object.
//
// Invariant: tid < FirstHeap implies obj == nil. tid >= FirstHeap implies obj != nil,
// except for the zero Value, which is nil.
type Value struct {
	tid  Tid
	bits uint64
	obj  Object
}

// Nil returns the nil value.
func Nil() Value { return Value{} }

// Int wraps an int64.
func Int(i int64) Value { return Value{tid: TInt, bits: uint64(i)} }

// Float wraps a float64.
func Float(f float64) Value { return Value{tid: TFloat, bits: math.Float64bits(f)} }

// Bool wraps a bool.
func Bool(b bool) Value {
	v := Value{tid: TBool}
	if b {
		v.bits = 1
	}
	return v
}

// FromObject wraps obj under the given heap tag.
func FromObject(tid Tid, obj Object) Value {
	if !tid.IsHeap() {
		panic(fmt.Errorf("value: %s is not a heap type", tid))
	}
	return Value{tid: tid, obj: obj}
}

func (v Value) Tid() Tid         { return v.tid }
func (v Value) IsHeap() bool     { return v.tid.IsHeap() }
func (v Value) IsNil() bool      { return v.tid == TNil }
func (v Value) Bits() uint64     { return v.bits }
func (v Value) Object() Object   { return v.obj }
func (v Value) AsInt() int64     { return int64(v.bits) }
func (v Value) AsFloat() float64 { return math.Float64frombits(v.bits) }
func (v Value) AsBool() bool     { return v.bits != 0 }

// AsString returns the string object, if v holds one.
func (v Value) AsString() (*String, bool) {
	if v.tid != TString || v.obj == nil {
		return nil, false
	}
	s, ok := v.obj.(*String)
	return s, ok
}

// AsFunc returns the function-pointer object, if v holds one.
func (v Value) AsFunc() (*Func, bool) {
	if v.tid != TFuncPtr || v.obj == nil {
		return nil, false
	}
	f, ok := v.obj.(*Func)
	return f, ok
}

// String renders the value the way the runtime prints results.
func (v Value) String() string {
	switch v.tid {
	case TNil:
		return "nil"
	case TInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case TFloat:
		return strconv.FormatFloat(v.AsFloat(), 'f', 6, 64)
	case TBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case TString:
		if s, ok := v.AsString(); ok {
			return s.String()
		}
	case TFuncPtr:
		if f, ok := v.AsFunc(); ok {
			return "func:" + f.Name
		}
	}
	return "ERR"
}

// Equal compares two values. Tags must match; strings compare by content.
func Equal(a, b Value) bool {
	if a.tid != b.tid {
		return false
	}
	switch a.tid {
	case TNil:
		return true
	case TInt, TFloat, TBool:
		return a.bits == b.bits
	case TString:
		as, aok := a.AsString()
		bs, bok := b.AsString()
		if !aok || !bok {
			return aok == bok
		}
		return as.Compare(bs) == 0
	case TFuncPtr:
		af, aok := a.AsFunc()
		bf, bok := b.AsFunc()
		if !aok || !bok {
			return aok == bok
		}
		return af.Index == bf.Index
	default:
		return a.obj == b.obj
	}
}
