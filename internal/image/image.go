// Package image saves the compiled contents of a vm.State (constant pool,
// function table, chunks) as a msgpack document and loads it back.
package image

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"escript/internal/bytecode"
	"escript/internal/value"
	"escript/internal/vm"
)

// Schema is the image format version. Bump it whenever Image changes shape.
const Schema uint16 = 1

const magic = "escript-image"

var (
	// ErrNotEmpty is returned when loading into a State that already holds code.
	ErrNotEmpty = errors.New("image: state is not empty")
	// ErrSchema is returned for images written by another format version.
	ErrSchema = errors.New("image: unsupported schema")
)

// Const is one constant-pool entry.
type Const struct {
	Tid   uint8
	Int   int64   `msgpack:",omitempty"`
	Float float64 `msgpack:",omitempty"`
	Str   string  `msgpack:",omitempty"`
}

// Function mirrors vm.Function.
type Function struct {
	Name    string
	Params  uint32
	Returns uint32
	Chunk   uint32
	Offset  uint32
	Size    uint32
}

// Image is the serialized form of a State.
type Image struct {
	Magic     string
	Schema    uint16
	Consts    []Const
	Functions []Function
	Chunks    [][]uint32
}

// Capture snapshots the code held by st.
func Capture(st *vm.State) (*Image, error) {
	img := &Image{Magic: magic, Schema: Schema}
	for k := 0; k < st.NumConsts(); k++ {
		c, err := encodeConst(st.Const(k))
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", k, err)
		}
		img.Consts = append(img.Consts, c)
	}
	for _, fn := range st.Functions() {
		f, err := encodeFunction(fn)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", fn.Name, err)
		}
		img.Functions = append(img.Functions, f)
	}
	for _, ch := range st.Chunks() {
		words := make([]uint32, len(ch.Code))
		for i, ins := range ch.Code {
			words[i] = uint32(ins)
		}
		img.Chunks = append(img.Chunks, words)
	}
	return img, nil
}

func encodeConst(v value.Value) (Const, error) {
	c := Const{Tid: uint8(v.Tid())}
	switch v.Tid() {
	case value.TNil:
	case value.TInt:
		c.Int = v.AsInt()
	case value.TBool:
		if v.AsBool() {
			c.Int = 1
		}
	case value.TFloat:
		c.Float = v.AsFloat()
	case value.TString:
		s, _ := v.AsString()
		c.Str = s.String()
	case value.TFuncPtr:
		fn, _ := v.AsFunc()
		c.Int = int64(fn.Index)
	default:
		return c, fmt.Errorf("cannot serialize %s", v.Tid())
	}
	return c, nil
}

func encodeFunction(fn *vm.Function) (Function, error) {
	var f Function
	var err error
	f.Name = fn.Name
	if f.Params, err = safecast.Conv[uint32](fn.Params); err != nil {
		return f, err
	}
	if f.Returns, err = safecast.Conv[uint32](fn.Returns); err != nil {
		return f, err
	}
	if f.Chunk, err = safecast.Conv[uint32](fn.Chunk); err != nil {
		return f, err
	}
	if f.Offset, err = safecast.Conv[uint32](fn.Offset); err != nil {
		return f, err
	}
	if f.Size, err = safecast.Conv[uint32](fn.Size); err != nil {
		return f, err
	}
	return f, nil
}

// Restore loads img into st, which must not hold any functions, constants or
// chunks yet. On error st is left empty.
func (img *Image) Restore(st *vm.State) (err error) {
	if st.NumConsts() != 0 || st.NumFunctions() != 0 || len(st.Chunks()) != 0 {
		return ErrNotEmpty
	}
	if img.Magic != magic {
		return fmt.Errorf("image: bad magic %q", img.Magic)
	}
	if img.Schema != Schema {
		return fmt.Errorf("%w: %d (want %d)", ErrSchema, img.Schema, Schema)
	}
	cp := st.Mark()
	defer func() {
		if err != nil {
			st.Rollback(cp)
		}
	}()

	for n, ch := range img.Chunks {
		code := make([]bytecode.Instruction, len(ch))
		for i, w := range ch {
			ins := bytecode.Instruction(w)
			if !ins.Op().Valid() {
				return fmt.Errorf("image: chunk %d: invalid opcode at %d", n, i)
			}
			code[i] = ins
		}
		st.AddChunk(code)
	}
	for _, f := range img.Functions {
		fn := vm.Function{
			Name:    f.Name,
			Params:  int(f.Params),
			Returns: int(f.Returns),
			Chunk:   int(f.Chunk),
			Offset:  int(f.Offset),
			Size:    int(f.Size),
		}
		if fn.Chunk >= len(img.Chunks) || fn.Offset+fn.Size > len(img.Chunks[fn.Chunk]) {
			return fmt.Errorf("image: function %s lies outside its chunk", fn.Name)
		}
		if _, err := st.DeclareFunction(fn); err != nil {
			return err
		}
	}
	for k, c := range img.Consts {
		got, err := restoreConst(st, c)
		if err != nil {
			return fmt.Errorf("image: constant %d: %w", k, err)
		}
		if got != k {
			return fmt.Errorf("image: constant %d interned at %d", k, got)
		}
	}
	return nil
}

func restoreConst(st *vm.State, c Const) (int, error) {
	switch value.Tid(c.Tid) {
	case value.TNil:
		return st.AddNil(), nil
	case value.TInt:
		return st.AddInt(c.Int), nil
	case value.TBool:
		return st.AddBool(c.Int != 0), nil
	case value.TFloat:
		return st.AddFloat(c.Float), nil
	case value.TString:
		return st.AddString(c.Str), nil
	case value.TFuncPtr:
		idx, err := safecast.Conv[int](c.Int)
		if err != nil {
			return -1, err
		}
		if idx < 0 || idx >= st.NumFunctions() {
			return -1, fmt.Errorf("function index %d out of range", idx)
		}
		return st.AddFunc(idx), nil
	}
	return -1, fmt.Errorf("unknown type tag %d", c.Tid)
}

// Encode writes img as msgpack.
func (img *Image) Encode(w io.Writer) error {
	return msgpack.NewEncoder(w).Encode(img)
}

// Decode reads an image written by Encode.
func Decode(r io.Reader) (*Image, error) {
	img := &Image{}
	if err := msgpack.NewDecoder(r).Decode(img); err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	return img, nil
}

// WriteFile captures st and writes it to path, replacing any existing file atomically.
func WriteFile(path string, st *vm.State) error {
	img, err := Capture(st)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := img.Encode(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// ReadFile loads the image at path into st.
func ReadFile(path string, st *vm.State) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	img, err := Decode(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := img.Restore(st); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
