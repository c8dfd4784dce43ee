package image

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"escript/internal/compiler"
	"escript/internal/source"
	"escript/internal/vm"
)

const program = `func sq(x)
  return x * x

func main()
  var s = "hi"
  var f = 25
  var b = true
  var n = nil
  var g = sq
  return sq(7)
`

func compiled(t *testing.T) *vm.State {
	t.Helper()
	st := vm.New(vm.Options{})
	fs := source.NewFileSet()
	id := fs.AddVirtual("img.es", []byte(program))
	if res := compiler.CompileFile(st, fs.Get(id), compiler.Options{}); !res.OK() {
		t.Fatalf("compile failed with %d errors", res.Errors)
	}
	// script literals are integers only
	st.AddFloat(2.5)
	return st
}

func callMain(t *testing.T, st *vm.State) int64 {
	t.Helper()
	n, err := st.Call("main")
	if err != nil {
		t.Fatalf("main: %v", err)
	}
	return st.Results(n)[0].AsInt()
}

func TestEncodeRestore(t *testing.T) {
	st := compiled(t)
	defer st.Close()
	img, err := Capture(st)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	var buf bytes.Buffer
	if err := img.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(img, back) {
		t.Fatalf("decoded image differs:\n%+v\n%+v", img, back)
	}

	fresh := vm.New(vm.Options{})
	defer fresh.Close()
	if err := back.Restore(fresh); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	again, err := Capture(fresh)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if !reflect.DeepEqual(img, again) {
		t.Fatalf("restored state differs:\n%+v\n%+v", img, again)
	}
	if got, want := callMain(t, fresh), callMain(t, st); got != want || got != 49 {
		t.Fatalf("main = %d (original %d), want 49", got, want)
	}
}

func TestFileRoundTrip(t *testing.T) {
	st := compiled(t)
	defer st.Close()
	path := filepath.Join(t.TempDir(), "out", "prog.esi")
	if err := WriteFile(path, st); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	fresh := vm.New(vm.Options{})
	defer fresh.Close()
	if err := ReadFile(path, fresh); err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got := callMain(t, fresh); got != 49 {
		t.Fatalf("main = %d, want 49", got)
	}
	if err := ReadFile(path, fresh); !errors.Is(err, ErrNotEmpty) {
		t.Fatalf("second load: %v, want ErrNotEmpty", err)
	}
}

func TestRestoreRejects(t *testing.T) {
	valid := func() *Image {
		return &Image{
			Magic:     magic,
			Schema:    Schema,
			Consts:    []Const{{Tid: 1, Int: 5}},
			Functions: []Function{{Name: "main", Chunk: 0, Offset: 0, Size: 1}},
			Chunks:    [][]uint32{{0x50000000}},
		}
	}
	tests := []struct {
		name   string
		mutate func(*Image)
	}{
		{"magic", func(img *Image) { img.Magic = "nope" }},
		{"schema", func(img *Image) { img.Schema = Schema + 1 }},
		{"opcode", func(img *Image) { img.Chunks[0][0] = 0xFC000000 }},
		{"function bounds", func(img *Image) { img.Functions[0].Size = 2 }},
		{"function chunk", func(img *Image) { img.Functions[0].Chunk = 3 }},
		{"duplicate function", func(img *Image) { img.Functions = append(img.Functions, img.Functions[0]) }},
		{"constant tag", func(img *Image) { img.Consts[0].Tid = 200 }},
		{"function pointer", func(img *Image) { img.Consts = append(img.Consts, Const{Tid: 5, Int: 9}) }},
		{"duplicate constant", func(img *Image) { img.Consts = append(img.Consts, img.Consts[0]) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := valid()
			tt.mutate(img)
			st := vm.New(vm.Options{})
			defer st.Close()
			if err := img.Restore(st); err == nil {
				t.Fatalf("Restore accepted a bad image")
			}
			if st.NumConsts() != 0 || st.NumFunctions() != 0 || len(st.Chunks()) != 0 {
				t.Fatalf("failed Restore left state behind")
			}
		})
	}

	st := vm.New(vm.Options{})
	defer st.Close()
	if err := valid().Restore(st); err != nil {
		t.Fatalf("valid image: %v", err)
	}
}
