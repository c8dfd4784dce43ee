package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

const maxSeedBytes = 64 << 10

// addCorpusSeeds adds every testdata file with one of exts, plus a few
// hand-written inputs.
func addCorpusSeeds(f *testing.F, exts ...string) {
	root := filepath.Join("..", "..", "testdata")
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return nil
		}
		for _, ext := range exts {
			if filepath.Ext(path) != ext {
				continue
			}
			// #nosec G304 -- path comes from repository testdata walk
			if src, err := os.ReadFile(path); err == nil {
				f.Add(clampSeed(src))
			}
		}
		return nil
	})
	f.Add([]byte{})
	f.Add([]byte("func main()\n  return 0\n"))
	f.Add([]byte("main:\n    movi r0, 1\n    ret 1\n"))
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		return append([]byte(nil), input[:maxFuzzInput]...)
	}
	return append([]byte(nil), input...)
}
