package asm

import (
	"fmt"

	"fortio.org/safecast"
)

// field is one whitespace- or comma-separated word of a source line.
// Quoted strings are kept as a single field, quotes included.
type field struct {
	text       string
	start, end uint32 // byte offsets into the file
}

func newField(content []byte, start, end int) field {
	s, err := safecast.Conv[uint32](start)
	if err != nil {
		panic(fmt.Errorf("field offset overflow: %w", err))
	}
	e, err := safecast.Conv[uint32](end)
	if err != nil {
		panic(fmt.Errorf("field offset overflow: %w", err))
	}
	return field{text: string(content[start:end]), start: s, end: e}
}

type line struct {
	fields []field
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\v' || b == '\f'
}

// splitLines breaks content into lines of fields, dropping ';' comments.
// Lines without fields are omitted.
func splitLines(content []byte) []line {
	var out []line
	i := 0
	for i <= len(content) {
		var cur line
		for i < len(content) && content[i] != '\n' {
			b := content[i]
			switch {
			case isSpace(b) || b == ',':
				i++
			case b == ';':
				for i < len(content) && content[i] != '\n' {
					i++
				}
			case b == '"':
				start := i
				i++
				for i < len(content) && content[i] != '\n' && content[i] != '"' {
					if content[i] == '\\' && i+1 < len(content) && content[i+1] != '\n' {
						i++
					}
					i++
				}
				if i < len(content) && content[i] == '"' {
					i++
				}
				cur.fields = append(cur.fields, newField(content, start, i))
			default:
				start := i
				for i < len(content) {
					c := content[i]
					if c == '\n' || c == ',' || c == ';' || c == '"' || isSpace(c) {
						break
					}
					i++
				}
				cur.fields = append(cur.fields, newField(content, start, i))
			}
		}
		if len(cur.fields) > 0 {
			out = append(out, cur)
		}
		i++
	}
	return out
}
