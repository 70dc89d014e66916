// Package jsoncodec is the single JSON implementation used for envelopes and
// admin responses.
package jsoncodec

import (
	"io"

	"github.com/bytedance/sonic"
)

// wire keeps encoding/json compatible output (escaped HTML, sorted map keys)
// so consumers written against the standard library decode it unchanged.
var wire = sonic.Config{
	EscapeHTML:       true,
	SortMapKeys:      true,
	CompactMarshaler: true,
	CopyString:       true,
	ValidateString:   true,
}.Froze()

func Marshal(v any) ([]byte, error) {
	return wire.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return wire.Unmarshal(data, v)
}

// Valid reports whether data is syntactically valid JSON.
func Valid(data []byte) bool {
	return wire.Valid(data)
}

func Encode(w io.Writer, v any) error {
	return wire.NewEncoder(w).Encode(v)
}

func Decode(r io.Reader, v any) error {
	return wire.NewDecoder(r).Decode(v)
}
