// Package codec centralizes the encodings used for persisted state: the
// value codec for small metadata documents and the block compressors used
// for chunk payloads.
//
// Codec selection is a breaking-change boundary: bytes written by one codec
// may not decode under another, so persisted blobs are self-describing
// (they carry the codec name).
package codec

import "encoding/json"

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is the codec used when none is configured.
var Default Codec = JSON{}

// JSON implements Codec using encoding/json.
type JSON struct{}

// Marshal implements Codec.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal implements Codec.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name implements Codec.
func (JSON) Name() string { return "json" }
