package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compressor compresses and decompresses chunk payload blocks.
// Implementations must be safe for concurrent use.
type Compressor interface {
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte) ([]byte, error)
	Name() string
}

// DefaultCompressor is the compressor used when none is configured.
// LZ4 favors decompression speed, which dominates when evicted chunks are
// rematerialized on the insertion path.
var DefaultCompressor Compressor = LZ4{}

// ByName returns a built-in compressor by its stable name.
//
// Persisted chunk blobs store the compressor name in their header, so a
// reader never has to guess how a blob was written.
func ByName(name string) (Compressor, bool) {
	switch name {
	case "none":
		return None{}, true
	case "lz4":
		return LZ4{}, true
	case "zstd":
		return Zstd{}, true
	default:
		return nil, false
	}
}

// None passes payloads through uncompressed.
type None struct{}

// Compress implements Compressor.
func (None) Compress(src []byte) ([]byte, error) { return src, nil }

// Decompress implements Compressor.
func (None) Decompress(src []byte) ([]byte, error) { return src, nil }

// Name implements Compressor.
func (None) Name() string { return "none" }

// LZ4 implements Compressor using the LZ4 frame format.
type LZ4 struct{}

// Compress implements Compressor.
func (LZ4) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress implements Compressor.
func (LZ4) Decompress(src []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(src)))
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	return out, nil
}

// Name implements Compressor.
func (LZ4) Name() string { return "lz4" }

// Zstd implements Compressor using zstd at the default level.
type Zstd struct{}

// Shared coders; both are safe for concurrent use via EncodeAll/DecodeAll.
var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// Compress implements Compressor.
func (Zstd) Compress(src []byte) ([]byte, error) {
	return zstdEncoder.EncodeAll(src, nil), nil
}

// Decompress implements Compressor.
func (Zstd) Decompress(src []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}

// Name implements Compressor.
func (Zstd) Name() string { return "zstd" }
