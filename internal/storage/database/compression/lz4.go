package compression

import (
	"fmt"

	"github.com/pierrec/lz4"
)

const (
	tagRaw byte = 0
	tagLZ4 byte = 1
)

// NoCompressor stores every value raw.
type NoCompressor struct{}

func (NoCompressor) Name() string { return "none" }

func (NoCompressor) Tag() byte { return tagRaw }

func (NoCompressor) Compress(data []byte) ([]byte, bool, error) {
	return nil, false, nil
}

func (NoCompressor) Decompress(data []byte, size int) ([]byte, error) {
	if len(data) != size {
		return nil, fmt.Errorf("%w: raw value is %d bytes, frame says %d", ErrCorrupt, len(data), size)
	}
	out := make([]byte, size)
	copy(out, data)
	return out, nil
}

// LZ4Compressor compresses values as single LZ4 blocks.
type LZ4Compressor struct{}

func (LZ4Compressor) Name() string { return "lz4" }

func (LZ4Compressor) Tag() byte { return tagLZ4 }

func (LZ4Compressor) Compress(data []byte) ([]byte, bool, error) {
	if len(data) == 0 {
		return nil, false, nil
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, false, fmt.Errorf("lz4 compression failed: %w", err)
	}
	// CompressBlock reports 0 for incompressible input
	if n == 0 || n >= len(data) {
		return nil, false, nil
	}
	return compressed[:n], true, nil
}

// Decompress knows the exact output size from the frame, so one buffer is
// enough.
func (LZ4Compressor) Decompress(data []byte, size int) ([]byte, error) {
	out := make([]byte, size)
	n, err := lz4.UncompressBlock(data, out)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompression failed: %w", err)
	}
	if n != size {
		return nil, fmt.Errorf("%w: lz4 block expands to %d bytes, frame says %d", ErrCorrupt, n, size)
	}
	return out, nil
}
