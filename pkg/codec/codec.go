// Package codec adapts block compression libraries to the fixed
// compress/decompress contract used by spill segments.
package codec

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
)

var (
	// ErrUnknownCodec is returned when an unsupported compression codec is specified
	ErrUnknownCodec = errors.New("unknown compression codec")

	// ErrInvalidCompressedData is returned when compressed data cannot be decompressed
	ErrInvalidCompressedData = errors.New("invalid compressed data")
)

// Type identifies a compression codec
type Type uint32

const (
	// TypeNone stores blocks uncompressed
	TypeNone Type = iota
	// TypeSnappy uses snappy block compression
	TypeSnappy
	// TypeZstd uses zstd block compression
	TypeZstd
)

// String returns the codec name
func (t Type) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeSnappy:
		return "snappy"
	case TypeZstd:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint32(t))
	}
}

// ParseType resolves a codec name to its Type
func ParseType(name string) (Type, error) {
	switch name {
	case "none":
		return TypeNone, nil
	case "snappy":
		return TypeSnappy, nil
	case "zstd":
		return TypeZstd, nil
	default:
		return TypeNone, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// Compressor provides methods to compress and decompress segment blocks.
// The underlying codecs are not length-self-describing, so callers must
// retain the uncompressed length and supply it on decompression.
type Compressor struct {
	codec Type

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder

	// Mutex to protect encoder/decoder access
	mu sync.Mutex
}

// NewCompressor creates a new compressor for the given codec
func NewCompressor(codec Type) (*Compressor, error) {
	c := &Compressor{codec: codec}

	if codec == TypeZstd {
		zstdEncoder, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create ZSTD encoder: %w", err)
		}

		zstdDecoder, err := zstd.NewReader(nil)
		if err != nil {
			zstdEncoder.Close()
			return nil, fmt.Errorf("failed to create ZSTD decoder: %w", err)
		}

		c.zstdEncoder = zstdEncoder
		c.zstdDecoder = zstdDecoder
	}

	return c, nil
}

// Codec returns the codec this compressor applies
func (c *Compressor) Codec() Type {
	return c.codec
}

// Compress compresses a raw block
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.codec {
	case TypeNone:
		return data, nil

	case TypeSnappy:
		return snappy.Encode(nil, data), nil

	case TypeZstd:
		return c.zstdEncoder.EncodeAll(data, nil), nil

	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownCodec, c.codec)
	}
}

// Decompress decompresses a block. rawLen is the expected uncompressed
// length; a result of any other length indicates corruption.
func (c *Compressor) Decompress(data []byte, rawLen int) ([]byte, error) {
	if len(data) == 0 && rawLen == 0 {
		return data, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var result []byte
	var err error

	switch c.codec {
	case TypeNone:
		result = data

	case TypeSnappy:
		result, err = snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCompressedData, err)
		}

	case TypeZstd:
		result, err = c.zstdDecoder.DecodeAll(data, make([]byte, 0, rawLen))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCompressedData, err)
		}

	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownCodec, c.codec)
	}

	if len(result) != rawLen {
		return nil, fmt.Errorf("%w: decompressed to %d bytes, expected %d",
			ErrInvalidCompressedData, len(result), rawLen)
	}

	return result, nil
}

// Close releases resources used by the compressor
func (c *Compressor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.zstdEncoder != nil {
		c.zstdEncoder.Close()
		c.zstdEncoder = nil
	}

	if c.zstdDecoder != nil {
		c.zstdDecoder.Close()
		c.zstdDecoder = nil
	}

	return nil
}
