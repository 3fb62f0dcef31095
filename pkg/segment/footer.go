package segment

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/wordsort/wordsort/pkg/codec"
)

// Footer contains metadata for a segment file
type Footer struct {
	// Magic number for integrity checking
	Magic uint64
	// Version of the file format
	Version uint32
	// Codec the blocks were compressed with
	Codec codec.Type
	// Offset where the index region starts
	IndexOffset uint64
	// Size of the index region in bytes, including its checksum trailer
	IndexSize uint32
	// Number of blocks in the segment
	BlockCount uint32
	// Total number of word records
	RecordCount uint64
	// Checksum of all footer fields excluding the checksum itself
	Checksum uint64
}

// NewFooter creates a new footer with the given parameters
func NewFooter(c codec.Type, indexOffset uint64, indexSize, blockCount uint32, recordCount uint64) *Footer {
	return &Footer{
		Magic:       FooterMagic,
		Version:     CurrentVersion,
		Codec:       c,
		IndexOffset: indexOffset,
		IndexSize:   indexSize,
		BlockCount:  blockCount,
		RecordCount: recordCount,
	}
}

// Encode serializes the footer to a byte slice
func (f *Footer) Encode() []byte {
	result := make([]byte, FooterSize)

	binary.LittleEndian.PutUint64(result[0:8], f.Magic)
	binary.LittleEndian.PutUint32(result[8:12], f.Version)
	binary.LittleEndian.PutUint32(result[12:16], uint32(f.Codec))
	binary.LittleEndian.PutUint64(result[16:24], f.IndexOffset)
	binary.LittleEndian.PutUint32(result[24:28], f.IndexSize)
	binary.LittleEndian.PutUint32(result[28:32], f.BlockCount)
	binary.LittleEndian.PutUint64(result[32:40], f.RecordCount)

	f.Checksum = xxhash.Sum64(result[:40])
	binary.LittleEndian.PutUint64(result[40:], f.Checksum)

	return result
}

// DecodeFooter parses a footer from a byte slice
func DecodeFooter(data []byte) (*Footer, error) {
	if len(data) < FooterSize {
		return nil, fmt.Errorf("%w: footer data too small: %d bytes, expected %d",
			ErrCorruption, len(data), FooterSize)
	}

	f := &Footer{
		Magic:       binary.LittleEndian.Uint64(data[0:8]),
		Version:     binary.LittleEndian.Uint32(data[8:12]),
		Codec:       codec.Type(binary.LittleEndian.Uint32(data[12:16])),
		IndexOffset: binary.LittleEndian.Uint64(data[16:24]),
		IndexSize:   binary.LittleEndian.Uint32(data[24:28]),
		BlockCount:  binary.LittleEndian.Uint32(data[28:32]),
		RecordCount: binary.LittleEndian.Uint64(data[32:40]),
		Checksum:    binary.LittleEndian.Uint64(data[40:]),
	}

	if f.Magic != FooterMagic {
		return nil, fmt.Errorf("%w: invalid footer magic: %x, expected %x",
			ErrCorruption, f.Magic, FooterMagic)
	}

	if f.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: unsupported segment version %d", ErrCorruption, f.Version)
	}

	expectedChecksum := xxhash.Sum64(data[:40])
	if f.Checksum != expectedChecksum {
		return nil, fmt.Errorf("%w: footer checksum mismatch: file has %d, calculated %d",
			ErrCorruption, f.Checksum, expectedChecksum)
	}

	return f, nil
}
