// Package segment implements the on-disk spill segment format: one sorted
// batch persisted as a run of compressed blocks, a block index, and a
// checksummed footer. Segments are written once, read once during the merge
// phase, and deleted by the sort engine.
package segment

import (
	"encoding/binary"
	"errors"
)

const (
	// FooterSize is the fixed size of the footer in bytes
	FooterSize = 48
	// FooterMagic is a magic number to verify we're reading a valid footer
	FooterMagic = uint64(0x5753474D41474943)
	// CurrentVersion is the current file format version
	CurrentVersion = uint32(1)
	// indexChecksumSize is the xxhash64 trailer appended to the index region
	indexChecksumSize = 8
	// maxFirstWordLen caps the first-word hint stored per index entry; the
	// hint only locates blocks, so a prefix of a long word is sufficient
	maxFirstWordLen = 1024
)

var (
	// ErrCorruption indicates segment data corruption was detected
	ErrCorruption = errors.New("segment corruption detected")
	// ErrOutOfOrder indicates words were added against the segment order
	ErrOutOfOrder = errors.New("words must be added in sorted order")
)

// IndexEntry describes one compressed block within a segment
type IndexEntry struct {
	// Offset is the byte offset of the block in the file
	Offset uint64
	// CompressedSize is the stored size of the block in bytes
	CompressedSize uint32
	// RawSize is the uncompressed size of the block in bytes
	RawSize uint32
	// Records is the number of word records in the block
	Records uint32
	// Checksum is the xxhash64 of the stored (compressed) block bytes
	Checksum uint64
	// FirstWord is the first word in the block
	FirstWord []byte
}

// encodedSize returns the serialized size of the index entry
func (e *IndexEntry) encodedSize() int {
	return 8 + 4 + 4 + 4 + 8 + 2 + len(e.FirstWord)
}

// encode appends the serialized entry to dst
func (e *IndexEntry) encode(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, e.Offset)
	dst = binary.LittleEndian.AppendUint32(dst, e.CompressedSize)
	dst = binary.LittleEndian.AppendUint32(dst, e.RawSize)
	dst = binary.LittleEndian.AppendUint32(dst, e.Records)
	dst = binary.LittleEndian.AppendUint64(dst, e.Checksum)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(e.FirstWord)))
	dst = append(dst, e.FirstWord...)
	return dst
}

// decodeIndexEntry parses one entry from data, returning the entry and the
// number of bytes consumed
func decodeIndexEntry(data []byte) (IndexEntry, int, error) {
	const fixed = 8 + 4 + 4 + 4 + 8 + 2
	if len(data) < fixed {
		return IndexEntry{}, 0, ErrCorruption
	}

	var e IndexEntry
	e.Offset = binary.LittleEndian.Uint64(data[0:8])
	e.CompressedSize = binary.LittleEndian.Uint32(data[8:12])
	e.RawSize = binary.LittleEndian.Uint32(data[12:16])
	e.Records = binary.LittleEndian.Uint32(data[16:20])
	e.Checksum = binary.LittleEndian.Uint64(data[20:28])
	wordLen := int(binary.LittleEndian.Uint16(data[28:30]))

	if len(data) < fixed+wordLen {
		return IndexEntry{}, 0, ErrCorruption
	}
	e.FirstWord = append([]byte(nil), data[fixed:fixed+wordLen]...)

	return e, fixed + wordLen, nil
}

// Descriptor identifies a finished segment for the merge phase
type Descriptor struct {
	// ID is the segment's creation index within one sort operation
	ID int
	// Path is the segment file location
	Path string
	// Records is the number of words the segment represents, counting
	// coalesced records at their run count
	Records uint64
	// Blocks is the number of compressed blocks in the segment
	Blocks int
	// Bytes is the on-disk size of the segment file
	Bytes uint64
}
