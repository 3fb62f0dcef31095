package segment

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/wordsort/wordsort/pkg/codec"
)

// IOManager handles file I/O operations for a segment
type IOManager struct {
	path     string
	file     *os.File
	fileSize int64
	mu       sync.RWMutex
}

// NewIOManager opens the segment file at the given path
func NewIOManager(path string) (*IOManager, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &IOManager{
		path:     path,
		file:     file,
		fileSize: stat.Size(),
	}, nil
}

// ReadAt reads data from the file at the given offset
func (io *IOManager) ReadAt(data []byte, offset int64) (int, error) {
	io.mu.RLock()
	defer io.mu.RUnlock()

	if io.file == nil {
		return 0, fmt.Errorf("file is closed")
	}

	return io.file.ReadAt(data, offset)
}

// GetFileSize returns the size of the file
func (io *IOManager) GetFileSize() int64 {
	io.mu.RLock()
	defer io.mu.RUnlock()
	return io.fileSize
}

// Close closes the file
func (io *IOManager) Close() error {
	io.mu.Lock()
	defer io.mu.Unlock()

	if io.file == nil {
		return nil
	}

	err := io.file.Close()
	io.file = nil
	return err
}

// Reader reads a segment file. Opening validates the footer and the block
// index; block contents are fetched and verified lazily by iterators.
type Reader struct {
	ioManager  *IOManager
	compressor *codec.Compressor
	index      []IndexEntry
	ft         *Footer
}

// OpenReader opens a segment file for reading. The compressor's codec must
// match the codec recorded in the segment footer.
func OpenReader(path string, compressor *codec.Compressor) (*Reader, error) {
	ioManager, err := NewIOManager(path)
	if err != nil {
		return nil, err
	}

	fileSize := ioManager.GetFileSize()
	if fileSize < int64(FooterSize) {
		ioManager.Close()
		return nil, fmt.Errorf("%w: file too small to be a valid segment: %d bytes",
			ErrCorruption, fileSize)
	}

	footerData := make([]byte, FooterSize)
	if _, err := ioManager.ReadAt(footerData, fileSize-int64(FooterSize)); err != nil {
		ioManager.Close()
		return nil, fmt.Errorf("failed to read footer: %w", err)
	}

	ft, err := DecodeFooter(footerData)
	if err != nil {
		ioManager.Close()
		return nil, err
	}

	if ft.Codec != compressor.Codec() {
		ioManager.Close()
		return nil, fmt.Errorf("%w: segment written with codec %v, reader configured for %v",
			ErrCorruption, ft.Codec, compressor.Codec())
	}

	index, err := readIndex(ioManager, ft)
	if err != nil {
		ioManager.Close()
		return nil, err
	}

	return &Reader{
		ioManager:  ioManager,
		compressor: compressor,
		index:      index,
		ft:         ft,
	}, nil
}

// readIndex loads and verifies the index region
func readIndex(ioManager *IOManager, ft *Footer) ([]IndexEntry, error) {
	if ft.IndexSize < indexChecksumSize {
		return nil, fmt.Errorf("%w: index region too small: %d bytes", ErrCorruption, ft.IndexSize)
	}

	indexData := make([]byte, ft.IndexSize)
	if _, err := ioManager.ReadAt(indexData, int64(ft.IndexOffset)); err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	body := indexData[:len(indexData)-indexChecksumSize]
	stored := binary.LittleEndian.Uint64(indexData[len(indexData)-indexChecksumSize:])
	if xxhash.Sum64(body) != stored {
		return nil, fmt.Errorf("%w: index checksum mismatch", ErrCorruption)
	}

	index := make([]IndexEntry, 0, ft.BlockCount)
	for len(body) > 0 {
		entry, n, err := decodeIndexEntry(body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode index entry %d: %w", len(index), err)
		}
		index = append(index, entry)
		body = body[n:]
	}

	if uint32(len(index)) != ft.BlockCount {
		return nil, fmt.Errorf("%w: index has %d entries, footer says %d blocks",
			ErrCorruption, len(index), ft.BlockCount)
	}

	return index, nil
}

// fetchBlock reads, verifies and decompresses the block at the given index
func (r *Reader) fetchBlock(i int) ([]byte, error) {
	entry := &r.index[i]

	compressed := make([]byte, entry.CompressedSize)
	n, err := r.ioManager.ReadAt(compressed, int64(entry.Offset))
	if err != nil {
		return nil, fmt.Errorf("failed to read block %d at offset %d: %w", i, entry.Offset, err)
	}
	if n != int(entry.CompressedSize) {
		return nil, fmt.Errorf("%w: incomplete block read: got %d bytes, expected %d",
			ErrCorruption, n, entry.CompressedSize)
	}

	if checksum := xxhash.Sum64(compressed); checksum != entry.Checksum {
		return nil, fmt.Errorf("%w: block %d checksum mismatch: expected %d, got %d",
			ErrCorruption, i, entry.Checksum, checksum)
	}

	raw, err := r.compressor.Decompress(compressed, int(entry.RawSize))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress block %d: %w", i, err)
	}

	return raw, nil
}

// BlockCount returns the number of blocks in the segment
func (r *Reader) BlockCount() int {
	return len(r.index)
}

// RecordCount returns the total number of words the segment represents,
// counting coalesced records at their run count
func (r *Reader) RecordCount() uint64 {
	return r.ft.RecordCount
}

// NewIterator returns a forward-only, single-pass iterator over the segment.
// A fresh iterator must be constructed to re-scan.
func (r *Reader) NewIterator() *Iterator {
	return &Iterator{reader: r, blockIdx: -1}
}

// Close closes the segment reader
func (r *Reader) Close() error {
	return r.ioManager.Close()
}
