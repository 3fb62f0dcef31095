package segment

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/wordsort/wordsort/pkg/codec"
	"github.com/wordsort/wordsort/pkg/common/compare"
)

// FileManager handles file operations for segment writing. Segments are
// written to a temporary file and renamed into place on Finish so a partial
// segment is never visible under its final name.
type FileManager struct {
	path    string
	tmpPath string
	file    *os.File
}

// NewFileManager creates a new FileManager for the given file path
func NewFileManager(path string) (*FileManager, error) {
	dir := filepath.Dir(path)
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.tmp", filepath.Base(path)))

	file, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}

	return &FileManager{
		path:    path,
		tmpPath: tmpPath,
		file:    file,
	}, nil
}

// Write writes data to the file at the current position
func (fm *FileManager) Write(data []byte) (int, error) {
	return fm.file.Write(data)
}

// Sync flushes the file to disk
func (fm *FileManager) Sync() error {
	return fm.file.Sync()
}

// Close closes the file
func (fm *FileManager) Close() error {
	if fm.file == nil {
		return nil
	}
	err := fm.file.Close()
	fm.file = nil
	return err
}

// FinalizeFile closes the file and renames it to the final path
func (fm *FileManager) FinalizeFile() error {
	if err := fm.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(fm.tmpPath, fm.path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Cleanup removes the temporary file if writing is aborted
func (fm *FileManager) Cleanup() error {
	if fm.file != nil {
		fm.Close()
	}
	return os.Remove(fm.tmpPath)
}

// Writer writes a segment file from an already-sorted run of word records
type Writer struct {
	fileManager *FileManager
	compressor  *codec.Compressor
	cmp         compare.Func

	blockSize    int
	blockBuf     []byte
	blockRecords uint32
	blockFirst   []byte

	index        []IndexEntry
	dataOffset   uint64
	recordsAdded uint64
	lastWord     []byte
	hasLast      bool
}

// NewWriter creates a new segment writer. blockSize is the target
// uncompressed block size; compression is applied per block through the
// given compressor.
func NewWriter(path string, compressor *codec.Compressor, cmp compare.Func, blockSize int) (*Writer, error) {
	fileManager, err := NewFileManager(path)
	if err != nil {
		return nil, err
	}

	return &Writer{
		fileManager: fileManager,
		compressor:  compressor,
		cmp:         cmp,
		blockSize:   blockSize,
		blockBuf:    make([]byte, 0, blockSize),
	}, nil
}

// Add appends a word record to the segment. Words must arrive non-decreasing
// under the writer's comparator; equal words are allowed.
func (w *Writer) Add(word []byte, count uint64) error {
	if w.hasLast && w.cmp(word, w.lastWord) < 0 {
		return fmt.Errorf("%w: got %q after %q", ErrOutOfOrder, word, w.lastWord)
	}

	if len(w.blockBuf) == 0 {
		first := word
		if len(first) > maxFirstWordLen {
			first = first[:maxFirstWordLen]
		}
		w.blockFirst = append(w.blockFirst[:0], first...)
	}

	w.blockBuf = binary.AppendUvarint(w.blockBuf, uint64(len(word)))
	w.blockBuf = append(w.blockBuf, word...)
	w.blockBuf = binary.AppendUvarint(w.blockBuf, count)

	w.blockRecords++
	w.recordsAdded += count
	w.lastWord = append(w.lastWord[:0], word...)
	w.hasLast = true

	if len(w.blockBuf) >= w.blockSize {
		return w.flushBlock()
	}

	return nil
}

// flushBlock compresses and writes the current block, recording its index entry
func (w *Writer) flushBlock() error {
	if w.blockRecords == 0 {
		return nil
	}

	rawSize := uint32(len(w.blockBuf))

	compressed, err := w.compressor.Compress(w.blockBuf)
	if err != nil {
		return fmt.Errorf("failed to compress block: %w", err)
	}

	n, err := w.fileManager.Write(compressed)
	if err != nil {
		return fmt.Errorf("failed to write block to file: %w", err)
	}
	if n != len(compressed) {
		return fmt.Errorf("wrote incomplete block: %d of %d bytes", n, len(compressed))
	}

	w.index = append(w.index, IndexEntry{
		Offset:         w.dataOffset,
		CompressedSize: uint32(len(compressed)),
		RawSize:        rawSize,
		Records:        w.blockRecords,
		Checksum:       xxhash.Sum64(compressed),
		FirstWord:      append([]byte(nil), w.blockFirst...),
	})

	w.dataOffset += uint64(n)
	w.blockBuf = w.blockBuf[:0]
	w.blockRecords = 0

	return nil
}

// Finish completes the segment: flushes the pending block, writes the index
// and footer, syncs, and renames the file into place. It returns a
// descriptor for the merge phase; the caller assigns the segment ID.
func (w *Writer) Finish() (*Descriptor, error) {
	defer func() {
		w.fileManager.Close()
	}()

	if err := w.flushBlock(); err != nil {
		return nil, err
	}

	indexOffset := w.dataOffset

	indexData := make([]byte, 0, w.indexEncodedSize())
	for i := range w.index {
		indexData = w.index[i].encode(indexData)
	}
	indexData = binary.LittleEndian.AppendUint64(indexData, xxhash.Sum64(indexData))

	n, err := w.fileManager.Write(indexData)
	if err != nil {
		return nil, fmt.Errorf("failed to write index: %w", err)
	}
	if n != len(indexData) {
		return nil, fmt.Errorf("wrote incomplete index: %d of %d bytes", n, len(indexData))
	}

	ft := NewFooter(w.compressor.Codec(), indexOffset, uint32(len(indexData)),
		uint32(len(w.index)), w.recordsAdded)

	footerData := ft.Encode()
	n, err = w.fileManager.Write(footerData)
	if err != nil {
		return nil, fmt.Errorf("failed to write footer: %w", err)
	}
	if n != len(footerData) {
		return nil, fmt.Errorf("wrote incomplete footer: %d of %d bytes", n, len(footerData))
	}

	if err := w.fileManager.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync file: %w", err)
	}

	if err := w.fileManager.FinalizeFile(); err != nil {
		return nil, err
	}

	return &Descriptor{
		Path:    w.fileManager.path,
		Records: w.recordsAdded,
		Blocks:  len(w.index),
		Bytes:   w.dataOffset + uint64(len(indexData)) + FooterSize,
	}, nil
}

func (w *Writer) indexEncodedSize() int {
	size := indexChecksumSize
	for i := range w.index {
		size += w.index[i].encodedSize()
	}
	return size
}

// Abort cancels the segment writing process and removes the temp file
func (w *Writer) Abort() error {
	return w.fileManager.Cleanup()
}
