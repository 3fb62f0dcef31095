package segment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/wordsort/wordsort/pkg/codec"
	"github.com/wordsort/wordsort/pkg/common/compare"
)

func newTestCompressor(t *testing.T, typ codec.Type) *codec.Compressor {
	t.Helper()
	c, err := codec.NewCompressor(typ)
	if err != nil {
		t.Fatalf("Failed to create compressor: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func writeTestSegment(t *testing.T, path string, comp *codec.Compressor, blockSize int, words []string) *Descriptor {
	t.Helper()

	w, err := NewWriter(path, comp, compare.Forward, blockSize)
	if err != nil {
		t.Fatalf("Failed to create segment writer: %v", err)
	}

	for _, word := range words {
		if err := w.Add([]byte(word), 1); err != nil {
			t.Fatalf("Failed to add word %q: %v", word, err)
		}
	}

	desc, err := w.Finish()
	if err != nil {
		t.Fatalf("Failed to finish segment: %v", err)
	}
	return desc
}

func readAllWords(t *testing.T, path string, comp *codec.Compressor) []string {
	t.Helper()

	r, err := OpenReader(path, comp)
	if err != nil {
		t.Fatalf("Failed to open segment: %v", err)
	}
	defer r.Close()

	var words []string
	it := r.NewIterator()
	for it.Next() {
		for i := uint64(0); i < it.Count(); i++ {
			words = append(words, string(it.Word()))
		}
	}
	if it.Error() != nil {
		t.Fatalf("Iterator failed: %v", it.Error())
	}
	return words
}

func TestSegmentRoundTrip(t *testing.T) {
	for _, typ := range []codec.Type{codec.TypeNone, codec.TypeSnappy, codec.TypeZstd} {
		t.Run(typ.String(), func(t *testing.T) {
			tempDir := t.TempDir()
			path := filepath.Join(tempDir, "test.wsg")
			comp := newTestCompressor(t, typ)

			words := make([]string, 0, 1000)
			for i := 0; i < 1000; i++ {
				words = append(words, fmt.Sprintf("word%05d", i))
			}

			desc := writeTestSegment(t, path, comp, 256, words)

			if desc.Records != 1000 {
				t.Errorf("Expected 1000 records, got %d", desc.Records)
			}
			if desc.Blocks < 2 {
				t.Errorf("Expected multiple blocks with a 256 byte block size, got %d", desc.Blocks)
			}

			got := readAllWords(t, path, comp)
			if len(got) != len(words) {
				t.Fatalf("Expected %d words, got %d", len(words), len(got))
			}
			for i := range words {
				if got[i] != words[i] {
					t.Fatalf("Word %d: got %q, want %q", i, got[i], words[i])
				}
			}
		})
	}
}

func TestSegmentCounts(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "counts.wsg")
	comp := newTestCompressor(t, codec.TypeSnappy)

	w, err := NewWriter(path, comp, compare.Forward, 1024)
	if err != nil {
		t.Fatalf("Failed to create segment writer: %v", err)
	}
	if err := w.Add([]byte("apple"), 3); err != nil {
		t.Fatalf("Failed to add word: %v", err)
	}
	if err := w.Add([]byte("pear"), 2); err != nil {
		t.Fatalf("Failed to add word: %v", err)
	}
	desc, err := w.Finish()
	if err != nil {
		t.Fatalf("Failed to finish segment: %v", err)
	}

	if desc.Records != 5 {
		t.Errorf("Expected record count 5 (runs counted at multiplicity), got %d", desc.Records)
	}

	r, err := OpenReader(path, comp)
	if err != nil {
		t.Fatalf("Failed to open segment: %v", err)
	}
	defer r.Close()

	it := r.NewIterator()
	if !it.Next() || string(it.Word()) != "apple" || it.Count() != 3 {
		t.Errorf("First record: got %q count=%d, want apple count=3", it.Word(), it.Count())
	}
	if !it.Next() || string(it.Word()) != "pear" || it.Count() != 2 {
		t.Errorf("Second record: got %q count=%d, want pear count=2", it.Word(), it.Count())
	}
	if it.Next() {
		t.Errorf("Expected exhaustion after two records")
	}
}

func TestWriterRejectsOutOfOrder(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "order.wsg")
	comp := newTestCompressor(t, codec.TypeNone)

	w, err := NewWriter(path, comp, compare.Forward, 1024)
	if err != nil {
		t.Fatalf("Failed to create segment writer: %v", err)
	}
	defer w.Abort()

	if err := w.Add([]byte("pear"), 1); err != nil {
		t.Fatalf("Failed to add word: %v", err)
	}
	if err := w.Add([]byte("pear"), 1); err != nil {
		t.Errorf("Equal words must be accepted: %v", err)
	}

	err = w.Add([]byte("apple"), 1)
	if !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("Expected ErrOutOfOrder adding apple after pear, got %v", err)
	}
}

func TestWriterReverseOrder(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "reverse.wsg")
	comp := newTestCompressor(t, codec.TypeNone)

	w, err := NewWriter(path, comp, compare.Reverse, 1024)
	if err != nil {
		t.Fatalf("Failed to create segment writer: %v", err)
	}

	for _, word := range []string{"pear", "banana", "apple"} {
		if err := w.Add([]byte(word), 1); err != nil {
			t.Fatalf("Failed to add word %q: %v", word, err)
		}
	}
	if _, err := w.Finish(); err != nil {
		t.Fatalf("Failed to finish segment: %v", err)
	}

	got := readAllWords(t, path, comp)
	want := []string{"pear", "banana", "apple"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Word %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWriterAbort(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "abort.wsg")
	comp := newTestCompressor(t, codec.TypeNone)

	w, err := NewWriter(path, comp, compare.Forward, 1024)
	if err != nil {
		t.Fatalf("Failed to create segment writer: %v", err)
	}
	if err := w.Add([]byte("apple"), 1); err != nil {
		t.Fatalf("Failed to add word: %v", err)
	}

	if err := w.Abort(); err != nil {
		t.Fatalf("Failed to abort: %v", err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("Failed to read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no files after abort, found %d", len(entries))
	}
}

func TestOpenReaderCorruptedBlock(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "corrupt.wsg")
	comp := newTestCompressor(t, codec.TypeZstd)

	words := make([]string, 0, 500)
	for i := 0; i < 500; i++ {
		words = append(words, fmt.Sprintf("word%05d", i))
	}
	writeTestSegment(t, path, comp, 256, words)

	// Flip a byte inside the first data block
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read segment file: %v", err)
	}
	data[10] ^= 0xFF
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write corrupted segment: %v", err)
	}

	r, err := OpenReader(path, comp)
	if err != nil {
		t.Fatalf("Failed to open segment (block corruption is detected lazily): %v", err)
	}
	defer r.Close()

	it := r.NewIterator()
	for it.Next() {
	}
	if !errors.Is(it.Error(), ErrCorruption) {
		t.Errorf("Expected ErrCorruption from iterator, got %v", it.Error())
	}
}

func TestOpenReaderCorruptedFooter(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "footer.wsg")
	comp := newTestCompressor(t, codec.TypeNone)

	writeTestSegment(t, path, comp, 1024, []string{"apple", "pear"})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read segment file: %v", err)
	}
	data[len(data)-1] ^= 0xFF
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write corrupted segment: %v", err)
	}

	if _, err := OpenReader(path, comp); !errors.Is(err, ErrCorruption) {
		t.Errorf("Expected ErrCorruption opening segment with bad footer, got %v", err)
	}
}

func TestOpenReaderCodecMismatch(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "codec.wsg")

	zstdComp := newTestCompressor(t, codec.TypeZstd)
	writeTestSegment(t, path, zstdComp, 1024, []string{"apple", "pear"})

	noneComp := newTestCompressor(t, codec.TypeNone)
	if _, err := OpenReader(path, noneComp); !errors.Is(err, ErrCorruption) {
		t.Errorf("Expected ErrCorruption opening segment with wrong codec, got %v", err)
	}
}

func TestOpenReaderTruncatedFile(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "tiny.wsg")
	comp := newTestCompressor(t, codec.TypeNone)

	if err := os.WriteFile(path, []byte("short"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if _, err := OpenReader(path, comp); !errors.Is(err, ErrCorruption) {
		t.Errorf("Expected ErrCorruption opening truncated file, got %v", err)
	}
}

func TestOpenReaderMissingFile(t *testing.T) {
	comp := newTestCompressor(t, codec.TypeNone)

	if _, err := OpenReader(filepath.Join(t.TempDir(), "missing.wsg"), comp); err == nil {
		t.Errorf("Expected error opening missing segment, got none")
	}
}
