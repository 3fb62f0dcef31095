package batch

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/wordsort/wordsort/pkg/common/compare"
)

func TestBatchAddAndBudget(t *testing.T) {
	b := NewBatch(200, compare.Forward)

	full, err := b.Add([]byte("pear"))
	if err != nil {
		t.Fatalf("Failed to add word: %v", err)
	}
	if full {
		t.Errorf("Batch reported full after one small word")
	}

	// Each record costs len(word) + overhead, so a handful of words
	// exhaust a 200 byte budget
	for i := 0; !full && i < 100; i++ {
		full, err = b.Add([]byte("apple"))
		if err != nil {
			t.Fatalf("Failed to add word: %v", err)
		}
	}
	if !full {
		t.Errorf("Batch never reported full within a 200 byte budget")
	}

	if b.Len() < 2 {
		t.Errorf("Expected at least 2 records, got %d", b.Len())
	}
	if b.Size() <= 0 {
		t.Errorf("Expected positive size, got %d", b.Size())
	}
}

func TestBatchAddOversizedWord(t *testing.T) {
	b := NewBatch(64, compare.Forward)

	word := bytes.Repeat([]byte("x"), 128)
	if _, err := b.Add(word); err == nil {
		t.Errorf("Expected error adding a word larger than the budget, got none")
	}
}

func TestBatchSort(t *testing.T) {
	b := NewBatch(1<<20, compare.Forward)
	words := []string{"pear", "apple", "banana", "apple", "cherry"}
	for _, w := range words {
		if _, err := b.Add([]byte(w)); err != nil {
			t.Fatalf("Failed to add word: %v", err)
		}
	}

	b.Sort()

	want := []string{"apple", "apple", "banana", "cherry", "pear"}
	records := b.Records()
	if len(records) != len(want) {
		t.Fatalf("Expected %d records, got %d", len(want), len(records))
	}
	for i, rec := range records {
		if string(rec.Word) != want[i] {
			t.Errorf("Record %d: got %q, want %q", i, rec.Word, want[i])
		}
		if rec.Count != 1 {
			t.Errorf("Record %d: got count %d, want 1", i, rec.Count)
		}
	}
}

func TestBatchSortReverse(t *testing.T) {
	b := NewBatch(1<<20, compare.Reverse)
	for _, w := range []string{"apple", "pear", "banana"} {
		if _, err := b.Add([]byte(w)); err != nil {
			t.Fatalf("Failed to add word: %v", err)
		}
	}

	b.Sort()

	want := []string{"pear", "banana", "apple"}
	for i, rec := range b.Records() {
		if string(rec.Word) != want[i] {
			t.Errorf("Record %d: got %q, want %q", i, rec.Word, want[i])
		}
	}
}

func TestBatchCoalesce(t *testing.T) {
	b := NewBatch(1<<20, compare.Forward)
	for _, w := range []string{"apple", "pear", "apple", "apple", "banana", "pear"} {
		if _, err := b.Add([]byte(w)); err != nil {
			t.Fatalf("Failed to add word: %v", err)
		}
	}

	b.Sort()
	b.Coalesce()

	want := map[string]uint64{"apple": 3, "banana": 1, "pear": 2}
	records := b.Records()
	if len(records) != len(want) {
		t.Fatalf("Expected %d distinct records, got %d", len(want), len(records))
	}
	for _, rec := range records {
		if want[string(rec.Word)] != rec.Count {
			t.Errorf("Word %q: got count %d, want %d", rec.Word, rec.Count, want[string(rec.Word)])
		}
	}
}

func TestBatchAddCopiesWord(t *testing.T) {
	b := NewBatch(1<<20, compare.Forward)

	buf := []byte("apple")
	if _, err := b.Add(buf); err != nil {
		t.Fatalf("Failed to add word: %v", err)
	}
	copy(buf, "XXXXX")

	if got := string(b.Records()[0].Word); got != "apple" {
		t.Errorf("Batch aliases caller memory: got %q, want %q", got, "apple")
	}
}

func TestBatchReset(t *testing.T) {
	b := NewBatch(1<<20, compare.Forward)
	for i := 0; i < 10; i++ {
		if _, err := b.Add([]byte(fmt.Sprintf("word%d", i))); err != nil {
			t.Fatalf("Failed to add word: %v", err)
		}
	}

	b.Reset()

	if b.Len() != 0 {
		t.Errorf("Expected empty batch after reset, got %d records", b.Len())
	}
	if b.Size() != 0 {
		t.Errorf("Expected zero size after reset, got %d", b.Size())
	}
}
