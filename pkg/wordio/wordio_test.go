package wordio

import (
	"bytes"
	"strings"
	"testing"
)

func scanAll(t *testing.T, s *Scanner) []string {
	t.Helper()
	var words []string
	for s.Next() {
		words = append(words, string(s.Word()))
	}
	if s.Err() != nil {
		t.Fatalf("Scanner failed: %v", s.Err())
	}
	return words
}

func TestScannerLineMode(t *testing.T) {
	input := "pear\napple\napple\nbanana\n"
	s := NewScanner(strings.NewReader(input), false, 1024)

	got := scanAll(t, s)
	want := []string{"pear", "apple", "apple", "banana"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d words, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Word %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestScannerSkipsEmptyLines(t *testing.T) {
	input := "apple\n\n\npear\n\n"
	s := NewScanner(strings.NewReader(input), false, 1024)

	got := scanAll(t, s)
	want := []string{"apple", "pear"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
}

func TestScannerNoTrailingNewline(t *testing.T) {
	s := NewScanner(strings.NewReader("apple\npear"), false, 1024)

	got := scanAll(t, s)
	if len(got) != 2 || got[1] != "pear" {
		t.Errorf("Expected final unterminated line to be scanned, got %v", got)
	}
}

func TestScannerWordifyMode(t *testing.T) {
	input := "the quick\tbrown\n  fox jumps\n"
	s := NewScanner(strings.NewReader(input), true, 1024)

	got := scanAll(t, s)
	want := []string{"the", "quick", "brown", "fox", "jumps"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d words, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Word %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestScannerOverlongWord(t *testing.T) {
	long := strings.Repeat("a", 100)
	s := NewScanner(strings.NewReader(long+"\n"), false, 64)

	for s.Next() {
	}
	if s.Err() == nil {
		t.Errorf("Expected error for word exceeding max length")
	}
}

func TestWriterPlainMode(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, false)

	if err := w.Write([]byte("apple"), 2); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if err := w.Write([]byte("pear"), 1); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}

	want := "apple\napple\npear\n"
	if buf.String() != want {
		t.Errorf("Got %q, want %q", buf.String(), want)
	}
}

func TestWriterCountMode(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, true)

	if err := w.Write([]byte("apple"), 2); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if err := w.Write([]byte("pear"), 1); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}

	want := "2\tapple\n1\tpear\n"
	if buf.String() != want {
		t.Errorf("Got %q, want %q", buf.String(), want)
	}
}

func TestWriterBuffersUntilFlush(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, false)

	if err := w.Write([]byte("apple"), 1); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Expected small writes to stay buffered, destination has %d bytes", buf.Len())
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}
	if buf.String() != "apple\n" {
		t.Errorf("Got %q after flush", buf.String())
	}
}
