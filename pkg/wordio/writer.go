package wordio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// Writer emits sorted words one per line. In counting mode each distinct
// word is written once as "count<TAB>word"; otherwise a record with count n
// is written as n repeated lines. Output is buffered; nothing reaches the
// destination before the first Write, and Flush must be called to complete
// the stream.
type Writer struct {
	w      *bufio.Writer
	counts bool
}

// NewWriter creates a writer over w
func NewWriter(w io.Writer, counts bool) *Writer {
	return &Writer{
		w:      bufio.NewWriter(w),
		counts: counts,
	}
}

// Write emits one word record
func (w *Writer) Write(word []byte, count uint64) error {
	if w.counts {
		if _, err := w.w.WriteString(strconv.FormatUint(count, 10)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if err := w.w.WriteByte('\t'); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return w.writeLine(word)
	}

	for i := uint64(0); i < count; i++ {
		if err := w.writeLine(word); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeLine(word []byte) error {
	if _, err := w.w.Write(word); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// Flush completes the output stream
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}
