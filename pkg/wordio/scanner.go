// Package wordio provides the word-stream boundaries of the sorter: a
// tokenizing scanner over any input reader and a line-oriented output writer.
package wordio

import (
	"bufio"
	"fmt"
	"io"
)

const scannerStartBuffer = 64 * 1024

// Source is an ordered stream of words. Scanner implements it; so do
// wrappers that rewrite or filter the stream.
type Source interface {
	// Next advances to the next word
	Next() bool
	// Word returns the current word, valid until the next call to Next
	Word() []byte
	// Err returns the first error encountered while reading the source
	Err() error
}

// Scanner produces an ordered stream of words from a reader. By default one
// word per line; in wordify mode lines are split on whitespace. Empty tokens
// are dropped.
type Scanner struct {
	scanner *bufio.Scanner
	word    []byte
}

// NewScanner creates a scanner over r. maxWordLen caps the size of a single
// token; longer tokens surface as an input error.
func NewScanner(r io.Reader, wordify bool, maxWordLen int) *Scanner {
	s := bufio.NewScanner(r)
	// bufio caps tokens at the larger of max and the initial buffer, so the
	// initial buffer must not exceed maxWordLen
	start := scannerStartBuffer
	if maxWordLen < start {
		start = maxWordLen
	}
	s.Buffer(make([]byte, 0, start), maxWordLen)
	if wordify {
		s.Split(bufio.ScanWords)
	} else {
		s.Split(bufio.ScanLines)
	}

	return &Scanner{scanner: s}
}

// Next advances to the next non-empty word
func (s *Scanner) Next() bool {
	for s.scanner.Scan() {
		if tok := s.scanner.Bytes(); len(tok) > 0 {
			s.word = tok
			return true
		}
	}
	return false
}

// Word returns the current word. The bytes are only valid until the next
// call to Next.
func (s *Scanner) Word() []byte {
	return s.word
}

// Err returns the first error encountered while reading the source
func (s *Scanner) Err() error {
	if err := s.scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}
