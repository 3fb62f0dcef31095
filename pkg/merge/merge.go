// Package merge implements the k-way merge that turns N individually
// sorted sources into a single globally sorted stream.
package merge

import (
	"container/heap"

	"github.com/wordsort/wordsort/pkg/common/compare"
)

// Source is a forward-only iterator over one sorted run of word records.
// Segment iterators satisfy this; so does any in-memory run.
type Source interface {
	// Next advances to the next record, returning false at exhaustion or error
	Next() bool
	// Word returns the current word, valid until the next call to Next
	Word() []byte
	// Count returns the run count of the current record
	Count() uint64
	// Error returns any error encountered during iteration
	Error() error
}

// frontierEntry is one source plus its buffered head record
type frontierEntry struct {
	src   Source
	word  []byte
	count uint64
	// order is the source's insertion index, used to break ties so equal
	// words are emitted deterministically in segment creation order
	order int
}

// frontier is a min-heap over the head words of all active sources
type frontier struct {
	entries []*frontierEntry
	cmp     compare.Func
}

func (f *frontier) Len() int { return len(f.entries) }

func (f *frontier) Less(i, j int) bool {
	c := f.cmp(f.entries[i].word, f.entries[j].word)
	if c != 0 {
		return c < 0
	}
	return f.entries[i].order < f.entries[j].order
}

func (f *frontier) Swap(i, j int) {
	f.entries[i], f.entries[j] = f.entries[j], f.entries[i]
}

func (f *frontier) Push(x interface{}) {
	f.entries = append(f.entries, x.(*frontierEntry))
}

func (f *frontier) Pop() interface{} {
	old := f.entries
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	f.entries = old[:n-1]
	return entry
}

// Merger emits the minimum head word across all sources, advancing only the
// source of the emitted word. The emitted sequence is globally sorted as
// long as every source is individually sorted.
type Merger struct {
	heap *frontier

	word  []byte
	count uint64
	err   error
}

// NewMerger creates a merger over the given sources. Each source is primed
// by pulling its first record; a source that fails while priming aborts
// construction.
func NewMerger(cmp compare.Func, sources []Source) (*Merger, error) {
	f := &frontier{
		entries: make([]*frontierEntry, 0, len(sources)),
		cmp:     cmp,
	}

	for i, src := range sources {
		if !src.Next() {
			if err := src.Error(); err != nil {
				return nil, err
			}
			// Empty source, drop it from the frontier
			continue
		}
		f.entries = append(f.entries, &frontierEntry{
			src:   src,
			word:  src.Word(),
			count: src.Count(),
			order: i,
		})
	}

	heap.Init(f)

	return &Merger{heap: f}, nil
}

// Next advances to the next record of the merged stream
func (m *Merger) Next() bool {
	if m.err != nil || m.heap.Len() == 0 {
		return false
	}

	entry := m.heap.entries[0]

	// Copy the head out before advancing: advancing the source may release
	// the block backing entry.word.
	m.word = append(m.word[:0], entry.word...)
	m.count = entry.count

	if entry.src.Next() {
		entry.word = entry.src.Word()
		entry.count = entry.src.Count()
		heap.Fix(m.heap, 0)
	} else {
		if err := entry.src.Error(); err != nil {
			m.err = err
			return false
		}
		heap.Pop(m.heap)
	}

	return true
}

// Word returns the current word of the merged stream
func (m *Merger) Word() []byte {
	return m.word
}

// Count returns the run count of the current record
func (m *Merger) Count() uint64 {
	return m.count
}

// Error returns the first error encountered by any source
func (m *Merger) Error() error {
	return m.err
}
