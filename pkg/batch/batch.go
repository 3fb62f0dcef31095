// Package batch holds the in-memory accumulation and sorting stage of the
// external sort: words are buffered up to a byte budget, sorted in place,
// and handed to the spill writer.
package batch

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/wordsort/wordsort/pkg/common/compare"
)

// recordOverhead approximates the per-record bookkeeping cost counted
// against the byte budget, in addition to the word bytes themselves.
const recordOverhead = 32

// Record is one word plus its run count. Count is 1 for every record
// until equal neighbors are coalesced.
type Record struct {
	Word  []byte
	Count uint64
}

// Batch is a budget-bounded, mutable buffer of word records
type Batch struct {
	records []Record
	size    int64
	budget  int64
	cmp     compare.Func
}

// NewBatch creates an empty batch with the given byte budget
func NewBatch(budget int64, cmp compare.Func) *Batch {
	return &Batch{
		records: make([]Record, 0, 1024),
		budget:  budget,
		cmp:     cmp,
	}
}

// Add copies the word into the batch and returns true once the byte budget
// has been reached. The batch always accepts at least one record so a word
// can never be lost, but a single word larger than the whole budget cannot
// be buffered within the configured memory bound.
func (b *Batch) Add(word []byte) (bool, error) {
	cost := int64(len(word)) + recordOverhead
	if cost > b.budget {
		return false, fmt.Errorf("word of %d bytes exceeds memory budget %d: increase the memory budget",
			len(word), b.budget)
	}

	b.records = append(b.records, Record{
		Word:  append([]byte(nil), word...),
		Count: 1,
	})
	b.size += cost

	return b.size >= b.budget, nil
}

// Len returns the number of records currently buffered
func (b *Batch) Len() int {
	return len(b.records)
}

// Size returns the budget-accounted byte size of the buffered records
func (b *Batch) Size() int64 {
	return b.size
}

// Sort reorders the records in place, ascending under the batch comparator.
// Stability is irrelevant here: records carry no identity beyond their bytes.
func (b *Batch) Sort() {
	sort.Slice(b.records, func(i, j int) bool {
		return b.cmp(b.records[i].Word, b.records[j].Word) < 0
	})
}

// Coalesce merges equal adjacent records, summing their counts. The batch
// must be sorted first so equal words are adjacent.
func (b *Batch) Coalesce() {
	if len(b.records) < 2 {
		return
	}

	out := b.records[:1]
	for _, rec := range b.records[1:] {
		last := &out[len(out)-1]
		if bytes.Equal(rec.Word, last.Word) {
			last.Count += rec.Count
		} else {
			out = append(out, rec)
		}
	}
	b.records = out
}

// Records returns the buffered records. The slice is owned by the batch and
// is invalidated by Reset.
func (b *Batch) Records() []Record {
	return b.records
}

// Reset clears the batch for reuse in the next accumulation cycle
func (b *Batch) Reset() {
	b.records = b.records[:0]
	b.size = 0
}
