// Package stats provides centralized run statistics for a sort operation
// using atomic operations for thread safety.
package stats

import "sync/atomic"

// Collector accumulates counters over one sort operation with minimal
// contention
type Collector struct {
	wordsIn         atomic.Uint64
	wordsOut        atomic.Uint64
	batchesSorted   atomic.Uint64
	segmentsWritten atomic.Uint64
	blocksWritten   atomic.Uint64
	bytesSpilled    atomic.Uint64
}

// NewCollector creates a new statistics collector
func NewCollector() *Collector {
	return &Collector{}
}

// TrackWordsIn adds n to the input word counter
func (c *Collector) TrackWordsIn(n uint64) {
	c.wordsIn.Add(n)
}

// TrackWordsOut adds n to the output word counter
func (c *Collector) TrackWordsOut(n uint64) {
	c.wordsOut.Add(n)
}

// TrackBatchSorted increments the sorted batch counter
func (c *Collector) TrackBatchSorted() {
	c.batchesSorted.Add(1)
}

// TrackSegmentWritten records one finished spill segment
func (c *Collector) TrackSegmentWritten(blocks int, bytes uint64) {
	c.segmentsWritten.Add(1)
	c.blocksWritten.Add(uint64(blocks))
	c.bytesSpilled.Add(bytes)
}

// Stats is a point-in-time snapshot of the collector
type Stats struct {
	WordsIn         uint64
	WordsOut        uint64
	BatchesSorted   uint64
	SegmentsWritten uint64
	BlocksWritten   uint64
	BytesSpilled    uint64
}

// Snapshot returns the current counter values
func (c *Collector) Snapshot() Stats {
	return Stats{
		WordsIn:         c.wordsIn.Load(),
		WordsOut:        c.wordsOut.Load(),
		BatchesSorted:   c.batchesSorted.Load(),
		SegmentsWritten: c.segmentsWritten.Load(),
		BlocksWritten:   c.blocksWritten.Load(),
		BytesSpilled:    c.bytesSpilled.Load(),
	}
}
