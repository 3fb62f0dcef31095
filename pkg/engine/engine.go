// Package engine implements the external sort: words are accumulated into
// memory-budgeted batches, each batch is sorted and spilled as a compressed
// segment, and the segments are k-way merged into the final sorted stream.
// Inputs that fit in a single batch are emitted directly with no spill I/O.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/wordsort/wordsort/pkg/batch"
	"github.com/wordsort/wordsort/pkg/codec"
	"github.com/wordsort/wordsort/pkg/common/compare"
	"github.com/wordsort/wordsort/pkg/common/log"
	"github.com/wordsort/wordsort/pkg/config"
	"github.com/wordsort/wordsort/pkg/merge"
	"github.com/wordsort/wordsort/pkg/segment"
	"github.com/wordsort/wordsort/pkg/stats"
	"github.com/wordsort/wordsort/pkg/wordio"
)

// cancelCheckInterval is how many records pass between context checks in
// the accumulate and merge loops
const cancelCheckInterval = 4096

// Engine runs one external sort operation. Each engine owns a unique temp
// namespace for its spill segments, so concurrent sorts in one process
// cannot collide. An engine is single-use: construct, Sort, Close.
type Engine struct {
	cfg        *config.Config
	cmp        compare.Func
	compressor *codec.Compressor
	logger     log.Logger
	collector  *stats.Collector

	tempDir  string
	segments []*segment.Descriptor
	done     bool
}

// NewEngine creates an engine for the given configuration
func NewEngine(cfg *config.Config, logger log.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	codecType, err := cfg.CodecType()
	if err != nil {
		return nil, err
	}

	compressor, err := codec.NewCompressor(codecType)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = log.NewStandardLogger()
	}

	return &Engine{
		cfg:        cfg,
		cmp:        compare.ForOrder(cfg.Reverse),
		compressor: compressor,
		logger:     logger.WithField("component", "engine"),
		collector:  stats.NewCollector(),
	}, nil
}

// Sort reads every word from src and writes the fully sorted stream to dst.
// On any failure or cancellation no output is produced and all spill
// segments are removed; cleanup also runs on success.
func (e *Engine) Sort(ctx context.Context, src wordio.Source, dst *wordio.Writer) error {
	if e.done {
		return ErrSortCompleted
	}
	e.done = true

	// Cleanup is unconditional so temp storage never leaks, including on
	// error and cancellation paths.
	defer e.cleanup()

	b := batch.NewBatch(e.cfg.MemoryBudget, e.cmp)

	if err := e.accumulate(ctx, src, b); err != nil {
		return err
	}

	if len(e.segments) == 0 {
		// The whole input fits in one batch: sort and emit directly,
		// skipping spill and merge entirely.
		e.logger.Debug("input fits in one batch, emitting directly (%d words)", b.Len())
		if err := e.directEmit(ctx, b, dst); err != nil {
			return err
		}
		return dst.Flush()
	}

	if b.Len() > 0 {
		if err := e.spill(b); err != nil {
			return err
		}
	}

	e.logger.Debug("merging %d segments", len(e.segments))
	if err := e.mergeSegments(ctx, dst); err != nil {
		return err
	}

	return dst.Flush()
}

// accumulate pulls words from the source, spilling a sorted segment each
// time the batch byte budget is reached
func (e *Engine) accumulate(ctx context.Context, src wordio.Source, b *batch.Batch) error {
	var sinceCheck int

	for src.Next() {
		sinceCheck++
		if sinceCheck >= cancelCheckInterval {
			sinceCheck = 0
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		full, err := b.Add(src.Word())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrResourceExhausted, err)
		}
		e.collector.TrackWordsIn(1)

		if full {
			if err := e.spill(b); err != nil {
				return err
			}
		}
	}

	if err := src.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInput, err)
	}

	return ctx.Err()
}

// sortBatch sorts the batch in place, coalescing equal words when a
// counting mode is active
func (e *Engine) sortBatch(b *batch.Batch) {
	b.Sort()
	if e.cfg.CountRuns || e.cfg.Unique {
		b.Coalesce()
	}
	e.collector.TrackBatchSorted()
}

// spill sorts the batch and writes it out as one segment, then resets the
// batch for the next accumulation cycle
func (e *Engine) spill(b *batch.Batch) error {
	if b.Len() == 0 {
		return nil
	}

	e.sortBatch(b)

	if e.tempDir == "" {
		// Temp namespace is unique per operation, so concurrent sorts
		// need no locking to stay disjoint.
		dir := filepath.Join(e.cfg.TempDir, "wordsort-"+uuid.NewString())
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create temp directory: %w", err)
		}
		e.tempDir = dir
	}

	id := len(e.segments)
	path := filepath.Join(e.tempDir, fmt.Sprintf("seg-%06d.wsg", id))

	writer, err := segment.NewWriter(path, e.compressor, e.cmp, e.cfg.BlockSize)
	if err != nil {
		return err
	}

	for _, rec := range b.Records() {
		if err := writer.Add(rec.Word, rec.Count); err != nil {
			writer.Abort()
			return err
		}
	}

	desc, err := writer.Finish()
	if err != nil {
		writer.Abort()
		return err
	}
	desc.ID = id

	e.segments = append(e.segments, desc)
	e.collector.TrackSegmentWritten(desc.Blocks, desc.Bytes)
	e.logger.Debug("spilled segment %d: %d words, %d blocks, %d bytes",
		desc.ID, desc.Records, desc.Blocks, desc.Bytes)

	b.Reset()
	return nil
}

// directEmit writes a single sorted batch straight to the destination
func (e *Engine) directEmit(ctx context.Context, b *batch.Batch, dst *wordio.Writer) error {
	if b.Len() == 0 {
		return nil
	}

	e.sortBatch(b)

	var sinceCheck int
	for _, rec := range b.Records() {
		sinceCheck++
		if sinceCheck >= cancelCheckInterval {
			sinceCheck = 0
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := e.emit(dst, rec.Word, rec.Count); err != nil {
			return err
		}
	}

	return ctx.Err()
}

// mergeSegments drives the k-way merge over all spilled segments. In a
// counting mode, equal words surfacing from different segments are
// coalesced here so each distinct word is emitted exactly once.
func (e *Engine) mergeSegments(ctx context.Context, dst *wordio.Writer) error {
	readers := make([]*segment.Reader, 0, len(e.segments))
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()

	sources := make([]merge.Source, 0, len(e.segments))
	for _, desc := range e.segments {
		r, err := segment.OpenReader(desc.Path, e.compressor)
		if err != nil {
			return err
		}
		readers = append(readers, r)
		sources = append(sources, r.NewIterator())
	}

	merger, err := merge.NewMerger(e.cmp, sources)
	if err != nil {
		return err
	}

	coalesce := e.cfg.CountRuns || e.cfg.Unique

	var pending []byte
	var pendingCount uint64
	havePending := false

	var sinceCheck int
	for merger.Next() {
		sinceCheck++
		if sinceCheck >= cancelCheckInterval {
			sinceCheck = 0
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		if !coalesce {
			if err := e.emit(dst, merger.Word(), merger.Count()); err != nil {
				return err
			}
			continue
		}

		if havePending && bytes.Equal(merger.Word(), pending) {
			pendingCount += merger.Count()
			continue
		}

		if havePending {
			if err := e.emit(dst, pending, pendingCount); err != nil {
				return err
			}
		}
		pending = append(pending[:0], merger.Word()...)
		pendingCount = merger.Count()
		havePending = true
	}

	if err := merger.Error(); err != nil {
		return err
	}

	if havePending {
		if err := e.emit(dst, pending, pendingCount); err != nil {
			return err
		}
	}

	return ctx.Err()
}

// emit writes one merged record, collapsing the count in unique mode
func (e *Engine) emit(dst *wordio.Writer, word []byte, count uint64) error {
	if e.cfg.Unique {
		count = 1
	}
	if err := dst.Write(word, count); err != nil {
		return err
	}

	if e.cfg.CountRuns || e.cfg.Unique {
		e.collector.TrackWordsOut(1)
	} else {
		e.collector.TrackWordsOut(count)
	}
	return nil
}

// cleanup removes the temp namespace and every spill segment in it
func (e *Engine) cleanup() {
	if e.tempDir == "" {
		return
	}

	if err := os.RemoveAll(e.tempDir); err != nil {
		e.logger.Warn("failed to remove temp directory %s: %v", e.tempDir, err)
		return
	}

	e.logger.Debug("removed temp directory %s", e.tempDir)
	e.tempDir = ""
	e.segments = nil
}

// Stats returns a snapshot of the run counters
func (e *Engine) Stats() stats.Stats {
	return e.collector.Snapshot()
}

// Close releases the engine's compression resources
func (e *Engine) Close() error {
	return e.compressor.Close()
}
