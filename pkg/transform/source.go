package transform

import "github.com/wordsort/wordsort/pkg/wordio"

// FilterSource applies a pipeline to an underlying word source, dropping
// rejected words
type FilterSource struct {
	src      wordio.Source
	pipeline *Pipeline
	word     []byte
}

// NewFilterSource wraps src with the given pipeline. A pass-through
// pipeline returns src unchanged.
func NewFilterSource(src wordio.Source, pipeline *Pipeline) wordio.Source {
	if !pipeline.Enabled() {
		return src
	}
	return &FilterSource{src: src, pipeline: pipeline}
}

// Next advances to the next word the pipeline keeps
func (f *FilterSource) Next() bool {
	for f.src.Next() {
		if word, keep := f.pipeline.Apply(f.src.Word()); keep {
			f.word = word
			return true
		}
	}
	return false
}

// Word returns the current word, valid until the next call to Next
func (f *FilterSource) Word() []byte {
	return f.word
}

// Err returns the first error encountered by the underlying source
func (f *FilterSource) Err() error {
	return f.src.Err()
}
