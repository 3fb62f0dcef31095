// Package transform implements the per-word rewrite and filter pipeline
// applied to every token before it enters the sort engine.
package transform

import "bytes"

// Options selects which transforms the pipeline applies. The zero value is
// a pass-through.
type Options struct {
	// Dewebify strips HTML tags
	Dewebify bool
	// Lower folds ASCII letters to lower case
	Lower bool
	// DigitTrim removes digits from both ends of the word
	DigitTrim bool
	// SpecialTrim removes non-alphanumeric characters from both ends
	SpecialTrim bool
	// Detab removes leading spaces and tabs
	Detab bool
	// MaxTrim truncates words longer than this many bytes (0 disables)
	MaxTrim int
	// DupRemove collapses runs of repeated characters
	DupRemove bool
	// NoNumbers rejects all-numeric words
	NoNumbers bool
	// HashRemove rejects words of 32+ hex characters (likely hash dumps)
	HashRemove bool
	// DupSense rejects words where any single character exceeds this
	// percentage of the word (0 disables)
	DupSense int
	// MinLen rejects words shorter than this many bytes (0 disables)
	MinLen int
	// MaxLen rejects words longer than this many bytes (0 disables)
	MaxLen int
}

// Pipeline applies a fixed sequence of word transforms
type Pipeline struct {
	opts    Options
	enabled bool
	buf     []byte
}

// NewPipeline creates a pipeline for the given options
func NewPipeline(opts Options) *Pipeline {
	return &Pipeline{
		opts:    opts,
		enabled: opts != Options{},
	}
}

// Enabled reports whether any transform is configured
func (p *Pipeline) Enabled() bool {
	return p.enabled
}

// Apply runs the pipeline over one word. It returns the transformed word
// and whether the word should be kept. The returned bytes may alias the
// pipeline's internal buffer and are only valid until the next Apply.
func (p *Pipeline) Apply(word []byte) ([]byte, bool) {
	if !p.enabled {
		return word, true
	}

	w := word

	if p.opts.Dewebify {
		w = p.stripTags(w)
	}

	if p.opts.Lower {
		w = p.lower(w)
	}

	if p.opts.DigitTrim {
		w = trimFunc(w, isDigit)
	}

	if p.opts.SpecialTrim {
		w = trimFunc(w, func(c byte) bool { return !isAlnum(c) })
	}

	if p.opts.Detab {
		for len(w) > 0 && (w[0] == ' ' || w[0] == '\t') {
			w = w[1:]
		}
	}

	if p.opts.MaxTrim > 0 && len(w) > p.opts.MaxTrim {
		w = w[:p.opts.MaxTrim]
	}

	if p.opts.DupRemove {
		w = p.collapseRuns(w)
	}

	if len(w) == 0 {
		return nil, false
	}

	if p.opts.NoNumbers && allOf(w, isDigit) {
		return nil, false
	}

	if p.opts.HashRemove && len(w) >= 32 && allOf(w, isHex) {
		return nil, false
	}

	if p.opts.DupSense > 0 && exceedsDupRatio(w, p.opts.DupSense) {
		return nil, false
	}

	if p.opts.MinLen > 0 && len(w) < p.opts.MinLen {
		return nil, false
	}

	if p.opts.MaxLen > 0 && len(w) > p.opts.MaxLen {
		return nil, false
	}

	return w, true
}

// stripTags removes everything between '<' and '>' inclusive
func (p *Pipeline) stripTags(w []byte) []byte {
	if bytes.IndexByte(w, '<') < 0 {
		return w
	}

	p.buf = p.buf[:0]
	inTag := false
	for _, c := range w {
		switch {
		case c == '<':
			inTag = true
		case c == '>':
			inTag = false
		case !inTag:
			p.buf = append(p.buf, c)
		}
	}
	return p.buf
}

func (p *Pipeline) lower(w []byte) []byte {
	changed := false
	for _, c := range w {
		if c >= 'A' && c <= 'Z' {
			changed = true
			break
		}
	}
	if !changed {
		return w
	}

	out := p.scratch(w)
	for i, c := range out {
		if c >= 'A' && c <= 'Z' {
			out[i] = c + ('a' - 'A')
		}
	}
	return out
}

// collapseRuns removes consecutive duplicate characters
func (p *Pipeline) collapseRuns(w []byte) []byte {
	hasRun := false
	for i := 1; i < len(w); i++ {
		if w[i] == w[i-1] {
			hasRun = true
			break
		}
	}
	if !hasRun {
		return w
	}

	out := p.scratch(w)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

// scratch copies w into the pipeline buffer unless it already lives there
func (p *Pipeline) scratch(w []byte) []byte {
	if len(p.buf) > 0 && &w[0] == &p.buf[0] {
		return w
	}
	p.buf = append(p.buf[:0], w...)
	return p.buf
}

func trimFunc(w []byte, drop func(byte) bool) []byte {
	start := 0
	for start < len(w) && drop(w[start]) {
		start++
	}
	end := len(w)
	for end > start && drop(w[end-1]) {
		end--
	}
	return w[start:end]
}

func exceedsDupRatio(w []byte, percent int) bool {
	var freq [256]int
	for _, c := range w {
		freq[c]++
	}
	limit := len(w) * percent
	for _, n := range freq {
		if n*100 > limit {
			return true
		}
	}
	return false
}

func allOf(w []byte, pred func(byte) bool) bool {
	for _, c := range w {
		if !pred(c) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool { return isAlpha(c) || isDigit(c) }

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
