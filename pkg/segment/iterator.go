package segment

import (
	"encoding/binary"
	"fmt"
)

// Iterator yields the word records of one segment in segment order. It is
// forward-only and single-pass: blocks are decompressed one at a time and
// at most one decompressed block is resident per iterator, which bounds
// merge-phase memory regardless of segment count.
type Iterator struct {
	reader *Reader

	blockIdx  int
	blockData []byte
	pos       int
	remaining uint32

	word  []byte
	count uint64
	err   error
}

// Next advances to the next record. It returns false when the segment is
// exhausted or an error occurred; check Error to distinguish.
func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}

	for it.remaining == 0 {
		if !it.loadNextBlock() {
			return false
		}
	}

	wordLen, n := binary.Uvarint(it.blockData[it.pos:])
	if n <= 0 {
		it.fail("invalid word length")
		return false
	}
	it.pos += n

	if wordLen > uint64(len(it.blockData)-it.pos) {
		it.fail("word overruns block")
		return false
	}
	it.word = it.blockData[it.pos : it.pos+int(wordLen)]
	it.pos += int(wordLen)

	count, n := binary.Uvarint(it.blockData[it.pos:])
	if n <= 0 || count == 0 {
		it.fail("invalid record count")
		return false
	}
	it.pos += n
	it.count = count

	it.remaining--
	return true
}

// loadNextBlock fetches and decodes the next block, returning false at the
// end of the segment or on error
func (it *Iterator) loadNextBlock() bool {
	if it.blockIdx+1 >= it.reader.BlockCount() {
		it.blockData = nil
		return false
	}

	it.blockIdx++
	data, err := it.reader.fetchBlock(it.blockIdx)
	if err != nil {
		it.err = err
		return false
	}

	entry := &it.reader.index[it.blockIdx]
	it.blockData = data
	it.pos = 0
	it.remaining = entry.Records

	return true
}

func (it *Iterator) fail(msg string) {
	it.err = fmt.Errorf("%w: block %d: %s", ErrCorruption, it.blockIdx, msg)
}

// Word returns the current word. The bytes are owned by the iterator's
// current block and are invalidated by the next block load; callers keeping
// a word across Next calls must copy it.
func (it *Iterator) Word() []byte {
	return it.word
}

// Count returns the run count of the current record
func (it *Iterator) Count() uint64 {
	return it.count
}

// Error returns any error encountered during iteration
func (it *Iterator) Error() error {
	return it.err
}
