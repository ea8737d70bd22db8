package dump

import (
	"errors"
	"fmt"
)

// ErrEmptyDump is returned when asked to dump zero bytes
var ErrEmptyDump = errors.New("nothing to dump: size is zero")

// Chunk is a single rkflashtool read
type Chunk struct {
	Index  int
	Offset int64
	Length int64
}

// Plan splits size bytes starting at offset into reads of at most chunkSize
// bytes. Only the last chunk may be shorter than chunkSize.
func Plan(offset, size, chunkSize int64) ([]Chunk, error) {
	if offset < 0 {
		return nil, fmt.Errorf("offset must not be negative, got %d", offset)
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if size < 0 {
		return nil, fmt.Errorf("size must not be negative, got %d", size)
	}
	if size == 0 {
		return nil, ErrEmptyDump
	}

	count := ChunkCount(size, chunkSize)
	chunks := make([]Chunk, 0, count)
	for i := range count {
		start := int64(i) * chunkSize
		chunks = append(chunks, Chunk{
			Index:  i,
			Offset: offset + start,
			Length: min(chunkSize, size-start),
		})
	}
	return chunks, nil
}

// ChunkCount returns the number of reads needed for size bytes, rounding up
func ChunkCount(size, chunkSize int64) int {
	if size <= 0 || chunkSize <= 0 {
		return 0
	}
	return int((size + chunkSize - 1) / chunkSize)
}
