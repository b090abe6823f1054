package store

import "fmt"

// BatchError reports the chunk a batch write stopped at. Chunks before it
// were applied; Chunk and the ones after it were not.
type BatchError struct {
	Chunk  int // zero-based index of the failed chunk
	Total  int // number of chunks in the batch
	Offset int // index of the first item of the failed chunk
	Err    error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch write chunk %d/%d (items from %d) failed: %v", e.Chunk+1, e.Total, e.Offset, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// chunk splits items into consecutive slices of at most size elements.
func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// writeChunks feeds items to write size at a time, in order, stopping at the
// first failure.
func writeChunks(items []Item, size int, write func([]Item) error) error {
	chunks := chunk(items, size)
	for i, c := range chunks {
		if err := write(c); err != nil {
			return &BatchError{Chunk: i, Total: len(chunks), Offset: i * size, Err: err}
		}
	}
	return nil
}
