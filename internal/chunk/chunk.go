// Package chunk splits a Ciphertext frame file into fixed-size chunks via
// positional reads, so any one chunk can be read without loading the rest
// of the frame.
package chunk

import (
	"fmt"
	"io"
	"os"

	"github.com/nymora/gitzipqr/internal/hashutil"
)

// Total computes ceil(size/chunkSize), the number of chunks a frame of the
// given size splits into. An empty frame counts as one (empty) chunk, and a
// non-positive chunkSize yields 0.
func Total(size int64, chunkSize int) int {
	if chunkSize <= 0 {
		return 0
	}
	n := size / int64(chunkSize)
	if size%int64(chunkSize) != 0 {
		n++
	}
	if n == 0 {
		n = 1
	}
	return int(n)
}

// Piece is one chunk's raw bytes and its SHA-256 hash.
type Piece struct {
	Index int
	Data  []byte
	Hash  string
}

// Reader reads chunks out of a Ciphertext frame file via positional reads.
type Reader struct {
	f         *os.File
	size      int64
	chunkSize int
	total     int
}

// Open opens path (the Ciphertext frame) read-only for chunked, positional access.
func Open(path string, chunkSize int) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("chunk: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("chunk: stat %s: %w", path, err)
	}
	return &Reader{
		f:         f,
		size:      info.Size(),
		chunkSize: chunkSize,
		total:     Total(info.Size(), chunkSize),
	}, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.f.Close()
}

// Total returns the number of chunks the frame splits into.
func (r *Reader) Total() int { return r.total }

// At reads the chunk at index via a positional read, so it is safe to call
// concurrently from multiple goroutines sharing the same Reader.
func (r *Reader) At(index int) (Piece, error) {
	if index < 0 || index >= r.total {
		return Piece{}, fmt.Errorf("chunk: index %d out of range [0,%d)", index, r.total)
	}
	offset := int64(index) * int64(r.chunkSize)
	length := int64(r.chunkSize)
	if remaining := r.size - offset; remaining < length {
		length = remaining
	}

	buf := make([]byte, length)
	if _, err := r.f.ReadAt(buf, offset); err != nil && err != io.EOF {
		return Piece{}, fmt.Errorf("chunk: read at offset %d: %w", offset, err)
	}

	return Piece{
		Index: index,
		Data:  buf,
		Hash:  hashutil.BytesHex(buf),
	}, nil
}

// All returns every chunk in index order. Used by small tests and by any
// caller that wants a synchronous, non-pooled read of the whole frame.
func (r *Reader) All() ([]Piece, error) {
	pieces := make([]Piece, 0, r.total)
	for i := 0; i < r.total; i++ {
		p, err := r.At(i)
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, p)
	}
	return pieces, nil
}
