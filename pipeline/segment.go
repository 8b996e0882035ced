package pipeline

import (
	"bytes"
	"fmt"
	"io"

	"github.com/kbukum/iopipe/errors"
)

// NextFunc returns the next non-empty chunk of a stream, or io.EOF once the
// stream is exhausted. The returned slice may be reused by the next call.
type NextFunc func() (Block, error)

// SegmentReader splits one underlying stream into consecutive segments of
// caller-chosen sizes. Bytes read past the end of a segment are held and
// served first by the next segment, so no byte is lost or repeated.
type SegmentReader struct {
	FeedBase
	next  NextFunc
	held  []byte
	size  int64
	armed bool
}

// NewSegmentReader returns an unarmed reader over next.
func NewSegmentReader(next NextFunc) *SegmentReader {
	return &SegmentReader{next: next}
}

// Prepare arms the reader for a segment of size bytes and detaches the
// previous segment's sink, so the result can be linked again.
func (r *SegmentReader) Prepare(size int64) *SegmentReader {
	r.detach()
	r.size = size
	r.armed = true
	return r
}

// Held returns the number of bytes carried into the next segment.
func (r *SegmentReader) Held() int { return len(r.held) }

// Run pushes exactly the prepared number of bytes, then end-of-data.
func (r *SegmentReader) Run() error {
	if !r.armed {
		return errors.InvalidInput("size", "segment reader is not prepared")
	}
	r.armed = false
	if r.size < 0 {
		return errors.InvalidInput("size", fmt.Sprintf("must not be negative (got %d)", r.size))
	}

	left := r.size
	if len(r.held) > 0 {
		if int64(len(r.held)) > left {
			head := r.held[:left]
			r.held = r.held[left:]
			if err := r.Emit(head); err != nil {
				return err
			}
			return r.Finish()
		}
		held := r.held
		r.held = nil
		left -= int64(len(held))
		if err := r.Emit(held); err != nil {
			return err
		}
	}

	empty := 0
	for left > 0 {
		data, err := r.next()
		if err == io.EOF {
			return errors.PrematureEndOfData(r.size, r.size-left)
		}
		if err != nil {
			return fmt.Errorf("segment read: %w", err)
		}
		if len(data) == 0 {
			empty++
			if empty >= maxEmptyReads {
				return fmt.Errorf("segment read: %w", io.ErrNoProgress)
			}
			continue
		}
		empty = 0
		if int64(len(data)) > left {
			r.held = bytes.Clone(data[left:])
			data = data[:left]
		}
		left -= int64(len(data))
		if err := r.Emit(data); err != nil {
			return err
		}
	}
	return r.Finish()
}

// ReaderNext adapts r into a NextFunc reading at most blockSize bytes per
// call into one reused buffer.
func ReaderNext(r io.Reader, blockSize int) NextFunc {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	buf := make([]byte, blockSize)
	return func() (Block, error) {
		n, err := r.Read(buf)
		if n > 0 {
			return buf[:n], nil
		}
		if err == nil {
			return buf[:0], nil
		}
		return nil, err
	}
}
