package pipeline

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/kbukum/iopipe/errors"
	"github.com/kbukum/iopipe/util"
	"github.com/kbukum/iopipe/validation"
)

// DefaultBlockSize is the chunk ceiling used when no block size is given.
const DefaultBlockSize = 1 << 20

// maxEmptyReads bounds consecutive (0, nil) reads before giving up.
const maxEmptyReads = 100

var errNotSeekable = stderrors.New("reader does not support seeking")

// Bounds describes which part of a source a reader consumes.
type Bounds struct {
	// Size is the exact number of bytes to read. Nil means read to the end.
	Size *int64
	// Offset is the absolute start position. Nil means no seek.
	Offset *int64
	// BlockSize is the chunk ceiling for a single read.
	BlockSize int
}

// ReadOption configures Bounds.
type ReadOption func(*Bounds)

// WithSize sets the exact number of bytes to read.
func WithSize(n int64) ReadOption {
	return func(b *Bounds) { b.Size = util.Ptr(n) }
}

// WithOffset sets the position to seek to before reading.
func WithOffset(off int64) ReadOption {
	return func(b *Bounds) { b.Offset = util.Ptr(off) }
}

// WithBlockSize sets the chunk ceiling. Values <= 0 keep the default.
func WithBlockSize(n int) ReadOption {
	return func(b *Bounds) {
		if n > 0 {
			b.BlockSize = n
		}
	}
}

// NewBounds applies opts over the defaults.
func NewBounds(opts ...ReadOption) Bounds {
	b := Bounds{BlockSize: DefaultBlockSize}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Validate rejects negative sizes and offsets.
func (b Bounds) Validate() error {
	return validation.New().
		NonNegative("size", b.Size).
		NonNegative("offset", b.Offset).
		Positive("block_size", int64(b.BlockSize)).
		Err()
}

// ChunkSize is the largest single read: min(size, block size).
func (b Bounds) ChunkSize() int {
	return int(min(util.DerefOr(b.Size, int64(b.BlockSize)), int64(b.BlockSize)))
}

// BoundedReader pushes the bytes of an io.Reader downstream in chunks,
// optionally starting at an offset and stopping after an exact size.
// Adapters embed it and call Pump from their Run.
type BoundedReader struct {
	FeedBase
	bounds Bounds
}

// NewBoundedReader returns a reader configured by opts.
func NewBoundedReader(opts ...ReadOption) BoundedReader {
	return BoundedReader{bounds: NewBounds(opts...)}
}

// Bounds returns the configured bounds.
func (br *BoundedReader) Bounds() Bounds { return br.bounds }

// Pump reads r according to the bounds and pushes every chunk, then
// end-of-data. When an offset is set r must implement io.Seeker. The chunk
// buffer is reused for every push.
func (br *BoundedReader) Pump(r io.Reader) error {
	b := br.bounds
	if err := b.Validate(); err != nil {
		return err
	}
	if b.Offset != nil {
		seeker, ok := r.(io.Seeker)
		if !ok {
			return errors.SeekFailed(*b.Offset, errNotSeekable)
		}
		if _, err := seeker.Seek(*b.Offset, io.SeekStart); err != nil {
			return errors.SeekFailed(*b.Offset, err)
		}
	}
	return br.stream(r)
}

// PumpPositioned is Pump for a reader that already starts at the offset,
// such as a ranged download. No seek is attempted.
func (br *BoundedReader) PumpPositioned(r io.Reader) error {
	if err := br.bounds.Validate(); err != nil {
		return err
	}
	return br.stream(r)
}

func (br *BoundedReader) stream(r io.Reader) error {
	b := br.bounds
	buf := make([]byte, b.ChunkSize())
	var remaining int64
	if b.Size != nil {
		remaining = *b.Size
	}
	empty := 0
	for {
		want := len(buf)
		if b.Size != nil {
			if remaining == 0 {
				break
			}
			if remaining < int64(want) {
				want = int(remaining)
			}
		}

		n, err := r.Read(buf[:want])
		if n < 0 || n > want {
			expected := int64(want)
			if b.Size != nil {
				expected = *b.Size
			}
			return errors.UnexpectedExtraData(expected, expected-remaining+int64(n))
		}
		if n > 0 {
			empty = 0
			if b.Size != nil {
				remaining -= int64(n)
			}
			if perr := br.Forward(buf[:n]); perr != nil {
				return perr
			}
		}
		if err == io.EOF {
			if b.Size != nil && remaining > 0 {
				return errors.PrematureEndOfData(*b.Size, *b.Size-remaining)
			}
			break
		}
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if n == 0 {
			empty++
			if empty >= maxEmptyReads {
				return fmt.Errorf("read: %w", io.ErrNoProgress)
			}
		}
	}
	return br.Finish()
}
