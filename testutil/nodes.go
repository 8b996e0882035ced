package testutil

import (
	"bytes"
	stderrors "errors"
	"io"

	"github.com/kbukum/iopipe/pipeline"
)

// ErrInjected is the default failure used by test doubles.
var ErrInjected = stderrors.New("injected failure")

// Recorder is a sink that copies every data block it receives.
type Recorder struct {
	pipeline.SinkBase
	// Blocks holds a copy of each data block in arrival order.
	Blocks [][]byte
	// Ends counts end-of-data markers.
	Ends int
	// AfterEnd counts data blocks received after an end-of-data marker.
	AfterEnd int
	// FailAt makes the FailAt-th data block fail with Err. Zero never fails.
	FailAt int
	// FailOnEnd makes end-of-data fail with Err.
	FailOnEnd bool
	Err       error
}

// Process records b.
func (r *Recorder) Process(b pipeline.Block) error {
	if b == nil {
		r.Ends++
		if r.FailOnEnd {
			return r.failure()
		}
		return nil
	}
	if r.Ends > 0 {
		r.AfterEnd++
	}
	r.Blocks = append(r.Blocks, bytes.Clone(b))
	if r.FailAt > 0 && len(r.Blocks) == r.FailAt {
		return r.failure()
	}
	return nil
}

func (r *Recorder) failure() error {
	if r.Err != nil {
		return r.Err
	}
	return ErrInjected
}

// Bytes returns the concatenation of every recorded block.
func (r *Recorder) Bytes() []byte {
	return bytes.Join(r.Blocks, nil)
}

// String returns Bytes as a string.
func (r *Recorder) String() string { return string(r.Bytes()) }

// Sizes returns the length of every recorded block.
func (r *Recorder) Sizes() []int {
	out := make([]int, len(r.Blocks))
	for i, b := range r.Blocks {
		out[i] = len(b)
	}
	return out
}

// ReusingFeed pushes Data in chunks of BlockSize through a single buffer
// and scribbles over that buffer after every push. A downstream node that
// keeps a reference instead of a copy ends up with garbage.
type ReusingFeed struct {
	pipeline.FeedBase
	Data      []byte
	BlockSize int
}

// Run pushes the data then end-of-data.
func (f *ReusingFeed) Run() error {
	bs := f.BlockSize
	if bs <= 0 {
		bs = 1
	}
	buf := make([]byte, bs)
	for off := 0; off < len(f.Data); off += bs {
		n := copy(buf, f.Data[off:])
		if err := f.Forward(buf[:n]); err != nil {
			return err
		}
		for i := range buf {
			buf[i] = 0xFF
		}
	}
	return f.Finish()
}

// FailingStage forwards blocks and fails once Limit blocks have passed.
// With FailOnEnd it fails on end-of-data instead.
type FailingStage struct {
	pipeline.FeedBase
	pipeline.SinkBase
	Limit     int
	FailOnEnd bool
	Err       error
	seen      int
}

// Process forwards b or fails.
func (s *FailingStage) Process(b pipeline.Block) error {
	if b == nil {
		if s.FailOnEnd {
			return s.failure()
		}
		return s.Finish()
	}
	s.seen++
	if !s.FailOnEnd && s.seen > s.Limit {
		return s.failure()
	}
	return s.Forward(b)
}

func (s *FailingStage) failure() error {
	if s.Err != nil {
		return s.Err
	}
	return ErrInjected
}

// ShortReader returns at most Max bytes per Read.
type ShortReader struct {
	R   io.Reader
	Max int
	// Calls counts Read invocations; Requested records each len(p).
	Calls     int
	Requested []int
}

func (r *ShortReader) Read(p []byte) (int, error) {
	r.Calls++
	r.Requested = append(r.Requested, len(p))
	if len(p) > r.Max {
		p = p[:r.Max]
	}
	return r.R.Read(p)
}

// OverReader reports one byte more than requested.
type OverReader struct{}

func (OverReader) Read(p []byte) (int, error) { return len(p) + 1, nil }

// StallReader never makes progress.
type StallReader struct{}

func (StallReader) Read([]byte) (int, error) { return 0, nil }

// FailingReader returns Err after serving Data.
type FailingReader struct {
	Data []byte
	Err  error
	off  int
}

func (r *FailingReader) Read(p []byte) (int, error) {
	if r.off < len(r.Data) {
		n := copy(p, r.Data[r.off:])
		r.off += n
		return n, nil
	}
	if r.Err != nil {
		return 0, r.Err
	}
	return 0, ErrInjected
}

// Closer records Close calls on a wrapped reader or writer.
type Closer struct {
	io.Reader
	io.Writer
	Closed int
}

// TrackReader wraps r.
func TrackReader(r io.Reader) *Closer { return &Closer{Reader: r} }

// TrackWriter wraps w.
func TrackWriter(w io.Writer) *Closer { return &Closer{Writer: w} }

// Close counts the call.
func (c *Closer) Close() error {
	c.Closed++
	return nil
}
