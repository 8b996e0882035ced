package pipeline

import (
	stderrors "errors"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/iopipe/errors"
)

// PullFunc consumes r until io.EOF and writes its output to w.
type PullFunc func(r io.Reader, w io.Writer) error

var (
	errConsumerDone = stderrors.New("bridge consumer returned before end of input")
	errNoEndOfData  = stderrors.New("upstream returned without end-of-data")
)

// Bridge adapts a pull-based library into a transform. Blocks received from
// upstream are written into a pipe read by fn on a single helper goroutine;
// whatever fn writes to its io.Writer is emitted downstream. Only that
// goroutine pushes data downstream, and end-of-data is forwarded after fn
// returns. Each push blocks until fn has consumed the block.
type Bridge struct {
	FeedBase
	SinkBase
	fn    PullFunc
	pw    *io.PipeWriter
	group *errgroup.Group
	ended bool
}

// NewBridge returns a bridge running fn.
func NewBridge(fn PullFunc) *Bridge {
	return &Bridge{fn: fn}
}

// Run starts the helper goroutine, drives upstream and joins the goroutine
// on every exit path.
func (b *Bridge) Run() error {
	pr, pw := io.Pipe()
	b.pw = pw
	b.group = &errgroup.Group{}
	b.ended = false
	out := b.Writer()
	b.group.Go(func() error {
		err := b.fn(pr, out)
		if err != nil {
			pr.CloseWithError(err)
			return err
		}
		pr.CloseWithError(errors.New(errors.ErrCodeUnexpectedExtraData, "superfluous data received").WithCause(errConsumerDone))
		return nil
	})

	err := b.SinkBase.Run()
	if err != nil {
		pw.CloseWithError(err)
		_ = b.group.Wait()
		return err
	}
	if !b.ended {
		pw.CloseWithError(errNoEndOfData)
		_ = b.group.Wait()
		return errors.Internal(errNoEndOfData)
	}
	return nil
}

// Process writes b into the pipe. End-of-data closes the pipe, waits for the
// consumer and then forwards end-of-data.
func (b *Bridge) Process(blk Block) error {
	if b.pw == nil {
		return errors.Internal(stderrors.New("bridge is not running"))
	}
	if blk == nil {
		b.ended = true
		_ = b.pw.Close()
		if err := b.group.Wait(); err != nil {
			return err
		}
		return b.Finish()
	}
	if len(blk) == 0 {
		return nil
	}
	_, err := b.pw.Write(blk)
	return err
}
