package pipeline

import (
	"context"
)

// Iterator provides pull-based sequential access to a stream of values.
type Iterator[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the iterator.
	Close() error
}

// IteratorFeed pushes the values of a block iterator downstream. The
// iterator is closed when the run ends, whatever the outcome.
type IteratorFeed struct {
	FeedBase
	ctx  context.Context
	iter Iterator[Block]
}

// FromIterator returns a feed draining iter. ctx is passed to every Next.
func FromIterator(ctx context.Context, iter Iterator[Block]) *IteratorFeed {
	return &IteratorFeed{ctx: ctx, iter: iter}
}

// FromSlice returns a feed pushing blocks in order.
func FromSlice(blocks ...Block) *IteratorFeed {
	return FromIterator(context.Background(), &sliceIter{items: blocks})
}

// FromChannel returns a feed pushing every block received on ch until it is
// closed or ctx is done.
func FromChannel(ctx context.Context, ch <-chan Block) *IteratorFeed {
	return FromIterator(ctx, &channelIter{ch: ch})
}

// Run drains the iterator. A close error is reported only when the run
// itself succeeded.
func (f *IteratorFeed) Run() (err error) {
	defer func() {
		if cerr := f.iter.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	for {
		b, ok, err := f.iter.Next(f.ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := f.Emit(b); err != nil {
			return err
		}
	}
	return f.Finish()
}

type sliceIter struct {
	items []Block
	pos   int
}

func (it *sliceIter) Next(_ context.Context) (Block, bool, error) {
	if it.pos >= len(it.items) {
		return nil, false, nil
	}
	b := it.items[it.pos]
	it.pos++
	return b, true, nil
}

func (it *sliceIter) Close() error { return nil }

type channelIter struct {
	ch <-chan Block
}

func (it *channelIter) Next(ctx context.Context) (Block, bool, error) {
	select {
	case b, open := <-it.ch:
		if !open {
			return nil, false, nil
		}
		return b, true, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (it *channelIter) Close() error { return nil }

// Drain pulls every value of a block iterator into sink and then delivers
// end-of-data. It is the push-side counterpart of IteratorFeed for callers
// that already hold a sink and have no feed to link.
func Drain(ctx context.Context, iter Iterator[Block], sink Sink) error {
	var runErr error
	for {
		b, ok, err := iter.Next(ctx)
		if err != nil {
			runErr = err
			break
		}
		if !ok {
			runErr = sink.Process(nil)
			break
		}
		if len(b) == 0 {
			continue
		}
		if err := sink.Process(b); err != nil {
			runErr = err
			break
		}
	}
	if cerr := iter.Close(); cerr != nil && runErr == nil {
		return cerr
	}
	return runErr
}
