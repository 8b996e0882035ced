package pipeline

import (
	"fmt"
	"io"

	"github.com/kbukum/iopipe/errors"
)

// Block is a chunk of bytes moving through a pipeline. A nil Block marks
// end-of-data; an empty non-nil Block is legal and carries nothing.
type Block = []byte

// Feed is a node that produces blocks and pushes them downstream.
type Feed interface {
	// Run produces the whole stream, pushing every data block and then
	// end-of-data exactly once into the downstream sink.
	Run() error
	Downstream() Sink
	SetDownstream(s Sink) error
}

// Sink is a node that receives blocks.
type Sink interface {
	// Process receives one block. A nil block is end-of-data.
	Process(b Block) error
	// Run drives the chain ending at this sink by delegating upstream.
	Run() error
	Upstream() Feed
	SetUpstream(f Feed) error
}

// Transform is a node in the middle of a chain.
type Transform interface {
	Feed
	Sink
}

// State is the per-run state of a feed. A run moves Idle, Emitting, Done,
// or ends in Errored. Driving and finalizing are not tracked separately:
// a feed is Idle until its first emitted block and Finish takes it straight
// to Done.
type State int

const (
	StateIdle State = iota
	StateEmitting
	StateDone
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEmitting:
		return "emitting"
	case StateDone:
		return "done"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FeedBase implements the downstream half of a node. Embed it in feeds and
// transforms and push through Forward, Emit and Finish.
type FeedBase struct {
	next  Sink
	state State
}

// Downstream returns the linked sink, or nil.
func (f *FeedBase) Downstream() Sink { return f.next }

// SetDownstream sets the owned forward link. Setting the current sink again
// is a no-op; replacing a different sink is a LinkMisuse.
func (f *FeedBase) SetDownstream(s Sink) error {
	if f.next != nil && f.next != s {
		return errors.LinkMisuse("feed already has a downstream sink")
	}
	f.next = s
	return nil
}

// State returns the current run state.
func (f *FeedBase) State() State { return f.state }

// Forward passes b unchanged to the downstream sink. Without a downstream
// the block is discarded. After end-of-data, or after a downstream failure,
// every push is rejected with ProcessAfterEnd.
func (f *FeedBase) Forward(b Block) error {
	if f.state == StateDone || f.state == StateErrored {
		return errors.ProcessAfterEnd().WithDetail("state", f.state.String())
	}
	if b == nil {
		f.state = StateDone
	} else {
		f.state = StateEmitting
	}
	if f.next == nil {
		return nil
	}
	if err := f.next.Process(b); err != nil {
		f.state = StateErrored
		return err
	}
	return nil
}

// Emit forwards b only when it holds data. Codecs returning a nil or empty
// slice for "no output yet" can call Emit without special casing.
func (f *FeedBase) Emit(b Block) error {
	if len(b) == 0 {
		return nil
	}
	return f.Forward(b)
}

// Finish forwards end-of-data.
func (f *FeedBase) Finish() error {
	return f.Forward(nil)
}

// Writer returns an io.Writer that emits every write downstream. Used to
// plug encoders that write into an io.Writer into a chain.
func (f *FeedBase) Writer() io.Writer {
	return emitWriter{f: f}
}

// detach clears the downstream link and run state so the feed can take part
// in another run.
func (f *FeedBase) detach() {
	if f.next != nil {
		if sb, ok := f.next.(interface{ clearUpstream() }); ok {
			sb.clearUpstream()
		}
	}
	f.next = nil
	f.state = StateIdle
}

type emitWriter struct {
	f *FeedBase
}

func (w emitWriter) Write(p []byte) (int, error) {
	if err := w.f.Emit(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// SinkBase implements the upstream half of a node. Embed it in sinks and
// transforms; the embedded Run delegates to the upstream feed.
type SinkBase struct {
	prev Feed
}

// Upstream returns the linked feed, or nil.
func (s *SinkBase) Upstream() Feed { return s.prev }

// SetUpstream sets the non-owning back link. Setting the current feed again
// is a no-op; replacing a different feed is a LinkMisuse.
func (s *SinkBase) SetUpstream(f Feed) error {
	if s.prev != nil && s.prev != f {
		return errors.LinkMisuse("sink already has an upstream feed")
	}
	s.prev = f
	return nil
}

// Run drives the chain by delegating to the upstream feed.
func (s *SinkBase) Run() error {
	if s.prev == nil {
		return errors.NoUpstream()
	}
	return s.prev.Run()
}

func (s *SinkBase) clearUpstream() { s.prev = nil }

// Link connects f to s and returns s so calls can be chained. Both nodes are
// checked before either is modified.
func Link(f Feed, s Sink) (Sink, error) {
	if f == nil || s == nil {
		return nil, errors.LinkMisuse("cannot link a nil node")
	}
	if d := f.Downstream(); d != nil && d != s {
		return nil, errors.LinkMisuse("feed already has a downstream sink")
	}
	if u := s.Upstream(); u != nil && u != f {
		return nil, errors.LinkMisuse("sink already has an upstream feed")
	}
	if reaches(f, s) {
		return nil, errors.LinkMisuse("link would create a cycle")
	}
	if err := f.SetDownstream(s); err != nil {
		return nil, err
	}
	if err := s.SetUpstream(f); err != nil {
		return nil, err
	}
	return s, nil
}

// reaches reports whether s is f itself or lies upstream of f.
func reaches(f Feed, s Sink) bool {
	var n any = f
	for n != nil {
		if n == any(s) {
			return true
		}
		sk, ok := n.(Sink)
		if !ok {
			return false
		}
		up := sk.Upstream()
		if up == nil {
			return false
		}
		n = up
	}
	return false
}

// Chain links feed and stages left to right and returns the last stage.
// Every stage except the last must be a Transform.
func Chain(feed Feed, stages ...Sink) (Sink, error) {
	if len(stages) == 0 {
		return nil, errors.LinkMisuse("chain needs at least one sink")
	}
	for i, st := range stages[:len(stages)-1] {
		if _, ok := st.(Transform); !ok {
			return nil, errors.LinkMisuse(fmt.Sprintf("chain stage %d is not a transform", i))
		}
	}
	cur := feed
	for i, st := range stages {
		if _, err := Link(cur, st); err != nil {
			return nil, fmt.Errorf("chain stage %d: %w", i, err)
		}
		if t, ok := st.(Transform); ok {
			cur = t
		}
	}
	return stages[len(stages)-1], nil
}
