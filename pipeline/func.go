package pipeline

// Func is a transform built from a function applied to every data block.
// End-of-data is forwarded unchanged.
type Func struct {
	FeedBase
	SinkBase
	fn func(Block) (Block, error)
}

// Map returns a transform that replaces each block with fn(block). An empty
// result is dropped.
func Map(fn func(Block) (Block, error)) *Func {
	return &Func{fn: fn}
}

// Tap returns a pass-through transform that calls fn with each data block
// before forwarding it. A non-nil error from fn aborts the run.
func Tap(fn func(Block) error) *Func {
	return Map(func(b Block) (Block, error) {
		if err := fn(b); err != nil {
			return nil, err
		}
		return b, nil
	})
}

// Process applies fn and emits the result.
func (f *Func) Process(b Block) error {
	if b == nil {
		return f.Finish()
	}
	out, err := f.fn(b)
	if err != nil {
		return err
	}
	return f.Emit(out)
}
