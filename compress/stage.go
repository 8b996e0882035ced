package compress

import (
	"io"

	"github.com/kbukum/iopipe/errors"
	"github.com/kbukum/iopipe/pipeline"
)

// Option configures a Compressor.
type Option func(*Compressor)

// WithLevel sets the compression level in the codec's own scale.
func WithLevel(level int) Option {
	return func(c *Compressor) { c.level = level }
}

// Compressor is a transform compressing the stream. The encoder writes
// straight into the downstream sink.
type Compressor struct {
	pipeline.FeedBase
	pipeline.SinkBase
	name  string
	codec codec
	level int
	enc   io.WriteCloser
}

// NewCompressor returns a compressor for the named codec.
func NewCompressor(name string, opts ...Option) (*Compressor, error) {
	name, c, err := lookup(name)
	if err != nil {
		return nil, err
	}
	cmp := &Compressor{name: name, codec: c, level: DefaultLevel}
	for _, opt := range opts {
		opt(cmp)
	}
	return cmp, nil
}

// Codec returns the codec name.
func (c *Compressor) Codec() string { return c.name }

// Process compresses b. End-of-data closes the encoder, which flushes the
// trailer downstream.
func (c *Compressor) Process(b pipeline.Block) error {
	if c.enc == nil {
		enc, err := c.codec.newWriter(c.Writer(), c.level)
		if err != nil {
			return errors.CodecFailure(c.name, err)
		}
		c.enc = enc
	}
	if b == nil {
		if err := c.enc.Close(); err != nil {
			return err
		}
		return c.Finish()
	}
	_, err := c.enc.Write(b)
	return err
}

// NewDecompressor returns a transform decompressing the named codec. The
// decoder runs on the bridge goroutine; malformed input fails with
// CodecFailure while downstream errors pass through unchanged.
func NewDecompressor(name string) (*pipeline.Bridge, error) {
	name, c, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return pipeline.NewBridge(func(r io.Reader, w io.Writer) error {
		tw := &trackingWriter{w: w}
		dec, err := c.newReader(r)
		if err != nil {
			return errors.CodecFailure(name, err)
		}
		_, err = io.Copy(tw, dec)
		cerr := dec.Close()
		switch {
		case err != nil && err == tw.err:
			return err
		case err != nil:
			return errors.CodecFailure(name, err)
		case cerr != nil:
			return errors.CodecFailure(name, cerr)
		}
		return nil
	}), nil
}

// trackingWriter remembers the error returned by the downstream writer so
// it is not mistaken for a decoding failure.
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	}
	return n, err
}
