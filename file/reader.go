package file

import (
	"fmt"
	"io"
	"os"

	"github.com/kbukum/iopipe/logger"
	"github.com/kbukum/iopipe/pipeline"
)

// IOReader is a feed over a borrowed io.Reader. The reader is never closed.
type IOReader struct {
	pipeline.BoundedReader
	r io.Reader
}

// NewIOReader returns a feed reading r. An offset requires r to be an
// io.Seeker.
func NewIOReader(r io.Reader, opts ...pipeline.ReadOption) *IOReader {
	return &IOReader{BoundedReader: pipeline.NewBoundedReader(opts...), r: r}
}

// Run pushes the selected bytes of r.
func (r *IOReader) Run() error {
	return r.Pump(r.r)
}

// Reader is a feed over a file opened for the run.
type Reader struct {
	pipeline.BoundedReader
	path string
	log  *logger.Logger
}

// NewReader returns a feed reading the file at path.
func NewReader(path string, opts ...pipeline.ReadOption) *Reader {
	return &Reader{
		BoundedReader: pipeline.NewBoundedReader(opts...),
		path:          path,
		log:           logger.WithComponent("file"),
	}
}

// Run opens the file, pushes the selected bytes and closes it. A close
// error is reported only when the run itself succeeded.
func (r *Reader) Run() (err error) {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", r.path, err)
	}
	r.log.Debug("opened file for reading", logger.Fields(logger.FieldPath, r.path))
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", r.path, cerr)
		}
	}()
	return r.Pump(f)
}

// NewSegmentReader returns a segment reader over a borrowed reader. Only
// WithBlockSize is honoured.
func NewSegmentReader(r io.Reader, opts ...pipeline.ReadOption) *pipeline.SegmentReader {
	return pipeline.NewSegmentReader(pipeline.ReaderNext(r, pipeline.NewBounds(opts...).BlockSize))
}
