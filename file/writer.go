package file

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kbukum/iopipe/errors"
	"github.com/kbukum/iopipe/logger"
	"github.com/kbukum/iopipe/pipeline"
)

var errNoEndOfData = stderrors.New("run ended without end-of-data")

// IOWriter is a sink writing every block to a borrowed io.Writer. The
// writer is never closed; on end-of-data it is flushed when it has a
// Flush() error method.
type IOWriter struct {
	pipeline.SinkBase
	w io.Writer
}

// NewIOWriter returns a sink writing to w.
func NewIOWriter(w io.Writer) *IOWriter {
	return &IOWriter{w: w}
}

// Process writes b to the writer.
func (w *IOWriter) Process(b pipeline.Block) error {
	if b == nil {
		if f, ok := w.w.(interface{ Flush() error }); ok {
			return f.Flush()
		}
		return nil
	}
	if _, err := w.w.Write(b); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

type writeOptions struct {
	mode   os.FileMode
	append bool
	atomic bool
}

// WriteOption configures a Writer.
type WriteOption func(*writeOptions)

// WithFileMode sets the permissions of a created file. Default 0644.
func WithFileMode(mode os.FileMode) WriteOption {
	return func(o *writeOptions) { o.mode = mode }
}

// WithAppend appends to an existing file instead of truncating it.
func WithAppend() WriteOption {
	return func(o *writeOptions) { o.append = true }
}

// WithAtomic writes to a temporary file next to the target and renames it
// into place on end-of-data. A failed run leaves the target untouched.
func WithAtomic() WriteOption {
	return func(o *writeOptions) { o.atomic = true }
}

type writerState int

const (
	writerIdle writerState = iota
	writerOpen
	writerClosed
)

// Writer is a sink writing to a file it owns for the run.
type Writer struct {
	pipeline.SinkBase
	path  string
	opts  writeOptions
	f     *os.File
	tmp   string
	state writerState
	log   *logger.Logger
}

// NewWriter returns a sink writing to path.
func NewWriter(path string, opts ...WriteOption) *Writer {
	o := writeOptions{mode: 0o644}
	for _, opt := range opts {
		opt(&o)
	}
	return &Writer{path: path, opts: o, log: logger.WithComponent("file")}
}

// Path returns the target path.
func (w *Writer) Path() string { return w.path }

// Run opens the file, drives upstream and releases the file on every exit
// path. On failure an atomic writer removes its temporary file.
func (w *Writer) Run() (err error) {
	w.state = writerIdle
	if err := w.open(); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			w.abort()
		}
	}()
	if err := w.SinkBase.Run(); err != nil {
		return err
	}
	if w.state != writerClosed {
		return errors.Internal(fmt.Errorf("%s: %w", w.path, errNoEndOfData))
	}
	return nil
}

// Process writes b. End-of-data closes the file and, for an atomic writer,
// renames it into place.
func (w *Writer) Process(b pipeline.Block) error {
	switch w.state {
	case writerClosed:
		return errors.ProcessAfterEnd().WithDetail("path", w.path)
	case writerIdle:
		if err := w.open(); err != nil {
			return err
		}
	}
	if b == nil {
		return w.commit()
	}
	if _, err := w.f.Write(b); err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	return nil
}

func (w *Writer) open() error {
	if w.state == writerOpen {
		return nil
	}
	if w.opts.atomic && w.opts.append {
		return errors.InvalidInput("append", "atomic writes cannot append")
	}
	var err error
	if w.opts.atomic {
		dir, base := filepath.Split(w.path)
		if dir == "" {
			dir = "."
		}
		w.f, err = os.CreateTemp(dir, "."+base+".tmp-*")
		if err == nil {
			w.tmp = w.f.Name()
			err = w.f.Chmod(w.opts.mode)
		}
	} else {
		flags := os.O_WRONLY | os.O_CREATE
		if w.opts.append {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		w.f, err = os.OpenFile(w.path, flags, w.opts.mode)
	}
	if err != nil {
		w.abort()
		return fmt.Errorf("open %s: %w", w.path, err)
	}
	w.state = writerOpen
	w.log.Debug("opened file for writing", logger.Fields(logger.FieldPath, w.path, "atomic", w.opts.atomic))
	return nil
}

func (w *Writer) commit() error {
	f := w.f
	w.f = nil
	w.state = writerClosed
	if err := f.Close(); err != nil {
		w.removeTemp()
		return fmt.Errorf("close %s: %w", w.path, err)
	}
	if w.tmp != "" {
		if err := os.Rename(w.tmp, w.path); err != nil {
			w.removeTemp()
			return fmt.Errorf("rename into %s: %w", w.path, err)
		}
		w.tmp = ""
	}
	w.log.Debug("closed file", logger.Fields(logger.FieldPath, w.path))
	return nil
}

// abort releases the file after a failure. Its own errors are dropped so
// the run error stays the reported one.
func (w *Writer) abort() {
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.removeTemp()
	w.state = writerClosed
}

func (w *Writer) removeTemp() {
	if w.tmp != "" {
		_ = os.Remove(w.tmp)
		w.tmp = ""
	}
}
