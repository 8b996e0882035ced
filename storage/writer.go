package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/kbukum/iopipe/errors"
	"github.com/kbukum/iopipe/logger"
	"github.com/kbukum/iopipe/pipeline"
)

var errNoEndOfData = stderrors.New("run ended without end-of-data")

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithMaxSize rejects objects larger than n bytes. Zero means no limit.
func WithMaxSize(n int64) WriterOption {
	return func(w *Writer) { w.maxSize = n }
}

// WithSpoolDir sets the directory for the temporary spool file. The
// default is os.TempDir().
func WithSpoolDir(dir string) WriterOption {
	return func(w *Writer) { w.spoolDir = dir }
}

// Writer is a sink that spools every block to a temporary file and uploads
// it on end-of-data. Nothing is uploaded when the run fails and the spool
// is removed on every exit path.
type Writer struct {
	pipeline.SinkBase
	ctx      context.Context
	store    Storage
	path     string
	maxSize  int64
	spoolDir string
	spool    *os.File
	written  int64
	done     bool
	log      *logger.Logger
}

// NewWriter returns a sink storing its input at path.
func NewWriter(ctx context.Context, store Storage, path string, opts ...WriterOption) *Writer {
	w := &Writer{ctx: ctx, store: store, path: path, log: logger.WithComponent("storage")}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Written returns the number of bytes accepted so far.
func (w *Writer) Written() int64 { return w.written }

// Run drives upstream and releases the spool.
func (w *Writer) Run() error {
	w.done = false
	w.written = 0
	defer w.release()
	if err := w.SinkBase.Run(); err != nil {
		return err
	}
	if !w.done {
		return errors.Internal(fmt.Errorf("%s: %w", w.path, errNoEndOfData))
	}
	return nil
}

// Process appends b to the spool. End-of-data uploads the spool.
func (w *Writer) Process(b pipeline.Block) error {
	if w.done {
		return errors.ProcessAfterEnd().WithDetail("path", w.path)
	}
	if w.spool == nil {
		f, err := os.CreateTemp(w.spoolDir, "iop-spool-*")
		if err != nil {
			return fmt.Errorf("create spool: %w", err)
		}
		w.spool = f
	}
	if b == nil {
		w.done = true
		return w.upload()
	}
	if w.maxSize > 0 && w.written+int64(len(b)) > w.maxSize {
		return errors.InvalidInput("size", fmt.Sprintf("object exceeds %d bytes", w.maxSize)).
			WithDetail(logger.FieldPath, w.path)
	}
	if _, err := w.spool.Write(b); err != nil {
		return fmt.Errorf("spool %s: %w", w.path, err)
	}
	w.written += int64(len(b))
	return nil
}

func (w *Writer) upload() error {
	if _, err := w.spool.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind spool: %w", err)
	}
	if err := w.store.Upload(w.ctx, w.path, w.spool); err != nil {
		return fmt.Errorf("upload %s: %w", w.path, err)
	}
	w.log.Debug("uploaded object", logger.Fields(logger.FieldPath, w.path, logger.FieldBytes, w.written))
	return nil
}

// release drops the spool. Its errors are ignored so the run error stays
// the reported one.
func (w *Writer) release() {
	if w.spool == nil {
		return
	}
	name := w.spool.Name()
	_ = w.spool.Close()
	_ = os.Remove(name)
	w.spool = nil
}
