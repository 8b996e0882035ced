package sftp

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	pkgsftp "github.com/pkg/sftp"

	"github.com/kbukum/iopipe/errors"
	"github.com/kbukum/iopipe/logger"
	"github.com/kbukum/iopipe/pipeline"
)

var errNoEndOfData = stderrors.New("run ended without end-of-data")

// Writer is a sink creating or truncating a remote file and writing every
// block to it.
type Writer struct {
	pipeline.SinkBase
	ctx     context.Context
	session Session
	path    string
	f       *pkgsftp.File
	written int64
	done    bool
	log     *logger.Logger
}

// NewWriter returns a sink writing path over session.
func NewWriter(ctx context.Context, session Session, path string) *Writer {
	return &Writer{ctx: ctx, session: session, path: path, log: logger.WithComponent("sftp")}
}

// Written returns the number of bytes written in the current run.
func (w *Writer) Written() int64 { return w.written }

// Run opens the session and the file, drives upstream and closes both on
// every exit path.
func (w *Writer) Run() (err error) {
	w.done = false
	w.written = 0
	client, release, err := w.session.open(w.ctx, w.log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := release(); cerr != nil && err == nil {
			err = fmt.Errorf("close session: %w", cerr)
		}
	}()

	f, err := client.OpenFile(w.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("create %s: %w", w.path, err)
	}
	w.f = f
	defer func() {
		w.f = nil
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", w.path, cerr)
		}
	}()

	if err := w.SinkBase.Run(); err != nil {
		return err
	}
	if !w.done {
		return errors.Internal(fmt.Errorf("%s: %w", w.path, errNoEndOfData))
	}
	return nil
}

// Process writes b to the remote file.
func (w *Writer) Process(b pipeline.Block) error {
	if w.done {
		return errors.ProcessAfterEnd().WithDetail(logger.FieldPath, w.path)
	}
	if w.f == nil {
		return errors.Internal(fmt.Errorf("%s: writer is not running", w.path))
	}
	if b == nil {
		w.done = true
		return nil
	}
	n, err := w.f.Write(b)
	w.written += int64(n)
	if err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	return nil
}
