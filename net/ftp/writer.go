package ftp

import (
	"context"
	"fmt"
	"io"

	jftp "github.com/jlaffaye/ftp"

	"github.com/kbukum/iopipe/logger"
	"github.com/kbukum/iopipe/pipeline"
)

// Writer is a sink storing its input with STOR. The library pulls the
// upload from a reader, so blocks reach it through a pipeline.Bridge.
type Writer struct {
	*pipeline.Bridge
	ctx     context.Context
	session Session
	path    string
	conn    *jftp.ServerConn
	log     *logger.Logger
}

// NewWriter returns a sink writing path over session.
func NewWriter(ctx context.Context, session Session, path string) *Writer {
	w := &Writer{ctx: ctx, session: session, path: path, log: logger.WithComponent("ftp")}
	w.Bridge = pipeline.NewBridge(w.store)
	return w
}

func (w *Writer) store(r io.Reader, _ io.Writer) error {
	if err := w.conn.Stor(w.path, r); err != nil {
		return fmt.Errorf("stor %s: %w", w.path, err)
	}
	return nil
}

// Run opens the session, drives upstream through the bridge and closes the
// session on every exit path.
func (w *Writer) Run() (err error) {
	conn, release, err := w.session.open(w.ctx, w.log)
	if err != nil {
		return err
	}
	w.conn = conn
	defer func() {
		w.conn = nil
		if cerr := release(); cerr != nil && err == nil {
			err = fmt.Errorf("close session: %w", cerr)
		}
	}()
	return w.Bridge.Run()
}
