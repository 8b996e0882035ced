package ftp

import (
	"context"
	"fmt"

	"github.com/kbukum/iopipe/logger"
	"github.com/kbukum/iopipe/pipeline"
	"github.com/kbukum/iopipe/util"
)

// Reader is a feed over a remote file fetched with RETR. An offset is sent
// as REST before the transfer starts.
type Reader struct {
	pipeline.BoundedReader
	ctx     context.Context
	session Session
	path    string
	log     *logger.Logger
}

// NewReader returns a feed reading path over session.
func NewReader(ctx context.Context, session Session, path string, opts ...pipeline.ReadOption) *Reader {
	return &Reader{
		BoundedReader: pipeline.NewBoundedReader(opts...),
		ctx:           ctx,
		session:       session,
		path:          path,
		log:           logger.WithComponent("ftp"),
	}
}

// Run opens the session, transfers the selected bytes and closes the data
// connection and the session on every exit path.
//
// A transfer stopped early because the size budget was met is aborted by
// the server, so the close error is not reported in that case.
func (r *Reader) Run() (err error) {
	b := r.Bounds()
	if err := b.Validate(); err != nil {
		return err
	}
	conn, release, err := r.session.open(r.ctx, r.log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := release(); cerr != nil && err == nil {
			err = fmt.Errorf("close session: %w", cerr)
		}
	}()

	resp, err := conn.RetrFrom(r.path, uint64(util.Deref(b.Offset)))
	if err != nil {
		return fmt.Errorf("retr %s: %w", r.path, err)
	}
	defer func() {
		cerr := resp.Close()
		if cerr == nil || err != nil {
			return
		}
		if b.Size != nil {
			r.log.Debug("transfer closed after size budget", logger.Fields(logger.FieldPath, r.path, logger.FieldError, cerr.Error()))
			return
		}
		err = fmt.Errorf("close transfer %s: %w", r.path, cerr)
	}()
	return r.PumpPositioned(resp)
}
