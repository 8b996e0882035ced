package sftp

import (
	"context"
	"fmt"

	"github.com/kbukum/iopipe/logger"
	"github.com/kbukum/iopipe/pipeline"
)

// Reader is a feed over a remote file. Offsets are served by seeking the
// remote file handle.
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
		log:           logger.WithComponent("sftp"),
	}
}

// Run opens the session and the file, pushes the selected bytes and closes
// both. Teardown errors are reported only when the run itself succeeded.
func (r *Reader) Run() (err error) {
	if err := r.Bounds().Validate(); err != nil {
		return err
	}
	client, release, err := r.session.open(r.ctx, r.log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := release(); cerr != nil && err == nil {
			err = fmt.Errorf("close session: %w", cerr)
		}
	}()

	f, err := client.Open(r.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", r.path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", r.path, cerr)
		}
	}()
	return r.Pump(f)
}
