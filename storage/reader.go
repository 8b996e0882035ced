package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/kbukum/iopipe/logger"
	"github.com/kbukum/iopipe/pipeline"
	"github.com/kbukum/iopipe/util"
)

// Reader is a feed over one stored object. A non-zero offset is served by
// a RangeDownloader when the backend has one; otherwise the downloaded
// body must be seekable.
type Reader struct {
	pipeline.BoundedReader
	ctx   context.Context
	store Storage
	path  string
	log   *logger.Logger
}

// NewReader returns a feed reading path from store.
func NewReader(ctx context.Context, store Storage, path string, opts ...pipeline.ReadOption) *Reader {
	return &Reader{
		BoundedReader: pipeline.NewBoundedReader(opts...),
		ctx:           ctx,
		store:         store,
		path:          path,
		log:           logger.WithComponent("storage"),
	}
}

// Run downloads the object and pushes the selected bytes. The body is
// closed on every exit path; a close error is reported only when the run
// itself succeeded.
func (r *Reader) Run() (err error) {
	b := r.Bounds()
	if err := b.Validate(); err != nil {
		return err
	}

	off := util.Deref(b.Offset)
	ranged := false
	var body io.ReadCloser
	if rd, ok := r.store.(RangeDownloader); ok && off > 0 {
		body, err = rd.DownloadRange(r.ctx, r.path, off)
		ranged = true
	} else {
		body, err = r.store.Download(r.ctx, r.path)
	}
	if err != nil {
		return err
	}
	r.log.Debug("opened object for reading", logger.Fields(logger.FieldPath, r.path, "offset", off, "ranged", ranged))
	defer func() {
		if cerr := body.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", r.path, cerr)
		}
	}()

	if ranged || off == 0 {
		return r.PumpPositioned(body)
	}
	return r.Pump(body)
}
