// Package random provides a feed of cryptographically secure random bytes.
package random

import (
	"crypto/rand"
	"fmt"

	"github.com/kbukum/iopipe/errors"
	"github.com/kbukum/iopipe/pipeline"
)

// Generator pushes size random bytes in blocks of the configured block size.
type Generator struct {
	pipeline.FeedBase
	size      int64
	blockSize int
}

// NewGenerator returns a feed of size random bytes. Only WithBlockSize is
// honoured from opts.
func NewGenerator(size int64, opts ...pipeline.ReadOption) *Generator {
	return &Generator{size: size, blockSize: pipeline.NewBounds(opts...).BlockSize}
}

// Run pushes the bytes then end-of-data. The block buffer is reused.
func (g *Generator) Run() error {
	if g.size < 0 {
		return errors.InvalidInput("size", fmt.Sprintf("must not be negative (got %d)", g.size))
	}
	buf := make([]byte, min(int64(g.blockSize), g.size))
	for left := g.size; left > 0; {
		n := int(min(int64(len(buf)), left))
		if _, err := rand.Read(buf[:n]); err != nil {
			return fmt.Errorf("random: %w", err)
		}
		if err := g.Forward(buf[:n]); err != nil {
			return err
		}
		left -= int64(n)
	}
	return g.Finish()
}
