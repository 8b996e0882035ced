package pipeline

import (
	"bytes"
)

// Splitter pushes an in-memory byte slice downstream in fixed-size blocks.
type Splitter struct {
	FeedBase
	data      []byte
	blockSize int
}

// NewSplitter returns a feed over data. Only WithBlockSize is honoured.
func NewSplitter(data []byte, opts ...ReadOption) *Splitter {
	return &Splitter{data: data, blockSize: NewBounds(opts...).BlockSize}
}

// Run pushes the data then end-of-data. Empty data pushes only end-of-data.
func (s *Splitter) Run() error {
	for off := 0; off < len(s.data); off += s.blockSize {
		end := min(off+s.blockSize, len(s.data))
		if err := s.Forward(s.data[off:end]); err != nil {
			return err
		}
	}
	return s.Finish()
}

// Merger collects every block it receives. The zero value is ready to use
// and the collected bytes accumulate across runs.
type Merger struct {
	SinkBase
	buf    bytes.Buffer
	blocks int
	ends   int
}

// Process copies b into the internal buffer.
func (m *Merger) Process(b Block) error {
	if b == nil {
		m.ends++
		return nil
	}
	m.buf.Write(b)
	m.blocks++
	return nil
}

// Bytes returns the collected bytes.
func (m *Merger) Bytes() []byte { return m.buf.Bytes() }

// String returns the collected bytes as a string.
func (m *Merger) String() string { return m.buf.String() }

// Len returns the number of collected bytes.
func (m *Merger) Len() int { return m.buf.Len() }

// Blocks returns the number of data blocks received.
func (m *Merger) Blocks() int { return m.blocks }

// Ends returns how many end-of-data markers were received.
func (m *Merger) Ends() int { return m.ends }

// Reset discards the collected bytes and counters.
func (m *Merger) Reset() {
	m.buf.Reset()
	m.blocks = 0
	m.ends = 0
}
