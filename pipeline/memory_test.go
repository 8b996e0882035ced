package pipeline_test

import (
	"testing"

	"github.com/kbukum/iopipe/pipeline"
	"github.com/kbukum/iopipe/testutil"
	"github.com/kbukum/iopipe/testutil/fixtures"
)

func TestSplitMerge_RoundTrip(t *testing.T) {
	for bs := 1; bs <= 10; bs++ {
		src := pipeline.NewSplitter([]byte(fixtures.Nine), pipeline.WithBlockSize(bs))
		dst := &pipeline.Merger{}
		if _, err := pipeline.Link(src, dst); err != nil {
			t.Fatal(err)
		}
		if err := dst.Run(); err != nil {
			t.Fatalf("bs=%d: %v", bs, err)
		}
		if dst.String() != fixtures.Nine {
			t.Errorf("bs=%d: got %q", bs, dst.String())
		}
		wantBlocks := (len(fixtures.Nine) + bs - 1) / bs
		if dst.Blocks() != wantBlocks {
			t.Errorf("bs=%d: blocks = %d, want %d", bs, dst.Blocks(), wantBlocks)
		}
	}
}

func TestSplitter_Empty(t *testing.T) {
	rec := &testutil.Recorder{}
	if _, err := pipeline.Link(pipeline.NewSplitter(nil), rec); err != nil {
		t.Fatal(err)
	}
	if err := rec.Run(); err != nil {
		t.Fatal(err)
	}
	if len(rec.Blocks) != 0 || rec.Ends != 1 {
		t.Errorf("blocks=%d ends=%d", len(rec.Blocks), rec.Ends)
	}
}

func TestMerger_AliasingSafety(t *testing.T) {
	data := fixtures.Bytes(100, 3)
	for bs := 1; bs <= 11; bs++ {
		feed := &testutil.ReusingFeed{Data: data, BlockSize: bs}
		m := &pipeline.Merger{}
		if _, err := pipeline.Link(feed, m); err != nil {
			t.Fatal(err)
		}
		if err := m.Run(); err != nil {
			t.Fatal(err)
		}
		if string(m.Bytes()) != string(data) {
			t.Fatalf("bs=%d: merger retained a reused buffer", bs)
		}
	}
}

func TestMerger_ReusableAcrossRuns(t *testing.T) {
	m := &pipeline.Merger{}
	r := pipeline.NewSegmentReader(pipeline.ReaderNext(newStringReader("abcdef"), 4))
	for _, n := range []int64{2, 4} {
		if _, err := pipeline.Link(r.Prepare(n), m); err != nil {
			t.Fatal(err)
		}
		if err := m.Run(); err != nil {
			t.Fatal(err)
		}
	}
	if m.String() != "abcdef" || m.Ends() != 2 {
		t.Errorf("got %q ends=%d", m.String(), m.Ends())
	}
	m.Reset()
	if m.Len() != 0 || m.Blocks() != 0 {
		t.Error("Reset should clear the merger")
	}
}
