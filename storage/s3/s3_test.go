package s3_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/iopipe/pipeline"
	"github.com/kbukum/iopipe/storage"
	"github.com/kbukum/iopipe/storage/s3"
	"github.com/kbukum/iopipe/testutil"
)

// fakeS3 serves GET and HEAD for path-style requests on one bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	ranges  []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key, ok := strings.CutPrefix(r.URL.Path, "/bucket/")
	if !ok {
		http.Error(w, "no such bucket", http.StatusNotFound)
		return
	}
	f.mu.Lock()
	body, found := f.objects[key]
	if rng := r.Header.Get("Range"); rng != "" {
		f.ranges = append(f.ranges, rng)
	}
	f.mu.Unlock()

	switch r.Method {
	case http.MethodHead:
		if !found {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		if !found {
			writeError(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		if rng := r.Header.Get("Range"); rng != "" {
			var start int
			if _, err := fmt.Sscanf(rng, "bytes=%d-", &start); err != nil {
				writeError(w, http.StatusBadRequest, "InvalidArgument")
				return
			}
			if start >= len(body) {
				writeError(w, http.StatusRequestedRangeNotSatisfiable, "InvalidRange")
				return
			}
			w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, len(body)-1, len(body)))
			w.WriteHeader(http.StatusPartialContent)
			_, _ = io.WriteString(w, body[start:])
			return
		}
		_, _ = io.WriteString(w, body)
	default:
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed")
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<Error><Code>%s</Code><Message>%s</Message></Error>", code, code)
}

func newStore(t *testing.T, objects map[string]string) (*s3.Storage, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: objects}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	s, err := s3.NewStorage(context.Background(), &s3.Config{
		Bucket:    "bucket",
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		AccessKey: "test",
		SecretKey: "test",
	})
	if err != nil {
		t.Fatal(err)
	}
	return s, fake
}

func TestReader_UsesRangeRequest(t *testing.T) {
	s, fake := newStore(t, map[string]string{"digits": "0123456789"})
	rec := &testutil.Recorder{}
	r := storage.NewReader(context.Background(), s, "digits", pipeline.WithOffset(4), pipeline.WithSize(3))
	if _, err := pipeline.Link(r, rec); err != nil {
		t.Fatal(err)
	}
	if err := rec.Run(); err != nil {
		t.Fatal(err)
	}
	if rec.String() != "456" {
		t.Errorf("got %q, want 456", rec.String())
	}
	if len(fake.ranges) != 1 || fake.ranges[0] != "bytes=4-" {
		t.Errorf("ranges = %v", fake.ranges)
	}
}

func TestDownloadRange_PastEnd(t *testing.T) {
	s, _ := newStore(t, map[string]string{"digits": "0123456789"})
	rc, err := s.DownloadRange(context.Background(), "digits", 10)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	if b, _ := io.ReadAll(rc); len(b) != 0 {
		t.Errorf("got %q, want empty", b)
	}
}

func TestDownload_Whole(t *testing.T) {
	s, fake := newStore(t, map[string]string{"a/b": "hello"})
	m := &pipeline.Merger{}
	if _, err := pipeline.Link(storage.NewReader(context.Background(), s, "a/b"), m); err != nil {
		t.Fatal(err)
	}
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if m.String() != "hello" || len(fake.ranges) != 0 {
		t.Errorf("got %q ranges=%v", m.String(), fake.ranges)
	}
}

func TestDownload_NotFound(t *testing.T) {
	s, _ := newStore(t, map[string]string{})
	if _, err := s.Download(context.Background(), "missing"); err == nil {
		t.Fatal("expected error")
	}
}

func TestExists(t *testing.T) {
	s, _ := newStore(t, map[string]string{"k": "v"})
	ctx := context.Background()
	if ok, err := s.Exists(ctx, "k"); err != nil || !ok {
		t.Errorf("Exists(k) = %v, %v", ok, err)
	}
	if ok, err := s.Exists(ctx, "missing"); err != nil || ok {
		t.Errorf("Exists(missing) = %v, %v", ok, err)
	}
}

func TestURLs(t *testing.T) {
	s, _ := newStore(t, nil)
	ctx := context.Background()
	u, err := s.URL(ctx, "k")
	if err != nil || !strings.HasSuffix(u, "/bucket/k") {
		t.Errorf("URL = %q, %v", u, err)
	}
	signed, err := s.SignedURL(ctx, "k", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(signed, "X-Amz-Signature=") || !strings.Contains(signed, "X-Amz-Expires=60") {
		t.Errorf("SignedURL = %q", signed)
	}
}

func TestConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     s3.Config
		wantErr bool
	}{
		{"valid", s3.Config{Bucket: "b"}, false},
		{"no bucket", s3.Config{}, true},
		{"half credentials", s3.Config{Bucket: "b", AccessKey: "ak"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.ApplyDefaults()
			if err := tc.cfg.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
