package sftp_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/ssh/knownhosts"

	apperrors "github.com/kbukum/iopipe/errors"
	"github.com/kbukum/iopipe/net/sftp"
	"github.com/kbukum/iopipe/pipeline"
	"github.com/kbukum/iopipe/testutil"
	"github.com/kbukum/iopipe/testutil/fixtures"
)

func borrowed(t *testing.T) (sftp.Session, *testutil.SFTPServer) {
	t.Helper()
	srv := testutil.NewSFTPServer()
	testutil.T(t).Setup(srv)
	return sftp.Borrowed(srv.Client()), srv
}

func write(t *testing.T, s sftp.Session, path string, data []byte, bs int) {
	t.Helper()
	w := sftp.NewWriter(context.Background(), s, path)
	if _, err := pipeline.Link(pipeline.NewSplitter(data, pipeline.WithBlockSize(bs)), w); err != nil {
		t.Fatal(err)
	}
	if err := w.Run(); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if w.Written() != int64(len(data)) {
		t.Errorf("Written() = %d, want %d", w.Written(), len(data))
	}
}

func read(t *testing.T, s sftp.Session, path string, opts ...pipeline.ReadOption) (string, error) {
	t.Helper()
	rec := &testutil.Recorder{}
	if _, err := pipeline.Link(sftp.NewReader(context.Background(), s, path, opts...), rec); err != nil {
		t.Fatal(err)
	}
	err := rec.Run()
	return rec.String(), err
}

func TestBorrowed_RoundTrip(t *testing.T) {
	s, srv := borrowed(t)
	write(t, s, "/digits", []byte(fixtures.Digits), 3)

	tests := []struct {
		name string
		opts []pipeline.ReadOption
		want string
	}{
		{"whole", nil, fixtures.Digits},
		{"offset", []pipeline.ReadOption{pipeline.WithOffset(5)}, fixtures.Digits[5:]},
		{"offset size", []pipeline.ReadOption{pipeline.WithOffset(1), pipeline.WithSize(3), pipeline.WithBlockSize(2)}, fixtures.Digits[1:4]},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := read(t, s, "/digits", tc.opts...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}

	// The borrowed client is still usable after the runs.
	if _, err := srv.Client().Stat("/digits"); err != nil {
		t.Errorf("borrowed client closed: %v", err)
	}
}

func TestReader_PrematureEnd(t *testing.T) {
	s, _ := borrowed(t)
	write(t, s, "/short", []byte("abc"), 8)
	_, err := read(t, s, "/short", pipeline.WithSize(4))
	if !errors.Is(err, pipeline.ErrPrematureEndOfData) {
		t.Fatalf("err = %v, want premature end", err)
	}
}

func TestReader_Missing(t *testing.T) {
	s, _ := borrowed(t)
	if _, err := read(t, s, "/missing"); err == nil {
		t.Fatal("expected error")
	}
}

func TestReader_DownstreamErrorUnchanged(t *testing.T) {
	s, _ := borrowed(t)
	write(t, s, "/digits", []byte(fixtures.Digits), 4)
	boom := errors.New("boom")

	rec := &testutil.Recorder{}
	if _, err := pipeline.Chain(sftp.NewReader(context.Background(), s, "/digits", pipeline.WithBlockSize(2)), &testutil.FailingStage{Limit: 1, Err: boom}, rec); err != nil {
		t.Fatal(err)
	}
	if err := rec.Run(); err != boom {
		t.Fatalf("err = %v, want the stage's error unchanged", err)
	}
}

func TestWriter_TruncatesAndLargeInput(t *testing.T) {
	s, _ := borrowed(t)
	big := fixtures.Bytes(100_000, 7)
	write(t, s, "/big", big, 4096)
	write(t, s, "/big", []byte("small"), 2)
	got, err := read(t, s, "/big")
	if err != nil || got != "small" {
		t.Fatalf("got %d bytes, %v", len(got), err)
	}
}

func TestWriter_UpstreamFailureClosesFile(t *testing.T) {
	s, srv := borrowed(t)
	w := sftp.NewWriter(context.Background(), s, "/partial")
	if _, err := pipeline.Chain(pipeline.NewSplitter([]byte("123456"), pipeline.WithBlockSize(2)),
		&testutil.FailingStage{Limit: 1}, w); err != nil {
		t.Fatal(err)
	}
	if err := w.Run(); !errors.Is(err, testutil.ErrInjected) {
		t.Fatalf("err = %v, want injected", err)
	}
	f, err := srv.Client().Open("/partial")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	b, _ := io.ReadAll(f)
	if string(b) != "12" {
		t.Errorf("partial content %q", b)
	}
}

func TestSession_ZeroValue(t *testing.T) {
	_, err := read(t, sftp.Session{}, "/x")
	if apperrors.CodeOf(err) != apperrors.ErrCodeInvalidInput {
		t.Fatalf("err = %v, want invalid input", err)
	}
	if sftp.Borrowed(nil).IsManaged() || !sftp.Managed("h", sftp.Credentials{}).IsManaged() {
		t.Error("IsManaged mismatch")
	}
	if got := sftp.Managed("h", sftp.Credentials{}).Addr(); got != "h:22" {
		t.Errorf("Addr() = %q", got)
	}
}

func TestManaged_DialsPerRun(t *testing.T) {
	srv := testutil.NewSSHServer("alice", "secret")
	testutil.T(t).Setup(srv)
	s := sftp.Managed(srv.Addr(), sftp.Credentials{User: "alice", Password: "secret", InsecureIgnoreHostKey: true})

	write(t, s, "/m.txt", []byte("managed"), 3)
	got, err := read(t, s, "/m.txt", pipeline.WithOffset(2))
	if err != nil {
		t.Fatal(err)
	}
	if got != "naged" {
		t.Errorf("got %q", got)
	}
	if n := srv.Connections(); n != 2 {
		t.Errorf("connections = %d, want one per run", n)
	}
}

func TestManaged_KnownHosts(t *testing.T) {
	srv := testutil.NewSSHServer("alice", "secret")
	testutil.T(t).Setup(srv)

	kh := filepath.Join(t.TempDir(), "known_hosts")
	line := knownhosts.Line([]string{knownhosts.Normalize(srv.Addr())}, srv.HostKey())
	if err := os.WriteFile(kh, []byte(line+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := sftp.Managed(srv.Addr(), sftp.Credentials{User: "alice", Password: "secret", KnownHosts: kh})
	write(t, s, "/k", []byte("ok"), 2)

	empty := filepath.Join(t.TempDir(), "empty_known_hosts")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	bad := sftp.Managed(srv.Addr(), sftp.Credentials{User: "alice", Password: "secret", KnownHosts: empty})
	_, err := read(t, bad, "/k")
	if apperrors.CodeOf(err) != apperrors.ErrCodeConnectionFailed {
		t.Fatalf("err = %v, want connection failed", err)
	}
}

func TestManaged_BadPassword(t *testing.T) {
	srv := testutil.NewSSHServer("alice", "secret")
	testutil.T(t).Setup(srv)
	s := sftp.Managed(srv.Addr(), sftp.Credentials{User: "alice", Password: "wrong", InsecureIgnoreHostKey: true})
	_, err := read(t, s, "/x")
	if apperrors.CodeOf(err) != apperrors.ErrCodeConnectionFailed {
		t.Fatalf("err = %v, want connection failed", err)
	}
}

func TestCredentials_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		creds sftp.Credentials
	}{
		{"no user", sftp.Credentials{Password: "p"}},
		{"no auth", sftp.Credentials{User: "u"}},
		{"missing key file", sftp.Credentials{User: "u", KeyFile: "/nonexistent/key"}},
		{"missing known hosts", sftp.Credentials{User: "u", Password: "p", KnownHosts: "/nonexistent/known_hosts"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := read(t, sftp.Managed("127.0.0.1:1", tc.creds), "/x")
			if apperrors.CodeOf(err) != apperrors.ErrCodeInvalidInput {
				t.Errorf("err = %v, want invalid input", err)
			}
		})
	}
}
