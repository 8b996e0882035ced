package testutil_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kbukum/iopipe/testutil"
)

type mockComponent struct {
	name     string
	started  bool
	stopped  bool
	resets   int
	startErr error
	stopErr  error
}

func newMockComponent(name string) *mockComponent { return &mockComponent{name: name} }

func (m *mockComponent) Name() string { return m.name }

func (m *mockComponent) Start(context.Context) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.started = true
	return nil
}

func (m *mockComponent) Stop(context.Context) error {
	m.stopped = true
	return m.stopErr
}

func (m *mockComponent) Reset(context.Context) error {
	m.resets++
	return nil
}

func TestTHelper_SetupRegistersCleanup(t *testing.T) {
	comp := newMockComponent("test")
	t.Run("inner", func(t *testing.T) {
		testutil.T(t).Setup(comp)
		testutil.T(t).Reset(comp)
	})
	if !comp.stopped {
		t.Error("component should be stopped when the subtest ends")
	}
	if comp.resets != 1 {
		t.Errorf("resets = %d, want 1", comp.resets)
	}
}

func TestTHelper_SetupStartFailure(t *testing.T) {
	ok := newMockComponent("ok")
	broken := newMockComponent("broken")
	broken.startErr = errors.New("no port")

	ft := &fatalRecorder{TB: t}
	func() {
		defer func() { _ = recover() }()
		testutil.T(ft).Setup(ok, broken)
	}()
	if !ft.failed {
		t.Error("a start failure should fail the test")
	}
	if !ok.started {
		t.Error("components before the failing one should have started")
	}
}

// fatalRecorder records Fatalf instead of ending the test.
type fatalRecorder struct {
	testing.TB
	failed bool
}

func (f *fatalRecorder) Helper() {}

func (f *fatalRecorder) Fatalf(string, ...any) {
	f.failed = true
	panic("fatal")
}

func TestRedisServer(t *testing.T) {
	srv := testutil.NewRedisServer()
	testutil.T(t).Setup(srv)

	ctx := context.Background()
	if err := srv.Client().Set(ctx, "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	testutil.T(t).Reset(srv)
	if n, _ := srv.Client().Exists(ctx, "k").Result(); n != 0 {
		t.Error("expected Reset to flush keys")
	}
}

func TestSFTPServer(t *testing.T) {
	srv := testutil.NewSFTPServer()
	testutil.T(t).Setup(srv)

	f, err := srv.Client().Create("/hello.txt")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.Write([]byte("hi")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	st, err := srv.Client().Stat("/hello.txt")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Size() != 2 {
		t.Errorf("size = %d, want 2", st.Size())
	}
}
