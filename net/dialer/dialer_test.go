package dialer

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/kbukum/iopipe/errors"
	"github.com/kbukum/iopipe/resilience"
)

func TestDial_Direct(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err == nil {
			_ = c.Close()
		}
	}()

	t.Setenv("ALL_PROXY", "")
	conn, err := Dial(context.Background(), "tcp", ln.Addr().String(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	_ = conn.Close()
}

func TestDial_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	_, err = Dial(context.Background(), "tcp", addr, Options{})
	if errors.CodeOf(err) != errors.ErrCodeConnectionFailed {
		t.Fatalf("err = %v, want connection failed", err)
	}
	if appErr, _ := errors.AsAppError(err); !appErr.Retryable {
		t.Error("connection failures should be retryable")
	}
}

func TestDial_RetriesRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	retries := 0
	o := Options{Retry: resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		OnRetry:        func(int, error, time.Duration) { retries++ },
	}}
	_, err = Dial(context.Background(), "tcp", addr, o)
	if errors.CodeOf(err) != errors.ErrCodeConnectionFailed {
		t.Fatalf("err = %v, want connection failed", err)
	}
	if retries != 2 {
		t.Errorf("retries = %d, want 2", retries)
	}
}

func TestDial_RetryReachesLateListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	var late net.Listener
	o := Options{Retry: resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		OnRetry: func(int, error, time.Duration) {
			if late == nil {
				late, _ = net.Listen("tcp", addr)
			}
		},
	}}
	conn, err := Dial(context.Background(), "tcp", addr, o)
	if late != nil {
		defer late.Close()
	}
	if late == nil {
		t.Skip("port was taken before the listener could be reopened")
	}
	if err != nil {
		t.Fatal(err)
	}
	_ = conn.Close()
}

func TestOptions_BadProxy(t *testing.T) {
	tests := []string{"://nope", "ftp://proxy:21"}
	for _, u := range tests {
		if _, err := (Options{ProxyURL: u}).Dialer(); errors.CodeOf(err) != errors.ErrCodeInvalidInput {
			t.Errorf("%q: err = %v, want invalid input", u, err)
		}
	}
}

func TestOptions_SOCKSProxy(t *testing.T) {
	if _, err := (Options{ProxyURL: "socks5://127.0.0.1:1080"}).Dialer(); err != nil {
		t.Fatal(err)
	}
}

func TestDefaultPort(t *testing.T) {
	tests := []struct{ in, want string }{
		{"example.com", "example.com:22"},
		{"example.com:2222", "example.com:2222"},
		{"::1", "[::1]:22"},
	}
	for _, tc := range tests {
		if got := DefaultPort(tc.in, "22"); got != tc.want {
			t.Errorf("DefaultPort(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
