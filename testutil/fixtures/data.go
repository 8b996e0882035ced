package fixtures

import (
	"os"
	"path/filepath"
	"testing"
)

// Digits is the ten byte stream used by segment continuity tests.
const Digits = "0123456789"

// Nine is the nine byte stream used by split and merge tests.
const Nine = "123456789"

// Bytes returns n deterministic pseudo-random bytes for seed.
func Bytes(n int, seed uint32) []byte {
	out := make([]byte, n)
	x := seed | 1
	for i := range out {
		// xorshift32
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		out[i] = byte(x)
	}
	return out
}

// TempFile writes data to a file in a per-test directory and returns its path.
func TempFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
	return path
}
