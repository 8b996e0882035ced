package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	apperrors "github.com/kbukum/iopipe/errors"
	"github.com/kbukum/iopipe/testutil"
	"github.com/kbukum/iopipe/testutil/fixtures"
)

type result struct {
	stdout string
	stderr string
	err    error
}

// iop runs one command line in process.
func iop(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func mustIOP(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	r := iop(t, stdin, args...)
	if r.err != nil {
		t.Fatalf("iop %s: %v\nstderr:\n%s", strings.Join(args, " "), r.err, r.stderr)
	}
	return r
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "iop.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestCopy_FileRanges(t *testing.T) {
	src := fixtures.TempFile(t, "digits", []byte(fixtures.Digits))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"whole", nil, fixtures.Digits},
		{"offset", []string{"--offset", "7"}, "789"},
		{"offset and size", []string{"--offset", "2", "--size", "5", "--block-size", "2"}, "23456"},
		{"zero size", []string{"--size", "0"}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dst := filepath.Join(t.TempDir(), "out")
			mustIOP(t, "", append([]string{"copy", src, dst}, tc.args...)...)
			if got := string(readFile(t, dst)); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCopy_Stdio(t *testing.T) {
	r := mustIOP(t, fixtures.Nine, "copy", "-", "-", "--block-size", "4")
	if r.stdout != fixtures.Nine {
		t.Errorf("stdout = %q", r.stdout)
	}
}

func TestCopy_LimitRate(t *testing.T) {
	data := fixtures.Bytes(3000, 5)
	src := fixtures.TempFile(t, "data", data)
	dst := filepath.Join(t.TempDir(), "out")

	start := time.Now()
	mustIOP(t, "", "copy", src, dst, "--limit-rate", "2000", "--block-size", "500")
	if elapsed := time.Since(start); elapsed < 400*time.Millisecond {
		t.Errorf("3000 bytes at 2000 B/s took %v", elapsed)
	}
	if !bytes.Equal(readFile(t, dst), data) {
		t.Error("throttled copy changed the data")
	}
}

func TestCopy_PrematureEndLeavesNoOutput(t *testing.T) {
	src := fixtures.TempFile(t, "digits", []byte(fixtures.Digits))
	dst := filepath.Join(t.TempDir(), "out")

	r := iop(t, "", "copy", src, dst, "--size", "20")
	if apperrors.CodeOf(r.err) != apperrors.ErrCodePrematureEndOfData {
		t.Fatalf("err = %v, want premature end-of-data", r.err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Errorf("destination should not exist, stat err = %v", err)
	}
}

func TestCopy_Errors(t *testing.T) {
	dir := t.TempDir()
	src := fixtures.TempFile(t, "digits", []byte(fixtures.Digits))

	tests := []struct {
		name string
		args []string
		code apperrors.ErrorCode
	}{
		{"missing source", []string{"copy", filepath.Join(dir, "nope"), filepath.Join(dir, "x")}, apperrors.ErrCodeNotFound},
		{"bad size", []string{"copy", src, "-", "--size", "lots"}, apperrors.ErrCodeInvalidInput},
		{"bad scheme", []string{"copy", "gopher://h/x", "-"}, apperrors.ErrCodeInvalidInput},
		{"decrypt without key", []string{"copy", src, "-", "--decrypt"}, apperrors.ErrCodeInvalidInput},
		{"unknown codec", []string{"copy", src, "-", "--compress", "lzma"}, apperrors.ErrCodeInvalidInput},
		{"unknown digest", []string{"copy", src, "-", "--digest", "crc7"}, apperrors.ErrCodeInvalidInput},
		{"zero rate", []string{"copy", src, "-", "--limit-rate", "0"}, apperrors.ErrCodeInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(passphraseEnv, "")
			r := iop(t, "", tc.args...)
			if got := apperrors.CodeOf(r.err); got != tc.code {
				t.Errorf("code = %q (err %v), want %q", got, r.err, tc.code)
			}
		})
	}
}

func TestCopy_CompressEncryptRoundTrip(t *testing.T) {
	plain := fixtures.Bytes(200_000, 7)
	src := fixtures.TempFile(t, "plain", plain)
	dir := t.TempDir()
	sealed := filepath.Join(dir, "data.zst.enc")
	back := filepath.Join(dir, "back")

	for _, cipher := range []string{"aes-256-cbc", "chacha20"} {
		t.Run(cipher, func(t *testing.T) {
			mustIOP(t, "", "copy", src, sealed, "--compress", "zstd", "--encrypt", "--cipher", cipher, "--passphrase", "pw", "--block-size", "3000")
			if bytes.Contains(readFile(t, sealed), plain[:64]) {
				t.Fatal("output contains plaintext")
			}
			mustIOP(t, "", "copy", sealed, back, "--decrypt", "--decompress", "zstd", "--cipher", cipher, "--passphrase", "pw", "--block-size", "777")
			if diff := cmp.Diff(plain, readFile(t, back)); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCopy_AutoCodec(t *testing.T) {
	src := fixtures.TempFile(t, "nine", []byte(strings.Repeat(fixtures.Nine, 100)))
	dir := t.TempDir()
	gz := filepath.Join(dir, "nine.gz")

	mustIOP(t, "", "copy", src, gz, "--compress", "auto")
	if data := readFile(t, gz); len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		t.Fatalf("not a gzip stream: % x", data[:min(4, len(data))])
	}
	r := mustIOP(t, "", "copy", gz, "-", "--decompress", "auto")
	if r.stdout != strings.Repeat(fixtures.Nine, 100) {
		t.Errorf("decompressed %d bytes", len(r.stdout))
	}
}

var keyLine = regexp.MustCompile(`(?m)^key  ([0-9a-f]{64})$`)

func TestCopy_GeneratedKeyIsPrinted(t *testing.T) {
	t.Setenv(passphraseEnv, "")
	src := fixtures.TempFile(t, "nine", []byte(fixtures.Nine))
	enc := filepath.Join(t.TempDir(), "nine.enc")

	r := mustIOP(t, "", "copy", src, enc, "--encrypt")
	m := keyLine.FindStringSubmatch(r.stderr)
	if m == nil {
		t.Fatalf("no key line in stderr:\n%s", r.stderr)
	}
	back := mustIOP(t, "", "copy", enc, "-", "--decrypt", "--key", m[1])
	if back.stdout != fixtures.Nine {
		t.Errorf("got %q", back.stdout)
	}
}

func TestCopy_DigestFlag(t *testing.T) {
	r := mustIOP(t, fixtures.Nine, "copy", "-", "-", "--digest", "sha256", "--digest", "md5")
	if r.stdout != fixtures.Nine {
		t.Errorf("stdout = %q", r.stdout)
	}
	for _, want := range []string{
		"sha256  15e2b0d3c33891ebb0f1ef609ec419420c20e320ce94c65fbc8c3312448eb225  -",
		"md5  25f9e794323b453885f5181f1b624d0b  -",
	} {
		if !strings.Contains(r.stderr, want) {
			t.Errorf("stderr misses %q:\n%s", want, r.stderr)
		}
	}
}

func TestDigest(t *testing.T) {
	src := fixtures.TempFile(t, "nine", []byte(fixtures.Nine))

	r := mustIOP(t, "", "digest", src)
	if want := "15e2b0d3c33891ebb0f1ef609ec419420c20e320ce94c65fbc8c3312448eb225  " + src + "\n"; r.stdout != want {
		t.Errorf("got %q, want %q", r.stdout, want)
	}

	r = mustIOP(t, "", "digest", "-a", "md5,sha1", "-")
	want := "md5  25f9e794323b453885f5181f1b624d0b  -\n" +
		"sha1  f7c3bc1d808e04732adf679965ccc34ca7ae3441  -\n"
	if r.stdout != want {
		t.Errorf("got %q, want %q", r.stdout, want)
	}
}

func TestDigest_Range(t *testing.T) {
	whole := fixtures.TempFile(t, "digits", []byte(fixtures.Digits))
	part := fixtures.TempFile(t, "part", []byte("234"))

	a := mustIOP(t, "", "digest", "--offset", "2", "--size", "3", whole)
	b := mustIOP(t, "", "digest", part)
	if strings.Fields(a.stdout)[0] != strings.Fields(b.stdout)[0] {
		t.Errorf("range digest %q differs from %q", a.stdout, b.stdout)
	}
}

func TestRandom(t *testing.T) {
	dir := t.TempDir()
	for _, size := range []string{"0", "1000", "3KiB"} {
		t.Run(size, func(t *testing.T) {
			dst := filepath.Join(dir, "rand-"+size)
			mustIOP(t, "", "random", size, dst, "--block-size", "256")
			want, _ := parseSize("size", size)
			if got := int64(len(readFile(t, dst))); got != want {
				t.Errorf("wrote %d bytes, want %d", got, want)
			}
		})
	}
}

func TestRandom_DigestMatches(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "r")
	r := mustIOP(t, "", "random", "4KiB", dst, "--digest", "sha256")
	d := mustIOP(t, "", "digest", dst)

	got := strings.Fields(d.stdout)[0]
	if !strings.Contains(r.stderr, "sha256  "+got) {
		t.Errorf("random digest not in stderr %q (file digest %s)", r.stderr, got)
	}
}

func TestSplit(t *testing.T) {
	src := fixtures.TempFile(t, "digits", []byte(fixtures.Digits))
	dir := filepath.Join(t.TempDir(), "parts")

	mustIOP(t, "", "split", src, dir, "--sizes", "3,4,3", "--block-size", "2")
	for i, want := range []string{"012", "3456", "789"} {
		got := string(readFile(t, filepath.Join(dir, fmt.Sprintf("part-%03d", i))))
		if got != want {
			t.Errorf("part %d = %q, want %q", i, got, want)
		}
	}
}

func TestSplit_Stdin(t *testing.T) {
	dir := t.TempDir()
	r := mustIOP(t, fixtures.Nine, "split", "-", dir, "--sizes", "5,4", "--prefix", "x")
	if !strings.Contains(r.stdout, filepath.Join(dir, "x001")+"  4") {
		t.Errorf("stdout = %q", r.stdout)
	}
	if got := string(readFile(t, filepath.Join(dir, "x001"))); got != "6789" {
		t.Errorf("second part = %q", got)
	}
}

func TestSplit_ShortSource(t *testing.T) {
	src := fixtures.TempFile(t, "digits", []byte(fixtures.Digits))
	dir := t.TempDir()

	r := iop(t, "", "split", src, dir, "--sizes", "8,5")
	if apperrors.CodeOf(r.err) != apperrors.ErrCodePrematureEndOfData {
		t.Fatalf("err = %v", r.err)
	}
	if _, err := os.Stat(filepath.Join(dir, "part-001")); !os.IsNotExist(err) {
		t.Error("the failed part must not be written")
	}
	if got := string(readFile(t, filepath.Join(dir, "part-000"))); got != "01234567" {
		t.Errorf("first part = %q", got)
	}
}

func TestStore_Local(t *testing.T) {
	base := t.TempDir()
	cfg := writeConfig(t, "storage:\n  provider: local\n  local:\n    base_path: "+base+"\n")
	src := fixtures.TempFile(t, "digits", []byte(fixtures.Digits))

	mustIOP(t, "", "-c", cfg, "copy", src, "store://a/digits")
	if got := string(readFile(t, filepath.Join(base, "a", "digits"))); got != fixtures.Digits {
		t.Fatalf("stored %q", got)
	}
	r := mustIOP(t, "", "-c", cfg, "copy", "store://a/digits", "-", "--offset", "4", "--size", "3")
	if r.stdout != "456" {
		t.Errorf("ranged read = %q", r.stdout)
	}

	dir := t.TempDir()
	mustIOP(t, "", "-c", cfg, "split", "store://a/digits", dir, "--sizes", "6,4")
	if got := string(readFile(t, filepath.Join(dir, "part-001"))); got != "6789" {
		t.Errorf("split from store = %q", got)
	}
}

func TestStore_MaxFileSize(t *testing.T) {
	base := t.TempDir()
	cfg := writeConfig(t, "storage:\n  provider: local\n  max_file_size: 4B\n  local:\n    base_path: "+base+"\n")

	r := iop(t, fixtures.Nine, "-c", cfg, "copy", "-", "store://big")
	if apperrors.CodeOf(r.err) != apperrors.ErrCodeInvalidInput {
		t.Fatalf("err = %v, want invalid input", r.err)
	}
	if _, err := os.Stat(filepath.Join(base, "big")); !os.IsNotExist(err) {
		t.Error("nothing should be stored")
	}
}

func TestStore_Redis(t *testing.T) {
	srv := testutil.NewRedisServer()
	testutil.T(t).Setup(srv)
	cfg := writeConfig(t, "storage:\n  provider: redis\n  redis:\n    addr: "+srv.Addr()+"\n    key_prefix: \"t:\"\n")

	mustIOP(t, fixtures.Digits, "-c", cfg, "copy", "-", "store://k")
	if got, err := srv.Client().Get(context.Background(), "t:k").Result(); err != nil || got != fixtures.Digits {
		t.Fatalf("redis value = %q, %v", got, err)
	}
	r := mustIOP(t, "", "-c", cfg, "copy", "store://k", "-", "--offset", "8")
	if r.stdout != "89" {
		t.Errorf("ranged read = %q", r.stdout)
	}
}

func TestFTP(t *testing.T) {
	t.Setenv("ALL_PROXY", "")
	srv := testutil.NewFTPServer("bob", "pw")
	testutil.T(t).Setup(srv)
	srv.Put("digits", []byte(fixtures.Digits))

	r := mustIOP(t, "", "copy", "ftp://bob:pw@"+srv.Addr()+"/digits", "-", "--offset", "3", "--size", "4")
	if r.stdout != "3456" {
		t.Errorf("read %q", r.stdout)
	}

	payload := fixtures.Bytes(50_000, 3)
	src := fixtures.TempFile(t, "payload", payload)
	mustIOP(t, "", "copy", src, "ftp://bob:pw@"+srv.Addr()+"/up.bin", "--block-size", "4KiB")
	got, ok := srv.File("up.bin")
	if !ok {
		t.Fatal("upload missing")
	}
	if diff := cmp.Diff(payload, got); diff != "" {
		t.Errorf("uploaded bytes differ:\n%s", diff)
	}

	bad := iop(t, "", "copy", "ftp://bob:wrong@"+srv.Addr()+"/digits", "-")
	if apperrors.CodeOf(bad.err) != apperrors.ErrCodeConnectionFailed {
		t.Errorf("err = %v, want connection failed", bad.err)
	}
	if strings.Contains(bad.stderr, "wrong") {
		t.Error("password leaked into logs")
	}
}

func TestSFTP(t *testing.T) {
	t.Setenv("ALL_PROXY", "")
	srv := testutil.NewSSHServer("alice", "secret")
	testutil.T(t).Setup(srv)
	cfg := writeConfig(t, "sftp:\n  user: alice\n  password: secret\n  insecure_ignore_host_key: true\n")

	mustIOP(t, fixtures.Digits, "-c", cfg, "copy", "-", "sftp://"+srv.Addr()+"/d.txt")
	r := mustIOP(t, "", "-c", cfg, "copy", "sftp://"+srv.Addr()+"/d.txt", "-", "--offset", "5")
	if r.stdout != "56789" {
		t.Errorf("read %q", r.stdout)
	}
	if n := srv.Connections(); n != 2 {
		t.Errorf("connections = %d, want one per run", n)
	}
}

func TestConfig_PrintsMaskedYAML(t *testing.T) {
	cfg := writeConfig(t, "name: iop-test\nftp:\n  user: bob\n  password: hunter2\npipeline:\n  block_size: 64KiB\n")

	r := mustIOP(t, "", "-c", cfg, "config")
	if strings.Contains(r.stdout, "hunter2") {
		t.Fatal("password printed in clear")
	}
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(r.stdout), &doc); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, r.stdout)
	}
	if doc["name"] != "iop-test" {
		t.Errorf("name = %v", doc["name"])
	}
	storage, _ := doc["storage"].(map[string]any)
	if storage["provider"] != "local" {
		t.Errorf("storage.provider = %v", storage["provider"])
	}
	pipe, _ := doc["pipeline"].(map[string]any)
	if pipe["block_size"] != "64KiB" {
		t.Errorf("pipeline.block_size = %v", pipe["block_size"])
	}
}

func TestConfig_Invalid(t *testing.T) {
	cfg := writeConfig(t, "environment: moon\n")
	if r := iop(t, "", "-c", cfg, "config"); r.err == nil {
		t.Error("expected a validation error")
	}
	if r := iop(t, "", "-c", filepath.Join(t.TempDir(), "missing.yml"), "config"); apperrors.CodeOf(r.err) != apperrors.ErrCodeNotFound {
		t.Errorf("missing config file: err = %v", r.err)
	}
}

func TestConfig_SealedSecret(t *testing.T) {
	t.Setenv("ALL_PROXY", "")
	t.Setenv(configKeyEnv, "master")
	srv := testutil.NewFTPServer("bob", "pw")
	testutil.T(t).Setup(srv)
	srv.Put("f", []byte("sealed ok"))

	sealed := strings.TrimSpace(mustIOP(t, "", "config", "seal", "pw").stdout)
	if !strings.HasPrefix(sealed, "enc:") {
		t.Fatalf("sealed = %q", sealed)
	}
	cfg := writeConfig(t, "ftp:\n  user: bob\n  password: \""+sealed+"\"\n")

	r := mustIOP(t, "", "-c", cfg, "copy", "ftp://"+srv.Addr()+"/f", "-")
	if r.stdout != "sealed ok" {
		t.Errorf("got %q", r.stdout)
	}

	t.Setenv(configKeyEnv, "")
	if r := iop(t, "", "-c", cfg, "copy", "ftp://"+srv.Addr()+"/f", "-"); apperrors.CodeOf(r.err) != apperrors.ErrCodeInvalidInput {
		t.Errorf("without key: err = %v", r.err)
	}
}

func TestVersion(t *testing.T) {
	r := mustIOP(t, "", "version")
	if !strings.HasPrefix(r.stdout, "iop ") {
		t.Errorf("stdout = %q", r.stdout)
	}
	long := mustIOP(t, "", "version", "--long")
	var info map[string]any
	if err := yaml.Unmarshal([]byte(long.stdout), &info); err != nil || info["version"] == nil {
		t.Errorf("long output %q: %v", long.stdout, err)
	}
}

func TestMetricsPushedAfterRun(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
		body  string
	)
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		body += buf.String()
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer gw.Close()
	cfg := writeConfig(t, "metrics:\n  pushgateway: "+gw.URL+"\n")

	mustIOP(t, fixtures.Nine, "-c", cfg, "copy", "-", "-")

	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 1 || paths[0] != "PUT /metrics/job/iop" {
		t.Fatalf("pushes = %v", paths)
	}
	if !strings.Contains(body, "iop_stage_bytes_total") {
		t.Error("push body misses the stage counters")
	}
}
