package encryption_test

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/kbukum/iopipe/encryption"
	"github.com/kbukum/iopipe/pipeline"
	"github.com/kbukum/iopipe/testutil"
	"github.com/kbukum/iopipe/testutil/fixtures"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func pump(t *testing.T, data []byte, bs int, stages ...pipeline.Sink) ([]byte, error) {
	t.Helper()
	rec := &testutil.Recorder{}
	last, err := pipeline.Chain(pipeline.NewSplitter(data, pipeline.WithBlockSize(bs)), append(stages, rec)...)
	if err != nil {
		t.Fatal(err)
	}
	err = last.Run()
	return rec.Bytes(), err
}

func TestEncryptor_KnownAnswer(t *testing.T) {
	key := mustHex(t, "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	tests := []struct {
		alg  encryption.Algorithm
		iv   string
		want string
	}{
		{encryption.AlgorithmAES256CBC, "0f0e0d0c0b0a09080706050403020100", "44c8eb31caeec2953b43c38482370b73"},
		{encryption.AlgorithmChaCha20, "000000000000000000000000", "08cf1849ecf32e52b4"},
	}
	for _, tc := range tests {
		t.Run(string(tc.alg), func(t *testing.T) {
			for bs := 1; bs <= 10; bs++ {
				enc, err := encryption.NewEncryptor(encryption.WithAlgorithm(tc.alg), encryption.WithKey(key), encryption.WithIV(mustHex(t, tc.iv)))
				if err != nil {
					t.Fatal(err)
				}
				got, err := pump(t, []byte(fixtures.Nine), bs, enc)
				if err != nil {
					t.Fatal(err)
				}
				if hex.EncodeToString(got) != tc.want {
					t.Errorf("bs=%d: got %x, want %s", bs, got, tc.want)
				}
			}
		})
	}
}

func TestRoundTrip_PrependedIV(t *testing.T) {
	for _, alg := range encryption.Algorithms() {
		for _, size := range []int{0, 1, 15, 16, 17, 100} {
			data := fixtures.Bytes(size, uint32(size)+1)
			for _, bs := range []int{1, 3, 16, 33} {
				enc, err := encryption.NewEncryptor(encryption.WithAlgorithm(alg), encryption.WithPassphrase("s3cret"))
				if err != nil {
					t.Fatal(err)
				}
				dec, err := encryption.NewDecryptor(encryption.WithAlgorithm(alg), encryption.WithPassphrase("s3cret"))
				if err != nil {
					t.Fatal(err)
				}
				got, err := pump(t, data, bs, enc, dec)
				if err != nil {
					t.Fatalf("%s size=%d bs=%d: %v", alg, size, bs, err)
				}
				if !bytes.Equal(got, data) {
					t.Errorf("%s size=%d bs=%d: round trip mismatch", alg, size, bs)
				}
			}
		}
	}
}

func TestEncryptor_RandomKeyExposed(t *testing.T) {
	enc, err := encryption.NewEncryptor()
	if err != nil {
		t.Fatal(err)
	}
	if len(enc.Key()) != encryption.KeySize || len(enc.IV()) != 16 {
		t.Fatalf("key=%d iv=%d", len(enc.Key()), len(enc.IV()))
	}
	ct, err := pump(t, []byte("hello"), 2, enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ct[:16], enc.IV()) {
		t.Error("expected the IV at the head of the output")
	}
	if len(ct) != 32 {
		t.Errorf("ciphertext length = %d, want 32", len(ct))
	}

	dec, err := encryption.NewDecryptor(encryption.WithKey(enc.Key()), encryption.WithIV(enc.IV()))
	if err != nil {
		t.Fatal(err)
	}
	got, err := pump(t, ct[16:], 5, dec)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Errorf("got %q", got)
	}
}

func TestDecryptor_Truncated(t *testing.T) {
	enc, _ := encryption.NewEncryptor(encryption.WithPassphrase("k"))
	ct, err := pump(t, []byte(fixtures.Digits), 4, enc)
	if err != nil {
		t.Fatal(err)
	}
	dec, _ := encryption.NewDecryptor(encryption.WithPassphrase("k"))
	_, err = pump(t, ct[:len(ct)-1], 4, dec)
	if !errors.Is(err, encryption.ErrCipherFailure) {
		t.Fatalf("expected CipherFailure, got %v", err)
	}
}

func TestDecryptor_MissingIV(t *testing.T) {
	dec, _ := encryption.NewDecryptor(encryption.WithPassphrase("k"))
	_, err := pump(t, []byte("short"), 2, dec)
	if !errors.Is(err, encryption.ErrCipherFailure) {
		t.Fatalf("expected CipherFailure, got %v", err)
	}
}

func TestOptions_Invalid(t *testing.T) {
	tests := []struct {
		name string
		opts []encryption.Option
	}{
		{"short key", []encryption.Option{encryption.WithKey([]byte("short"))}},
		{"bad iv", []encryption.Option{encryption.WithPassphrase("k"), encryption.WithIV([]byte("iv"))}},
		{"unknown cipher", []encryption.Option{encryption.WithPassphrase("k"), encryption.WithAlgorithm("rot13")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := encryption.NewEncryptor(tc.opts...); !errors.Is(err, pipeline.ErrInvalidInput) {
				t.Errorf("expected InvalidInput, got %v", err)
			}
		})
	}
	if _, err := encryption.NewDecryptor(); !errors.Is(err, pipeline.ErrInvalidInput) {
		t.Errorf("decryptor without key: expected InvalidInput, got %v", err)
	}
}

func TestSecrets_RoundTrip(t *testing.T) {
	for _, alg := range []string{"", encryption.SealAESGCM, encryption.SealChaCha20} {
		t.Run(alg, func(t *testing.T) {
			s, err := encryption.NewSecrets("config-key", alg)
			if err != nil {
				t.Fatal(err)
			}
			sealed, err := s.Seal("hunter2")
			if err != nil {
				t.Fatal(err)
			}
			if !encryption.IsSealed(sealed) {
				t.Errorf("expected prefix, got %q", sealed)
			}
			plain, err := s.Resolve(sealed)
			if err != nil || plain != "hunter2" {
				t.Errorf("Resolve() = %q, %v", plain, err)
			}
			if v, _ := s.Resolve("plain"); v != "plain" {
				t.Errorf("unsealed values pass through, got %q", v)
			}
		})
	}
}

func TestSecrets_WrongKey(t *testing.T) {
	a, _ := encryption.NewSecrets("one", "")
	b, _ := encryption.NewSecrets("two", "")
	sealed, _ := a.Seal("x")
	if _, err := b.Open(sealed); err == nil {
		t.Error("expected authentication failure with the wrong key")
	}
}
