package encryption

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/kbukum/iopipe/errors"
)

// Algorithm represents supported streaming cipher algorithms.
type Algorithm string

const (
	// AlgorithmAES256CBC is AES-256 in CBC mode with PKCS#7 padding (default).
	AlgorithmAES256CBC Algorithm = "aes-256-cbc"

	// AlgorithmChaCha20 is the ChaCha20 stream cipher (RFC 8439 nonce size).
	AlgorithmChaCha20 Algorithm = "chacha20"
)

// Algorithms lists the supported streaming algorithms.
func Algorithms() []Algorithm {
	return []Algorithm{AlgorithmAES256CBC, AlgorithmChaCha20}
}

// KeySize is the key length of every supported algorithm.
const KeySize = 32

// Option configures an Encryptor or Decryptor.
type Option func(*options)

type options struct {
	algorithm Algorithm
	key       []byte
	iv        []byte
}

// WithAlgorithm selects the cipher (default: AES-256-CBC).
func WithAlgorithm(alg Algorithm) Option {
	return func(o *options) { o.algorithm = Algorithm(strings.ToLower(string(alg))) }
}

// WithKey sets a raw 32 byte key.
func WithKey(key []byte) Option {
	return func(o *options) { o.key = append([]byte(nil), key...) }
}

// WithPassphrase derives the key by hashing passphrase with SHA-256.
func WithPassphrase(passphrase string) Option {
	return func(o *options) { o.key = DeriveKey(passphrase) }
}

// WithIV sets the IV (16 bytes for AES, 12 for ChaCha20). Without it the
// IV travels at the head of the ciphertext.
func WithIV(iv []byte) Option {
	return func(o *options) { o.iv = append([]byte(nil), iv...) }
}

// DeriveKey hashes passphrase with SHA-256 into a 32 byte key.
func DeriveKey(passphrase string) []byte {
	sum := sha256.Sum256([]byte(passphrase))
	return sum[:]
}

func resolve(opts []Option) (*options, error) {
	o := &options{algorithm: AlgorithmAES256CBC}
	for _, opt := range opts {
		opt(o)
	}
	if _, err := ivSize(o.algorithm); err != nil {
		return nil, err
	}
	if o.key != nil && len(o.key) != KeySize {
		return nil, errors.InvalidInput("key", fmt.Sprintf("must be %d bytes (got %d)", KeySize, len(o.key)))
	}
	if o.iv != nil {
		n, _ := ivSize(o.algorithm)
		if len(o.iv) != n {
			return nil, errors.InvalidInput("iv", fmt.Sprintf("must be %d bytes for %s (got %d)", n, o.algorithm, len(o.iv)))
		}
	}
	return o, nil
}

func ivSize(alg Algorithm) (int, error) {
	switch alg {
	case AlgorithmAES256CBC:
		return aesBlockSize, nil
	case AlgorithmChaCha20:
		return chachaNonceSize, nil
	default:
		return 0, errors.InvalidInput("algorithm", fmt.Sprintf("unsupported cipher %q", alg))
	}
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, errors.CipherFailure("unable to generate random bytes", err)
	}
	return b, nil
}

// engine is the incremental cipher behind the pipeline stages. update and
// final append their output to dst.
type engine interface {
	update(dst, src []byte) []byte
	final(dst []byte) ([]byte, error)
}

func newEngine(alg Algorithm, encrypt bool, key, iv []byte) (engine, error) {
	switch alg {
	case AlgorithmChaCha20:
		return newChaCha20(key, iv)
	default:
		return newCBC(encrypt, key, iv)
	}
}

// ErrCipherFailure matches any cipher failure with errors.Is.
var ErrCipherFailure = errors.New(errors.ErrCodeCipherFailure, "cipher failure")
