// Package digest computes message digests of the bytes flowing through a
// pipeline.
package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/kbukum/iopipe/errors"
	"github.com/kbukum/iopipe/pipeline"
)

// Algorithm names accepted by New.
const (
	MD5        = "md5"
	SHA1       = "sha1"
	SHA256     = "sha256"
	SHA512     = "sha512"
	BLAKE2b256 = "blake2b-256"
	BLAKE2b512 = "blake2b-512"
	SHA3256    = "sha3-256"
	SHA3512    = "sha3-512"
)

var algorithms = map[string]func() hash.Hash{
	MD5:        md5.New,
	SHA1:       sha1.New,
	SHA256:     sha256.New,
	SHA512:     sha512.New,
	BLAKE2b256: mustBlake2b(blake2b.New256),
	BLAKE2b512: mustBlake2b(blake2b.New512),
	SHA3256:    func() hash.Hash { return sha3.New256() },
	SHA3512:    func() hash.Hash { return sha3.New512() },
}

// blake2b constructors only fail for keys longer than 64 bytes.
func mustBlake2b(fn func(key []byte) (hash.Hash, error)) func() hash.Hash {
	return func() hash.Hash {
		h, err := fn(nil)
		if err != nil {
			panic(err)
		}
		return h
	}
}

// Algorithms returns the supported algorithm names, sorted.
func Algorithms() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Computer is a pass-through transform feeding every block to a hash.
type Computer struct {
	pipeline.FeedBase
	pipeline.SinkBase
	name string
	h    hash.Hash
	sum  []byte
	n    int64
}

// New returns a Computer for the named algorithm.
func New(algorithm string) (*Computer, error) {
	name := strings.ToLower(algorithm)
	fn, ok := algorithms[name]
	if !ok {
		return nil, errors.InvalidInput("algorithm", "unsupported digest "+algorithm+" (want one of: "+strings.Join(Algorithms(), ", ")+")")
	}
	return NewFromHash(name, fn()), nil
}

// NewFromHash returns a Computer over a caller-supplied hash.
func NewFromHash(name string, h hash.Hash) *Computer {
	return &Computer{name: name, h: h}
}

// Process hashes b and forwards it. End-of-data finalizes the digest.
func (c *Computer) Process(b pipeline.Block) error {
	if b == nil {
		c.sum = c.h.Sum(nil)
		return c.Finish()
	}
	c.h.Write(b)
	c.n += int64(len(b))
	return c.Forward(b)
}

// Algorithm returns the algorithm name.
func (c *Computer) Algorithm() string { return c.name }

// Sum returns the digest once end-of-data was seen, nil before.
func (c *Computer) Sum() []byte { return c.sum }

// Hex returns Sum as lowercase hex.
func (c *Computer) Hex() string { return hex.EncodeToString(c.sum) }

// Len returns the number of bytes hashed.
func (c *Computer) Len() int64 { return c.n }
