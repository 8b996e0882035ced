package encryption

import (
	"golang.org/x/crypto/chacha20"

	"github.com/kbukum/iopipe/errors"
)

const chachaNonceSize = chacha20.NonceSize

// chachaEngine XORs the key stream over each update. Encryption and
// decryption are the same operation.
type chachaEngine struct {
	c *chacha20.Cipher
}

func newChaCha20(key, nonce []byte) (*chachaEngine, error) {
	c, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		return nil, errors.CipherFailure("create chacha20", err)
	}
	return &chachaEngine{c: c}, nil
}

func (e *chachaEngine) update(dst, src []byte) []byte {
	start := len(dst)
	dst = append(dst, src...)
	e.c.XORKeyStream(dst[start:], dst[start:])
	return dst
}

func (e *chachaEngine) final(dst []byte) ([]byte, error) {
	return dst, nil
}
