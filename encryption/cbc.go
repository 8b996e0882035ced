package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	stderrors "errors"

	"github.com/kbukum/iopipe/errors"
)

const aesBlockSize = aes.BlockSize

var errBadPadding = stderrors.New("invalid PKCS#7 padding")

// cbcEngine carries partial blocks between updates. The decrypting side
// also holds back the last complete block until final, since it carries
// the padding.
type cbcEngine struct {
	mode    cipher.BlockMode
	encrypt bool
	pending []byte
}

func newCBC(encrypt bool, key, iv []byte) (*cbcEngine, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.CipherFailure("create cipher", err)
	}
	e := &cbcEngine{encrypt: encrypt}
	if encrypt {
		e.mode = cipher.NewCBCEncrypter(block, iv)
	} else {
		e.mode = cipher.NewCBCDecrypter(block, iv)
	}
	return e, nil
}

func (e *cbcEngine) update(dst, src []byte) []byte {
	e.pending = append(e.pending, src...)
	n := len(e.pending) - len(e.pending)%aesBlockSize
	if !e.encrypt && n == len(e.pending) {
		n -= aesBlockSize
	}
	if n <= 0 {
		return dst
	}
	start := len(dst)
	dst = append(dst, e.pending[:n]...)
	e.mode.CryptBlocks(dst[start:], dst[start:])
	e.pending = append(e.pending[:0], e.pending[n:]...)
	return dst
}

func (e *cbcEngine) final(dst []byte) ([]byte, error) {
	if e.encrypt {
		pad := aesBlockSize - len(e.pending)%aesBlockSize
		for range pad {
			e.pending = append(e.pending, byte(pad))
		}
		start := len(dst)
		dst = append(dst, e.pending...)
		e.mode.CryptBlocks(dst[start:], dst[start:])
		e.pending = e.pending[:0]
		return dst, nil
	}

	if len(e.pending) != aesBlockSize {
		return dst, errors.CipherFailure("ciphertext is not a whole number of blocks", errBadPadding)
	}
	last := make([]byte, aesBlockSize)
	e.mode.CryptBlocks(last, e.pending)
	e.pending = e.pending[:0]
	pad := int(last[aesBlockSize-1])
	if pad == 0 || pad > aesBlockSize {
		return dst, errors.CipherFailure("bad decrypt", errBadPadding)
	}
	for _, b := range last[aesBlockSize-pad:] {
		if int(b) != pad {
			return dst, errors.CipherFailure("bad decrypt", errBadPadding)
		}
	}
	return append(dst, last[:aesBlockSize-pad]...), nil
}
