package encryption

import (
	"github.com/kbukum/iopipe/errors"
	"github.com/kbukum/iopipe/pipeline"
)

// Encryptor is a transform encrypting the stream. Output blocks come from
// one reused buffer.
type Encryptor struct {
	pipeline.FeedBase
	pipeline.SinkBase
	alg       Algorithm
	key       []byte
	iv        []byte
	prependIV bool
	started   bool
	eng       engine
	out       []byte
}

// NewEncryptor returns an encryptor. Without a key a random one is
// generated; read it back with Key.
func NewEncryptor(opts ...Option) (*Encryptor, error) {
	o, err := resolve(opts)
	if err != nil {
		return nil, err
	}
	e := &Encryptor{alg: o.algorithm, key: o.key, iv: o.iv}
	if e.key == nil {
		if e.key, err = randomBytes(KeySize); err != nil {
			return nil, err
		}
	}
	if e.iv == nil {
		n, _ := ivSize(e.alg)
		if e.iv, err = randomBytes(n); err != nil {
			return nil, err
		}
		e.prependIV = true
	}
	if e.eng, err = newEngine(e.alg, true, e.key, e.iv); err != nil {
		return nil, err
	}
	return e, nil
}

// Key returns the encryption key.
func (e *Encryptor) Key() []byte { return e.key }

// IV returns the initialization vector.
func (e *Encryptor) IV() []byte { return e.iv }

// Algorithm returns the cipher in use.
func (e *Encryptor) Algorithm() Algorithm { return e.alg }

// Process encrypts b. End-of-data flushes the final padded block.
func (e *Encryptor) Process(b pipeline.Block) error {
	if !e.started {
		e.started = true
		if e.prependIV {
			if err := e.Emit(e.iv); err != nil {
				return err
			}
		}
	}
	if b == nil {
		out, err := e.eng.final(e.out[:0])
		if err != nil {
			return err
		}
		if err := e.Emit(out); err != nil {
			return err
		}
		return e.Finish()
	}
	e.out = e.eng.update(e.out[:0], b)
	return e.Emit(e.out)
}

// Decryptor is a transform decrypting the stream.
type Decryptor struct {
	pipeline.FeedBase
	pipeline.SinkBase
	alg    Algorithm
	key    []byte
	ivSize int
	header []byte
	eng    engine
	out    []byte
}

// NewDecryptor returns a decryptor. A key is required. Without an IV the
// first bytes of the stream are taken as the IV.
func NewDecryptor(opts ...Option) (*Decryptor, error) {
	o, err := resolve(opts)
	if err != nil {
		return nil, err
	}
	if o.key == nil {
		return nil, errors.InvalidInput("key", "decryption requires a key or passphrase")
	}
	n, _ := ivSize(o.algorithm)
	d := &Decryptor{alg: o.algorithm, key: o.key, ivSize: n}
	if o.iv != nil {
		if d.eng, err = newEngine(d.alg, false, d.key, o.iv); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Process decrypts b. End-of-data validates and strips the padding.
func (d *Decryptor) Process(b pipeline.Block) error {
	if b == nil {
		if d.eng == nil {
			return errors.CipherFailure("stream ended before the IV was complete", nil).
				WithDetail("received", len(d.header))
		}
		out, err := d.eng.final(d.out[:0])
		if err != nil {
			return err
		}
		if err := d.Emit(out); err != nil {
			return err
		}
		return d.Finish()
	}
	if d.eng == nil {
		need := d.ivSize - len(d.header)
		if len(b) < need {
			d.header = append(d.header, b...)
			return nil
		}
		d.header = append(d.header, b[:need]...)
		b = b[need:]
		eng, err := newEngine(d.alg, false, d.key, d.header)
		if err != nil {
			return err
		}
		d.eng = eng
	}
	d.out = d.eng.update(d.out[:0], b)
	return d.Emit(d.out)
}
