package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/kbukum/iopipe/compress"
	"github.com/kbukum/iopipe/digest"
	"github.com/kbukum/iopipe/encryption"
	apperrors "github.com/kbukum/iopipe/errors"
	"github.com/kbukum/iopipe/file"
	"github.com/kbukum/iopipe/metrics"
	"github.com/kbukum/iopipe/net/ftp"
	"github.com/kbukum/iopipe/net/sftp"
	"github.com/kbukum/iopipe/pipeline"
	"github.com/kbukum/iopipe/resilience"
	"github.com/kbukum/iopipe/storage"
	"github.com/kbukum/iopipe/util"
)

// passphraseEnv is read when --passphrase is not given.
const passphraseEnv = "IOP_PASSPHRASE"

// codecAuto picks the codec from the file extension.
const codecAuto = "auto"

// readFlags bound the source read.
type readFlags struct {
	size      string
	offset    string
	blockSize string
}

func (f *readFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.size, "size", "", "bytes to read (e.g. 10MiB); default reads to the end")
	fs.StringVar(&f.offset, "offset", "", "bytes to skip before reading")
	fs.StringVar(&f.blockSize, "block-size", "", "read chunk ceiling (default from config, 1MiB)")
}

// options turns the flags into read options. Sizes accept human forms.
func (f *readFlags) options(cfg *Config) ([]pipeline.ReadOption, error) {
	opts := []pipeline.ReadOption{pipeline.WithBlockSize(cfg.Pipeline.BlockBytes())}
	if f.blockSize != "" {
		n, err := parseSize("block-size", f.blockSize)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithBlockSize(int(n)))
	}
	if f.size != "" {
		n, err := parseSize("size", f.size)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithSize(n))
	}
	if f.offset != "" {
		n, err := parseSize("offset", f.offset)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithOffset(n))
	}
	return opts, pipeline.NewBounds(opts...).Validate()
}

func parseSize(field, s string) (int64, error) {
	n, err := util.ParseBytes(s)
	if err != nil {
		return 0, apperrors.InvalidInput(field, err.Error())
	}
	return n, nil
}

// transformFlags select the decode and encode stages of a run.
type transformFlags struct {
	decrypt    bool
	decompress string
	digests    []string
	compress   string
	level      int
	encrypt    bool
	cipher     string
	passphrase string
	keyHex     string
	limitRate  string
}

func (f *transformFlags) register(fs *pflag.FlagSet, decode bool) {
	if decode {
		fs.BoolVar(&f.decrypt, "decrypt", false, "decrypt the source before anything else")
		fs.StringVar(&f.decompress, "decompress", "", "decompress the source with CODEC (or auto from the source name)")
	}
	fs.StringSliceVar(&f.digests, "digest", nil, "print a digest of the payload (md5, sha256, ...); repeatable")
	fs.StringVar(&f.compress, "compress", "", "compress the output with CODEC (or auto from the destination name)")
	fs.IntVar(&f.level, "level", 0, "compression level (0 keeps the codec default)")
	fs.BoolVar(&f.encrypt, "encrypt", false, "encrypt the output as the last stage")
	fs.StringVar(&f.cipher, "cipher", string(encryption.AlgorithmAES256CBC), "cipher for --encrypt/--decrypt")
	fs.StringVar(&f.passphrase, "passphrase", "", "passphrase for the cipher key (default $"+passphraseEnv+")")
	fs.StringVar(&f.keyHex, "key", "", "raw 32 byte cipher key in hex, instead of a passphrase")
	fs.StringVar(&f.limitRate, "limit-rate", "", "cap the read rate in bytes per second (e.g. 512KiB)")
}

// chain is a feed plus the stages built for one run.
type chain struct {
	stages   []pipeline.Sink
	digests  []*digest.Computer
	enc      *encryption.Encryptor
	keyShown bool
	read     *metrics.Counter
	written  *metrics.Counter
}

// build returns the transforms in order: read counter, throttle, decrypt,
// decompress, digests, compress, encrypt, write counter.
func (f *transformFlags) build(ctx context.Context, rec metrics.Recorder, srcName, dstName string) (*chain, error) {
	c := &chain{read: metrics.NewCounter("read", rec), written: metrics.NewCounter("write", rec)}
	c.stages = append(c.stages, c.read)

	if f.limitRate != "" {
		rate, err := parseSize("limit-rate", f.limitRate)
		if err != nil {
			return nil, err
		}
		if rate == 0 {
			return nil, apperrors.InvalidInput("limit-rate", "must be positive")
		}
		c.stages = append(c.stages, resilience.NewThrottle(ctx, resilience.RateLimiterConfig{Rate: float64(rate)}))
	}

	cipherOpts, err := f.cipherOptions()
	if err != nil {
		return nil, err
	}
	if f.decrypt {
		if len(cipherOpts) == 1 {
			return nil, apperrors.InvalidInput("passphrase", "--decrypt needs --passphrase, --key or $"+passphraseEnv)
		}
		d, err := encryption.NewDecryptor(cipherOpts...)
		if err != nil {
			return nil, err
		}
		c.stages = append(c.stages, d)
	}
	if name := pickCodec(f.decompress, srcName); name != "" {
		d, err := compress.NewDecompressor(name)
		if err != nil {
			return nil, err
		}
		c.stages = append(c.stages, d)
	}
	for _, alg := range f.digests {
		d, err := digest.New(alg)
		if err != nil {
			return nil, err
		}
		c.digests = append(c.digests, d)
		c.stages = append(c.stages, d)
	}
	if name := pickCodec(f.compress, dstName); name != "" {
		var copts []compress.Option
		if f.level != 0 {
			copts = append(copts, compress.WithLevel(f.level))
		}
		comp, err := compress.NewCompressor(name, copts...)
		if err != nil {
			return nil, err
		}
		c.stages = append(c.stages, comp)
	}
	if f.encrypt {
		e, err := encryption.NewEncryptor(cipherOpts...)
		if err != nil {
			return nil, err
		}
		c.enc = e
		c.keyShown = len(cipherOpts) == 1
		c.stages = append(c.stages, e)
	}
	c.stages = append(c.stages, c.written)
	return c, nil
}

// cipherOptions always carries the algorithm; a key option follows when a
// key or passphrase is known.
func (f *transformFlags) cipherOptions() ([]encryption.Option, error) {
	opts := []encryption.Option{encryption.WithAlgorithm(encryption.Algorithm(f.cipher))}
	switch {
	case f.keyHex != "":
		key, err := hex.DecodeString(f.keyHex)
		if err != nil {
			return nil, apperrors.InvalidInput("key", "must be hex: "+err.Error())
		}
		opts = append(opts, encryption.WithKey(key))
	case f.passphrase != "":
		opts = append(opts, encryption.WithPassphrase(f.passphrase))
	case os.Getenv(passphraseEnv) != "":
		opts = append(opts, encryption.WithPassphrase(os.Getenv(passphraseEnv)))
	}
	return opts, nil
}

func pickCodec(flag, name string) string {
	if flag == codecAuto {
		return compress.ForPath(name)
	}
	return flag
}

// report prints digests and a generated key to w once the run succeeded.
func (c *chain) report(w io.Writer, name string) {
	for _, d := range c.digests {
		fmt.Fprintf(w, "%s  %s  %s\n", d.Algorithm(), d.Hex(), name)
	}
	if c.enc != nil && c.keyShown {
		fmt.Fprintf(w, "key  %s\n", hex.EncodeToString(c.enc.Key()))
	}
}

// source returns the feed reading ep.
func (a *app) source(ctx context.Context, ep endpoint, opts []pipeline.ReadOption) (pipeline.Feed, error) {
	switch ep.scheme {
	case schemeStdio:
		return file.NewIOReader(a.stdin, opts...), nil
	case schemeFile:
		return file.NewReader(ep.path, opts...), nil
	case schemeSFTP:
		return sftp.NewReader(ctx, a.sftpSession(ep), ep.path, opts...), nil
	case schemeFTP:
		return ftp.NewReader(ctx, a.ftpSession(ep), ep.path, opts...), nil
	case schemeStore:
		s, err := a.storage()
		if err != nil {
			return nil, err
		}
		return storage.NewReader(ctx, s, ep.path, opts...), nil
	}
	return nil, apperrors.InvalidInput("source", "unsupported endpoint "+ep.String())
}

// writeFlags control local destinations.
type writeFlags struct {
	append bool
}

func (f *writeFlags) register(fs *pflag.FlagSet) {
	fs.BoolVar(&f.append, "append", false, "append to a local destination instead of replacing it atomically")
}

// destination returns the sink writing ep.
func (a *app) destination(ctx context.Context, ep endpoint, wf writeFlags) (pipeline.Sink, error) {
	switch ep.scheme {
	case schemeStdio:
		return file.NewIOWriter(a.stdout), nil
	case schemeFile:
		if wf.append {
			return file.NewWriter(ep.path, file.WithAppend()), nil
		}
		return file.NewWriter(ep.path, file.WithAtomic()), nil
	case schemeSFTP:
		return sftp.NewWriter(ctx, a.sftpSession(ep), ep.path), nil
	case schemeFTP:
		return ftp.NewWriter(ctx, a.ftpSession(ep), ep.path), nil
	case schemeStore:
		s, err := a.storage()
		if err != nil {
			return nil, err
		}
		opts := []storage.WriterOption{}
		if limit := a.cfg.Storage.MaxFileBytes(); limit > 0 {
			opts = append(opts, storage.WithMaxSize(limit))
		}
		return storage.NewWriter(ctx, s, ep.path, opts...), nil
	}
	return nil, apperrors.InvalidInput("destination", "unsupported endpoint "+ep.String())
}

// sftpSession dials per run with the configured credentials; user and
// password from the URL take precedence.
func (a *app) sftpSession(ep endpoint) sftp.Session {
	creds := a.cfg.SFTP
	if ep.user != "" {
		creds.User = ep.user
	}
	if ep.hasPass {
		creds.Password = ep.password
	}
	return sftp.Managed(ep.host, creds)
}

func (a *app) ftpSession(ep endpoint) ftp.Session {
	creds := a.cfg.FTP
	if ep.user != "" {
		creds.User = ep.user
	}
	if ep.hasPass {
		creds.Password = ep.password
	}
	return ftp.Managed(ep.host, creds)
}
