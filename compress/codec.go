// Package compress provides compression and decompression stages backed by
// github.com/klauspost/compress.
//
// Compressors are ordinary push transforms. Decompressors wrap the pull
// based decoders with pipeline.Bridge.
package compress

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/kbukum/iopipe/errors"
)

// Codec names.
const (
	Gzip  = "gzip"
	Zlib  = "zlib"
	Flate = "flate"
	Zstd  = "zstd"
)

// DefaultLevel selects the codec's own default level.
const DefaultLevel = -1

type codec struct {
	ext       string
	newWriter func(w io.Writer, level int) (io.WriteCloser, error)
	newReader func(r io.Reader) (io.ReadCloser, error)
}

var codecs = map[string]codec{
	Gzip: {
		ext: ".gz",
		newWriter: func(w io.Writer, level int) (io.WriteCloser, error) {
			return gzip.NewWriterLevel(w, level)
		},
		newReader: func(r io.Reader) (io.ReadCloser, error) {
			return gzip.NewReader(r)
		},
	},
	Zlib: {
		ext: ".zz",
		newWriter: func(w io.Writer, level int) (io.WriteCloser, error) {
			return zlib.NewWriterLevel(w, level)
		},
		newReader: func(r io.Reader) (io.ReadCloser, error) {
			return zlib.NewReader(r)
		},
	},
	Flate: {
		ext: ".deflate",
		newWriter: func(w io.Writer, level int) (io.WriteCloser, error) {
			return flate.NewWriter(w, level)
		},
		newReader: func(r io.Reader) (io.ReadCloser, error) {
			return flate.NewReader(r), nil
		},
	},
	Zstd: {
		ext: ".zst",
		newWriter: func(w io.Writer, level int) (io.WriteCloser, error) {
			if level == DefaultLevel {
				return zstd.NewWriter(w)
			}
			return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		},
		newReader: func(r io.Reader) (io.ReadCloser, error) {
			d, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return d.IOReadCloser(), nil
		},
	},
}

func lookup(name string) (string, codec, error) {
	name = strings.ToLower(name)
	c, ok := codecs[name]
	if !ok {
		return "", codec{}, errors.InvalidInput("codec", fmt.Sprintf("unsupported codec %q (want one of: %s)", name, strings.Join(Codecs(), ", ")))
	}
	return name, c, nil
}

// Codecs returns the supported codec names, sorted.
func Codecs() []string {
	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForPath returns the codec whose extension matches path, or "".
func ForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	for name, c := range codecs {
		if c.ext == ext {
			return name
		}
	}
	return ""
}

// Extension returns the conventional file extension of a codec.
func Extension(name string) string {
	return codecs[strings.ToLower(name)].ext
}

// ErrCodecFailure matches any codec failure with errors.Is.
var ErrCodecFailure = errors.New(errors.ErrCodeCodecFailure, "codec failure")
