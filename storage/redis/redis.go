// Package redis stores objects as string values in Redis. Offsets are
// served with GETRANGE.
package redis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	apperrors "github.com/kbukum/iopipe/errors"
	"github.com/kbukum/iopipe/logger"
	"github.com/kbukum/iopipe/storage"
)

// uploadChunk is the APPEND size used while streaming an upload.
const uploadChunk = 1 << 20

func init() {
	storage.RegisterFactory(storage.ProviderRedis, func(_ storage.Config, providerCfg any, log *logger.Logger) (storage.Storage, error) {
		c := &Config{}
		if providerCfg != nil {
			pc, ok := providerCfg.(*Config)
			if !ok {
				return nil, fmt.Errorf("redis: expected *redis.Config, got %T", providerCfg)
			}
			c = pc
		}
		return New(*c, log)
	})
}

// Storage implements storage.Storage on a go-redis client.
type Storage struct {
	rdb    *goredis.Client
	prefix string
	owned  bool
	log    *logger.Logger
	closed bool
	mu     sync.Mutex
}

// New connects to the server described by cfg. The connection is closed by
// Close.
func New(cfg Config, log *logger.Logger) (*Storage, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redis config: %w", err)
	}
	if log == nil {
		log = logger.WithComponent("storage")
	}
	rdb := goredis.NewClient(cfg.options())
	log.Info("Redis client created", logger.Fields(
		"addr", cfg.Addr,
		"db", cfg.DB,
		"pool_size", cfg.PoolSize,
	))
	return &Storage{rdb: rdb, prefix: cfg.KeyPrefix, owned: true, log: log}, nil
}

// NewFromClient uses an existing client. Close leaves it open.
func NewFromClient(rdb *goredis.Client, keyPrefix string) *Storage {
	return &Storage{rdb: rdb, prefix: keyPrefix, log: logger.WithComponent("storage")}
}

func (s *Storage) key(path string) string { return s.prefix + path }

// Ping verifies the Redis connection is alive.
func (s *Storage) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return apperrors.ConnectionFailed(s.rdb.Options().Addr, err)
	}
	return nil
}

// Upload streams reader into a temporary key with APPEND and renames it
// over the target, so readers never see a partial value.
func (s *Storage) Upload(ctx context.Context, path string, reader io.Reader) error {
	tmp := s.key(path) + ".upload-" + uuid.NewString()
	if err := s.rdb.Set(ctx, tmp, "", 0).Err(); err != nil {
		return fmt.Errorf("storage: redis upload: %w", err)
	}
	buf := make([]byte, uploadChunk)
	for {
		n, rerr := reader.Read(buf)
		if n > 0 {
			if err := s.rdb.Append(ctx, tmp, string(buf[:n])).Err(); err != nil {
				s.rdb.Del(ctx, tmp)
				return fmt.Errorf("storage: redis upload: %w", err)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			s.rdb.Del(ctx, tmp)
			return fmt.Errorf("storage: redis upload: %w", rerr)
		}
	}
	if err := s.rdb.Rename(ctx, tmp, s.key(path)).Err(); err != nil {
		s.rdb.Del(ctx, tmp)
		return fmt.Errorf("storage: redis upload: %w", err)
	}
	return nil
}

// Download returns the whole value. The reader is seekable.
func (s *Storage) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	b, err := s.rdb.Get(ctx, s.key(path)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, apperrors.NotFound("object", path)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: redis download: %w", err)
	}
	return readSeekNopCloser{bytes.NewReader(b)}, nil
}

// DownloadRange returns the value from offset onward. GETRANGE cannot tell
// a missing key from an empty value, so existence is checked in the same
// transaction.
func (s *Storage) DownloadRange(ctx context.Context, path string, offset int64) (io.ReadCloser, error) {
	var (
		exists *goredis.IntCmd
		value  *goredis.StringCmd
	)
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		exists = p.Exists(ctx, s.key(path))
		value = p.GetRange(ctx, s.key(path), offset, -1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: redis download: %w", err)
	}
	if exists.Val() == 0 {
		return nil, apperrors.NotFound("object", path)
	}
	return io.NopCloser(strings.NewReader(value.Val())), nil
}

// Delete removes the value. Returns nil if it does not exist.
func (s *Storage) Delete(ctx context.Context, path string) error {
	if err := s.rdb.Del(ctx, s.key(path)).Err(); err != nil {
		return fmt.Errorf("storage: redis delete: %w", err)
	}
	return nil
}

// Exists checks whether a value is stored at path.
func (s *Storage) Exists(ctx context.Context, path string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(path)).Result()
	if err != nil {
		return false, fmt.Errorf("storage: redis exists: %w", err)
	}
	return n > 0, nil
}

// URL returns a redis:// URL naming the key.
func (s *Storage) URL(_ context.Context, path string) (string, error) {
	o := s.rdb.Options()
	return fmt.Sprintf("redis://%s/%d/%s", o.Addr, o.DB, s.key(path)), nil
}

// List scans the keys under prefix. Keys of uploads in progress are
// skipped.
func (s *Storage) List(ctx context.Context, prefix string) ([]storage.FileInfo, error) {
	var files []storage.FileInfo
	iter := s.rdb.Scan(ctx, 0, escapeGlob(s.key(prefix))+"*", 0).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		if strings.Contains(k, ".upload-") {
			continue
		}
		size, err := s.rdb.StrLen(ctx, k).Result()
		if err != nil {
			return nil, fmt.Errorf("storage: redis list: %w", err)
		}
		files = append(files, storage.FileInfo{
			Path: strings.TrimPrefix(k, s.prefix),
			Size: size,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("storage: redis list: %w", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// Close closes a connection opened by New. Safe to call multiple times.
func (s *Storage) Close() error {
	if s == nil || !s.owned {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.log.Info("Closing Redis connection")
	s.closed = true
	return s.rdb.Close()
}

type readSeekNopCloser struct{ *bytes.Reader }

func (readSeekNopCloser) Close() error { return nil }

func escapeGlob(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}

var (
	_ storage.Storage         = (*Storage)(nil)
	_ storage.RangeDownloader = (*Storage)(nil)
)
