package textsource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"certverify/internal/certificate"
	"certverify/internal/verification/ports"
)

const cacheKeyPrefix = "certverify:text:"

// Store is the subset of the redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// CachedSource memoizes acquired text by the SHA-256 of the document bytes.
// Cache failures are logged and bypassed; only clean acquisitions (no
// warnings, no upstream failure) are stored.
type CachedSource struct {
	next   ports.TextSource
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedSource wraps next with a redis-backed cache.
func NewCachedSource(next ports.TextSource, store Store, ttl time.Duration, logger *slog.Logger) *CachedSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedSource{next: next, store: store, ttl: ttl, logger: logger}
}

func (c *CachedSource) Acquire(ctx context.Context, doc certificate.Document) (certificate.TextDocument, error) {
	key, err := cacheKey(doc)
	if err != nil {
		c.logger.WarnContext(ctx, "text cache bypassed", "error", err)
		return c.next.Acquire(ctx, doc)
	}

	if td, ok := c.lookup(ctx, key); ok {
		return td, nil
	}

	td, err := c.next.Acquire(ctx, doc)
	if err != nil {
		return td, err
	}
	if td.Failure == "" && len(td.Warnings) == 0 && len(td.Lines) > 0 {
		c.save(ctx, key, td)
	}
	return td, nil
}

func (c *CachedSource) lookup(ctx context.Context, key string) (certificate.TextDocument, bool) {
	raw, err := c.store.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "text cache read failed", "key", key, "error", err)
		}
		return certificate.TextDocument{}, false
	}
	var td certificate.TextDocument
	if err := json.Unmarshal(raw, &td); err != nil {
		c.logger.WarnContext(ctx, "text cache entry corrupt", "key", key, "error", err)
		return certificate.TextDocument{}, false
	}
	c.logger.DebugContext(ctx, "text cache hit", "key", key)
	return td, true
}

func (c *CachedSource) save(ctx context.Context, key string, td certificate.TextDocument) {
	raw, err := json.Marshal(td)
	if err != nil {
		c.logger.WarnContext(ctx, "text cache encode failed", "error", err)
		return
	}
	if err := c.store.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "text cache write failed", "key", key, "error", err)
	}
}

// cacheKey hashes the document bytes; the format is part of the key since
// the same bytes are read differently as PDF and as image.
func cacheKey(doc certificate.Document) (string, error) {
	f, err := os.Open(doc.Path)
	if err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash document: %w", err)
	}
	return cacheKeyPrefix + string(doc.Format) + ":" + hex.EncodeToString(h.Sum(nil)), nil
}
