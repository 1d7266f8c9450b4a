package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"belajoia/backend/internal/domain"
)

const (
	SearchPrefix  = "belajoia:search:"
	RelatedPrefix = "belajoia:related:"
)

type SearchCache interface {
	Get(ctx context.Context, key string) ([]domain.Product, bool, error)
	Set(ctx context.Context, key string, value []domain.Product, ttl time.Duration) error
	// Invalidate removes every entry whose key starts with prefix.
	Invalidate(ctx context.Context, prefix string) error
}

// SearchKey derives the cache key for a normalized search term.
func SearchKey(term string) string {
	sum := sha1.Sum([]byte(strings.ToLower(strings.TrimSpace(term))))
	return SearchPrefix + hex.EncodeToString(sum[:])
}

type NoopSearchCache struct{}

func (NoopSearchCache) Get(_ context.Context, _ string) ([]domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopSearchCache) Set(_ context.Context, _ string, _ []domain.Product, _ time.Duration) error {
	return nil
}

func (NoopSearchCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
