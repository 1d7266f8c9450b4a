// Package search answers storefront product searches. Document stores only
// offer prefix ranges and array membership, so a search runs four such
// queries concurrently, merges them and falls back to an in-process substring
// scan of the catalog when they find too little.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"belajoia/backend/internal/cache"
	"belajoia/backend/internal/domain"
	"belajoia/backend/internal/store"
)

// FallbackThreshold is the merged result count below which the full catalog
// scan runs.
const FallbackThreshold = 5

// runTimeout bounds a shared backend search once it no longer follows any
// single caller's context.
const runTimeout = 10 * time.Second

var (
	ErrEmptyQuery   = errors.New("search query is empty")
	ErrSearchFailed = errors.New("search failed")
)

// Source is the subset of the catalog a search needs.
type Source interface {
	PrefixSearch(ctx context.Context, field store.SearchField, term string) ([]domain.Product, error)
	TagSearch(ctx context.Context, tag string) ([]domain.Product, error)
	ListProducts(ctx context.Context, query domain.ProductQuery) ([]domain.Product, error)
}

type Aggregator struct {
	source Source
	cache  cache.SearchCache
	ttl    time.Duration
	logger *zap.Logger
	group  singleflight.Group
	gen    atomic.Uint64
}

func NewAggregator(source Source, searchCache cache.SearchCache, ttl time.Duration, logger *zap.Logger) *Aggregator {
	if searchCache == nil {
		searchCache = cache.NoopSearchCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{source: source, cache: searchCache, ttl: ttl, logger: logger}
}

// Search returns products matching query, title matches first. Any backend
// failure fails the whole search; partial results are never returned.
func (a *Aggregator) Search(ctx context.Context, query string) ([]domain.Product, error) {
	term := strings.ToLower(strings.TrimSpace(query))
	if term == "" {
		return nil, ErrEmptyQuery
	}

	key := cache.SearchKey(term)
	if cached, ok, err := a.cache.Get(ctx, key); err != nil {
		a.logger.Warn("search cache read failed", zap.Error(err))
	} else if ok {
		return cached, nil
	}

	gen := a.gen.Load()
	ch := a.group.DoChan(strconv.FormatUint(gen, 10)+":"+term, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), runTimeout)
		defer cancel()
		return a.run(runCtx, term)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	results := append([]domain.Product(nil), res.Val.([]domain.Product)...)

	if a.ttl > 0 && a.gen.Load() == gen {
		if err := a.cache.Set(ctx, key, results, a.ttl); err != nil {
			a.logger.Warn("search cache write failed", zap.Error(err))
		}
	}
	return results, nil
}

// Invalidate drops cached results after a catalog change. Searches already
// running finish but no longer write their results to the cache.
func (a *Aggregator) Invalidate(ctx context.Context) error {
	a.gen.Add(1)
	return a.cache.Invalidate(ctx, cache.SearchPrefix)
}

func (a *Aggregator) run(ctx context.Context, term string) ([]domain.Product, error) {
	fields := []store.SearchField{store.FieldTitle, store.FieldDescription, store.FieldCategory}
	batches := make([][]domain.Product, len(fields)+1)

	g, gctx := errgroup.WithContext(ctx)
	for i, field := range fields {
		g.Go(func() error {
			products, err := a.source.PrefixSearch(gctx, field, term)
			if err != nil {
				return fmt.Errorf("prefix %s: %w", field, err)
			}
			batches[i] = products
			return nil
		})
	}
	g.Go(func() error {
		products, err := a.source.TagSearch(gctx, term)
		if err != nil {
			return fmt.Errorf("tags: %w", err)
		}
		batches[len(fields)] = products
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}

	seen := make(map[string]struct{})
	results := make([]domain.Product, 0)
	for _, batch := range batches {
		for _, p := range batch {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			results = append(results, p)
		}
	}

	if len(results) < FallbackThreshold {
		all, err := a.source.ListProducts(ctx, domain.ProductQuery{})
		if err != nil {
			return nil, fmt.Errorf("%w: full scan: %w", ErrSearchFailed, err)
		}
		for _, p := range all {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			if containsTerm(p, term) {
				seen[p.ID] = struct{}{}
				results = append(results, p)
			}
		}
	}

	Rank(results, term)
	a.logger.Debug("search completed", zap.String("term", term), zap.Int("results", len(results)))
	return results, nil
}

// Rank moves products whose title contains term to the front, keeping the
// relative order within each group.
func Rank(products []domain.Product, term string) {
	sort.SliceStable(products, func(i, j int) bool {
		return titleMatches(products[i], term) && !titleMatches(products[j], term)
	})
}

func titleMatches(p domain.Product, term string) bool {
	return strings.Contains(strings.ToLower(p.Title), term)
}

func containsTerm(p domain.Product, term string) bool {
	if titleMatches(p, term) ||
		strings.Contains(strings.ToLower(p.Description), term) ||
		strings.Contains(strings.ToLower(p.Category), term) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}
