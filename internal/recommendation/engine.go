package recommendation

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"belajoia/backend/internal/cache"
	"belajoia/backend/internal/domain"
)

const DefaultLimit = 4

// Engine ranks catalog products that go well with a product being viewed.
type Engine struct {
	cache    cache.SearchCache
	cacheTTL time.Duration
}

func NewEngine(cacheStore cache.SearchCache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopSearchCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}

	return &Engine{
		cache:    cacheStore,
		cacheTTL: cacheTTL,
	}
}

type scored struct {
	product domain.Product
	score   float64
}

// Related returns up to limit in-stock products from catalog, best match
// first. Shared tags weigh most, then category, sales and price proximity,
// so a product with no close match still gets the best sellers.
func (e *Engine) Related(ctx context.Context, product domain.Product, catalog []domain.Product, limit int) []domain.Product {
	if limit < 1 {
		limit = DefaultLimit
	}

	cacheKey := buildCacheKey(product.ID, limit)
	if cached, ok, err := e.cache.Get(ctx, cacheKey); err == nil && ok {
		return cached
	}

	tags := make(map[string]struct{}, len(product.Tags))
	for _, tag := range product.Tags {
		tags[strings.ToLower(tag)] = struct{}{}
	}

	maxSold := 1
	for _, candidate := range catalog {
		maxSold = max(maxSold, candidate.Sold)
	}

	ranked := make([]scored, 0, len(catalog))
	for _, candidate := range catalog {
		if candidate.ID == product.ID || candidate.Stock <= 0 {
			continue
		}

		tagAffinity := 0.0
		if len(tags) > 0 {
			shared := 0
			for _, tag := range candidate.Tags {
				if _, ok := tags[strings.ToLower(tag)]; ok {
					shared++
				}
			}
			tagAffinity = clamp(float64(shared)/float64(len(tags)), 0, 1)
		}

		categoryMatch := 0.0
		if product.Category != "" && strings.EqualFold(candidate.Category, product.Category) {
			categoryMatch = 1
		}

		popularity := clamp(float64(candidate.Sold)/float64(maxSold), 0, 1)
		proximity := priceProximity(product.Price, candidate.Price)

		score :=
			0.40*tagAffinity +
				0.25*categoryMatch +
				0.20*popularity +
				0.15*proximity

		ranked = append(ranked, scored{product: candidate, score: round2(score)})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if ranked[i].product.Sold != ranked[j].product.Sold {
			return ranked[i].product.Sold > ranked[j].product.Sold
		}
		return ranked[i].product.ID < ranked[j].product.ID
	})

	out := make([]domain.Product, 0, min(limit, len(ranked)))
	for _, r := range ranked {
		if len(out) == limit {
			break
		}
		out = append(out, r.product)
	}

	_ = e.cache.Set(ctx, cacheKey, out, e.cacheTTL)
	return out
}

// Invalidate drops cached rankings after a catalog change.
func (e *Engine) Invalidate(ctx context.Context) error {
	return e.cache.Invalidate(ctx, cache.RelatedPrefix)
}

func priceProximity(a float64, b float64) float64 {
	top := math.Max(a, b)
	if top <= 0 {
		return 1
	}
	return 1 - clamp(math.Abs(a-b)/top, 0, 1)
}

func buildCacheKey(productID string, limit int) string {
	hash := sha1.Sum([]byte(fmt.Sprintf("%s|%d", productID, limit)))
	return cache.RelatedPrefix + hex.EncodeToString(hash[:])
}

func clamp(val float64, minVal float64, maxVal float64) float64 {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

func round2(val float64) float64 {
	return math.Round(val*100) / 100
}
