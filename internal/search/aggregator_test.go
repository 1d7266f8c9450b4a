package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"belajoia/backend/internal/domain"
	"belajoia/backend/internal/store"
)

type fakeSource struct {
	prefix    map[store.SearchField][]domain.Product
	tags      []domain.Product
	all       []domain.Product
	prefixErr error
	listErr   error
	listCalls atomic.Int32
	calls     atomic.Int32
	delay     time.Duration
}

func (f *fakeSource) PrefixSearch(ctx context.Context, field store.SearchField, _ string) ([]domain.Product, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.prefixErr != nil && field == store.FieldDescription {
		return nil, f.prefixErr
	}
	return f.prefix[field], nil
}

func (f *fakeSource) TagSearch(_ context.Context, _ string) ([]domain.Product, error) {
	f.calls.Add(1)
	return f.tags, nil
}

func (f *fakeSource) ListProducts(_ context.Context, _ domain.ProductQuery) ([]domain.Product, error) {
	f.listCalls.Add(1)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.all, nil
}

type memoryCache struct {
	mu     sync.Mutex
	values map[string][]domain.Product
}

func (c *memoryCache) Get(_ context.Context, key string) ([]domain.Product, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []domain.Product, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = make(map[string][]domain.Product)
	}
	c.values[key] = value
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.values {
		if strings.HasPrefix(key, prefix) {
			delete(c.values, key)
		}
	}
	return nil
}

func product(id, title string) domain.Product {
	return domain.Product{ID: id, Title: title}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	agg := NewAggregator(&fakeSource{}, nil, 0, nil)
	if _, err := agg.Search(context.Background(), "   "); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestSearchMergesByIDFirstWins(t *testing.T) {
	anel := product("p1", "Anel Prata")
	src := &fakeSource{
		prefix: map[store.SearchField][]domain.Product{
			store.FieldTitle:       {anel},
			store.FieldDescription: {{ID: "p1", Title: "stale copy"}},
		},
		tags: []domain.Product{anel},
		all:  []domain.Product{anel},
	}
	agg := NewAggregator(src, nil, 0, nil)

	results, err := agg.Search(context.Background(), "Anel")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected product returned once, got %d", len(results))
	}
	if results[0].Title != "Anel Prata" {
		t.Fatalf("expected title-query copy to win, got %q", results[0].Title)
	}
	if src.calls.Load() != 4 {
		t.Fatalf("expected 4 indexed queries, got %d", src.calls.Load())
	}
}

func TestSearchFallbackAddsSubstringMatches(t *testing.T) {
	src := &fakeSource{
		prefix: map[store.SearchField][]domain.Product{
			store.FieldTitle: {product("p1", "Prata Anel")},
		},
		all: []domain.Product{
			product("p1", "Prata Anel"),
			product("p2", "Colar de prata"),
			{ID: "p3", Title: "Brinco", Description: "Feito em PRATA 925"},
			{ID: "p4", Title: "Pulseira", Tags: []string{"prata-lisa"}},
			product("p5", "Anel Ouro"),
		},
	}
	agg := NewAggregator(src, nil, 0, nil)

	results, err := agg.Search(context.Background(), "prata")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	got := ids(results)
	want := []string{"p1", "p2", "p3", "p4"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSearchSkipsFallbackAtThreshold(t *testing.T) {
	hits := make([]domain.Product, 0, FallbackThreshold)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		hits = append(hits, product(id, "anel "+id))
	}
	src := &fakeSource{prefix: map[store.SearchField][]domain.Product{store.FieldTitle: hits}}
	agg := NewAggregator(src, nil, 0, nil)

	if _, err := agg.Search(context.Background(), "anel"); err != nil {
		t.Fatalf("search: %v", err)
	}
	if src.listCalls.Load() != 0 {
		t.Fatalf("expected no full scan with %d hits", FallbackThreshold)
	}
}

func TestSearchRanksTitleMatchesFirst(t *testing.T) {
	src := &fakeSource{
		prefix: map[store.SearchField][]domain.Product{
			store.FieldDescription: {{ID: "d1", Title: "Corrente", Description: "colar fino"}},
			store.FieldCategory:    {product("c1", "Colar Gota")},
		},
		tags: []domain.Product{product("t1", "Gargantilha")},
	}
	agg := NewAggregator(src, nil, 0, nil)

	results, err := agg.Search(context.Background(), "colar")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	got := ids(results)
	if len(got) != 3 || got[0] != "c1" || got[1] != "d1" || got[2] != "t1" {
		t.Fatalf("expected title match first then stable order, got %v", got)
	}
}

func TestSearchFailsOnAnyQueryError(t *testing.T) {
	src := &fakeSource{
		prefix:    map[store.SearchField][]domain.Product{store.FieldTitle: {product("p1", "Anel")}},
		prefixErr: errors.New("index unavailable"),
	}
	agg := NewAggregator(src, nil, 0, nil)

	results, err := agg.Search(context.Background(), "anel")
	if !errors.Is(err, ErrSearchFailed) {
		t.Fatalf("expected ErrSearchFailed, got %v", err)
	}
	if results != nil {
		t.Fatalf("expected no partial results, got %v", results)
	}
}

func TestSearchFailsWhenFullScanFails(t *testing.T) {
	src := &fakeSource{listErr: errors.New("timeout")}
	agg := NewAggregator(src, nil, 0, nil)

	if _, err := agg.Search(context.Background(), "anel"); !errors.Is(err, ErrSearchFailed) {
		t.Fatalf("expected ErrSearchFailed, got %v", err)
	}
}

func TestSearchUsesCache(t *testing.T) {
	src := &fakeSource{all: []domain.Product{product("p1", "Anel")}}
	agg := NewAggregator(src, &memoryCache{}, time.Minute, nil)
	ctx := context.Background()

	first, err := agg.Search(ctx, "anel")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	second, err := agg.Search(ctx, " ANEL ")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("unexpected results %v / %v", first, second)
	}
	if src.listCalls.Load() != 1 {
		t.Fatalf("expected second search to be served from cache, got %d scans", src.listCalls.Load())
	}
}

func TestSearchHonoursCancellation(t *testing.T) {
	src := &fakeSource{delay: time.Second}
	agg := NewAggregator(src, nil, 0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := agg.Search(ctx, "anel"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("search did not stop on cancellation")
	}
}

func TestSharedSearchOutlivesCancelledCaller(t *testing.T) {
	src := &fakeSource{
		delay: 200 * time.Millisecond,
		all:   []domain.Product{product("p1", "Anel Prata")},
	}
	agg := NewAggregator(src, nil, 0, nil)

	first, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := agg.Search(first, "anel")
		firstErr <- err
	}()

	// Let the first caller start the backend queries before the second joins.
	for src.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	secondDone := make(chan struct{})
	var (
		second    []domain.Product
		secondErr error
	)
	go func() {
		defer close(secondDone)
		second, secondErr = agg.Search(context.Background(), "anel")
	}()

	time.Sleep(20 * time.Millisecond)
	cancelFirst()

	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled caller to see context.Canceled, got %v", err)
	}
	<-secondDone
	if secondErr != nil {
		t.Fatalf("expected joined caller to succeed, got %v", secondErr)
	}
	if len(second) != 1 || second[0].ID != "p1" {
		t.Fatalf("unexpected results %v", ids(second))
	}
	if src.listCalls.Load() != 1 {
		t.Fatalf("expected callers to share one search, got %d scans", src.listCalls.Load())
	}
}

func TestInvalidateDropsCachedResults(t *testing.T) {
	src := &fakeSource{all: []domain.Product{product("p1", "Anel")}}
	c := &memoryCache{}
	agg := NewAggregator(src, c, time.Minute, nil)
	ctx := context.Background()

	if _, err := agg.Search(ctx, "anel"); err != nil {
		t.Fatalf("search: %v", err)
	}
	_ = c.Set(ctx, "belajoia:related:x", nil, time.Minute)

	src.all = append(src.all, product("p2", "Anel Dourado"))
	if err := agg.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	got, err := agg.Search(ctx, "anel")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected fresh results after invalidation, got %v", ids(got))
	}
	if _, ok, _ := c.Get(ctx, "belajoia:related:x"); !ok {
		t.Fatalf("expected entries outside the search prefix to stay")
	}
}

func ids(products []domain.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}
