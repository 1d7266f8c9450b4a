package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"belajoia/backend/internal/blob"
	"belajoia/backend/internal/cart"
	"belajoia/backend/internal/domain"
	"belajoia/backend/internal/recommendation"
	"belajoia/backend/internal/search"
	"belajoia/backend/internal/store"
)

const (
	DefaultWhatsAppPhone = "5511999999999"
	maxListLimit         = 100
	maxRelatedLimit      = 12
	stockIDPrefix        = "STK-"
)

var (
	ErrAdminRequired = errors.New("admin role required")
	ErrEmptyCart     = errors.New("cart is empty")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Settings struct {
	WhatsAppPhone string
	PublicBaseURL string
}

type Service struct {
	repo     store.Repository
	carts    *cart.Store
	searcher *search.Aggregator
	related  *recommendation.Engine
	blobs    blob.Storage
	settings Settings
	logger   *zap.Logger
	now      func() time.Time

	// stockMu serializes stock code assignment with the insert.
	stockMu sync.Mutex
}

func New(repo store.Repository, carts *cart.Store, searcher *search.Aggregator, related *recommendation.Engine, blobs blob.Storage, settings Settings, logger *zap.Logger) *Service {
	if related == nil {
		related = recommendation.NewEngine(nil, 0)
	}
	if settings.WhatsAppPhone == "" {
		settings.WhatsAppPhone = DefaultWhatsAppPhone
	}
	settings.PublicBaseURL = strings.TrimRight(settings.PublicBaseURL, "/")
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		repo:     repo,
		carts:    carts,
		searcher: searcher,
		related:  related,
		blobs:    blobs,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

func requireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Actor{}, ErrAdminRequired
	}
	return actor, nil
}

func (s *Service) ListProducts(ctx context.Context, query domain.ProductQuery) ([]domain.Product, error) {
	if query.Limit < 0 {
		return nil, store.ErrInvalidInput
	}
	if query.Limit > maxListLimit {
		query.Limit = maxListLimit
	}
	query.Category = store.Slug(query.Category)
	return s.repo.ListProducts(ctx, query)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *p, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) Search(ctx context.Context, query string) ([]domain.Product, error) {
	return s.searcher.Search(ctx, query)
}

// RelatedProducts lists in-stock products to show alongside product id.
func (s *Service) RelatedProducts(ctx context.Context, id string, limit int) ([]domain.Product, error) {
	if limit < 0 {
		return nil, store.ErrInvalidInput
	}
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	catalog, err := s.repo.ListProducts(ctx, domain.ProductQuery{OrderBy: domain.OrderBestSelling})
	if err != nil {
		return nil, err
	}
	return s.related.Related(ctx, product, catalog, min(limit, maxRelatedLimit)), nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Category = store.Slug(req.Category)
	if req.Title == "" || req.Price < 0 || req.PixPrice < 0 || req.Stock < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}
	if req.PixPrice == 0 {
		req.PixPrice = req.Price
	}

	s.stockMu.Lock()
	defer s.stockMu.Unlock()

	stockID, err := s.nextStockID(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		StockID:     stockID,
		Title:       req.Title,
		Category:    req.Category,
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		PixPrice:    req.PixPrice,
		ImageURLs:   req.ImageURLs,
		Stock:       req.Stock,
		Featured:    req.Featured,
		Tags:        req.Tags,
		CreatedAt:   domain.DateOf(s.now()),
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateCaches(ctx)

	s.logger.Info("product created",
		zap.String("actor", actor.Username),
		zap.String("product_id", created.ID),
		zap.String("stock_id", created.StockID),
	)
	return *created, nil
}

// nextStockID returns the code after the highest STK-<n> in the catalog.
// Codes that do not follow the pattern are ignored.
func (s *Service) nextStockID(ctx context.Context) (string, error) {
	products, err := s.repo.ListProducts(ctx, domain.ProductQuery{})
	if err != nil {
		return "", err
	}
	highest := 0
	for _, p := range products {
		n, err := strconv.Atoi(strings.TrimPrefix(p.StockID, stockIDPrefix))
		if err != nil || !strings.HasPrefix(p.StockID, stockIDPrefix) {
			continue
		}
		highest = max(highest, n)
	}
	return stockIDPrefix + strconv.Itoa(highest+1), nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	id = strings.TrimSpace(id)
	if id == "" || patch.Empty() {
		return domain.Product{}, store.ErrInvalidInput
	}

	updated, err := s.repo.UpdateProduct(ctx, id, patch)
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateCaches(ctx)
	s.logger.Info("product updated", zap.String("actor", actor.Username), zap.String("product_id", id))
	return *updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return store.ErrInvalidInput
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.invalidateCaches(ctx)
	s.logger.Info("product deleted", zap.String("actor", actor.Username), zap.String("product_id", id))
	return nil
}

// invalidateCaches drops search and related results computed before a
// catalog change. A failure only leaves entries to expire on their TTL.
func (s *Service) invalidateCaches(ctx context.Context) {
	if err := s.searcher.Invalidate(ctx); err != nil {
		s.logger.Warn("search cache invalidation failed", zap.Error(err))
	}
	if err := s.related.Invalidate(ctx); err != nil {
		s.logger.Warn("related cache invalidation failed", zap.Error(err))
	}
}

// UploadProductImage stores an image and appends its public URL to the
// product's gallery.
func (s *Service) UploadProductImage(ctx context.Context, id string, filename string, contentType string, r io.Reader) (domain.Product, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}
	if !strings.HasPrefix(contentType, "image/") {
		return domain.Product{}, store.ErrInvalidInput
	}

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "image"
	}
	objectPath := fmt.Sprintf("products/%s/%d_%s", product.ID, s.now().UnixMilli(), name)
	if err := s.blobs.Put(ctx, objectPath, contentType, r); err != nil {
		return domain.Product{}, fmt.Errorf("store image: %w", err)
	}

	images := append(append([]string{}, product.ImageURLs...), blob.PublicURL(s.settings.PublicBaseURL, objectPath))
	updated, err := s.repo.UpdateProduct(ctx, product.ID, domain.ProductPatch{ImageURLs: &images})
	if err != nil {
		return domain.Product{}, err
	}
	s.invalidateCaches(ctx)
	return *updated, nil
}

// OpenMedia streams a stored object into w and returns its content type.
func (s *Service) OpenMedia(ctx context.Context, objectPath string, w io.Writer) (string, error) {
	objectPath = strings.TrimPrefix(path.Clean("/"+objectPath), "/")
	if objectPath == "" {
		return "", store.ErrNotFound
	}
	contentType, err := s.blobs.Open(ctx, objectPath, w)
	if errors.Is(err, blob.ErrNotFound) {
		return "", store.ErrNotFound
	}
	return contentType, err
}

// AdminListProducts lists the whole catalog newest first, optionally
// narrowed to products whose title, category or stock code contains q.
func (s *Service) AdminListProducts(ctx context.Context, q string) ([]domain.Product, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	products, err := s.repo.ListProducts(ctx, domain.ProductQuery{OrderBy: domain.OrderNewest})
	if err != nil {
		return nil, err
	}
	term := strings.ToLower(strings.TrimSpace(q))
	if term == "" {
		return products, nil
	}

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Title), term) ||
			strings.Contains(strings.ToLower(p.Category), term) ||
			strings.Contains(strings.ToLower(p.StockID), term) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (domain.Category, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.Category{}, err
	}

	name := strings.Join(strings.Fields(req.Name), " ")
	if name == "" {
		return domain.Category{}, store.ErrInvalidInput
	}

	saved, err := s.repo.SaveCategory(ctx, domain.Category{
		ID:        store.Slug(name),
		Name:      capitalize(name),
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return domain.Category{}, err
	}

	s.logger.Info("category saved", zap.String("actor", actor.Username), zap.String("category_id", saved.ID))
	return *saved, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return store.ErrInvalidInput
	}
	return s.repo.DeleteCategory(ctx, id)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
