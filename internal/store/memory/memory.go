package memory

import (
	"context"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"belajoia/backend/internal/domain"
	"belajoia/backend/internal/store"
	"belajoia/backend/internal/xid"
)

// Store keeps products as schemaless documents so reads go through the same
// defaulting path as the document database backends.
type Store struct {
	mu              sync.RWMutex
	products        map[string]map[string]any
	categories      map[string]domain.Category
	usersByUsername map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		products:        make(map[string]map[string]any),
		categories:      make(map[string]domain.Category),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

// seedUsers builds the dev admin account. The password is read from
// SEED_ADMIN_PASSWORD; the hardcoded default is only meant for local runs.
func seedUsers() map[string]domain.UserAccount {
	email := strings.ToLower(envOr("SEED_ADMIN_EMAIL", "admin@belajoia.com.br"))
	password := envOr("SEED_ADMIN_PASSWORD", "admin123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" {
		zap.L().Warn("memory store is using the default dev admin password; set SEED_ADMIN_PASSWORD to override")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		zap.L().Fatal("failed to hash seed password", zap.Error(err))
	}
	return map[string]domain.UserAccount{
		email: {
			Username:  email,
			Password:  string(hash),
			Role:      "admin",
			Active:    true,
			CreatedAt: time.Now().UTC(),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store with a small demo catalog and the dev admin.
func NewSeeded() *Store {
	s := New()
	s.usersByUsername = seedUsers()

	now := time.Now().UTC()
	for _, name := range []string{"Anéis", "Brincos", "Colares", "Pulseiras"} {
		id := store.Slug(name)
		s.categories[id] = domain.Category{ID: id, Name: name, CreatedAt: now}
	}

	seed := []domain.Product{
		{StockID: "STK-1", Title: "Anel Solitário Prata 925", Category: "anéis", Description: "Anel solitário com zircônia", Price: 129.9, PixPrice: 119.9, Stock: 4, Sold: 18, Featured: true, Tags: []string{"prata", "zirconia"}, CreatedAt: domain.CreatedDate{Day: 10, Month: 1, Year: 2025}},
		{StockID: "STK-2", Title: "Brinco Argola Dourada", Category: "brincos", Description: "Argola média banhada a ouro 18k", Price: 79.9, PixPrice: 72.9, Stock: 10, Sold: 31, Tags: []string{"ouro", "argola"}, CreatedAt: domain.CreatedDate{Day: 2, Month: 2, Year: 2025}},
		{StockID: "STK-3", Title: "Colar Ponto de Luz", Category: "colares", Description: "Corrente veneziana com ponto de luz", Price: 99.9, PixPrice: 89.9, Stock: 0, Sold: 42, Featured: true, Tags: []string{"prata", "ponto de luz"}, CreatedAt: domain.CreatedDate{Day: 20, Month: 12, Year: 2024}},
		{StockID: "STK-4", Title: "Pulseira Riviera", Category: "pulseiras", Description: "Pulseira riviera cravejada", Price: 159.9, PixPrice: 149.9, Stock: 2, Sold: 7, Tags: []string{"riviera", "zirconia"}, CreatedAt: domain.CreatedDate{Day: 15, Month: 3, Year: 2025}},
		{StockID: "STK-5", Title: "Anel Aparador Dourado", Category: "anéis", Description: "Anel aparador liso banhado", Price: 49.9, PixPrice: 44.9, Stock: 12, Sold: 25, Tags: []string{"ouro"}, CreatedAt: domain.CreatedDate{Day: 1, Month: 3, Year: 2025}},
	}
	for _, p := range seed {
		s.products[xid.New("prd")] = store.ProductDocument(p)
	}
	return s
}

func (s *Store) ListProducts(_ context.Context, query domain.ProductQuery) ([]domain.Product, error) {
	s.mu.RLock()
	products := make([]domain.Product, 0, len(s.products))
	for id, doc := range s.products {
		products = append(products, store.ProductFromDocument(id, doc))
	}
	s.mu.RUnlock()

	slices.SortFunc(products, func(a, b domain.Product) int {
		return strings.Compare(a.ID, b.ID)
	})
	if query.OrderBy == "" {
		query.OrderBy = domain.OrderNewest
	}
	return store.ApplyQuery(products, query), nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p := store.ProductFromDocument(id, doc)
	return &p, nil
}

// PutDocument stores a raw document as-is. It exists to load catalog data
// exported from other tools, which may not follow the current schema.
func (s *Store) PutDocument(id string, doc map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id] = doc
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if err := store.ValidateProduct(product); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product.ID = xid.New("prd")
	s.products[product.ID] = store.ProductDocument(product)
	created := store.ProductFromDocument(product.ID, s.products[product.ID])
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	updated := store.ApplyPatch(store.ProductFromDocument(id, doc), patch)
	if err := store.ValidateProduct(updated); err != nil {
		return nil, err
	}
	s.products[id] = store.ProductDocument(updated)
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) PrefixSearch(_ context.Context, field store.SearchField, term string) ([]domain.Product, error) {
	if !store.ValidField(field) {
		return nil, store.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0)
	for id, doc := range s.products {
		if store.InPrefixRange(stringField(doc, string(field)), term) {
			out = append(out, store.ProductFromDocument(id, doc))
		}
	}
	sortByID(out)
	return out, nil
}

func (s *Store) TagSearch(_ context.Context, tag string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0)
	for id, doc := range s.products {
		p := store.ProductFromDocument(id, doc)
		if slices.Contains(p.Tags, tag) {
			out = append(out, p)
		}
	}
	sortByID(out)
	return out, nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.Category) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (s *Store) SaveCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	if strings.TrimSpace(category.ID) == "" || strings.TrimSpace(category.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[category.ID] = category
	saved := category
	return &saved, nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidInput
	}
	user.Username = username
	if user.Role == "" {
		user.Role = "admin"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func stringField(doc map[string]any, key string) string {
	v, _ := doc[key].(string)
	return v
}

func sortByID(products []domain.Product) {
	slices.SortFunc(products, func(a, b domain.Product) int {
		return strings.Compare(a.ID, b.ID)
	})
}
