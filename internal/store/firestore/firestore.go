package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"belajoia/backend/internal/domain"
	"belajoia/backend/internal/normalize"
	"belajoia/backend/internal/store"
	"belajoia/backend/internal/xid"
)

type Store struct {
	client     *firestore.Client
	products   *firestore.CollectionRef
	categories *firestore.CollectionRef
	users      *firestore.CollectionRef
}

// Connect opens a client for projectID. FIRESTORE_EMULATOR_HOST is honoured by
// the client library itself.
func Connect(ctx context.Context, projectID string) (*firestore.Client, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return client, nil
}

func New(client *firestore.Client) *Store {
	return &Store{
		client:     client,
		products:   client.Collection("products"),
		categories: client.Collection("categories"),
		users:      client.Collection("users"),
	}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func snapshotsToProducts(snaps []*firestore.DocumentSnapshot) []domain.Product {
	products := make([]domain.Product, 0, len(snaps))
	for _, snap := range snaps {
		if snap == nil || !snap.Exists() {
			continue
		}
		products = append(products, store.ProductFromDocument(snap.Ref.ID, snap.Data()))
	}
	return products
}

func (s *Store) run(ctx context.Context, q firestore.Query) ([]domain.Product, error) {
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	return snapshotsToProducts(snaps), nil
}

// ListProducts pushes filters down to Firestore. Best-selling order on an
// unfiltered listing is done natively; other orderings would need composite
// indexes on the nested createdAt map, so they are applied in process.
func (s *Store) ListProducts(ctx context.Context, query domain.ProductQuery) ([]domain.Product, error) {
	q := s.products.Query
	filtered := false
	if query.Category != "" {
		q = q.Where("category", "==", query.Category)
		filtered = true
	}
	if query.Featured != nil {
		q = q.Where("featured", "==", *query.Featured)
		filtered = true
	}

	if query.OrderBy == domain.OrderBestSelling && !filtered {
		q = q.OrderBy("sold", firestore.Desc)
		if query.Limit > 0 {
			q = q.Limit(query.Limit)
		}
		return s.run(ctx, q)
	}

	products, err := s.run(ctx, q)
	if err != nil {
		return nil, err
	}
	if query.OrderBy == "" {
		query.OrderBy = domain.OrderNewest
	}
	return store.ApplyQuery(products, query), nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	snap, err := s.products.Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	p := store.ProductFromDocument(id, snap.Data())
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := store.ValidateProduct(product); err != nil {
		return nil, err
	}
	product.ID = xid.New("prd")

	doc := store.ProductDocument(product)
	if _, err := s.products.Doc(product.ID).Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	created := store.ProductFromDocument(product.ID, doc)
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	ref := s.products.Doc(id)
	var updated domain.Product

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return store.ErrNotFound
			}
			return err
		}
		updated = store.ApplyPatch(store.ProductFromDocument(id, snap.Data()), patch)
		if err := store.ValidateProduct(updated); err != nil {
			return err
		}
		return tx.Set(ref, store.ProductDocument(updated))
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	ref := s.products.Doc(id)
	if _, err := ref.Get(ctx); err != nil {
		if isNotFound(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("failed to get product: %w", err)
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func (s *Store) PrefixSearch(ctx context.Context, field store.SearchField, term string) ([]domain.Product, error) {
	if !store.ValidField(field) {
		return nil, store.ErrInvalidInput
	}
	q := s.products.
		Where(string(field), ">=", term).
		Where(string(field), "<=", term+store.PrefixUpperBound)
	return s.run(ctx, q)
}

func (s *Store) TagSearch(ctx context.Context, tag string) ([]domain.Product, error) {
	return s.run(ctx, s.products.Where("tags", "array-contains", tag))
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	snaps, err := s.categories.OrderBy("name", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	categories := make([]domain.Category, 0, len(snaps))
	for _, snap := range snaps {
		categories = append(categories, categoryFromSnapshot(snap))
	}
	return categories, nil
}

func categoryFromSnapshot(snap *firestore.DocumentSnapshot) domain.Category {
	data := snap.Data()
	c := domain.Category{
		ID:   snap.Ref.ID,
		Name: normalize.String(data["name"], snap.Ref.ID),
	}
	if t, ok := data["createdAt"].(time.Time); ok {
		c.CreatedAt = t.UTC()
	}
	return c
}

func (s *Store) SaveCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if strings.TrimSpace(category.ID) == "" || strings.TrimSpace(category.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}

	ref := s.categories.Doc(category.ID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			if existing := categoryFromSnapshot(snap); !existing.CreatedAt.IsZero() {
				category.CreatedAt = existing.CreatedAt
			}
		case !isNotFound(err):
			return err
		}
		return tx.Set(ref, map[string]any{
			"name":      category.Name,
			"createdAt": category.CreatedAt,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save category: %w", err)
	}
	return &category, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	ref := s.categories.Doc(id)
	if _, err := ref.Get(ctx); err != nil {
		if isNotFound(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("failed to get category: %w", err)
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = "admin"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.users.Doc(username).Create(ctx, map[string]any{
		"password":  user.Password,
		"role":      user.Role,
		"active":    user.Active,
		"createdAt": user.CreatedAt,
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return store.ErrInvalidInput
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	snaps, err := s.users.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	users := make([]domain.UserAccount, 0, len(snaps))
	for _, snap := range snaps {
		data := snap.Data()
		user := domain.UserAccount{
			Username: snap.Ref.ID,
			Password: normalize.String(data["password"], ""),
			Role:     normalize.String(data["role"], "admin"),
			Active:   normalize.Bool(data["active"]),
		}
		if t, ok := data["createdAt"].(time.Time); ok {
			user.CreatedAt = t.UTC()
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	_, err := s.users.Doc(username).Update(ctx, []firestore.Update{{Path: "password", Value: password}})
	if err != nil {
		if isNotFound(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("failed to update user password: %w", err)
	}
	return nil
}
