// Package mongo stores the catalog in MongoDB. Products are kept as loose
// documents and read back through store.ProductFromDocument, so data written
// by older admin tools with missing or mistyped fields still loads.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"belajoia/backend/internal/domain"
	"belajoia/backend/internal/store"
	"belajoia/backend/internal/xid"
)

func Connect(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

type Store struct {
	products   *mongo.Collection
	categories *mongo.Collection
	users      *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		products:   db.Collection("products"),
		categories: db.Collection("categories"),
		users:      db.Collection("users"),
	}
}

func (s *Store) CreateIndexes(ctx context.Context) error {
	productIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: string(store.FieldTitle), Value: 1}}},
		{Keys: bson.D{{Key: string(store.FieldDescription), Value: 1}}},
		{Keys: bson.D{{Key: string(store.FieldCategory), Value: 1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
		{Keys: bson.D{{Key: "sold", Value: -1}}},
		{
			Keys: bson.D{{Key: "stockId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"stockId": bson.M{"$gt": ""}}),
		},
	}
	if _, err := s.products.Indexes().CreateMany(ctx, productIndexes); err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}
	return nil
}

type categoryDocument struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	CreatedAt time.Time `bson:"createdAt"`
}

type userDocument struct {
	Username  string    `bson:"_id"`
	Password  string    `bson:"password"`
	Role      string    `bson:"role"`
	Active    bool      `bson:"active"`
	CreatedAt time.Time `bson:"createdAt"`
}

func (s *Store) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]domain.Product, error) {
	cursor, err := s.products.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, fromBSON(doc))
	}
	return products, nil
}

func (s *Store) ListProducts(ctx context.Context, query domain.ProductQuery) ([]domain.Product, error) {
	filter := bson.M{}
	if query.Category != "" {
		filter["category"] = query.Category
	}
	if query.Featured != nil {
		filter["featured"] = *query.Featured
	}

	opts := options.Find()
	if query.OrderBy == domain.OrderBestSelling {
		opts.SetSort(bson.D{{Key: "sold", Value: -1}, {Key: "_id", Value: 1}})
	} else {
		opts.SetSort(bson.D{
			{Key: "createdAt.year", Value: -1},
			{Key: "createdAt.month", Value: -1},
			{Key: "createdAt.day", Value: -1},
			{Key: "_id", Value: 1},
		})
	}
	if query.Limit > 0 {
		opts.SetLimit(int64(query.Limit))
	}
	return s.find(ctx, filter, opts)
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var doc bson.M
	err := s.products.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	p := fromBSON(doc)
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := store.ValidateProduct(product); err != nil {
		return nil, err
	}
	product.ID = xid.New("prd")

	doc := store.ProductDocument(product)
	doc["_id"] = product.ID
	if _, err := s.products.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}

	created := store.ProductFromDocument(product.ID, doc)
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	current, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := store.ApplyPatch(*current, patch)
	if err := store.ValidateProduct(updated); err != nil {
		return nil, err
	}

	result, err := s.products.ReplaceOne(ctx, bson.M{"_id": id}, store.ProductDocument(updated))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, store.ErrNotFound
	}
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	result, err := s.products.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if result.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// PrefixSearch matches documents whose shadow field lies in the prefix range
// of term. MongoDB compares strings bytewise when no collation is set.
func (s *Store) PrefixSearch(ctx context.Context, field store.SearchField, term string) ([]domain.Product, error) {
	if !store.ValidField(field) {
		return nil, store.ErrInvalidInput
	}
	filter := bson.M{string(field): bson.M{"$gte": term, "$lte": term + store.PrefixUpperBound}}
	return s.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (s *Store) TagSearch(ctx context.Context, tag string) ([]domain.Product, error) {
	return s.find(ctx, bson.M{"tags": tag}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	cursor, err := s.categories.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	var docs []categoryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}

	categories := make([]domain.Category, 0, len(docs))
	for _, doc := range docs {
		categories = append(categories, domain.Category{ID: doc.ID, Name: doc.Name, CreatedAt: doc.CreatedAt.UTC()})
	}
	return categories, nil
}

func (s *Store) SaveCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if strings.TrimSpace(category.ID) == "" || strings.TrimSpace(category.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}

	update := bson.M{
		"$set":         bson.M{"name": category.Name},
		"$setOnInsert": bson.M{"createdAt": category.CreatedAt},
	}
	if _, err := s.categories.UpdateOne(ctx, bson.M{"_id": category.ID}, update, options.Update().SetUpsert(true)); err != nil {
		return nil, fmt.Errorf("failed to save category: %w", err)
	}

	var doc categoryDocument
	if err := s.categories.FindOne(ctx, bson.M{"_id": category.ID}).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to read saved category: %w", err)
	}
	return &domain.Category{ID: doc.ID, Name: doc.Name, CreatedAt: doc.CreatedAt.UTC()}, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	result, err := s.categories.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if result.DeletedCount == 0 {
		return store.ErrNotFound
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

	_, err := s.users.InsertOne(ctx, userDocument{
		Username:  username,
		Password:  user.Password,
		Role:      user.Role,
		Active:    user.Active,
		CreatedAt: user.CreatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrInvalidInput
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	cursor, err := s.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	users := make([]domain.UserAccount, 0, len(docs))
	for _, doc := range docs {
		users = append(users, domain.UserAccount{
			Username:  doc.Username,
			Password:  doc.Password,
			Role:      doc.Role,
			Active:    doc.Active,
			CreatedAt: doc.CreatedAt.UTC(),
		})
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	result, err := s.users.UpdateOne(ctx, bson.M{"_id": username}, bson.M{"$set": bson.M{"password": password}})
	if err != nil {
		return fmt.Errorf("failed to update user password: %w", err)
	}
	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func fromBSON(doc bson.M) domain.Product {
	id, _ := doc["_id"].(string)
	return store.ProductFromDocument(id, plain(doc).(map[string]any))
}

// plain converts decoded BSON containers into the map and slice shapes the
// document normalizer understands. Nested documents decode as bson.D.
func plain(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = plain(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = plain(val)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = plain(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, 0, len(t))
		for _, val := range t {
			out = append(out, plain(val))
		}
		return out
	default:
		return v
	}
}
