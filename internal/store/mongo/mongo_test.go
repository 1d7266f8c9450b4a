package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"belajoia/backend/internal/domain"
	"belajoia/backend/internal/store"
	"belajoia/backend/internal/xid"
)

func TestFromBSONNormalizesNestedDocuments(t *testing.T) {
	doc := bson.M{
		"_id":       "prd-legacy",
		"title":     "Colar Antigo",
		"price":     int32(80),
		"pixPrice":  "72,5",
		"imageUrls": bson.A{"https://cdn/a.jpg", 42},
		"tags":      bson.A{"Prata"},
		"stock":     int64(3),
		"createdAt": bson.D{{Key: "day", Value: int32(9)}, {Key: "month", Value: int32(4)}, {Key: "year", Value: int32(2024)}},
	}

	p := fromBSON(doc)

	assert.Equal(t, "prd-legacy", p.ID)
	assert.Equal(t, 80.0, p.Price)
	assert.Equal(t, 72.5, p.PixPrice)
	assert.Equal(t, []string{"https://cdn/a.jpg"}, p.ImageURLs)
	assert.Equal(t, []string{"prata"}, p.Tags)
	assert.Equal(t, 3, p.Stock)
	assert.Equal(t, domain.CreatedDate{Day: 9, Month: 4, Year: 2024}, p.CreatedAt)
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("BELAJOIA_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("BELAJOIA_TEST_MONGO_URI is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	db, err := Connect(ctx, uri, "belajoia_test_"+xid.New("")[:8])
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = db.Client().Disconnect(context.Background())
	})

	s := New(db)
	require.NoError(t, s.CreateIndexes(ctx))
	return s
}

func TestMongoCatalogIntegration(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	ring, err := s.CreateProduct(ctx, domain.Product{
		StockID: "STK-1", Title: "Anel Prata", Category: "anéis", Price: 100, PixPrice: 90,
		Sold: 3, Tags: []string{"prata"}, CreatedAt: domain.CreatedDate{Day: 1, Month: 1, Year: 2025},
	})
	require.NoError(t, err)
	necklace, err := s.CreateProduct(ctx, domain.Product{
		StockID: "STK-2", Title: "Colar Prata", Category: "colares", Price: 150,
		Sold: 9, CreatedAt: domain.CreatedDate{Day: 1, Month: 2, Year: 2025},
	})
	require.NoError(t, err)

	_, err = s.CreateProduct(ctx, domain.Product{StockID: "STK-1", Title: "Duplicado", Price: 1})
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	hits, err := s.PrefixSearch(ctx, store.FieldTitle, "anel")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, ring.ID, hits[0].ID)

	tagged, err := s.TagSearch(ctx, "prata")
	require.NoError(t, err)
	assert.Len(t, tagged, 1)

	best, err := s.ListProducts(ctx, domain.ProductQuery{OrderBy: domain.OrderBestSelling})
	require.NoError(t, err)
	require.Len(t, best, 2)
	assert.Equal(t, necklace.ID, best[0].ID)

	newest, err := s.ListProducts(ctx, domain.ProductQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, newest, 1)
	assert.Equal(t, necklace.ID, newest[0].ID)

	price := 120.0
	updated, err := s.UpdateProduct(ctx, ring.ID, domain.ProductPatch{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 120.0, updated.Price)

	require.NoError(t, s.DeleteProduct(ctx, ring.ID))
	_, err = s.GetProduct(ctx, ring.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMongoCategoriesAndUsers(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first, err := s.SaveCategory(ctx, domain.Category{ID: "colares", Name: "Colares"})
	require.NoError(t, err)
	again, err := s.SaveCategory(ctx, domain.Category{ID: "colares", Name: "Colares Finos"})
	require.NoError(t, err)
	assert.Equal(t, "Colares Finos", again.Name)
	assert.WithinDuration(t, first.CreatedAt, again.CreatedAt, time.Millisecond)

	require.NoError(t, s.DeleteCategory(ctx, "colares"))
	assert.ErrorIs(t, s.DeleteCategory(ctx, "colares"), store.ErrNotFound)

	require.NoError(t, s.CreateUser(ctx, domain.UserAccount{Username: "Dona@Loja.com", Password: "hash", Active: true}))
	assert.ErrorIs(t, s.CreateUser(ctx, domain.UserAccount{Username: "dona@loja.com", Password: "hash"}), store.ErrInvalidInput)
	require.NoError(t, s.UpdateUserPassword(ctx, "dona@loja.com", "new-hash"))

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "new-hash", users[0].Password)
	assert.Equal(t, "admin", users[0].Role)
}
