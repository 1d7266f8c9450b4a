package store

import (
	"context"
	"errors"

	"belajoia/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SearchField names a lower-cased product field that supports prefix range
// queries.
type SearchField string

const (
	FieldTitle       SearchField = "titleLower"
	FieldDescription SearchField = "descriptionLower"
	FieldCategory    SearchField = "category"
)

// PrefixUpperBound is appended to a term to form the inclusive upper bound of
// a prefix range, matching every string that starts with the term.
const PrefixUpperBound = "\uf8ff"

type Catalog interface {
	ListProducts(ctx context.Context, query domain.ProductQuery) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	PrefixSearch(ctx context.Context, field SearchField, term string) ([]domain.Product, error)
	TagSearch(ctx context.Context, tag string) ([]domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	SaveCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

type Users interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

type Repository interface {
	Catalog
	Users
}
