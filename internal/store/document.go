package store

import (
	"sort"
	"strings"

	"belajoia/backend/internal/domain"
	"belajoia/backend/internal/normalize"
)

// ProductFromDocument builds a product from a schemaless stored document,
// applying defaults for missing or malformed fields. It is the only place raw
// document values are interpreted.
func ProductFromDocument(id string, doc map[string]any) domain.Product {
	p := domain.Product{
		ID:          id,
		StockID:     normalize.String(doc["stockId"], ""),
		Title:       normalize.String(doc["title"], ""),
		Category:    normalize.String(doc["category"], ""),
		Description: normalize.String(doc["description"], ""),
		Price:       nonNegative(normalize.Number(doc["price"], 0)),
		PixPrice:    nonNegative(normalize.Number(doc["pixPrice"], 0)),
		ImageURLs:   normalize.Strings(doc["imageUrls"]),
		Stock:       max(normalize.Int(doc["stock"], 0), 0),
		Sold:        max(normalize.Int(doc["sold"], 0), 0),
		Featured:    normalize.Bool(doc["featured"]),
		Tags:        lowerAll(normalize.Strings(doc["tags"])),
	}
	if created, ok := normalize.Map(doc["createdAt"]); ok {
		p.CreatedAt = domain.CreatedDate{
			Day:   normalize.Int(created["day"], 0),
			Month: normalize.Int(created["month"], 0),
			Year:  normalize.Int(created["year"], 0),
		}
	}
	return p
}

// ProductDocument is the stored form of p, including the lower-cased shadow
// fields used by prefix queries.
func ProductDocument(p domain.Product) map[string]any {
	imageURLs := p.ImageURLs
	if imageURLs == nil {
		imageURLs = []string{}
	}
	return map[string]any{
		"stockId":          p.StockID,
		"title":            p.Title,
		"titleLower":       strings.ToLower(p.Title),
		"category":         p.Category,
		"description":      p.Description,
		"descriptionLower": strings.ToLower(p.Description),
		"price":            p.Price,
		"pixPrice":         p.PixPrice,
		"imageUrls":        imageURLs,
		"stock":            p.Stock,
		"sold":             p.Sold,
		"featured":         p.Featured,
		"tags":             lowerAll(p.Tags),
		"createdAt": map[string]any{
			"day":   p.CreatedAt.Day,
			"month": p.CreatedAt.Month,
			"year":  p.CreatedAt.Year,
		},
	}
}

func ApplyPatch(p domain.Product, patch domain.ProductPatch) domain.Product {
	if patch.Title != nil {
		p.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Category != nil {
		p.Category = Slug(*patch.Category)
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.PixPrice != nil {
		p.PixPrice = *patch.PixPrice
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Sold != nil {
		p.Sold = *patch.Sold
	}
	if patch.Featured != nil {
		p.Featured = *patch.Featured
	}
	if patch.Tags != nil {
		p.Tags = lowerAll(*patch.Tags)
	}
	if patch.ImageURLs != nil {
		p.ImageURLs = append([]string{}, (*patch.ImageURLs)...)
	}
	return p
}

func ValidateProduct(p domain.Product) error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrInvalidInput
	}
	if p.Price < 0 || p.PixPrice < 0 || p.Stock < 0 || p.Sold < 0 {
		return ErrInvalidInput
	}
	return nil
}

// InPrefixRange reports whether value falls in [term, term+PrefixUpperBound],
// the range document stores use for prefix matching.
func InPrefixRange(value string, term string) bool {
	return value >= term && value <= term+PrefixUpperBound
}

func ValidField(field SearchField) bool {
	switch field {
	case FieldTitle, FieldDescription, FieldCategory:
		return true
	}
	return false
}

func SortNewest(products []domain.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
}

func SortBestSelling(products []domain.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].Sold > products[j].Sold
	})
}

// ApplyQuery filters, orders and truncates products in process. Backends
// without native support for a query shape fall back to it.
func ApplyQuery(products []domain.Product, query domain.ProductQuery) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if query.Category != "" && p.Category != query.Category {
			continue
		}
		if query.Featured != nil && p.Featured != *query.Featured {
			continue
		}
		out = append(out, p)
	}

	switch query.OrderBy {
	case domain.OrderBestSelling:
		SortBestSelling(out)
	case domain.OrderNewest:
		SortNewest(out)
	}
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out
}

// Slug turns a category name into its id: lower-cased, whitespace runs
// replaced by "-".
func Slug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func nonNegative(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}
