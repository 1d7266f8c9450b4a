package store

import (
	"errors"
	"testing"

	"belajoia/backend/internal/domain"
)

type driverDoc map[string]interface{}
type driverArray []interface{}

func TestProductFromDocumentAppliesDefaults(t *testing.T) {
	p := ProductFromDocument("p1", map[string]any{
		"title":    "Anel Solitário",
		"price":    "129.90",
		"pixPrice": nil,
		"stock":    float64(3),
	})

	if p.ID != "p1" || p.Title != "Anel Solitário" {
		t.Fatalf("unexpected identity %+v", p)
	}
	if p.Price != 129.9 {
		t.Fatalf("expected price 129.9 from string, got %v", p.Price)
	}
	if p.PixPrice != 0 {
		t.Fatalf("expected missing pixPrice to default to 0, got %v", p.PixPrice)
	}
	if p.Description != "" || p.ImageURLs == nil || len(p.ImageURLs) != 0 {
		t.Fatalf("expected empty description and image list, got %+v", p)
	}
	if p.Stock != 3 {
		t.Fatalf("expected stock 3, got %d", p.Stock)
	}
}

func TestProductFromDocumentReadsDriverTypes(t *testing.T) {
	p := ProductFromDocument("p2", map[string]any{
		"title":     "Colar",
		"imageUrls": driverArray{"https://img/1.jpg", "https://img/2.jpg"},
		"tags":      driverArray{"Prata", " ouro "},
		"createdAt": driverDoc{"day": int32(5), "month": int32(3), "year": int64(2024)},
		"stock":     int32(-2),
		"featured":  true,
	})

	if len(p.ImageURLs) != 2 || p.CoverImage() != "https://img/1.jpg" {
		t.Fatalf("unexpected images %v", p.ImageURLs)
	}
	if len(p.Tags) != 2 || p.Tags[0] != "prata" || p.Tags[1] != "ouro" {
		t.Fatalf("expected lower-cased tags, got %v", p.Tags)
	}
	if p.CreatedAt != (domain.CreatedDate{Day: 5, Month: 3, Year: 2024}) {
		t.Fatalf("unexpected createdAt %+v", p.CreatedAt)
	}
	if p.Stock != 0 {
		t.Fatalf("expected negative stock clamped to 0, got %d", p.Stock)
	}
	if !p.Featured {
		t.Fatalf("expected featured")
	}
}

func TestProductDocumentRoundTrip(t *testing.T) {
	in := domain.Product{
		StockID:     "STK-7",
		Title:       "Brinco Gota",
		Category:    "brincos",
		Description: "Banhado a OURO",
		Price:       59.9,
		PixPrice:    54.9,
		ImageURLs:   []string{"a"},
		Stock:       2,
		Tags:        []string{"Gota"},
		CreatedAt:   domain.CreatedDate{Day: 1, Month: 2, Year: 2025},
	}
	doc := ProductDocument(in)
	if doc["titleLower"] != "brinco gota" || doc["descriptionLower"] != "banhado a ouro" {
		t.Fatalf("expected lower-cased shadow fields, got %v / %v", doc["titleLower"], doc["descriptionLower"])
	}

	out := ProductFromDocument("x", doc)
	if out.Title != in.Title || out.StockID != "STK-7" || out.PixPrice != 54.9 || out.CreatedAt != in.CreatedAt {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	if out.Tags[0] != "gota" {
		t.Fatalf("expected tags lower-cased, got %v", out.Tags)
	}
}

func TestApplyPatchOnlyTouchesSetFields(t *testing.T) {
	base := domain.Product{Title: "Anel", Price: 10, PixPrice: 9, Stock: 1}
	price := 12.5
	featured := true
	out := ApplyPatch(base, domain.ProductPatch{Price: &price, Featured: &featured})

	if out.Price != 12.5 || !out.Featured {
		t.Fatalf("patch not applied: %+v", out)
	}
	if out.Title != "Anel" || out.PixPrice != 9 || out.Stock != 1 {
		t.Fatalf("unexpected changes: %+v", out)
	}
}

func TestApplyPatchStoresCategorySlug(t *testing.T) {
	category := "  Brincos   Finos "
	out := ApplyPatch(domain.Product{Title: "Brinco", Category: "brincos"}, domain.ProductPatch{Category: &category})

	if out.Category != "brincos-finos" {
		t.Fatalf("expected category slug, got %q", out.Category)
	}
}

func TestValidateProduct(t *testing.T) {
	if err := ValidateProduct(domain.Product{Title: " "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank title, got %v", err)
	}
	if err := ValidateProduct(domain.Product{Title: "Anel", Price: -1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative price, got %v", err)
	}
	if err := ValidateProduct(domain.Product{Title: "Anel", Price: 10}); err != nil {
		t.Fatalf("expected valid product, got %v", err)
	}
}

func TestInPrefixRange(t *testing.T) {
	if !InPrefixRange("anel prata", "anel") {
		t.Fatalf("expected prefix match")
	}
	if !InPrefixRange("anel", "anel") {
		t.Fatalf("expected exact match")
	}
	if InPrefixRange("colar anel", "anel") {
		t.Fatalf("expected infix to be outside the range")
	}
}

func TestApplyQueryOrdersAndLimits(t *testing.T) {
	products := []domain.Product{
		{ID: "old", Category: "aneis", Sold: 9, CreatedAt: domain.CreatedDate{Day: 1, Month: 1, Year: 2023}},
		{ID: "new", Category: "aneis", Sold: 1, CreatedAt: domain.CreatedDate{Day: 1, Month: 1, Year: 2025}},
		{ID: "mid", Category: "colares", Sold: 5, CreatedAt: domain.CreatedDate{Day: 9, Month: 6, Year: 2024}},
	}

	newest := ApplyQuery(products, domain.ProductQuery{OrderBy: domain.OrderNewest})
	if newest[0].ID != "new" || newest[1].ID != "mid" || newest[2].ID != "old" {
		t.Fatalf("unexpected newest order %v", ids(newest))
	}

	best := ApplyQuery(products, domain.ProductQuery{OrderBy: domain.OrderBestSelling, Limit: 2})
	if len(best) != 2 || best[0].ID != "old" || best[1].ID != "mid" {
		t.Fatalf("unexpected best selling order %v", ids(best))
	}

	rings := ApplyQuery(products, domain.ProductQuery{Category: "aneis"})
	if len(rings) != 2 {
		t.Fatalf("expected 2 rings, got %v", ids(rings))
	}
}

func ids(products []domain.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}
