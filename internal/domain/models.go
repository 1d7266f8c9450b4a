package domain

import "time"

// CreatedDate is the calendar day a product was registered in the catalog.
type CreatedDate struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

func DateOf(t time.Time) CreatedDate {
	return CreatedDate{Day: t.Day(), Month: int(t.Month()), Year: t.Year()}
}

// After reports whether d is a later calendar day than other.
func (d CreatedDate) After(other CreatedDate) bool {
	if d.Year != other.Year {
		return d.Year > other.Year
	}
	if d.Month != other.Month {
		return d.Month > other.Month
	}
	return d.Day > other.Day
}

type Product struct {
	ID          string      `json:"id"`
	StockID     string      `json:"stockId"`
	Title       string      `json:"title"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Price       float64     `json:"price"`
	PixPrice    float64     `json:"pixPrice"`
	ImageURLs   []string    `json:"imageUrls"`
	Stock       int         `json:"stock"`
	Sold        int         `json:"sold"`
	Featured    bool        `json:"featured"`
	Tags        []string    `json:"tags"`
	CreatedAt   CreatedDate `json:"createdAt"`
}

// Available reports whether the product should be shown as purchasable.
func (p Product) Available() bool {
	return p.Stock > 0
}

// CoverImage returns the first image URL or an empty string.
func (p Product) CoverImage() string {
	if len(p.ImageURLs) == 0 {
		return ""
	}
	return p.ImageURLs[0]
}

type ProductOrder string

const (
	OrderNewest      ProductOrder = "newest"
	OrderBestSelling ProductOrder = "best_selling"
)

type ProductQuery struct {
	Category string
	Featured *bool
	OrderBy  ProductOrder
	Limit    int
}

type ProductCreateRequest struct {
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	PixPrice    float64  `json:"pixPrice"`
	Stock       int      `json:"stock"`
	Featured    bool     `json:"featured"`
	Tags        []string `json:"tags"`
	ImageURLs   []string `json:"imageUrls"`
}

// ProductPatch carries a partial product update. Nil fields are left untouched.
type ProductPatch struct {
	Title       *string   `json:"title,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Description *string   `json:"description,omitempty"`
	Price       *float64  `json:"price,omitempty"`
	PixPrice    *float64  `json:"pixPrice,omitempty"`
	Stock       *int      `json:"stock,omitempty"`
	Sold        *int      `json:"sold,omitempty"`
	Featured    *bool     `json:"featured,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	ImageURLs   *[]string `json:"imageUrls,omitempty"`
}

func (p ProductPatch) Empty() bool {
	return p.Title == nil && p.Category == nil && p.Description == nil &&
		p.Price == nil && p.PixPrice == nil && p.Stock == nil && p.Sold == nil &&
		p.Featured == nil && p.Tags == nil && p.ImageURLs == nil
}

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type CategoryCreateRequest struct {
	Name string `json:"name"`
}

// CartLineItem is one product entry in a shopper's cart snapshot.
type CartLineItem struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	PixPrice float64 `json:"pixPrice"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
}

type CartAddRequest struct {
	ProductID string `json:"product_id"`
}

type CartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type CheckoutRequest struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	City          string `json:"city"`
	CustomCity    string `json:"custom_city"`
	PaymentMethod string `json:"payment_method"`
}

type Actor struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
