package pricing

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"belajoia/backend/internal/domain"
)

var (
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
	ErrUnknownShippingTier  = errors.New("unknown shipping tier")
)

type PaymentMethod string

const (
	PaymentPix    PaymentMethod = "pix"
	PaymentCash   PaymentMethod = "cash"
	PaymentDebit  PaymentMethod = "debit"
	PaymentCredit PaymentMethod = "credit"
)

func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	method := PaymentMethod(strings.ToLower(strings.TrimSpace(raw)))
	switch method {
	case PaymentPix, PaymentCash, PaymentDebit, PaymentCredit:
		return method, nil
	}
	return "", ErrUnknownPaymentMethod
}

// UsesPixPrice reports whether the method is charged at the discounted price.
func (m PaymentMethod) UsesPixPrice() bool {
	return m == PaymentPix || m == PaymentCash
}

func (m PaymentMethod) Label() string {
	switch m {
	case PaymentPix:
		return "PIX"
	case PaymentCash:
		return "Dinheiro"
	case PaymentDebit:
		return "Cartão de Débito"
	case PaymentCredit:
		return "Cartão de Crédito"
	}
	return string(m)
}

type Tier string

const (
	TierNone         Tier = ""
	TierSapiranga    Tier = "sapiranga"
	TierCampoBom     Tier = "campo-bom"
	TierNovoHamburgo Tier = "novo-hamburgo"
	TierParobe       Tier = "parobe"
	TierOther        Tier = "outra"
)

type tierInfo struct {
	fee   int64
	label string
}

var tiers = map[Tier]tierInfo{
	TierSapiranga:    {fee: 5, label: "Sapiranga"},
	TierCampoBom:     {fee: 10, label: "Campo Bom"},
	TierNovoHamburgo: {fee: 15, label: "Novo Hamburgo"},
	TierParobe:       {fee: 15, label: "Parobé"},
	TierOther:        {fee: 20},
}

// ParseTier accepts an empty string as "no tier selected".
func ParseTier(raw string) (Tier, error) {
	tier := Tier(strings.ToLower(strings.TrimSpace(raw)))
	if tier == TierNone {
		return TierNone, nil
	}
	if _, ok := tiers[tier]; !ok {
		return TierNone, ErrUnknownShippingTier
	}
	return tier, nil
}

// Label is the city display name. The "outra" tier has none; callers supply
// the customer's own city name instead.
func (t Tier) Label() string {
	return tiers[t].label
}

func (t Tier) RequiresCustomCity() bool {
	return t == TierOther
}

// UnitPrice is the per-unit price of item under the given payment method.
func UnitPrice(item domain.CartLineItem, method PaymentMethod) decimal.Decimal {
	if method.UsesPixPrice() {
		return decimal.NewFromFloat(item.PixPrice)
	}
	return decimal.NewFromFloat(item.Price)
}

func Subtotal(items []domain.CartLineItem, method PaymentMethod) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(UnitPrice(item, method).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// ShippingFee is zero when no tier is selected.
func ShippingFee(tier Tier) decimal.Decimal {
	info, ok := tiers[tier]
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromInt(info.fee)
}

func Total(items []domain.CartLineItem, method PaymentMethod, tier Tier) decimal.Decimal {
	return Subtotal(items, method).Add(ShippingFee(tier))
}

type QuoteLine struct {
	ItemID    string          `json:"item_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type Quote struct {
	Method   PaymentMethod   `json:"payment_method"`
	Tier     Tier            `json:"shipping_tier"`
	Lines    []QuoteLine     `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

func NewQuote(items []domain.CartLineItem, method PaymentMethod, tier Tier) Quote {
	lines := make([]QuoteLine, 0, len(items))
	for _, item := range items {
		unit := UnitPrice(item, method)
		lines = append(lines, QuoteLine{
			ItemID:    item.ID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: unit,
			LineTotal: unit.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}

	subtotal := Subtotal(items, method)
	shipping := ShippingFee(tier)
	return Quote{
		Method:   method,
		Tier:     tier,
		Lines:    lines,
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal.Add(shipping),
	}
}

// Format renders an amount with exactly two decimals, e.g. "15.00".
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
