package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"belajoia/backend/internal/domain"
)

func sampleItems() []domain.CartLineItem {
	return []domain.CartLineItem{
		{ID: "p1", Title: "Anel Solitário", Price: 20, PixPrice: 15, Quantity: 1},
		{ID: "p2", Title: "Brinco Argola", Price: 14, PixPrice: 5, Quantity: 2},
	}
}

func TestSubtotalUsesPriceForMethod(t *testing.T) {
	items := sampleItems()

	cases := map[PaymentMethod]string{
		PaymentPix:    "25",
		PaymentCash:   "25",
		PaymentCredit: "48",
		PaymentDebit:  "48",
	}
	for method, want := range cases {
		if got := Subtotal(items, method); !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("subtotal for %s: expected %s, got %s", method, want, got)
		}
	}
}

func TestShippingFeeByTier(t *testing.T) {
	cases := map[Tier]int64{
		TierNone:         0,
		TierSapiranga:    5,
		TierCampoBom:     10,
		TierNovoHamburgo: 15,
		TierParobe:       15,
		TierOther:        20,
		Tier("unknown"):  0,
	}
	for tier, want := range cases {
		if got := ShippingFee(tier); !got.Equal(decimal.NewFromInt(want)) {
			t.Fatalf("shipping for %q: expected %d, got %s", tier, want, got)
		}
	}
}

func TestTotalAddsShipping(t *testing.T) {
	total := Total(sampleItems(), PaymentPix, TierCampoBom)
	if Format(total) != "35.00" {
		t.Fatalf("expected 35.00, got %s", Format(total))
	}
}

func TestSubtotalAvoidsFloatDrift(t *testing.T) {
	items := []domain.CartLineItem{{ID: "p", Price: 0.1, PixPrice: 0.1, Quantity: 3}}
	if got := Format(Subtotal(items, PaymentCredit)); got != "0.30" {
		t.Fatalf("expected 0.30, got %s", got)
	}
}

func TestNewQuoteLines(t *testing.T) {
	quote := NewQuote(sampleItems(), PaymentCredit, TierSapiranga)
	if len(quote.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(quote.Lines))
	}
	if Format(quote.Lines[1].UnitPrice) != "14.00" || Format(quote.Lines[1].LineTotal) != "28.00" {
		t.Fatalf("unexpected second line %+v", quote.Lines[1])
	}
	if Format(quote.Total) != "53.00" {
		t.Fatalf("expected total 53.00, got %s", Format(quote.Total))
	}
}

func TestParsePaymentMethodAndTier(t *testing.T) {
	if m, err := ParsePaymentMethod(" PIX "); err != nil || m != PaymentPix {
		t.Fatalf("expected pix, got %q (%v)", m, err)
	}
	if _, err := ParsePaymentMethod("boleto"); !errors.Is(err, ErrUnknownPaymentMethod) {
		t.Fatalf("expected ErrUnknownPaymentMethod, got %v", err)
	}
	if tier, err := ParseTier(""); err != nil || tier != TierNone {
		t.Fatalf("expected empty tier to parse, got %q (%v)", tier, err)
	}
	if _, err := ParseTier("porto-alegre"); !errors.Is(err, ErrUnknownShippingTier) {
		t.Fatalf("expected ErrUnknownShippingTier, got %v", err)
	}
	if TierParobe.Label() != "Parobé" {
		t.Fatalf("unexpected label %q", TierParobe.Label())
	}
	if PaymentCredit.Label() != "Cartão de Crédito" {
		t.Fatalf("unexpected label %q", PaymentCredit.Label())
	}
}
