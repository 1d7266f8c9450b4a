package checkout

import (
	"errors"
	"strings"
	"testing"

	"belajoia/backend/internal/domain"
	"belajoia/backend/internal/pricing"
)

func TestBuildMessageForSapirangaPix(t *testing.T) {
	items := []domain.CartLineItem{{ID: "p1", Title: "Colar Ponto de Luz", Price: 12, PixPrice: 10, Quantity: 1}}
	quote := pricing.NewQuote(items, pricing.PaymentPix, pricing.TierSapiranga)

	customer, err := NewCustomer("Ana", "Rua A, 1", pricing.TierSapiranga, "")
	if err != nil {
		t.Fatalf("new customer: %v", err)
	}

	msg := Build(quote, customer)
	for _, want := range []string{
		"Olá, quero fazer um pedido:\n\n",
		"- Colar Ponto de Luz - R$ 10.00 x 1",
		"Método de Pagamento: PIX",
		"Subtotal: R$ 10.00",
		"Frete: R$ 5.00",
		"Total: R$ 15.00",
		"Nome: Ana",
		"Cidade: Sapiranga",
		"Endereço: Rua A, 1",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected message to contain %q, got:\n%s", want, msg)
		}
	}
}

func TestBuildMessageListsEveryItemAtMethodPrice(t *testing.T) {
	items := []domain.CartLineItem{
		{ID: "a", Title: "Anel", Price: 20, PixPrice: 15, Quantity: 1},
		{ID: "b", Title: "Brinco", Price: 14, PixPrice: 5, Quantity: 2},
	}
	quote := pricing.NewQuote(items, pricing.PaymentCredit, pricing.TierNone)
	msg := Build(quote, Customer{Name: "Bia", Address: "Rua B", City: "Campo Bom"})

	if !strings.Contains(msg, "- Anel - R$ 20.00 x 1\n- Brinco - R$ 14.00 x 2\n\n") {
		t.Fatalf("unexpected item block:\n%s", msg)
	}
	if !strings.Contains(msg, "Frete: R$ 0.00") {
		t.Fatalf("expected zero shipping, got:\n%s", msg)
	}
}

func TestNewCustomerCustomCity(t *testing.T) {
	c, err := NewCustomer(" Ana ", "Rua A", pricing.TierOther, " Gramado ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.City != "Gramado" || c.Name != "Ana" {
		t.Fatalf("unexpected customer %+v", c)
	}

	if _, err := NewCustomer("Ana", "Rua A", pricing.TierOther, " "); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete for missing custom city, got %v", err)
	}
	if _, err := NewCustomer("Ana", "", pricing.TierSapiranga, ""); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete for missing address, got %v", err)
	}
	if _, err := NewCustomer("Ana", "Rua A", pricing.TierNone, ""); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete without tier, got %v", err)
	}
}

func TestLinkEncodesText(t *testing.T) {
	link := Link("+55 (51) 99999-0000", "Olá pedido\nTotal: R$ 1+1")
	want := "https://wa.me/5551999990000?text=Ol%C3%A1%20pedido%0ATotal%3A%20R%24%201%2B1"
	if link != want {
		t.Fatalf("unexpected link\n got: %s\nwant: %s", link, want)
	}
}
