package checkout

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"belajoia/backend/internal/pricing"
)

var ErrIncomplete = errors.New("name, address and city are required")

// Customer holds the delivery details typed on the cart page. City is the
// resolved display name, not the tier code.
type Customer struct {
	Name    string
	Address string
	City    string
}

// NewCustomer trims the input and resolves the city name for tier. The
// "outra" tier takes customCity as the city name.
func NewCustomer(name string, address string, tier pricing.Tier, customCity string) (Customer, error) {
	c := Customer{
		Name:    strings.TrimSpace(name),
		Address: strings.TrimSpace(address),
	}
	if tier == pricing.TierNone {
		return c, ErrIncomplete
	}
	if tier.RequiresCustomCity() {
		c.City = strings.TrimSpace(customCity)
	} else {
		c.City = tier.Label()
	}
	if c.Name == "" || c.Address == "" || c.City == "" {
		return c, ErrIncomplete
	}
	return c, nil
}

// Build renders the order text sent to the store. It expects a non-empty
// quote; an empty one still renders headers and totals.
func Build(quote pricing.Quote, customer Customer) string {
	var b strings.Builder
	b.WriteString("Olá, quero fazer um pedido:\n\n")
	for i, line := range quote.Lines {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s - R$ %s x %d", line.Title, pricing.Format(line.UnitPrice), line.Quantity)
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Método de Pagamento: %s\n", quote.Method.Label())
	fmt.Fprintf(&b, "Subtotal: R$ %s\n", pricing.Format(quote.Subtotal))
	fmt.Fprintf(&b, "Frete: R$ %s\n", pricing.Format(quote.Shipping))
	fmt.Fprintf(&b, "Total: R$ %s\n\n", pricing.Format(quote.Total))
	fmt.Fprintf(&b, "Nome: %s\n", customer.Name)
	fmt.Fprintf(&b, "Cidade: %s\n", customer.City)
	fmt.Fprintf(&b, "Endereço: %s", customer.Address)
	return b.String()
}

// Link builds the wa.me deep link carrying text. Non-digits are stripped from
// phone.
func Link(phone string, text string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	encoded := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return "https://wa.me/" + digits + "?text=" + encoded
}
