package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"belajoia/backend/internal/cart"
	"belajoia/backend/internal/checkout"
	"belajoia/backend/internal/domain"
	"belajoia/backend/internal/pricing"
	"belajoia/backend/internal/store"
)

// CartView is a cart priced for the selected payment method and delivery
// city.
type CartView struct {
	Items []domain.CartLineItem `json:"items"`
	Count int                   `json:"count"`
	Quote pricing.Quote         `json:"quote"`
}

type CheckoutResult struct {
	URL     string        `json:"url"`
	Message string        `json:"message"`
	Quote   pricing.Quote `json:"quote"`
}

// An empty payment method prices the cart at the PIX price, which is what
// the cart page preselects.
func parseSelection(payment string, city string) (pricing.PaymentMethod, pricing.Tier, error) {
	method := pricing.PaymentPix
	if strings.TrimSpace(payment) != "" {
		parsed, err := pricing.ParsePaymentMethod(payment)
		if err != nil {
			return "", "", err
		}
		method = parsed
	}
	tier, err := pricing.ParseTier(city)
	if err != nil {
		return "", "", err
	}
	return method, tier, nil
}

func (s *Service) view(items []domain.CartLineItem, method pricing.PaymentMethod, tier pricing.Tier) CartView {
	return CartView{
		Items: items,
		Count: cart.Count(items),
		Quote: pricing.NewQuote(items, method, tier),
	}
}

func (s *Service) CartView(ctx context.Context, cartID string, payment string, city string) (CartView, error) {
	method, tier, err := parseSelection(payment, city)
	if err != nil {
		return CartView{}, err
	}
	return s.view(s.carts.Load(ctx, cartID), method, tier), nil
}

// AddToCart copies the catalog product into the cart, or bumps its quantity
// when already present.
func (s *Service) AddToCart(ctx context.Context, cartID string, req domain.CartAddRequest) (CartView, error) {
	productID := strings.TrimSpace(req.ProductID)
	if productID == "" {
		return CartView{}, store.ErrInvalidInput
	}
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return CartView{}, err
	}

	items, err := s.carts.Add(ctx, cartID, cart.ProductRef{
		ID:       product.ID,
		Title:    product.Title,
		Price:    product.Price,
		PixPrice: product.PixPrice,
		Image:    product.CoverImage(),
	})
	if err != nil {
		return CartView{}, err
	}
	return s.view(items, pricing.PaymentPix, pricing.TierNone), nil
}

func (s *Service) UpdateCartItem(ctx context.Context, cartID string, itemID string, quantity int) (CartView, error) {
	items, err := s.carts.UpdateQuantity(ctx, cartID, itemID, quantity)
	if err != nil {
		return CartView{}, err
	}
	return s.view(items, pricing.PaymentPix, pricing.TierNone), nil
}

func (s *Service) RemoveCartItem(ctx context.Context, cartID string, itemID string) (CartView, error) {
	items, err := s.carts.Remove(ctx, cartID, itemID)
	if err != nil {
		return CartView{}, err
	}
	return s.view(items, pricing.PaymentPix, pricing.TierNone), nil
}

func (s *Service) ClearCart(ctx context.Context, cartID string) (CartView, error) {
	items, err := s.carts.Clear(ctx, cartID)
	if err != nil {
		return CartView{}, err
	}
	return s.view(items, pricing.PaymentPix, pricing.TierNone), nil
}

// SubscribeCart streams count changes of cartID until cancel is called.
func (s *Service) SubscribeCart(ctx context.Context, cartID string) (int, <-chan cart.Event, func()) {
	events, cancel := s.carts.Subscribe(cartID)
	return cart.Count(s.carts.Load(ctx, cartID)), events, cancel
}

// Checkout renders the order message and its WhatsApp link. The cart is left
// intact; the order is only placed once the shopper sends the message.
func (s *Service) Checkout(ctx context.Context, cartID string, req domain.CheckoutRequest) (CheckoutResult, error) {
	method, err := pricing.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return CheckoutResult{}, err
	}
	tier, err := pricing.ParseTier(req.City)
	if err != nil {
		return CheckoutResult{}, err
	}
	customer, err := checkout.NewCustomer(req.Name, req.Address, tier, req.CustomCity)
	if err != nil {
		return CheckoutResult{}, err
	}

	items := s.carts.Load(ctx, cartID)
	if len(items) == 0 {
		return CheckoutResult{}, ErrEmptyCart
	}

	quote := pricing.NewQuote(items, method, tier)
	message := checkout.Build(quote, customer)

	s.logger.Info("checkout message built",
		zap.String("cart_id", cartID),
		zap.String("payment_method", string(method)),
		zap.String("shipping_tier", string(tier)),
		zap.String("total", pricing.Format(quote.Total)),
	)
	return CheckoutResult{
		URL:     checkout.Link(s.settings.WhatsAppPhone, message),
		Message: message,
		Quote:   quote,
	}, nil
}
