package services

import (
	"context"
	"errors"
	"strings"

	"github.com/threadline-shop/api/internal/payments"
	"github.com/threadline-shop/api/internal/repositories"
)

const sessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

const (
	metadataOwnerKind = "ownerKind"
	metadataOwnerID   = "ownerId"
	metadataCurrency  = "currency"
)

var (
	// ErrCheckoutInvalidInput indicates the caller supplied invalid input parameters.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutEmptyCart indicates the owner has no cart lines to check out.
	ErrCheckoutEmptyCart = errors.New("checkout: cart is empty")
	// ErrCheckoutUnavailable indicates checkout dependencies are currently unavailable.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
	// ErrCheckoutGatewayFailed indicates the gateway session could not be created.
	ErrCheckoutGatewayFailed = errors.New("checkout: gateway session failed")
)

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Carts             repositories.CartRepository
	Gateway           payments.Provider
	Pricing           *PricingEngine
	SuccessURL        string
	CancelURL         string
	ShippingCountries []string
	Logger            func(ctx context.Context, event string, fields map[string]any)
}

type checkoutService struct {
	carts         repositories.CartRepository
	gateway       payments.Provider
	pricing       *PricingEngine
	successURL    string
	cancelURL     string
	shipCountries []string
	logger        func(context.Context, string, map[string]any)
}

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Carts == nil {
		return nil, errors.New("checkout service: cart repository is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("checkout service: payment gateway is required")
	}
	if deps.Pricing == nil {
		return nil, errors.New("checkout service: pricing engine is required")
	}
	if strings.TrimSpace(deps.SuccessURL) == "" || strings.TrimSpace(deps.CancelURL) == "" {
		return nil, errors.New("checkout service: success and cancel URLs are required")
	}
	if len(deps.ShippingCountries) == 0 {
		return nil, errors.New("checkout service: at least one shipping country is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &checkoutService{
		carts:         deps.Carts,
		gateway:       deps.Gateway,
		pricing:       deps.Pricing,
		successURL:    strings.TrimSpace(deps.SuccessURL),
		cancelURL:     strings.TrimSpace(deps.CancelURL),
		shipCountries: deps.ShippingCountries,
		logger:        logger,
	}, nil
}

// CreateCheckoutSession prices the owner's cart and opens a gateway checkout
// session carrying enough metadata to reconstruct the order later without
// re-trusting the client.
func (s *checkoutService) CreateCheckoutSession(ctx context.Context, cmd CreateCheckoutSessionCommand) (CheckoutSessionResult, error) {
	owner := cmd.Owner
	owner.ID = strings.TrimSpace(owner.ID)
	if owner.ID == "" || !owner.Kind.Valid() {
		return CheckoutSessionResult{}, ErrCheckoutInvalidInput
	}

	currency, err := s.pricing.NormaliseCurrency(cmd.Currency)
	if err != nil {
		return CheckoutSessionResult{}, err
	}

	lines, err := s.carts.ListLines(ctx, owner)
	if err != nil {
		return CheckoutSessionResult{}, s.translateCartError(err)
	}
	if len(lines) == 0 {
		return CheckoutSessionResult{}, ErrCheckoutEmptyCart
	}

	items := make([]payments.CheckoutLineItem, 0, len(lines))
	for _, line := range lines {
		amount, err := s.pricing.PriceLine(line.UnitPriceBase, currency)
		if err != nil {
			return CheckoutSessionResult{}, err
		}
		items = append(items, payments.CheckoutLineItem{
			Name:        line.ProductName,
			Description: lineDescription(line),
			ImageURL:    line.ImageRef,
			Quantity:    max64(line.Quantity, 1),
			UnitAmount:  amount,
			Currency:    currency,
		})
	}

	req := payments.CreateSessionRequest{
		Items:      items,
		SuccessURL: ensureSessionPlaceholder(firstNonEmpty(cmd.SuccessURL, s.successURL)),
		CancelURL:  firstNonEmpty(cmd.CancelURL, s.cancelURL),
		Metadata: map[string]string{
			metadataOwnerKind: string(owner.Kind),
			metadataOwnerID:   owner.ID,
			metadataCurrency:  currency,
		},
		ShippingCountries: s.shipCountries,
		CollectPhone:      true,
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		s.logger(ctx, "checkout.session_failed", map[string]any{
			"ownerKind": string(owner.Kind),
			"ownerId":   owner.ID,
			"error":     err.Error(),
		})
		return CheckoutSessionResult{}, ErrCheckoutGatewayFailed
	}

	s.logger(ctx, "checkout.session_created", map[string]any{
		"sessionId": session.ID,
		"ownerKind": string(owner.Kind),
		"ownerId":   owner.ID,
		"currency":  currency,
		"lines":     len(lines),
	})

	return CheckoutSessionResult{
		SessionID:  session.ID,
		SessionURL: session.URL,
	}, nil
}

func (s *checkoutService) translateCartError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return ErrCheckoutEmptyCart
	}
	return ErrCheckoutUnavailable
}

// lineDescription joins brand and size, dropping empty parts.
func lineDescription(line CartLine) string {
	parts := make([]string, 0, 2)
	if brand := strings.TrimSpace(line.ProductBrand); brand != "" {
		parts = append(parts, brand)
	}
	if size := strings.TrimSpace(line.Size); size != "" {
		parts = append(parts, size)
	}
	return strings.Join(parts, " / ")
}

// ensureSessionPlaceholder guarantees the success URL carries the token the
// gateway substitutes with its own session id.
func ensureSessionPlaceholder(successURL string) string {
	if strings.Contains(successURL, sessionIDPlaceholder) {
		return successURL
	}
	separator := "?"
	if strings.Contains(successURL, "?") {
		separator = "&"
	}
	return successURL + separator + "session_id=" + sessionIDPlaceholder
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
