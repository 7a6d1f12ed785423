package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/threadline-shop/api/internal/domain"
	"github.com/threadline-shop/api/internal/payments"
)

func newTestCheckoutService(t *testing.T, carts *stubCartRepository, gateway *stubGateway) CheckoutService {
	t.Helper()
	svc, err := NewCheckoutService(CheckoutServiceDeps{
		Carts:             carts,
		Gateway:           gateway,
		Pricing:           newTestPricingEngine(t, 20),
		SuccessURL:        "https://shop.example/checkout/success",
		CancelURL:         "https://shop.example/cart",
		ShippingCountries: []string{"MX", "US"},
	})
	if err != nil {
		t.Fatalf("NewCheckoutService error: %v", err)
	}
	return svc
}

func TestCheckoutService_CreateCheckoutSession_Success(t *testing.T) {
	owner := domain.Owner{Kind: domain.OwnerKindAnonymous, ID: "anon_7"}
	carts := &stubCartRepository{lines: []domain.CartLine{
		{
			ID:            "line_1",
			Owner:         owner,
			ProductRef:    "prod_9",
			ProductName:   "Linen Shirt",
			ProductBrand:  "Telar",
			Size:          "L",
			Quantity:      1,
			UnitPriceBase: 200,
			ImageRef:      "https://img.example/shirt.jpg",
		},
	}}
	gateway := &stubGateway{}

	svc := newTestCheckoutService(t, carts, gateway)

	result, err := svc.CreateCheckoutSession(context.Background(), CreateCheckoutSessionCommand{
		Owner:    owner,
		Currency: "usd",
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession error: %v", err)
	}
	if result.SessionID != "cs_test" || result.SessionURL == "" {
		t.Fatalf("unexpected result: %+v", result)
	}

	req := gateway.lastCreate
	if len(req.Items) != 1 {
		t.Fatalf("expected one line item, got %d", len(req.Items))
	}
	item := req.Items[0]
	if item.UnitAmount != 1000 {
		t.Fatalf("expected 1000 minor units at rate 20, got %d", item.UnitAmount)
	}
	if item.Currency != "USD" {
		t.Fatalf("expected USD, got %q", item.Currency)
	}
	if item.Description != "Telar / L" {
		t.Fatalf("unexpected description: %q", item.Description)
	}
	if item.ImageURL != "https://img.example/shirt.jpg" {
		t.Fatalf("unexpected image: %q", item.ImageURL)
	}

	if req.Metadata["ownerKind"] != "anonymous" || req.Metadata["ownerId"] != "anon_7" || req.Metadata["currency"] != "USD" {
		t.Fatalf("unexpected metadata: %+v", req.Metadata)
	}
	if req.SuccessURL != "https://shop.example/checkout/success?session_id={CHECKOUT_SESSION_ID}" {
		t.Fatalf("expected session id placeholder appended, got %q", req.SuccessURL)
	}
	if req.CancelURL != "https://shop.example/cart" {
		t.Fatalf("unexpected cancel url: %q", req.CancelURL)
	}
	if !req.CollectPhone {
		t.Fatal("expected phone collection enabled")
	}
	if len(req.ShippingCountries) != 2 {
		t.Fatalf("unexpected shipping countries: %+v", req.ShippingCountries)
	}
}

func TestCheckoutService_CreateCheckoutSession_KeepsExistingPlaceholder(t *testing.T) {
	owner := domain.Owner{Kind: domain.OwnerKindUser, ID: "user_1"}
	carts := &stubCartRepository{lines: []domain.CartLine{{UnitPriceBase: 10, Quantity: 1}}}
	gateway := &stubGateway{}

	svc := newTestCheckoutService(t, carts, gateway)

	custom := "https://shop.example/done?sid={CHECKOUT_SESSION_ID}"
	if _, err := svc.CreateCheckoutSession(context.Background(), CreateCheckoutSessionCommand{
		Owner:      owner,
		SuccessURL: custom,
	}); err != nil {
		t.Fatalf("CreateCheckoutSession error: %v", err)
	}
	if gateway.lastCreate.SuccessURL != custom {
		t.Fatalf("expected caller url kept verbatim, got %q", gateway.lastCreate.SuccessURL)
	}
}

func TestCheckoutService_CreateCheckoutSession_EmptyCart(t *testing.T) {
	svc := newTestCheckoutService(t, &stubCartRepository{}, &stubGateway{})

	_, err := svc.CreateCheckoutSession(context.Background(), CreateCheckoutSessionCommand{
		Owner: domain.Owner{Kind: domain.OwnerKindUser, ID: "user_1"},
	})
	if !errors.Is(err, ErrCheckoutEmptyCart) {
		t.Fatalf("expected ErrCheckoutEmptyCart, got %v", err)
	}
}

func TestCheckoutService_CreateCheckoutSession_InvalidOwner(t *testing.T) {
	gateway := &stubGateway{}
	svc := newTestCheckoutService(t, &stubCartRepository{lines: []domain.CartLine{{UnitPriceBase: 10, Quantity: 1}}}, gateway)

	cases := []struct {
		name  string
		owner domain.Owner
	}{
		{name: "missing id", owner: domain.Owner{Kind: domain.OwnerKindUser}},
		{name: "unknown kind", owner: domain.Owner{Kind: "robot", ID: "r2"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateCheckoutSession(context.Background(), CreateCheckoutSessionCommand{Owner: tc.owner})
			if !errors.Is(err, ErrCheckoutInvalidInput) {
				t.Fatalf("expected ErrCheckoutInvalidInput, got %v", err)
			}
		})
	}
	if gateway.createCalls != 0 {
		t.Fatalf("expected no gateway calls, got %d", gateway.createCalls)
	}
}

func TestCheckoutService_CreateCheckoutSession_UnsupportedCurrency(t *testing.T) {
	svc := newTestCheckoutService(t, &stubCartRepository{lines: []domain.CartLine{{UnitPriceBase: 10, Quantity: 1}}}, &stubGateway{})

	_, err := svc.CreateCheckoutSession(context.Background(), CreateCheckoutSessionCommand{
		Owner:    domain.Owner{Kind: domain.OwnerKindUser, ID: "user_1"},
		Currency: "EUR",
	})
	if !errors.Is(err, ErrUnsupportedCurrency) {
		t.Fatalf("expected ErrUnsupportedCurrency, got %v", err)
	}
}

func TestCheckoutService_CreateCheckoutSession_InvalidLinePrice(t *testing.T) {
	carts := &stubCartRepository{lines: []domain.CartLine{{ProductName: "Broken", UnitPriceBase: 0, Quantity: 1}}}
	svc := newTestCheckoutService(t, carts, &stubGateway{})

	_, err := svc.CreateCheckoutSession(context.Background(), CreateCheckoutSessionCommand{
		Owner: domain.Owner{Kind: domain.OwnerKindUser, ID: "user_1"},
	})
	if !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
}

func TestCheckoutService_CreateCheckoutSession_GatewayFailure(t *testing.T) {
	gateway := &stubGateway{
		createFn: func(ctx context.Context, req payments.CreateSessionRequest) (payments.CheckoutSession, error) {
			return payments.CheckoutSession{}, errors.New("gateway down")
		},
	}
	svc := newTestCheckoutService(t, &stubCartRepository{lines: []domain.CartLine{{UnitPriceBase: 10, Quantity: 1}}}, gateway)

	_, err := svc.CreateCheckoutSession(context.Background(), CreateCheckoutSessionCommand{
		Owner: domain.Owner{Kind: domain.OwnerKindUser, ID: "user_1"},
	})
	if !errors.Is(err, ErrCheckoutGatewayFailed) {
		t.Fatalf("expected ErrCheckoutGatewayFailed, got %v", err)
	}
}
