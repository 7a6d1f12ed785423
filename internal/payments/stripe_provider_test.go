package payments

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stripe/stripe-go/v78"
)

type stubSessionAPI struct {
	newFn      func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	getFn      func(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	lastParams *stripe.CheckoutSessionParams
}

func (s *stubSessionAPI) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	s.lastParams = params
	if s.newFn != nil {
		return s.newFn(params)
	}
	return &stripe.CheckoutSession{ID: "cs_test", URL: "https://checkout.stripe.com/cs_test"}, nil
}

func (s *stubSessionAPI) Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if s.getFn != nil {
		return s.getFn(id, params)
	}
	return &stripe.CheckoutSession{ID: id}, nil
}

func newStubProvider(t *testing.T, sessions *stubSessionAPI) *StripeProvider {
	t.Helper()
	provider, err := NewStripeProvider(StripeProviderConfig{Sessions: sessions})
	if err != nil {
		t.Fatalf("NewStripeProvider error: %v", err)
	}
	return provider
}

func TestStripeProvider_CreateCheckoutSession_BuildsParams(t *testing.T) {
	sessions := &stubSessionAPI{}
	provider := newStubProvider(t, sessions)

	result, err := provider.CreateCheckoutSession(context.Background(), CreateSessionRequest{
		Items: []CheckoutLineItem{
			{
				Name:        "Linen Shirt",
				Description: "Telar / L",
				ImageURL:    "https://img.example/shirt.jpg",
				Quantity:    2,
				UnitAmount:  1000,
				Currency:    "USD",
			},
		},
		SuccessURL:        "https://shop.example/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:         "https://shop.example/cart",
		Metadata:          map[string]string{"ownerKind": "user", "ownerId": "user_1"},
		ShippingCountries: []string{"MX", "US"},
		CollectPhone:      true,
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession error: %v", err)
	}
	if result.ID != "cs_test" || result.URL == "" {
		t.Fatalf("unexpected result: %+v", result)
	}

	params := sessions.lastParams
	if params == nil {
		t.Fatal("expected session params captured")
	}
	if got := stripe.StringValue(params.Mode); got != string(stripe.CheckoutSessionModePayment) {
		t.Fatalf("expected payment mode, got %q", got)
	}
	if len(params.PaymentMethodTypes) != 1 || stripe.StringValue(params.PaymentMethodTypes[0]) != "card" {
		t.Fatalf("expected card payment method, got %+v", params.PaymentMethodTypes)
	}
	if params.Metadata["ownerId"] != "user_1" {
		t.Fatalf("unexpected metadata: %+v", params.Metadata)
	}
	if params.ShippingAddressCollection == nil || len(params.ShippingAddressCollection.AllowedCountries) != 2 {
		t.Fatalf("expected shipping countries, got %+v", params.ShippingAddressCollection)
	}
	if params.PhoneNumberCollection == nil || !stripe.BoolValue(params.PhoneNumberCollection.Enabled) {
		t.Fatal("expected phone collection enabled")
	}

	if len(params.LineItems) != 1 {
		t.Fatalf("expected one line item, got %d", len(params.LineItems))
	}
	item := params.LineItems[0]
	if stripe.Int64Value(item.Quantity) != 2 {
		t.Fatalf("expected quantity 2, got %d", stripe.Int64Value(item.Quantity))
	}
	price := item.PriceData
	if stripe.Int64Value(price.UnitAmount) != 1000 || stripe.StringValue(price.Currency) != "usd" {
		t.Fatalf("unexpected price data: %+v", price)
	}
	if stripe.StringValue(price.ProductData.Name) != "Linen Shirt" {
		t.Fatalf("unexpected product name: %+v", price.ProductData)
	}
	if len(price.ProductData.Images) != 1 {
		t.Fatalf("expected one image, got %+v", price.ProductData.Images)
	}
}

func TestStripeProvider_RetrieveCheckoutSession_MapsDetails(t *testing.T) {
	sessions := &stubSessionAPI{
		getFn: func(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			return &stripe.CheckoutSession{
				ID:            id,
				PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
				Currency:      stripe.CurrencyUSD,
				AmountTotal:   1000,
				Metadata:      map[string]string{"ownerKind": "user", "ownerId": "user_1"},
				CustomerDetails: &stripe.CheckoutSessionCustomerDetails{
					Name:  "Dana Fuentes",
					Email: "dana@example.com",
					Address: &stripe.Address{
						Line1:      "Av. Reforma 100",
						City:       "CDMX",
						PostalCode: "06600",
						Country:    "MX",
					},
				},
				ShippingDetails: &stripe.ShippingDetails{
					Name: "Dana Fuentes",
					Address: &stripe.Address{
						Line1:   "Av. Reforma 100",
						Country: "MX",
					},
				},
			}, nil
		},
	}
	provider := newStubProvider(t, sessions)

	details, err := provider.RetrieveCheckoutSession(context.Background(), "cs_123")
	if err != nil {
		t.Fatalf("RetrieveCheckoutSession error: %v", err)
	}
	if details.PaymentStatus != PaymentStatusPaid {
		t.Fatalf("expected paid, got %q", details.PaymentStatus)
	}
	if details.Currency != "USD" || details.AmountTotal != 1000 {
		t.Fatalf("unexpected totals: %+v", details)
	}
	if details.Customer == nil || details.Customer.Email != "dana@example.com" || details.Customer.City != "CDMX" {
		t.Fatalf("unexpected customer: %+v", details.Customer)
	}
	if details.Shipping == nil || details.Shipping.Line1 != "Av. Reforma 100" {
		t.Fatalf("unexpected shipping: %+v", details.Shipping)
	}
}

func TestStripeProvider_RetrieveCheckoutSession_NotFound(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{name: "resource missing code", err: &stripe.Error{Code: stripe.ErrorCodeResourceMissing}},
		{name: "http 404", err: &stripe.Error{HTTPStatusCode: http.StatusNotFound}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sessions := &stubSessionAPI{
				getFn: func(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
					return nil, tc.err
				},
			}
			provider := newStubProvider(t, sessions)

			_, err := provider.RetrieveCheckoutSession(context.Background(), "cs_missing")
			if !errors.Is(err, ErrSessionNotFound) {
				t.Fatalf("expected ErrSessionNotFound, got %v", err)
			}
		})
	}
}

func TestStripeProvider_RetrieveCheckoutSession_EmptyID(t *testing.T) {
	provider := newStubProvider(t, &stubSessionAPI{})

	if _, err := provider.RetrieveCheckoutSession(context.Background(), "  "); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestNewStripeProvider_RequiresCredentials(t *testing.T) {
	if _, err := NewStripeProvider(StripeProviderConfig{}); err == nil {
		t.Fatal("expected error without api key or session api")
	}
}
