package services

import (
	"errors"
	"testing"

	domain "github.com/threadline-shop/api/internal/domain"
)

func newTestPricingEngine(t *testing.T, rate float64) *PricingEngine {
	t.Helper()
	engine, err := NewPricingEngine(PricingConfig{
		BaseCurrency:  "MXN",
		QuoteCurrency: "USD",
		QuoteRate:     rate,
	})
	if err != nil {
		t.Fatalf("NewPricingEngine error: %v", err)
	}
	return engine
}

func TestPricingEngine_PriceLine_BaseCurrency(t *testing.T) {
	engine := newTestPricingEngine(t, 17)

	amount, err := engine.PriceLine(100, "MXN")
	if err != nil {
		t.Fatalf("PriceLine error: %v", err)
	}
	if amount != 10000 {
		t.Fatalf("expected 10000 minor units, got %d", amount)
	}
}

func TestPricingEngine_PriceLine_QuoteCurrency(t *testing.T) {
	engine := newTestPricingEngine(t, 17)

	// 100 / 17 = 5.882..., rounded half away from zero to 588 cents.
	amount, err := engine.PriceLine(100, "USD")
	if err != nil {
		t.Fatalf("PriceLine error: %v", err)
	}
	if amount != 588 {
		t.Fatalf("expected 588 minor units, got %d", amount)
	}
}

func TestPricingEngine_PriceLine_RoundTrips(t *testing.T) {
	engine := newTestPricingEngine(t, 20)

	amount, err := engine.PriceLine(200, "USD")
	if err != nil {
		t.Fatalf("PriceLine error: %v", err)
	}
	if amount != 1000 {
		t.Fatalf("expected 1000 minor units, got %d", amount)
	}
}

func TestPricingEngine_PriceLine_InvalidPrice(t *testing.T) {
	engine := newTestPricingEngine(t, 17)

	for _, price := range []float64{0, -10} {
		if _, err := engine.PriceLine(price, "MXN"); !errors.Is(err, ErrInvalidPrice) {
			t.Fatalf("price %v: expected ErrInvalidPrice, got %v", price, err)
		}
	}
}

func TestPricingEngine_NormaliseCurrency(t *testing.T) {
	engine := newTestPricingEngine(t, 17)

	cases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "empty defaults to base", input: "", want: "MXN"},
		{name: "base passes", input: "mxn", want: "MXN"},
		{name: "quote passes", input: "usd", want: "USD"},
		{name: "outside pair rejected", input: "EUR", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.NormaliseCurrency(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrUnsupportedCurrency) {
					t.Fatalf("expected ErrUnsupportedCurrency, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormaliseCurrency error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestPricingEngine_RejectsUnknownCodes(t *testing.T) {
	if _, err := NewPricingEngine(PricingConfig{BaseCurrency: "ZZZ"}); err == nil {
		t.Fatal("expected error for unknown base currency")
	}
	if _, err := NewPricingEngine(PricingConfig{BaseCurrency: "MXN", QuoteCurrency: "USD", QuoteRate: 0}); err == nil {
		t.Fatal("expected error for zero quote rate")
	}
}

func TestPricingEngine_AmountBase(t *testing.T) {
	engine := newTestPricingEngine(t, 17)

	lines := []domain.CartLine{
		{UnitPriceBase: 100, Quantity: 2},
		{UnitPriceBase: 50.5, Quantity: 1},
		{UnitPriceBase: 999, Quantity: 0},
	}

	if got := engine.AmountBase(lines); got != 250.5 {
		t.Fatalf("expected amount base 250.5, got %v", got)
	}
}
