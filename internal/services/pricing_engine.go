package services

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/currency"
)

var (
	// ErrInvalidPrice signals a product whose base price is zero, negative, or missing.
	ErrInvalidPrice = errors.New("pricing: invalid price")
	// ErrUnsupportedCurrency is returned for currencies outside the configured base/quote pair.
	ErrUnsupportedCurrency = errors.New("pricing: unsupported currency")
)

// PricingConfig fixes the currency pair and exchange rate the engine works
// with. QuoteRate is expressed as base units per one quote unit.
type PricingConfig struct {
	BaseCurrency  string
	QuoteCurrency string
	QuoteRate     float64
}

// PricingEngine converts stored base-currency prices into the minor-unit
// amounts the payment gateway charges. The configuration is immutable after
// construction so tests run against fixed rates.
type PricingEngine struct {
	base  string
	quote string
	rate  float64
}

// NewPricingEngine validates the configuration and builds an engine.
func NewPricingEngine(cfg PricingConfig) (*PricingEngine, error) {
	base, err := normaliseCurrency(cfg.BaseCurrency)
	if err != nil {
		return nil, fmt.Errorf("pricing engine: base currency: %w", err)
	}

	quote := ""
	if strings.TrimSpace(cfg.QuoteCurrency) != "" {
		quote, err = normaliseCurrency(cfg.QuoteCurrency)
		if err != nil {
			return nil, fmt.Errorf("pricing engine: quote currency: %w", err)
		}
		if cfg.QuoteRate <= 0 {
			return nil, errors.New("pricing engine: quote rate must be positive")
		}
	}

	return &PricingEngine{
		base:  base,
		quote: quote,
		rate:  cfg.QuoteRate,
	}, nil
}

// BaseCurrency returns the configured base currency code.
func (e *PricingEngine) BaseCurrency() string {
	return e.base
}

// NormaliseCurrency upper-cases the code and checks it against the allowed
// pair, defaulting to the base currency when empty.
func (e *PricingEngine) NormaliseCurrency(code string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		return e.base, nil
	}
	if trimmed == e.base || (e.quote != "" && trimmed == e.quote) {
		return trimmed, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedCurrency, trimmed)
}

// PriceLine converts a base-currency unit price into the target currency's
// minor-unit amount, rounding half away from zero per line.
func (e *PricingEngine) PriceLine(unitPriceBase float64, code string) (int64, error) {
	if unitPriceBase <= 0 || math.IsNaN(unitPriceBase) || math.IsInf(unitPriceBase, 0) {
		return 0, fmt.Errorf("%w: unit price %v", ErrInvalidPrice, unitPriceBase)
	}

	target, err := e.NormaliseCurrency(code)
	if err != nil {
		return 0, err
	}

	amount := unitPriceBase
	if target != e.base {
		amount = unitPriceBase / e.rate
	}
	return int64(math.Round(amount * 100)), nil
}

// AmountBase sums the cart lines in the base currency. This is the ledger
// figure recorded on the order, independent of the checkout currency.
func (e *PricingEngine) AmountBase(lines []CartLine) float64 {
	var total float64
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		total += line.UnitPriceBase * float64(line.Quantity)
	}
	return total
}

func normaliseCurrency(code string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		return "", errors.New("currency code is required")
	}
	unit, err := currency.ParseISO(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedCurrency, trimmed)
	}
	return unit.String(), nil
}
