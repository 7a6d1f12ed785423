package config

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func lookupFrom(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func validEnv() map[string]string {
	return map[string]string{
		"API_FIRESTORE_PROJECT_ID":    "demo-project",
		"API_STRIPE_API_KEY":          "sk_test_123",
		"API_PRICING_QUOTE_RATE":      "17",
		"API_CHECKOUT_SUCCESS_URL":    "https://shop.example/success",
		"API_CHECKOUT_CANCEL_URL":     "https://shop.example/cart",
		"API_CHECKOUT_SHIP_COUNTRIES": "MX,US",
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithLookup(lookupFrom(validEnv())))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Server.Port)
	}
	if cfg.Pricing.BaseCurrency != "MXN" || cfg.Pricing.QuoteCurrency != "USD" {
		t.Fatalf("unexpected currency pair: %+v", cfg.Pricing)
	}
	if cfg.Pricing.QuoteRate != 17 {
		t.Fatalf("expected quote rate 17, got %v", cfg.Pricing.QuoteRate)
	}
	if len(cfg.Checkout.ShippingCountries) != 2 {
		t.Fatalf("unexpected shipping countries: %+v", cfg.Checkout.ShippingCountries)
	}
}

func TestLoadValidatesRequiredValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(env map[string]string)
		wantMsg string
	}{
		{
			name:    "missing project",
			mutate:  func(env map[string]string) { delete(env, "API_FIRESTORE_PROJECT_ID") },
			wantMsg: "API_FIRESTORE_PROJECT_ID",
		},
		{
			name:    "missing stripe key",
			mutate:  func(env map[string]string) { delete(env, "API_STRIPE_API_KEY") },
			wantMsg: "API_STRIPE_API_KEY",
		},
		{
			name:    "missing success url",
			mutate:  func(env map[string]string) { delete(env, "API_CHECKOUT_SUCCESS_URL") },
			wantMsg: "API_CHECKOUT_SUCCESS_URL",
		},
		{
			name:    "zero rate with quote currency",
			mutate:  func(env map[string]string) { env["API_PRICING_QUOTE_RATE"] = "0" },
			wantMsg: "API_PRICING_QUOTE_RATE",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := validEnv()
			tc.mutate(env)

			_, err := Load(context.Background(), WithLookup(lookupFrom(env)))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("expected error mentioning %s, got %v", tc.wantMsg, err)
			}
		})
	}
}

func TestLoadResolvesSecretReferences(t *testing.T) {
	env := validEnv()
	env["API_STRIPE_API_KEY"] = "secret://projects/demo/secrets/stripe-key/versions/latest"

	resolver := SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
		if !strings.HasPrefix(ref, "secret://") {
			t.Fatalf("unexpected ref: %q", ref)
		}
		return "sk_live_resolved", nil
	})

	cfg, err := Load(context.Background(), WithLookup(lookupFrom(env)), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Stripe.APIKey != "sk_live_resolved" {
		t.Fatalf("expected resolved key, got %q", cfg.Stripe.APIKey)
	}
}

func TestLoadSecretReferenceWithoutResolverFails(t *testing.T) {
	env := validEnv()
	env["API_STRIPE_API_KEY"] = "secret://projects/demo/secrets/stripe-key/versions/latest"

	_, err := Load(context.Background(), WithLookup(lookupFrom(env)))
	if err == nil {
		t.Fatal("expected error for unresolvable secret reference")
	}
}

func TestLoadSecretResolverFailurePropagates(t *testing.T) {
	env := validEnv()
	env["API_STRIPE_API_KEY"] = "secret://projects/demo/secrets/stripe-key/versions/latest"

	wantErr := errors.New("permission denied")
	resolver := SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
		return "", wantErr
	})

	_, err := Load(context.Background(), WithLookup(lookupFrom(env)), WithSecretResolver(resolver))
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected resolver error, got %v", err)
	}
}
