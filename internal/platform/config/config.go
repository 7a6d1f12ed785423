package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort         = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 120 * time.Second

	defaultBaseCurrency = "MXN"
	defaultQuoteCurrency = "USD"

	secretScheme = "secret://"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Firestore FirestoreConfig
	Stripe    StripeConfig
	Pricing   PricingConfig
	Checkout  CheckoutConfig
	Events    EventsConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// StripeConfig collects payment gateway credentials.
type StripeConfig struct {
	APIKey string
}

// PricingConfig fixes the currencies and exchange rate used when pricing
// carts. The rate is quote-per-base: one unit of the quote currency costs
// QuoteRate units of the base currency.
type PricingConfig struct {
	BaseCurrency  string
	QuoteCurrency string
	QuoteRate     float64
}

// CheckoutConfig carries checkout session defaults.
type CheckoutConfig struct {
	SuccessURL        string
	CancelURL         string
	ShippingCountries []string
}

// EventsConfig configures the Pub/Sub topic order events are published to.
// An empty topic disables publishing.
type EventsConfig struct {
	ProjectID string
	TopicID   string
}

// SecretResolver resolves secret:// references into plaintext values.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts a function to the SecretResolver interface.
type SecretResolverFunc func(ctx context.Context, ref string) (string, error)

// Resolve implements SecretResolver.
func (f SecretResolverFunc) Resolve(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// LookupFunc reads a single configuration value, reporting whether it was set.
type LookupFunc func(key string) (string, bool)

type loadOptions struct {
	lookup   LookupFunc
	resolver SecretResolver
}

// Option customises configuration loading.
type Option func(*loadOptions)

// WithLookup overrides the environment lookup, primarily for tests.
func WithLookup(lookup LookupFunc) Option {
	return func(o *loadOptions) {
		if lookup != nil {
			o.lookup = lookup
		}
	}
}

// WithSecretResolver installs the resolver used for secret:// values.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loadOptions) {
		o.resolver = resolver
	}
}

// Load assembles the configuration from the environment, resolving secret
// references and validating required fields.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loadOptions{lookup: os.LookupEnv}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	lookup := options.lookup

	rate, err := floatWithDefault(lookup, "API_PRICING_QUOTE_RATE", 0)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "API_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "API_FIRESTORE_EMULATOR_HOST", ""),
		},
		Stripe: StripeConfig{
			APIKey: stringWithDefault(lookup, "API_STRIPE_API_KEY", ""),
		},
		Pricing: PricingConfig{
			BaseCurrency:  strings.ToUpper(stringWithDefault(lookup, "API_PRICING_BASE_CURRENCY", defaultBaseCurrency)),
			QuoteCurrency: strings.ToUpper(stringWithDefault(lookup, "API_PRICING_QUOTE_CURRENCY", defaultQuoteCurrency)),
			QuoteRate:     rate,
		},
		Checkout: CheckoutConfig{
			SuccessURL:        stringWithDefault(lookup, "API_CHECKOUT_SUCCESS_URL", ""),
			CancelURL:         stringWithDefault(lookup, "API_CHECKOUT_CANCEL_URL", ""),
			ShippingCountries: stringListWithDefault(lookup, "API_CHECKOUT_SHIP_COUNTRIES", []string{"MX", "US"}),
		},
		Events: EventsConfig{
			ProjectID: stringWithDefault(lookup, "API_EVENTS_PROJECT_ID", ""),
			TopicID:   stringWithDefault(lookup, "API_EVENTS_TOPIC_ID", ""),
		},
	}

	if err := resolveSecrets(ctx, &cfg, options.resolver); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks invariants that would otherwise fail at request time.
func (c Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Firestore.ProjectID) == "" {
		problems = append(problems, "API_FIRESTORE_PROJECT_ID is required")
	}
	if strings.TrimSpace(c.Stripe.APIKey) == "" {
		problems = append(problems, "API_STRIPE_API_KEY is required")
	}
	if strings.TrimSpace(c.Pricing.BaseCurrency) == "" {
		problems = append(problems, "API_PRICING_BASE_CURRENCY is required")
	}
	if c.Pricing.QuoteCurrency != "" && c.Pricing.QuoteRate <= 0 {
		problems = append(problems, "API_PRICING_QUOTE_RATE must be positive when a quote currency is configured")
	}
	if strings.TrimSpace(c.Checkout.SuccessURL) == "" {
		problems = append(problems, "API_CHECKOUT_SUCCESS_URL is required")
	}
	if strings.TrimSpace(c.Checkout.CancelURL) == "" {
		problems = append(problems, "API_CHECKOUT_CANCEL_URL is required")
	}
	if len(c.Checkout.ShippingCountries) == 0 {
		problems = append(problems, "API_CHECKOUT_SHIP_COUNTRIES must list at least one country")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func resolveSecrets(ctx context.Context, cfg *Config, resolver SecretResolver) error {
	targets := []*string{&cfg.Stripe.APIKey}
	for _, target := range targets {
		value := strings.TrimSpace(*target)
		if !strings.HasPrefix(value, secretScheme) {
			continue
		}
		if resolver == nil {
			return errors.New("config: secret reference found but no secret resolver configured")
		}
		resolved, err := resolver.Resolve(ctx, value)
		if err != nil {
			return fmt.Errorf("config: resolve secret: %w", err)
		}
		*target = resolved
	}
	return nil
}

func stringWithDefault(lookup LookupFunc, key, fallback string) string {
	if value, ok := lookup(key); ok {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func durationWithDefault(lookup LookupFunc, key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok {
		if parsed, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func floatWithDefault(lookup LookupFunc, key string, fallback float64) (float64, error) {
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return parsed, nil
}

func stringListWithDefault(lookup LookupFunc, key string, fallback []string) []string {
	value, ok := lookup(key)
	if !ok {
		return fallback
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, strings.ToUpper(trimmed))
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
