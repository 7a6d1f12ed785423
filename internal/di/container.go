package di

import (
	"context"
	"errors"
	"fmt"

	"github.com/threadline-shop/api/internal/payments"
	"github.com/threadline-shop/api/internal/platform/config"
	"github.com/threadline-shop/api/internal/repositories"
	"github.com/threadline-shop/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Checkout     services.CheckoutService
	Confirmation services.OrderConfirmationService
	Orders       services.OrderService
}

// ContainerDeps carries the externally constructed collaborators the
// container wires together.
type ContainerDeps struct {
	Repositories repositories.Registry
	Gateway      payments.Provider
	Events       services.OrderEventPublisher
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Tests can supply stub
// registries and gateways through deps.
func NewContainer(cfg config.Config, deps ContainerDeps) (*Container, error) {
	if deps.Repositories == nil {
		return nil, errors.New("repositories registry is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("payment gateway is required")
	}

	pricing, err := services.NewPricingEngine(services.PricingConfig{
		BaseCurrency:  cfg.Pricing.BaseCurrency,
		QuoteCurrency: cfg.Pricing.QuoteCurrency,
		QuoteRate:     cfg.Pricing.QuoteRate,
	})
	if err != nil {
		return nil, fmt.Errorf("build pricing engine: %w", err)
	}

	checkout, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Carts:             deps.Repositories.Carts(),
		Gateway:           deps.Gateway,
		Pricing:           pricing,
		SuccessURL:        cfg.Checkout.SuccessURL,
		CancelURL:         cfg.Checkout.CancelURL,
		ShippingCountries: cfg.Checkout.ShippingCountries,
		Logger:            deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build checkout service: %w", err)
	}

	confirmation, err := services.NewOrderConfirmationService(services.OrderConfirmationServiceDeps{
		Gateway: deps.Gateway,
		Carts:   deps.Repositories.Carts(),
		Orders:  deps.Repositories.Orders(),
		Pricing: pricing,
		Events:  deps.Events,
		Logger:  deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build order confirmation service: %w", err)
	}

	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Orders: deps.Repositories.Orders(),
	})
	if err != nil {
		return nil, fmt.Errorf("build order service: %w", err)
	}

	return &Container{
		Config:       cfg,
		Repositories: deps.Repositories,
		Services: Services{
			Checkout:     checkout,
			Confirmation: confirmation,
			Orders:       orders,
		},
	}, nil
}

// Close releases repository clients and other held resources.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}
