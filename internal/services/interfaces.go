package services

import (
	"context"
	"time"

	domain "github.com/threadline-shop/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Owner         = domain.Owner
	OwnerKind     = domain.OwnerKind
	CartLine      = domain.CartLine
	Order         = domain.Order
	OrderLineItem = domain.OrderLineItem
	OrderContact  = domain.OrderContact
	PostalAddress = domain.PostalAddress
)

// CreateCheckoutSessionCommand carries caller input for building a gateway session.
type CreateCheckoutSessionCommand struct {
	Owner      Owner
	Currency   string
	SuccessURL string
	CancelURL  string
}

// CheckoutSessionResult is the gateway session handed back for client redirect.
type CheckoutSessionResult struct {
	SessionID  string
	SessionURL string
}

// CheckoutService builds payment gateway checkout sessions from cart contents.
type CheckoutService interface {
	CreateCheckoutSession(ctx context.Context, cmd CreateCheckoutSessionCommand) (CheckoutSessionResult, error)
}

// ConfirmOrderCommand identifies the checkout session to convert into an order.
type ConfirmOrderCommand struct {
	SessionID string
}

// OrderConfirmation reports the outcome of a confirmation attempt.
// AlreadyProcessed is true when a previous or concurrent confirmation created
// the order; the same order id is returned either way.
type OrderConfirmation struct {
	AlreadyProcessed bool
	OrderID          string
}

// OrderConfirmationService converts paid checkout sessions into exactly one
// order each, clearing the originating cart.
type OrderConfirmationService interface {
	ConfirmOrder(ctx context.Context, cmd ConfirmOrderCommand) (OrderConfirmation, error)
}

// OrderListQuery bounds an owner's order history listing.
type OrderListQuery struct {
	Owner Owner
	Limit int
}

// OrderService exposes read access to the order ledger.
type OrderService interface {
	GetOrder(ctx context.Context, orderID string) (Order, error)
	ListOrders(ctx context.Context, query OrderListQuery) ([]Order, error)
}

// OrderEvent captures metadata for emitted order domain events.
type OrderEvent struct {
	Type       string
	OrderID    string
	SessionID  string
	Owner      Owner
	Currency   string
	AmountBase float64
	OccurredAt time.Time
}

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}
