package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/threadline-shop/api/internal/domain"
	"github.com/threadline-shop/api/internal/payments"
	"github.com/threadline-shop/api/internal/repositories"
)

const orderEventConfirmed = "order.confirmed"

var (
	// ErrConfirmSessionNotFound indicates the gateway does not know the session id.
	ErrConfirmSessionNotFound = errors.New("confirm: checkout session not found")
	// ErrConfirmMissingOwnerMetadata indicates the session carries no owner metadata
	// and therefore was not created through the checkout flow.
	ErrConfirmMissingOwnerMetadata = errors.New("confirm: session owner metadata missing")
	// ErrConfirmUnavailable indicates a dependency failed and the call may be retried.
	ErrConfirmUnavailable = errors.New("confirm: unavailable")
)

// PaymentNotCompletedError reports a confirmation attempt against a session
// the gateway does not consider paid. It never carries side effects.
type PaymentNotCompletedError struct {
	Status payments.PaymentStatus
}

func (e *PaymentNotCompletedError) Error() string {
	return fmt.Sprintf("confirm: payment not completed (status %q)", e.Status)
}

// OrderConfirmationServiceDeps wires the dependencies of the confirmation coordinator.
type OrderConfirmationServiceDeps struct {
	Gateway    payments.Provider
	Carts      repositories.CartRepository
	Orders     repositories.OrderRepository
	Pricing    *PricingEngine
	Events     OrderEventPublisher
	Clock      func() time.Time
	NewOrderID func() string
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type orderConfirmationService struct {
	gateway    payments.Provider
	carts      repositories.CartRepository
	orders     repositories.OrderRepository
	pricing    *PricingEngine
	events     OrderEventPublisher
	clock      func() time.Time
	newOrderID func() string
	logger     func(context.Context, string, map[string]any)
}

// NewOrderConfirmationService constructs the coordinator validating required dependencies.
func NewOrderConfirmationService(deps OrderConfirmationServiceDeps) (OrderConfirmationService, error) {
	if deps.Gateway == nil {
		return nil, errors.New("order confirmation service: payment gateway is required")
	}
	if deps.Carts == nil {
		return nil, errors.New("order confirmation service: cart repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("order confirmation service: order repository is required")
	}
	if deps.Pricing == nil {
		return nil, errors.New("order confirmation service: pricing engine is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newOrderID := deps.NewOrderID
	if newOrderID == nil {
		newOrderID = func() string { return "ord_" + ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderConfirmationService{
		gateway:    deps.Gateway,
		carts:      deps.Carts,
		orders:     deps.Orders,
		pricing:    deps.Pricing,
		events:     deps.Events,
		clock:      func() time.Time { return clock().UTC() },
		newOrderID: newOrderID,
		logger:     logger,
	}, nil
}

// ConfirmOrder converts a paid checkout session into exactly one durable
// order. Concurrent calls for the same session coordinate solely through the
// ledger's uniqueness constraint on the session id; every loser of that race
// resolves to the winner's order instead of an error.
func (s *orderConfirmationService) ConfirmOrder(ctx context.Context, cmd ConfirmOrderCommand) (OrderConfirmation, error) {
	sessionID := strings.TrimSpace(cmd.SessionID)
	if sessionID == "" {
		return OrderConfirmation{}, ErrConfirmSessionNotFound
	}

	session, err := s.gateway.RetrieveCheckoutSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payments.ErrSessionNotFound) {
			return OrderConfirmation{}, ErrConfirmSessionNotFound
		}
		return OrderConfirmation{}, ErrConfirmUnavailable
	}

	if session.PaymentStatus != payments.PaymentStatusPaid {
		return OrderConfirmation{}, &PaymentNotCompletedError{Status: session.PaymentStatus}
	}

	owner, currency, err := ownerFromSessionMetadata(session.Metadata, s.pricing.BaseCurrency())
	if err != nil {
		return OrderConfirmation{}, err
	}

	// Idempotency check before any mutation. A prior confirmation means the
	// cart is already cleared; return the existing order untouched.
	existing, err := s.orders.FindBySessionID(ctx, sessionID)
	switch {
	case err == nil:
		return OrderConfirmation{AlreadyProcessed: true, OrderID: existing.ID}, nil
	case !isRepositoryNotFound(err):
		return OrderConfirmation{}, ErrConfirmUnavailable
	}

	lines, err := s.carts.ListLines(ctx, owner)
	if err != nil && !isRepositoryNotFound(err) {
		return OrderConfirmation{}, ErrConfirmUnavailable
	}

	now := s.clock()
	order := domain.Order{
		ID:              s.newOrderID(),
		Owner:           owner,
		StripeSessionID: sessionID,
		Currency:        currency,
		AmountBase:      s.pricing.AmountBase(lines),
		Status:          domain.OrderStatusPaid,
		Customer:        contactSnapshot(session.Customer),
		Shipping:        contactSnapshot(session.Shipping),
		Items:           orderItems(lines),
		CreatedAt:       now,
	}
	order.ShipTo = shipToText(order.Shipping, order.Customer)

	inserted, err := s.orders.Insert(ctx, order)
	if err != nil {
		if isRepositoryConflict(err) {
			// A concurrent confirmation won the race. Resolve to the winner's
			// order; the winner owns the cart cleanup.
			winner, lookupErr := s.orders.FindBySessionID(ctx, sessionID)
			if lookupErr != nil {
				return OrderConfirmation{}, ErrConfirmUnavailable
			}
			s.logger(ctx, "order.confirm_race_lost", map[string]any{
				"sessionId": sessionID,
				"orderId":   winner.ID,
			})
			return OrderConfirmation{AlreadyProcessed: true, OrderID: winner.ID}, nil
		}
		return OrderConfirmation{}, ErrConfirmUnavailable
	}

	// Cart cleanup and event publication are best effort. A stale cart or a
	// missed event is recoverable; a duplicate order is not.
	if err := s.carts.DeleteLines(ctx, owner); err != nil {
		s.logger(ctx, "order.cart_cleanup_failed", map[string]any{
			"sessionId": sessionID,
			"orderId":   inserted.ID,
			"ownerKind": string(owner.Kind),
			"ownerId":   owner.ID,
			"error":     err.Error(),
		})
	}

	s.publishConfirmed(ctx, inserted, now)

	s.logger(ctx, "order.confirmed", map[string]any{
		"sessionId":  sessionID,
		"orderId":    inserted.ID,
		"ownerKind":  string(owner.Kind),
		"ownerId":    owner.ID,
		"amountBase": inserted.AmountBase,
		"lines":      len(inserted.Items),
	})

	return OrderConfirmation{AlreadyProcessed: false, OrderID: inserted.ID}, nil
}

func (s *orderConfirmationService) publishConfirmed(ctx context.Context, order domain.Order, occurredAt time.Time) {
	if s.events == nil {
		return
	}
	event := OrderEvent{
		Type:       orderEventConfirmed,
		OrderID:    order.ID,
		SessionID:  order.StripeSessionID,
		Owner:      order.Owner,
		Currency:   order.Currency,
		AmountBase: order.AmountBase,
		OccurredAt: occurredAt,
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event_publish_failed", map[string]any{
			"orderId": order.ID,
			"type":    orderEventConfirmed,
			"error":   err.Error(),
		})
	}
}

// ownerFromSessionMetadata recovers the owner from metadata stamped at session
// creation. Caller-supplied identity is never consulted here.
func ownerFromSessionMetadata(metadata map[string]string, fallbackCurrency string) (domain.Owner, string, error) {
	owner := domain.Owner{
		Kind: domain.OwnerKind(strings.TrimSpace(metadata[metadataOwnerKind])),
		ID:   strings.TrimSpace(metadata[metadataOwnerID]),
	}
	if owner.ID == "" || !owner.Kind.Valid() {
		return domain.Owner{}, "", ErrConfirmMissingOwnerMetadata
	}
	currency := strings.ToUpper(strings.TrimSpace(metadata[metadataCurrency]))
	if currency == "" {
		currency = fallbackCurrency
	}
	return owner, currency, nil
}

func contactSnapshot(contact *payments.ContactDetails) *domain.OrderContact {
	if contact == nil {
		return nil
	}
	snapshot := &domain.OrderContact{
		Name:  contact.Name,
		Email: contact.Email,
		Phone: contact.Phone,
	}
	if contact.Line1 != "" || contact.Line2 != "" || contact.City != "" ||
		contact.State != "" || contact.PostalCode != "" || contact.Country != "" {
		snapshot.Address = &domain.PostalAddress{
			Line1:      contact.Line1,
			Line2:      contact.Line2,
			City:       contact.City,
			State:      contact.State,
			PostalCode: contact.PostalCode,
			Country:    contact.Country,
		}
	}
	return snapshot
}

func orderItems(lines []domain.CartLine) []domain.OrderLineItem {
	items := make([]domain.OrderLineItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, domain.OrderLineItem{
			ProductRef:    line.ProductRef,
			Name:          line.ProductName,
			Brand:         line.ProductBrand,
			Size:          line.Size,
			Quantity:      line.Quantity,
			UnitPriceBase: line.UnitPriceBase,
			ImageRef:      line.ImageRef,
		})
	}
	return items
}

// shipToText flattens the shipping contact into a single display line,
// falling back to the billing contact when no shipping details exist.
func shipToText(shipping, customer *domain.OrderContact) string {
	contact := shipping
	if contact == nil {
		contact = customer
	}
	if contact == nil {
		return ""
	}

	segments := make([]string, 0, 5)
	appendSegment := func(parts ...string) {
		joined := strings.TrimSpace(strings.Join(nonEmpty(parts), " "))
		if joined != "" {
			segments = append(segments, joined)
		}
	}

	appendSegment(contact.Name)
	if addr := contact.Address; addr != nil {
		appendSegment(addr.Line1)
		appendSegment(addr.Line2)
		appendSegment(addr.PostalCode, addr.City)
		appendSegment(addr.State, addr.Country)
	}
	return strings.Join(segments, ", ")
}

func nonEmpty(values []string) []string {
	out := values[:0]
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			out = append(out, value)
		}
	}
	return out
}

func isRepositoryNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func isRepositoryConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}
