package repositories

import (
	"context"

	domain "github.com/threadline-shop/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Carts() CartRepository
	Orders() OrderRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CartRepository reads and clears cart lines. Cart mutation endpoints live in
// a separate service; checkout only consumes what they wrote.
type CartRepository interface {
	ListLines(ctx context.Context, owner domain.Owner) ([]domain.CartLine, error)
	DeleteLines(ctx context.Context, owner domain.Owner) error
}

// OrderListFilter bounds owner-scoped order listings.
type OrderListFilter struct {
	Limit int
}

// OrderRepository persists the order ledger. Insert must reject a second
// order carrying an already-recorded checkout session id with a conflict
// error; that constraint is the confirmation flow's only concurrency guard.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) (domain.Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (domain.Order, error)
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	ListByOwner(ctx context.Context, owner domain.Owner, filter OrderListFilter) ([]domain.Order, error)
}
