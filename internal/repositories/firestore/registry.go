package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/threadline-shop/api/internal/platform/firestore"
	"github.com/threadline-shop/api/internal/repositories"
)

type registry struct {
	provider *pfirestore.Provider
	carts    *CartRepository
	orders   *OrderRepository
}

// NewRegistry assembles the Firestore-backed repository set behind a shared
// lazily-connected client.
func NewRegistry(provider *pfirestore.Provider) (repositories.Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry requires a provider")
	}

	carts, err := NewCartRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}

	return &registry{
		provider: provider,
		carts:    carts,
		orders:   orders,
	}, nil
}

func (r *registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

func (r *registry) Carts() repositories.CartRepository   { return r.carts }
func (r *registry) Orders() repositories.OrderRepository { return r.orders }
