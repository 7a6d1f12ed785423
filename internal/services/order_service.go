package services

import (
	"context"
	"errors"
	"strings"

	"github.com/threadline-shop/api/internal/repositories"
)

const (
	defaultOrderListLimit = 20
	maxOrderListLimit     = 100
)

var (
	// ErrOrderNotFound indicates no order exists for the given id.
	ErrOrderNotFound = errors.New("orders: order not found")
	// ErrOrderInvalidInput indicates the caller supplied invalid query parameters.
	ErrOrderInvalidInput = errors.New("orders: invalid input")
	// ErrOrderUnavailable indicates the ledger is currently unreachable.
	ErrOrderUnavailable = errors.New("orders: unavailable")
)

// OrderServiceDeps wires the dependencies of the order read service.
type OrderServiceDeps struct {
	Orders repositories.OrderRepository
}

type orderService struct {
	orders repositories.OrderRepository
}

// NewOrderService constructs an OrderService validating required dependencies.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	return &orderService{orders: deps.Orders}, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, ErrOrderInvalidInput
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if isRepositoryNotFound(err) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, ErrOrderUnavailable
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, query OrderListQuery) ([]Order, error) {
	owner := query.Owner
	owner.ID = strings.TrimSpace(owner.ID)
	if owner.ID == "" || !owner.Kind.Valid() {
		return nil, ErrOrderInvalidInput
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultOrderListLimit
	}
	if limit > maxOrderListLimit {
		limit = maxOrderListLimit
	}

	orders, err := s.orders.ListByOwner(ctx, owner, repositories.OrderListFilter{Limit: limit})
	if err != nil {
		if isRepositoryNotFound(err) {
			return []Order{}, nil
		}
		return nil, ErrOrderUnavailable
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}
