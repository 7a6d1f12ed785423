package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/threadline-shop/api/internal/domain"
	"github.com/threadline-shop/api/internal/repositories"
)

func TestOrderService_GetOrder(t *testing.T) {
	orders := &stubOrderRepository{
		findByIDFn: func(ctx context.Context, orderID string) (domain.Order, error) {
			if orderID != "ord_1" {
				return domain.Order{}, stubRepoError{msg: "not found", notFound: true}
			}
			return domain.Order{ID: "ord_1", StripeSessionID: "cs_1"}, nil
		},
	}

	svc, err := NewOrderService(OrderServiceDeps{Orders: orders})
	if err != nil {
		t.Fatalf("NewOrderService error: %v", err)
	}

	order, err := svc.GetOrder(context.Background(), "ord_1")
	if err != nil {
		t.Fatalf("GetOrder error: %v", err)
	}
	if order.ID != "ord_1" {
		t.Fatalf("expected ord_1, got %q", order.ID)
	}

	if _, err := svc.GetOrder(context.Background(), "ord_missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if _, err := svc.GetOrder(context.Background(), "  "); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}
}

func TestOrderService_ListOrders(t *testing.T) {
	owner := domain.Owner{Kind: domain.OwnerKindUser, ID: "user_1"}
	var seenFilter repositories.OrderListFilter
	orders := &stubOrderRepository{
		listByOwnerFn: func(ctx context.Context, got domain.Owner, filter repositories.OrderListFilter) ([]domain.Order, error) {
			if got != owner {
				t.Fatalf("unexpected owner: %+v", got)
			}
			seenFilter = filter
			return []domain.Order{{ID: "ord_a"}, {ID: "ord_b"}}, nil
		},
	}

	svc, err := NewOrderService(OrderServiceDeps{Orders: orders})
	if err != nil {
		t.Fatalf("NewOrderService error: %v", err)
	}

	list, err := svc.ListOrders(context.Background(), OrderListQuery{Owner: owner})
	if err != nil {
		t.Fatalf("ListOrders error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected two orders, got %d", len(list))
	}
	if seenFilter.Limit != defaultOrderListLimit {
		t.Fatalf("expected default limit %d, got %d", defaultOrderListLimit, seenFilter.Limit)
	}

	if _, err := svc.ListOrders(context.Background(), OrderListQuery{Owner: owner, Limit: 500}); err != nil {
		t.Fatalf("ListOrders error: %v", err)
	}
	if seenFilter.Limit != maxOrderListLimit {
		t.Fatalf("expected limit capped at %d, got %d", maxOrderListLimit, seenFilter.Limit)
	}

	if _, err := svc.ListOrders(context.Background(), OrderListQuery{}); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}
}
