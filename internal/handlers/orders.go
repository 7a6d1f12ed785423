package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/threadline-shop/api/internal/domain"
	"github.com/threadline-shop/api/internal/platform/httpx"
	"github.com/threadline-shop/api/internal/services"
)

// OrderHandlers exposes read access to the caller's order history.
type OrderHandlers struct {
	orders services.OrderService
}

// NewOrderHandlers constructs the order handlers.
func NewOrderHandlers(orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// Routes registers order endpoints under the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{orderID}", h.getOrder)
}

type orderLineItemResponse struct {
	ProductRef    string  `json:"productRef"`
	Name          string  `json:"name"`
	Brand         string  `json:"brand,omitempty"`
	Size          string  `json:"size,omitempty"`
	Quantity      int64   `json:"quantity"`
	UnitPriceBase float64 `json:"unitPriceBase"`
	ImageRef      string  `json:"imageRef,omitempty"`
}

type orderResponse struct {
	ID         string                  `json:"id"`
	SessionID  string                  `json:"sessionId"`
	Currency   string                  `json:"currency"`
	AmountBase float64                 `json:"amountBase"`
	Status     string                  `json:"status"`
	ShipTo     string                  `json:"shipTo,omitempty"`
	Items      []orderLineItemResponse `json:"items"`
	CreatedAt  string                  `json:"createdAt"`
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	owner, ok := ownerFromRequest(r)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("owner_required", "owner identity headers are required", http.StatusUnauthorized))
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "limit must be a positive integer", http.StatusBadRequest))
			return
		}
		limit = parsed
	}

	orders, err := h.orders.ListOrders(ctx, services.OrderListQuery{Owner: owner, Limit: limit})
	if err != nil {
		httpx.WriteError(ctx, w, orderError(err))
		return
	}

	items := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		items = append(items, toOrderResponse(order))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"orders": items})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	owner, ok := ownerFromRequest(r)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("owner_required", "owner identity headers are required", http.StatusUnauthorized))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		httpx.WriteError(ctx, w, orderError(err))
		return
	}

	// Owners only ever see their own orders.
	if order.Owner != owner {
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toOrderResponse(order))
}

func orderError(err error) httpx.Error {
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		return httpx.NewError("order_not_found", "order not found", http.StatusNotFound)
	case errors.Is(err, services.ErrOrderInvalidInput):
		return httpx.NewError("invalid_request", "invalid order query", http.StatusBadRequest)
	default:
		return httpx.NewError("internal_error", "orders are temporarily unavailable", http.StatusInternalServerError)
	}
}

func toOrderResponse(order domain.Order) orderResponse {
	items := make([]orderLineItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderLineItemResponse{
			ProductRef:    item.ProductRef,
			Name:          item.Name,
			Brand:         item.Brand,
			Size:          item.Size,
			Quantity:      item.Quantity,
			UnitPriceBase: item.UnitPriceBase,
			ImageRef:      item.ImageRef,
		})
	}
	return orderResponse{
		ID:         order.ID,
		SessionID:  order.StripeSessionID,
		Currency:   order.Currency,
		AmountBase: order.AmountBase,
		Status:     string(order.Status),
		ShipTo:     order.ShipTo,
		Items:      items,
		CreatedAt:  order.CreatedAt.UTC().Format(time.RFC3339),
	}
}
