package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/threadline-shop/api/internal/platform/httpx"
	"github.com/threadline-shop/api/internal/services"
)

const maxCheckoutRequestBody = 8 * 1024

var (
	errEmptyBody    = errors.New("request body is empty")
	errBodyTooLarge = errors.New("request body too large")
)

// CheckoutHandlers exposes the checkout session and confirmation endpoints.
type CheckoutHandlers struct {
	checkout services.CheckoutService
	confirm  services.OrderConfirmationService
}

// NewCheckoutHandlers constructs the checkout handlers.
func NewCheckoutHandlers(checkout services.CheckoutService, confirm services.OrderConfirmationService) *CheckoutHandlers {
	return &CheckoutHandlers{
		checkout: checkout,
		confirm:  confirm,
	}
}

// Routes registers checkout endpoints under the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/checkout/session", h.createSession)
	r.Post("/checkout/confirm", h.confirmOrder)
}

type checkoutSessionRequest struct {
	Currency   string `json:"currency"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

type checkoutSessionResponse struct {
	SessionID  string `json:"sessionId"`
	SessionURL string `json:"sessionUrl"`
}

type checkoutConfirmRequest struct {
	SessionID string `json:"sessionId"`
}

type checkoutConfirmResponse struct {
	AlreadyProcessed bool   `json:"alreadyProcessed"`
	OrderID          string `json:"orderId"`
}

func (h *CheckoutHandlers) createSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}

	owner, ok := ownerFromRequest(r)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("owner_required", "owner identity headers are required", http.StatusUnauthorized))
		return
	}

	var req checkoutSessionRequest
	body, err := readLimitedBody(r, maxCheckoutRequestBody)
	switch {
	case errors.Is(err, errEmptyBody):
		// Currency and URLs all have configured defaults.
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusRequestEntityTooLarge))
		return
	case err != nil:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	default:
		if err := json.Unmarshal(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
			return
		}
	}

	result, err := h.checkout.CreateCheckoutSession(ctx, services.CreateCheckoutSessionCommand{
		Owner:      owner,
		Currency:   strings.TrimSpace(req.Currency),
		SuccessURL: strings.TrimSpace(req.SuccessURL),
		CancelURL:  strings.TrimSpace(req.CancelURL),
	})
	if err != nil {
		httpx.WriteError(ctx, w, checkoutError(err))
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, checkoutSessionResponse{
		SessionID:  result.SessionID,
		SessionURL: result.SessionURL,
	})
}

func (h *CheckoutHandlers) confirmOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.confirm == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "confirmation service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxCheckoutRequestBody)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return
	}

	var req checkoutConfirmRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "sessionId is required", http.StatusBadRequest))
		return
	}

	result, err := h.confirm.ConfirmOrder(ctx, services.ConfirmOrderCommand{SessionID: req.SessionID})
	if err != nil {
		httpx.WriteError(ctx, w, confirmError(err))
		return
	}

	httpx.WriteJSON(w, http.StatusOK, checkoutConfirmResponse{
		AlreadyProcessed: result.AlreadyProcessed,
		OrderID:          result.OrderID,
	})
}

func checkoutError(err error) httpx.Error {
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		return httpx.NewError("invalid_request", "owner identity is invalid", http.StatusBadRequest)
	case errors.Is(err, services.ErrCheckoutEmptyCart):
		return httpx.NewError("empty_cart", "cart has no lines to check out", http.StatusConflict)
	case errors.Is(err, services.ErrUnsupportedCurrency):
		return httpx.NewError("unsupported_currency", "currency is not supported", http.StatusBadRequest)
	case errors.Is(err, services.ErrInvalidPrice):
		return httpx.NewError("invalid_price", "cart contains an unpriceable line", http.StatusConflict)
	case errors.Is(err, services.ErrCheckoutGatewayFailed):
		return httpx.NewError("gateway_error", "payment gateway rejected the session", http.StatusBadGateway)
	default:
		return httpx.NewError("internal_error", "checkout is temporarily unavailable", http.StatusInternalServerError)
	}
}

func confirmError(err error) httpx.Error {
	var notCompleted *services.PaymentNotCompletedError
	switch {
	case errors.Is(err, services.ErrConfirmSessionNotFound):
		return httpx.NewError("session_not_found", "checkout session not found", http.StatusNotFound)
	case errors.As(err, &notCompleted):
		return httpx.NewError("payment_not_completed", "checkout session is not paid", http.StatusConflict).
			WithDetails(map[string]any{"paymentStatus": string(notCompleted.Status)})
	case errors.Is(err, services.ErrConfirmMissingOwnerMetadata):
		return httpx.NewError("session_invalid", "checkout session carries no owner metadata", http.StatusConflict)
	default:
		return httpx.NewError("internal_error", "confirmation is temporarily unavailable", http.StatusInternalServerError)
	}
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}
