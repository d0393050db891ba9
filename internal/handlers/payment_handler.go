package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Shiw2807/payments-service/internal/domain"
)

// Handler exposes the payment service over HTTP. It is a thin adapter: it
// frames requests into the core's operations and maps typed failures to
// response codes, with no decision logic of its own.
type Handler struct {
	service *domain.PaymentService
}

// NewHandler creates a new Handler backed by the given payment service.
func NewHandler(service *domain.PaymentService) *Handler {
	return &Handler{service: service}
}

type chargeRequest struct {
	OrderID        string  `json:"order_id"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	CustomerID     string  `json:"customer_id"`
	PaymentMethod  string  `json:"payment_method"`
	IdempotencyKey string  `json:"idempotency_key"`
}

type refundRequest struct {
	ChargeID string   `json:"charge_id"`
	Amount   *float64 `json:"amount,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}

type chargeResponse struct {
	ID             string  `json:"id"`
	OrderID        string  `json:"order_id"`
	CustomerID     string  `json:"customer_id"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	PaymentMethod  string  `json:"payment_method"`
	Status         string  `json:"status"`
	RefundedAmount float64 `json:"refunded_amount"`
	DisplayAmount  string  `json:"display_amount"`
	CreatedAt      string  `json:"created_at"`
}

type refundResponse struct {
	ID        string  `json:"id"`
	ChargeID  string  `json:"charge_id"`
	Amount    float64 `json:"amount"`
	Reason    string  `json:"reason,omitempty"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
}

type orderChargesResponse struct {
	OrderID string           `json:"order_id"`
	Charges []chargeResponse `json:"charges"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// CreateCharge handles POST /api/payments/charge.
func (h *Handler) CreateCharge(w http.ResponseWriter, r *http.Request) {
	var req chargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "validation_error", "failed to parse request body")
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	charge, err := h.service.CreateCharge(r.Context(), domain.ChargeRequest{
		OrderID:        req.OrderID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		CustomerID:     req.CustomerID,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: req.IdempotencyKey,
		Credential:     r.Header.Get("Authorization"),
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, toChargeResponse(charge))
}

// CreateRefund handles POST /api/payments/refund.
func (h *Handler) CreateRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "validation_error", "failed to parse request body")
		return
	}

	refund, err := h.service.CreateRefund(r.Context(), domain.RefundRequest{
		ChargeID:   req.ChargeID,
		Amount:     req.Amount,
		Reason:     req.Reason,
		Credential: r.Header.Get("Authorization"),
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, toRefundResponse(refund))
}

// GetCharge handles GET /api/payments/charges/{chargeID}.
func (h *Handler) GetCharge(w http.ResponseWriter, r *http.Request) {
	chargeID := chi.URLParam(r, "chargeID")

	charge, err := h.service.GetCharge(r.Context(), r.Header.Get("Authorization"), chargeID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, toChargeResponse(charge))
}

// GetOrderCharges handles GET /api/payments/orders/{orderID}/charges.
func (h *Handler) GetOrderCharges(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	charges, err := h.service.ListChargesByOrder(r.Context(), r.Header.Get("Authorization"), orderID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	resp := orderChargesResponse{
		OrderID: orderID,
		Charges: make([]chargeResponse, 0, len(charges)),
	}
	for _, c := range charges {
		resp.Charges = append(resp.Charges, toChargeResponse(c))
	}

	sendJSON(w, http.StatusOK, resp)
}

func toChargeResponse(c *domain.Charge) chargeResponse {
	return chargeResponse{
		ID:             c.ID,
		OrderID:        c.OrderID,
		CustomerID:     c.CustomerID,
		Amount:         c.Amount.InexactFloat64(),
		Currency:       c.Currency,
		PaymentMethod:  c.PaymentMethod,
		Status:         string(c.Status),
		RefundedAmount: c.RefundedAmount.InexactFloat64(),
		DisplayAmount:  domain.FormatAmount(c.Amount, c.Currency),
		CreatedAt:      c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toRefundResponse(r *domain.Refund) refundResponse {
	return refundResponse{
		ID:        r.ID,
		ChargeID:  r.ChargeID,
		Amount:    r.Amount.InexactFloat64(),
		Reason:    r.Reason,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// handleDomainError converts domain errors to HTTP responses
func handleDomainError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError

	switch {
	case errors.As(err, &validationErr):
		sendErrorResponse(w, http.StatusBadRequest, "validation_error", validationErr.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		sendErrorResponse(w, http.StatusUnauthorized, "authorization_error", err.Error())
	case errors.Is(err, domain.ErrChargeNotFound), errors.Is(err, domain.ErrRefundNotFound):
		sendErrorResponse(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance):
		sendErrorResponse(w, http.StatusConflict, "insufficient_balance", err.Error())
	case errors.Is(err, domain.ErrDuplicateRequest):
		sendErrorResponse(w, http.StatusConflict, "duplicate_request", err.Error())
	case errors.Is(err, domain.ErrStorageUnavailable):
		sendErrorResponse(w, http.StatusServiceUnavailable, "storage_unavailable", err.Error())
	default:
		sendErrorResponse(w, http.StatusInternalServerError, "internal_error", "an internal error occurred")
	}
}

// sendErrorResponse sends an error response in the expected envelope
func sendErrorResponse(w http.ResponseWriter, statusCode int, kind, message string) {
	sendJSON(w, statusCode, errorResponse{Error: errorBody{Kind: kind, Message: message}})
}

func sendJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
