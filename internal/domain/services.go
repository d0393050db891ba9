package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ChargeRequest carries the inputs of a charge creation.
type ChargeRequest struct {
	OrderID        string
	Amount         float64
	Currency       string
	CustomerID     string
	PaymentMethod  string
	IdempotencyKey string
	Credential     string
}

// RefundRequest carries the inputs of a refund creation. Amount is optional:
// when nil the charge's remaining refundable amount is used.
type RefundRequest struct {
	ChargeID   string
	Amount     *float64
	Reason     string
	Credential string
}

// PaymentService handles the business logic of the charge/refund ledger.
// It coordinates the Authorization Gate, validation rules and the Ledger
// store, and enforces the cross-record invariants that govern money
// movement. One instance is constructed per service process; there is no
// package-level state.
type PaymentService struct {
	ledger Ledger
	gate   Authorizer
	rules  Rules
	// Optional event publisher to emit domain events (e.g. charge created)
	eventPublisher EventPublisher
}

// NewPaymentService creates a new instance of PaymentService.
// Pass nil for eventPublisher if no events should be emitted.
func NewPaymentService(ledger Ledger, gate Authorizer, rules Rules, eventPublisher EventPublisher) *PaymentService {
	return &PaymentService{
		ledger:         ledger,
		gate:           gate,
		rules:          rules,
		eventPublisher: eventPublisher,
	}
}

// CreateCharge records a charge against an order.
//
// This operation is idempotent: calling it again with the same idempotency
// key and payload returns the originally created charge, so client retries
// never produce duplicate charges. Reusing a key with a different payload
// fails with ErrDuplicateRequest.
//
// The flow is:
//  1. Authorization Gate check; a denial leaves the ledger untouched.
//  2. Field validation against the configured rules.
//  3. Atomic idempotency check + charge creation in the Ledger.
func (s *PaymentService) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	decision := s.gate.Authorize(ctx, req.Credential, OperationChargeCreate, Resource{
		OrderID:    req.OrderID,
		CustomerID: req.CustomerID,
	})
	if !decision.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, decision.Reason)
	}

	if err := s.validateChargeRequest(req); err != nil {
		return nil, err
	}

	charge := NewCharge(req.OrderID, req.CustomerID, decimal.NewFromFloat(req.Amount), req.Currency, req.PaymentMethod)

	stored, created, err := s.ledger.CreateCharge(ctx, charge, chargeIdempotencyScope(req), chargeFingerprint(req))
	if err != nil {
		return nil, err
	}

	if created && s.eventPublisher != nil {
		// Best-effort, published asynchronously so a transient broker failure
		// doesn't make the already-recorded charge appear to fail.
		go func(c *Charge) {
			if err := s.eventPublisher.PublishChargeCreated(context.Background(), c); err != nil {
				fmt.Printf("warning: failed to publish charge created event: %v\n", err)
			}
		}(stored)
	}

	return stored, nil
}

// CreateRefund records a refund against an existing charge.
//
// The flow is:
//  1. Authorization Gate check on the bare credential: a missing or
//     malformed credential fails here, before any ledger read.
//  2. Charge lookup; absent -> ErrChargeNotFound.
//  3. Second gate check scoped to the charge's owning customer.
//  4. Amount resolution: omitted -> remaining refundable; provided -> must
//     be positive and within the remaining balance.
//  5. Atomic refund application in the Ledger. The remaining-balance check
//     is repeated there under the charge's critical section, so concurrent
//     refunds can never over-refund.
func (s *PaymentService) CreateRefund(ctx context.Context, req RefundRequest) (*Refund, error) {
	decision := s.gate.Authorize(ctx, req.Credential, OperationRefundCreate, Resource{ChargeID: req.ChargeID})
	if !decision.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, decision.Reason)
	}

	if req.ChargeID == "" {
		return nil, NewValidationError("charge_id", "is required")
	}

	charge, err := s.ledger.GetCharge(ctx, req.ChargeID)
	if err != nil {
		return nil, err
	}

	// Ownership is only known once the charge is loaded.
	decision = s.gate.Authorize(ctx, req.Credential, OperationRefundCreate, Resource{
		OrderID:    charge.OrderID,
		CustomerID: charge.CustomerID,
		ChargeID:   charge.ID,
	})
	if !decision.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, decision.Reason)
	}

	amount := charge.RemainingRefundable()
	if req.Amount != nil {
		v := *req.Amount
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, NewValidationError("amount", "must be a finite number")
		}
		amount = decimal.NewFromFloat(v)
		if !amount.IsPositive() || amount.GreaterThan(charge.RemainingRefundable()) {
			return nil, ErrInsufficientBalance
		}
	}

	refund := NewRefund(charge.ID, amount, req.Reason)

	updated, err := s.ledger.ApplyRefund(ctx, refund)
	if err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		go func(r *Refund, c *Charge) {
			if err := s.eventPublisher.PublishRefundCreated(context.Background(), r, c); err != nil {
				fmt.Printf("warning: failed to publish refund created event: %v\n", err)
			}
		}(refund, updated)
	}

	return refund, nil
}

// GetCharge retrieves a charge by id. Reads pass the authentication-only
// gate policy; there is no authorization bypass.
func (s *PaymentService) GetCharge(ctx context.Context, credential, id string) (*Charge, error) {
	decision := s.gate.Authorize(ctx, credential, OperationChargeRead, Resource{ChargeID: id})
	if !decision.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, decision.Reason)
	}
	return s.ledger.GetCharge(ctx, id)
}

// ListChargesByOrder retrieves all charges of an order in insertion order.
func (s *PaymentService) ListChargesByOrder(ctx context.Context, credential, orderID string) ([]*Charge, error) {
	decision := s.gate.Authorize(ctx, credential, OperationChargeList, Resource{OrderID: orderID})
	if !decision.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, decision.Reason)
	}
	return s.ledger.ListChargesByOrder(ctx, orderID)
}

// GetRefund retrieves a refund by id through the read policy.
func (s *PaymentService) GetRefund(ctx context.Context, credential, id string) (*Refund, error) {
	decision := s.gate.Authorize(ctx, credential, OperationChargeRead, Resource{})
	if !decision.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, decision.Reason)
	}
	return s.ledger.GetRefund(ctx, id)
}

// ListRefundsByCharge retrieves all refunds of a charge in insertion order.
func (s *PaymentService) ListRefundsByCharge(ctx context.Context, credential, chargeID string) ([]*Refund, error) {
	decision := s.gate.Authorize(ctx, credential, OperationChargeRead, Resource{ChargeID: chargeID})
	if !decision.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, decision.Reason)
	}
	return s.ledger.ListRefundsByCharge(ctx, chargeID)
}

// validateChargeRequest validates the charge request parameters.
func (s *PaymentService) validateChargeRequest(req ChargeRequest) error {
	if req.OrderID == "" {
		return NewValidationError("order_id", "is required")
	}
	if req.CustomerID == "" {
		return NewValidationError("customer_id", "is required")
	}
	if req.IdempotencyKey == "" {
		return NewValidationError("idempotency_key", "is required")
	}
	if !s.rules.ValidAmount(req.Amount) {
		return NewValidationError("amount", "must be a finite amount between 0 and the configured maximum")
	}
	if !s.rules.ValidCurrency(req.Currency) {
		return NewValidationError("currency", "is not an allowed currency code")
	}
	if !s.rules.ValidPaymentMethod(req.PaymentMethod) {
		return NewValidationError("payment_method", "is not an allowed payment method")
	}
	return nil
}

// chargeIdempotencyScope identifies the logical request: the same client
// idempotency key is tracked per (customer, order) pair.
func chargeIdempotencyScope(req ChargeRequest) string {
	return req.CustomerID + "/" + req.OrderID + "/" + req.IdempotencyKey
}

// chargeFingerprint digests the request payload so a reused idempotency key
// with a different payload can be rejected instead of silently merged.
func chargeFingerprint(req ChargeRequest) string {
	payload := strings.Join([]string{
		req.OrderID,
		req.CustomerID,
		strconv.FormatFloat(req.Amount, 'f', -1, 64),
		req.Currency,
		req.PaymentMethod,
	}, "\n")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
