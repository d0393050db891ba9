package domain

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Charge represents money collected for an order.
// This is the core domain entity of the payments ledger. A charge is
// append-only: once created its identifying fields never change, only
// RefundedAmount grows as refunds are applied against it.
type Charge struct {
	ID             string          // Unique identifier, "ch_" prefixed
	OrderID        string          // External order reference
	CustomerID     string          // External customer reference
	Amount         decimal.Decimal // Charged amount, immutable
	Currency       string          // ISO 4217 currency code
	PaymentMethod  string          // Payment method tag (e.g. "card")
	Status         ChargeStatus    // Current status of the charge
	RefundedAmount decimal.Decimal // Running total of refunds, never exceeds Amount
	CreatedAt      time.Time       // Timestamp when the charge was created
}

// Refund represents money returned against a prior charge.
// A refund is a dependent record of its charge and never outlives it.
type Refund struct {
	ID        string          // Unique identifier, "re_" prefixed
	ChargeID  string          // Parent charge reference, immutable
	Amount    decimal.Decimal // Refunded amount, always positive
	Reason    string          // Optional free-text reason
	Status    RefundStatus    // Current status of the refund
	CreatedAt time.Time       // Timestamp when the refund was created
}

// ChargeStatus represents the possible states of a charge.
type ChargeStatus string

const (
	// ChargeStatusPending indicates the charge is awaiting gateway confirmation.
	// Kept explicit so a real gateway integration can introduce it without
	// changing the contract; this core transitions directly to succeeded.
	ChargeStatusPending ChargeStatus = "pending"

	// ChargeStatusSucceeded indicates the charge completed successfully
	ChargeStatusSucceeded ChargeStatus = "succeeded"

	// ChargeStatusFailed indicates the charge failed
	ChargeStatusFailed ChargeStatus = "failed"
)

// RefundStatus represents the possible states of a refund.
type RefundStatus string

const (
	// RefundStatusSucceeded indicates the refund completed successfully
	RefundStatusSucceeded RefundStatus = "succeeded"

	// RefundStatusFailed indicates the refund failed
	RefundStatusFailed RefundStatus = "failed"
)

// NewCharge creates a new succeeded Charge with a fresh identifier and a
// zero refunded amount.
func NewCharge(orderID, customerID string, amount decimal.Decimal, currency, paymentMethod string) *Charge {
	return &Charge{
		ID:             NewChargeID(),
		OrderID:        orderID,
		CustomerID:     customerID,
		Amount:         amount,
		Currency:       currency,
		PaymentMethod:  paymentMethod,
		Status:         ChargeStatusSucceeded,
		RefundedAmount: decimal.Zero,
		CreatedAt:      time.Now().UTC(),
	}
}

// NewRefund creates a new succeeded Refund for the given charge.
func NewRefund(chargeID string, amount decimal.Decimal, reason string) *Refund {
	return &Refund{
		ID:        NewRefundID(),
		ChargeID:  chargeID,
		Amount:    amount,
		Reason:    reason,
		Status:    RefundStatusSucceeded,
		CreatedAt: time.Now().UTC(),
	}
}

// RemainingRefundable returns how much of the charge can still be refunded.
func (c *Charge) RemainingRefundable() decimal.Decimal {
	return c.Amount.Sub(c.RefundedAmount)
}

// NewChargeID generates a fresh charge identifier ("ch_" + 16 hex chars).
func NewChargeID() string {
	return "ch_" + shortID()
}

// NewRefundID generates a fresh refund identifier ("re_" + 16 hex chars).
func NewRefundID() string {
	return "re_" + shortID()
}

// shortID derives a 16-character hex token from a random UUID.
func shortID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:8])
}
