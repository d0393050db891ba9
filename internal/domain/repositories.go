package domain

import "context"

// Ledger defines the interface for charge and refund storage.
// This follows the Repository pattern to abstract data persistence logic:
// the payment service owns an injected Ledger instance, so a persistent
// backend can be substituted without touching engine logic.
//
// Implementations must linearize mutations of a single charge: concurrent
// refunds against the same charge observe a consistent, serialized view of
// its refunded amount.
type Ledger interface {
	// CreateCharge persists a new charge and updates the order index as one
	// atomic unit with the idempotency check. idempotencyScope identifies
	// the logical request (customer, order and client idempotency key) and
	// fingerprint is a digest of the request payload.
	//
	// Returns (existing, false, nil) when the scope was seen before with the
	// same fingerprint: the retried request maps to the originally created
	// charge and no write is performed.
	// Returns (charge, true, nil) when the charge was created.
	// Returns ErrDuplicateRequest when the scope was seen before with a
	// different fingerprint.
	CreateCharge(ctx context.Context, charge *Charge, idempotencyScope, fingerprint string) (*Charge, bool, error)

	// GetCharge retrieves a charge by its unique identifier.
	// Returns ErrChargeNotFound if the charge doesn't exist.
	GetCharge(ctx context.Context, id string) (*Charge, error)

	// ListChargesByOrder returns the charges of an order in insertion order.
	// Returns an empty slice, not nil, when the order has no charges.
	ListChargesByOrder(ctx context.Context, orderID string) ([]*Charge, error)

	// ApplyRefund atomically increments the parent charge's refunded amount
	// and persists the refund record. The two writes are one atomic unit:
	// the store is never left with one applied and the other missing.
	// Returns the updated charge, ErrChargeNotFound if the parent doesn't
	// exist, or ErrInsufficientBalance if the refund amount is not positive
	// or exceeds the remaining refundable amount, in which case the store
	// is untouched.
	ApplyRefund(ctx context.Context, refund *Refund) (*Charge, error)

	// GetRefund retrieves a refund by its unique identifier.
	// Returns ErrRefundNotFound if the refund doesn't exist.
	GetRefund(ctx context.Context, id string) (*Refund, error)

	// ListRefundsByCharge returns the refunds of a charge in insertion order.
	ListRefundsByCharge(ctx context.Context, chargeID string) ([]*Refund, error)
}

// EventPublisher publishes ledger events to external systems (e.g. RabbitMQ).
type EventPublisher interface {
	PublishChargeCreated(ctx context.Context, charge *Charge) error
	PublishRefundCreated(ctx context.Context, refund *Refund, charge *Charge) error
}
