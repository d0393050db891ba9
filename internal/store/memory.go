// Package store provides the in-memory Ledger backend.
//
// All records live in process memory behind a single store-wide lock, so
// every mutation is trivially linearized: the idempotency check plus charge
// insert, and the refunded-amount increment plus refund insert, each run as
// one critical section. The store hands out copies of its records, never
// pointers into the maps, so callers can't mutate ledger state from outside.
package store

import (
	"context"
	"sync"

	"github.com/Shiw2807/payments-service/internal/domain"
)

// idempotencyRecord remembers a processed charge request so retries can be
// replayed (same fingerprint) or rejected (different fingerprint).
type idempotencyRecord struct {
	fingerprint string
	chargeID    string
}

// MemoryLedger implements domain.Ledger with in-process maps.
type MemoryLedger struct {
	mu          sync.RWMutex
	charges     map[string]domain.Charge
	refunds     map[string]domain.Refund
	orderIndex  map[string][]string // order id -> charge ids, insertion order
	refundIndex map[string][]string // charge id -> refund ids, insertion order
	idempotency map[string]idempotencyRecord
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		charges:     make(map[string]domain.Charge),
		refunds:     make(map[string]domain.Refund),
		orderIndex:  make(map[string][]string),
		refundIndex: make(map[string][]string),
		idempotency: make(map[string]idempotencyRecord),
	}
}

// CreateCharge persists a new charge unless the idempotency scope was seen
// before. The check and the insert share the write lock, so two concurrent
// retries of the same request cannot both create a charge.
func (l *MemoryLedger) CreateCharge(ctx context.Context, charge *domain.Charge, idempotencyScope, fingerprint string) (*domain.Charge, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec, ok := l.idempotency[idempotencyScope]; ok {
		if rec.fingerprint != fingerprint {
			return nil, false, domain.ErrDuplicateRequest
		}
		existing := l.charges[rec.chargeID]
		return &existing, false, nil
	}

	l.charges[charge.ID] = *charge
	l.orderIndex[charge.OrderID] = append(l.orderIndex[charge.OrderID], charge.ID)
	l.idempotency[idempotencyScope] = idempotencyRecord{fingerprint: fingerprint, chargeID: charge.ID}

	stored := *charge
	return &stored, true, nil
}

// GetCharge retrieves a charge by id.
func (l *MemoryLedger) GetCharge(ctx context.Context, id string) (*domain.Charge, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	charge, ok := l.charges[id]
	if !ok {
		return nil, domain.ErrChargeNotFound
	}
	return &charge, nil
}

// ListChargesByOrder returns the order's charges in insertion order.
func (l *MemoryLedger) ListChargesByOrder(ctx context.Context, orderID string) ([]*domain.Charge, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := l.orderIndex[orderID]
	charges := make([]*domain.Charge, 0, len(ids))
	for _, id := range ids {
		charge := l.charges[id]
		charges = append(charges, &charge)
	}
	return charges, nil
}

// ApplyRefund increments the parent charge's refunded amount and persists
// the refund record under one lock acquisition, so the two writes are a
// single atomic unit and the remaining-balance check cannot race.
func (l *MemoryLedger) ApplyRefund(ctx context.Context, refund *domain.Refund) (*domain.Charge, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	charge, ok := l.charges[refund.ChargeID]
	if !ok {
		return nil, domain.ErrChargeNotFound
	}

	if !refund.Amount.IsPositive() || refund.Amount.GreaterThan(charge.RemainingRefundable()) {
		return nil, domain.ErrInsufficientBalance
	}

	charge.RefundedAmount = charge.RefundedAmount.Add(refund.Amount)
	l.charges[charge.ID] = charge
	l.refunds[refund.ID] = *refund
	l.refundIndex[charge.ID] = append(l.refundIndex[charge.ID], refund.ID)

	return &charge, nil
}

// GetRefund retrieves a refund by id.
func (l *MemoryLedger) GetRefund(ctx context.Context, id string) (*domain.Refund, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	refund, ok := l.refunds[id]
	if !ok {
		return nil, domain.ErrRefundNotFound
	}
	return &refund, nil
}

// ListRefundsByCharge returns the charge's refunds in insertion order.
func (l *MemoryLedger) ListRefundsByCharge(ctx context.Context, chargeID string) ([]*domain.Refund, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := l.refundIndex[chargeID]
	refunds := make([]*domain.Refund, 0, len(ids))
	for _, id := range ids {
		refund := l.refunds[id]
		refunds = append(refunds, &refund)
	}
	return refunds, nil
}
