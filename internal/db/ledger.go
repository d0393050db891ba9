package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Shiw2807/payments-service/internal/domain"
)

// defaultTimeout bounds every ledger call against the database so a backend
// outage surfaces as a retryable error instead of blocking the caller.
const defaultTimeout = 5 * time.Second

// uniqueViolation is the PostgreSQL error code for unique_violation.
const uniqueViolation = "23505"

// Ledger implements domain.Ledger using PostgreSQL. Per-charge mutations are
// linearized with SELECT ... FOR UPDATE row locks inside a transaction.
type Ledger struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewLedger creates a new PostgreSQL-backed Ledger.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{
		pool:    pool,
		timeout: defaultTimeout,
	}
}

const chargeColumns = `id, order_id, customer_id, amount, currency, payment_method, status, refunded_amount, created_at`

const refundColumns = `id, charge_id, amount, reason, status, created_at`

// CreateCharge persists a new charge unless the idempotency scope was seen
// before. The unique constraint on idempotency_scope arbitrates concurrent
// retries: whichever insert loses re-reads the winner's row.
func (l *Ledger) CreateCharge(ctx context.Context, charge *domain.Charge, idempotencyScope, fingerprint string) (*domain.Charge, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	query := `
		INSERT INTO charges (
			id, order_id, customer_id, amount, currency, payment_method,
			status, refunded_amount, created_at,
			idempotency_scope, request_fingerprint
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := l.pool.Exec(ctx, query,
		charge.ID,
		charge.OrderID,
		charge.CustomerID,
		charge.Amount.String(),
		charge.Currency,
		charge.PaymentMethod,
		string(charge.Status),
		charge.RefundedAmount.String(),
		charge.CreatedAt,
		idempotencyScope,
		fingerprint,
	)
	if err == nil {
		stored := *charge
		return &stored, true, nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil, false, storageError("failed to create charge", err)
	}

	// Idempotency scope already recorded: replay or conflicting payload.
	row := l.pool.QueryRow(ctx,
		`SELECT `+chargeColumns+`, request_fingerprint FROM charges WHERE idempotency_scope = $1`,
		idempotencyScope,
	)
	existing, storedFingerprint, err := scanChargeWithFingerprint(row)
	if err != nil {
		return nil, false, storageError("failed to read existing charge", err)
	}
	if storedFingerprint != fingerprint {
		return nil, false, domain.ErrDuplicateRequest
	}
	return existing, false, nil
}

// GetCharge retrieves a charge by its unique identifier.
func (l *Ledger) GetCharge(ctx context.Context, id string) (*domain.Charge, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	row := l.pool.QueryRow(ctx, `SELECT `+chargeColumns+` FROM charges WHERE id = $1`, id)
	charge, err := scanCharge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChargeNotFound
		}
		return nil, storageError("failed to get charge", err)
	}
	return charge, nil
}

// ListChargesByOrder returns the order's charges in insertion order.
func (l *Ledger) ListChargesByOrder(ctx context.Context, orderID string) ([]*domain.Charge, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	rows, err := l.pool.Query(ctx,
		`SELECT `+chargeColumns+` FROM charges WHERE order_id = $1 ORDER BY position`,
		orderID,
	)
	if err != nil {
		return nil, storageError("failed to list charges", err)
	}
	defer rows.Close()

	charges := make([]*domain.Charge, 0)
	for rows.Next() {
		charge, err := scanCharge(rows)
		if err != nil {
			return nil, storageError("failed to scan charge", err)
		}
		charges = append(charges, charge)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to list charges", err)
	}
	return charges, nil
}

// ApplyRefund locks the parent charge row, re-checks the remaining balance,
// increments refunded_amount and inserts the refund record within one
// transaction, so the store never holds one write without the other.
func (l *Ledger) ApplyRefund(ctx context.Context, refund *domain.Refund) (*domain.Charge, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, storageError("failed to begin transaction", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			fmt.Printf("failed to rollback refund transaction: %v\n", err)
		}
	}()

	row := tx.QueryRow(ctx, `SELECT `+chargeColumns+` FROM charges WHERE id = $1 FOR UPDATE`, refund.ChargeID)
	charge, err := scanCharge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChargeNotFound
		}
		return nil, storageError("failed to lock charge", err)
	}

	if !refund.Amount.IsPositive() || refund.Amount.GreaterThan(charge.RemainingRefundable()) {
		return nil, domain.ErrInsufficientBalance
	}

	charge.RefundedAmount = charge.RefundedAmount.Add(refund.Amount)

	_, err = tx.Exec(ctx,
		`UPDATE charges SET refunded_amount = $2 WHERE id = $1`,
		charge.ID, charge.RefundedAmount.String(),
	)
	if err != nil {
		return nil, storageError("failed to update refunded amount", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO refunds (id, charge_id, amount, reason, status, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		refund.ID, refund.ChargeID, refund.Amount.String(), refund.Reason, string(refund.Status), refund.CreatedAt,
	)
	if err != nil {
		return nil, storageError("failed to create refund", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageError("failed to commit refund", err)
	}

	return charge, nil
}

// GetRefund retrieves a refund by its unique identifier.
func (l *Ledger) GetRefund(ctx context.Context, id string) (*domain.Refund, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	row := l.pool.QueryRow(ctx, `SELECT `+refundColumns+` FROM refunds WHERE id = $1`, id)
	refund, err := scanRefund(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRefundNotFound
		}
		return nil, storageError("failed to get refund", err)
	}
	return refund, nil
}

// ListRefundsByCharge returns the charge's refunds in insertion order.
func (l *Ledger) ListRefundsByCharge(ctx context.Context, chargeID string) ([]*domain.Refund, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	rows, err := l.pool.Query(ctx,
		`SELECT `+refundColumns+` FROM refunds WHERE charge_id = $1 ORDER BY position`,
		chargeID,
	)
	if err != nil {
		return nil, storageError("failed to list refunds", err)
	}
	defer rows.Close()

	refunds := make([]*domain.Refund, 0)
	for rows.Next() {
		refund, err := scanRefund(rows)
		if err != nil {
			return nil, storageError("failed to scan refund", err)
		}
		refunds = append(refunds, refund)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to list refunds", err)
	}
	return refunds, nil
}

// scanCharge scans a charge row. Amounts travel as NUMERIC and are scanned
// through strings into decimals.
func scanCharge(row pgx.Row) (*domain.Charge, error) {
	var charge domain.Charge
	var status, amount, refunded string

	err := row.Scan(
		&charge.ID,
		&charge.OrderID,
		&charge.CustomerID,
		&amount,
		&charge.Currency,
		&charge.PaymentMethod,
		&status,
		&refunded,
		&charge.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return finishCharge(&charge, status, amount, refunded)
}

// scanChargeWithFingerprint scans a charge row plus its request fingerprint.
func scanChargeWithFingerprint(row pgx.Row) (*domain.Charge, string, error) {
	var charge domain.Charge
	var status, amount, refunded, fingerprint string

	err := row.Scan(
		&charge.ID,
		&charge.OrderID,
		&charge.CustomerID,
		&amount,
		&charge.Currency,
		&charge.PaymentMethod,
		&status,
		&refunded,
		&charge.CreatedAt,
		&fingerprint,
	)
	if err != nil {
		return nil, "", err
	}
	c, err := finishCharge(&charge, status, amount, refunded)
	return c, fingerprint, err
}

func finishCharge(charge *domain.Charge, status, amount, refunded string) (*domain.Charge, error) {
	var err error
	charge.Status = domain.ChargeStatus(status)
	if charge.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid stored amount: %w", err)
	}
	if charge.RefundedAmount, err = decimal.NewFromString(refunded); err != nil {
		return nil, fmt.Errorf("invalid stored refunded amount: %w", err)
	}
	return charge, nil
}

func scanRefund(row pgx.Row) (*domain.Refund, error) {
	var refund domain.Refund
	var status, amount string

	err := row.Scan(
		&refund.ID,
		&refund.ChargeID,
		&amount,
		&refund.Reason,
		&status,
		&refund.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	refund.Status = domain.RefundStatus(status)
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid stored refund amount: %w", err)
	}
	refund.Amount = parsed
	return &refund, nil
}

// storageError maps backend timeouts to the retryable ErrStorageUnavailable
// and wraps everything else with context.
func storageError(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", domain.ErrStorageUnavailable, msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
