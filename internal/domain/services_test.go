package domain_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Shiw2807/payments-service/internal/domain"
	"github.com/Shiw2807/payments-service/internal/store"
)

// stubAuthorizer is a mock gate for unit testing
type stubAuthorizer struct {
	authorizeFunc func(credential string, op domain.Operation, res domain.Resource) domain.Decision
}

func (s *stubAuthorizer) Authorize(ctx context.Context, credential string, op domain.Operation, res domain.Resource) domain.Decision {
	if s.authorizeFunc != nil {
		return s.authorizeFunc(credential, op, res)
	}
	return domain.Allow()
}

func allowAll() *stubAuthorizer {
	return &stubAuthorizer{}
}

func denyAll(reason string) *stubAuthorizer {
	return &stubAuthorizer{
		authorizeFunc: func(string, domain.Operation, domain.Resource) domain.Decision {
			return domain.Deny(reason)
		},
	}
}

func newTestService(gate domain.Authorizer) (*domain.PaymentService, *store.MemoryLedger) {
	ledger := store.NewMemoryLedger()
	return domain.NewPaymentService(ledger, gate, domain.DefaultRules(), nil), ledger
}

func validChargeRequest() domain.ChargeRequest {
	return domain.ChargeRequest{
		OrderID:        "order-1",
		Amount:         100.00,
		Currency:       "USD",
		CustomerID:     "cust-1",
		PaymentMethod:  "card",
		IdempotencyKey: "key-1",
		Credential:     "Bearer test-token",
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestCreateCharge_Success(t *testing.T) {
	service, _ := newTestService(allowAll())

	charge, err := service.CreateCharge(context.Background(), validChargeRequest())
	if err != nil {
		t.Fatalf("CreateCharge failed: %v", err)
	}

	if charge.ID == "" {
		t.Error("expected non-empty charge id")
	}
	if charge.Status != domain.ChargeStatusSucceeded {
		t.Errorf("expected status succeeded, got %s", charge.Status)
	}
	if !charge.RefundedAmount.IsZero() {
		t.Errorf("expected refunded_amount 0, got %s", charge.RefundedAmount)
	}
	if !charge.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected amount 100, got %s", charge.Amount)
	}
	if charge.OrderID != "order-1" || charge.CustomerID != "cust-1" {
		t.Errorf("unexpected references: order=%s customer=%s", charge.OrderID, charge.CustomerID)
	}
	if charge.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}

func TestCreateCharge_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.ChargeRequest)
		field  string
	}{
		{"missing order_id", func(r *domain.ChargeRequest) { r.OrderID = "" }, "order_id"},
		{"missing customer_id", func(r *domain.ChargeRequest) { r.CustomerID = "" }, "customer_id"},
		{"missing idempotency_key", func(r *domain.ChargeRequest) { r.IdempotencyKey = "" }, "idempotency_key"},
		{"negative amount", func(r *domain.ChargeRequest) { r.Amount = -1 }, "amount"},
		{"amount above maximum", func(r *domain.ChargeRequest) { r.Amount = 1_000_000.01 }, "amount"},
		{"unknown currency", func(r *domain.ChargeRequest) { r.Currency = "XXX" }, "currency"},
		{"lowercase currency", func(r *domain.ChargeRequest) { r.Currency = "usd" }, "currency"},
		{"unknown payment method", func(r *domain.ChargeRequest) { r.PaymentMethod = "cheque" }, "payment_method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, ledger := newTestService(allowAll())

			req := validChargeRequest()
			tt.mutate(&req)

			_, err := service.CreateCharge(context.Background(), req)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}

			var validationErr *domain.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if validationErr.Field != tt.field {
				t.Errorf("expected failed field %q, got %q", tt.field, validationErr.Field)
			}

			// A failed validation must leave the ledger untouched
			charges, _ := ledger.ListChargesByOrder(context.Background(), "order-1")
			if len(charges) != 0 {
				t.Errorf("expected empty ledger after failed validation, found %d charges", len(charges))
			}
		})
	}
}

func TestCreateCharge_ZeroAndMaxAmountsAreValid(t *testing.T) {
	service, _ := newTestService(allowAll())

	req := validChargeRequest()
	req.Amount = 0
	if _, err := service.CreateCharge(context.Background(), req); err != nil {
		t.Errorf("zero amount charge failed: %v", err)
	}

	req = validChargeRequest()
	req.OrderID = "order-2"
	req.IdempotencyKey = "key-2"
	req.Amount = 1_000_000
	if _, err := service.CreateCharge(context.Background(), req); err != nil {
		t.Errorf("max amount charge failed: %v", err)
	}
}

func TestCreateCharge_Unauthorized(t *testing.T) {
	service, ledger := newTestService(denyAll("unknown credential"))

	_, err := service.CreateCharge(context.Background(), validChargeRequest())
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	charges, _ := ledger.ListChargesByOrder(context.Background(), "order-1")
	if len(charges) != 0 {
		t.Errorf("denied charge must not be stored, found %d charges", len(charges))
	}
}

func TestCreateCharge_IdempotentRetry(t *testing.T) {
	service, _ := newTestService(allowAll())
	ctx := context.Background()

	first, err := service.CreateCharge(ctx, validChargeRequest())
	if err != nil {
		t.Fatalf("first CreateCharge failed: %v", err)
	}

	second, err := service.CreateCharge(ctx, validChargeRequest())
	if err != nil {
		t.Fatalf("retried CreateCharge failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("idempotent retry returned different charge: %s vs %s", first.ID, second.ID)
	}

	// The retry must not create a second charge
	charges, _ := service.ListChargesByOrder(ctx, "Bearer test-token", "order-1")
	if len(charges) != 1 {
		t.Errorf("expected 1 charge after retry, got %d", len(charges))
	}

	// Same key with a different payload is a client bug, not a retry
	conflicting := validChargeRequest()
	conflicting.Amount = 200.00
	_, err = service.CreateCharge(ctx, conflicting)
	if !errors.Is(err, domain.ErrDuplicateRequest) {
		t.Fatalf("expected ErrDuplicateRequest, got %v", err)
	}
}

func TestCreateRefund_Scenario(t *testing.T) {
	service, _ := newTestService(allowAll())
	ctx := context.Background()

	charge, err := service.CreateCharge(ctx, validChargeRequest())
	if err != nil {
		t.Fatalf("CreateCharge failed: %v", err)
	}

	refund, err := service.CreateRefund(ctx, domain.RefundRequest{
		ChargeID:   charge.ID,
		Amount:     floatPtr(40.00),
		Credential: "Bearer test-token",
	})
	if err != nil {
		t.Fatalf("CreateRefund failed: %v", err)
	}
	if refund.Status != domain.RefundStatusSucceeded {
		t.Errorf("expected refund status succeeded, got %s", refund.Status)
	}
	if !refund.Amount.Equal(decimal.NewFromInt(40)) {
		t.Errorf("expected refund amount 40, got %s", refund.Amount)
	}

	updated, err := service.GetCharge(ctx, "Bearer test-token", charge.ID)
	if err != nil {
		t.Fatalf("GetCharge failed: %v", err)
	}
	if !updated.RefundedAmount.Equal(decimal.NewFromInt(40)) {
		t.Errorf("expected refunded_amount 40, got %s", updated.RefundedAmount)
	}

	// Remaining is 60.00, so 70.00 must fail
	_, err = service.CreateRefund(ctx, domain.RefundRequest{
		ChargeID:   charge.ID,
		Amount:     floatPtr(70.00),
		Credential: "Bearer test-token",
	})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// Omitted amount defaults to the remaining refundable amount
	remainder, err := service.CreateRefund(ctx, domain.RefundRequest{
		ChargeID:   charge.ID,
		Credential: "Bearer test-token",
	})
	if err != nil {
		t.Fatalf("CreateRefund with omitted amount failed: %v", err)
	}
	if !remainder.Amount.Equal(decimal.NewFromInt(60)) {
		t.Errorf("expected default refund amount 60, got %s", remainder.Amount)
	}

	final, _ := service.GetCharge(ctx, "Bearer test-token", charge.ID)
	if !final.RefundedAmount.Equal(final.Amount) {
		t.Errorf("expected fully refunded charge, got %s of %s", final.RefundedAmount, final.Amount)
	}
}

func TestCreateRefund_SumMatchesRefundedAmount(t *testing.T) {
	service, _ := newTestService(allowAll())
	ctx := context.Background()

	charge, err := service.CreateCharge(ctx, validChargeRequest())
	if err != nil {
		t.Fatalf("CreateCharge failed: %v", err)
	}

	for _, amount := range []float64{10.00, 5.50, 0.25} {
		if _, err := service.CreateRefund(ctx, domain.RefundRequest{
			ChargeID:   charge.ID,
			Amount:     floatPtr(amount),
			Credential: "Bearer test-token",
		}); err != nil {
			t.Fatalf("CreateRefund(%v) failed: %v", amount, err)
		}
	}

	refunds, err := service.ListRefundsByCharge(ctx, "Bearer test-token", charge.ID)
	if err != nil {
		t.Fatalf("ListRefundsByCharge failed: %v", err)
	}

	sum := decimal.Zero
	for _, r := range refunds {
		sum = sum.Add(r.Amount)
	}

	updated, _ := service.GetCharge(ctx, "Bearer test-token", charge.ID)
	if !sum.Equal(updated.RefundedAmount) {
		t.Errorf("refund sum %s does not match refunded_amount %s", sum, updated.RefundedAmount)
	}
	if updated.RefundedAmount.GreaterThan(updated.Amount) {
		t.Errorf("refunded_amount %s exceeds amount %s", updated.RefundedAmount, updated.Amount)
	}
}

func TestCreateRefund_UnknownCharge(t *testing.T) {
	service, _ := newTestService(allowAll())

	_, err := service.CreateRefund(context.Background(), domain.RefundRequest{
		ChargeID:   "ch_doesnotexist",
		Credential: "Bearer test-token",
	})
	if !errors.Is(err, domain.ErrChargeNotFound) {
		t.Fatalf("expected ErrChargeNotFound, got %v", err)
	}
}

func TestCreateRefund_NonPositiveAmount(t *testing.T) {
	service, _ := newTestService(allowAll())
	ctx := context.Background()

	charge, err := service.CreateCharge(ctx, validChargeRequest())
	if err != nil {
		t.Fatalf("CreateCharge failed: %v", err)
	}

	for _, amount := range []float64{0, -5} {
		_, err := service.CreateRefund(ctx, domain.RefundRequest{
			ChargeID:   charge.ID,
			Amount:     floatPtr(amount),
			Credential: "Bearer test-token",
		})
		if !errors.Is(err, domain.ErrInsufficientBalance) {
			t.Errorf("refund of %v: expected ErrInsufficientBalance, got %v", amount, err)
		}
	}
}

func TestCreateRefund_Unauthorized(t *testing.T) {
	// Seed a charge with an allowing gate, then flip to denying
	ledger := store.NewMemoryLedger()
	seeder := domain.NewPaymentService(ledger, allowAll(), domain.DefaultRules(), nil)

	charge, err := seeder.CreateCharge(context.Background(), validChargeRequest())
	if err != nil {
		t.Fatalf("CreateCharge failed: %v", err)
	}

	service := domain.NewPaymentService(ledger, denyAll("authorization required"), domain.DefaultRules(), nil)

	_, err = service.CreateRefund(context.Background(), domain.RefundRequest{ChargeID: charge.ID})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	stored, err := ledger.GetCharge(context.Background(), charge.ID)
	if err != nil {
		t.Fatalf("GetCharge failed: %v", err)
	}
	if !stored.RefundedAmount.IsZero() {
		t.Errorf("denied refund must not change the charge, refunded_amount = %s", stored.RefundedAmount)
	}
}

func TestCreateRefund_OwnershipCheckSeesLoadedCustomer(t *testing.T) {
	var sawCustomer string
	gate := &stubAuthorizer{
		authorizeFunc: func(credential string, op domain.Operation, res domain.Resource) domain.Decision {
			if op == domain.OperationRefundCreate && res.CustomerID != "" {
				sawCustomer = res.CustomerID
			}
			return domain.Allow()
		},
	}

	service, _ := newTestService(gate)
	ctx := context.Background()

	charge, err := service.CreateCharge(ctx, validChargeRequest())
	if err != nil {
		t.Fatalf("CreateCharge failed: %v", err)
	}
	if _, err := service.CreateRefund(ctx, domain.RefundRequest{
		ChargeID:   charge.ID,
		Amount:     floatPtr(1.00),
		Credential: "Bearer test-token",
	}); err != nil {
		t.Fatalf("CreateRefund failed: %v", err)
	}

	if sawCustomer != "cust-1" {
		t.Errorf("ownership check did not see the owning customer, saw %q", sawCustomer)
	}
}

func TestConcurrentRefunds_NoOverRefund(t *testing.T) {
	service, _ := newTestService(allowAll())
	ctx := context.Background()

	req := validChargeRequest()
	req.Amount = 30.00
	charge, err := service.CreateCharge(ctx, req)
	if err != nil {
		t.Fatalf("CreateCharge failed: %v", err)
	}

	const attempts = 50
	results := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.CreateRefund(ctx, domain.RefundRequest{
				ChargeID:   charge.ID,
				Amount:     floatPtr(1.00),
				Credential: "Bearer test-token",
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, insufficient int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrInsufficientBalance):
			insufficient++
		default:
			t.Errorf("unexpected refund error: %v", err)
		}
	}

	if succeeded != 30 {
		t.Errorf("expected exactly 30 refunds to succeed, got %d", succeeded)
	}
	if insufficient != 20 {
		t.Errorf("expected exactly 20 refunds to fail with insufficient balance, got %d", insufficient)
	}

	updated, _ := service.GetCharge(ctx, "Bearer test-token", charge.ID)
	if !updated.RefundedAmount.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected refunded_amount exactly 30, got %s", updated.RefundedAmount)
	}
}

func TestListChargesByOrder_InsertionOrder(t *testing.T) {
	service, _ := newTestService(allowAll())
	ctx := context.Background()

	var wantIDs []string
	for _, key := range []string{"key-1", "key-2", "key-3"} {
		req := validChargeRequest()
		req.IdempotencyKey = key
		charge, err := service.CreateCharge(ctx, req)
		if err != nil {
			t.Fatalf("CreateCharge(%s) failed: %v", key, err)
		}
		wantIDs = append(wantIDs, charge.ID)
	}

	charges, err := service.ListChargesByOrder(ctx, "Bearer test-token", "order-1")
	if err != nil {
		t.Fatalf("ListChargesByOrder failed: %v", err)
	}
	if len(charges) != len(wantIDs) {
		t.Fatalf("expected %d charges, got %d", len(wantIDs), len(charges))
	}
	for i, c := range charges {
		if c.ID != wantIDs[i] {
			t.Errorf("charge %d: expected %s, got %s", i, wantIDs[i], c.ID)
		}
	}
}
