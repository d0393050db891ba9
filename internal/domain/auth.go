package domain

import "context"

// Operation identifies what the caller is trying to do. The gate decides
// per-operation: mutating operations require ownership of the target
// customer, read operations only require a valid credential.
type Operation string

const (
	// OperationChargeCreate creates a new charge against an order
	OperationChargeCreate Operation = "charge.create"

	// OperationRefundCreate creates a refund against an existing charge
	OperationRefundCreate Operation = "refund.create"

	// OperationChargeRead reads a single charge or refund by id
	OperationChargeRead Operation = "charge.read"

	// OperationChargeList lists the charges of an order
	OperationChargeList Operation = "charge.list"
)

// ReadOnly reports whether the operation never mutates the ledger.
// Read operations use a weaker, authentication-only policy. This is an
// explicit exception to the ownership check, not an omission: lookups carry
// opaque ids and the full ownership context is not known until the record
// is loaded.
func (op Operation) ReadOnly() bool {
	return op == OperationChargeRead || op == OperationChargeList
}

// Resource names the target of an operation. Fields that are unknown at
// check time (e.g. the owning customer before a charge is loaded) are left
// empty; the authorizer must not treat an empty field as a wildcard grant.
type Resource struct {
	OrderID    string
	CustomerID string
	ChargeID   string
}

// Decision is the total outcome of an authorization check. There is no
// implicit allow: every check produces either an allow or a deny with a
// reason.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow returns an allowing decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denying decision with the given reason.
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Authorizer is the policy gate consulted before every ledger operation.
// Mutating operations (charge.create, refund.create) must verify that the
// credential is well-formed and current and that the actor is entitled to
// act on the named customer. Implementations must be safe for concurrent
// use.
type Authorizer interface {
	Authorize(ctx context.Context, credential string, op Operation, res Resource) Decision
}
