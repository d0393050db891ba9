// Package auth provides the bearer-token implementation of the
// Authorization Gate.
package auth

import (
	"context"
	"strings"

	"github.com/Shiw2807/payments-service/internal/domain"
)

// Actor is a configured API client with the customer ids it may act on.
type Actor struct {
	Name      string
	Customers map[string]struct{} // empty + Wildcard=false means no customers
	Wildcard  bool                // may act on any customer
}

// TokenAuthorizer implements domain.Authorizer against a static token
// registry. Tokens are presented as "Bearer <token>" credentials. The
// registry is immutable after construction, so checks need no locking.
type TokenAuthorizer struct {
	actors map[string]Actor // token -> actor
}

// NewTokenAuthorizer creates a TokenAuthorizer from a token -> customer
// scope mapping. A scope of "*" entitles the actor to every customer.
func NewTokenAuthorizer(tokens map[string][]string) *TokenAuthorizer {
	actors := make(map[string]Actor, len(tokens))
	for token, customers := range tokens {
		actor := Actor{
			Name:      token,
			Customers: make(map[string]struct{}, len(customers)),
		}
		for _, c := range customers {
			if c == "*" {
				actor.Wildcard = true
				continue
			}
			actor.Customers[c] = struct{}{}
		}
		actors[token] = actor
	}
	return &TokenAuthorizer{actors: actors}
}

// Authorize checks the credential and, for mutating operations with a known
// target customer, the actor's entitlement to that customer. Read operations
// require authentication only.
func (a *TokenAuthorizer) Authorize(ctx context.Context, credential string, op domain.Operation, res domain.Resource) domain.Decision {
	if credential == "" {
		return domain.Deny("authorization required")
	}

	token, ok := strings.CutPrefix(credential, "Bearer ")
	if !ok || token == "" {
		return domain.Deny("invalid authorization format")
	}

	actor, ok := a.actors[token]
	if !ok {
		return domain.Deny("unknown credential")
	}

	if op.ReadOnly() {
		return domain.Allow()
	}

	// Mutations with a resolved target customer require ownership. An empty
	// CustomerID means the target is not yet known (e.g. a refund before its
	// charge is loaded); the credential check above is all that can be done.
	if res.CustomerID != "" && !actor.Wildcard {
		if _, ok := actor.Customers[res.CustomerID]; !ok {
			return domain.Deny("credential is not entitled to customer " + res.CustomerID)
		}
	}

	return domain.Allow()
}
