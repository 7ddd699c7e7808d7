// Package gateway holds the payment-provider adapters. Each provider
// implements Adapter; the services resolve one through the Registry by the
// gateway enum, so adding a provider never touches escrow/payment logic.
package gateway

import (
	"context"
	"time"

	"flippa/internal/models"
)

// InitiationResult is what a provider hands back after a payment is started.
// RedirectURL is the hosted page the buyer must visit; PollToken is the opaque
// reference used to query settlement status later (empty for providers that
// confirm synchronously via callback only).
type InitiationResult struct {
	RedirectURL string
	PollToken   string
}

type StatusResult struct {
	Paid bool
}

type Adapter interface {
	Name() models.PaymentGateway
	Initiate(ctx context.Context, amount float64, reference, payerEmail, description string) (*InitiationResult, error)
	CheckStatus(ctx context.Context, pollToken string) (*StatusResult, error)
}

// CredentialSource supplies gateway credentials at call time, so admin edits
// to system config take effect without a restart.
type CredentialSource interface {
	GatewayCredential(gateway, name, defaultValue string) string
}

// requestTimeout bounds every call that crosses the network boundary.
const requestTimeout = 10 * time.Second

type Registry struct {
	adapters map[models.PaymentGateway]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.PaymentGateway]Adapter)}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

// Lookup returns the adapter for gateway. Gateways without an adapter
// (e.g. manual bank transfer) report ok=false.
func (r *Registry) Lookup(gateway models.PaymentGateway) (Adapter, bool) {
	a, ok := r.adapters[gateway]
	return a, ok
}
