// Package gateway provides the payment gateway client.  The sandbox
// implementation stands in for a real processor: it approves every
// charge and refund and mints reference IDs, which is enough to exercise
// the full checkout and refund flows end to end.
package gateway

import (
	"context"
	"log"

	"github.com/google/uuid"
)

// Sandbox is a payment gateway that always approves.  Swap it for a real
// client by implementing the same three methods.
type Sandbox struct{}

// NewSandbox returns a sandbox gateway.
func NewSandbox() *Sandbox {
	return &Sandbox{}
}

// Initiate registers a charge intent and returns the gateway reference.
func (g *Sandbox) Initiate(ctx context.Context, amountCents int64, currency, method string) (string, error) {
	ref := "pay_" + uuid.NewString()
	log.Printf("gateway: initiated %s charge of %d %s (%s)", method, amountCents, currency, ref)
	return ref, nil
}

// Confirm captures a previously initiated charge.
func (g *Sandbox) Confirm(ctx context.Context, gatewayRef string) error {
	log.Printf("gateway: confirmed charge %s", gatewayRef)
	return nil
}

// Refund reverses a captured charge in full and returns the refund
// reference.
func (g *Sandbox) Refund(ctx context.Context, gatewayRef string, amountCents int64) (string, error) {
	ref := "ref_" + uuid.NewString()
	log.Printf("gateway: refunded %d on charge %s (%s)", amountCents, gatewayRef, ref)
	return ref, nil
}
