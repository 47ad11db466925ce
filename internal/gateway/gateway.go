// Package gateway defines the outbound SMS interface to the messaging
// provider. Provider-specific implementations live in subpackages.
package gateway

import "context"

// Sender delivers a single SMS. Implementations return the provider's
// message id, used later to correlate delivery-status callbacks with the
// audit log.
type Sender interface {
	Send(ctx context.Context, to, body string) (providerSID string, err error)
}
