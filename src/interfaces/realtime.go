package interfaces

import "crypto-desk/src/models"

// -----------------------------------------------------------------------------
// IRealtime is the contract for the backend's change-notification transport.
// -----------------------------------------------------------------------------

type IRealtime interface {

	// -----------------------------------------------------------------------------

	// Subscribe registers a callback invoked on any row-level change to the
	// given table. The returned handle tears the subscription down
	// deterministically.
	Subscribe(table string, fn func(models.MChangeEvent)) (ISubscription, error)

	// -----------------------------------------------------------------------------

	// Close terminates the underlying connection and all subscriptions.
	Close() error
}

// -----------------------------------------------------------------------------

// ISubscription is a cancellable change-notification registration.
type ISubscription interface {

	// Unsubscribe removes the callback. No events are dispatched after it
	// returns.
	Unsubscribe()
}
