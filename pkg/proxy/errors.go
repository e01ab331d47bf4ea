package proxy

import (
	"errors"

	"styx-hq/charon/pkg/relay"
)

// AsRelayError coerces err into a *relay.Error so handlers always answer
// with the closed kind set. Errors the relay did not classify become
// INTERNAL_ERROR with the generic message; the original error is retained
// as the cause for logging, never for the wire.
func AsRelayError(err error) *relay.Error {
	var relErr *relay.Error
	if errors.As(err, &relErr) {
		return relErr
	}

	return &relay.Error{
		Kind:    relay.KindInternal,
		Message: relay.KindInternal.DefaultMessage(),
		Cause:   err,
	}
}
