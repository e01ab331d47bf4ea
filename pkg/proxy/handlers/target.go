package handlers

import (
	"errors"
	"fmt"

	"styx-hq/charon/pkg/audit"
	"styx-hq/charon/pkg/relay"
)

// resolveTarget picks the upstream target for a request. A named supplier
// wins over inline credentials, so a stored key cannot be overridden per
// call. The returned label identifies the target in logs, metrics, and
// audit records: the supplier name as requested, or "inline".
func resolveTarget(reg TargetResolver, supplier, baseURL, apiKey string) (relay.Target, string, *relay.Error) {
	if supplier == "" {
		return relay.Target{BaseURL: baseURL, APIKey: apiKey}, audit.SupplierInline, nil
	}

	if reg != nil {
		if target, ok := reg.Resolve(supplier); ok {
			return target, supplier, nil
		}
	}

	return relay.Target{}, supplier, relay.NewError(relay.KindValidation,
		fmt.Sprintf("Unknown supplier %q", supplier))
}

// asRelayError narrows err to the relay's closed error set. Anything else
// is reported as INTERNAL_ERROR.
func asRelayError(err error) *relay.Error {
	var relErr *relay.Error
	if errors.As(err, &relErr) {
		return relErr
	}
	return relay.NewError(relay.KindInternal, "Internal relay error")
}
