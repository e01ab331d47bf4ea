package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"styx-hq/charon/pkg/proxy/types"
	"styx-hq/charon/pkg/relay"
)

const (
	// DefaultMaxBodyBytes is the default request body cap for POST endpoints.
	DefaultMaxBodyBytes = 10 * 1024 * 1024

	// RequestIDHeader is the HTTP header for request ID propagation.
	RequestIDHeader = "X-Request-ID"

	// ClientVersionHeader carries the client build version checked by the
	// remote import gate.
	ClientVersionHeader = "X-Charon-Version"
)

// ReadBody reads the request body while enforcing maxBytes. A body over
// the cap or a failed read yields a VALIDATION_ERROR; the caller never
// sees a partial body.
func ReadBody(r *http.Request, maxBytes int64) ([]byte, *relay.Error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return nil, relay.NewError(relay.KindValidation, "Failed to read request body")
	}
	if int64(len(body)) > maxBytes {
		return nil, relay.NewError(relay.KindValidation,
			fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytes))
	}

	return body, nil
}

// ParseRelayChatRequest parses the body of POST /v1/relay/chat. It enforces
// the size cap, requires valid JSON, and requires that some upstream target
// is named. Model and message validation happens inside the relay so both
// response modes share it. The raw body is returned alongside the parsed
// form so the audit trail can account for it without re-encoding.
func ParseRelayChatRequest(r *http.Request, maxBytes int64) (*types.RelayChatRequest, []byte, *relay.Error) {
	body, rerr := ReadBody(r, maxBytes)
	if rerr != nil {
		return nil, nil, rerr
	}
	if len(body) == 0 {
		return nil, nil, relay.NewError(relay.KindValidation, "Request body must not be empty")
	}

	var req types.RelayChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, nil, relay.NewError(relay.KindValidation, fmt.Sprintf("Invalid JSON: %v", err))
	}
	if !req.HasTarget() {
		return nil, nil, relay.NewError(relay.KindValidation, "Either supplier or base_url must be provided")
	}

	return &req, body, nil
}

// ParseSupplierRequest parses the body shared by POST /v1/suppliers/models
// and POST /v1/suppliers/test-connection.
func ParseSupplierRequest(r *http.Request, maxBytes int64) (*types.SupplierRequest, []byte, *relay.Error) {
	body, rerr := ReadBody(r, maxBytes)
	if rerr != nil {
		return nil, nil, rerr
	}
	if len(body) == 0 {
		return nil, nil, relay.NewError(relay.KindValidation, "Request body must not be empty")
	}

	var req types.SupplierRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, nil, relay.NewError(relay.KindValidation, fmt.Sprintf("Invalid JSON: %v", err))
	}
	if !req.HasTarget() {
		return nil, nil, relay.NewError(relay.KindValidation, "Either supplier or base_url must be provided")
	}

	return &req, body, nil
}

// ExtractRequestID extracts the request ID from the X-Request-ID header.
// If the header is not present, it returns an empty string and the
// middleware generates one.
func ExtractRequestID(r *http.Request) string {
	return r.Header.Get(RequestIDHeader)
}

// ExtractClientVersion extracts the client build version from the
// X-Charon-Version header. An empty string means the client did not
// identify itself; the import gate treats that as acceptable.
func ExtractClientVersion(r *http.Request) string {
	return r.Header.Get(ClientVersionHeader)
}
