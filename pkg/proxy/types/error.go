package types

// ChatError is the error body used by the chat relay endpoint for both
// local failures and translated upstream failures.
type ChatError struct {
	// Error contains the failure details.
	Error ChatErrorDetail `json:"error"`
}

// ChatErrorDetail carries the translated failure.
type ChatErrorDetail struct {
	// Message is a human-readable description of what went wrong.
	Message string `json:"message"`

	// Code is the error kind string (VALIDATION_ERROR, UNAUTHORIZED,
	// RATE_LIMITED, TIMEOUT, NETWORK_ERROR, UPSTREAM_ERROR, INTERNAL_ERROR).
	Code string `json:"code"`
}

// NewChatError builds the chat error envelope.
func NewChatError(code, message string) *ChatError {
	return &ChatError{
		Error: ChatErrorDetail{
			Message: message,
			Code:    code,
		},
	}
}
