package relay

import (
	"encoding/json"
	"fmt"
)

// FrameError encodes an error as a single well-formed SSE event:
//
//	event: error
//	data: {"code": "<kind>", "message": "<message>"}
//
// terminated by a blank line per the SSE event-separator convention. The
// message is JSON-escaped and the frame is UTF-8, byte for byte in the
// form above including the space after each key, so consumers that
// match frames literally keep working. Once an HTTP response has
// committed to stream mode its status and headers cannot change, so
// this frame is the only vehicle for surfacing a failure to the caller.
// It is always emitted whole, never as a partial frame.
func FrameError(kind Kind, message string) []byte {
	if message == "" {
		message = kind.DefaultMessage()
	}
	// Marshaling a string cannot fail; invalid UTF-8 is replaced.
	code, _ := json.Marshal(string(kind))
	msg, _ := json.Marshal(message)
	return fmt.Appendf(nil, "event: error\ndata: {\"code\": %s, \"message\": %s}\n\n", code, msg)
}
