// Package relay implements the OpenAI-compatible chat relay core.
//
// # Overview
//
// A Relay forwards chat-completion and model-listing calls to a
// caller-chosen upstream (any OpenAI-compatible endpoint identified by a
// base URL and bearer credential) and normalizes every upstream failure
// into a small closed error vocabulary. It speaks exactly one upstream
// contract and supports exactly two response modes:
//
//  1. Buffered - the upstream's JSON body is returned whole, verbatim.
//  2. Streaming - upstream bytes are relayed live, in arrival order,
//     preserving the upstream's own SSE framing.
//
// # Basic Usage
//
//	r := relay.New(relay.Options{})
//	defer r.Close()
//
//	target := relay.Target{
//	    BaseURL: "https://api.openrouter.ai",
//	    APIKey:  os.Getenv("OPENROUTER_API_KEY"),
//	}
//
//	models, err := r.ListModels(ctx, target)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := r.Chat(ctx, target, &relay.ChatRequest{
//	    Model:    "gpt-4o-mini",
//	    Messages: []json.RawMessage{json.RawMessage(`{"role":"user","content":"hi"}`)},
//	})
//
// # Streaming
//
//	stream, err := r.OpenStream(ctx, target, req)
//	if err != nil {
//	    // the call failed before any byte was relayed
//	}
//	defer stream.Close()
//
//	for ev := range stream.Events {
//	    if ev.Err != nil {
//	        // terminal: frame it with relay.FrameError and stop
//	        break
//	    }
//	    w.Write(ev.Data)
//	}
//
// # Error Taxonomy
//
// Every failure is surfaced as *relay.Error with one of the closed Kind
// values: VALIDATION_ERROR, UNAUTHORIZED, RATE_LIMITED, TIMEOUT,
// NETWORK_ERROR, UPSTREAM_ERROR, INTERNAL_ERROR. Validation failures
// (empty credential, malformed or loopback base URL) are detected before
// any network call. Upstream statuses translate through pure tables
// (KindForStatus, ChatKindForStatus); transport failures split into
// TIMEOUT and NETWORK_ERROR.
//
// # Guarantees
//
// No retries are performed anywhere; a single upstream failure is
// translated and surfaced immediately. Streamed bytes are never buffered
// beyond a small bounded pipe, never reordered, and a stream never ends
// mid-frame: a late failure is delivered as one well-formed SSE error
// event built by FrameError. Canceling the caller's context promptly
// closes the upstream connection.
package relay
