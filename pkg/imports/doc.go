// Package imports stages remote card imports until a client collects them.
//
// A card arrives as an opaque JSON payload, is assigned a short id and a
// display name, and waits in a bounded pending store. Clients list the
// pending cards and collect one by id; collecting a card removes it. Cards
// that are never collected expire after a TTL so the store cannot grow
// without bound.
//
// Two stores are provided: MemoryStore, the default, and SQLiteStore for
// deployments where pending cards must survive a restart.
//
// CheckClientVersion gates imports on the client's advertised version so
// payloads from clients older than the configured minimum are turned away
// before they are staged.
package imports
