// Package eventrelay propagates trip-social domain events between services.
//
// Accepted events are made durable in an event store, fanned out over
// broadcast exchanges and bridged from a partitioned log back into local
// writes. The store's per-row topic history is the single source of truth
// for "has event E been processed by topic T", which keeps the two
// transports' at-least-once delivery from producing duplicate side effects.
package eventrelay
