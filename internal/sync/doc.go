// Package sync keeps a client-side session view consistent with the
// authoritative server simulation over an unreliable websocket link.
//
// The Client owns the single active connection handle: it dials with a
// bearer token from an injected accessor, reconnects with exponential
// backoff after abnormal disconnects, and automatically re-joins the current
// session with a full-state resync rather than assuming continuity. All
// moderator commands go through its request methods as request/ack
// exchanges; nothing else writes to the connection.
//
// Inbound events pass through one Coalescer, which batches bursts over a
// short window so consumers see one ordered batch instead of a storm of
// single events. Delivery order within a batch matches arrival order;
// correctness under reordering is the reducer's job.
package sync
