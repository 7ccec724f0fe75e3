// Package bus provides the in-process message bus that routes envelopes
// between named agents.
//
// # Overview
//
// Agents subscribe a handler under their own name; publishers address
// envelopes to a receiver name. No agent ever holds a reference to
// another. Every published envelope is appended to an append-only history
// before delivery, so the history is a complete audit trail of everything
// that was ever attempted, queryable by trace id.
//
// # Delivery semantics
//
// Publish is synchronous: it returns only after every handler registered
// for the receiver has been invoked, in registration order. A handler
// failure (returned error or panic) is logged and isolated; it neither
// reaches the publisher nor prevents later handlers from running. An
// envelope addressed to a name with no subscribers is recorded in history
// and otherwise dropped, without error.
//
//	b := bus.New(log)
//	b.Subscribe("RetrievalAgent", handleRetrieval)
//	b.Publish(ctx, protocol.NewMessage("CoordinatorAgent", "RetrievalAgent",
//		protocol.KindRetrieveRequest, traceID, payload))
//
// # Ordering
//
// For a single receiver, handlers run in registration order within one
// publish, and publishes are delivered in publish order. No ordering is
// guaranteed between unrelated trace ids.
package bus
