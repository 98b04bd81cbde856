// Package event provides the synchronous publish/subscribe bus that model
// aggregates and services use to announce changes.
//
// # Delivery
//
// [Bus.Post] calls every registered listener inline, on the calling
// goroutine, in registration order. A listener that posts again (to the same
// or another bus) is served depth-first before Post returns. Nothing is
// queued and nothing is dropped.
//
// Listeners are registered either as values implementing [Listener] (which
// must be comparable so they can be unregistered) or as plain functions via
// [Bus.Subscribe], which returns a [Subscription] handle.
//
// # Forwarding
//
// An aggregate re-publishes its children's events by registering a
// [Forwarder] on each child bus:
//
//	child.Register(event.Forward(parent))
//
// A Bus is not safe for concurrent use; it belongs to the goroutine that
// owns the model.
package event
