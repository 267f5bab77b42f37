// Package registry provides the pending waiter registry: a process-wide
// table mapping a correlation key (typically a customer email address) to
// one outstanding resolution request.
//
// The package centralizes only the waiter lifecycle:
// - Register a waiter for a key before the external action is triggered
// - Complete it when an inbound callback delivers the resource id
// - Expire or fail it when the timeout or the trigger path gives up
//
// Completion and expiry race per key; both go through a single atomic
// check-and-remove under the registry lock, so exactly one of them wins and
// the losing call is a no-op. A waiter's outcome is a single-assignment slot
// observed through a closed channel.
package registry
