// Package resolver implements the resource correlation engine: after an
// external action causes a third-party system to asynchronously create a
// resource (a helpdesk conversation thread), the engine recovers that
// resource's identifier so a follow-up action can target it.
//
// Two interchangeable strategies are provided:
//   - PushCorrelator registers a waiter keyed by correlation key, triggers
//     the external action, and suspends until an inbound callback completes
//     the waiter or the timeout elapses.
//   - PollResolver repeatedly queries a recency-ordered listing endpoint
//     within a lookback window, disambiguates by subject hint, and selects
//     the most recently active candidate, on a bounded retry schedule.
//
// Service is the façade the host calls; it dispatches to one strategy per
// configuration, translates every internal outcome into a single *Failure
// with a reason code, and gates the follow-up annotation on actual success.
package resolver
