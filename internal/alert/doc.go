// Package alert fans detected opportunities out to subscribers.
//
// Hub is the in-process fan-out. Feed streams a Hub subscription to
// WebSocket clients, and FeedClient consumes such a stream.
package alert
