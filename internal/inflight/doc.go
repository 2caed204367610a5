// Package inflight tracks keys that have an operation in progress, using a
// TTL so abandoned claims eventually lapse.
package inflight
