// Package redisstore provides Redis-backed state shared across processes:
// the per-conversation table of evidence awaiting attribution and the
// idempotency keys for inbound completion requests.
package redisstore
