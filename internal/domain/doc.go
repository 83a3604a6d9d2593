// Package domain contains the core business entities of the task tracker:
// tasks and their lifecycle states, time-of-day values, bill entries, and the
// parsers that turn free-text chat input into those values. It has no
// knowledge of storage or transport.
package domain
