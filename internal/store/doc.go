// Package store defines the persistence contracts for tasks and bill entries,
// the store error taxonomy, and transaction helpers. Implementations live in
// internal/platform/postgres; in-memory fakes for tests live in internal/mocks.
package store
