// Package events provides in-process lifecycle events.
//
// The lifecycle engine and the report jobs emit a LifecycleEvent for every
// state change they make (task notified, completed, missed, evidence held,
// report sent). Handlers registered on the emitter react to them without the
// emitting code knowing who listens; the log handler turns them into an
// audit trail.
//
// The primary components are:
// - LifecycleEvent: a single recorded change
// - EventHandler: interface for components that can handle events
// - EventEmitter: interface for components that can emit events
package events
