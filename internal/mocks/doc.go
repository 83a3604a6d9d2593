// Package mocks provides centralized test doubles for the store and
// notification interfaces.
//
// MockTaskStore and MockBillStore are in-memory stores that honour the same
// conditional-transition semantics as the Postgres implementation, so engine
// and handler tests exercise real state changes. Function fields override
// individual methods when a test needs to inject failures:
//
//	tasks := mocks.NewMockTaskStore()
//	tasks.MarkNotifiedFn = func(ctx context.Context, id int64, at time.Time) (bool, error) {
//	    return false, errors.New("database unavailable")
//	}
//
// RecordingSink captures every outbound notification.
package mocks
