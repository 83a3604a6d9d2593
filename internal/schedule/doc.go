// Package schedule owns the long-running periodic loops: the task lifecycle
// loop, the weekly response-time report and the daily bills report.
package schedule
