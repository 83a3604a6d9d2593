// Package report computes read-only summaries over tasks and bill entries:
// completion rate, response-time distribution, the weekly trend with its
// chart, and the daily bills digest. The Service delivers them through a
// notification sink.
package report
