// Package jobs runs on-demand background work, such as report delivery,
// on a bounded queue drained by a fixed pool of workers.
package jobs
