// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured JSON logging
// with configurable log levels, and carries request- or loop-scoped loggers through
// context.Context so that store and engine code can log with correlation attributes.
package logger
