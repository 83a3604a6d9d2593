// Package notify delivers outbound notifications: task reminders, missed-task
// notices and reports. The Sink interface decouples the lifecycle engine from
// the chat transport; TelegramSink talks to the Telegram Bot API and LogSink
// is used when no transport is configured.
package notify
