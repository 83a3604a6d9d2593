// Package api is the inbound HTTP surface used by the chat transport. It
// translates task lines, completion evidence, attribution replies, searches,
// bill entries and report requests into lifecycle engine, store and job calls,
// and renders results as JSON.
package api
