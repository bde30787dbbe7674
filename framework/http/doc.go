// Package http holds the request and response helpers used by the graph
// server handlers.
package http
