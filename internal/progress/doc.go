// Package progress defines the tagged events a search run emits, the
// emitter interfaces the pipeline writes to, and a non-blocking hub that
// batches events for pluggable sinks such as Prometheus metrics, logs, or
// the search history store.
package progress
