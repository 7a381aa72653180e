// Package sinks implements progress consumers for Prometheus, structured
// logs and the search history store. Each sink satisfies progress.Sink.
package sinks
