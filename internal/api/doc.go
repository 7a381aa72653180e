// Package api wires the chi router that serves the prospecting service:
// the NDJSON search stream, on-demand site audits and the read-only history
// of past searches and audits.
//
// Every route except the search stream runs behind a request timeout. The
// stream stays open for the life of the pipeline run and is flushed after
// each event so clients can render progress as it happens.
package api
