// Package http implements the rpc transport over HTTP.
//
// Server routes:
//
//	POST /{store}  serialized common.Message for the collection {store}
//	GET  /{store}  read-only HTML page of the collection
//	GET  /metrics  VictoriaMetrics counters and histograms in prometheus format
//
// The client posts to the configured endpoints round-robin and retries a
// failed request on the next endpoint up to RetryCount times. It is safe for
// concurrent use.
package http
