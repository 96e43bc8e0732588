/*
Package http carries children over HTTP and serves the progress of a run.

Loader fetches an http(s) child location with the handshake headers; the
response body is the child's wire stream. PageHandler is the other end: it
runs a page for every request and streams its records back.

NewHandler exposes one merged run:

	GET /health   liveness
	GET /info     version
	GET /status   totals, stats and the state of every child
	GET /tree     the merged suite tree, once the run is over
	GET /events   merged events as server-sent events
	GET /metrics  Prometheus collectors, with WithMetrics
*/
package http
