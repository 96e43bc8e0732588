// Package reporter provides reporting sinks for merged streams. Each sink is a
// ports.ReporterFactory: it subscribes to the stream and writes as events arrive.
package reporter
