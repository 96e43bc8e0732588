/*
Package observability exposes Prometheus metrics for merged runs.

Metrics are fed through domain.LifecycleHooks: child transitions come from the
registry and OnEvent sees every event of the merged stream.
*/
package observability
