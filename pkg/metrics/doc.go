/*
Package metrics provides Prometheus metrics collection, health checks, and
the timing helper used across Sentinel's storage and query paths.

Metrics are registered at package init against the default Prometheus
registry and exposed over HTTP via Handler(). Call sites instrument
themselves directly (pkg/collection, pkg/wal, pkg/recovery, pkg/store,
pkg/query) rather than going through a polling collector, since most of
what's interesting here — a document insert, a WAL rotation, a recovery
run — is an event, not a value to sample.

The health subsystem (HealthChecker, GetHealth, GetReadiness, and the
HTTP handlers) is independent of the metric collectors: it tracks named
components ("store", "wal", ...) registered via RegisterComponent, and
GetReadiness additionally requires a fixed set of critical components to
be present and healthy before reporting ready.
*/
package metrics
