// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Connection handles opened, closed and abandoned
//   - Whether a handle is currently held
//   - Messages and bytes received
//   - Transport failures by kind
package metrics
