// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, metrics and debug introspection for hioload-wsframe.
//
// Provides:
//   - TOML-backed typed configuration with defaults and validation
//   - Prometheus collectors implementing protocol.Observer
//   - Named debug probes sampled on demand
package control
