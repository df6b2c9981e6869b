// Package preflight runs startup checks: required binaries on PATH, staging
// directory access and free space, and analysis backend reachability.
package preflight
