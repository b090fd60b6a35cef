// Package preflight verifies the daemon's runtime requirements before work
// begins: the engine binary, staging directory access, and free disk space.
package preflight
