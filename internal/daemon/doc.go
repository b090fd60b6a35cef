// Package daemon ties the job store, workflow manager, and HTTP front door
// into a single lifecycle with flock-based locking to prevent multiple
// instances from sharing a queue.
package daemon
