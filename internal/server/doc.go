// Package server exposes the HTTP front door: job submission, result
// polling, and queue introspection for the CLI.
package server
