// Package fetch downloads remote media into the staging directory. Hosts
// are checked against the configured allow-list before any network request
// is made, and failed downloads never leave partial files behind.
package fetch
