// Package logging builds the shared slog logger and re-exports the
// attribute helpers used across scribed components.
package logging
