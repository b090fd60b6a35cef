// Package stage defines the contract between the workflow manager and the
// units of work it drives.
package stage

import (
	"context"

	"scribed/internal/queue"
)

// Handler describes the contract the workflow manager needs from a stage.
// Prepare validates preconditions without side effects on external systems;
// Execute performs the work and leaves the job in a terminal state on
// success.
type Handler interface {
	Prepare(context.Context, *queue.Job) error
	Execute(context.Context, *queue.Job) error
}
