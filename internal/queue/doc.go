// Package queue persists transcription jobs in SQLite and mediates the
// pending → running → terminal lifecycle between the front door and the
// worker pool.
package queue
