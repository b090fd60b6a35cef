// Package workflow drives transcription jobs from claim to terminal state.
// A fixed pool of workers claims pending jobs oldest first, heartbeats while
// a job runs, and persists the outcome.
package workflow
