package stage

import (
	"log/slog"
	"os"

	"scribed/internal/logging"
)

// RemoveStagedInput deletes a job's staged media file. It belongs at the
// terminal-transition sites only: a job that exits non-terminally (daemon
// shutdown mid-run) must keep its input so the rerun after restart can
// still read it.
func RemoveStagedInput(logger *slog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		if logger == nil {
			logger = logging.NewNop()
		}
		logger.Warn("failed to remove staged input",
			logging.String("path", path), logging.Error(err))
	}
}
