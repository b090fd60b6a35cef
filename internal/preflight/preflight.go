package preflight

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"scribed/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all preflight checks for the given config. Failures are
// reported, not fatal; the daemon logs them and keeps running so jobs fail
// with a diagnosable error instead of the daemon refusing to start.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckEngineBinary(cfg.Whisper.Binary),
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckFreeSpace(cfg.Paths.StagingDir, cfg.Uploads.MinFreeSpaceGiB),
	}
	if cfg.Whisper.ModelDir != "" {
		results = append(results, CheckDirectoryAccess("Model directory", cfg.Whisper.ModelDir))
	}
	return results
}

// CheckEngineBinary verifies the transcription binary resolves on PATH.
func CheckEngineBinary(binary string) Result {
	const name = "Whisper binary"
	if binary == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not found on PATH)", binary)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has at least minGiB
// available.
func CheckFreeSpace(path string, minGiB int) Result {
	const name = "Free disk space"
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	freeBytes := stat.Bavail * uint64(stat.Bsize)
	freeGiB := float64(freeBytes) / (1 << 30)
	if minGiB > 0 && freeBytes < uint64(minGiB)<<30 {
		return Result{Name: name, Detail: fmt.Sprintf("%.1f GiB free, %d GiB required", freeGiB, minGiB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%.1f GiB free", freeGiB)}
}
