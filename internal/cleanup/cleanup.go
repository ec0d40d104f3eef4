package cleanup

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"ncanimate/internal/framefiles"
	"ncanimate/internal/logging"
)

// Result contains the outcome of a cleanup operation.
type Result struct {
	Removed []string
	Errors  []Error
}

// Error pairs a path with its removal error.
type Error struct {
	Path  string
	Error error
}

// Reclaim deletes every frame in known that required no longer references,
// and drops deleted entries from known. Frames that were never written are
// skipped silently. Removal failures are logged as warnings and kept in known
// so a later pass can retry them.
func Reclaim(known, required framefiles.Index, logger *slog.Logger) Result {
	result := Result{}
	logger = logging.NewComponentLogger(logger, "cleanup")
	for key, path := range known {
		if _, needed := required[key]; needed {
			continue
		}
		err := os.Remove(path)
		switch {
		case err == nil:
			result.Removed = append(result.Removed, path)
			delete(known, key)
		case errors.Is(err, fs.ErrNotExist):
			delete(known, key)
		default:
			result.Errors = append(result.Errors, Error{Path: path, Error: err})
			logging.WarnWithContext(logger, "failed to delete frame file", "frame_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check frame_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		}
	}
	if len(result.Removed) > 0 {
		logger.Debug("frame files reclaimed",
			logging.Int("removed", len(result.Removed)),
			logging.Int("still_known", len(known)),
		)
	}
	return result
}

// DiskSpace reports total and available bytes on the filesystem holding path.
func DiskSpace(path string) (total, free uint64, err error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total = stat.Blocks * uint64(stat.Bsize)
	free = stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}

// LogDiskSpace logs free space on the filesystem holding path at debug level.
func LogDiskSpace(logger *slog.Logger, path string) {
	if logger == nil {
		return
	}
	total, free, err := DiskSpace(path)
	if err != nil {
		logger.Debug("disk space unavailable", logging.String("path", path), logging.Error(err))
		return
	}
	logger.Debug("disk space",
		logging.String("path", path),
		logging.Uint64("free_bytes", free),
		logging.Uint64("total_bytes", total),
	)
}

// RemoveWorkDir deletes a run's scratch directory. Failures are logged and
// returned.
func RemoveWorkDir(dir string, logger *slog.Logger) error {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		logging.WarnWithContext(logger, "failed to remove working directory", "work_dir_cleanup_failed",
			logging.String("path", dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check work_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
		return err
	}
	return nil
}

// CleanStale removes working directories of owner older than maxAge, left
// behind by runs that were killed before they could clean up. Run
// directories are named <owner>_<run token>; an empty owner matches every
// directory.
func CleanStale(ctx context.Context, workDir, owner string, maxAge time.Duration, logger *slog.Logger) Result {
	result := Result{}
	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return result
	}
	entries, err := os.ReadDir(workDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, Error{Path: workDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx != nil && ctx.Err() != nil {
			break
		}
		if !entry.IsDir() || !ownedBy(entry.Name(), owner) {
			continue
		}
		dirPath := filepath.Join(workDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, Error{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, Error{Path: dirPath, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale working directory", "work_dir_cleanup_failed",
				logging.String("path", dirPath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check work_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed stale working directory",
				logging.String("path", dirPath),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "work_dir_cleanup"),
			)
		}
	}
	return result
}

// ownedBy reports whether a run directory name belongs to owner. The run
// token never contains an underscore, so "p_x_<token>" is not owned by "p".
func ownedBy(name, owner string) bool {
	if owner == "" {
		return true
	}
	token, ok := strings.CutPrefix(name, owner+"_")
	return ok && token != "" && !strings.Contains(token, "_")
}
