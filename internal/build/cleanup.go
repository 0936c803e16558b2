package build

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"vnforge/internal/logging"
)

const stagingPrefix = ".staging-"

// cleanStaging removes staging trees left behind by builds that died before
// their deferred cleanup ran. Callers must hold the project's build lock, so
// no live build owns any of them.
func cleanStaging(buildDir string, logger *slog.Logger) []string {
	entries, err := os.ReadDir(buildDir)
	if err != nil {
		return nil
	}
	var removed []string
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), stagingPrefix) {
			continue
		}
		dir := filepath.Join(buildDir, entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			logging.WarnWithContext(logger, "failed to remove stale staging directory", "staging_cleanup_failed",
				logging.String("path", dir),
				logging.Error(err),
			)
			continue
		}
		removed = append(removed, dir)
		logger.Info("removed stale staging directory",
			logging.String("path", dir),
			logging.String(logging.FieldEventType, "staging_cleanup"),
		)
	}
	return removed
}
