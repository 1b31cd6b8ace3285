package storage

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// ResolveDataDir returns the first candidate directory that can actually be
// written to, creating it if needed. Candidates are tried in order; a probe
// file is written and removed to prove writability. When none passes, the
// process has no usable file backend and runs degraded.
func ResolveDataDir(candidates []string) (string, error) {
	var lastErr error
	for _, dir := range candidates {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Debugf("data dir candidate %s: cannot create: %v", dir, err)
			lastErr = err
			continue
		}
		probe := filepath.Join(dir, ".write-probe")
		if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
			log.Debugf("data dir candidate %s: not writable: %v", dir, err)
			lastErr = err
			continue
		}
		_ = os.Remove(probe)
		return dir, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no candidates given")
	}
	return "", fmt.Errorf("no writable data directory found: %w", lastErr)
}
