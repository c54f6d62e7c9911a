package transfer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxRenameAttempts bounds the collision-safe rename retry loop (§4.6).
const maxRenameAttempts = 10

var ErrRenameAttemptsExhausted = errors.New("transfer: exhausted rename attempts")

// CollisionSafeRename renames tempPath to target, or to a
// timestamp-suffixed variant if target already exists. It never
// overwrites an existing file (§8 invariant 3): on collision it
// appends "_(<YYYYMMDD_HHMMSS>)" before the extension, re-deriving the
// timestamp on each retry; retries after the first also append the
// attempt number ("_(<YYYYMMDD_HHMMSS>_<n>)") so two collisions in the
// same second still converge. The temp file is left in place if every
// attempt fails.
func CollisionSafeRename(tempPath, target string) (string, error) {
	if _, err := os.Stat(target); os.IsNotExist(err) {
		if err := os.Rename(tempPath, target); err != nil {
			return "", fmt.Errorf("rename %s -> %s: %w", tempPath, target, err)
		}
		return target, nil
	}

	dir := filepath.Dir(target)
	base := filepath.Base(target)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for attempt := 0; attempt < maxRenameAttempts; attempt++ {
		suffix := time.Now().Format("20060102_150405")
		if attempt > 0 {
			// Collided within the same timestamp second; disambiguate
			// further instead of blocking the network task on a sleep.
			suffix = fmt.Sprintf("%s_%d", suffix, attempt)
		}

		candidate := filepath.Join(dir, fmt.Sprintf("%s_(%s)%s", stem, suffix, ext))

		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			if err := os.Rename(tempPath, candidate); err != nil {
				return "", fmt.Errorf("rename %s -> %s: %w", tempPath, candidate, err)
			}
			return candidate, nil
		}
	}

	return "", ErrRenameAttemptsExhausted
}
