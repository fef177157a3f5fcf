package filesystem

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SafePath joins filename onto baseDir and rejects any result that would
// escape baseDir. Backup files are resolved exclusively through this
// helper so a hostile backup ID cannot reach outside the backup
// directory.
func SafePath(baseDir, filename string) (string, error) {
	clean := filepath.Clean(filename)
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("invalid filename %q: path traversal not allowed", filename)
	}

	full := filepath.Join(baseDir, clean)

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("resolve base directory: %w", err)
	}
	absFull, err := filepath.Abs(full)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if absFull != absBase && !strings.HasPrefix(absFull, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes base directory", filename)
	}

	return full, nil
}

// ValidateFilePath rejects paths containing traversal segments.
func ValidateFilePath(filePath string) error {
	if strings.Contains(filepath.Clean(filePath), "..") {
		return fmt.Errorf("invalid file path %q: path traversal not allowed", filePath)
	}
	return nil
}
