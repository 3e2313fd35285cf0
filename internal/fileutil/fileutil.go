package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteThenRename writes data to dir/tempName and renames it to dir/finalName,
// so a folder watcher filtering on the final extension never sees a partial
// file. The temp file is removed when any step fails. It returns the final path.
func WriteThenRename(dir, tempName, finalName string, data []byte) (string, error) {
	return WriteThenRenameMode(dir, tempName, finalName, data, 0o644)
}

// WriteThenRenameMode is WriteThenRename with an explicit file mode.
func WriteThenRenameMode(dir, tempName, finalName string, data []byte, mode os.FileMode) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	tempPath := filepath.Join(dir, tempName)
	finalPath := filepath.Join(dir, finalName)

	out, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return "", err
	}
	if _, err := out.Write(data); err != nil {
		_ = out.Close()
		_ = os.Remove(tempPath)
		return "", err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(tempPath)
		return "", err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tempPath)
		return "", err
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("rename %s: %w", tempName, err)
	}
	return finalPath, nil
}

// WriteFile writes data straight to dir/name, creating dir when missing.
func WriteFile(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
