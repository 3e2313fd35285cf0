package workflow

import (
	"errors"
	"io/fs"
	"os"

	"restronaut/internal/services"
)

var errGone = errors.New("file no longer exists")

// fileSystem is the slice of os the processor touches.
type fileSystem interface {
	ReadFile(path string) ([]byte, error)
	Stat(path string) (fs.FileInfo, error)
	Remove(path string) error
}

type osFileSystem struct{}

func (osFileSystem) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }
func (osFileSystem) Stat(path string) (fs.FileInfo, error) { return os.Stat(path) }
func (osFileSystem) Remove(path string) error              { return os.Remove(path) }

// readDropFile reads path. A missing file yields errGone and a permission
// failure is final. Any other read failure is transient since the producer
// may still hold the file.
func readDropFile(fsys fileSystem, path string) ([]byte, error) {
	data, err := fsys.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errGone
	}
	if errors.Is(err, fs.ErrPermission) {
		return nil, services.Wrap(services.ErrPermission, "workflow", "read", "file not readable", err)
	}
	return nil, services.Wrap(services.ErrTransientIO, "workflow", "read", "file not readable yet", err)
}

// stillWriting reports whether the file on disk no longer matches what was
// read, which means the producer was mid-write when the read happened.
func stillWriting(fsys fileSystem, path string, data []byte) bool {
	if len(data) == 0 {
		return true
	}
	info, err := fsys.Stat(path)
	if err != nil {
		return false
	}
	return info.Size() != int64(len(data))
}
