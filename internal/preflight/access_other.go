//go:build !unix

package preflight

import "os"

// checkAccess probes write access by creating and removing a temp file.
func checkAccess(path string) error {
	f, err := os.CreateTemp(path, ".restronaut-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
