package ifccheck

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const lockName = ".ifccheck.lock"

// runLock is an exclusive lock file in the output directory. It keeps two
// processes from wiping and rebuilding the same outputs at once.
type runLock struct {
	path string
}

func acquireLock(dir string) (*runLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating output directory: %v", ErrOutputFailed, err)
	}
	path := filepath.Join(dir, lockName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: lock %s exists (remove it if no run is active)", ErrRunInProgress, path)
		}
		return nil, fmt.Errorf("%w: creating lock: %v", ErrOutputFailed, err)
	}
	f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	f.Close()
	return &runLock{path: path}, nil
}

func (l *runLock) release() error {
	return os.Remove(l.path)
}
