// Package artifact resolves the compiler runtime binary and its frontend
// snapshot from an SDK root, grounded on the reference CLI's
// FindVenvPython/java.Detect pattern of resolving a versioned tool path and
// failing with a descriptive error if it is not runnable.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/flutter-tools/fsd/internal/model"
)

// Set is the resolved (binary, snapshot) pair BatchDriver/ResidentSession
// pass to the spawner.
type Set struct {
	Binary   string
	Snapshot string
}

// Options overrides the default SDK-root-relative layout, e.g. for tests or
// non-standard SDK installs.
type Options struct {
	BinaryOverride   string
	SnapshotOverride string
}

// Locate resolves the compiler runtime binary and snapshot under sdkRoot.
// Returns model.ErrToolMissing if the binary is not a runnable regular file.
func Locate(sdkRoot string, opts Options) (Set, error) {
	binary := opts.BinaryOverride
	if binary == "" {
		binary = defaultRuntimeBinary(sdkRoot)
	}
	snapshot := opts.SnapshotOverride
	if snapshot == "" {
		snapshot = filepath.Join(sdkRoot, "bin", "frontend_server.snapshot")
	}

	if !isRunnable(binary) {
		return Set{}, fmt.Errorf("%w: %s", model.ErrToolMissing, binary)
	}
	if _, err := os.Stat(snapshot); err != nil {
		return Set{}, fmt.Errorf("%w: snapshot %s: %v", model.ErrToolMissing, snapshot, err)
	}

	return Set{Binary: binary, Snapshot: snapshot}, nil
}

func defaultRuntimeBinary(sdkRoot string) string {
	name := "dartaotruntime"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(sdkRoot, "bin", "utils", name)
}

func isRunnable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0o111 != 0
}
