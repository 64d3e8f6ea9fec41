package artifact

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flutter-tools/fsd/internal/model"
)

func writeExecutable(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
}

func TestLocate_DefaultLayout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable-bit check is bypassed on windows; layout assertion below assumes unix paths")
	}
	sdkRoot := t.TempDir()
	binary := filepath.Join(sdkRoot, "bin", "utils", "dartaotruntime")
	writeExecutable(t, binary)
	snapshot := filepath.Join(sdkRoot, "bin", "frontend_server.snapshot")
	require.NoError(t, os.WriteFile(snapshot, []byte("snapshot"), 0o644))

	set, err := Locate(sdkRoot, Options{})
	require.NoError(t, err)
	assert.Equal(t, binary, set.Binary)
	assert.Equal(t, snapshot, set.Snapshot)
}

func TestLocate_MissingBinaryIsToolMissing(t *testing.T) {
	sdkRoot := t.TempDir()
	_, err := Locate(sdkRoot, Options{})
	assert.ErrorIs(t, err, model.ErrToolMissing)
}

func TestLocate_NonExecutableBinaryIsToolMissing(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("windows bypasses the executable-bit check")
	}
	sdkRoot := t.TempDir()
	binary := filepath.Join(sdkRoot, "bin", "utils", "dartaotruntime")
	require.NoError(t, os.MkdirAll(filepath.Dir(binary), 0o755))
	require.NoError(t, os.WriteFile(binary, []byte("not executable"), 0o644))

	_, err := Locate(sdkRoot, Options{})
	assert.ErrorIs(t, err, model.ErrToolMissing)
}

func TestLocate_MissingSnapshotIsToolMissing(t *testing.T) {
	sdkRoot := t.TempDir()
	binary := filepath.Join(sdkRoot, "bin", "utils", "dartaotruntime")
	writeExecutable(t, binary)

	_, err := Locate(sdkRoot, Options{})
	assert.ErrorIs(t, err, model.ErrToolMissing)
}

func TestLocate_OverridesWin(t *testing.T) {
	sdkRoot := t.TempDir()
	binary := filepath.Join(sdkRoot, "custom", "runtime")
	writeExecutable(t, binary)
	snapshot := filepath.Join(sdkRoot, "custom", "snapshot")
	require.NoError(t, os.WriteFile(snapshot, []byte("snapshot"), 0o644))

	set, err := Locate(sdkRoot, Options{BinaryOverride: binary, SnapshotOverride: snapshot})
	require.NoError(t, err)
	assert.Equal(t, binary, set.Binary)
	assert.Equal(t, snapshot, set.Snapshot)
}
