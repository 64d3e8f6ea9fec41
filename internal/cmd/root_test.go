package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execRoot(t *testing.T, args ...string) (stdout string, err error) {
	t.Helper()
	c := NewRootCmd()
	buf := new(bytes.Buffer)
	c.SetOut(buf)
	c.SetErr(buf)
	c.SetArgs(args)
	err = c.Execute()
	return buf.String(), err
}

func TestHelp(t *testing.T) {
	out, err := execRoot(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "fsd")
}

func TestHelpListsSubcommands(t *testing.T) {
	out, err := execRoot(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "compile")
	assert.Contains(t, out, "resident")
	assert.Contains(t, out, "config")
}

func TestUnknownSubcommandErrors(t *testing.T) {
	_, err := execRoot(t, "nonexistent")
	assert.Error(t, err)
}

func TestConfigGetUnknownKeyErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := execRoot(t, "--config", dir, "config", "get", "nonexistent_key")
	assert.Error(t, err)
}

func TestConfigSetThenGetRoundtrip(t *testing.T) {
	dir := t.TempDir()
	_, err := execRoot(t, "--config", dir, "config", "set", "sdk_root", "/sdk")
	require.NoError(t, err)

	out, err := execRoot(t, "--config", dir, "config", "get", "sdk_root")
	require.NoError(t, err)
	assert.Contains(t, out, "/sdk")
}

func TestCompileMissingSDKRootErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := execRoot(t, "--config", dir, "compile", "/app/lib/main.dart", "--output", "/out.dill")
	assert.Error(t, err)
}
