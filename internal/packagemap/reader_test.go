package packagemap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_LegacyFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".packages")
	content := "# generated\napp:file:///app/lib/\nfoo:file:///pub-cache/foo/lib/\n\nbar:file:///pub-cache/bar/lib/\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	mappings, err := Read(path)
	require.NoError(t, err)
	require.Len(t, mappings, 3)
	assert.Equal(t, Mapping{Name: "app", PrefixURI: "file:///app/lib/"}, mappings[0])
	assert.Equal(t, Mapping{Name: "foo", PrefixURI: "file:///pub-cache/foo/lib/"}, mappings[1])
	assert.Equal(t, Mapping{Name: "bar", PrefixURI: "file:///pub-cache/bar/lib/"}, mappings[2])
}

func TestRead_PackageConfigJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "package_config.json")
	content := `{
		"configVersion": 2,
		"packages": [
			{"name": "app", "rootUri": "file:///app", "packageUri": "lib/"},
			{"name": "foo", "rootUri": "file:///pub-cache/foo", "packageUri": ""}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	mappings, err := Read(path)
	require.NoError(t, err)
	require.Len(t, mappings, 2)
	assert.Equal(t, Mapping{Name: "app", PrefixURI: "file:///app/lib/"}, mappings[0])
	assert.Equal(t, Mapping{Name: "foo", PrefixURI: "file:///pub-cache/foo/"}, mappings[1])
}

func TestRead_LegacySkipsCommentsAndBlankLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".packages")
	content := "# comment\n\n  \napp:file:///app/lib/\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	mappings, err := Read(path)
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "app", mappings[0].Name)
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.packages"))
	assert.Error(t, err)
}

func TestRead_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "package_config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Read(path)
	assert.Error(t, err)
}
