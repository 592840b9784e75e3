package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingPath(t *testing.T) {
	f, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, File{}, f)
}

func TestLoad_MissingFile(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, File{}, f)
}

func TestLoad_ParsesFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "go1090.toml")
	contents := `
log_level = "debug"
ctrlport_bind = ":30004"
frontend_path = "/srv/go1090/web"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", f.LogLevel)
	assert.Equal(t, ":30004", f.CtrlPortBind)
	assert.Equal(t, "/srv/go1090/web", f.FrontendPath)
}

func TestLoad_MalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("log_level = ["), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
