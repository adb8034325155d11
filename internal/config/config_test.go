package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/webview/internal/userdata"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestConfigDefaults(t *testing.T) {
	home := isolateHome(t)
	t.Setenv("USER", "tester")

	cfg := &Config{}
	assert.Equal(t, DefaultUserID, cfg.GetUserID())
	assert.Equal(t, "tester", cfg.GetUsername())
	assert.Equal(t, DefaultHostURL, cfg.GetHostURL())
	assert.Equal(t, DefaultListenAddr, cfg.GetListenAddr())
	assert.Equal(t, filepath.Join(home, ".webview", "data"), cfg.GetDataDir())
	assert.Equal(t, filepath.Join(home, ".webview", "webview.log"), cfg.GetLogFile())
	assert.Equal(t, DefaultLogLevel, cfg.GetLogLevel())
	assert.Empty(t, cfg.RemoteProfiles())
}

func TestConfigOverrideChain(t *testing.T) {
	home := isolateHome(t)
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "project", "subdir")
	require.NoError(t, os.MkdirAll(subDir, 0755))

	userConfig := `user_id = "t2_home"
log_level = "warn"`
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".webview"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".webview", "config.toml"), []byte(userConfig), 0644))

	parentConfig := `user_id = "t2_parent"
host_url = "ws://parent:1/bridge"

[[remote_users]]
user_id = "t2_parent"
username = "parent"`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "project", FileName), []byte(parentConfig), 0644))

	subConfig := `user_id = "t2_sub"
username = "sub"`
	require.NoError(t, os.WriteFile(filepath.Join(subDir, FileName), []byte(subConfig), 0644))

	cfg, err := LoadFrom(subDir)
	require.NoError(t, err)

	// Local overrides parent and home
	assert.Equal(t, "t2_sub", cfg.GetUserID())
	assert.Equal(t, "sub", cfg.GetUsername())
	// Inherited from parent
	assert.Equal(t, "ws://parent:1/bridge", cfg.GetHostURL())
	assert.Equal(t, []userdata.RemoteProfile{{Username: "parent", UserID: "t2_parent"}}, cfg.RemoteProfiles())
	// Inherited from home
	assert.Equal(t, "warn", cfg.GetLogLevel())

	require.Len(t, cfg.Sources, 3)
	assert.Equal(t, filepath.Join(subDir, FileName), cfg.Sources[2])

	assert.Equal(t, "t2_sub", cfg.Session().UserID)
	assert.Contains(t, cfg.DisplaySettings(), `user_id     = "t2_sub"`)
}

func TestConfigInvalidTOML(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`user_id = `), 0644))

	_, err := LoadFrom(dir)
	assert.Error(t, err)
}

func TestConfigSaveLoad(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "nested", FileName)

	userID := "t2_saved"
	level := "debug"
	cfg := &Config{
		UserID:      &userID,
		LogLevel:    &level,
		RemoteUsers: []RemoteUser{{UserID: "t2_saved", Username: "saved"}},
	}
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "t2_saved", loaded.GetUserID())
	assert.Equal(t, "debug", loaded.GetLogLevel())
	assert.Equal(t, cfg.RemoteUsers, loaded.RemoteUsers)
	assert.Nil(t, loaded.HostURL)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
