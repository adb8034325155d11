package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/standardbeagle/webview/internal/bridge"
	"github.com/standardbeagle/webview/internal/userdata"
)

const (
	// FileName is the per-directory config file.
	FileName = ".webview.toml"

	DefaultUserID     = "t2_local"
	DefaultListenAddr = "127.0.0.1:7788"
	DefaultHostURL    = "ws://" + DefaultListenAddr + "/bridge"
	DefaultLogLevel   = "info"
)

type RemoteUser struct {
	UserID   string `toml:"user_id"`
	Username string `toml:"username"`
}

// Config holds settings from the TOML override chain. Unset fields fall back
// to the defaults returned by the getters.
type Config struct {
	UserID      *string      `toml:"user_id,omitempty"`
	Username    *string      `toml:"username,omitempty"`
	HostURL     *string      `toml:"host_url,omitempty"`
	ListenAddr  *string      `toml:"listen_addr,omitempty"`
	DataDir     *string      `toml:"data_dir,omitempty"`
	LogFile     *string      `toml:"log_file,omitempty"`
	LogLevel    *string      `toml:"log_level,omitempty"`
	RemoteUsers []RemoteUser `toml:"remote_users,omitempty"`

	// Sources lists the files that were merged, lowest priority first.
	Sources []string `toml:"-"`
}

// BaseDir returns ~/.webview, or .webview in the working directory when the
// home directory is unknown.
func BaseDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".webview"
	}
	return filepath.Join(homeDir, ".webview")
}

// UserConfigPath returns the path of the per-user config file.
func UserConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// Load merges the user config and every .webview.toml from the filesystem
// root down to the working directory. Closer files win.
func Load() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return LoadFrom(wd)
}

// LoadFrom is Load with an explicit starting directory.
func LoadFrom(dir string) (*Config, error) {
	cfg := &Config{}

	paths := []string{UserConfigPath()}
	paths = append(paths, chain(dir)...)

	for _, path := range paths {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadFile reads a single config file, ignoring the override chain.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("config file %s not found", path)
	}
	return cfg, nil
}

// chain returns candidate config files ordered from root to dir.
func chain(dir string) []string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil
	}

	var dirs []string
	for {
		dirs = append(dirs, abs)
		parent := filepath.Dir(abs)
		if parent == abs {
			break
		}
		abs = parent
	}

	paths := make([]string, 0, len(dirs))
	for i := len(dirs) - 1; i >= 0; i-- {
		paths = append(paths, filepath.Join(dirs[i], FileName))
	}
	return paths
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Decoding into the existing value only overwrites keys present in the file.
	if _, err := toml.Decode(string(data), c); err != nil {
		return fmt.Errorf("failed to parse TOML config %s: %w", path, err)
	}
	for _, seen := range c.Sources {
		if seen == path {
			return nil
		}
	}
	c.Sources = append(c.Sources, path)
	return nil
}

// Save writes the config as TOML to path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

func (c *Config) GetUserID() string {
	if c.UserID != nil && *c.UserID != "" {
		return *c.UserID
	}
	return DefaultUserID
}

func (c *Config) GetUsername() string {
	if c.Username != nil {
		return *c.Username
	}
	return os.Getenv("USER")
}

func (c *Config) GetHostURL() string {
	if c.HostURL != nil && *c.HostURL != "" {
		return *c.HostURL
	}
	return DefaultHostURL
}

func (c *Config) GetListenAddr() string {
	if c.ListenAddr != nil && *c.ListenAddr != "" {
		return *c.ListenAddr
	}
	return DefaultListenAddr
}

func (c *Config) GetDataDir() string {
	if c.DataDir != nil && *c.DataDir != "" {
		return *c.DataDir
	}
	return filepath.Join(BaseDir(), "data")
}

func (c *Config) GetLogFile() string {
	if c.LogFile != nil {
		return *c.LogFile
	}
	return filepath.Join(BaseDir(), "webview.log")
}

func (c *Config) GetLogLevel() string {
	if c.LogLevel != nil && *c.LogLevel != "" {
		return *c.LogLevel
	}
	return DefaultLogLevel
}

// Session returns the bridge session for the configured user.
func (c *Config) Session() bridge.Session {
	return bridge.Session{UserID: c.GetUserID(), Username: c.GetUsername()}
}

// RemoteProfiles returns the remote identities that seed the host directory.
func (c *Config) RemoteProfiles() []userdata.RemoteProfile {
	profiles := make([]userdata.RemoteProfile, 0, len(c.RemoteUsers))
	for _, u := range c.RemoteUsers {
		profiles = append(profiles, userdata.RemoteProfile{Username: u.Username, UserID: u.UserID})
	}
	return profiles
}

// DisplaySettings renders the effective settings and the files they came from.
func (c *Config) DisplaySettings() string {
	var b strings.Builder
	b.WriteString("Configuration\n")
	fmt.Fprintf(&b, "  user_id     = %q\n", c.GetUserID())
	fmt.Fprintf(&b, "  username    = %q\n", c.GetUsername())
	fmt.Fprintf(&b, "  host_url    = %q\n", c.GetHostURL())
	fmt.Fprintf(&b, "  listen_addr = %q\n", c.GetListenAddr())
	fmt.Fprintf(&b, "  data_dir    = %q\n", c.GetDataDir())
	fmt.Fprintf(&b, "  log_file    = %q\n", c.GetLogFile())
	fmt.Fprintf(&b, "  log_level   = %q\n", c.GetLogLevel())
	fmt.Fprintf(&b, "  remote_users: %d\n", len(c.RemoteUsers))

	b.WriteString("\nSources\n")
	if len(c.Sources) == 0 {
		b.WriteString("  (defaults only)\n")
	}
	for _, s := range c.Sources {
		fmt.Fprintf(&b, "  %s\n", s)
	}
	return b.String()
}
