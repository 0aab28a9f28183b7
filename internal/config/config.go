// Package config provides TOML configuration file loading and parsing for stagehand.
// The configuration file lives at ~/.stagehand/config.toml by default, but can be
// overridden with the --config flag. CLI flags always take precedence over file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the configuration file structure.
// Field names use Go camelCase internally but map to snake_case in TOML files
// via struct tags. Zero values mean "use the default".
type Config struct {
	// Port is the TCP port the remote listener serves HTTP and WebSocket on.
	// Default: 3456
	Port int `toml:"port"`

	// AutoStartRemote starts the remote listener as soon as the host is up.
	// Default: false
	AutoStartRemote bool `toml:"auto_start_remote"`

	// MdnsEnabled advertises the remote page on the local network via mDNS.
	// Default: false
	MdnsEnabled bool `toml:"mdns_enabled"`

	// MdnsName is the instance name used in the mDNS advertisement.
	// Default: the machine hostname
	MdnsName string `toml:"mdns_name"`

	// LibraryPath is the SQLite database holding songs, scripture and the schedule.
	// Default: ~/.stagehand/library.db
	LibraryPath string `toml:"library_path"`

	// ControlSocket is the Unix socket used by 'stagehand remote ...' commands.
	// Default: ~/.stagehand/control.sock
	ControlSocket string `toml:"control_socket"`

	// LogLevel controls logging verbosity: debug, info, warn, error.
	// Default: info
	LogLevel string `toml:"log_level"`

	// LogPretty switches to human-readable console logs.
	// Default: false
	LogPretty bool `toml:"log_pretty"`

	// QR prints a QR code of the remote URL once the listener is up.
	// Default: false
	QR bool `toml:"qr"`

	// RemoteInProcess runs the listener inside the host process instead of a
	// child process. Useful when the binary cannot re-exec itself.
	// Default: false
	RemoteInProcess bool `toml:"remote_inprocess"`

	// KeepAwake stops the machine from idling into sleep while output is live.
	// Default: false
	KeepAwake bool `toml:"keep_awake"`

	// ClientRateLimit is the sustained number of messages per second accepted
	// from one remote. Default: 20
	ClientRateLimit float64 `toml:"client_rate_limit"`

	// ClientRateBurst is the burst size for ClientRateLimit. Default: 40
	ClientRateBurst int `toml:"client_rate_burst"`
}

// Validate checks the configuration for invalid values.
// Zero values are valid and indicate "use default".
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.ClientRateLimit < 0 {
		return fmt.Errorf("client_rate_limit must be positive, got %v", c.ClientRateLimit)
	}
	if c.ClientRateBurst < 0 {
		return fmt.Errorf("client_rate_burst must be positive, got %d", c.ClientRateBurst)
	}
	return nil
}

// ApplyDefaults fills every zero-valued field with its default.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.LibraryPath == "" {
		if p, err := DefaultLibraryPath(); err == nil {
			c.LibraryPath = p
		}
	}
	if c.ControlSocket == "" {
		if p, err := DefaultControlSocketPath(); err == nil {
			c.ControlSocket = p
		}
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.ClientRateLimit == 0 {
		c.ClientRateLimit = DefaultClientRateLimit
	}
	if c.ClientRateBurst == 0 {
		c.ClientRateBurst = DefaultClientRateBurst
	}
	if c.MdnsName == "" {
		if host, err := os.Hostname(); err == nil {
			c.MdnsName = host
		}
	}
}

// Dir returns the stagehand state directory: ~/.stagehand.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".stagehand"), nil
}

// DefaultConfigPath returns the default config file location: ~/.stagehand/config.toml.
// Returns an error only if the user's home directory cannot be determined.
func DefaultConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DefaultControlSocketPath returns ~/.stagehand/control.sock.
func DefaultControlSocketPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "control.sock"), nil
}

// DefaultLibraryPath returns ~/.stagehand/library.db.
func DefaultLibraryPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "library.db"), nil
}

// WriteDefault creates a commented config file at the given path.
//
// Behavior:
//   - If the file already exists, returns without error (does not overwrite).
//   - Creates the parent directory if it doesn't exist.
//   - Returns an error if the file cannot be written.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content := fmt.Sprintf(`# Stagehand configuration

# Port remotes connect to (http://<this machine>:<port>/)
port = %d

# Start the remote listener together with the host
auto_start_remote = false

# Advertise the remote page on the local network
mdns_enabled = false

# Keep the display awake while something is live
keep_awake = false

log_level = %q
`, DefaultPort, DefaultLogLevel)

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load reads a TOML config file from the given path and returns a Config.
//
// Behavior:
//   - If path is empty, attempts to load from the default location (~/.stagehand/config.toml).
//     Returns an empty Config without error if the default file doesn't exist.
//   - If path is specified, returns an error if the file doesn't exist.
//   - Returns an error if the file exists but cannot be parsed or fails validation.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return cfg, nil
		}
		if _, err := os.Stat(defaultPath); os.IsNotExist(err) {
			return cfg, nil
		}
		path = defaultPath
	} else {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}
