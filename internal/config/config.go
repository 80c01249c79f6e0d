package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for sitereg.
type Config struct {
	LogDir       string             `toml:"log_dir"`
	Database     DatabaseConfig     `toml:"database"`
	Encryption   EncryptionConfig   `toml:"encryption"`
	Orchestrator OrchestratorConfig `toml:"orchestrator"`
	Platforms    []PlatformConfig   `toml:"platforms"`
}

// DatabaseConfig represents configuration for the registry database.
// This uses a tagged union pattern - the Type field determines which
// other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// EncryptionConfig holds paths to the age key pair used to encrypt
// deletion snapshot payloads. An empty Type disables encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "", "age" or "test"
	PublicKeyPath  string `toml:"public_key_path,omitempty"`
	PrivateKeyPath string `toml:"private_key_path,omitempty"`
}

// OrchestratorConfig bounds the per-platform fan-out.
type OrchestratorConfig struct {
	PlatformTimeoutSeconds int `toml:"platform_timeout_seconds"` // per-adapter call timeout, default 30
	RetryAttempts          int `toml:"retry_attempts"`           // bounded retry per platform call, default 3
}

// PlatformConfig represents configuration for one platform adapter.
// This uses a tagged union pattern - the Type field determines which
// other fields are relevant.
type PlatformConfig struct {
	Type string `toml:"type"` // "github", "deploy", "cms", "bucket", or "memory"

	// Credential resolution: a literal token, or the name of an
	// environment variable read at call time. TokenEnv wins.
	Token    string `toml:"token,omitempty"`
	TokenEnv string `toml:"token_env,omitempty"`

	APIBaseURL        string `toml:"api_base_url,omitempty"`
	RequestsPerSecond int    `toml:"requests_per_second,omitempty"` // outbound rate limit, default 5

	// GitHub-specific fields (only used when Type == "github")
	Org string `toml:"org,omitempty"`

	// Deploy-host-specific fields (only used when Type == "deploy")
	TeamID string `toml:"team_id,omitempty"`

	// Bucket-specific fields (only used when Type == "bucket")
	Backend         string `toml:"backend,omitempty"` // "s3", "gcs", or "memory"
	Bucket          string `toml:"bucket,omitempty"`
	Region          string `toml:"region,omitempty"`           // s3 only
	CredentialsFile string `toml:"credentials_file,omitempty"` // gcs only
	StaleAfterDays  int    `toml:"stale_after_days,omitempty"` // backup recency threshold, default 35

	// Memory-specific fields (only used when Type == "memory")
	Platform string `toml:"platform,omitempty"` // which platform slot the stub fills
}

// NewConfig creates a new Config with the provided base directory and
// sensible defaults.
func NewConfig(baseDir string) *Config {
	return &Config{
		LogDir: filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
		Orchestrator: OrchestratorConfig{
			PlatformTimeoutSeconds: 30,
			RetryAttempts:          3,
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the
// provided Config. Fails if a config file already exists.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
