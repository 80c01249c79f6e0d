package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		LogDir: "/home/user/.local/share/sitereg/log",
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: "/home/user/.local/share/sitereg/data",
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  "/home/user/.local/share/sitereg/keys/sitereg.pub",
			PrivateKeyPath: "/home/user/.local/share/sitereg/keys/sitereg.key",
		},
		Orchestrator: OrchestratorConfig{
			PlatformTimeoutSeconds: 45,
			RetryAttempts:          2,
		},
		Platforms: []PlatformConfig{
			{Type: "github", TokenEnv: "GITHUB_TOKEN", Org: "sites-org"},
			{Type: "deploy", Token: "tok-123", APIBaseURL: "https://api.deploy.example.com", TeamID: "team_1"},
			{Type: "bucket", Backend: "s3", Bucket: "site-backups", Region: "us-east-1", StaleAfterDays: 40},
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want %q", got.Database.Type, "sqlite")
	}
	if got.Encryption.PublicKeyPath != original.Encryption.PublicKeyPath {
		t.Errorf("Encryption.PublicKeyPath = %q, want %q", got.Encryption.PublicKeyPath, original.Encryption.PublicKeyPath)
	}
	if got.Orchestrator.PlatformTimeoutSeconds != 45 {
		t.Errorf("Orchestrator.PlatformTimeoutSeconds = %d, want 45", got.Orchestrator.PlatformTimeoutSeconds)
	}
	if len(got.Platforms) != 3 {
		t.Fatalf("len(Platforms) = %d, want 3", len(got.Platforms))
	}
	if got.Platforms[0].Type != "github" || got.Platforms[0].TokenEnv != "GITHUB_TOKEN" {
		t.Errorf("Platforms[0] = %+v", got.Platforms[0])
	}
	if got.Platforms[1].APIBaseURL != "https://api.deploy.example.com" {
		t.Errorf("Platforms[1].APIBaseURL = %q", got.Platforms[1].APIBaseURL)
	}
	if got.Platforms[2].Backend != "s3" || got.Platforms[2].StaleAfterDays != 40 {
		t.Errorf("Platforms[2] = %+v", got.Platforms[2])
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/sitereg")

	if cfg.LogDir != "/data/sitereg/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/sitereg/log")
	}
	if cfg.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want %q", cfg.Database.Type, "sqlite")
	}
	if cfg.Database.DataDir != "/data/sitereg/data" {
		t.Errorf("Database.DataDir = %q, want %q", cfg.Database.DataDir, "/data/sitereg/data")
	}
	if cfg.Orchestrator.PlatformTimeoutSeconds != 30 {
		t.Errorf("Orchestrator.PlatformTimeoutSeconds = %d, want 30", cfg.Orchestrator.PlatformTimeoutSeconds)
	}
	if cfg.Orchestrator.RetryAttempts != 3 {
		t.Errorf("Orchestrator.RetryAttempts = %d, want 3", cfg.Orchestrator.RetryAttempts)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "sitereg.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "sitereg.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "sitereg.toml")
		cfg := NewConfig(dir)
		cfg.Database = DatabaseConfig{Type: "memory"}
		cfg.Platforms = []PlatformConfig{{Type: "memory", Platform: "github"}}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
		if len(got.Platforms) != 1 || got.Platforms[0].Platform != "github" {
			t.Errorf("Platforms = %+v", got.Platforms)
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/sitereg.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
