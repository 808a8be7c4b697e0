package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultDeployConfig(t *testing.T) {
	cfg := DefaultDeployConfig()

	if cfg.BuildCommand != "make" {
		t.Errorf("expected default build command 'make', got %q", cfg.BuildCommand)
	}
	if cfg.AdapterPort != 5555 {
		t.Errorf("expected default adapter port 5555, got %d", cfg.AdapterPort)
	}
	if cfg.SourceDir != "." {
		t.Errorf("expected default source dir '.', got %q", cfg.SourceDir)
	}
	if len(cfg.SyncExcludes) == 0 {
		t.Error("expected default sync excludes")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadDeployConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadDeployConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing config file should not error: %v", err)
	}
	if cfg.BuildCommand != "make" {
		t.Errorf("expected defaults, got build command %q", cfg.BuildCommand)
	}
}

func TestLoadDeployConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cortexdeploy.yaml")
	content := "build_command: make -j4\nadapter_port: 6001\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadDeployConfig(path)
	if err != nil {
		t.Fatalf("LoadDeployConfig() error: %v", err)
	}
	if cfg.BuildCommand != "make -j4" {
		t.Errorf("expected overridden build command, got %q", cfg.BuildCommand)
	}
	if cfg.AdapterPort != 6001 {
		t.Errorf("expected overridden port 6001, got %d", cfg.AdapterPort)
	}
	// Untouched fields keep their defaults
	if cfg.AdapterBinary == "" {
		t.Error("expected default adapter binary to survive partial config")
	}
}

func TestLoadDeployConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cortexdeploy.yaml")
	if err := os.WriteFile(path, []byte("build_command: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDeployConfig(path); err == nil {
		t.Error("expected parse error for invalid YAML")
	}
}

func TestValidate_BadPort(t *testing.T) {
	cfg := DefaultDeployConfig()
	cfg.AdapterPort = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for port 0")
	}
	cfg.AdapterPort = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for port 70000")
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("CORTEX_DEVICE", "nvidia@192.168.1.50")
	t.Setenv("CORTEX_SKIP_HOST_KEY_CHECK", "true")

	env, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv() error: %v", err)
	}
	if env.Device != "nvidia@192.168.1.50" {
		t.Errorf("expected device from env, got %q", env.Device)
	}
	if !env.SkipHostKeyCheck {
		t.Error("expected SkipHostKeyCheck true")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultDeployConfig()
	cfg.ApplyEnv(&Env{SSHKey: "keydata", KnownHosts: "hosts", SkipHostKeyCheck: true})

	if cfg.SSHKeyData != "keydata" || cfg.KnownHostsData != "hosts" || !cfg.SkipHostKeyCheck {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}
