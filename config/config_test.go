package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	config := Default()
	if config.Server.Addr() != "0.0.0.0:8000" {
		t.Fatalf("unexpected addr %s", config.Server.Addr())
	}
	if !config.Server.Debug {
		t.Fatal("expected debug on by default")
	}
	if config.Model.Path != "iris_model.json" {
		t.Fatalf("unexpected model path %s", config.Model.Path)
	}
	if err := config.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	config, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Server.Port != 8000 && os.Getenv("IRIS_PORT") == "" {
		t.Fatalf("expected default port, got %d", config.Server.Port)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  port: 9090\n  debug: false\nmodel:\n  path: /tmp/model.json\nlog:\n  level: warn\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Setenv("IRIS_PORT", "9191")

	config, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Server.Port != 9191 {
		t.Fatalf("expected env port 9191, got %d", config.Server.Port)
	}
	if config.Server.Debug {
		t.Fatal("expected debug off from yaml")
	}
	if config.Model.Path != "/tmp/model.json" {
		t.Fatalf("unexpected model path %s", config.Model.Path)
	}
	if config.Model.Type != "random_forest" {
		t.Fatalf("expected model type default preserved, got %s", config.Model.Type)
	}
	if config.Log.Level != "warn" {
		t.Fatalf("unexpected log level %s", config.Log.Level)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [1, 2"), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"IRIS_HOST":       "127.0.0.1",
		"IRIS_DEBUG":      "false",
		"IRIS_MODEL_PATH": "models/iris.json",
		"IRIS_LOG_FILE":   "logs/iris.log",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	config := Default()
	if err := config.applyEnv(lookup); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Server.Host != "127.0.0.1" || config.Server.Debug {
		t.Fatalf("unexpected server config %+v", config.Server)
	}
	if config.Model.Path != "models/iris.json" || config.Log.File != "logs/iris.log" {
		t.Fatalf("unexpected overrides %+v %+v", config.Model, config.Log)
	}

	env["IRIS_PORT"] = "eighty"
	if err := config.applyEnv(lookup); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}

func TestValidate(t *testing.T) {
	config := Default()
	config.Server.Port = 70000
	if err := config.Validate(); err == nil {
		t.Fatal("expected error for out of range port")
	}
	config = Default()
	config.Model.Path = ""
	if err := config.Validate(); err == nil {
		t.Fatal("expected error for empty model path")
	}
}
