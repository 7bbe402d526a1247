package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handlebars.yaml")
	data := `
dispatch:
  respond_limit: 8
  interval_ms: 10
logging:
  level: debug
  json: true
metrics:
  enabled: true
  address: "127.0.0.1:9100"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Default()
	want.Dispatch.RespondLimit = 8
	want.Dispatch.IntervalMS = 10
	want.Logging.Level = "debug"
	want.Logging.JSON = true
	want.Metrics.Enabled = true
	want.Metrics.Address = "127.0.0.1:9100"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.Dispatch.Interval(); got != 10*time.Millisecond {
		t.Errorf("Interval() = %v", got)
	}
}

func TestSaveAndLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handlebars.json")
	cfg := Default()
	cfg.Tracing.Exporter = "stdout"
	cfg.Tracing.SampleRate = 0.25
	if err := SaveJSON(path, cfg); err != nil {
		t.Fatalf("SaveJSON() error = %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejects(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"unknown extension", "cfg.toml", "", "unsupported config format"},
		{"missing file", "absent.yaml", "", "failed to read YAML file"},
		{"negative limit", "neg.yaml", "dispatch:\n  respond_limit: -2\n", "limit cannot be negative"},
		{"bad exporter", "exp.yaml", "tracing:\n  exporter: kafka\n", "unsupported tracing exporter"},
		{"bad level", "lvl.json", `{"logging": {"level": "loud"}}`, "unknown log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if tt.content != "" {
				if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Dispatch.IntervalMS = 0
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "metrics"
	cfg.Tracing.SampleRate = 2

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil")
	}
	for _, want := range []string{"interval_ms", "metrics.path", "sample_rate"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error %q does not mention %s", err, want)
		}
	}
}

func TestLoadYAMLRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.yaml")
	if err := os.WriteFile(path, []byte("dispatch:\n  respond_limt: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() accepted an unknown key")
	}
}

func TestSaveYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yml")
	cfg := Default()
	cfg.Logging.File = "/var/log/handlebars.log"
	if err := SaveYAML(path, cfg); err != nil {
		t.Fatalf("SaveYAML() error = %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Logging.File != cfg.Logging.File {
		t.Errorf("Logging.File = %q", got.Logging.File)
	}
}
