package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Dataset       struct {
		Speakers int    `mapstructure:"speakers"`
		Grouping string `mapstructure:"grouping"`
	} `mapstructure:"dataset"`
}

func (c *testConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Dataset.Speakers == 0 {
		c.Dataset.Speakers = 4
	}
}

func (c *testConfig) Validate() error {
	return c.ServiceConfig.Validate()
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "amiprep"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.ServiceName != "amiprep" {
			t.Errorf("expected service name to propagate to logging, got %q", cfg.Logging.ServiceName)
		}
	})

	t.Run("production environment keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "amiprep", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr bool
		errMsg  string
	}{
		{"valid development", ServiceConfig{Name: "svc", Environment: "development"}, false, ""},
		{"valid production", ServiceConfig{Name: "svc", Environment: "production"}, false, ""},
		{"missing name", ServiceConfig{Environment: "production"}, true, "name"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "invalid"}, true, "environment"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), tc.errMsg) {
					t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadConfigWithYAML(t *testing.T) {
	path := writeConfig(t, `
name: amiprep
environment: staging
dataset:
  speakers: 3
  grouping: meeting
`)

	var cfg testConfig
	if err := LoadConfig("amiprep", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "amiprep" {
		t.Errorf("expected name 'amiprep', got %q", cfg.Name)
	}
	if cfg.Environment != "staging" {
		t.Errorf("expected environment 'staging', got %q", cfg.Environment)
	}
	if cfg.Dataset.Speakers != 3 || cfg.Dataset.Grouping != "meeting" {
		t.Errorf("unexpected dataset section %+v", cfg.Dataset)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, `
name: amiprep
dataset:
  grouping: sorted
`)
	t.Setenv("DATASET_GROUPING", "meeting")

	var cfg testConfig
	if err := LoadConfig("amiprep", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Dataset.Grouping != "meeting" {
		t.Errorf("expected env override 'meeting', got %q", cfg.Dataset.Grouping)
	}
}

func TestLoadAppliesDefaultsAndValidates(t *testing.T) {
	path := writeConfig(t, "name: amiprep\n")

	var cfg testConfig
	if err := Load("amiprep", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Dataset.Speakers != 4 {
		t.Errorf("expected default speakers=4, got %d", cfg.Dataset.Speakers)
	}

	bad := writeConfig(t, "name: amiprep\nenvironment: moon\n")
	var badCfg testConfig
	if err := Load("amiprep", &badCfg, WithConfigFile(bad)); err == nil {
		t.Fatal("expected validation error for unknown environment")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testConfig
	// With no config file found, LoadConfig should still succeed (just empty config)
	err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool   { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }
func (m *mockFS) Getwd() (string, error)    { return "/mock", nil }

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"cmd/amiprep/config.yml": true,
		"../.env.amiprep":        true,
		".env":                   true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("amiprep", LoaderConfig{})
	if files.ConfigFile != "cmd/amiprep/config.yml" {
		t.Errorf("expected config file at cmd/amiprep/config.yml, got %q", files.ConfigFile)
	}
	// A service-specific env file wins over a closer plain .env.
	if files.EnvFile != "../.env.amiprep" {
		t.Errorf("expected env file ../.env.amiprep, got %q", files.EnvFile)
	}
}

func TestResolverPrefersExplicitFiles(t *testing.T) {
	resolver := &Resolver{FileSystem: &mockFS{files: map[string]bool{"./config.yml": true}}}
	files := resolver.ResolveFiles("amiprep", LoaderConfig{ConfigFile: "/etc/amiprep.yml", EnvFile: "/etc/amiprep.env"})
	if files.ConfigFile != "/etc/amiprep.yml" || files.EnvFile != "/etc/amiprep.env" {
		t.Errorf("explicit paths should win, got %+v", files)
	}
}

func TestSearchDirsOrder(t *testing.T) {
	dirs := searchDirs("amiprep")
	if dirs[0] != "." || dirs[1] != "./cmd/amiprep" {
		t.Errorf("unexpected leading search dirs %v", dirs[:2])
	}
	if len(dirs) != 9 {
		t.Errorf("expected 9 search dirs, got %d", len(dirs))
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	variants := generateEnvKeyVariants("DATASET_SPLIT_DEV_RATIO")
	want := map[string]bool{
		"dataset_split_dev_ratio": false,
		"dataset.split.dev_ratio": false,
		"dataset.split_dev_ratio": false,
	}
	for _, v := range variants {
		if _, ok := want[v]; ok {
			want[v] = true
		}
	}
	for k, found := range want {
		if !found {
			t.Errorf("expected variant %q in %v", k, variants)
		}
	}
}
