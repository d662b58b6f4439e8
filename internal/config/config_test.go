package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wesm/mailextract/internal/extract"
	"github.com/wesm/mailextract/internal/format/imap"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("MAILEXTRACT_HOME", tmpDir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if diff := cmp.Diff(extract.DefaultOptions(), cfg.Extract); diff != "" {
		t.Errorf("Extract (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(imap.DefaultSettings(), cfg.IMAP.Settings); diff != "" {
		t.Errorf("IMAP (-want +got):\n%s", diff)
	}
	if cfg.HomeDir != tmpDir {
		t.Errorf("HomeDir = %q, want %q", cfg.HomeDir, tmpDir)
	}
	if cfg.ConfigPath != filepath.Join(tmpDir, "config.toml") {
		t.Errorf("ConfigPath = %q", cfg.ConfigPath)
	}
	if lvl, _ := cfg.LogLevel(); lvl != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", lvl)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("MAILEXTRACT_HOME", tmpDir)
	writeConfig(t, tmpDir, `
[extract]
names_length = 40
extract_elements_list = true
extract_contacts = false
default_charset = "iso-8859-1"

[imap]
rate_limit_qps = 1.5
auth = "plain"
password_env = "MAILEXTRACT_TEST_PASSWORD"

[log]
level = "debug"

[output]
dir = "~/extractions"
`)
	t.Setenv("MAILEXTRACT_TEST_PASSWORD", "hunter2")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := extract.DefaultOptions()
	want.NamesLength = 40
	want.ExtractElementsList = true
	want.ExtractContacts = false
	want.DefaultCharset = "iso-8859-1"
	if diff := cmp.Diff(want, cfg.Extract); diff != "" {
		t.Errorf("Extract (-want +got):\n%s", diff)
	}

	s := cfg.IMAPSettings()
	if s.RateLimitQPS != 1.5 || s.Auth != imap.AuthPlain || s.Password != "hunter2" {
		t.Errorf("IMAPSettings = %+v", s)
	}
	if !s.STARTTLS || s.FetchBatch != 50 {
		t.Errorf("unset IMAP keys lost their defaults: %+v", s)
	}
	if lvl, _ := cfg.LogLevel(); lvl != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", lvl)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir: %v", err)
	}
	if cfg.Output.Dir != filepath.Join(home, "extractions") {
		t.Errorf("Output.Dir = %q", cfg.Output.Dir)
	}
}

func TestLoadExplicitPathNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.toml")
	if err == nil {
		t.Fatal("Load with explicit nonexistent path should return error")
	}
	if got := err.Error(); !strings.Contains(got, "config file not found") {
		t.Errorf("error = %q, want it to contain %q", got, "config file not found")
	}
}

func TestLoadExplicitPath(t *testing.T) {
	t.Setenv("MAILEXTRACT_HOME", t.TempDir())
	path := writeConfig(t, t.TempDir(), "[extract]\noutput_model_version = 1\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Extract.OutputModelVersion != extract.ModelV1 {
		t.Errorf("OutputModelVersion = %d, want 1", cfg.Extract.OutputModelVersion)
	}
	if cfg.ConfigPath != path {
		t.Errorf("ConfigPath = %q, want %q", cfg.ConfigPath, path)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"model version", "[extract]\noutput_model_version = 3\n", "output_model_version"},
		{"names length", "[extract]\nnames_length = 0\n", "names_length"},
		{"charset", "[extract]\ndefault_charset = \"klingon-8\"\n", "default_charset"},
		{"log level", "[log]\nlevel = \"loud\"\n", "unknown level"},
		{"type mismatch", "[extract]\nnames_length = \"long\"\n", "decode config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			t.Setenv("MAILEXTRACT_HOME", tmpDir)
			writeConfig(t, tmpDir, tt.content)

			_, err := Load("")
			if err == nil {
				t.Fatal("Load should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLoadBackslashErrorHint(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "invalid escape (backslash G)",
			// \G is not a valid TOML escape → "invalid escape" error
			content: "[output]\ndir = \"C:\\Games\\out\"\n",
		},
		{
			name: "unicode escape (backslash U)",
			// \U expects 8 hex digits → "hexadecimal digits" error
			content: "[output]\ndir = \"C:\\Users\\jane\\out\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			t.Setenv("MAILEXTRACT_HOME", tmpDir)
			writeConfig(t, tmpDir, tt.content)

			_, err := Load("")
			if err == nil {
				t.Fatal("Load should fail on TOML backslash error")
			}
			if !strings.Contains(err.Error(), "forward slashes") {
				t.Errorf("error should mention forward slashes, got: %s", err)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get user home dir: %v", err)
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"~", home},
		{"~/foo", filepath.Join(home, "foo")},
		{"~/", home},
		{"~user", "~user"},
		{"/abs/path", "/abs/path"},
		{"relative/path", "relative/path"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := expandPath(tt.input); got != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDefaultHomeExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir: %v", err)
	}
	t.Setenv("MAILEXTRACT_HOME", "~/custom")
	if got := DefaultHome(); got != filepath.Join(home, "custom") {
		t.Errorf("DefaultHome() = %q", got)
	}
}
