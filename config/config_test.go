package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	s, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default document to be created: %v", err)
	}
	if got := s.GetString(KeyHotkey, ""); got != "ctrl+alt+space" {
		t.Errorf("default hotkey = %q, want ctrl+alt+space", got)
	}
	if !s.GetBool(KeyAutoStart, false) {
		t.Error("default auto_start should be true")
	}
	if got := s.GetInt(KeyClipboardDelayMS, 0); got != 200 {
		t.Errorf("default clipboard_delay_ms = %d, want 200", got)
	}
}

func TestSetPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if err := s.Set(KeyModel, "test-model"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(KeyFirstRun, false); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reloaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := reloaded.GetString(KeyModel, ""); got != "test-model" {
		t.Errorf("model after reload = %q, want test-model", got)
	}
	if reloaded.GetBool(KeyFirstRun, true) {
		t.Error("first_run should persist as false")
	}
}

func TestUpdateAndReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	err = s.Update(map[string]any{
		KeyHotkey: "ctrl+shift+g",
		KeyTheme:  "dark",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := s.GetString(KeyHotkey, ""); got != "ctrl+shift+g" {
		t.Errorf("hotkey = %q after Update", got)
	}

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got := s.GetString(KeyHotkey, ""); got != "ctrl+alt+space" {
		t.Errorf("hotkey after Reset = %q, want default", got)
	}

	reloaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := reloaded.GetString(KeyTheme, ""); got != "system" {
		t.Errorf("theme after Reset+reload = %q, want system", got)
	}
}

func TestUnknownKeyIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if err := s.Set("no_such_key", "x"); err != nil {
		t.Fatalf("Set unknown key should be a logged no-op, got %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if strings.Contains(string(raw), "no_such_key") {
		t.Error("unknown key leaked into the persisted document")
	}
}

func TestUnknownKeyInDocumentIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	doc := `{"model": "from-file", "bogus": 1}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("seed document: %v", err)
	}

	s, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if got := s.GetString(KeyModel, ""); got != "from-file" {
		t.Errorf("model = %q, want from-file", got)
	}
}

func TestEnvOverrideShadowsDocument(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	path := filepath.Join(t.TempDir(), "config.json")
	s, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if got := s.GetString(KeyAPIKey, ""); got != "env-key" {
		t.Errorf("api_key = %q, want env override", got)
	}

	// Overrides shadow but never persist.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if strings.Contains(string(raw), "env-key") {
		t.Error("env override leaked into the persisted document")
	}
}
