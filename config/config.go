package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// Settings keys recognized by the store. Set/Update reject anything else.
const (
	KeyAPIKey            = "api_key"
	KeyHotkey            = "hotkey"
	KeyModel             = "model"
	KeyAutoStart         = "auto_start"
	KeyShowNotifications = "show_notifications"
	KeyTheme             = "theme"
	KeyFirstRun          = "first_run"
	KeyFallbackPrompt    = "fallback_prompt"
	KeyClipboardDelayMS  = "clipboard_delay_ms"
)

// EnvPathVar names an alternate .env file when none sits next to the executable.
const EnvPathVar = "GEMTYPE_ENV"

func defaults() map[string]any {
	return map[string]any{
		KeyAPIKey:            "",
		KeyHotkey:            "ctrl+alt+space",
		KeyModel:             "gemini-2.5-flash-preview-05-20",
		KeyAutoStart:         true,
		KeyShowNotifications: true,
		KeyTheme:             "system",
		KeyFirstRun:          true,
		KeyFallbackPrompt:    "Hello, how can I help?",
		KeyClipboardDelayMS:  200,
	}
}

// Store is a persisted flat key/value settings document. Reads consult
// environment overrides first, then the persisted document, then the
// caller-supplied default. Writes persist immediately.
type Store struct {
	mu      sync.Mutex
	path    string
	data    map[string]any
	overlay map[string]string // env overrides, never persisted
}

// Load opens the per-user settings document, creating it with defaults on
// first absence.
func Load() (*Store, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	return LoadFrom(filepath.Join(dir, "gemtype", "config.json"))
}

// LoadFrom opens the settings document at an explicit path.
func LoadFrom(path string) (*Store, error) {
	s := &Store{
		path:    path,
		data:    defaults(),
		overlay: envOverrides(),
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		var loaded map[string]any
		if jerr := json.Unmarshal(raw, &loaded); jerr != nil {
			return nil, fmt.Errorf("parse %s: %w", path, jerr)
		}
		for k, v := range loaded {
			if _, known := s.data[k]; !known {
				log.Printf("config: ignoring unknown key %q in %s", k, path)
				continue
			}
			s.data[k] = v
		}
	case os.IsNotExist(err):
		if werr := s.save(); werr != nil {
			return nil, werr
		}
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return s, nil
}

// envOverrides loads a .env next to the executable (or at EnvPathVar), then
// maps the recognized variables onto settings keys. Overrides shadow the
// document but are never written back.
func envOverrides() map[string]string {
	if p := resolveEnvPath(); p != "" {
		_ = godotenv.Load(p)
	}

	overlay := map[string]string{}
	for env, key := range map[string]string{
		"GEMINI_API_KEY": KeyAPIKey,
		"MODEL":          KeyModel,
		"HOTKEY":         KeyHotkey,
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			overlay[key] = v
		}
	}
	return overlay
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvPathVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

// FileLoggingEnabled reports whether debug file logging was requested via
// the environment. Deliberately not part of the persisted document.
func FileLoggingEnabled() bool {
	return strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true"
}

func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// Path returns the location of the persisted document.
func (s *Store) Path() string { return s.path }

// GetString returns the value for key, or def when unset.
func (s *Store) GetString(key, def string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.overlay[key]; ok {
		return v
	}
	if v, ok := s.data[key]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return def
}

// GetBool returns the boolean value for key, or def when unset or untyped.
func (s *Store) GetBool(key string, def bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.overlay[key]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	if v, ok := s.data[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// GetInt returns the integer value for key, or def when unset or untyped.
// JSON numbers decode as float64; both forms are accepted.
func (s *Store) GetInt(key string, def int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.overlay[key]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	switch v := s.data[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

// Set stores and persists a single value. Unknown keys are logged and ignored.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, known := s.data[key]; !known {
		log.Printf("config: attempted to set unknown key %q", key)
		return nil
	}
	s.data[key] = value
	return s.save()
}

// Update stores and persists several values at once.
func (s *Store) Update(values map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for k, v := range values {
		if _, known := s.data[k]; !known {
			log.Printf("config: attempted to set unknown key %q", k)
			continue
		}
		s.data[k] = v
		changed = true
	}
	if !changed {
		return nil
	}
	return s.save()
}

// Reset restores and persists the default document.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = defaults()
	log.Printf("config: reset to defaults")
	return s.save()
}
