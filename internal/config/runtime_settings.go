package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

const (
	LanguageRussian = "Русский"
	LanguageEnglish = "English"

	DefaultTheme    = "Стандартная тема"
	DefaultFontSize = 12
	MinFontSize     = 8
	MaxFontSize     = 30
)

// languageLocales maps the language names shown in the settings panel to the
// locale suffix of their catalog file.
var languageLocales = map[string]string{
	LanguageRussian: "ru_RU",
	LanguageEnglish: "en_EN",
}

// Themes lists the theme names offered by the settings panel, in display order.
var Themes = []string{
	"Стандартная тема",
	"Светлая тема",
	"Темная тема",
	"Ночная тема",
	"Синяя тема",
	"Зеленая тема",
	"Розовая тема",
	"Темно-синяя тема",
	"Монохромная тема",
	"Пастельная тема",
	"Высококонтрастная тема",
}

// Languages returns the selectable language names, sorted.
func Languages() []string {
	out := make([]string, 0, len(languageLocales))
	for name := range languageLocales {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// LocaleOf returns the catalog locale suffix of a display language.
func LocaleOf(displayLanguage string) (string, bool) {
	locale, ok := languageLocales[displayLanguage]
	return locale, ok
}

// Settings are the user preferences persisted between runs.
type Settings struct {
	Language string `json:"language"`
	Theme    string `json:"theme"`
	FontSize int    `json:"font_size"`
}

func DefaultSettings() Settings {
	return Settings{
		Language: LanguageRussian,
		Theme:    DefaultTheme,
		FontSize: DefaultFontSize,
	}
}

func (s Settings) Validate() error {
	if strings.TrimSpace(s.Language) == "" {
		return fmt.Errorf("language is required")
	}
	if _, ok := LocaleOf(s.Language); !ok {
		return fmt.Errorf("unsupported language %q", s.Language)
	}
	if !slices.Contains(Themes, s.Theme) {
		return fmt.Errorf("unknown theme %q", s.Theme)
	}
	if s.FontSize < MinFontSize || s.FontSize > MaxFontSize {
		return fmt.Errorf("font_size must be within %d..%d, got %d", MinFontSize, MaxFontSize, s.FontSize)
	}
	return nil
}

func LoadSettingsFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("invalid settings file: %w", err)
	}
	return settings, nil
}

// LoadSettingsOrDefault returns the defaults when path does not exist yet.
// Fields missing from the file keep their default values.
func LoadSettingsOrDefault(path string) (Settings, error) {
	settings := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return settings, nil
		}
		return Settings{}, err
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("invalid settings file: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings file: %w", err)
	}
	return settings, nil
}

func WriteSettingsFile(path string, settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	content, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	content = append(content, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// SettingsStore keeps the current settings in memory and persists every update.
type SettingsStore struct {
	path string

	mu      sync.RWMutex
	current Settings
}

func NewSettingsStore(path string, initial Settings) (*SettingsStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("settings file path is required")
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &SettingsStore{
		path:    path,
		current: initial,
	}, nil
}

func (s *SettingsStore) GetSettings() (Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

func (s *SettingsStore) UpdateSettings(next Settings) (Settings, error) {
	if err := next.Validate(); err != nil {
		return Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := WriteSettingsFile(s.path, next); err != nil {
		return Settings{}, err
	}
	s.current = next
	return next, nil
}
