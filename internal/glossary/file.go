package glossary

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/language"
)

// Filename returns the glossary filename for a language pair, using 2-letter
// base codes: glossary.ru-en.json.
func Filename(sourceLang, targetLang string) string {
	return "glossary." + normalizeLanguageCode(sourceLang) + "-" + normalizeLanguageCode(targetLang) + ".json"
}

// FilePath returns the full path to the glossary file in dir.
func FilePath(dir, sourceLang, targetLang string) string {
	return filepath.Join(dir, Filename(sourceLang, targetLang))
}

// FindInAncestors walks up from startDir looking for the glossary of a
// language pair. The closest file wins; "" means none was found.
func FindInAncestors(startDir, sourceLang, targetLang string) string {
	filename := Filename(sourceLang, targetLang)
	currentDir := startDir

	for {
		candidate := filepath.Join(currentDir, filename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return ""
		}
		currentDir = parentDir
	}
}

func Load(path string) (TermMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tm TermMap
	if err := json.Unmarshal(data, &tm); err != nil {
		return nil, fmt.Errorf("invalid glossary %s: %w", path, err)
	}
	return tm, nil
}

// Save writes tm as indented JSON. Non-ASCII text is written as-is.
func Save(path string, tm TermMap) error {
	data, err := json.MarshalIndent(tm, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func normalizeLanguageCode(lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		return lang
	}
	base, _ := tag.Base()
	return base.String()
}
