package translator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/cometa-app/tscatalog/internal/apperr"
	"github.com/cometa-app/tscatalog/internal/catalog"
	"github.com/cometa-app/tscatalog/internal/config"
	"github.com/cometa-app/tscatalog/pkg/log"
)

// Locator resolves a display language to its catalog file.
type Locator interface {
	CatalogPath(displayLanguage string) (string, error)
}

// MissRecorder persists lookups that fell back to the source string.
type MissRecorder interface {
	RecordMisses(ctx context.Context, language string, hits map[catalog.Key]int) error
}

type Option func(*Translator)

// WithSourceLanguage names the language the UI is written in. Switching to it
// installs an identity table when no catalog file exists.
func WithSourceLanguage(displayLanguage string) Option {
	return func(t *Translator) {
		t.sourceLanguage = displayLanguage
	}
}

func WithMissRecorder(rec MissRecorder) Option {
	return func(t *Translator) {
		t.recorder = rec
	}
}

type active struct {
	language string
	table    *catalog.Table
	identity bool
}

// Translator holds the installed table of the current language. Lookups read
// it without locking; Apply and Install swap it as a whole.
type Translator struct {
	locator        Locator
	sourceLanguage string
	recorder       MissRecorder

	applyMu sync.Mutex
	current atomic.Pointer[active]

	missMu sync.Mutex
	misses map[string]map[catalog.Key]int
}

func New(locator Locator, opts ...Option) *Translator {
	t := &Translator{
		locator:        locator,
		sourceLanguage: config.LanguageRussian,
		misses:         make(map[string]map[catalog.Key]int),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Apply loads the catalog of displayLanguage and installs it.
func (t *Translator) Apply(ctx context.Context, displayLanguage string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.applyMu.Lock()
	defer t.applyMu.Unlock()

	path, err := t.locator.CatalogPath(displayLanguage)
	if err != nil {
		return err
	}

	c, err := catalog.ReadFile(path)
	if err != nil {
		if displayLanguage == t.sourceLanguage && apperr.IsErrorType(err, apperr.ErrFileNotFound) {
			log.Info("No catalog for source language %s, installing identity table", displayLanguage)
			t.install(displayLanguage, catalog.EmptyTable(languageTag(displayLanguage)), true)
			return nil
		}
		return err
	}

	table, err := catalog.NewTable(c)
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			appErr.WithContext("path", path)
		}
		return err
	}

	t.install(displayLanguage, table, false)
	log.Info("Installed %s catalog %s: %d translations in %d contexts",
		displayLanguage, path, table.Len(), len(table.Contexts()))
	return nil
}

// Install swaps in a prebuilt table for displayLanguage.
func (t *Translator) Install(displayLanguage string, table *catalog.Table) {
	t.applyMu.Lock()
	defer t.applyMu.Unlock()
	t.install(displayLanguage, table, false)
}

func (t *Translator) install(displayLanguage string, table *catalog.Table, identity bool) {
	if table == nil {
		table = catalog.EmptyTable(languageTag(displayLanguage))
		identity = true
	}
	t.current.Store(&active{language: displayLanguage, table: table, identity: identity})
}

// Tr translates source within context, returning source when there is no
// translation.
func (t *Translator) Tr(context, source string) string {
	return t.Translate(context, source).Text
}

// Translation is the result of one lookup against one installed table.
type Translation struct {
	Text     string
	Found    bool
	Language string
}

// Translate is Tr that also reports whether the table had the message and
// which language answered. All fields come from the same table.
func (t *Translator) Translate(context, source string) Translation {
	cur := t.current.Load()
	if cur == nil {
		return Translation{Text: source}
	}
	if v, ok := cur.table.Lookup(context, source); ok {
		return Translation{Text: v, Found: true, Language: cur.language}
	}
	if !cur.identity {
		t.recordMiss(cur.language, catalog.Key{Context: context, Source: source})
	}
	return Translation{Text: source, Language: cur.language}
}

// Lookup is Tr without the fallback and without miss accounting.
func (t *Translator) Lookup(context, source string) (string, bool) {
	cur := t.current.Load()
	if cur == nil {
		return "", false
	}
	return cur.table.Lookup(context, source)
}

// Language is the display language of the installed table, or "" before the
// first Apply.
func (t *Translator) Language() string {
	if cur := t.current.Load(); cur != nil {
		return cur.language
	}
	return ""
}

func (t *Translator) Table() *catalog.Table {
	if cur := t.current.Load(); cur != nil {
		return cur.table
	}
	return nil
}

// Reload re-reads the catalog of the current language.
func (t *Translator) Reload(ctx context.Context) error {
	lang := t.Language()
	if lang == "" {
		return nil
	}
	return t.Apply(ctx, lang)
}

func (t *Translator) recordMiss(language string, key catalog.Key) {
	t.missMu.Lock()
	defer t.missMu.Unlock()
	byKey, ok := t.misses[language]
	if !ok {
		byKey = make(map[catalog.Key]int)
		t.misses[language] = byKey
	}
	byKey[key]++
}

// PendingMisses returns a copy of the misses not flushed yet.
func (t *Translator) PendingMisses() map[string]map[catalog.Key]int {
	t.missMu.Lock()
	defer t.missMu.Unlock()
	out := make(map[string]map[catalog.Key]int, len(t.misses))
	for lang, byKey := range t.misses {
		cp := make(map[catalog.Key]int, len(byKey))
		for k, v := range byKey {
			cp[k] = v
		}
		out[lang] = cp
	}
	return out
}

// FlushMisses hands the pending misses to the recorder, keyed by catalog
// locale. Misses of a language whose write fails are kept for the next flush.
func (t *Translator) FlushMisses(ctx context.Context) error {
	if t.recorder == nil {
		return nil
	}

	t.missMu.Lock()
	pending := t.misses
	t.misses = make(map[string]map[catalog.Key]int)
	t.missMu.Unlock()

	var firstErr error
	for lang, byKey := range pending {
		locale, ok := config.LocaleOf(lang)
		if !ok {
			locale = lang
		}
		if err := t.recorder.RecordMisses(ctx, locale, byKey); err != nil {
			log.Warn("Failed to record %d misses for %s: %v", len(byKey), lang, err)
			t.restoreMisses(lang, byKey)
			if firstErr == nil {
				firstErr = apperr.WrapError(err, apperr.ErrStorage, "record lookup misses").
					WithContext("language", lang)
			}
		}
	}
	return firstErr
}

func (t *Translator) restoreMisses(language string, byKey map[catalog.Key]int) {
	t.missMu.Lock()
	defer t.missMu.Unlock()
	cur, ok := t.misses[language]
	if !ok {
		t.misses[language] = byKey
		return
	}
	for k, v := range byKey {
		cur[k] += v
	}
}
