package catalog

import (
	"sort"

	"github.com/cometa-app/tscatalog/internal/apperr"
	"golang.org/x/text/language"
)

// Table is the immutable runtime lookup built from a catalog. It is safe for
// concurrent use once built.
type Table struct {
	language language.Tag
	messages map[Key]string
	contexts map[string][]string
}

// NewTable builds a lookup table from c. Contexts that share a name are merged.
// A source repeated within one context is rejected. Obsolete, vanished and
// empty translations are left out so lookups fall back to the source.
func NewTable(c *Catalog) (*Table, error) {
	if c == nil {
		return nil, apperr.NewError(apperr.ErrValidation, "catalog is nil")
	}

	t := &Table{
		language: ParseLanguage(c.Language),
		messages: make(map[Key]string, c.MessageCount()),
		contexts: make(map[string][]string),
	}

	seen := make(map[Key]struct{}, c.MessageCount())
	for _, ctx := range c.Contexts {
		if _, ok := t.contexts[ctx.Name]; !ok {
			t.contexts[ctx.Name] = nil
		}
		for _, msg := range ctx.Messages {
			key := Key{Context: ctx.Name, Source: msg.Source}
			if _, dup := seen[key]; dup {
				return nil, apperr.NewError(apperr.ErrValidation, "duplicate source string in context").
					WithContext("context", ctx.Name).
					WithContext("source", msg.Source)
			}
			seen[key] = struct{}{}

			if !msg.Type.Usable() || msg.Translation == "" {
				continue
			}
			t.messages[key] = msg.Translation
			t.contexts[ctx.Name] = append(t.contexts[ctx.Name], msg.Source)
		}
	}

	return t, nil
}

// EmptyTable returns a table with no translations for the given language, so
// every lookup yields its source string.
func EmptyTable(tag language.Tag) *Table {
	return &Table{
		language: tag,
		messages: map[Key]string{},
		contexts: map[string][]string{},
	}
}

// Lookup returns the translation of source within context.
func (t *Table) Lookup(context, source string) (string, bool) {
	if t == nil {
		return "", false
	}
	v, ok := t.messages[Key{Context: context, Source: source}]
	return v, ok
}

// Translate is Lookup that falls back to source on a miss.
func (t *Table) Translate(context, source string) string {
	if v, ok := t.Lookup(context, source); ok {
		return v
	}
	return source
}

// Language is the target language of the table.
func (t *Table) Language() language.Tag {
	if t == nil {
		return language.Und
	}
	return t.language
}

// Len is the number of installed translations.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.messages)
}

// Contexts returns the sorted context names, including contexts with no
// installed translations.
func (t *Table) Contexts() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.contexts))
	for name := range t.contexts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// HasContext reports whether the catalog defined the context.
func (t *Table) HasContext(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.contexts[name]
	return ok
}

// Messages returns a copy of the source->translation map of one context.
func (t *Table) Messages(context string) map[string]string {
	out := map[string]string{}
	if t == nil {
		return out
	}
	for _, source := range t.contexts[context] {
		out[source] = t.messages[Key{Context: context, Source: source}]
	}
	return out
}
