package catalog

import (
	"fmt"
	"sort"

	"golang.org/x/text/language"
	xcatalog "golang.org/x/text/message/catalog"
)

// contextSeparator joins context and source into one message key, as gettext
// does for msgctxt.
const contextSeparator = "\x04"

// MessageKey is the x/text message key for a context-qualified source string.
func MessageKey(context, source string) string {
	return context + contextSeparator + source
}

// Register adds every installed translation to b under MessageKey, for the
// table's tag and, when it differs, the tag's base language.
func (t *Table) Register(b *xcatalog.Builder) error {
	if t == nil || b == nil {
		return nil
	}
	if t.language == language.Und {
		return fmt.Errorf("table has no language")
	}

	tags := []language.Tag{t.language}
	if base, conf := t.language.Base(); conf != language.No {
		if baseTag, err := language.Parse(base.String()); err == nil && baseTag != t.language {
			tags = append(tags, baseTag)
		}
	}

	keys := make([]Key, 0, len(t.messages))
	for k := range t.messages {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Context != keys[j].Context {
			return keys[i].Context < keys[j].Context
		}
		return keys[i].Source < keys[j].Source
	})

	for _, k := range keys {
		for _, tag := range tags {
			if err := b.SetString(tag, MessageKey(k.Context, k.Source), t.messages[k]); err != nil {
				return fmt.Errorf("register %s/%q: %w", k.Context, k.Source, err)
			}
		}
	}
	return nil
}
