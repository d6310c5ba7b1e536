package catalog

import (
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// ParseLanguage converts a TS language attribute such as "en_US" into a tag.
// Unknown regions degrade to the base language; garbage yields language.Und.
func ParseLanguage(s string) language.Tag {
	s = strings.TrimSpace(strings.ReplaceAll(s, "_", "-"))
	if s == "" {
		return language.Und
	}
	if tag, err := language.Parse(s); err == nil {
		return tag
	}
	base, _, _ := strings.Cut(s, "-")
	if tag, err := language.Parse(base); err == nil {
		return tag
	}
	return language.Und
}

// FormatLanguage renders a tag in the TS attribute form ("en_US").
func FormatLanguage(tag language.Tag) string {
	if tag == language.Und {
		return ""
	}
	base, _ := tag.Base()
	region, conf := tag.Region()
	if conf == language.Exact {
		return base.String() + "_" + region.String()
	}
	return base.String()
}

// DetectSourceLanguage returns the sourcelanguage attribute when present and
// otherwise takes a majority vote over the detected language of each source
// string. Ties go to the smaller ISO 639-1 code.
func DetectSourceLanguage(c *Catalog) language.Tag {
	if c == nil {
		return language.Und
	}
	if tag := ParseLanguage(c.SourceLanguage); tag != language.Und {
		return tag
	}

	votes := make(map[string]int)
	for _, ctx := range c.Contexts {
		for _, msg := range ctx.Messages {
			if strings.TrimSpace(msg.Source) == "" {
				continue
			}
			if code := whatlanggo.DetectLang(msg.Source).Iso6391(); code != "" {
				votes[code]++
			}
		}
	}

	var topLang string
	var topCount int
	for lang, count := range votes {
		if count > topCount || (count == topCount && lang < topLang) {
			topLang = lang
			topCount = count
		}
	}
	if topLang == "" {
		return language.Und
	}
	return language.Make(topLang)
}
