package glossary

import (
	"sort"
	"strings"

	"github.com/cometa-app/tscatalog/internal/catalog"
)

// Match filters the term map to terms that appear in any of texts.
// Matching is case-sensitive substring matching.
func Match(tm TermMap, texts []string) MatchResult {
	matched := make(TermMap)

	for source, target := range tm {
		for _, text := range texts {
			if strings.Contains(text, source) {
				matched[source] = target
				break
			}
		}
	}

	return MatchResult{Matched: matched}
}

// FromCatalog flattens the usable translations of c into a term map. When a
// source is translated differently in two contexts the first translation is
// kept and the source is reported as a conflict.
func FromCatalog(c *catalog.Catalog) (TermMap, []string) {
	tm := make(TermMap)
	conflictSet := make(map[string]struct{})

	for _, ctx := range c.Contexts {
		for _, msg := range ctx.Messages {
			if !msg.Type.Usable() || msg.Translation == "" {
				continue
			}
			if existing, ok := tm[msg.Source]; ok {
				if existing != msg.Translation {
					conflictSet[msg.Source] = struct{}{}
				}
				continue
			}
			tm[msg.Source] = msg.Translation
		}
	}

	conflicts := make([]string, 0, len(conflictSet))
	for source := range conflictSet {
		conflicts = append(conflicts, source)
	}
	sort.Strings(conflicts)
	return tm, conflicts
}

// Pretranslate fills empty translations whose source has an exact glossary
// entry. Filled messages are marked unfinished for review. It returns the
// number of messages changed.
func Pretranslate(c *catalog.Catalog, tm TermMap) int {
	filled := 0
	for i := range c.Contexts {
		msgs := c.Contexts[i].Messages
		for j := range msgs {
			msg := &msgs[j]
			if msg.Translation != "" || msg.Type == catalog.TypeObsolete || msg.Type == catalog.TypeVanished {
				continue
			}
			target, ok := tm[msg.Source]
			if !ok || target == "" {
				continue
			}
			msg.Translation = target
			msg.Type = catalog.TypeUnfinished
			filled++
		}
	}
	return filled
}
