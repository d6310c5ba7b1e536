package glossary

// TermMap maps source-language labels to target-language labels.
type TermMap map[string]string

// MatchResult holds terms that matched against input texts.
type MatchResult struct {
	Matched TermMap
}
