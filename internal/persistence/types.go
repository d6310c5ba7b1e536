package persistence

import "time"

// CatalogSummary describes one imported catalog without its messages.
type CatalogSummary struct {
	Name           string    `json:"name"`
	Version        string    `json:"version"`
	Language       string    `json:"language"`
	SourceLanguage string    `json:"source_language,omitempty"`
	MessageCount   int       `json:"message_count"`
	ImportedAt     time.Time `json:"imported_at"`
}

// MissRecord counts runtime lookups that fell back to the source string.
type MissRecord struct {
	Language  string    `json:"language"`
	Context   string    `json:"context"`
	Source    string    `json:"source"`
	Hits      int       `json:"hits"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}
