package persistence

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cometa-app/tscatalog/internal/apperr"
	"github.com/cometa-app/tscatalog/internal/catalog"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, apperr.NewError(apperr.ErrConfig, "db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, apperr.WrapError(err, apperr.ErrStorage, "create db directory")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, apperr.WrapError(err, apperr.ErrStorage, "open sqlite")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, apperr.WrapError(err, apperr.ErrStorage, "initialize sqlite").WithContext("path", dbPath)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(path.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

// SaveCatalog stores c under name, replacing whatever was stored before.
// Catalogs are regenerated rather than edited, so there is no partial update.
func (s *SQLiteStore) SaveCatalog(ctx context.Context, name string, c *catalog.Catalog) (err error) {
	if strings.TrimSpace(name) == "" {
		return apperr.NewError(apperr.ErrValidation, "catalog name is required")
	}
	if c == nil {
		return apperr.NewError(apperr.ErrValidation, "catalog is nil")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = deleteCatalogTx(ctx, tx, name); err != nil {
		return err
	}

	if _, err = tx.ExecContext(
		ctx,
		`INSERT INTO catalogs (name, version, language, source_language, message_count, imported_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		name,
		c.Version,
		c.Language,
		c.SourceLanguage,
		c.MessageCount(),
		time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("insert catalog: %w", err)
	}

	ctxStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO catalog_contexts (catalog_name, context_index, name) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer ctxStmt.Close()

	msgStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO catalog_messages (
			catalog_name, context_index, context, position, source, comment, translation, translation_type, locations_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer msgStmt.Close()

	for ci, cc := range c.Contexts {
		if _, err = ctxStmt.ExecContext(ctx, name, ci, cc.Name); err != nil {
			return fmt.Errorf("insert context %s: %w", cc.Name, err)
		}
		for pos, msg := range cc.Messages {
			var locations []byte
			locations, err = json.Marshal(msg.Locations)
			if err != nil {
				return err
			}
			if _, err = msgStmt.ExecContext(
				ctx,
				name,
				ci,
				cc.Name,
				pos,
				msg.Source,
				msg.Comment,
				msg.Translation,
				string(msg.Type),
				string(locations),
			); err != nil {
				return fmt.Errorf("insert message %s/%q: %w", cc.Name, msg.Source, err)
			}
		}
	}

	return tx.Commit()
}

// LoadCatalog restores a stored catalog in its original order.
func (s *SQLiteStore) LoadCatalog(ctx context.Context, name string) (*catalog.Catalog, bool, error) {
	c := &catalog.Catalog{}
	err := s.db.QueryRowContext(
		ctx,
		`SELECT version, language, source_language FROM catalogs WHERE name = ?`,
		name,
	).Scan(&c.Version, &c.Language, &c.SourceLanguage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	ctxRows, err := s.db.QueryContext(
		ctx,
		`SELECT name FROM catalog_contexts WHERE catalog_name = ? ORDER BY context_index ASC`,
		name,
	)
	if err != nil {
		return nil, false, err
	}
	defer ctxRows.Close()

	c.Contexts = make([]catalog.Context, 0)
	for ctxRows.Next() {
		var cc catalog.Context
		if err := ctxRows.Scan(&cc.Name); err != nil {
			return nil, false, err
		}
		cc.Messages = make([]catalog.Message, 0)
		c.Contexts = append(c.Contexts, cc)
	}
	if err := ctxRows.Err(); err != nil {
		return nil, false, err
	}

	msgRows, err := s.db.QueryContext(
		ctx,
		`SELECT context_index, source, comment, translation, translation_type, locations_json
		 FROM catalog_messages
		 WHERE catalog_name = ?
		 ORDER BY context_index ASC, position ASC`,
		name,
	)
	if err != nil {
		return nil, false, err
	}
	defer msgRows.Close()

	for msgRows.Next() {
		var (
			ci            int
			msg           catalog.Message
			msgType       string
			locationsJSON string
		)
		if err := msgRows.Scan(&ci, &msg.Source, &msg.Comment, &msg.Translation, &msgType, &locationsJSON); err != nil {
			return nil, false, err
		}
		if ci < 0 || ci >= len(c.Contexts) {
			return nil, false, fmt.Errorf("message references unknown context index %d", ci)
		}
		msg.Type = catalog.TranslationType(msgType)
		if err := json.Unmarshal([]byte(locationsJSON), &msg.Locations); err != nil {
			return nil, false, err
		}
		c.Contexts[ci].Messages = append(c.Contexts[ci].Messages, msg)
	}
	if err := msgRows.Err(); err != nil {
		return nil, false, err
	}

	return c, true, nil
}

func (s *SQLiteStore) ListCatalogs(ctx context.Context) ([]CatalogSummary, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT name, version, language, source_language, message_count, imported_at
		 FROM catalogs
		 ORDER BY name ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]CatalogSummary, 0)
	for rows.Next() {
		var item CatalogSummary
		if err := rows.Scan(
			&item.Name,
			&item.Version,
			&item.Language,
			&item.SourceLanguage,
			&item.MessageCount,
			&item.ImportedAt,
		); err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *SQLiteStore) DeleteCatalog(ctx context.Context, name string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = deleteCatalogTx(ctx, tx, name); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteCatalogTx(ctx context.Context, tx *sql.Tx, name string) error {
	for _, stmt := range []string{
		`DELETE FROM catalog_messages WHERE catalog_name = ?`,
		`DELETE FROM catalog_contexts WHERE catalog_name = ?`,
		`DELETE FROM catalogs WHERE name = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, name); err != nil {
			return err
		}
	}
	return nil
}

// RecordMisses adds hit counts for lookups that fell back to the source.
func (s *SQLiteStore) RecordMisses(ctx context.Context, language string, hits map[catalog.Key]int) (err error) {
	if len(hits) == 0 {
		return nil
	}

	keys := make([]catalog.Key, 0, len(hits))
	for k := range hits {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Context != keys[j].Context {
			return keys[i].Context < keys[j].Context
		}
		return keys[i].Source < keys[j].Source
	})

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for _, k := range keys {
		if _, err = tx.ExecContext(
			ctx,
			`INSERT INTO lookup_misses (language, context, source, hits, first_seen, last_seen)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(language, context, source) DO UPDATE SET
				hits=lookup_misses.hits + excluded.hits,
				last_seen=excluded.last_seen`,
			language,
			k.Context,
			k.Source,
			hits[k],
			now,
			now,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListMisses returns recorded misses, most frequent first. An empty language
// lists every language.
func (s *SQLiteStore) ListMisses(ctx context.Context, language string) ([]MissRecord, error) {
	query := `SELECT language, context, source, hits, first_seen, last_seen FROM lookup_misses`
	args := []any{}
	if language != "" {
		query += ` WHERE language = ?`
		args = append(args, language)
	}
	query += ` ORDER BY hits DESC, context ASC, source ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]MissRecord, 0)
	for rows.Next() {
		var item MissRecord
		if err := rows.Scan(&item.Language, &item.Context, &item.Source, &item.Hits, &item.FirstSeen, &item.LastSeen); err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}
