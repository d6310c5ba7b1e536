package translator

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/cometa-app/tscatalog/internal/apperr"
	"github.com/cometa-app/tscatalog/internal/catalog"
	"github.com/cometa-app/tscatalog/internal/config"
	"github.com/cometa-app/tscatalog/pkg/file"
	"github.com/cometa-app/tscatalog/pkg/log"
)

// LoadDir parses every .ts file under dir with at most limit files in flight.
// The result is keyed by file stem (e.g. "Cometa_en_EN"). The first failure
// cancels the remaining reads.
func LoadDir(ctx context.Context, dir string, limit int) (map[string]*catalog.Catalog, error) {
	paths, err := file.FindByExt(dir, catalog.FileExt)
	if err != nil {
		return nil, apperr.WrapError(err, apperr.ErrFileRead, "scan catalog directory").
			WithContext("dir", dir)
	}
	if limit <= 0 {
		limit = 1
	}

	results := make([]*catalog.Catalog, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := catalog.ReadFile(path)
			if err != nil {
				return err
			}
			results[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*catalog.Catalog, len(paths))
	for i, path := range paths {
		name := file.Stem(path)
		if _, dup := out[name]; dup {
			log.Warn("Catalog %s shadows another file with the same name", path)
		}
		out[name] = results[i]
	}
	log.Debug("Loaded %d catalogs from %s", len(out), dir)
	return out, nil
}

// languageTag maps a display language to the tag of its catalog locale.
func languageTag(displayLanguage string) language.Tag {
	locale, ok := config.LocaleOf(displayLanguage)
	if !ok {
		return language.Und
	}
	return catalog.ParseLanguage(locale)
}
