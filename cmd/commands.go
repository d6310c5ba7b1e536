package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/cometa-app/tscatalog/internal/apperr"
	"github.com/cometa-app/tscatalog/internal/catalog"
	"github.com/cometa-app/tscatalog/internal/glossary"
	"github.com/cometa-app/tscatalog/internal/persistence"
	"github.com/cometa-app/tscatalog/pkg/file"
	"github.com/cometa-app/tscatalog/pkg/log"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func runLookup(args []string, out io.Writer) error {
	fs := newFlagSet("lookup")
	path := fs.String("file", "", "catalog file")
	contextName := fs.String("context", "", "context name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" || *contextName == "" || fs.NArg() != 1 {
		return fmt.Errorf("%w: lookup needs -file, -context and one source string", errUsage)
	}

	c, err := catalog.ReadFile(*path)
	if err != nil {
		return err
	}
	table, err := catalog.NewTable(c)
	if err != nil {
		return err
	}

	source := fs.Arg(0)
	if _, ok := table.Lookup(*contextName, source); !ok {
		log.Warn("No translation for %s/%q, using source", *contextName, source)
	}
	fmt.Fprintln(out, table.Translate(*contextName, source))
	return nil
}

// runValidate checks every catalog named on the command line. Directories are
// searched for .ts files. It fails when any catalog has error-level issues.
func runValidate(_ context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: validate needs at least one path", errUsage)
	}

	paths, err := expandCatalogPaths(args)
	if err != nil {
		return err
	}

	failed := 0
	for _, path := range paths {
		c, err := catalog.ReadFile(path)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			failed++
			continue
		}
		report := catalog.Validate(c)
		for _, issue := range report.Issues {
			fmt.Fprintf(out, "%s: %s\n", path, issue)
		}
		errs, warns := len(report.Errors()), len(report.Warnings())
		fmt.Fprintf(out, "%s: %d messages, %d errors, %d warnings\n", path, c.MessageCount(), errs, warns)
		if errs > 0 {
			failed++
		}
	}

	if failed > 0 {
		return apperr.NewError(apperr.ErrValidation, "catalog validation failed").
			WithContext("failed", failed).
			WithContext("checked", len(paths))
	}
	return nil
}

func expandCatalogPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, apperr.WrapError(err, apperr.ErrFileNotFound, "path does not exist").
					WithContext("path", arg)
			}
			return nil, apperr.WrapError(err, apperr.ErrFileRead, "stat path").WithContext("path", arg)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, err := file.FindByExt(arg, catalog.FileExt)
		if err != nil {
			return nil, apperr.WrapError(err, apperr.ErrFileRead, "scan directory").WithContext("path", arg)
		}
		paths = append(paths, found...)
	}
	return paths, nil
}

func runFmt(args []string, out io.Writer) error {
	fs := newFlagSet("fmt")
	write := fs.Bool("w", false, "write the result back to the file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: fmt needs exactly one file", errUsage)
	}

	path := fs.Arg(0)
	c, err := catalog.ReadFile(path)
	if err != nil {
		return err
	}
	if *write {
		return catalog.WriteFile(path, c)
	}
	return catalog.Write(out, c)
}

func openStore() (*persistence.SQLiteStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return persistence.NewSQLiteStore(cfg.DBPath())
}

func runImport(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: import needs at least one file", errUsage)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	for _, path := range args {
		c, err := catalog.ReadFile(path)
		if err != nil {
			return err
		}
		if err := catalog.Validate(c).Err(); err != nil {
			var appErr *apperr.Error
			if errors.As(err, &appErr) {
				appErr.WithContext("path", path)
			}
			return err
		}

		name := file.Stem(path)
		if err := store.SaveCatalog(ctx, name, c); err != nil {
			return apperr.WrapError(err, apperr.ErrStorage, "store catalog").WithContext("name", name)
		}
		fmt.Fprintf(out, "imported %s (%d messages)\n", name, c.MessageCount())
	}
	return nil
}

func runCatalogs(ctx context.Context, args []string, out io.Writer) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: catalogs takes no arguments", errUsage)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	catalogs, err := store.ListCatalogs(ctx)
	if err != nil {
		return apperr.WrapError(err, apperr.ErrStorage, "list catalogs")
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tLANGUAGE\tMESSAGES\tIMPORTED")
	for _, c := range catalogs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", c.Name, c.Language, c.MessageCount, c.ImportedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func runMisses(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("misses")
	language := fs.String("language", "", "catalog locale, e.g. en_EN (default: all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	misses, err := store.ListMisses(ctx, *language)
	if err != nil {
		return apperr.WrapError(err, apperr.ErrStorage, "list misses")
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HITS\tLANGUAGE\tCONTEXT\tSOURCE")
	for _, m := range misses {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", m.Hits, m.Language, m.Context, m.Source)
	}
	return tw.Flush()
}

// languagePair returns the source and target language codes of c.
func languagePair(c *catalog.Catalog) (string, string) {
	return catalog.DetectSourceLanguage(c).String(), catalog.ParseLanguage(c.Language).String()
}

func runGlossary(args []string, out io.Writer) error {
	fs := newFlagSet("glossary")
	path := fs.String("file", "", "catalog file")
	output := fs.String("out", "", "glossary path (default: next to the catalog)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("%w: glossary needs -file", errUsage)
	}

	c, err := catalog.ReadFile(*path)
	if err != nil {
		return err
	}
	tm, conflicts := glossary.FromCatalog(c)
	for _, source := range conflicts {
		log.Warn("Source %q has different translations across contexts, keeping the first", source)
	}

	target := *output
	if target == "" {
		src, tgt := languagePair(c)
		target = glossary.FilePath(filepath.Dir(*path), src, tgt)
	}
	if err := glossary.Save(target, tm); err != nil {
		return apperr.WrapError(err, apperr.ErrFileWrite, "write glossary").WithContext("path", target)
	}
	fmt.Fprintf(out, "wrote %d terms to %s\n", len(tm), target)
	return nil
}

func runPretranslate(args []string, out io.Writer) error {
	fs := newFlagSet("pretranslate")
	path := fs.String("file", "", "catalog file")
	glossaryPath := fs.String("glossary", "", "glossary file (default: nearest matching glossary above the catalog)")
	write := fs.Bool("w", false, "write the result back to the file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("%w: pretranslate needs -file", errUsage)
	}

	c, err := catalog.ReadFile(*path)
	if err != nil {
		return err
	}

	gp := *glossaryPath
	if gp == "" {
		src, tgt := languagePair(c)
		abs, err := filepath.Abs(*path)
		if err != nil {
			return apperr.WrapError(err, apperr.ErrFileRead, "resolve catalog path")
		}
		gp = glossary.FindInAncestors(filepath.Dir(abs), src, tgt)
		if gp == "" {
			return apperr.NewError(apperr.ErrFileNotFound, "no glossary found").
				WithContext("filename", glossary.Filename(src, tgt))
		}
	}
	tm, err := glossary.Load(gp)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.WrapError(err, apperr.ErrFileNotFound, "glossary does not exist").WithContext("path", gp)
		}
		return apperr.WrapError(err, apperr.ErrParse, "load glossary").WithContext("path", gp)
	}

	filled := glossary.Pretranslate(c, tm)
	log.Info("Filled %d translations from %s", filled, gp)
	if hints := glossary.Match(tm, untranslatedSources(c)); len(hints.Matched) > 0 {
		log.Info("%d glossary terms occur inside strings that are still untranslated", len(hints.Matched))
	}

	if !*write {
		return catalog.Write(out, c)
	}
	if err := catalog.WriteFile(*path, c); err != nil {
		return err
	}
	fmt.Fprintf(out, "filled %d translations in %s\n", filled, *path)
	return nil
}

func untranslatedSources(c *catalog.Catalog) []string {
	var ret []string
	for _, ctx := range c.Contexts {
		for _, msg := range ctx.Messages {
			if msg.Translation == "" && msg.Type.Usable() {
				ret = append(ret, msg.Source)
			}
		}
	}
	return ret
}
