package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cometa-app/tscatalog/internal/apperr"
	"github.com/cometa-app/tscatalog/internal/config"
	"github.com/cometa-app/tscatalog/internal/httpapi"
	"github.com/cometa-app/tscatalog/internal/persistence"
	"github.com/cometa-app/tscatalog/internal/translator"
	"github.com/cometa-app/tscatalog/pkg/log"
)

const usage = `usage: tscatalog <command> [flags] [args]

commands:
  lookup -file F -context C SOURCE   translate one source string
  validate PATH...                   check .ts files or directories
  fmt [-w] FILE                      rewrite a catalog in canonical form
  import FILE...                     store catalogs in the database
  catalogs                           list stored catalogs
  misses [-language L]               list lookups without a translation
  glossary -file F [-out P]          export a glossary from a catalog
  pretranslate -file F [-glossary G] [-w]
                                     fill empty translations from a glossary
  serve [-addr A] [-catalog-dir D] [-data-dir D] [-log-file F]
                                     run the HTTP API
`

// errUsage marks command line mistakes; they exit with status 2.
var errUsage = errors.New("invalid usage")

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	err := runCommand(context.Background(), os.Args[1], os.Args[2:], os.Stdout)
	if err == nil {
		return
	}
	if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, err)
		}
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	apperr.Handle(err)
	os.Exit(1)
}

func runCommand(ctx context.Context, name string, args []string, out io.Writer) error {
	switch name {
	case "lookup":
		return runLookup(args, out)
	case "validate":
		return runValidate(ctx, args, out)
	case "fmt":
		return runFmt(args, out)
	case "import":
		return runImport(ctx, args, out)
	case "catalogs":
		return runCatalogs(ctx, args, out)
	case "misses":
		return runMisses(ctx, args, out)
	case "glossary":
		return runGlossary(args, out)
	case "pretranslate":
		return runPretranslate(args, out)
	case "serve":
		return runServe(ctx, args)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
}

// loadConfig reads the environment and applies the configured log level.
func loadConfig(opts ...config.Option) (*config.Config, error) {
	cfg, err := config.NewFromEnv(opts...)
	if err != nil {
		return nil, err
	}
	log.InitLogger(log.ParseLevel(cfg.System.LogLevel))
	return cfg, nil
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", "", "listen address, overrides HTTP_ADDR")
	catalogDir := fs.String("catalog-dir", "", "catalog directory, overrides CATALOG_DIR")
	dataDir := fs.String("data-dir", "", "data directory, overrides DATA_DIR")
	logFile := fs.String("log-file", "", "append logs to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var opts []config.Option
	if *catalogDir != "" {
		opts = append(opts, config.WithCatalogDir(*catalogDir))
	}
	if *dataDir != "" {
		opts = append(opts, config.WithDataDir(*dataDir))
	}
	cfg, err := loadConfig(opts...)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}
	if *logFile != "" {
		fl, err := log.NewFileLogger(*logFile, log.ParseLevel(cfg.System.LogLevel))
		if err != nil {
			return apperr.WrapError(err, apperr.ErrFileWrite, "open log file").WithContext("path", *logFile)
		}
		defer fl.Close()
		log.SetLogger(fl.Logger)
	}

	settings, err := config.LoadSettingsOrDefault(cfg.System.SettingsFile)
	if err != nil {
		return apperr.WrapError(err, apperr.ErrConfig, "load settings").
			WithContext("path", cfg.System.SettingsFile)
	}
	settingsStore, err := config.NewSettingsStore(cfg.System.SettingsFile, settings)
	if err != nil {
		return apperr.WrapError(err, apperr.ErrConfig, "create settings store")
	}

	store, err := persistence.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return err
	}
	defer store.Close()

	tr := translator.New(
		cfg,
		translator.WithSourceLanguage(cfg.Catalog.SourceLanguage),
		translator.WithMissRecorder(store),
	)
	if err := tr.Apply(ctx, settings.Language); err != nil {
		return err
	}
	importCatalogDir(ctx, cfg, store)

	cronEngine := cron.New()
	scheduler := translator.NewScheduler(tr, cronEngine, cfg.Reload.CronExpr)
	httpSrv := httpapi.NewServer(
		tr,
		httpapi.WithSettingsStore(settingsStore),
		httpapi.WithSettingsApplier(func(ctx context.Context, next config.Settings) error {
			return tr.Apply(ctx, next.Language)
		}),
		httpapi.WithCatalogStore(store),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = runWithComponents(ctx, cfg, scheduler, cronEngine, httpSrv)
	if flushErr := tr.FlushMisses(context.Background()); flushErr != nil {
		log.Warn("Final miss flush failed: %v", flushErr)
	}
	return err
}

// importCatalogDir snapshots every catalog on disk into the store so that
// /api/catalogs reflects what the process started with.
func importCatalogDir(ctx context.Context, cfg *config.Config, store *persistence.SQLiteStore) {
	catalogs, err := translator.LoadDir(ctx, cfg.Catalog.Dir, cfg.Catalog.LoadConcurrency)
	if err != nil {
		log.Warn("Skipping catalog import from %s: %v", cfg.Catalog.Dir, err)
		return
	}
	for name, c := range catalogs {
		if err := store.SaveCatalog(ctx, name, c); err != nil {
			log.Warn("Failed to store catalog %s: %v", name, err)
		}
	}
	log.Info("Imported %d catalogs from %s", len(catalogs), cfg.Catalog.Dir)
}

type scheduler interface {
	Schedule(ctx context.Context) error
}

type cronRunner interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

// runWithComponents starts the scheduler and the HTTP server and blocks until
// ctx is canceled or the server fails.
func runWithComponents(
	ctx context.Context,
	cfg *config.Config,
	sched scheduler,
	cronEngine cronRunner,
	httpSrv httpServer,
) error {
	if err := sched.Schedule(ctx); err != nil {
		return apperr.WrapError(err, apperr.ErrConfig, "schedule catalog reload")
	}
	cronEngine.Start()
	defer cronEngine.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe(cfg.HTTP.Addr)
	}()
	log.Info("HTTP API listening on %s", cfg.HTTP.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		log.Info("HTTP API stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
