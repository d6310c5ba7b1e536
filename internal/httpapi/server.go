package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cometa-app/tscatalog/internal/config"
	"github.com/cometa-app/tscatalog/internal/persistence"
	"github.com/cometa-app/tscatalog/internal/translator"
)

type settingsStore interface {
	GetSettings() (config.Settings, error)
	UpdateSettings(next config.Settings) (config.Settings, error)
}

// settingsApplier makes new settings take effect before they are persisted.
type settingsApplier func(ctx context.Context, next config.Settings) error

type catalogStore interface {
	ListCatalogs(ctx context.Context) ([]persistence.CatalogSummary, error)
	ListMisses(ctx context.Context, language string) ([]persistence.MissRecord, error)
}

type Server struct {
	translator *translator.Translator
	settings   settingsStore
	apply      settingsApplier
	store      catalogStore

	// settingsMu serializes settings updates across apply and save.
	settingsMu sync.Mutex

	mux   *http.ServeMux
	server *http.Server
}

type Option func(*Server)

func WithSettingsStore(store settingsStore) Option {
	return func(s *Server) {
		s.settings = store
	}
}

func WithSettingsApplier(apply settingsApplier) Option {
	return func(s *Server) {
		s.apply = apply
	}
}

func WithCatalogStore(store catalogStore) Option {
	return func(s *Server) {
		s.store = store
	}
}

func NewServer(tr *translator.Translator, opts ...Option) *Server {
	s := &Server{
		translator: tr,
		mux:        http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/translate", s.handleTranslate)
	s.mux.HandleFunc("/api/contexts", s.handleListContexts)
	s.mux.HandleFunc("/api/contexts/", s.handleGetContext)
	s.mux.HandleFunc("/api/settings", s.handleSettings)
	s.mux.HandleFunc("/api/settings/options", s.handleSettingsOptions)
	s.mux.HandleFunc("/api/reload", s.handleReload)
	s.mux.HandleFunc("/api/misses", s.handleMisses)
	s.mux.HandleFunc("/api/catalogs", s.handleCatalogs)
}
