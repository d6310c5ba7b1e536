package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/cometa-app/tscatalog/internal/apperr"
	"github.com/cometa-app/tscatalog/internal/config"
	"github.com/cometa-app/tscatalog/pkg/log"
)

// settingsContext holds the labels of the settings panel.
const settingsContext = "Settings"

type translateResponse struct {
	Translation string `json:"translation"`
	Found       bool   `json:"found"`
	Language    string `json:"language"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	contextName := q.Get("context")
	source := q.Get("source")
	if contextName == "" || source == "" {
		writeError(w, http.StatusBadRequest, "context and source are required")
		return
	}

	res := s.translator.Translate(contextName, source)
	writeJSON(w, http.StatusOK, translateResponse{
		Translation: res.Text,
		Found:       res.Found,
		Language:    res.Language,
	})
}

type contextSummary struct {
	Name         string `json:"name"`
	Translations int    `json:"translations"`
}

func (s *Server) handleListContexts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	table := s.translator.Table()
	names := table.Contexts()
	ret := make([]contextSummary, 0, len(names))
	for _, name := range names {
		ret = append(ret, contextSummary{
			Name:         name,
			Translations: len(table.Messages(name)),
		})
	}
	writeJSON(w, http.StatusOK, ret)
}

type contextResponse struct {
	Name     string            `json:"name"`
	Language string            `json:"language"`
	Messages map[string]string `json:"messages"`
}

func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// /api/contexts/{name}
	name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/contexts/"), "/")
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing context name")
		return
	}

	table := s.translator.Table()
	if !table.HasContext(name) {
		writeError(w, http.StatusNotFound, "unknown context "+name)
		return
	}
	writeJSON(w, http.StatusOK, contextResponse{
		Name:     name,
		Language: s.translator.Language(),
		Messages: table.Messages(name),
	})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		settings, err := s.settings.GetSettings()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		var req config.Settings
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		saved, err := s.updateSettings(r.Context(), req)
		if err != nil {
			writeError(w, statusFromError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// updateSettings applies next and then persists it. A failed save re-applies
// the previous settings so the running state matches the stored one.
func (s *Server) updateSettings(ctx context.Context, next config.Settings) (config.Settings, error) {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()

	prev, err := s.settings.GetSettings()
	if err != nil {
		return config.Settings{}, apperr.WrapError(err, apperr.ErrStorage, "read settings")
	}
	if s.apply != nil {
		if err := s.apply(ctx, next); err != nil {
			return config.Settings{}, err
		}
	}

	saved, err := s.settings.UpdateSettings(next)
	if err == nil {
		return saved, nil
	}
	saveErr := apperr.WrapError(err, apperr.ErrStorage, "save settings")
	if s.apply != nil {
		if rbErr := s.apply(context.WithoutCancel(ctx), prev); rbErr != nil {
			log.Error("Failed to restore %s after settings save error: %v", prev.Language, rbErr)
		}
	}
	return config.Settings{}, saveErr
}

type option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type settingsOptionsResponse struct {
	Languages   []option `json:"languages"`
	Themes      []option `json:"themes"`
	MinFontSize int      `json:"min_font_size"`
	MaxFontSize int      `json:"max_font_size"`
}

func (s *Server) handleSettingsOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := settingsOptionsResponse{
		Languages:   s.labelled(config.Languages()),
		Themes:      s.labelled(config.Themes),
		MinFontSize: config.MinFontSize,
		MaxFontSize: config.MaxFontSize,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) labelled(values []string) []option {
	ret := make([]option, 0, len(values))
	for _, v := range values {
		ret = append(ret, option{Value: v, Label: s.translator.Tr(settingsContext, v)})
	}
	return ret
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.translator.Reload(r.Context()); err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"language":     s.translator.Language(),
		"translations": s.translator.Table().Len(),
	})
}

func (s *Server) handleMisses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "catalog store is not configured")
		return
	}
	if err := s.translator.FlushMisses(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	misses, err := s.store.ListMisses(r.Context(), r.URL.Query().Get("language"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, misses)
}

func (s *Server) handleCatalogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "catalog store is not configured")
		return
	}
	catalogs, err := s.store.ListCatalogs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, catalogs)
}

func statusFromError(err error) int {
	switch apperr.TypeOf(err) {
	case apperr.ErrConfig, apperr.ErrValidation:
		return http.StatusBadRequest
	case apperr.ErrFileNotFound:
		return http.StatusNotFound
	case apperr.ErrParse:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
