// Package handler provides HTTP handlers for all API endpoints.
// Handlers query SQLite directly via the export views — no service layer.
// Data responses are cached as marshaled bytes and revalidated with ETags.
package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/futbolbase/futbolbase/internal/api/respond"
	"github.com/futbolbase/futbolbase/internal/cache"
	"github.com/futbolbase/futbolbase/internal/config"
	"github.com/futbolbase/futbolbase/internal/export"
)

// cacheTTL is the browser/proxy cache lifetime for data responses. Upstream
// data changes at most a few times per day.
const cacheTTL = cache.TTLData

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	conn  *sql.DB
	cfg   *config.Config
	cache *cache.Cache
}

// New creates a Handler with shared dependencies.
func New(conn *sql.DB, cfg *config.Config, c *cache.Cache) *Handler {
	return &Handler{conn: conn, cfg: cfg, cache: c}
}

// Root serves API info at /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	categories := make([]string, 0, len(h.cfg.Categories))
	for _, cat := range h.cfg.Categories {
		categories = append(categories, cat.Name)
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"name":       "FutbolBase API",
		"status":     "running",
		"season":     h.cfg.SeasonName,
		"categories": categories,
	})
}

// HealthCheck returns basic health status plus cache occupancy.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"cache":     h.cache.Snapshot(),
	})
}

// HealthCheckDB verifies database connectivity.
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.conn.PingContext(r.Context()); err != nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "DB_UNAVAILABLE", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{"status": "healthy"})
}

func (h *Handler) category(name string) (config.CategoryConfig, bool) {
	for _, cat := range h.cfg.Categories {
		if strings.EqualFold(cat.Name, name) {
			return cat, true
		}
	}
	return config.CategoryConfig{}, false
}

// serveCached answers from the response cache when possible, otherwise runs
// build, caches the marshaled result and writes it. The request path is the
// cache key.
func (h *Handler) serveCached(w http.ResponseWriter, r *http.Request, build func() (any, error)) {
	key := r.URL.Path
	if data, etag, ok := h.cache.Get(key); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			w.Header().Set("ETag", etag)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		respond.WriteJSONBytes(w, data, cacheTTL, etag)
		return
	}

	v, err := build()
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "QUERY_FAILED", err.Error())
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODING_FAILED", err.Error())
		return
	}
	etag := h.cache.Set(key, data, cacheTTL)
	respond.WriteJSONBytes(w, data, cacheTTL, etag)
}

// GetCategoryGroups returns a category's groups with classification and
// current-round fixtures.
func (h *Handler) GetCategoryGroups(w http.ResponseWriter, r *http.Request) {
	cat, ok := h.category(chi.URLParam(r, "category"))
	if !ok {
		respond.WriteError(w, http.StatusNotFound, "UNKNOWN_CATEGORY", "no such category")
		return
	}
	h.serveCached(w, r, func() (any, error) {
		groups, err := export.CategoryGroups(r.Context(), h.conn, cat.Name)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"groups": groups,
			"stats":  export.Stats(groups),
		}, nil
	})
}

// GetCategoryScorers returns a category's per-group top-scorer tables.
func (h *Handler) GetCategoryScorers(w http.ResponseWriter, r *http.Request) {
	cat, ok := h.category(chi.URLParam(r, "category"))
	if !ok {
		respond.WriteError(w, http.StatusNotFound, "UNKNOWN_CATEGORY", "no such category")
		return
	}
	h.serveCached(w, r, func() (any, error) {
		entries, err := export.CategoryScorers(r.Context(), h.conn, cat.Name)
		if err != nil {
			return nil, err
		}
		if entries == nil {
			entries = []export.ScorerGroup{}
		}
		return entries, nil
	})
}

// GetHistory returns every stored result grouped by group code and round.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	h.serveCached(w, r, func() (any, error) {
		hist, err := export.History(r.Context(), h.conn)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"history":       hist,
			"total_matches": hist.TotalMatches,
		}, nil
	})
}

// GetMatchDetails returns goal lists keyed by "Home|Away|hs-as".
func (h *Handler) GetMatchDetails(w http.ResponseWriter, r *http.Request) {
	h.serveCached(w, r, func() (any, error) {
		return export.MatchDetails(r.Context(), h.conn)
	})
}

// GetShields returns the team → shield filename map.
func (h *Handler) GetShields(w http.ResponseWriter, r *http.Request) {
	h.serveCached(w, r, func() (any, error) {
		return export.Shields(r.Context(), h.conn)
	})
}

// GetGroupScorers returns the top scorers of one group by its short code.
func (h *Handler) GetGroupScorers(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var groupID int64
	err := h.conn.QueryRowContext(r.Context(),
		`SELECT g.id FROM groups g
		 JOIN seasons s ON g.season_id = s.id
		 WHERE s.is_current = 1 AND g.code = ?`, code).Scan(&groupID)
	if errors.Is(err, sql.ErrNoRows) {
		respond.WriteError(w, http.StatusNotFound, "UNKNOWN_GROUP", "no such group")
		return
	}
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "QUERY_FAILED", err.Error())
		return
	}

	h.serveCached(w, r, func() (any, error) {
		scorers, err := export.GroupScorers(r.Context(), h.conn, groupID)
		if err != nil {
			return nil, err
		}
		if scorers == nil {
			scorers = []export.ScorerEntry{}
		}
		return scorers, nil
	})
}
