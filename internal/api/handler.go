// Package api exposes the query compiler and diagnostic orchestrator over
// HTTP: compile, run, diagnose, and catalog inspection endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"cpg-insights/internal/catalog"
	"cpg-insights/internal/domain"
	"cpg-insights/internal/service/diagnostic"
	"cpg-insights/internal/service/query"
)

// maxRequestBody caps JSON request bodies at 1 MiB. Semantic queries are
// small; anything bigger is malformed or hostile.
const maxRequestBody = 1 << 20

// Handler serves the HTTP API.
type Handler struct {
	queries     *query.Service
	diagnostics *diagnostic.Service
	catalog     *catalog.Store
	logger      *slog.Logger
}

// NewHandler creates the API handler.
func NewHandler(queries *query.Service, diagnostics *diagnostic.Service, store *catalog.Store, logger *slog.Logger) *Handler {
	return &Handler{queries: queries, diagnostics: diagnostics, catalog: store, logger: logger}
}

// Routes builds the router with standard middleware.
func (h *Handler) Routes(allowedOrigins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.health)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/queries", func(r chi.Router) {
			r.Post("/compile", h.compileQuery)
			r.Post("/run", h.runQuery)
			r.Post("/diagnose", h.diagnoseQuery)
		})
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/metrics", h.listMetrics)
			r.Get("/dimensions", h.listDimensions)
			r.Post("/reload", h.reloadCatalog)
		})
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	snap := h.catalog.Current()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"catalog_version": snap.Version(),
	})
}

func (h *Handler) compileQuery(w http.ResponseWriter, r *http.Request) {
	q, ok := h.decodeQuery(w, r)
	if !ok {
		return
	}
	result, err := h.queries.Compile(r.Context(), q, nil)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) runQuery(w http.ResponseWriter, r *http.Request) {
	q, ok := h.decodeQuery(w, r)
	if !ok {
		return
	}
	result, err := h.queries.Run(r.Context(), q, nil)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, runResponse(result))
}

func (h *Handler) diagnoseQuery(w http.ResponseWriter, r *http.Request) {
	q, ok := h.decodeQuery(w, r)
	if !ok {
		return
	}
	report, err := h.diagnostics.Diagnose(r.Context(), q, nil)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) listMetrics(w http.ResponseWriter, r *http.Request) {
	snap := h.catalog.Current()
	metrics := snap.Metrics()
	out := make([]metricResponse, len(metrics))
	for i, m := range metrics {
		out[i] = metricToAPI(m)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"catalog_version": snap.Version(),
		"metrics":         out,
	})
}

func (h *Handler) listDimensions(w http.ResponseWriter, r *http.Request) {
	snap := h.catalog.Current()
	dims := snap.Dimensions()
	out := make([]dimensionResponse, len(dims))
	for i, d := range dims {
		out[i] = dimensionToAPI(d)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"catalog_version": snap.Version(),
		"dimensions":      out,
	})
}

func (h *Handler) reloadCatalog(w http.ResponseWriter, r *http.Request) {
	snap, err := h.catalog.Reload()
	if err != nil {
		h.writeError(w, domain.ErrValidation("catalog reload failed: %v", err))
		return
	}
	h.logger.Info("catalog reloaded", "catalog_version", snap.Version())
	h.writeJSON(w, http.StatusOK, map[string]any{
		"catalog_version": snap.Version(),
		"loaded_at":       snap.LoadedAt(),
	})
}

func (h *Handler) decodeQuery(w http.ResponseWriter, r *http.Request) (domain.SemanticQuery, bool) {
	var q domain.SemanticQuery
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&q); err != nil {
		h.writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return domain.SemanticQuery{}, false
	}
	if !q.Intent.Valid() {
		h.writeError(w, domain.ErrValidation("unknown intent %q", q.Intent))
		return domain.SemanticQuery{}, false
	}
	return q, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := httpStatusFromDomainError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "status", status, "error", err)
	}
	h.writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": err.Error(),
			"details": errorDetails(err),
		},
	})
}
