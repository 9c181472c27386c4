// internal/api/handler.go
package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github-analytics-retriever/internal/model"
	"github-analytics-retriever/internal/store"
)

// Handler is the container for API dependencies.
type Handler struct {
	store  *store.Store
	logger *slog.Logger
}

// TableResponse is the JSON form of a table.
type TableResponse struct {
	Resource   string              `json:"resource"`
	Repository string              `json:"repository,omitempty"`
	Columns    []string            `json:"columns"`
	Rows       []map[string]string `json:"rows"`
}

// NewRouter creates and configures a chi router serving the artifacts in s.
func NewRouter(s *store.Store, logger *slog.Logger) http.Handler {
	h := &Handler{
		store:  s,
		logger: logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.healthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/repositories", h.getRepositories)
		r.Get("/tables/{resource}", h.getMergedTable)
		r.Get("/repos/{name}/{resource}", h.getRepositoryTable)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getRepositories lists the repository names of the last listing.
// GET /v1/repositories
func (h *Handler) getRepositories(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.RepositoryNames()
	if err != nil {
		h.storeError(w, err, "Repository list not found")
		return
	}
	respondWithJSON(w, http.StatusOK, names)
}

// getMergedTable returns the organization-wide table of a resource.
// GET /v1/tables/{resource}
func (h *Handler) getMergedTable(w http.ResponseWriter, r *http.Request) {
	res, ok := parseResource(w, r)
	if !ok {
		return
	}
	table, err := h.store.ReadTable(h.store.MergedPath(res))
	if err != nil {
		h.storeError(w, err, "Merged table not found")
		return
	}
	respondWithJSON(w, http.StatusOK, newTableResponse(res, "", table))
}

// getRepositoryTable returns one repository's table of a resource.
// GET /v1/repos/{name}/{resource}
func (h *Handler) getRepositoryTable(w http.ResponseWriter, r *http.Request) {
	res, ok := parseResource(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")

	table, err := h.store.ReadTable(h.store.TablePath(res, name))
	if err != nil {
		h.storeError(w, err, "Repository table not found")
		return
	}
	respondWithJSON(w, http.StatusOK, newTableResponse(res, name, table))
}

func parseResource(w http.ResponseWriter, r *http.Request) (model.Resource, bool) {
	res, err := model.ParseResource(chi.URLParam(r, "resource"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return res, true
}

func (h *Handler) storeError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, fs.ErrNotExist) {
		respondWithError(w, http.StatusNotFound, notFound)
		return
	}
	h.logger.Error("Failed to read artifact", "error", err)
	respondWithError(w, http.StatusInternalServerError, "Internal server error")
}

func newTableResponse(res model.Resource, repo string, table *model.Table) TableResponse {
	return TableResponse{
		Resource:   res.Dir(),
		Repository: repo,
		Columns:    table.Columns,
		Rows:       table.Records(),
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
