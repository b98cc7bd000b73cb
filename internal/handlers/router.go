package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/xelth-com/catalogbot/internal/buildinfo"
	"github.com/xelth-com/catalogbot/internal/catalog"
	"github.com/xelth-com/catalogbot/internal/posting"
	"github.com/xelth-com/catalogbot/internal/pricing"
	"github.com/xelth-com/catalogbot/internal/render"
	"github.com/xelth-com/catalogbot/internal/utils"
	"github.com/xelth-com/catalogbot/internal/websocket"
)

// Deps are the collaborators the HTTP surface needs
type Deps struct {
	Catalog  *catalog.Service
	Renderer *render.Renderer
	Poster   *posting.Poster
	Hub      *websocket.Hub
	Dedup    *utils.Deduplicator
	Pricing  pricing.Policy
	Channels []string
	Logger   *slog.Logger
}

// Router wraps the mux router and the catalog services
type Router struct {
	*mux.Router
	Deps
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(d Deps) *Router {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	r := &Router{
		Router: mux.NewRouter(),
		Deps:   d,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Product routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/products", r.ingestProduct).Methods("POST")
	api.HandleFunc("/products", r.listProducts).Methods("GET")
	api.HandleFunc("/products/{id:[0-9]+}", r.getProduct).Methods("GET")
	api.HandleFunc("/products/{id:[0-9]+}", r.softDeleteProduct).Methods("DELETE")
	api.HandleFunc("/products/{id:[0-9]+}/purge", r.hardDeleteProduct).Methods("DELETE")
	api.HandleFunc("/products/{id:[0-9]+}/restore", r.restoreProduct).Methods("POST")
	api.HandleFunc("/products/{id:[0-9]+}/post", r.postProduct).Methods("POST")
	api.HandleFunc("/images/{id:[0-9]+}", r.deleteImage).Methods("DELETE")

	// Template routes
	api.HandleFunc("/templates", r.listTemplates).Methods("GET")
	api.HandleFunc("/templates", r.saveTemplate).Methods("POST")
	api.HandleFunc("/templates/preview", r.previewTemplate).Methods("POST")

	// Lifecycle events
	if d.Hub != nil {
		r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
			websocket.ServeWs(d.Hub, w, req)
		})
	}

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
		"build":  buildinfo.Current(),
	}
	if r.Hub != nil {
		status["subscribers"] = r.Hub.Count()
	}
	respondJSON(w, http.StatusOK, status)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// statusFor maps catalog error kinds to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrValidation), errors.Is(err, catalog.ErrNotDeleted):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrExternal):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondCatalogError writes err with the status of its kind. Internal
// failures are logged and reported without details.
func (r *Router) respondCatalogError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		r.Logger.Error("request failed", "error", err)
		respondError(w, status, "Internal server error")
		return
	}
	body := map[string]string{"error": err.Error()}
	if field := catalog.ConflictField(err); field != "" {
		body["field"] = field
	}
	respondJSON(w, status, body)
}

func pathID(req *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func queryBool(req *http.Request, key string) bool {
	v, _ := strconv.ParseBool(req.URL.Query().Get(key))
	return v
}
