package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/xelth-com/catalogbot/internal/render"
)

type templateRequest struct {
	Name      string `json:"name"`
	Content   string `json:"content"`
	ProductID uint   `json:"product_id"`
}

// listTemplates returns all stored templates
func (r *Router) listTemplates(w http.ResponseWriter, req *http.Request) {
	templates, err := r.Catalog.ListTemplates(req.Context())
	if err != nil {
		r.respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"templates":    templates,
		"placeholders": render.Placeholders,
	})
}

// saveTemplate validates placeholders and stores a template
func (r *Router) saveTemplate(w http.ResponseWriter, req *http.Request) {
	var body templateRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := r.Renderer.Validate(body.Content); err != nil {
		r.respondCatalogError(w, err)
		return
	}
	t, err := r.Catalog.SaveTemplate(req.Context(), body.Name, body.Content)
	if err != nil {
		r.respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

// previewTemplate renders content against a product without posting
func (r *Router) previewTemplate(w http.ResponseWriter, req *http.Request) {
	var body templateRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := r.Renderer.Validate(body.Content); err != nil {
		r.respondCatalogError(w, err)
		return
	}
	p, err := r.Catalog.GetProduct(req.Context(), body.ProductID, false)
	if err != nil {
		r.respondCatalogError(w, err)
		return
	}
	text, err := r.Renderer.Render(body.Content, p)
	if err != nil {
		r.respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"text": text})
}
