package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/xelth-com/catalogbot/internal/catalog"
	"github.com/xelth-com/catalogbot/internal/models"
)

// productView is the API representation of a product
type productView struct {
	*models.Product
	SellPrice *float64 `json:"sell_price"`
}

func (r *Router) view(p *models.Product) productView {
	v := productView{Product: p}
	if sell, err := r.Pricing.SellPrice(p.Price); err == nil {
		v.SellPrice = &sell
	}
	return v
}

// ingestProduct creates or updates a product from scraped data
func (r *Router) ingestProduct(w http.ResponseWriter, req *http.Request) {
	requestID := req.Header.Get("X-Request-ID")
	if r.Dedup != nil && r.Dedup.IsDuplicate(requestID) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "duplicate", "request_id": requestID})
		return
	}

	var payload catalog.ProductPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		r.forget(requestID)
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	res, err := r.Catalog.Ingest(req.Context(), &payload, catalog.IngestOptions{
		DownloadImages: queryBool(req, "download"),
	})
	if err != nil {
		r.forget(requestID)
		r.respondCatalogError(w, err)
		return
	}

	status := http.StatusOK
	if res.Action == catalog.ActionCreated {
		status = http.StatusCreated
	}
	respondJSON(w, status, map[string]interface{}{
		"action":     res.Action,
		"match_type": res.MatchType,
		"product":    r.view(res.Product),
		"diff":       res.Diff,
		"summary":    res.Summary,
	})
}

func (r *Router) forget(requestID string) {
	if r.Dedup != nil && requestID != "" {
		r.Dedup.Forget(requestID)
	}
}

// listProducts returns products, ?include_deleted=true&sort=price&desc=true
func (r *Router) listProducts(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	products, err := r.Catalog.ListProducts(req.Context(), catalog.ListOptions{
		IncludeDeleted: queryBool(req, "include_deleted"),
		SortBy:         q.Get("sort"),
		Desc:           queryBool(req, "desc"),
	})
	if err != nil {
		r.respondCatalogError(w, err)
		return
	}

	views := make([]productView, len(products))
	for i := range products {
		views[i] = r.view(&products[i])
	}
	respondJSON(w, http.StatusOK, views)
}

// getProduct returns a single product by ID
func (r *Router) getProduct(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}
	p, err := r.Catalog.GetProduct(req.Context(), id, queryBool(req, "include_deleted"))
	if err != nil {
		r.respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, r.view(p))
}

// softDeleteProduct hides a product, its images and sizes
func (r *Router) softDeleteProduct(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}
	if _, err := r.Catalog.SoftDelete(req.Context(), id); err != nil {
		r.respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"id": id, "status": "deleted"})
}

// hardDeleteProduct removes a product permanently
func (r *Router) hardDeleteProduct(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}
	if _, err := r.Catalog.HardDelete(req.Context(), id); err != nil {
		r.respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"id": id, "status": "purged"})
}

// restoreProduct brings a soft-deleted product back
func (r *Router) restoreProduct(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}
	if _, err := r.Catalog.Restore(req.Context(), id); err != nil {
		r.respondCatalogError(w, err)
		return
	}
	p, err := r.Catalog.GetProduct(req.Context(), id, false)
	if err != nil {
		r.respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, r.view(p))
}

// deleteImage soft-deletes one image
func (r *Router) deleteImage(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid image ID")
		return
	}
	if _, err := r.Catalog.DeleteImage(req.Context(), id); err != nil {
		r.respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"id": id, "status": "deleted"})
}

type postRequest struct {
	Template string   `json:"template"`
	Content  string   `json:"content"`
	Channels []string `json:"channels"`
}

// postProduct publishes a product to Telegram channels. The body names a
// stored template or carries inline content; channels default to config.
func (r *Router) postProduct(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}
	if r.Poster == nil {
		respondError(w, http.StatusServiceUnavailable, "Telegram posting is not configured")
		return
	}

	var body postRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	content := body.Content
	if body.Template != "" {
		t, err := r.Catalog.GetTemplate(req.Context(), body.Template)
		if err != nil {
			r.respondCatalogError(w, err)
			return
		}
		content = t.Content
	}
	if content == "" {
		respondError(w, http.StatusBadRequest, "template or content is required")
		return
	}
	channels := body.Channels
	if len(channels) == 0 {
		channels = r.Channels
	}

	res, err := r.Poster.Post(req.Context(), id, content, channels)
	if err != nil {
		if res != nil && statusFor(err) == http.StatusBadGateway {
			respondJSON(w, http.StatusBadGateway, map[string]interface{}{"error": err.Error(), "result": res})
			return
		}
		r.respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
