package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/patelpratyush/neomart-demo/internal/catalog"
	"github.com/patelpratyush/neomart-demo/internal/domain"
	apperrors "github.com/patelpratyush/neomart-demo/pkg/errors"
	"github.com/patelpratyush/neomart-demo/pkg/httputil"
	"github.com/patelpratyush/neomart-demo/pkg/pagination"
)

// CatalogHandler handles HTTP requests for catalog browsing.
type CatalogHandler struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(c *catalog.Catalog, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: c,
		logger:  logger,
	}
}

// ListCategories handles GET /api/v1/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.catalog.Categories())
}

// GetCategory handles GET /api/v1/categories/{slug}
func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.catalog.Category(chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, category)
}

// ListCorners handles GET /api/v1/categories/{slug}/corners
func (h *CatalogHandler) ListCorners(w http.ResponseWriter, r *http.Request) {
	corners, err := h.catalog.Corners(chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, corners)
}

// ListProducts handles GET /api/v1/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := catalog.Filter{
		Category: q.Get("category"),
		Section:  q.Get("section"),
		Corner:   q.Get("corner"),
	}

	if raw := q.Get("source"); raw != "" {
		src, err := domain.ParseSource(raw)
		if err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput(err.Error()), h.logger)
			return
		}
		filter.Source = src
	}
	if raw := q.Get("dietary"); raw != "" {
		tag := domain.DietaryTag(raw)
		if !tag.Valid() {
			httputil.WriteError(w, r, apperrors.InvalidInput("unknown dietary tag "+raw), h.logger)
			return
		}
		filter.Dietary = tag
	}

	result := h.catalog.Products(filter, pagination.FromRequest(r))
	httputil.WriteJSON(w, http.StatusOK, result)
}

// GetProduct handles GET /api/v1/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.Product(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, product)
}

// ListSubstitutes handles GET /api/v1/products/{id}/substitutes
func (h *CatalogHandler) ListSubstitutes(w http.ResponseWriter, r *http.Request) {
	subs, err := h.catalog.Substitutes(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, subs)
}
