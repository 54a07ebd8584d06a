package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "smartsales/internal/errors"
	"smartsales/internal/olap"
)

// ReportService is the read side the OLAP handler depends on
type ReportService interface {
	Report(ctx context.Context) (*olap.Report, error)
}

// OLAPHandler serves the repeat-customer aggregates
type OLAPHandler struct {
	service      ReportService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewOLAPHandler creates a new OLAP handler
func NewOLAPHandler(service ReportService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *OLAPHandler {
	return &OLAPHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "olap")),
		errorHandler: errorHandler,
	}
}

// Routes returns the OLAP routes
func (h *OLAPHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/categories", h.GetCategories)
	r.Get("/category-regions", h.GetCategoryRegions)
	r.Get("/pivot", h.GetPivot)
	return r
}

// CategoriesResponse is the body of GET /api/olap/categories
type CategoriesResponse struct {
	RepeatCustomers int                    `json:"repeat_customers"`
	RepeatFacts     int                    `json:"repeat_facts"`
	Categories      []olap.CategoryRevenue `json:"categories"`
}

// GetCategories handles GET /api/olap/categories?limit=N
func (h *OLAPHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0, 1000, 0)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	report, err := h.service.Report(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	categories := report.Categories
	if limit > 0 && limit < len(categories) {
		categories = categories[:limit]
	}
	render.JSON(w, r, CategoriesResponse{
		RepeatCustomers: report.RepeatCustomers,
		RepeatFacts:     report.RepeatFacts,
		Categories:      categories,
	})
}

// GetCategoryRegions handles GET /api/olap/category-regions?category=X
func (h *OLAPHandler) GetCategoryRegions(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Report(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	rows := report.CategoryRegions
	if category := r.URL.Query().Get("category"); category != "" {
		filtered := make([]olap.CategoryRegionRevenue, 0)
		for _, row := range rows {
			if row.Category == category {
				filtered = append(filtered, row)
			}
		}
		if len(filtered) == 0 {
			h.errorHandler.HandleError(w, r, apierrors.NotFoundError(fmt.Sprintf("category %q", category)))
			return
		}
		rows = filtered
	}
	render.JSON(w, r, map[string]interface{}{"category_regions": rows})
}

// GetPivot handles GET /api/olap/pivot
func (h *OLAPHandler) GetPivot(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Report(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, report.Pivot)
}

// queryInt reads an optional integer query parameter within [min, max]
func queryInt(r *http.Request, param string, min, max, defaultValue int) (int, error) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < min || n > max {
		return 0, apierrors.NewWithDetails(http.StatusBadRequest, "VALIDATION",
			fmt.Sprintf("%s must be an integer between %d and %d", param, min, max), param)
	}
	return n, nil
}
