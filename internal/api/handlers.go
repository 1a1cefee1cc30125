package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/oyilmaz/priceradar/internal/models"
	"github.com/oyilmaz/priceradar/internal/resolver"
)

type Handlers struct {
	resolver *resolver.Resolver
	logger   *slog.Logger
}

func NewHandlers(r *resolver.Resolver, logger *slog.Logger) *Handlers {
	return &Handlers{
		resolver: r,
		logger:   logger,
	}
}

// ResolveResponse is the JSON shape of a single-pair resolution.
type ResolveResponse struct {
	ProductName   string   `json:"product_name"`
	Marketplace   string   `json:"marketplace"`
	URL           string   `json:"url,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	Currency      string   `json:"currency,omitempty"`
	Title         string   `json:"title,omitempty"`
	Success       bool     `json:"success"`
	LowConfidence bool     `json:"low_confidence,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// SearchAndRedirect resolves one product on one marketplace and sends
// the caller to the found product page.
func (h *Handlers) SearchAndRedirect(w http.ResponseWriter, r *http.Request) {
	product, marketplace, ok := h.parsePair(w, r)
	if !ok {
		return
	}

	result := h.resolver.Resolve(r.Context(), product, marketplace)
	if !result.Success || result.URL == "" {
		h.respondError(w, failureStatus(result.Error), result.Error)
		return
	}

	http.Redirect(w, r, result.URL, http.StatusFound)
}

// Resolve returns the full resolution as JSON instead of redirecting.
func (h *Handlers) Resolve(w http.ResponseWriter, r *http.Request) {
	product, marketplace, ok := h.parsePair(w, r)
	if !ok {
		return
	}

	result := h.resolver.Resolve(r.Context(), product, marketplace)
	h.respondJSON(w, http.StatusOK, ResolveResponse{
		ProductName:   result.ProductName,
		Marketplace:   string(result.Marketplace),
		URL:           result.URL,
		Price:         result.Price,
		Currency:      result.Currency,
		Title:         result.Title,
		Success:       result.Success,
		LowConfidence: result.LowConfidence,
		Error:         result.Error,
	})
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) parsePair(w http.ResponseWriter, r *http.Request) (models.ProductRecord, models.Marketplace, bool) {
	query := r.URL.Query()

	name := query.Get("product")
	if name == "" {
		h.respondError(w, http.StatusBadRequest, "product is required")
		return models.ProductRecord{}, "", false
	}

	marketplace, ok := models.ParseMarketplace(query.Get("marketplace"))
	if !ok {
		h.respondError(w, http.StatusBadRequest, "unknown marketplace")
		return models.ProductRecord{}, "", false
	}

	product := models.ProductRecord{
		Name:       name,
		ExternalID: query.Get("ean"),
	}
	if raw := query.Get("reference_price"); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value > 0 {
			product.ReferencePrice = &value
		}
	}
	return product, marketplace, true
}

// failureStatus maps a terminal failure reason onto the HTTP status a
// redirect caller can act on.
func failureStatus(reason string) int {
	switch reason {
	case resolver.ReasonUpstreamError:
		return http.StatusBadGateway
	case resolver.ReasonUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusNotFound
	}
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
