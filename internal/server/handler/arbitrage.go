package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/service"
)

// ArbService defines the methods that the arbitrage handler requires.
type ArbService interface {
	Evaluate(ctx context.Context, q service.Query) (domain.Report, error)
	Latest(ctx context.Context, kind domain.PriceModel) (domain.Report, error)
}

// ArbHandler serves the opportunity endpoints.
type ArbHandler struct {
	arb    ArbService
	logger *slog.Logger
}

// NewArbHandler creates an ArbHandler with the given service and logger.
func NewArbHandler(arb ArbService, logger *slog.Logger) *ArbHandler {
	return &ArbHandler{arb: arb, logger: logger}
}

// Evaluate ranks opportunities for one price model.
// GET /api/arbitrage?kind=binary&limit=20&min_return=1&similarity=0.8&fresh=true
func (h *ArbHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	report, err := h.arb.Evaluate(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Latest returns the report of the last scheduled scan.
// GET /api/arbitrage/latest?kind=funding
func (h *ArbHandler) Latest(w http.ResponseWriter, r *http.Request) {
	kind, err := parseKind(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	report, err := h.arb.Latest(r.Context(), kind)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func parseQuery(r *http.Request) (service.Query, error) {
	var q service.Query
	var err error

	if q.Kind, err = parseKind(r); err != nil {
		return q, err
	}
	if q.Limit, err = parseLimit(r); err != nil {
		return q, err
	}
	if q.MinReturn, err = parseOptionalFloat(r, "min_return"); err != nil {
		return q, err
	}
	sim, err := parseOptionalFloat(r, "similarity")
	if err != nil {
		return q, err
	}
	if sim != nil {
		if *sim <= 0 || *sim > 1 {
			return q, invalid("similarity must be in (0, 1], got %v", *sim)
		}
		q.Similarity = *sim
	}
	if q.Fresh, err = parseBool(r, "fresh"); err != nil {
		return q, err
	}
	return q, nil
}
