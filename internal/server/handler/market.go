package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// MarketService defines the methods that the market handler requires.
type MarketService interface {
	Markets(ctx context.Context, kind domain.PriceModel, fresh bool) (domain.Snapshot, error)
}

// MarketHandler serves normalized instruments.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{markets: markets, logger: logger}
}

type marketsResponse struct {
	Kind        domain.PriceModel                              `json:"kind"`
	AsOf        time.Time                                      `json:"as_of"`
	Total       int                                            `json:"total"`
	VenueCounts map[domain.Venue]int                           `json:"venue_counts"`
	Dropped     map[domain.Venue]int                           `json:"dropped,omitempty"`
	Errors      map[domain.Venue]string                        `json:"errors,omitempty"`
	Instruments map[domain.Venue][]domain.NormalizedInstrument `json:"instruments"`
}

// ListMarkets returns the instruments of the latest or a fresh snapshot.
// GET /api/markets?kind=binary&fresh=false
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	kind, err := parseKind(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	fresh, err := parseBool(r, "fresh")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	snap, err := h.markets.Markets(r.Context(), kind, fresh)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, marketsResponse{
		Kind:        snap.Kind,
		AsOf:        snap.AsOf,
		Total:       snap.Total(),
		VenueCounts: snap.Counts(),
		Dropped:     snap.Dropped,
		Errors:      snap.Errors,
		Instruments: snap.Instruments,
	})
}

// FundingRow is one symbol across every venue that lists it.
type FundingRow struct {
	Symbol string                   `json:"symbol"`
	Rates  map[domain.Venue]float64 `json:"rates"`
	// Spread is the largest minus the smallest rate; zero for one venue.
	Spread float64 `json:"spread"`
}

// FundingRates returns a symbol-by-venue table of normalized funding rates.
// GET /api/funding-rates?fresh=false
func (h *MarketHandler) FundingRates(w http.ResponseWriter, r *http.Request) {
	fresh, err := parseBool(r, "fresh")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	snap, err := h.markets.Markets(r.Context(), domain.PriceModelFunding, fresh)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"as_of":  snap.AsOf,
		"errors": snap.Errors,
		"rates":  fundingTable(snap),
	})
}

func fundingTable(snap domain.Snapshot) []FundingRow {
	bySymbol := make(map[string]*FundingRow)
	for venue, list := range snap.Instruments {
		for _, inst := range list {
			sym := domain.CanonicalSymbol(inst.KeyText)
			row, ok := bySymbol[sym]
			if !ok {
				row = &FundingRow{Symbol: sym, Rates: make(map[domain.Venue]float64)}
				bySymbol[sym] = row
			}
			row.Rates[venue] = inst.Rate
		}
	}

	rows := make([]FundingRow, 0, len(bySymbol))
	for _, row := range bySymbol {
		first := true
		var lo, hi float64
		for _, rate := range row.Rates {
			if first {
				lo, hi, first = rate, rate, false
				continue
			}
			lo, hi = min(lo, rate), max(hi, rate)
		}
		row.Spread = hi - lo
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Spread != rows[j].Spread {
			return rows[i].Spread > rows[j].Spread
		}
		return rows[i].Symbol < rows[j].Symbol
	})
	return rows
}
