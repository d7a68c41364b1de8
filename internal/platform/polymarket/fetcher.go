package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

const marketURL = "https://polymarket.com/event/"

// Fetcher lists open Polymarket markets as binary instruments.
type Fetcher struct {
	client *GammaClient
	logger *slog.Logger
}

// NewFetcher creates a Fetcher backed by the given Gamma client.
func NewFetcher(client *GammaClient, logger *slog.Logger) *Fetcher {
	return &Fetcher{client: client, logger: logger}
}

// Venue returns domain.VenuePolymarket.
func (f *Fetcher) Venue() domain.Venue { return domain.VenuePolymarket }

// Kind returns domain.PriceModelBinary.
func (f *Fetcher) Kind() domain.PriceModel { return domain.PriceModelBinary }

// Fetch reads markets through the events endpoint and falls back to the
// markets endpoint when that fails or returns nothing. At most limit
// instruments are returned when limit > 0.
func (f *Fetcher) Fetch(ctx context.Context, limit int) (domain.FetchResult, error) {
	pageSize := limit
	if pageSize <= 0 {
		pageSize = 100
	}

	var res domain.FetchResult
	seen := make(map[string]bool)
	add := func(m APIMarket, slug string) bool {
		if limit > 0 && len(res.Instruments) >= limit {
			return false
		}
		if bool(m.Closed) || seen[m.MarketID()] {
			return true
		}
		seen[m.MarketID()] = true
		inst, err := Normalize(m, slug)
		if err != nil {
			res.Dropped++
			f.logger.DebugContext(ctx, "dropping polymarket market",
				slog.String("id", m.MarketID()),
				slog.String("error", err.Error()),
			)
			return true
		}
		res.Instruments = append(res.Instruments, inst)
		return true
	}

	events, err := f.client.GetEvents(ctx, pageSize)
	if err != nil {
		f.logger.WarnContext(ctx, "events endpoint failed, trying markets endpoint",
			slog.String("error", err.Error()),
		)
	}
events:
	for _, ev := range events {
		if bool(ev.Closed) {
			continue
		}
		for _, m := range ev.Markets {
			slug := ev.Slug
			if slug == "" {
				slug = m.Slug
			}
			if m.Question == "" {
				m.Question = ev.Title
			}
			if !add(m, slug) {
				break events
			}
		}
	}
	if len(seen) > 0 {
		return res, nil
	}

	markets, err := f.client.GetMarkets(ctx, pageSize)
	if err != nil {
		return domain.FetchResult{}, fmt.Errorf("polymarket: fetch: %w", err)
	}
	for _, m := range markets {
		if !add(m, m.Slug) {
			break
		}
	}
	return res, nil
}

// Normalize converts a Gamma market into a binary instrument. The market must
// list both a Yes and a No outcome with a parseable price.
func Normalize(m APIMarket, slug string) (domain.NormalizedInstrument, error) {
	var yes, no *decimal.Decimal
	for i, outcome := range m.Outcomes {
		if i >= len(m.OutcomePrices) {
			break
		}
		p, err := decimal.NewFromString(strings.TrimSpace(m.OutcomePrices[i]))
		if err != nil {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(outcome)) {
		case domain.OutcomeYes:
			yes = &p
		case domain.OutcomeNo:
			no = &p
		}
	}
	if yes == nil || no == nil {
		return domain.NormalizedInstrument{}, fmt.Errorf("polymarket/%s: %w", m.MarketID(), domain.ErrMissingPrice)
	}

	meta := domain.InstrumentMeta{Volume: float64(m.Volume)}
	if slug != "" {
		meta.ReferenceURL = marketURL + slug
	}
	return domain.NewBinaryInstrument(domain.VenuePolymarket, m.MarketID(), m.Question,
		yes.InexactFloat64(), no.InexactFloat64(), meta)
}
