// Package manifold reads open binary markets from Manifold through the mango
// client and normalizes them into instruments.
package manifold

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/jonnyspicer/mango"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// MarketSearcher is the part of *mango.Client the fetcher needs.
type MarketSearcher interface {
	SearchMarkets(req mango.SearchMarketsRequest) (*[]mango.FullMarket, error)
}

// Fetcher lists open Manifold binary markets as binary instruments.
type Fetcher struct {
	client MarketSearcher
	logger *slog.Logger
}

// NewFetcher creates a Fetcher. A nil client uses mango's default instance.
func NewFetcher(client MarketSearcher, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = mango.DefaultClientInstance()
	}
	return &Fetcher{client: client, logger: logger}
}

// Venue returns domain.VenueManifold.
func (f *Fetcher) Venue() domain.Venue { return domain.VenueManifold }

// Kind returns domain.PriceModelBinary.
func (f *Fetcher) Kind() domain.PriceModel { return domain.PriceModelBinary }

type searchResult struct {
	markets *[]mango.FullMarket
	err     error
}

// Fetch searches open binary markets sorted by liquidity. mango takes no
// context, so the call runs in its own goroutine and is abandoned when ctx
// ends.
func (f *Fetcher) Fetch(ctx context.Context, limit int) (domain.FetchResult, error) {
	if limit <= 0 {
		limit = 100
	}

	done := make(chan searchResult, 1)
	go func() {
		markets, err := f.client.SearchMarkets(mango.SearchMarketsRequest{
			Filter:       "open",
			ContractType: "BINARY",
			Sort:         "liquidity",
			Limit:        int64(limit),
		})
		done <- searchResult{markets: markets, err: err}
	}()

	var sr searchResult
	select {
	case sr = <-done:
	case <-ctx.Done():
		return domain.FetchResult{}, fmt.Errorf("manifold: search markets: %w", ctx.Err())
	}
	if sr.err != nil {
		return domain.FetchResult{}, fmt.Errorf("manifold: search markets: %w", sr.err)
	}

	var res domain.FetchResult
	if sr.markets == nil {
		return res, nil
	}
	for _, m := range *sr.markets {
		if len(res.Instruments) >= limit {
			break
		}
		if m.OutcomeType != mango.Binary || m.IsResolved {
			continue
		}
		inst, err := Normalize(m)
		if err != nil {
			res.Dropped++
			f.logger.DebugContext(ctx, "dropping manifold market",
				slog.String("id", m.Id),
				slog.String("error", err.Error()),
			)
			continue
		}
		res.Instruments = append(res.Instruments, inst)
	}
	return res, nil
}

// Normalize converts a Manifold binary market. No is the complement of the
// market probability.
func Normalize(m mango.FullMarket) (domain.NormalizedInstrument, error) {
	if math.IsNaN(m.Probability) || math.IsInf(m.Probability, 0) {
		return domain.NormalizedInstrument{}, fmt.Errorf("manifold/%s: %w", m.Id, domain.ErrMissingPrice)
	}
	p := decimal.NewFromFloat(m.Probability)
	no := decimal.NewFromInt(1).Sub(p)
	return domain.NewBinaryInstrument(domain.VenueManifold, m.Id, m.Question,
		p.InexactFloat64(), no.InexactFloat64(), domain.InstrumentMeta{
			Volume:       m.Volume,
			ReferenceURL: m.Url,
		})
}
