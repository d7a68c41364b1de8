package dydx

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

const tradeURL = "https://dydx.trade/trade/"

// Fetcher lists active dYdX perpetuals as funding instruments.
type Fetcher struct {
	client *Client
	// scale converts a venue-interval rate into the common funding period.
	scale         decimal.Decimal
	intervalHours float64
	now           func() time.Time
	logger        *slog.Logger
}

// NewFetcher creates a Fetcher. intervalHours is the venue's funding
// interval (one hour on v4) and periodsPerDay the number of common periods
// per day that rates are expressed in.
func NewFetcher(client *Client, intervalHours, periodsPerDay float64, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client:        client,
		scale:         domain.FundingRateScale(intervalHours, periodsPerDay),
		intervalHours: intervalHours,
		now:           time.Now,
		logger:        logger,
	}
}

// Venue returns domain.VenueDydx.
func (f *Fetcher) Venue() domain.Venue { return domain.VenueDydx }

// Kind returns domain.PriceModelFunding.
func (f *Fetcher) Kind() domain.PriceModel { return domain.PriceModelFunding }

// Fetch reads perpetual markets, keeps the active ones and returns at most
// limit of them in ticker order.
func (f *Fetcher) Fetch(ctx context.Context, limit int) (domain.FetchResult, error) {
	markets, err := f.client.GetPerpetualMarkets(ctx, limit)
	if err != nil {
		return domain.FetchResult{}, err
	}

	tickers := make([]string, 0, len(markets))
	for t := range markets {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	var res domain.FetchResult
	for _, t := range tickers {
		if limit > 0 && len(res.Instruments) >= limit {
			break
		}
		m := markets[t]
		if m.Ticker == "" {
			m.Ticker = t
		}
		if !strings.EqualFold(m.Status, "ACTIVE") {
			continue
		}
		inst, err := f.Normalize(m)
		if err != nil {
			res.Dropped++
			f.logger.DebugContext(ctx, "dropping dydx market",
				slog.String("ticker", m.Ticker),
				slog.String("error", err.Error()),
			)
			continue
		}
		res.Instruments = append(res.Instruments, inst)
	}
	return res, nil
}

// Normalize converts a perpetual market into a funding instrument with its
// rate scaled to the common period.
func (f *Fetcher) Normalize(m PerpetualMarket) (domain.NormalizedInstrument, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(m.NextFundingRate))
	if err != nil {
		return domain.NormalizedInstrument{}, fmt.Errorf("dydx/%s: %w: %q", m.Ticker, domain.ErrInvalidRate, m.NextFundingRate)
	}
	volume, _ := strconv.ParseFloat(m.Volume24H, 64)
	return domain.NewFundingInstrument(domain.VenueDydx, m.Ticker, m.Ticker,
		rate.Mul(f.scale).InexactFloat64(), domain.InstrumentMeta{
			Volume:       volume,
			ReferenceURL: tradeURL + m.Ticker,
			NextFunding:  domain.NextFundingAfter(f.now(), f.intervalHours),
		})
}
