package hyperliquid

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

const tradeURL = "https://app.hyperliquid.xyz/trade/"

// Fetcher lists listed Hyperliquid perpetuals as funding instruments.
type Fetcher struct {
	client        *Client
	scale         decimal.Decimal
	intervalHours float64
	now           func() time.Time
	logger        *slog.Logger
}

// NewFetcher creates a Fetcher. Hyperliquid pays funding hourly; intervalHours
// and periodsPerDay convert that into the common period.
func NewFetcher(client *Client, intervalHours, periodsPerDay float64, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client:        client,
		scale:         domain.FundingRateScale(intervalHours, periodsPerDay),
		intervalHours: intervalHours,
		now:           time.Now,
		logger:        logger,
	}
}

// Venue returns domain.VenueHyperliquid.
func (f *Fetcher) Venue() domain.Venue { return domain.VenueHyperliquid }

// Kind returns domain.PriceModelFunding.
func (f *Fetcher) Kind() domain.PriceModel { return domain.PriceModelFunding }

// Fetch zips the universe with its asset contexts by index and skips
// delisted assets.
func (f *Fetcher) Fetch(ctx context.Context, limit int) (domain.FetchResult, error) {
	meta, ctxs, err := f.client.MetaAndAssetContexts(ctx)
	if err != nil {
		return domain.FetchResult{}, err
	}

	var res domain.FetchResult
	for i, asset := range meta.Universe {
		if limit > 0 && len(res.Instruments) >= limit {
			break
		}
		if asset.IsDelisted {
			continue
		}
		if i >= len(ctxs) {
			res.Dropped++
			continue
		}
		inst, err := f.Normalize(asset, ctxs[i])
		if err != nil {
			res.Dropped++
			f.logger.DebugContext(ctx, "dropping hyperliquid asset",
				slog.String("name", asset.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		res.Instruments = append(res.Instruments, inst)
	}
	return res, nil
}

// Normalize converts one asset and its context into a funding instrument.
func (f *Fetcher) Normalize(asset Asset, ac AssetContext) (domain.NormalizedInstrument, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(ac.Funding))
	if err != nil {
		return domain.NormalizedInstrument{}, fmt.Errorf("hyperliquid/%s: %w: %q", asset.Name, domain.ErrInvalidRate, ac.Funding)
	}
	volume, _ := strconv.ParseFloat(ac.DayNtlVlm, 64)
	return domain.NewFundingInstrument(domain.VenueHyperliquid, asset.Name, asset.Name,
		rate.Mul(f.scale).InexactFloat64(), domain.InstrumentMeta{
			Volume:       volume,
			ReferenceURL: tradeURL + asset.Name,
			NextFunding:  domain.NextFundingAfter(f.now(), f.intervalHours),
		})
}
