package kalshi

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Quote sides.
const (
	SideAsk = "ask"
	SideBid = "bid"
)

const (
	marketURL   = "https://kalshi.com/markets/"
	maxPageSize = 1000
)

var hundredCents = decimal.NewFromInt(100)

// Fetcher lists open Kalshi markets as binary instruments.
type Fetcher struct {
	client *Client
	side   string
	logger *slog.Logger
}

// NewFetcher creates a Fetcher that quotes the given side ("ask" or "bid").
// Anything else selects the ask.
func NewFetcher(client *Client, side string, logger *slog.Logger) *Fetcher {
	side = strings.ToLower(strings.TrimSpace(side))
	if side != SideBid {
		side = SideAsk
	}
	return &Fetcher{client: client, side: side, logger: logger}
}

// Venue returns domain.VenueKalshi.
func (f *Fetcher) Venue() domain.Venue { return domain.VenueKalshi }

// Kind returns domain.PriceModelBinary.
func (f *Fetcher) Kind() domain.PriceModel { return domain.PriceModelBinary }

// Fetch pages through open markets until limit markets have been read or
// the cursor runs out.
func (f *Fetcher) Fetch(ctx context.Context, limit int) (domain.FetchResult, error) {
	if limit <= 0 {
		limit = 100
	}

	var res domain.FetchResult
	read := 0
	cursor := ""
	for read < limit {
		pageSize := min(limit-read, maxPageSize)
		page, err := f.client.GetMarkets(ctx, "open", pageSize, cursor)
		if err != nil {
			if read > 0 {
				f.logger.WarnContext(ctx, "kalshi pagination stopped early",
					slog.Int("read", read),
					slog.String("error", err.Error()),
				)
				break
			}
			return domain.FetchResult{}, fmt.Errorf("kalshi: fetch: %w", err)
		}

		for _, m := range page.Markets {
			if read >= limit {
				break
			}
			read++
			inst, err := Normalize(m, f.side)
			if err != nil {
				res.Dropped++
				f.logger.DebugContext(ctx, "dropping kalshi market",
					slog.String("ticker", m.Ticker),
					slog.String("error", err.Error()),
				)
				continue
			}
			res.Instruments = append(res.Instruments, inst)
		}

		if page.Cursor == "" || len(page.Markets) == 0 {
			break
		}
		cursor = page.Cursor
	}
	return res, nil
}

// Normalize converts a Kalshi market into a binary instrument using the
// quotes of the given side.
func Normalize(m KalshiMarket, side string) (domain.NormalizedInstrument, error) {
	yesCents, noCents := m.YesAsk, m.NoAsk
	if side == SideBid {
		yesCents, noCents = m.YesBid, m.NoBid
	}

	yes, err := centsToProbability(yesCents, side)
	if err != nil {
		return domain.NormalizedInstrument{}, fmt.Errorf("kalshi/%s: yes: %w", m.Ticker, err)
	}
	no, err := centsToProbability(noCents, side)
	if err != nil {
		return domain.NormalizedInstrument{}, fmt.Errorf("kalshi/%s: no: %w", m.Ticker, err)
	}

	return domain.NewBinaryInstrument(domain.VenueKalshi, m.Ticker, m.Title, yes, no, domain.InstrumentMeta{
		Volume:       m.Volume,
		ReferenceURL: marketURL + m.Ticker,
	})
}

// centsToProbability converts a quote in cents to [0,1]. An ask of zero means
// nobody is offering and is treated as missing.
func centsToProbability(cents *float64, side string) (float64, error) {
	if cents == nil {
		return 0, domain.ErrMissingPrice
	}
	c := *cents
	if c < 0 || c > 100 {
		return 0, fmt.Errorf("%w: %v cents", domain.ErrPriceOutOfRange, c)
	}
	if side == SideAsk && c == 0 {
		return 0, domain.ErrMissingPrice
	}
	return decimal.NewFromFloat(c).Div(hundredCents).InexactFloat64(), nil
}
