package arbitrage

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// FundingConfig configures the funding-rate evaluator.
type FundingConfig struct {
	// Materiality is the rate spread, in the common funding period, that a
	// group must strictly exceed before it is reported.
	Materiality float64
	// PeriodsPerDay is the number of funding settlements per day for the
	// common period the venue rates were normalized to.
	PeriodsPerDay float64
	// NotionalUSD sizes the informational profit estimate.
	NotionalUSD float64
	// FeeBps is the per-side taker fee of each venue in basis points.
	FeeBps map[domain.Venue]float64
}

// DefaultFundingConfig mirrors the eight-hour settlement cadence of the
// venues this engine was first built for.
func DefaultFundingConfig() FundingConfig {
	return FundingConfig{
		Materiality:   0.0001,
		PeriodsPerDay: 3,
		NotionalUSD:   10000,
	}
}

// FundingSpread evaluates funding-rate groups. A positive rate means longs
// pay shorts, so the position is short where the rate is highest and long
// where it is lowest; the pair collects the difference every period while
// the price exposure cancels out.
type FundingSpread struct {
	cfg FundingConfig
}

// NewFundingSpread returns the funding-rate evaluator.
func NewFundingSpread(cfg FundingConfig) *FundingSpread {
	if cfg.PeriodsPerDay <= 0 {
		cfg.PeriodsPerDay = 3
	}
	if cfg.NotionalUSD <= 0 {
		cfg.NotionalUSD = 10000
	}
	return &FundingSpread{cfg: cfg}
}

// Name returns the strategy identifier.
func (f *FundingSpread) Name() string { return "funding_spread" }

// Model returns the price model this evaluator handles.
func (f *FundingSpread) Model() domain.PriceModel { return domain.PriceModelFunding }

// Evaluate compares the lowest and highest rate in the group. Ties go to the
// member listed first, which is the lower venue name.
func (f *FundingSpread) Evaluate(group domain.MatchedGroup, asOf time.Time) []domain.Opportunity {
	if len(group.Members) < 2 {
		return nil
	}
	low, high := group.Members[0], group.Members[0]
	for _, m := range group.Members[1:] {
		if m.Rate < low.Rate {
			low = m
		}
		if m.Rate > high.Rate {
			high = m
		}
	}

	diff := decimal.NewFromFloat(high.Rate).Sub(decimal.NewFromFloat(low.Rate))
	if !diff.Abs().GreaterThan(decimal.NewFromFloat(f.cfg.Materiality)) {
		return nil
	}
	periodic := diff.Mul(decimal.NewFromFloat(f.cfg.PeriodsPerDay))

	return []domain.Opportunity{{
		ID:            stableID(group.ID, f.Name(), high.Ref(), low.Ref()),
		GroupID:       group.ID,
		Kind:          domain.PriceModelFunding,
		Strategy:      f.Name(),
		KeyText:       group.KeyText,
		StrategyLabel: fmt.Sprintf("Short %s on %s and long %s on %s", group.KeyText, high.Venue, group.KeyText, low.Venue),
		Legs: []domain.Leg{
			{
				Venue:        high.Venue,
				InstrumentID: high.ID,
				KeyText:      high.KeyText,
				Side:         domain.SideShort,
				Price:        high.Rate,
				ReferenceURL: high.ReferenceURL,
			},
			{
				Venue:        low.Venue,
				InstrumentID: low.ID,
				KeyText:      low.KeyText,
				Side:         domain.SideLong,
				Price:        low.Rate,
				ReferenceURL: low.ReferenceURL,
			},
		},
		RateSpread:              diff.InexactFloat64(),
		EstimatedPeriodicProfit: periodic.InexactFloat64(),
		ExpectedReturn:          periodic.InexactFloat64(),
		Funding:                 f.estimate(periodic, high, low, asOf),
		ComputedAt:              asOf,
	}}
}

func (f *FundingSpread) estimate(periodic decimal.Decimal, short, long domain.NormalizedInstrument, asOf time.Time) *domain.FundingEstimate {
	notional := decimal.NewFromFloat(f.cfg.NotionalUSD)
	daily := periodic.Mul(notional)
	feeBps := decimal.NewFromFloat(f.cfg.FeeBps[short.Venue] + f.cfg.FeeBps[long.Venue])
	// Both legs are opened and later closed.
	fees := notional.Mul(feeBps).Div(decimal.NewFromInt(10000)).Mul(decimal.NewFromInt(2))
	apr := daily.Mul(decimal.NewFromInt(365)).Sub(fees).Div(notional).Mul(hundred)
	next, hours := nextFunding(short.NextFunding, long.NextFunding, asOf)

	return &domain.FundingEstimate{
		NotionalUSD: f.cfg.NotionalUSD,
		DailyUSD:    daily.InexactFloat64(),
		WeeklyUSD:   daily.Mul(decimal.NewFromInt(7)).InexactFloat64(),
		MonthlyUSD:  daily.Mul(decimal.NewFromInt(30)).InexactFloat64(),
		FeesUSD:     fees.InexactFloat64(),
		NetAPR:      apr.InexactFloat64(),

		NextFundingAt:      next,
		HoursToNextFunding: hours,
	}
}

// nextFunding returns the earlier non-zero settlement of the two legs and
// the hours from asOf until then, floored at zero.
func nextFunding(a, b, asOf time.Time) (time.Time, float64) {
	next := a
	if next.IsZero() || (!b.IsZero() && b.Before(next)) {
		next = b
	}
	if next.IsZero() {
		return time.Time{}, 0
	}
	return next, max(next.Sub(asOf).Hours(), 0)
}
