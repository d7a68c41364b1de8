package domain

import (
	"math"
	"time"
)

// MatchedGroup is a set of instruments from distinct venues judged to be the
// same question or symbol. Members are sorted by venue.
type MatchedGroup struct {
	ID            string                 `json:"id"`
	Model         PriceModel             `json:"model"`
	KeyText       string                 `json:"key_text"`
	Members       []NormalizedInstrument `json:"members"`
	MinSimilarity float64                `json:"min_similarity"`
}

// Venues returns the member venues in order.
func (g MatchedGroup) Venues() []Venue {
	out := make([]Venue, len(g.Members))
	for i, m := range g.Members {
		out[i] = m.Venue
	}
	return out
}

// Position sides used in Leg.Side.
const (
	SideYes   = "yes"
	SideNo    = "no"
	SideLong  = "long"
	SideShort = "short"
)

// Leg is one position of a recommended strategy.
type Leg struct {
	Venue        Venue   `json:"venue"`
	InstrumentID string  `json:"instrument_id"`
	KeyText      string  `json:"key_text"`
	Side         string  `json:"side"`
	Price        float64 `json:"price"`
	ReferenceURL string  `json:"reference_url,omitempty"`
}

// FundingEstimate is informational sizing for a funding-rate opportunity. It
// never feeds ranking.
type FundingEstimate struct {
	NotionalUSD float64 `json:"notional_usd"`
	DailyUSD    float64 `json:"daily_usd"`
	WeeklyUSD   float64 `json:"weekly_usd"`
	MonthlyUSD  float64 `json:"monthly_usd"`
	FeesUSD     float64 `json:"fees_usd"`
	NetAPR      float64 `json:"net_apr"`
	// NextFundingAt is the earliest next settlement of the two legs. It is
	// zero when neither venue reported one.
	NextFundingAt      time.Time `json:"next_funding_at,omitzero"`
	HoursToNextFunding float64   `json:"hours_to_next_funding"`
}

// Opportunity is a recommended pair of opposing positions derived from one
// MatchedGroup.
type Opportunity struct {
	ID            string     `json:"id"`
	GroupID       string     `json:"group_id"`
	Kind          PriceModel `json:"kind"`
	Strategy      string     `json:"strategy"`
	KeyText       string     `json:"key_text"`
	StrategyLabel string     `json:"strategy_label"`
	Legs          []Leg      `json:"legs"`

	// Binary model.
	Cost   float64 `json:"cost,omitempty"`
	Profit float64 `json:"profit,omitempty"`

	// Funding model.
	RateSpread              float64          `json:"rate_spread,omitempty"`
	EstimatedPeriodicProfit float64          `json:"estimated_periodic_profit,omitempty"`
	Funding                 *FundingEstimate `json:"funding,omitempty"`

	ExpectedReturn float64   `json:"expected_return"`
	ComputedAt     time.Time `json:"computed_at"`
}

// Score is the metric used for both filtering and ordering.
func (o Opportunity) Score() float64 {
	if o.Kind == PriceModelFunding {
		return math.Abs(o.EstimatedPeriodicProfit)
	}
	return o.ExpectedReturn
}

// Snapshot is the set of instruments collected for one price model at one
// logical time. Every queried venue appears in Instruments, possibly with an
// empty list.
type Snapshot struct {
	Kind        PriceModel                       `json:"kind"`
	AsOf        time.Time                        `json:"as_of"`
	Instruments map[Venue][]NormalizedInstrument `json:"instruments"`
	Dropped     map[Venue]int                    `json:"dropped,omitempty"`
	Errors      map[Venue]string                 `json:"errors,omitempty"`
}

// Total returns the number of instruments across all venues.
func (s Snapshot) Total() int {
	n := 0
	for _, list := range s.Instruments {
		n += len(list)
	}
	return n
}

// Counts returns the instrument count per venue, zero included.
func (s Snapshot) Counts() map[Venue]int {
	out := make(map[Venue]int, len(s.Instruments))
	for v, list := range s.Instruments {
		out[v] = len(list)
	}
	return out
}

// Filters echoes the parameters a report was produced with.
type Filters struct {
	MinReturn           float64 `json:"min_return"`
	Limit               int     `json:"limit"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
}

// Report is the engine's result for one snapshot.
type Report struct {
	Kind            PriceModel       `json:"kind"`
	Opportunities   []Opportunity    `json:"opportunities"`
	Count           int              `json:"count"`
	TotalCandidates int              `json:"total_candidates"`
	GroupsMatched   int              `json:"groups_matched"`
	VenueCounts     map[Venue]int    `json:"venue_counts"`
	VenueErrors     map[Venue]string `json:"venue_errors,omitempty"`
	Rejected        int              `json:"rejected,omitempty"`
	FiltersUsed     Filters          `json:"filters_used"`
	SnapshotAt      time.Time        `json:"snapshot_at"`
	GeneratedAt     time.Time        `json:"generated_at"`
}
