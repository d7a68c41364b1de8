package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Venue identifies an external trading platform.
type Venue string

const (
	VenuePolymarket  Venue = "polymarket"
	VenueKalshi      Venue = "kalshi"
	VenueManifold    Venue = "manifold"
	VenueDydx        Venue = "dydx"
	VenueHyperliquid Venue = "hyperliquid"
)

// PriceModel selects how an instrument is priced and therefore which
// evaluator handles it.
type PriceModel string

const (
	// PriceModelBinary is a two-outcome market quoted as probabilities.
	PriceModelBinary PriceModel = "binary"
	// PriceModelFunding is a perpetual swap quoted by its periodic funding rate.
	PriceModelFunding PriceModel = "funding"
)

// ParsePriceModel maps a user-supplied string to a PriceModel.
func ParsePriceModel(s string) (PriceModel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "binary", "prediction", "":
		return PriceModelBinary, nil
	case "funding", "funding_rate", "perp":
		return PriceModelFunding, nil
	default:
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidParams, s)
	}
}

// Outcome names used in NormalizedInstrument.Prices.
const (
	OutcomeYes = "yes"
	OutcomeNo  = "no"
)

// NormalizedInstrument is one venue's listing reduced to the shape the
// matcher and evaluators work on. Values are built through NewBinaryInstrument
// or NewFundingInstrument and are never mutated afterwards.
type NormalizedInstrument struct {
	Venue        Venue              `json:"venue"`
	ID           string             `json:"id"`
	KeyText      string             `json:"key_text"`
	Model        PriceModel         `json:"model"`
	Prices       map[string]float64 `json:"prices,omitempty"`
	Rate         float64            `json:"-"`
	Volume       float64            `json:"volume,omitempty"`
	ReferenceURL string             `json:"reference_url,omitempty"`
	// NextFunding is the venue's next settlement, for funding instruments.
	NextFunding time.Time `json:"next_funding,omitzero"`
	AsOf        time.Time `json:"as_of"`
}

// MarshalJSON writes rate for every funding instrument, including a rate of
// exactly zero, and leaves it out for binary ones.
func (n NormalizedInstrument) MarshalJSON() ([]byte, error) {
	type plain NormalizedInstrument
	out := struct {
		plain
		Rate *float64 `json:"rate,omitempty"`
	}{plain: plain(n)}
	if n.Model == PriceModelFunding {
		rate := n.Rate
		out.Rate = &rate
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (n *NormalizedInstrument) UnmarshalJSON(data []byte) error {
	type plain NormalizedInstrument
	var in struct {
		plain
		Rate *float64 `json:"rate"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*n = NormalizedInstrument(in.plain)
	if in.Rate != nil {
		n.Rate = *in.Rate
	}
	return nil
}

// InstrumentMeta carries the optional, informational fields of an instrument.
type InstrumentMeta struct {
	Volume       float64
	ReferenceURL string
	// NextFunding is ignored for binary instruments.
	NextFunding time.Time
}

// NewBinaryInstrument validates and builds a binary-outcome instrument. Both
// prices must lie in [0,1]; exactly 0 or 1 is accepted.
func NewBinaryInstrument(venue Venue, id, keyText string, yes, no float64, meta InstrumentMeta) (NormalizedInstrument, error) {
	keyText = strings.TrimSpace(keyText)
	if keyText == "" {
		return NormalizedInstrument{}, fmt.Errorf("%s/%s: %w", venue, id, ErrMissingKeyText)
	}
	for _, p := range [2]float64{yes, no} {
		if err := checkProbability(p); err != nil {
			return NormalizedInstrument{}, fmt.Errorf("%s/%s: %w", venue, id, err)
		}
	}
	return NormalizedInstrument{
		Venue:        venue,
		ID:           id,
		KeyText:      keyText,
		Model:        PriceModelBinary,
		Prices:       map[string]float64{OutcomeYes: yes, OutcomeNo: no},
		Volume:       nonNegative(meta.Volume),
		ReferenceURL: meta.ReferenceURL,
	}, nil
}

// NewFundingInstrument validates and builds a funding-rate instrument. The
// key text is reduced to its canonical symbol.
func NewFundingInstrument(venue Venue, id, symbol string, rate float64, meta InstrumentMeta) (NormalizedInstrument, error) {
	key := CanonicalSymbol(symbol)
	if key == "" {
		return NormalizedInstrument{}, fmt.Errorf("%s/%s: %w", venue, id, ErrMissingKeyText)
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return NormalizedInstrument{}, fmt.Errorf("%s/%s: %w", venue, id, ErrInvalidRate)
	}
	return NormalizedInstrument{
		Venue:        venue,
		ID:           id,
		KeyText:      key,
		Model:        PriceModelFunding,
		Rate:         rate,
		Volume:       nonNegative(meta.Volume),
		ReferenceURL: meta.ReferenceURL,
		NextFunding:  meta.NextFunding,
	}, nil
}

// Validate re-checks the invariants of an already built instrument.
func (n NormalizedInstrument) Validate() error {
	if strings.TrimSpace(n.KeyText) == "" {
		return ErrMissingKeyText
	}
	switch n.Model {
	case PriceModelBinary:
		for _, outcome := range [2]string{OutcomeYes, OutcomeNo} {
			p, ok := n.Prices[outcome]
			if !ok {
				return fmt.Errorf("%w: %s", ErrMissingPrice, outcome)
			}
			if err := checkProbability(p); err != nil {
				return err
			}
		}
	case PriceModelFunding:
		if math.IsNaN(n.Rate) || math.IsInf(n.Rate, 0) {
			return ErrInvalidRate
		}
	default:
		return fmt.Errorf("%w: unknown price model %q", ErrInvalidParams, n.Model)
	}
	return nil
}

// Yes returns the price of the Yes outcome.
func (n NormalizedInstrument) Yes() float64 { return n.Prices[OutcomeYes] }

// No returns the price of the No outcome.
func (n NormalizedInstrument) No() float64 { return n.Prices[OutcomeNo] }

// Ref is the "venue:id" reference used for sorting and stable IDs.
func (n NormalizedInstrument) Ref() string {
	return string(n.Venue) + ":" + n.ID
}

func checkProbability(p float64) error {
	if math.IsNaN(p) {
		return ErrMissingPrice
	}
	if p < 0 || p > 1 {
		return fmt.Errorf("%w: %v", ErrPriceOutOfRange, p)
	}
	return nil
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

// quoteSuffixes are stripped from the end of a symbol, longest first.
var quoteSuffixes = []string{"PERP", "USDT", "USDC", "USD"}

// CanonicalSymbol upper-cases a perpetual symbol, removes separators and
// strips one trailing quote currency, so "btc-usd", "BTC_USDT" and "BTC"
// compare equal.
func CanonicalSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "", "_", "", "/", "", " ", "").Replace(s)
	for _, q := range quoteSuffixes {
		if len(s) > len(q) && strings.HasSuffix(s, q) {
			return strings.TrimSuffix(s, q)
		}
	}
	return s
}

// FetchResult is what a venue collaborator returns for one fetch: the
// instruments that passed normalization and how many raw records were
// dropped on the way.
type FetchResult struct {
	Instruments []NormalizedInstrument
	Dropped     int
}
