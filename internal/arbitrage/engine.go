package arbitrage

import (
	"sort"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// EngineConfig configures matching and evaluation.
type EngineConfig struct {
	// SimilarityThreshold is the inclusive question-similarity threshold for
	// binary instruments.
	SimilarityThreshold float64
	// SymbolThreshold is the inclusive threshold for funding symbols. At 1.0
	// only identical canonical symbols match.
	SymbolThreshold float64
	Aliases         map[string]string
	Funding         FundingConfig
}

// DefaultEngineConfig returns the stock thresholds.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		SimilarityThreshold: 0.75,
		SymbolThreshold:     1.0,
		Aliases:             DefaultAliases(),
		Funding:             DefaultFundingConfig(),
	}
}

// Params are the per-call inputs of Evaluate.
type Params struct {
	Kind      domain.PriceModel
	MinReturn float64
	Limit     int
	// AsOf stamps every opportunity. Zero means the snapshot time.
	AsOf time.Time
	// SimilarityThreshold overrides the configured binary threshold when > 0.
	SimilarityThreshold float64
}

// Engine runs match, evaluate and rank over a snapshot. It holds no mutable
// state between calls and is safe for concurrent use.
type Engine struct {
	cfg        EngineConfig
	similarity *TextSimilarity
	registry   *Registry
	binary     *Matcher
	funding    *Matcher
}

// NewEngine builds an engine with the binary and funding evaluators
// registered.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = 0.75
	}
	if cfg.SymbolThreshold <= 0 {
		cfg.SymbolThreshold = 1.0
	}
	sim := NewTextSimilarity(cfg.Aliases)
	reg := NewRegistry()
	reg.Register(NewBinaryComplement())
	reg.Register(NewFundingSpread(cfg.Funding))

	return &Engine{
		cfg:        cfg,
		similarity: sim,
		registry:   reg,
		binary:     NewMatcher(cfg.SimilarityThreshold, sim.Canonical, Ratio),
		funding:    NewMatcher(cfg.SymbolThreshold, domain.CanonicalSymbol, Ratio),
	}
}

// Registry exposes the evaluator registry so callers can add price models.
func (e *Engine) Registry() *Registry { return e.registry }

func (e *Engine) matcher(p Params) *Matcher {
	if p.Kind == domain.PriceModelFunding {
		return e.funding
	}
	if p.SimilarityThreshold > 0 && p.SimilarityThreshold != e.cfg.SimilarityThreshold {
		return NewMatcher(p.SimilarityThreshold, e.similarity.Canonical, Ratio)
	}
	return e.binary
}

// Match groups the instruments of one price model.
func (e *Engine) Match(p Params, instruments []domain.NormalizedInstrument) []domain.MatchedGroup {
	return e.matcher(p).Match(p.Kind, instruments)
}

// Evaluate turns a snapshot into a ranked report. Instruments of another
// price model are ignored and instruments that fail validation are counted
// as rejected and never reach the matcher.
func (e *Engine) Evaluate(snap domain.Snapshot, p Params) domain.Report {
	asOf := p.AsOf
	if asOf.IsZero() {
		asOf = snap.AsOf
	}

	venues := make([]domain.Venue, 0, len(snap.Instruments))
	for v := range snap.Instruments {
		venues = append(venues, v)
	}
	sort.Slice(venues, func(a, b int) bool { return venues[a] < venues[b] })

	var input []domain.NormalizedInstrument
	rejected := 0
	for _, v := range venues {
		for _, inst := range snap.Instruments[v] {
			if inst.Model != p.Kind {
				continue
			}
			if err := inst.Validate(); err != nil {
				rejected++
				continue
			}
			input = append(input, inst)
		}
	}

	m := e.matcher(p)
	groups := m.Match(p.Kind, input)

	var candidates []domain.Opportunity
	if ev, err := e.registry.Get(p.Kind); err == nil {
		for _, g := range groups {
			candidates = append(candidates, ev.Evaluate(g, asOf)...)
		}
	}
	ranked, total := Rank(candidates, p.MinReturn, p.Limit)

	var venueErrors map[domain.Venue]string
	if len(snap.Errors) > 0 {
		venueErrors = make(map[domain.Venue]string, len(snap.Errors))
		for v, msg := range snap.Errors {
			venueErrors[v] = msg
		}
	}

	return domain.Report{
		Kind:            p.Kind,
		Opportunities:   ranked,
		Count:           len(ranked),
		TotalCandidates: total,
		GroupsMatched:   len(groups),
		VenueCounts:     snap.Counts(),
		VenueErrors:     venueErrors,
		Rejected:        rejected,
		FiltersUsed: domain.Filters{
			MinReturn:           p.MinReturn,
			Limit:               p.Limit,
			SimilarityThreshold: m.Threshold(),
		},
		SnapshotAt:  snap.AsOf,
		GeneratedAt: asOf,
	}
}
