package arbitrage

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// BinaryComplement evaluates binary-outcome groups. Buying Yes on one venue
// and No on another pays exactly one unit whichever way the question
// resolves, so any combined cost below one is locked-in profit.
type BinaryComplement struct{}

// NewBinaryComplement returns the binary-outcome evaluator.
func NewBinaryComplement() *BinaryComplement { return &BinaryComplement{} }

// Name returns the strategy identifier.
func (b *BinaryComplement) Name() string { return "binary_complement" }

// Model returns the price model this evaluator handles.
func (b *BinaryComplement) Model() domain.PriceModel { return domain.PriceModelBinary }

// Evaluate checks every unordered pair in the group independently.
func (b *BinaryComplement) Evaluate(group domain.MatchedGroup, asOf time.Time) []domain.Opportunity {
	var out []domain.Opportunity
	for i := 0; i < len(group.Members); i++ {
		for j := i + 1; j < len(group.Members); j++ {
			if opp, ok := b.evaluatePair(group, group.Members[i], group.Members[j], asOf); ok {
				out = append(out, opp)
			}
		}
	}
	return out
}

type complement struct {
	yesOn, noOn domain.NormalizedInstrument
	cost        decimal.Decimal
	ret         decimal.Decimal
}

func (b *BinaryComplement) evaluatePair(group domain.MatchedGroup, a, c domain.NormalizedInstrument, asOf time.Time) (domain.Opportunity, bool) {
	if a.Venue == c.Venue {
		return domain.Opportunity{}, false
	}

	var best *complement
	for _, side := range [2][2]domain.NormalizedInstrument{{a, c}, {c, a}} {
		yesOn, noOn := side[0], side[1]
		cost := decimal.NewFromFloat(yesOn.Yes()).Add(decimal.NewFromFloat(noOn.No()))
		if !cost.IsPositive() {
			continue
		}
		ret := one.Sub(cost).Div(cost).Mul(hundred)
		if best == nil || ret.GreaterThan(best.ret) {
			best = &complement{yesOn: yesOn, noOn: noOn, cost: cost, ret: ret}
		}
	}
	if best == nil {
		return domain.Opportunity{}, false
	}
	profit := one.Sub(best.cost)
	if !profit.IsPositive() {
		return domain.Opportunity{}, false
	}

	yesOn, noOn := best.yesOn, best.noOn
	return domain.Opportunity{
		ID:            stableID(group.ID, b.Name(), yesOn.Ref(), noOn.Ref()),
		GroupID:       group.ID,
		Kind:          domain.PriceModelBinary,
		Strategy:      b.Name(),
		KeyText:       group.KeyText,
		StrategyLabel: fmt.Sprintf("Buy 'Yes' on %s and 'No' on %s", yesOn.Venue, noOn.Venue),
		Legs: []domain.Leg{
			{
				Venue:        yesOn.Venue,
				InstrumentID: yesOn.ID,
				KeyText:      yesOn.KeyText,
				Side:         domain.SideYes,
				Price:        yesOn.Yes(),
				ReferenceURL: yesOn.ReferenceURL,
			},
			{
				Venue:        noOn.Venue,
				InstrumentID: noOn.ID,
				KeyText:      noOn.KeyText,
				Side:         domain.SideNo,
				Price:        noOn.No(),
				ReferenceURL: noOn.ReferenceURL,
			},
		},
		Cost:           best.cost.InexactFloat64(),
		Profit:         profit.InexactFloat64(),
		ExpectedReturn: best.ret.InexactFloat64(),
		ComputedAt:     asOf,
	}, true
}
