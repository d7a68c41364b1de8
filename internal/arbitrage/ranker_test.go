package arbitrage

import (
	"reflect"
	"testing"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

func opp(id, group string, ret float64) domain.Opportunity {
	return domain.Opportunity{ID: id, GroupID: group, Kind: domain.PriceModelBinary, ExpectedReturn: ret}
}

func ids(opps []domain.Opportunity) []string {
	out := make([]string, len(opps))
	for i, o := range opps {
		out[i] = o.ID
	}
	return out
}

func TestRank_OrderAndTies(t *testing.T) {
	in := []domain.Opportunity{
		opp("b", "g2", 5),
		opp("a", "g2", 5),
		opp("c", "g1", 5),
		opp("d", "g1", 9),
		opp("e", "g3", 1),
	}
	got, total := Rank(in, 0, 0)
	want := []string{"d", "c", "a", "b", "e"}
	if !reflect.DeepEqual(ids(got), want) {
		t.Errorf("expected %v, got %v", want, ids(got))
	}
	if total != 5 {
		t.Errorf("expected total 5, got %d", total)
	}
}

func TestRank_Deterministic(t *testing.T) {
	in := []domain.Opportunity{opp("x", "g", 2), opp("y", "g", 2), opp("z", "h", 3)}
	rev := []domain.Opportunity{in[2], in[1], in[0]}
	a, _ := Rank(in, 0, 0)
	b, _ := Rank(rev, 0, 0)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("expected same ranking, got %v and %v", ids(a), ids(b))
	}
}

func TestRank_MinReturnInclusive(t *testing.T) {
	in := []domain.Opportunity{opp("a", "g", 0.99), opp("b", "g", 1.0), opp("c", "g", 2)}
	got, total := Rank(in, 1.0, 0)
	if !reflect.DeepEqual(ids(got), []string{"c", "b"}) {
		t.Errorf("expected [c b], got %v", ids(got))
	}
	if total != 2 {
		t.Errorf("expected total 2, got %d", total)
	}
}

func TestRank_RaisingMinReturnNeverAdds(t *testing.T) {
	in := []domain.Opportunity{opp("a", "g", 0.5), opp("b", "g", 1.5), opp("c", "g", 3), opp("d", "g", 7)}
	prev := len(in) + 1
	for _, floor := range []float64{0, 1, 2, 5, 10} {
		got, _ := Rank(in, floor, 0)
		if len(got) > prev {
			t.Errorf("min %v: expected at most %d results, got %d", floor, prev, len(got))
		}
		prev = len(got)
	}
}

func TestRank_Limit(t *testing.T) {
	in := []domain.Opportunity{opp("a", "g", 1), opp("b", "g", 2), opp("c", "g", 3)}
	got, total := Rank(in, 0, 2)
	if !reflect.DeepEqual(ids(got), []string{"c", "b"}) {
		t.Errorf("expected [c b], got %v", ids(got))
	}
	if total != 3 {
		t.Errorf("expected total 3 before truncation, got %d", total)
	}
}

func TestRank_Dedupe(t *testing.T) {
	in := []domain.Opportunity{opp("a", "g", 1), opp("a", "g", 4), opp("b", "g", 2)}
	got, _ := Rank(in, 0, 0)
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].ID != "a" || got[0].ExpectedReturn != 4 {
		t.Errorf("expected best copy of a first, got %+v", got[0])
	}
}

func TestRank_Empty(t *testing.T) {
	got, total := Rank(nil, 0, 10)
	if got == nil || len(got) != 0 || total != 0 {
		t.Errorf("expected empty non-nil slice, got %v (%d)", got, total)
	}
}

func TestRank_FundingUsesAbsoluteProfit(t *testing.T) {
	in := []domain.Opportunity{
		{ID: "f1", Kind: domain.PriceModelFunding, EstimatedPeriodicProfit: 0.002},
		{ID: "f2", Kind: domain.PriceModelFunding, EstimatedPeriodicProfit: -0.005},
	}
	got, _ := Rank(in, 0.001, 0)
	if !reflect.DeepEqual(ids(got), []string{"f2", "f1"}) {
		t.Errorf("expected [f2 f1], got %v", ids(got))
	}
}
