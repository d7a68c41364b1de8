package arbitrage

import (
	"math"
	"sort"
	"strings"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Scorer returns the similarity of two canonical keys in [0,1].
type Scorer func(a, b string) float64

// Matcher groups instruments from different venues that describe the same
// question or symbol.
type Matcher struct {
	threshold float64
	key       func(string) string
	score     Scorer
}

// NewMatcher returns a Matcher that canonicalizes key texts with key and pairs
// two instruments when score(keyA, keyB) >= threshold. A nil key leaves texts
// unchanged; a nil score uses Ratio.
func NewMatcher(threshold float64, key func(string) string, score Scorer) *Matcher {
	if key == nil {
		key = func(s string) string { return s }
	}
	if score == nil {
		score = Ratio
	}
	return &Matcher{threshold: threshold, key: key, score: score}
}

// Threshold returns the inclusive similarity threshold.
func (m *Matcher) Threshold() float64 { return m.threshold }

type edge struct {
	i, j  int
	score float64
}

// Match compares every pair of instruments listed on different venues and
// merges equivalent pairs transitively into groups. A group never holds two
// instruments of the same venue: when the strongest links would join two
// components that share a venue, the weaker link is ignored. Unmatched
// instruments are discarded. The result does not depend on input order.
func (m *Matcher) Match(model domain.PriceModel, instruments []domain.NormalizedInstrument) []domain.MatchedGroup {
	items := make([]domain.NormalizedInstrument, len(instruments))
	copy(items, instruments)
	sort.SliceStable(items, func(a, b int) bool {
		if items[a].Venue != items[b].Venue {
			return items[a].Venue < items[b].Venue
		}
		if items[a].ID != items[b].ID {
			return items[a].ID < items[b].ID
		}
		return items[a].KeyText < items[b].KeyText
	})

	keys := make([]string, len(items))
	for i := range items {
		keys[i] = m.key(items[i].KeyText)
	}

	var edges []edge
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if items[i].Venue == items[j].Venue {
				continue
			}
			s := m.score(keys[i], keys[j])
			if s >= m.threshold {
				edges = append(edges, edge{i: i, j: j, score: s})
			}
		}
	}
	sort.SliceStable(edges, func(a, b int) bool {
		if edges[a].score != edges[b].score {
			return edges[a].score > edges[b].score
		}
		if edges[a].i != edges[b].i {
			return edges[a].i < edges[b].i
		}
		return edges[a].j < edges[b].j
	})

	uf := newVenueUnionFind(items)
	for _, e := range edges {
		uf.union(e.i, e.j, e.score)
	}

	members := make(map[int][]int)
	for i := range items {
		root := uf.find(i)
		members[root] = append(members[root], i)
	}

	groups := make([]domain.MatchedGroup, 0, len(members))
	for root, idx := range members {
		if len(idx) < 2 {
			continue
		}
		group := domain.MatchedGroup{
			Model:         model,
			Members:       make([]domain.NormalizedInstrument, len(idx)),
			MinSimilarity: uf.minScore[root],
		}
		refs := make([]string, len(idx))
		for k, i := range idx {
			group.Members[k] = items[i]
			refs[k] = items[i].Ref()
		}
		// idx is ascending, so members are already ordered by venue.
		group.KeyText = group.Members[0].KeyText
		group.ID = stableID(string(model), strings.Join(refs, ","))
		groups = append(groups, group)
	}
	sort.Slice(groups, func(a, b int) bool {
		if groups[a].KeyText != groups[b].KeyText {
			return groups[a].KeyText < groups[b].KeyText
		}
		return groups[a].ID < groups[b].ID
	})
	return groups
}

// venueUnionFind is a disjoint-set forest whose roots also track which venues
// their component already contains.
type venueUnionFind struct {
	parent   []int
	venues   []map[domain.Venue]bool
	minScore []float64
}

func newVenueUnionFind(items []domain.NormalizedInstrument) *venueUnionFind {
	uf := &venueUnionFind{
		parent:   make([]int, len(items)),
		venues:   make([]map[domain.Venue]bool, len(items)),
		minScore: make([]float64, len(items)),
	}
	for i, it := range items {
		uf.parent[i] = i
		uf.venues[i] = map[domain.Venue]bool{it.Venue: true}
		uf.minScore[i] = math.Inf(1)
	}
	return uf
}

func (uf *venueUnionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

// union merges the components of i and j unless they are already joined or
// share a venue. The lower root index survives.
func (uf *venueUnionFind) union(i, j int, score float64) bool {
	ri, rj := uf.find(i), uf.find(j)
	if ri == rj {
		return false
	}
	for v := range uf.venues[rj] {
		if uf.venues[ri][v] {
			return false
		}
	}
	if rj < ri {
		ri, rj = rj, ri
	}
	uf.parent[rj] = ri
	for v := range uf.venues[rj] {
		uf.venues[ri][v] = true
	}
	uf.venues[rj] = nil
	uf.minScore[ri] = math.Min(score, math.Min(uf.minScore[ri], uf.minScore[rj]))
	return true
}
