package arbitrage

import (
	"sort"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Rank filters, deduplicates, orders and truncates already evaluated
// opportunities. Opportunities scoring below minReturn are dropped (equal is
// kept). Ordering is by score descending, then group ID, then opportunity ID,
// so identical input always yields identical output. A limit <= 0 disables
// truncation. The second return value is the number of opportunities that
// passed the filter, before truncation.
func Rank(opps []domain.Opportunity, minReturn float64, limit int) ([]domain.Opportunity, int) {
	byID := make(map[string]int, len(opps))
	kept := make([]domain.Opportunity, 0, len(opps))
	for _, o := range opps {
		if o.Score() < minReturn {
			continue
		}
		if i, ok := byID[o.ID]; ok {
			if o.Score() > kept[i].Score() {
				kept[i] = o
			}
			continue
		}
		byID[o.ID] = len(kept)
		kept = append(kept, o)
	}

	sort.SliceStable(kept, func(a, b int) bool {
		sa, sb := kept[a].Score(), kept[b].Score()
		if sa != sb {
			return sa > sb
		}
		if kept[a].GroupID != kept[b].GroupID {
			return kept[a].GroupID < kept[b].GroupID
		}
		return kept[a].ID < kept[b].ID
	})

	total := len(kept)
	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept, total
}
