// Package arbitrage is the cross-venue detection engine: it groups equivalent
// instruments from different venues, evaluates each group with the strategy
// registered for its price model, and ranks the resulting opportunities. It
// performs no I/O.
package arbitrage

import (
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Evaluator computes the opportunities offered by one matched group. It must
// be a pure function of its inputs.
type Evaluator interface {
	Name() string
	Model() domain.PriceModel
	// Evaluate returns zero or more opportunities for the group. Finding none
	// is the normal outcome for efficiently priced markets.
	Evaluate(group domain.MatchedGroup, asOf time.Time) []domain.Opportunity
}
