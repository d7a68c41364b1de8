package notify

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// OpportunityMessage renders an opportunity as an alert title and body.
func OpportunityMessage(o domain.Opportunity) (string, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", o.KeyText)
	fmt.Fprintf(&b, "Strategy: %s\n", o.StrategyLabel)

	switch o.Kind {
	case domain.PriceModelFunding:
		fmt.Fprintf(&b, "Rate spread: %.6f\n", o.RateSpread)
		fmt.Fprintf(&b, "Est. profit per period: %.6f\n", o.EstimatedPeriodicProfit)
		if o.Funding != nil {
			fmt.Fprintf(&b, "Daily on $%.0f: $%.2f (net APR %.2f%%)\n", o.Funding.NotionalUSD, o.Funding.DailyUSD, o.Funding.NetAPR)
			if !o.Funding.NextFundingAt.IsZero() {
				fmt.Fprintf(&b, "Next funding in %.1f hours\n", o.Funding.HoursToNextFunding)
			}
		}
	default:
		fmt.Fprintf(&b, "Cost: %.4f  Profit: %.4f  Return: %.2f%%\n", o.Cost, o.Profit, o.ExpectedReturn)
	}

	for _, leg := range o.Legs {
		fmt.Fprintf(&b, "- %s %s @ %.4f", leg.Venue, strings.ToUpper(leg.Side), leg.Price)
		if leg.ReferenceURL != "" {
			fmt.Fprintf(&b, " %s", leg.ReferenceURL)
		}
		b.WriteByte('\n')
	}

	title := fmt.Sprintf("Arbitrage (%s): %.2f%%", o.Kind, o.ExpectedReturn)
	if o.Kind == domain.PriceModelFunding {
		title = fmt.Sprintf("Funding spread: %s", o.KeyText)
	}
	return title, strings.TrimRight(b.String(), "\n")
}
