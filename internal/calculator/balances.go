package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/subsync/internal/models"
)

// PersonContribution is what one shared person covers across all subscriptions.
type PersonContribution struct {
	Name          string
	Amount        decimal.Decimal
	Subscriptions int
}

// SharedContributions computes how much each named person covers every month.
//
// Algorithm:
// - For each subscription: every entry in SharedWith pays one personal share
// - A name listed twice on the same subscription pays two shares
// - Result is sorted by amount (largest first), then by name
func SharedContributions(subs []models.Subscription) []PersonContribution {
	byName := make(map[string]*PersonContribution)

	for _, sub := range subs {
		if !sub.Shared() {
			continue
		}
		share := SubscriptionShare(sub)
		seen := make(map[string]bool, len(sub.SharedWith))
		for _, name := range sub.SharedWith {
			pc, ok := byName[name]
			if !ok {
				pc = &PersonContribution{Name: name, Amount: decimal.Zero}
				byName[name] = pc
			}
			pc.Amount = pc.Amount.Add(share)
			if !seen[name] {
				pc.Subscriptions++
				seen[name] = true
			}
		}
	}

	out := make([]PersonContribution, 0, len(byName))
	for _, pc := range byName {
		out = append(out, *pc)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})

	return out
}
