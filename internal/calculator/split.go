// Package calculator holds the pure aggregation functions behind the dashboard:
// personal shares, monthly and per-category totals, calendar placement and
// upcoming payments. Nothing here touches storage or the clock; callers pass
// "today" in explicitly.
package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/subsync/internal/models"
)

// PersonalShare computes the owner's portion of price when it is split evenly
// between the owner and sharedCount other people.
// Based on the rule: share = price / (sharedCount + 1), the owner always pays one part.
func PersonalShare(price decimal.Decimal, sharedCount int) decimal.Decimal {
	if sharedCount <= 0 {
		return price
	}
	return price.Div(decimal.NewFromInt(int64(sharedCount) + 1))
}

// SubscriptionShare is PersonalShare applied to a subscription.
func SubscriptionShare(sub models.Subscription) decimal.Decimal {
	return PersonalShare(sub.Price, len(sub.SharedWith))
}

// TotalMonthly sums the owner's share of every subscription.
// Cycles are not normalized: a yearly subscription counts its full share too.
func TotalMonthly(subs []models.Subscription) decimal.Decimal {
	total := decimal.Zero
	for _, sub := range subs {
		total = total.Add(SubscriptionShare(sub))
	}
	return total
}

// CategoryTotal is TotalMonthly restricted to one category.
func CategoryTotal(subs []models.Subscription, category models.Category) decimal.Decimal {
	total := decimal.Zero
	for _, sub := range subs {
		if sub.Category == category {
			total = total.Add(SubscriptionShare(sub))
		}
	}
	return total
}

// CategoryAmount is the aggregated owner share of one category.
type CategoryAmount struct {
	Category models.Category
	Count    int
	Amount   decimal.Decimal
}

// CategoryBreakdown returns one entry per category in models.Categories order,
// including empty categories.
func CategoryBreakdown(subs []models.Subscription) []CategoryAmount {
	index := make(map[models.Category]int, len(models.Categories))
	out := make([]CategoryAmount, len(models.Categories))
	for i, c := range models.Categories {
		index[c] = i
		out[i] = CategoryAmount{Category: c, Amount: decimal.Zero}
	}

	for _, sub := range subs {
		i, ok := index[sub.Category]
		if !ok {
			continue
		}
		out[i].Count++
		out[i].Amount = out[i].Amount.Add(SubscriptionShare(sub))
	}

	return out
}
