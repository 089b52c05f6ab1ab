package models

import (
	"errors"
	"slices"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Category groups subscriptions on the dashboard.
type Category string

const (
	CategoryEntertainment Category = "entertainment"
	CategoryProductivity  Category = "productivity"
	CategoryUtility       Category = "utility"
	CategoryHealth        Category = "health"
)

// Categories lists every category in dashboard order.
var Categories = []Category{
	CategoryEntertainment,
	CategoryProductivity,
	CategoryUtility,
	CategoryHealth,
}

var categoryLabels = map[Category]string{
	CategoryEntertainment: "Entertainment",
	CategoryProductivity:  "Productivity",
	CategoryUtility:       "Utilities",
	CategoryHealth:        "Health",
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the human-readable category name.
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// Cycle is the billing frequency tag of a subscription.
// Only the tag is stored; totals treat every cycle as monthly.
type Cycle string

const (
	CycleWeekly  Cycle = "weekly"
	CycleMonthly Cycle = "monthly"
	CycleYearly  Cycle = "yearly"
)

// Valid reports whether c is a known billing cycle.
func (c Cycle) Valid() bool {
	switch c {
	case CycleWeekly, CycleMonthly, CycleYearly:
		return true
	}
	return false
}

// DefaultIcon is used when a subscription has no icon.
const DefaultIcon = "📱"

// Icons is the palette a subscription icon is picked from.
var Icons = []string{
	"📱", "📺", "🎵", "🎬", "🎮", "📦", "☁", "🔧",
	"💻", "📷", "🏃", "💊", "📚", "🍿", "🎯", "🎨",
	"🎭", "🎪", "🎰", "🎲", "🚗", "✈️", "🍔", "☕",
	"🛒", "🛍️", "🏋️", "🐶", "🏡", "💡", "🌎", "🛡️",
}

// ValidIcon reports whether icon is in the palette.
func ValidIcon(icon string) bool {
	return slices.Contains(Icons, icon)
}

// Subscription represents one recurring payment.
type Subscription struct {
	// ID is assigned by storage on creation.
	ID int64

	// Name is the service name (e.g., "Netflix").
	Name string

	// Price is the full amount billed, before any sharing.
	// It carries no currency; the profile currency only picks a symbol.
	Price decimal.Decimal

	// Category is one of Categories.
	Category Category

	// BillingDate is the calendar day the subscription is charged.
	BillingDate civil.Date

	// Icon is a glyph from Icons.
	Icon string

	// Cycle is the billing frequency tag.
	Cycle Cycle

	// SharedWith lists the people splitting the price with the owner,
	// in the order they were added. Duplicates are allowed and each
	// occurrence counts as one payer.
	SharedWith []string
}

// Shared reports whether anyone shares the subscription with the owner.
func (s Subscription) Shared() bool {
	return len(s.SharedWith) > 0
}

// Validation errors.
var (
	ErrEmptyName       = errors.New("empty subscription name")
	ErrInvalidPrice    = errors.New("price must be greater than zero")
	ErrInvalidCategory = errors.New("unknown category")
	ErrInvalidDate     = errors.New("invalid billing date")
	ErrInvalidCycle    = errors.New("unknown billing cycle")
	ErrInvalidIcon     = errors.New("icon is not in the palette")
)

var validationErrors = []error{
	ErrEmptyName,
	ErrInvalidPrice,
	ErrInvalidCategory,
	ErrInvalidDate,
	ErrInvalidCycle,
	ErrInvalidIcon,
}

// IsValidation reports whether err was caused by invalid user input.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Normalized trims names, drops blank shared names and fills the default
// icon and cycle. The result is what gets stored.
func (s Subscription) Normalized() Subscription {
	s.Name = strings.TrimSpace(s.Name)
	s.Icon = strings.TrimSpace(s.Icon)
	if s.Icon == "" {
		s.Icon = DefaultIcon
	}
	if s.Cycle == "" {
		s.Cycle = CycleMonthly
	}
	people := make([]string, 0, len(s.SharedWith))
	for _, name := range s.SharedWith {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		people = append(people, name)
	}
	s.SharedWith = people
	return s
}

// Validate checks the fields a user can enter when adding or editing.
func (s Subscription) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if !s.Price.IsPositive() {
		return ErrInvalidPrice
	}
	if !s.Category.Valid() {
		return ErrInvalidCategory
	}
	if !s.BillingDate.IsValid() {
		return ErrInvalidDate
	}
	if s.Cycle != "" && !s.Cycle.Valid() {
		return ErrInvalidCycle
	}
	if s.Icon != "" && !ValidIcon(s.Icon) {
		return ErrInvalidIcon
	}
	return nil
}
