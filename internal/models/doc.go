// Package models defines the core domain models for SubSync.
//
// # Models
//
//   - User: the single local profile (display name, photo, currency, theme)
//   - Subscription: a recurring payment, optionally shared with named people
//   - Category, Cycle, Theme: the fixed enumerations those records use
//
// People a subscription is shared with are plain names. They have no
// identity of their own and live and die with their subscription.
//
// # Design Principles
//
// 1. **Derived, never stored twice**: Subscription.Shared() is computed from
// SharedWith so the two can never disagree.
// 2. **Exact money**: prices are decimal.Decimal, never float64.
// 3. **Calendar dates**: billing dates are civil.Date; there is no time of day
// and no time zone to strip before comparing.
package models
