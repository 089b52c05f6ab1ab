// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mmynk/subsync/internal/models"
)

// Store defines the interface for profile and subscription storage operations.
// The service layer depends on this contract only; the SQLite engine is one
// implementation of it.
type Store interface {
	// GetUser returns the singleton profile (without its photo) and whether
	// the profile records a photo. A missing row yields the default profile.
	GetUser(ctx context.Context) (models.User, bool, error)

	// UpsertUser inserts or replaces the singleton profile.
	// Only the presence of user.Photo is recorded.
	UpsertUser(ctx context.Context, user models.User) error

	// ListSubscriptions returns every subscription with its shared people,
	// newest first.
	ListSubscriptions(ctx context.Context) ([]models.Subscription, error)

	// GetSubscription retrieves a subscription by its ID.
	// Returns an error matching apperr.ErrNotFound if it does not exist.
	GetSubscription(ctx context.Context, id int64) (*models.Subscription, error)

	// CreateSubscription persists a new subscription and its shared people.
	// The sub.ID field will be populated by the store.
	CreateSubscription(ctx context.Context, sub *models.Subscription) error

	// UpdateSubscription replaces an existing subscription's fields and
	// shared people. The stored billing date is left untouched.
	UpdateSubscription(ctx context.Context, sub *models.Subscription) error

	// DeleteSubscription removes a subscription and, by cascade, its shared people.
	DeleteSubscription(ctx context.Context, id int64) error

	// ReplaceSubscriptions removes every subscription and inserts subs,
	// keeping their IDs when set.
	ReplaceSubscriptions(ctx context.Context, subs []models.Subscription) error

	// ImportAll upserts the profile and replaces every subscription in one
	// transaction: either all of it is applied or nothing is.
	ImportAll(ctx context.Context, user models.User, subs []models.Subscription) error

	// ResetData removes every subscription and resets the profile to defaults.
	ResetData(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
