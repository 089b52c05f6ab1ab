// Package service implements the domain repository: CRUD over the profile and
// subscriptions, with a snapshot persisted after every mutation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"

	"github.com/mmynk/subsync/internal/apperr"
	"github.com/mmynk/subsync/internal/calculator"
	"github.com/mmynk/subsync/internal/models"
	"github.com/mmynk/subsync/internal/storage"
)

// Persister is the part of the persistence manager the repository uses.
type Persister interface {
	Persist(ctx context.Context) error
	LoadPhoto(ctx context.Context) (string, error)
	SavePhoto(ctx context.Context, photo string) error
	Reset(ctx context.Context) error
}

// Repository exposes domain operations over a storage.Store.
type Repository struct {
	store       storage.Store
	persister   Persister
	horizonDays int
}

// Option configures a Repository.
type Option func(*Repository)

// WithHorizonDays sets how many days ahead a payment counts as upcoming.
func WithHorizonDays(days int) Option {
	return func(r *Repository) {
		if days >= 0 {
			r.horizonDays = days
		}
	}
}

// NewRepository creates a Repository with the given storage backend and persister.
func NewRepository(store storage.Store, persister Persister, opts ...Option) *Repository {
	r := &Repository{
		store:       store,
		persister:   persister,
		horizonDays: calculator.DefaultHorizonDays,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// persist writes a snapshot after a mutation. Failures are logged and not
// returned: the in-memory database stays authoritative until the next
// successful persist.
func (r *Repository) persist(ctx context.Context, op string) {
	if err := r.persister.Persist(ctx); err != nil {
		slog.ErrorContext(ctx, "Persist failed", "operation", op, "error", err)
	}
}

// storeError classifies an engine error for op.
func storeError(op string, err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.New(apperr.ErrNotFound, op, nil)
	}
	return apperr.New(apperr.ErrPersistence, op, err)
}

// GetUser returns the profile, with its photo loaded from the blob store when
// the profile records one.
func (r *Repository) GetUser(ctx context.Context) (models.User, error) {
	user, hasPhoto, err := r.store.GetUser(ctx)
	if err != nil {
		return models.User{}, storeError("get user", err)
	}

	if hasPhoto {
		photo, err := r.persister.LoadPhoto(ctx)
		if err != nil {
			// The profile is still usable without its picture.
			slog.WarnContext(ctx, "Failed to load photo", "error", err)
		}
		user.Photo = photo
	}
	return user, nil
}

// UpdateUser replaces the profile and stores or removes its photo.
// The photo is written first; if the profile row cannot be saved the
// previous photo is put back.
func (r *Repository) UpdateUser(ctx context.Context, user models.User) error {
	const op = "update user"
	user = user.Normalized()

	restore, err := r.swapPhoto(ctx, op, user.Photo)
	if err != nil {
		return err
	}
	if err := r.store.UpsertUser(ctx, user); err != nil {
		restore()
		return storeError(op, err)
	}

	slog.InfoContext(ctx, "Profile updated", "currency", user.Currency, "theme", user.Theme, "has_photo", user.HasPhoto())
	r.persist(ctx, op)
	return nil
}

// swapPhoto stores photo in the blob store and returns a func that puts the
// previous photo back.
func (r *Repository) swapPhoto(ctx context.Context, op, photo string) (func(), error) {
	previous, err := r.persister.LoadPhoto(ctx)
	if err != nil {
		return nil, blobError(op, err)
	}
	if err := r.persister.SavePhoto(ctx, photo); err != nil {
		return nil, blobError(op, err)
	}

	return func() {
		if err := r.persister.SavePhoto(ctx, previous); err != nil {
			slog.ErrorContext(ctx, "Failed to restore photo", "operation", op, "error", err)
		}
	}, nil
}

// blobError marks a photo store failure as a storage error for op.
func blobError(op string, err error) error {
	if errors.Is(err, apperr.ErrStorage) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return apperr.New(apperr.ErrStorage, op, err)
}

// ListSubscriptions returns every subscription, newest first.
func (r *Repository) ListSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	subs, err := r.store.ListSubscriptions(ctx)
	if err != nil {
		return nil, storeError("list subscriptions", err)
	}
	return subs, nil
}

// GetSubscription returns one subscription, or an error matching
// apperr.ErrNotFound.
func (r *Repository) GetSubscription(ctx context.Context, id int64) (*models.Subscription, error) {
	sub, err := r.store.GetSubscription(ctx, id)
	if err != nil {
		return nil, storeError(fmt.Sprintf("get subscription %d", id), err)
	}
	return sub, nil
}

// AddSubscription validates and stores a new subscription and returns its ID.
func (r *Repository) AddSubscription(ctx context.Context, sub models.Subscription) (int64, error) {
	const op = "add subscription"

	sub = sub.Normalized()
	sub.ID = 0
	if err := sub.Validate(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err := r.store.CreateSubscription(ctx, &sub); err != nil {
		return 0, storeError(op, err)
	}

	slog.InfoContext(ctx, "Subscription added",
		"subscription_id", sub.ID,
		"name", sub.Name,
		"shared_with", len(sub.SharedWith),
	)
	r.persist(ctx, op)
	return sub.ID, nil
}

// UpdateSubscription replaces an existing subscription. The billing date
// cannot be changed by an edit: the stored date is kept.
func (r *Repository) UpdateSubscription(ctx context.Context, id int64, sub models.Subscription) error {
	op := fmt.Sprintf("update subscription %d", id)

	existing, err := r.store.GetSubscription(ctx, id)
	if err != nil {
		return storeError(op, err)
	}

	sub = sub.Normalized()
	sub.ID = id
	sub.BillingDate = existing.BillingDate
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := r.store.UpdateSubscription(ctx, &sub); err != nil {
		return storeError(op, err)
	}

	slog.InfoContext(ctx, "Subscription updated", "subscription_id", id, "name", sub.Name)
	r.persist(ctx, op)
	return nil
}

// DeleteSubscription removes a subscription and its shared people.
func (r *Repository) DeleteSubscription(ctx context.Context, id int64) error {
	op := fmt.Sprintf("delete subscription %d", id)

	if err := r.store.DeleteSubscription(ctx, id); err != nil {
		return storeError(op, err)
	}

	slog.InfoContext(ctx, "Subscription deleted", "subscription_id", id)
	r.persist(ctx, op)
	return nil
}

// ReplaceSubscriptions destructively replaces every subscription, keeping the
// IDs carried by subs. Records are not validated.
func (r *Repository) ReplaceSubscriptions(ctx context.Context, subs []models.Subscription) error {
	const op = "replace subscriptions"

	normalized := make([]models.Subscription, len(subs))
	for i, sub := range subs {
		normalized[i] = sub.Normalized()
	}

	if err := r.store.ReplaceSubscriptions(ctx, normalized); err != nil {
		return storeError(op, err)
	}

	slog.InfoContext(ctx, "Subscriptions replaced", "count", len(normalized))
	r.persist(ctx, op)
	return nil
}

// ImportAll replaces the profile and every subscription at once, keeping the
// IDs carried by subs. Records are not validated. On failure nothing changes,
// the photo included.
func (r *Repository) ImportAll(ctx context.Context, user models.User, subs []models.Subscription) error {
	const op = "import"
	user = user.Normalized()

	normalized := make([]models.Subscription, len(subs))
	for i, sub := range subs {
		normalized[i] = sub.Normalized()
	}

	restore, err := r.swapPhoto(ctx, op, user.Photo)
	if err != nil {
		return err
	}
	if err := r.store.ImportAll(ctx, user, normalized); err != nil {
		restore()
		return storeError(op, err)
	}

	slog.InfoContext(ctx, "Profile and subscriptions replaced", "subscriptions", len(normalized), "has_photo", user.HasPhoto())
	r.persist(ctx, op)
	return nil
}

// Clear removes all stored data and resets the profile to defaults.
func (r *Repository) Clear(ctx context.Context) error {
	return r.persister.Reset(ctx)
}

// Dashboard builds the dashboard view model for the given day and calendar month.
func (r *Repository) Dashboard(ctx context.Context, today civil.Date, year int, month time.Month) (*Dashboard, error) {
	user, err := r.GetUser(ctx)
	if err != nil {
		return nil, err
	}
	subs, err := r.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	return BuildDashboard(user, subs, today, year, month, r.horizonDays), nil
}
