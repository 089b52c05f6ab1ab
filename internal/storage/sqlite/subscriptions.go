package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/mmynk/subsync/internal/apperr"
	"github.com/mmynk/subsync/internal/models"
)

const subscriptionColumns = `id, name, price, category, billing_date,
	COALESCE(icon, ''), COALESCE(cycle, '')`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (models.Subscription, error) {
	var (
		sub         models.Subscription
		category    string
		billingDate string
		cycle       string
	)
	if err := row.Scan(
		&sub.ID,
		&sub.Name,
		&sub.Price,
		&category,
		&billingDate,
		&sub.Icon,
		&cycle,
	); err != nil {
		return models.Subscription{}, err
	}

	date, err := civil.ParseDate(billingDate)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("subscription %d has invalid billing date %q: %w", sub.ID, billingDate, err)
	}
	sub.BillingDate = date
	sub.Category = models.Category(category)
	sub.Cycle = models.Cycle(cycle)
	if sub.Icon == "" {
		sub.Icon = models.DefaultIcon
	}
	if sub.Cycle == "" {
		sub.Cycle = models.CycleMonthly
	}
	return sub, nil
}

// ListSubscriptions retrieves all subscriptions with their shared people, newest first.
func (s *SQLiteStore) ListSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+subscriptionColumns+" FROM subscriptions ORDER BY id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	var subs []models.Subscription
	index := make(map[int64]int)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		index[sub.ID] = len(subs)
		subs = append(subs, sub)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscriptions: %w", err)
	}

	// The single connection must be free before the next query runs.
	peopleRows, err := s.db.QueryContext(ctx,
		"SELECT subscription_id, name FROM shared_people ORDER BY subscription_id, id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get shared people: %w", err)
	}
	defer peopleRows.Close()

	for peopleRows.Next() {
		var (
			subID int64
			name  string
		)
		if err := peopleRows.Scan(&subID, &name); err != nil {
			return nil, fmt.Errorf("failed to scan shared person: %w", err)
		}
		if i, ok := index[subID]; ok {
			subs[i].SharedWith = append(subs[i].SharedWith, name)
		}
	}
	if err := peopleRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shared people: %w", err)
	}

	return subs, nil
}

// GetSubscription retrieves a subscription by ID, including its shared people.
func (s *SQLiteStore) GetSubscription(ctx context.Context, id int64) (*models.Subscription, error) {
	sub, err := scanSubscription(s.db.QueryRowContext(ctx,
		"SELECT "+subscriptionColumns+" FROM subscriptions WHERE id = ?",
		id,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("subscription %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	people, err := s.sharedPeople(ctx, id)
	if err != nil {
		return nil, err
	}
	sub.SharedWith = people

	return &sub, nil
}

func (s *SQLiteStore) sharedPeople(ctx context.Context, subID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM shared_people WHERE subscription_id = ? ORDER BY id",
		subID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get shared people: %w", err)
	}
	defer rows.Close()

	var people []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan shared person: %w", err)
		}
		people = append(people, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shared people: %w", err)
	}
	return people, nil
}

// CreateSubscription persists a new subscription and its shared people.
func (s *SQLiteStore) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertSubscription(ctx, tx, sub); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// insertSubscription inserts sub and its shared people inside tx.
// A non-zero sub.ID is kept; otherwise the assigned ID is written back.
func insertSubscription(ctx context.Context, tx *sql.Tx, sub *models.Subscription) error {
	args := []any{
		sub.Name,
		sub.Price.String(),
		string(sub.Category),
		sub.BillingDate.String(),
		sub.Icon,
		sub.Shared(),
		string(sub.Cycle),
	}
	query := `INSERT INTO subscriptions (name, price, category, billing_date, icon, shared, cycle)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if sub.ID != 0 {
		query = `INSERT INTO subscriptions (id, name, price, category, billing_date, icon, shared, cycle)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
		args = append([]any{sub.ID}, args...)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	if sub.ID == 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get subscription id: %w", err)
		}
		sub.ID = id
	}

	return insertSharedPeople(ctx, tx, sub.ID, sub.SharedWith)
}

func insertSharedPeople(ctx context.Context, tx *sql.Tx, subID int64, people []string) error {
	for _, name := range people {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO shared_people (subscription_id, name) VALUES (?, ?)",
			subID, name,
		)
		if err != nil {
			return fmt.Errorf("failed to insert shared person: %w", err)
		}
	}
	return nil
}

// UpdateSubscription replaces the fields and shared people of an existing subscription.
// The billing date column is never updated.
func (s *SQLiteStore) UpdateSubscription(ctx context.Context, sub *models.Subscription) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE subscriptions
		SET name = ?, price = ?, category = ?, icon = ?, shared = ?, cycle = ?
		WHERE id = ?`,
		sub.Name, sub.Price.String(), string(sub.Category), sub.Icon, sub.Shared(), string(sub.Cycle),
		sub.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("subscription %d: %w", sub.ID, apperr.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM shared_people WHERE subscription_id = ?", sub.ID); err != nil {
		return fmt.Errorf("failed to delete shared people: %w", err)
	}
	if err := insertSharedPeople(ctx, tx, sub.ID, sub.SharedWith); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteSubscription removes a subscription; its shared people go with it.
func (s *SQLiteStore) DeleteSubscription(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM subscriptions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("subscription %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// ReplaceSubscriptions removes every subscription and inserts subs in one transaction.
func (s *SQLiteStore) ReplaceSubscriptions(ctx context.Context, subs []models.Subscription) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteAllSubscriptions(ctx, tx); err != nil {
		return err
	}
	for i := range subs {
		if err := insertSubscription(ctx, tx, &subs[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ImportAll upserts the profile and replaces every subscription in one transaction.
func (s *SQLiteStore) ImportAll(ctx context.Context, user models.User, subs []models.Subscription) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertUser(ctx, tx, user); err != nil {
		return err
	}
	if err := deleteAllSubscriptions(ctx, tx); err != nil {
		return err
	}
	for i := range subs {
		if err := insertSubscription(ctx, tx, &subs[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ResetData removes every subscription and restores the default profile.
func (s *SQLiteStore) ResetData(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteAllSubscriptions(ctx, tx); err != nil {
		return err
	}
	if err := resetUser(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func deleteAllSubscriptions(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM shared_people"); err != nil {
		return fmt.Errorf("failed to delete shared people: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM subscriptions"); err != nil {
		return fmt.Errorf("failed to delete subscriptions: %w", err)
	}
	return nil
}
