// Package backup converts the full data set to and from a portable JSON document.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/mmynk/subsync/internal/apperr"
	"github.com/mmynk/subsync/internal/models"
)

// DocumentVersion is written into every export.
const DocumentVersion = "1.0"

// Document is the export file layout.
type Document struct {
	Version       string               `json:"version"`
	ExportDate    string               `json:"exportDate"`
	User          UserRecord           `json:"user"`
	Subscriptions []SubscriptionRecord `json:"subscriptions"`
}

// UserRecord is the profile as exported.
type UserRecord struct {
	Name     string `json:"name"`
	Photo    string `json:"photo"`
	Currency string `json:"currency"`
	Theme    string `json:"theme"`
}

// SubscriptionRecord is one subscription as exported. Price is written as a
// JSON number with the exact decimal digits.
type SubscriptionRecord struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Price       json.Number `json:"price"`
	Category    string      `json:"category"`
	BillingDate string      `json:"billingDate"`
	Icon        string      `json:"icon"`
	Shared      bool        `json:"shared"`
	SharedWith  []string    `json:"sharedWith"`
	Cycle       string      `json:"cycle"`
}

// Repository is what the backup service reads from and writes to.
type Repository interface {
	GetUser(ctx context.Context) (models.User, error)
	ListSubscriptions(ctx context.Context) ([]models.Subscription, error)
	ImportAll(ctx context.Context, user models.User, subs []models.Subscription) error
}

// Service implements export and import.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a backup Service over repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// FileName is the suggested name of an export written on day t.
func FileName(t time.Time) string {
	return fmt.Sprintf("subsync_backup_%s.json", t.Format("2006-01-02"))
}

// Export collects the profile and every subscription into a Document.
func (s *Service) Export(ctx context.Context) (*Document, error) {
	user, err := s.repo.GetUser(ctx)
	if err != nil {
		return nil, err
	}
	subs, err := s.repo.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Version:    DocumentVersion,
		ExportDate: s.now().UTC().Format(time.RFC3339),
		User: UserRecord{
			Name:     user.Name,
			Photo:    user.Photo,
			Currency: user.Currency,
			Theme:    string(user.Theme),
		},
		Subscriptions: make([]SubscriptionRecord, 0, len(subs)),
	}
	for _, sub := range subs {
		shared := sub.SharedWith
		if shared == nil {
			shared = []string{}
		}
		doc.Subscriptions = append(doc.Subscriptions, SubscriptionRecord{
			ID:          sub.ID,
			Name:        sub.Name,
			Price:       json.Number(sub.Price.String()),
			Category:    string(sub.Category),
			BillingDate: sub.BillingDate.String(),
			Icon:        sub.Icon,
			Shared:      sub.Shared(),
			SharedWith:  shared,
			Cycle:       string(sub.Cycle),
		})
	}

	return doc, nil
}

// WriteExport writes the export as indented JSON.
func (s *Service) WriteExport(ctx context.Context, w io.Writer) error {
	doc, err := s.Export(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	slog.InfoContext(ctx, "Data exported", "subscriptions", len(doc.Subscriptions))
	return nil
}

// requiredFields are the top-level fields an import document must carry.
var requiredFields = []string{"version", "user", "subscriptions"}

// absent reports whether a raw JSON value counts as missing: not present,
// null, or an empty/false/zero scalar.
func absent(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", `""`, "false", "0":
		return true
	}
	return false
}

// Import replaces the profile and every subscription with the contents of r.
// The document is fully decoded before anything is changed. Subscription IDs
// from the document are kept.
func (s *Service) Import(ctx context.Context, r io.Reader) (int, error) {
	const op = "import"

	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read import: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return 0, fmt.Errorf("failed to parse import: %w", err)
	}

	var missing []string
	for _, name := range requiredFields {
		if absent(fields[name]) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return 0, apperr.New(apperr.ErrFormat, op, &apperr.FormatError{Missing: missing})
	}

	var userRec UserRecord
	if err := json.Unmarshal(fields["user"], &userRec); err != nil {
		return 0, fmt.Errorf("failed to decode user: %w", err)
	}
	var subRecs []SubscriptionRecord
	if err := json.Unmarshal(fields["subscriptions"], &subRecs); err != nil {
		return 0, fmt.Errorf("failed to decode subscriptions: %w", err)
	}

	subs := make([]models.Subscription, 0, len(subRecs))
	for i, rec := range subRecs {
		sub, err := rec.toModel()
		if err != nil {
			return 0, fmt.Errorf("subscription %d: %w", i, err)
		}
		subs = append(subs, sub)
	}

	user := models.User{
		Name:     userRec.Name,
		Photo:    userRec.Photo,
		Currency: userRec.Currency,
		Theme:    models.Theme(userRec.Theme),
	}
	if err := s.repo.ImportAll(ctx, user, subs); err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Data imported", "subscriptions", len(subs))
	return len(subs), nil
}

func (rec SubscriptionRecord) toModel() (models.Subscription, error) {
	price, err := decimal.NewFromString(rec.Price.String())
	if err != nil {
		return models.Subscription{}, fmt.Errorf("invalid price %q: %w", rec.Price, err)
	}
	date, err := civil.ParseDate(rec.BillingDate)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("invalid billing date %q: %w", rec.BillingDate, err)
	}

	return models.Subscription{
		ID:          rec.ID,
		Name:        rec.Name,
		Price:       price,
		Category:    models.Category(rec.Category),
		BillingDate: date,
		Icon:        rec.Icon,
		Cycle:       models.Cycle(rec.Cycle),
		SharedWith:  rec.SharedWith,
	}, nil
}
