// Package report renders subscriptions as an XLSX workbook.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mmynk/subsync/internal/calculator"
	"github.com/mmynk/subsync/internal/models"
)

// Sheet names.
const (
	SubscriptionsSheet = "Subscriptions"
	CategoriesSheet    = "Categories"
)

var (
	subscriptionHeader = []any{"id", "name", "category", "billing_date", "cycle", "price", "shared_with", "your_share"}
	categoryHeader     = []any{"category", "count", "monthly_total"}
)

// FileName is the suggested name of a report written at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("subsync_report_%s.xlsx", t.Format("20060102_150405"))
}

// WriteWorkbook writes a workbook with one row per subscription and a
// per-category summary. Amounts are the raw numbers; the profile currency is
// noted in the summary.
func WriteWorkbook(w io.Writer, user models.User, subs []models.Subscription) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), SubscriptionsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := writeSubscriptions(f, subs); err != nil {
		return err
	}

	if _, err := f.NewSheet(CategoriesSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	if err := writeCategories(f, user, subs); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	if err := f.SetCellStyle(SubscriptionsSheet, "A1", "H1", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetCellStyle(CategoriesSheet, "A1", "C1", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSubscriptions(f *excelize.File, subs []models.Subscription) error {
	if err := f.SetSheetRow(SubscriptionsSheet, "A1", &subscriptionHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := 2
	for _, sub := range subs {
		excelRow := []any{
			sub.ID,
			sub.Name,
			sub.Category.Label(),
			sub.BillingDate.String(),
			string(sub.Cycle),
			sub.Price.InexactFloat64(),
			strings.Join(sub.SharedWith, ", "),
			calculator.SubscriptionShare(sub).Round(2).InexactFloat64(),
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", row, err)
		}
		if err := f.SetSheetRow(SubscriptionsSheet, cell, &excelRow); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
		row++
	}

	return f.SetColWidth(SubscriptionsSheet, "B", "B", 24)
}

func writeCategories(f *excelize.File, user models.User, subs []models.Subscription) error {
	if err := f.SetSheetRow(CategoriesSheet, "A1", &categoryHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := 2
	for _, c := range calculator.CategoryBreakdown(subs) {
		excelRow := []any{c.Category.Label(), c.Count, c.Amount.Round(2).InexactFloat64()}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", row, err)
		}
		if err := f.SetSheetRow(CategoriesSheet, cell, &excelRow); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
		row++
	}

	total := []any{"Total", len(subs), calculator.TotalMonthly(subs).Round(2).InexactFloat64()}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", row, err)
	}
	if err := f.SetSheetRow(CategoriesSheet, cell, &total); err != nil {
		return fmt.Errorf("failed to write total: %w", err)
	}

	currency := []any{"Currency", user.Currency, models.CurrencySymbol(user.Currency)}
	cell, err = excelize.CoordinatesToCellName(1, row+2)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", row+2, err)
	}
	return f.SetSheetRow(CategoriesSheet, cell, &currency)
}
