package report

import (
	"bytes"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mmynk/subsync/internal/models"
)

func TestWriteWorkbook(t *testing.T) {
	subs := []models.Subscription{
		{
			ID: 2, Name: "Netflix", Price: decimal.RequireFromString("15.99"), Category: models.CategoryEntertainment,
			BillingDate: civil.Date{Year: 2024, Month: 3, Day: 5}, Cycle: models.CycleMonthly, SharedWith: []string{"Ana"},
		},
		{
			ID: 1, Name: "Gym", Price: decimal.RequireFromString("30"), Category: models.CategoryHealth,
			BillingDate: civil.Date{Year: 2024, Month: 3, Day: 15}, Cycle: models.CycleYearly,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, models.User{Currency: "EUR"}, subs))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{SubscriptionsSheet, CategoriesSheet}, f.GetSheetList())

	rows, err := f.GetRows(SubscriptionsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "name", rows[0][1])
	require.Equal(t, []string{"2", "Netflix", "Entertainment", "2024-03-05", "monthly", "15.99", "Ana", "8"}, rows[1])
	require.Equal(t, "Gym", rows[2][1])

	cats, err := f.GetRows(CategoriesSheet)
	require.NoError(t, err)
	require.Equal(t, []string{"Entertainment", "1", "8"}, cats[1])
	require.Equal(t, []string{"Health", "1", "30"}, cats[4])
	require.Equal(t, []string{"Total", "2", "38"}, cats[5])
	require.Equal(t, []string{"Currency", "EUR", "€"}, cats[7])
}

func TestFileName(t *testing.T) {
	at := time.Date(2024, time.March, 7, 9, 5, 1, 0, time.UTC)
	require.Equal(t, "subsync_report_20240307_090501.xlsx", FileName(at))
}
