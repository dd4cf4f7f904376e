package invoicing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPeriodFilterResolve(t *testing.T) {
	today := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)

	start, end, err := PeriodFilter{Type: PeriodMonthly, Year: 2025, Month: 2}.Resolve(today)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), end)

	start, end, err = PeriodFilter{Type: PeriodQuarterly, Year: 2025, Quarter: 4}.Resolve(today)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), end)

	// Unpinned periods run from the period start to today.
	start, end, err = PeriodFilter{Type: PeriodMonthly}.Resolve(today)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, today, end)

	start, end, err = PeriodFilter{Type: PeriodQuarterly}.Resolve(today)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, today, end)

	_, _, err = PeriodFilter{Type: PeriodMonthly, Year: 2025, Month: 13}.Resolve(today)
	require.Error(t, err)
	_, _, err = PeriodFilter{Type: PeriodQuarterly, Year: 2025, Quarter: 5}.Resolve(today)
	require.Error(t, err)
	_, _, err = PeriodFilter{Type: "weekly"}.Resolve(today)
	require.Error(t, err)
}

func TestListPeriodDefaultsToIssuedStatuses(t *testing.T) {
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)
	company := seedTestCompany(t, svc)
	issue := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)

	_, err := svc.CreateDraft(context.Background(), draftInput(company.ID, issue))
	require.NoError(t, err)

	sent, err := svc.CreateDraft(context.Background(), draftInput(company.ID, issue))
	require.NoError(t, err)
	_, err = svc.Finalize(context.Background(), sent.ID)
	require.NoError(t, err)

	got, err := svc.ListPeriod(context.Background(), company.ID, PeriodFilter{
		Type: PeriodMonthly, Year: 2025, Month: 1,
	})
	require.NoError(t, err)
	require.Len(t, got, 1, "drafts stay out of period listings")
	require.Equal(t, sent.ID, got[0].ID)
}
