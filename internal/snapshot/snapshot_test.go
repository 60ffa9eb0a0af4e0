package snapshot

import (
	"context"
	"errors"
	"kontomanager/internal/components/chrono"
	"kontomanager/internal/components/telemetry"
	"kontomanager/internal/scrapers/kontomanager"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.March, 20, 12, 0, 0, 0, chrono.Vienna())

func setup(t testing.TB) (Store, *telemetry.RecordingAPI) {
	tel := telemetry.NewRecordingAPI()
	store, err := Open(":memory:", chrono.FixedTime{At: testNow}, tel)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store, tel
}

func ptr[T any](value T) *T {
	return &value
}

type fakeSource struct {
	usage   kontomanager.AccountUsage
	bills   []kontomanager.BillSummary
	history []kontomanager.CallHistoryEntry
	err     error
}

func (f fakeSource) GetAccountUsage(context.Context) (kontomanager.AccountUsage, error) {
	return f.usage, f.err
}

func (f fakeSource) ListBills(context.Context) ([]kontomanager.BillSummary, error) {
	return f.bills, nil
}

func (f fakeSource) ListCallHistory(context.Context) ([]kontomanager.CallHistoryEntry, error) {
	return f.history, nil
}

func testSource() fakeSource {
	unlimited := kontomanager.NewUnitQuota(120, math.Inf(1), "Minutes/SMS")
	data := kontomanager.NewUnitQuota(3, 5, "GB")
	return fakeSource{
		usage: kontomanager.AccountUsage{
			PhoneNumber:  "+436811234567",
			CurrentCosts: 12.34,
			Packages: []kontomanager.PackageUsage{
				{Name: "Mein Tarif", Minutes: &unlimited, DataDomestic: &data, MonthlyCost: ptr(9.9)},
				{Name: "yesss! Basic"},
			},
		},
		bills: []kontomanager.BillSummary{
			{
				BillNumber: "R-1001",
				Date:       time.Date(2024, time.March, 5, 0, 0, 0, 0, chrono.Vienna()),
				Amount:     23.45,
				Currency:   "EUR",
				HasEgn:     true,
				BillPdfUrl: "https://example.com/app/rechnung.php?id=1001",
				EgnPdfUrl:  "https://example.com/app/egn.php?id=1001",
			},
			{
				BillNumber: "R-1000",
				Date:       time.Date(2024, time.February, 5, 0, 0, 0, 0, chrono.Vienna()),
				Amount:     9.9,
				Currency:   "EUR",
				BillPdfUrl: "https://example.com/app/rechnung.php?id=1000",
			},
		},
		history: []kontomanager.CallHistoryEntry{
			{Timestamp: time.Date(2024, time.March, 14, 18, 5, 33, 0, chrono.Vienna()), Type: "Telefonat", Number: "0664 1234567", Duration: "0:02:17"},
			{Timestamp: time.Date(2024, time.March, 15, 8, 30, 0, 0, chrono.Vienna()), Type: "SMS", Number: "0664 7654321", Duration: "0:00:00", Cost: 0.19},
		},
	}
}

func TestCollect(t *testing.T) {
	store, _ := setup(t)
	ctx := context.Background()
	source := testSource()

	result, err := store.Collect(ctx, source)
	require.NoError(t, err)
	require.Equal(t, 2, result.Bills)
	require.Equal(t, int64(2), result.NewCallHistory)

	record, ok, err := store.LatestUsage(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "+436811234567", record.PhoneNumber)
	require.Equal(t, 12.34, record.CurrentCosts)
	require.Nil(t, record.Credit)
	require.True(t, record.TakenAt.Equal(testNow))
	require.Equal(t, []string{"Mein Tarif", "yesss! Basic"}, record.Packages)

	bills, err := store.Bills(ctx)
	require.NoError(t, err)
	require.Len(t, bills, 2)
	require.Equal(t, "R-1001", bills[0].BillNumber)
	require.True(t, bills[0].Date.Equal(source.bills[0].Date))
	require.Equal(t, source.bills[0].EgnPdfUrl, bills[0].EgnPdfUrl)
	require.Empty(t, bills[1].EgnPdfUrl)

	// a second collection only adds what is new
	source.history = append(source.history, kontomanager.CallHistoryEntry{
		Timestamp: time.Date(2024, time.March, 16, 9, 0, 0, 0, chrono.Vienna()),
		Type:      "SMS",
		Number:    "0664 7654321",
		Duration:  "0:00:00",
	})
	source.bills[1].Amount = 10.9

	result, err = store.Collect(ctx, source)
	require.NoError(t, err)
	require.Equal(t, int64(1), result.NewCallHistory)

	count, err := store.CallHistoryCount(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	bills, err = store.Bills(ctx)
	require.NoError(t, err)
	require.Len(t, bills, 2)
	require.Equal(t, 10.9, bills[1].Amount)
}

func TestCollectFailure(t *testing.T) {
	store, tel := setup(t)
	source := testSource()
	source.err = errors.New("portal down")

	_, err := store.Collect(context.Background(), source)
	require.Error(t, err)
	require.Len(t, tel.Broken, 1)

	_, ok, err := store.LatestUsage(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kontomanager.db")
	store, err := Open(path, chrono.FixedTime{At: testNow}, telemetry.NewRecordingAPI())
	require.NoError(t, err)

	_, err = store.SaveUsage(context.Background(), testSource().usage)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path, chrono.FixedTime{At: testNow}, telemetry.NewRecordingAPI())
	require.NoError(t, err)
	defer reopened.Close()

	record, ok, err := reopened.LatestUsage(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, record.Packages, 2)
}

type blockingSource struct {
	fakeSource
	entered chan struct{}
	release chan struct{}
}

func (b blockingSource) GetAccountUsage(ctx context.Context) (kontomanager.AccountUsage, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.fakeSource.GetAccountUsage(ctx)
}

func TestCollectorSkipsOverlappingRuns(t *testing.T) {
	store, tel := setup(t)
	ctx := context.Background()
	source := blockingSource{
		fakeSource: testSource(),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	collector := NewCollector(store, source)

	type outcome struct {
		ran bool
		err error
	}
	first := make(chan outcome)
	go func() {
		_, ran, err := collector.Run(ctx)
		first <- outcome{ran: ran, err: err}
	}()
	<-source.entered

	_, ran, err := collector.Run(ctx)
	require.NoError(t, err)
	require.False(t, ran)
	require.Len(t, tel.Warnings, 1)

	close(source.release)
	done := <-first
	require.NoError(t, done.err)
	require.True(t, done.ran)

	// once the first run finished the next one goes through
	go func() {
		<-source.entered
	}()
	result, ran, err := collector.Run(ctx)
	require.NoError(t, err)
	require.True(t, ran)
	require.Equal(t, 2, result.Bills)
}
