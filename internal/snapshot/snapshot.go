package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"kontomanager/internal/components/assert"
	"kontomanager/internal/components/chrono"
	"kontomanager/internal/components/telemetry"
	"kontomanager/internal/scrapers/kontomanager"
	"kontomanager/internal/snapshot/db"
	"math"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	report_db_query     = "db.query"
	report_save_usage   = "store.save-usage"
	report_save_bills   = "store.save-bills"
	report_save_history = "store.save-call-history"
	report_collect      = "store.collect"
	report_collector    = "collector.run"
	in_memory_database  = ":memory:"
	sqlite_driver       = "sqlite"
	wal_pragma          = "PRAGMA journal_mode=WAL"
	foreign_keys_pragma = "PRAGMA foreign_keys=ON"
)

// Store keeps what was scraped from the portal in a sqlite database so it can be compared
// over time. It is written to after a scrape, it never serves reads for the client.
type Store struct {
	database *sql.DB
	db       *db.Queries
	makeTx   db.MakeTx
	tel      telemetry.API
	time     chrono.TimeAPI
}

// Open opens (or creates) the sqlite database at `path` and applies the schema.
func Open(path string, clock chrono.TimeAPI, tel telemetry.API) (Store, error) {
	database, err := sql.Open(sqlite_driver, path)
	if err != nil {
		return Store{}, err
	}
	// sqlite only allows a single writer
	database.SetMaxOpenConns(1)

	pragmas := []string{foreign_keys_pragma}
	if path != in_memory_database {
		pragmas = append(pragmas, wal_pragma)
	}
	for _, pragma := range pragmas {
		_, err = database.Exec(pragma)
		if err != nil {
			database.Close()
			return Store{}, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	_, err = database.Exec(db.Schema)
	if err != nil {
		database.Close()
		return Store{}, fmt.Errorf("apply schema: %w", err)
	}
	return NewStore(database, clock, tel), nil
}

func NewStore(database *sql.DB, clock chrono.TimeAPI, tel telemetry.API) Store {
	assert.NotNil(database, "snapshot: database")
	assert.NotNil(clock, "snapshot: clock")
	assert.NotNil(tel, "snapshot: telemetry")

	return Store{
		database: database,
		db:       db.New(database),
		makeTx:   db.NewMakeTx(database),
		time:     clock,
		tel:      telemetry.NewScopedAPI("snapshot", tel),
	}
}

func (s Store) Close() error {
	return s.database.Close()
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// quotaColumns splits a quota into its used and total columns, an unlimited total is stored as null.
func quotaColumns(q *kontomanager.UnitQuota) (used, total sql.NullFloat64) {
	if q == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	used = sql.NullFloat64{Float64: q.Used, Valid: true}
	if !q.Unlimited && !math.IsInf(q.Total, 0) {
		total = sql.NullFloat64{Float64: q.Total, Valid: true}
	}
	return used, total
}

// SaveUsage records an account overview along with its packages and returns the snapshot id.
func (s Store) SaveUsage(ctx context.Context, usage kontomanager.AccountUsage) (int64, error) {
	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("make tx: %w", err))
		return 0, err
	}
	defer discard()

	param := db.CreateUsageSnapshotParams{
		TakenAt:      s.time.Now().Unix(),
		PhoneNumber:  usage.PhoneNumber,
		IsPrepaid:    usage.IsPrepaid,
		Credit:       nullFloat(usage.Credit),
		CurrentCosts: usage.CurrentCosts,
		NextBillDate: nullTime(usage.NextBillDate),
	}
	snapshotId, err := tx.CreateUsageSnapshot(ctx, param)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "CreateUsageSnapshot", param)
		return 0, err
	}

	for _, pkg := range usage.Packages {
		dataUsed, dataTotal := quotaColumns(pkg.DataDomestic)
		minutesUsed, minutesTotal := quotaColumns(pkg.Minutes)
		var dataUnit sql.NullString
		if pkg.DataDomestic != nil {
			dataUnit = sql.NullString{String: pkg.DataDomestic.Unit, Valid: true}
		}

		param := db.CreatePackageUsageParams{
			SnapshotID:   snapshotId,
			Name:         pkg.Name,
			ValidUntil:   nullTime(pkg.ValidUntil),
			DataUsed:     dataUsed,
			DataTotal:    dataTotal,
			DataUnit:     dataUnit,
			MinutesUsed:  minutesUsed,
			MinutesTotal: minutesTotal,
			MonthlyCost:  nullFloat(pkg.MonthlyCost),
		}
		err = tx.CreatePackageUsage(ctx, param)
		if err != nil {
			s.tel.ReportBroken(report_db_query, err, "CreatePackageUsage", param)
			return 0, err
		}
	}

	err = commit()
	if err != nil {
		s.tel.ReportBroken(report_save_usage, fmt.Errorf("commit: %w", err))
		return 0, err
	}
	return snapshotId, nil
}

// SaveBills upserts bills by their number.
func (s Store) SaveBills(ctx context.Context, bills []kontomanager.BillSummary) error {
	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("make tx: %w", err))
		return err
	}
	defer discard()

	for _, bill := range bills {
		var egn sql.NullString
		if bill.HasEgn {
			egn = sql.NullString{String: bill.EgnPdfUrl, Valid: true}
		}
		param := db.UpsertBillParams{
			BillNumber: bill.BillNumber,
			Date:       bill.Date.Unix(),
			Amount:     bill.Amount,
			Currency:   bill.Currency,
			HasEgn:     bill.HasEgn,
			BillPdfUrl: bill.BillPdfUrl,
			EgnPdfUrl:  egn,
		}
		err = tx.UpsertBill(ctx, param)
		if err != nil {
			s.tel.ReportBroken(report_db_query, err, "UpsertBill", param)
			return err
		}
	}

	err = commit()
	if err != nil {
		s.tel.ReportBroken(report_save_bills, fmt.Errorf("commit: %w", err))
		return err
	}
	return nil
}

// SaveCallHistory records entries not seen before and returns how many were new.
func (s Store) SaveCallHistory(ctx context.Context, entries []kontomanager.CallHistoryEntry) (int64, error) {
	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("make tx: %w", err))
		return 0, err
	}
	defer discard()

	var inserted int64
	for _, entry := range entries {
		param := db.InsertCallHistoryParams{
			Timestamp: entry.Timestamp.Unix(),
			Number:    entry.Number,
			Type:      entry.Type,
			Duration:  entry.Duration,
			Cost:      entry.Cost,
		}
		affected, err := tx.InsertCallHistory(ctx, param)
		if err != nil {
			s.tel.ReportBroken(report_db_query, err, "InsertCallHistory", param)
			return 0, err
		}
		inserted += affected
	}

	err = commit()
	if err != nil {
		s.tel.ReportBroken(report_save_history, fmt.Errorf("commit: %w", err))
		return 0, err
	}
	s.tel.ReportCount(report_save_history, inserted)
	return inserted, nil
}

// UsageRecord is a stored account overview.
type UsageRecord struct {
	TakenAt      time.Time
	PhoneNumber  string
	IsPrepaid    bool
	Credit       *float64
	CurrentCosts float64
	Packages     []string
}

// LatestUsage returns the most recent overview, ok is false if nothing was saved yet.
func (s Store) LatestUsage(ctx context.Context) (record UsageRecord, ok bool, err error) {
	latest, err := s.db.GetLatestUsageSnapshot(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return UsageRecord{}, false, nil
	}
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "GetLatestUsageSnapshot")
		return UsageRecord{}, false, err
	}
	packages, err := s.db.GetSnapshotPackages(ctx, latest.ID)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "GetSnapshotPackages", latest.ID)
		return UsageRecord{}, false, err
	}

	record = UsageRecord{
		TakenAt:      time.Unix(latest.TakenAt, 0).In(chrono.Vienna()),
		PhoneNumber:  latest.PhoneNumber,
		IsPrepaid:    latest.IsPrepaid,
		CurrentCosts: latest.CurrentCosts,
	}
	if latest.Credit.Valid {
		credit := latest.Credit.Float64
		record.Credit = &credit
	}
	for _, pkg := range packages {
		record.Packages = append(record.Packages, pkg.Name)
	}
	return record, true, nil
}

// Bills returns every stored bill, newest first.
func (s Store) Bills(ctx context.Context) ([]kontomanager.BillSummary, error) {
	rows, err := s.db.GetBills(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "GetBills")
		return nil, err
	}
	bills := make([]kontomanager.BillSummary, len(rows))
	for i, row := range rows {
		bills[i] = kontomanager.BillSummary{
			BillNumber: row.BillNumber,
			Date:       time.Unix(row.Date, 0).In(chrono.Vienna()),
			Amount:     row.Amount,
			Currency:   row.Currency,
			HasEgn:     row.HasEgn,
			BillPdfUrl: row.BillPdfUrl,
			EgnPdfUrl:  row.EgnPdfUrl.String,
		}
	}
	return bills, nil
}

func (s Store) CallHistoryCount(ctx context.Context) (int64, error) {
	count, err := s.db.CountCallHistory(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "CountCallHistory")
	}
	return count, err
}

// Source is the part of the portal client a collection needs.
type Source interface {
	GetAccountUsage(ctx context.Context) (kontomanager.AccountUsage, error)
	ListBills(ctx context.Context) ([]kontomanager.BillSummary, error)
	ListCallHistory(ctx context.Context) ([]kontomanager.CallHistoryEntry, error)
}

// CollectResult summarizes what a collection stored.
type CollectResult struct {
	SnapshotId     int64
	Bills          int
	NewCallHistory int64
}

// Collect scrapes the overview, bills and call history from `source` and saves them.
func (s Store) Collect(ctx context.Context, source Source) (CollectResult, error) {
	usage, err := source.GetAccountUsage(ctx)
	if err != nil {
		s.tel.ReportBroken(report_collect, fmt.Errorf("get account usage: %w", err))
		return CollectResult{}, err
	}
	bills, err := source.ListBills(ctx)
	if err != nil {
		s.tel.ReportBroken(report_collect, fmt.Errorf("list bills: %w", err))
		return CollectResult{}, err
	}
	history, err := source.ListCallHistory(ctx)
	if err != nil {
		s.tel.ReportBroken(report_collect, fmt.Errorf("list call history: %w", err))
		return CollectResult{}, err
	}

	snapshotId, err := s.SaveUsage(ctx, usage)
	if err != nil {
		return CollectResult{}, err
	}
	err = s.SaveBills(ctx, bills)
	if err != nil {
		return CollectResult{}, err
	}
	inserted, err := s.SaveCallHistory(ctx, history)
	if err != nil {
		return CollectResult{}, err
	}

	return CollectResult{
		SnapshotId:     snapshotId,
		Bills:          len(bills),
		NewCallHistory: inserted,
	}, nil
}

// Collector runs collections of one source one at a time. The portal session behind a source
// is used strictly sequentially, so a run that starts while another is going is skipped.
type Collector struct {
	store   Store
	source  Source
	running sync.Mutex
}

func NewCollector(store Store, source Source) *Collector {
	assert.NotNil(source, "snapshot: collector source")
	return &Collector{store: store, source: source}
}

// Run collects once, ran is false when it was skipped because a collection is in progress.
func (c *Collector) Run(ctx context.Context) (result CollectResult, ran bool, err error) {
	if !c.running.TryLock() {
		c.store.tel.ReportWarning(report_collector, "skipped, the previous collection is still running")
		return CollectResult{}, false, nil
	}
	defer c.running.Unlock()

	result, err = c.store.Collect(ctx, c.source)
	return result, true, err
}
