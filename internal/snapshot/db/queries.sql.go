package db

import (
	"context"
	"database/sql"
)

const createUsageSnapshot = `-- name: CreateUsageSnapshot :one
insert into usage_snapshot(taken_at, phone_number, is_prepaid, credit, current_costs, next_bill_date)
values (?, ?, ?, ?, ?, ?)
returning id
`

type CreateUsageSnapshotParams struct {
	TakenAt      int64
	PhoneNumber  string
	IsPrepaid    bool
	Credit       sql.NullFloat64
	CurrentCosts float64
	NextBillDate sql.NullInt64
}

func (q *Queries) CreateUsageSnapshot(ctx context.Context, arg CreateUsageSnapshotParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createUsageSnapshot,
		arg.TakenAt,
		arg.PhoneNumber,
		arg.IsPrepaid,
		arg.Credit,
		arg.CurrentCosts,
		arg.NextBillDate,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const createPackageUsage = `-- name: CreatePackageUsage :exec
insert into package_usage(snapshot_id, name, valid_until, data_used, data_total, data_unit, minutes_used, minutes_total, monthly_cost)
values (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreatePackageUsageParams struct {
	SnapshotID   int64
	Name         string
	ValidUntil   sql.NullInt64
	DataUsed     sql.NullFloat64
	DataTotal    sql.NullFloat64
	DataUnit     sql.NullString
	MinutesUsed  sql.NullFloat64
	MinutesTotal sql.NullFloat64
	MonthlyCost  sql.NullFloat64
}

func (q *Queries) CreatePackageUsage(ctx context.Context, arg CreatePackageUsageParams) error {
	_, err := q.db.ExecContext(ctx, createPackageUsage,
		arg.SnapshotID,
		arg.Name,
		arg.ValidUntil,
		arg.DataUsed,
		arg.DataTotal,
		arg.DataUnit,
		arg.MinutesUsed,
		arg.MinutesTotal,
		arg.MonthlyCost,
	)
	return err
}

const getLatestUsageSnapshot = `-- name: GetLatestUsageSnapshot :one
select id, taken_at, phone_number, is_prepaid, credit, current_costs, next_bill_date from usage_snapshot
order by taken_at desc, id desc
limit 1
`

func (q *Queries) GetLatestUsageSnapshot(ctx context.Context) (UsageSnapshot, error) {
	row := q.db.QueryRowContext(ctx, getLatestUsageSnapshot)
	var i UsageSnapshot
	err := row.Scan(
		&i.ID,
		&i.TakenAt,
		&i.PhoneNumber,
		&i.IsPrepaid,
		&i.Credit,
		&i.CurrentCosts,
		&i.NextBillDate,
	)
	return i, err
}

const getSnapshotPackages = `-- name: GetSnapshotPackages :many
select id, snapshot_id, name, valid_until, data_used, data_total, data_unit, minutes_used, minutes_total, monthly_cost from package_usage
where snapshot_id = ?
order by id asc
`

func (q *Queries) GetSnapshotPackages(ctx context.Context, snapshotID int64) ([]PackageUsage, error) {
	rows, err := q.db.QueryContext(ctx, getSnapshotPackages, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PackageUsage
	for rows.Next() {
		var i PackageUsage
		if err := rows.Scan(
			&i.ID,
			&i.SnapshotID,
			&i.Name,
			&i.ValidUntil,
			&i.DataUsed,
			&i.DataTotal,
			&i.DataUnit,
			&i.MinutesUsed,
			&i.MinutesTotal,
			&i.MonthlyCost,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertBill = `-- name: UpsertBill :exec
insert into bill(bill_number, date, amount, currency, has_egn, bill_pdf_url, egn_pdf_url)
values (?, ?, ?, ?, ?, ?, ?)
on conflict (bill_number) do update set
    date = excluded.date,
    amount = excluded.amount,
    has_egn = excluded.has_egn,
    bill_pdf_url = excluded.bill_pdf_url,
    egn_pdf_url = excluded.egn_pdf_url
`

type UpsertBillParams struct {
	BillNumber string
	Date       int64
	Amount     float64
	Currency   string
	HasEgn     bool
	BillPdfUrl string
	EgnPdfUrl  sql.NullString
}

func (q *Queries) UpsertBill(ctx context.Context, arg UpsertBillParams) error {
	_, err := q.db.ExecContext(ctx, upsertBill,
		arg.BillNumber,
		arg.Date,
		arg.Amount,
		arg.Currency,
		arg.HasEgn,
		arg.BillPdfUrl,
		arg.EgnPdfUrl,
	)
	return err
}

const getBills = `-- name: GetBills :many
select bill_number, date, amount, currency, has_egn, bill_pdf_url, egn_pdf_url from bill
order by date desc
`

func (q *Queries) GetBills(ctx context.Context) ([]Bill, error) {
	rows, err := q.db.QueryContext(ctx, getBills)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Bill
	for rows.Next() {
		var i Bill
		if err := rows.Scan(
			&i.BillNumber,
			&i.Date,
			&i.Amount,
			&i.Currency,
			&i.HasEgn,
			&i.BillPdfUrl,
			&i.EgnPdfUrl,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertCallHistory = `-- name: InsertCallHistory :execrows
insert or ignore into call_history(timestamp, number, type, duration, cost)
values (?, ?, ?, ?, ?)
`

type InsertCallHistoryParams struct {
	Timestamp int64
	Number    string
	Type      string
	Duration  string
	Cost      float64
}

func (q *Queries) InsertCallHistory(ctx context.Context, arg InsertCallHistoryParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertCallHistory,
		arg.Timestamp,
		arg.Number,
		arg.Type,
		arg.Duration,
		arg.Cost,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countCallHistory = `-- name: CountCallHistory :one
select count(*) from call_history
`

func (q *Queries) CountCallHistory(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countCallHistory)
	var count int64
	err := row.Scan(&count)
	return count, err
}
