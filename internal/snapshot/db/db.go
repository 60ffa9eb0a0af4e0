package db

import (
	"context"
	"database/sql"

	_ "embed"
)

//go:embed schema.sql
var Schema string

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type UsageSnapshot struct {
	ID           int64
	TakenAt      int64
	PhoneNumber  string
	IsPrepaid    bool
	Credit       sql.NullFloat64
	CurrentCosts float64
	NextBillDate sql.NullInt64
}

type PackageUsage struct {
	ID           int64
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

type Bill struct {
	BillNumber string
	Date       int64
	Amount     float64
	Currency   string
	HasEgn     bool
	BillPdfUrl string
	EgnPdfUrl  sql.NullString
}
