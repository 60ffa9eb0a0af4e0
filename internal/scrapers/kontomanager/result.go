package kontomanager

import (
	"kontomanager/internal/components/telemetry"
)

// rowResult is the outcome of parsing one row of a listing, either a value or the reason
// the row was skipped.
type rowResult[T any] struct {
	value  T
	reason string
}

func keepRow[T any](value T) rowResult[T] {
	return rowResult[T]{value: value}
}

func skipRow[T any](reason string) rowResult[T] {
	return rowResult[T]{reason: reason}
}

func (r rowResult[T]) skipped() bool {
	return r.reason != ""
}

// collectRows reports every skipped row as a warning under `report` and returns the kept values,
// an empty listing is reported as well since it usually means the markup changed.
func collectRows[T any](tel telemetry.API, report string, rows []rowResult[T]) []T {
	values := make([]T, 0, len(rows))
	for _, row := range rows {
		if row.skipped() {
			tel.ReportWarning(report, "skipped row", row.reason)
			continue
		}
		values = append(values, row.value)
	}
	tel.ReportCount(report, int64(len(values)))
	if len(values) == 0 {
		tel.ReportWarning(report, "listing is empty")
	}
	return values
}
