package assert

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

type clock interface {
	Now() int64
}

type fakeClock struct{}

func (*fakeClock) Now() int64 { return 0 }

func TestNotNil(t *testing.T) {
	require.NotPanics(t, func() { NotNil(&sql.DB{}, "database") })
	require.NotPanics(t, func() { NotNil(fakeClock{}, "clock") })
	require.NotPanics(t, func() { NotNil(0, "count") })

	require.PanicsWithValue(t, "database must not be nil", func() { NotNil(nil, "database") })

	var db *sql.DB
	require.PanicsWithValue(t, "database must not be nil", func() { NotNil(db, "database") })

	var c clock = (*fakeClock)(nil)
	require.PanicsWithValue(t, "clock must not be nil", func() { NotNil(c, "clock") })
}
