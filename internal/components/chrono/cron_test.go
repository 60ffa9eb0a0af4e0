package chrono

import (
	"kontomanager/internal/components/telemetry"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStandardCron(t *testing.T) {
	tel := telemetry.NewRecordingAPI()
	cron := NewStandardCron(tel)

	fired := make(chan struct{}, 1)
	err := cron.Cron("@every 1s", func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("cron job did not run")
	}
	cron.Stop()

	require.Error(t, cron.Cron("not a schedule", func() {}))
}
