package telemetry

import (
	"strings"
	"sync"
)

// Report is a single call recorded by RecordingAPI.
type Report struct {
	Id     string
	Params []any
}

// RecordingAPI keeps every report in memory so tests can assert on them.
type RecordingAPI struct {
	mu       sync.Mutex
	Broken   []Report
	Warnings []Report
	Counts   map[string]int64
}

func NewRecordingAPI() *RecordingAPI {
	return &RecordingAPI{Counts: map[string]int64{}}
}

func (r *RecordingAPI) ReportBroken(id string, params ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Broken = append(r.Broken, Report{Id: id, Params: params})
}

func (r *RecordingAPI) ReportWarning(id string, params ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, Report{Id: id, Params: params})
}

func (r *RecordingAPI) ReportDebug(string, ...any) {}

func (r *RecordingAPI) ReportCount(id string, count int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Counts[id] = count
}

// WarningsFor returns the warnings whose id ends with the given suffix.
func (r *RecordingAPI) WarningsFor(suffix string) []Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Report
	for _, w := range r.Warnings {
		if strings.HasSuffix(w.Id, suffix) {
			out = append(out, w)
		}
	}
	return out
}
