package chrono

import (
	"time"
	_ "time/tzdata"
)

var vienna *time.Location

func init() {
	var err error
	vienna, err = time.LoadLocation("Europe/Vienna")
	if err != nil {
		panic(err)
	}
}

// Vienna returns a [*time.Location] for Europe/Vienna, the portal renders every
// date and time in this zone.
func Vienna() *time.Location {
	return vienna
}

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in Europe/Vienna.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (StandardTime) Now() time.Time {
	return time.Now().In(vienna)
}

// FixedTime always returns the same instant, it is meant for tests.
type FixedTime struct {
	At time.Time
}

func (f FixedTime) Now() time.Time {
	return f.At.In(vienna)
}
