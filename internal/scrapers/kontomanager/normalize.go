package kontomanager

import (
	"kontomanager/internal/components/chrono"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const country_code = "43"

const (
	date_layout          = "02.01.2006"
	date_minute_layout   = "02.01.2006 15:04"
	date_time_layout     = "02.01.2006 15:04:05"
	unlimited_marker     = "unlimited"
	minutes_sms_unit     = "Minutes/SMS"
	megabyte_unit        = "MB"
	default_currency     = "EUR"
	default_duration     = "0:00:00"
	default_history_type = "Unbekannt"
)

var nonDigitRegex = regexp.MustCompile(`\D`)

// NormalizePhoneNumber formats a phone number to E.164 for Austria. It is idempotent,
// the result either starts with "+43" or is empty.
func NormalizePhoneNumber(number string) string {
	digits := nonDigitRegex.ReplaceAllString(number, "")
	switch {
	case digits == "":
		return ""
	case strings.HasPrefix(digits, country_code):
		return "+" + digits
	case strings.HasPrefix(digits, "0"):
		return "+" + country_code + digits[1:]
	}
	return "+" + country_code + digits
}

var numberRegex = regexp.MustCompile(`[-+]?\d*\.?\d+`)

// ParseNumber parses the first number in a German formatted string ("1.234,56 €"),
// returning `def` if there is none.
func ParseNumber(text string, def float64) float64 {
	if text == "" {
		return def
	}
	cleaned := strings.ReplaceAll(text, "€", "")
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	match := numberRegex.FindString(strings.TrimSpace(cleaned))
	if match == "" {
		return def
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return def
	}
	return value
}

var usageBarRegex = regexp.MustCompile(`(?i)Verbraucht:\s*([\d\.,]+)\s*\(von\s*([\d\.,]+|unlimited)\s*(\w+)\)?`)

// ParseUsageBar parses the "Verbraucht: <used> (von <total> <unit>)" label of a progress bar,
// an unlimited total is returned as +Inf. If the text does not match, the unit is empty.
func ParseUsageBar(text string) (used, total float64, unit string) {
	groups := usageBarRegex.FindStringSubmatch(text)
	if len(groups) < 4 {
		return 0, 0, ""
	}
	used = ParseNumber(groups[1], 0)
	if strings.EqualFold(groups[2], unlimited_marker) {
		total = math.Inf(1)
	} else {
		total = ParseNumber(groups[2], 0)
	}
	return used, total, groups[3]
}

// NewUnitQuota builds a quota from a used/total pair, an infinite total marks it unlimited.
func NewUnitQuota(used, total float64, unit string) UnitQuota {
	return UnitQuota{
		Used:      used,
		Total:     total,
		Unit:      unit,
		Remaining: total - used,
		Unlimited: math.IsInf(total, 1),
	}
}

func parseDate(layout, text string) (time.Time, error) {
	return time.ParseInLocation(layout, strings.TrimSpace(text), chrono.Vienna())
}
