package kontomanager

import (
	"fmt"
	"kontomanager/internal/components/telemetry"
	"kontomanager/pkg/htmlutil"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const report_parse_overview = "parse.overview"

// cards that never describe a package, the costs card is read separately
var excludedCards = map[string]struct{}{
	"Ukraine Freieinheiten": {},
	"Ihre Kostenkontrolle":  {},
	"TUR SYR Einheiten":     {},
	"Verknüpfte Rufnummern": {},
	"Aktuelle Kosten":       {},
	"Oft benutzt":           {},
	"Gruppenfunktion":       {},
}

const (
	prepaid_heading_marker = "wertkarte"
	admin_marker           = "admin"
	sim_info_card          = "SIM Info"
	costs_card_marker      = "Aktuelle Kosten"
)

// parseActiveNumber reads the number shown in the user dropdown, it is formatted as
// "<name> - <number>" or "Admin - <number>" for the group administrator.
func parseActiveNumber(doc *goquery.Document) (number string, isAdmin bool) {
	raw := htmlutil.OwnText(doc.Find("#user-dropdown span").First())
	isAdmin = strings.Contains(strings.ToLower(raw), admin_marker)
	parts := strings.Split(raw, " - ")
	return NormalizePhoneNumber(parts[len(parts)-1]), isAdmin
}

// splitLabel splits "Key: value" into its lowercased key and the value, ok is false if
// the text has no colon.
func splitLabel(text string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(text, ":")
	if !ok {
		return "", "", false
	}
	return strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value), true
}

func parseAccountUsage(doc *goquery.Document, tel telemetry.API) AccountUsage {
	heading := strings.ToLower(htmlutil.JoinedText(doc.Find("h1").First()))

	usage := AccountUsage{
		IsPrepaid: strings.Contains(heading, prepaid_heading_marker),
		Packages:  []PackageUsage{},
	}
	usage.PhoneNumber, usage.IsAdmin = parseActiveNumber(doc)
	if usage.PhoneNumber == "" {
		tel.ReportWarning(report_parse_overview, "could not find the active phone number")
	}

	doc.Find("div.card").Each(func(_ int, card *goquery.Selection) {
		title := strings.ReplaceAll(htmlutil.OwnText(card.Find(".card-title").First()), ":", "")
		title = strings.TrimSpace(title)
		if title == "" {
			return
		}
		if _, excluded := excludedCards[title]; excluded {
			return
		}

		if usage.IsPrepaid && title == sim_info_card {
			parseSimInfoCard(card, &usage, tel)
			return
		}

		pkg, ok := parsePackageCard(title, card, tel)
		if ok {
			usage.Packages = append(usage.Packages, pkg)
		}
	})

	parseCostsCard(doc, &usage, tel)
	return usage
}

func parseSimInfoCard(card *goquery.Selection, usage *AccountUsage, tel telemetry.API) {
	var credit float64
	card.Find(".list-group-item").Each(func(_ int, item *goquery.Selection) {
		key, value, ok := splitLabel(htmlutil.JoinedText(item))
		if !ok {
			return
		}
		switch {
		case key == "ihr aktuelles standardguthaben" || key == "ihr aktuelles bonusguthaben":
			credit += ParseNumber(value, 0)
		case strings.Contains(key, "letzte aufladung"):
			usage.LastRecharge = parseOptionalDate(tel, date_layout, value, "last recharge")
		case strings.Contains(key, "gültigkeit") && strings.Contains(key, "sim"):
			usage.SimValidUntil = parseOptionalDate(tel, date_layout, value, "sim validity")
		}
	})
	usage.Credit = &credit

	card.Find(".list-group-item .bold").Each(func(_ int, bold *goquery.Selection) {
		text := htmlutil.OwnText(bold)
		if !strings.Contains(strings.ToLower(text), "tarif:") {
			return
		}
		parts := strings.Split(text, ":")
		name := strings.TrimSpace(parts[len(parts)-1])
		if name != "" {
			usage.Packages = append(usage.Packages, PackageUsage{Name: name})
		}
	})
}

var euDataRegex = regexp.MustCompile(`([\d\.,]+)\s*MB von ([\d\.,]+)\s*MB`)

// parsePackageCard returns ok=false when the card carries no usage bar the parser understands.
func parsePackageCard(title string, card *goquery.Selection, tel telemetry.API) (PackageUsage, bool) {
	pkg := PackageUsage{Name: title}

	card.Find(".progress-item").Each(func(_ int, item *goquery.Selection) {
		heading := strings.ToLower(htmlutil.OwnText(item.Find(".progress-heading").First()))
		used, total, unit := ParseUsageBar(htmlutil.OwnText(item.Find(".bar-label-right").First()))
		if unit == "" {
			return
		}
		switch {
		case strings.Contains(heading, "minuten/sms"):
			// the portal reports minutes and sms as one shared bar
			minutes := NewUnitQuota(used, total, minutes_sms_unit)
			sms := minutes
			pkg.Minutes = &minutes
			pkg.Sms = &sms
		case strings.Contains(heading, "datenvolumen"):
			data := NewUnitQuota(used, total, unit)
			pkg.DataDomestic = &data
		}
	})

	card.Find(".collapse .list-group-item").Each(func(_ int, item *goquery.Selection) {
		key, value, ok := splitLabel(htmlutil.JoinedText(item))
		if !ok {
			return
		}
		switch {
		case key == "gültig von":
			pkg.ValidFrom = parseOptionalDate(tel, date_minute_layout, value, title+" valid from")
		case key == "gültig bis":
			pkg.ValidUntil = parseOptionalDate(tel, date_minute_layout, value, title+" valid until")
		case key == "gesamtkosten":
			cost := ParseNumber(value, 0)
			pkg.MonthlyCost = &cost
		case strings.Contains(key, "preis") && pkg.MonthlyCost == nil:
			cost := ParseNumber(value, 0)
			pkg.MonthlyCost = &cost
		case key == "datenvolumen eu verbleibend":
			groups := euDataRegex.FindStringSubmatch(value)
			if groups == nil {
				tel.ReportWarning(report_parse_overview, "unrecognized eu data volume", value)
				return
			}
			remaining := ParseNumber(groups[1], 0)
			total := ParseNumber(groups[2], 0)
			eu := NewUnitQuota(total-remaining, total, megabyte_unit)
			pkg.DataEu = &eu
		case key == "datenmitnahme aus den vormonaten":
			carried := NewUnitQuota(0, ParseNumber(value, 0), megabyte_unit)
			pkg.DataCarriedOver = &carried
		}
	})

	return pkg, pkg.hasQuota()
}

func parseCostsCard(doc *goquery.Document, usage *AccountUsage, tel telemetry.API) {
	card := doc.Find("h1").FilterFunction(func(_ int, h *goquery.Selection) bool {
		return strings.Contains(h.Text(), costs_card_marker)
	}).First().Closest("div.card")
	if card.Length() == 0 {
		tel.ReportWarning(report_parse_overview, "could not find the current costs card")
		return
	}

	if usage.IsPrepaid {
		usage.CurrentCosts = ParseNumber(htmlutil.OwnText(card.Find(".progress-heading").First()), 0)
		return
	}
	card.Find(".collapse .list-group-item").Each(func(_ int, item *goquery.Selection) {
		key, value, ok := splitLabel(htmlutil.JoinedText(item))
		if !ok {
			return
		}
		switch {
		case strings.Contains(key, "vorläufige kosten"):
			usage.CurrentCosts = ParseNumber(value, 0)
		case strings.Contains(key, "vorläufiges rechnungsdatum"):
			usage.NextBillDate = parseOptionalDate(tel, date_layout, value, "next bill date")
		}
	})
}

// parseOptionalDate parses a single field of a page, a malformed value only drops that field.
func parseOptionalDate(tel telemetry.API, layout, text, field string) *time.Time {
	parsed, err := parseDate(layout, text)
	if err != nil {
		tel.ReportWarning(report_parse_overview, fmt.Errorf("parse %s: %w", field, err))
		return nil
	}
	return &parsed
}
