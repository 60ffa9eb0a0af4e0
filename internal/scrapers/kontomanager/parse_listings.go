package kontomanager

import (
	"fmt"
	"kontomanager/internal/components/telemetry"
	"kontomanager/pkg/htmlutil"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_parse_phone_numbers = "parse.phone-numbers"
	report_parse_bills         = "parse.bills"
	report_parse_call_history  = "parse.call-history"
)

const (
	active_number_marker = "Aktuell gewählte Rufnummer:"
	switch_number_marker = "Rufnummer wechseln:"
)

func findHeading(doc *goquery.Document, tag, marker string) *goquery.Selection {
	return doc.Find(tag).FilterFunction(func(_ int, h *goquery.Selection) bool {
		return strings.Contains(h.Text(), marker)
	}).First()
}

var subscriberRegex = regexp.MustCompile(`subscriber=([^&]+)`)

// parseNumberLink reads a dropdown entry shaped like <a><span class="bold">name</span><br>number</a>.
func parseNumberLink(link *goquery.Selection, active bool) rowResult[PhoneNumber] {
	name := htmlutil.OwnText(link.Find("span.bold").First())
	number := htmlutil.TextAfter(link, "br")
	if name == "" || number == "" {
		return skipRow[PhoneNumber](fmt.Sprintf("number entry without name or number: %q", htmlutil.JoinedText(link)))
	}

	entry := PhoneNumber{
		Name:     name,
		Number:   NormalizePhoneNumber(number),
		IsActive: active,
	}
	if !active {
		groups := subscriberRegex.FindStringSubmatch(link.AttrOr("href", ""))
		if groups != nil {
			id, err := url.PathUnescape(groups[1])
			if err != nil {
				id = groups[1]
			}
			entry.SubscriberId = id
		}
	}
	return keepRow(entry)
}

func parsePhoneNumbers(doc *goquery.Document, tel telemetry.API) []PhoneNumber {
	var rows []rowResult[PhoneNumber]

	active := findHeading(doc, "h6", active_number_marker).
		Parent().
		NextAllFiltered("li").First().
		ChildrenFiltered("a").First()
	if active.Length() > 0 {
		rows = append(rows, parseNumberLink(active, true))
	}

	findHeading(doc, "h6", switch_number_marker).
		NextAllFiltered("ul").
		ChildrenFiltered("li").
		ChildrenFiltered("a").
		Each(func(_ int, link *goquery.Selection) {
			rows = append(rows, parseNumberLink(link, false))
		})

	return collectRows(tel, report_parse_phone_numbers, rows)
}

// listCell returns the text of the value column of a list item, the portal lays
// these out as <li><div class="row"><div>label</div><div>value</div></div></li>.
func listCell(item *goquery.Selection) string {
	return htmlutil.OwnText(item.ChildrenFiltered("div").First().ChildrenFiltered("div").Eq(1))
}

func listLink(item *goquery.Selection) string {
	return strings.TrimSpace(item.ChildrenFiltered("div").ChildrenFiltered("div").ChildrenFiltered("a").First().AttrOr("href", ""))
}

func resolveLink(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func parseBillRow(row *goquery.Selection, base *url.URL, now time.Time) rowResult[BillSummary] {
	items := row.ChildrenFiltered("li")

	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	rawDate := listCell(items.Eq(0))
	if rawDate != "" {
		parsed, err := parseDate(date_layout, rawDate)
		if err != nil {
			return skipRow[BillSummary](fmt.Sprintf("bill with unparsable date %q", rawDate))
		}
		date = parsed
	}

	billNumber := listCell(items.Eq(2))
	billHref := listLink(items.Eq(3))
	if billHref == "" {
		return skipRow[BillSummary](fmt.Sprintf("bill %q from %s has no pdf link", billNumber, date.Format(date_layout)))
	}
	billUrl, err := resolveLink(base, billHref)
	if err != nil {
		return skipRow[BillSummary](fmt.Sprintf("bill %q has an invalid pdf link: %s", billNumber, err))
	}

	bill := BillSummary{
		BillNumber: billNumber,
		Date:       date,
		Amount:     ParseNumber(listCell(items.Eq(1)), 0),
		Currency:   default_currency,
		BillPdfUrl: billUrl,
	}
	egnHref := listLink(items.Eq(4))
	if egnHref != "" {
		egnUrl, err := resolveLink(base, egnHref)
		if err == nil {
			bill.HasEgn = true
			bill.EgnPdfUrl = egnUrl
		}
	}
	return keepRow(bill)
}

func parseBills(doc *goquery.Document, base *url.URL, now time.Time, tel telemetry.API) []BillSummary {
	var rows []rowResult[BillSummary]
	doc.Find("ul.list-group.mt-3").Each(func(_ int, row *goquery.Selection) {
		rows = append(rows, parseBillRow(row, base, now))
	})
	return collectRows(tel, report_parse_bills, rows)
}

// labeledRows reduces a block of list items to a map of lowercased bold label to value.
func labeledRows(block *goquery.Selection) map[string]string {
	data := map[string]string{}
	block.Find("li.list-group-item").Each(func(_ int, item *goquery.Selection) {
		label := item.Find(".bold").First()
		if label.Length() == 0 {
			return
		}
		key := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(htmlutil.OwnText(label), ":", "")))
		data[key] = listCell(item)
	})
	return data
}

func parseCallHistoryBlock(block *goquery.Selection) rowResult[CallHistoryEntry] {
	data := labeledRows(block)

	rawTimestamp := data["datum/uhrzeit"]
	if rawTimestamp == "" {
		return skipRow[CallHistoryEntry]("history entry without a timestamp")
	}
	timestamp, err := parseDate(date_time_layout, rawTimestamp)
	if err != nil {
		return skipRow[CallHistoryEntry](fmt.Sprintf("history entry with unparsable timestamp %q", rawTimestamp))
	}

	duration := default_duration
	cost := "0"
	parts := strings.Split(data["dauer/kosten"], "/")
	if d := strings.TrimSpace(parts[0]); d != "" {
		duration = d
	}
	if len(parts) > 1 {
		cost = strings.TrimSpace(parts[1])
	}

	kind, ok := data["art"]
	if !ok || kind == "" {
		kind = default_history_type
	}

	return keepRow(CallHistoryEntry{
		Timestamp: timestamp,
		Type:      kind,
		Number:    data["nummer"],
		Duration:  duration,
		Cost:      ParseNumber(cost, 0),
	})
}

func parseCallHistory(doc *goquery.Document, tel telemetry.API) []CallHistoryEntry {
	var rows []rowResult[CallHistoryEntry]
	doc.Find("ul.list-group.mt-3").Each(func(_ int, block *goquery.Selection) {
		rows = append(rows, parseCallHistoryBlock(block))
	})
	return collectRows(tel, report_parse_call_history, rows)
}
