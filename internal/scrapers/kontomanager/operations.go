package kontomanager

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
)

const (
	report_get_account_usage      = "client.get-account-usage"
	report_get_phone_numbers      = "client.get-phone-numbers"
	report_switch_phone_number    = "client.switch-active-phone-number"
	report_list_bills             = "client.list-bills"
	report_get_bill               = "client.get-bill"
	report_list_call_history      = "client.list-call-history"
	report_get_sim_settings       = "client.get-sim-settings"
	report_set_sim_setting        = "client.set-sim-setting"
	report_get_call_forwarding    = "client.get-call-forwarding-settings"
	report_set_call_forwarding    = "client.set-call-forwarding-rule"
	setting_roaming_barred        = "roaming_barred"
	setting_suggestion_similarity = 0.8
)

// GetAccountUsage returns the overview of the active number.
func (c *Client) GetAccountUsage(ctx context.Context) (AccountUsage, error) {
	err := c.ensureLoggedIn(ctx)
	if err != nil {
		return AccountUsage{}, err
	}
	doc, err := c.fetchDocument(ctx, report_get_account_usage, c.Http.R(), "GET", endpoint_overview)
	if err != nil {
		return AccountUsage{}, err
	}
	return parseAccountUsage(doc, c.tel), nil
}

// GetPhoneNumbers lists the active number and the numbers it may switch to.
func (c *Client) GetPhoneNumbers(ctx context.Context) ([]PhoneNumber, error) {
	err := c.ensureLoggedIn(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := c.fetchDocument(ctx, report_get_phone_numbers, c.Http.R(), "GET", endpoint_overview)
	if err != nil {
		return nil, err
	}
	return parsePhoneNumbers(doc, c.tel), nil
}

// SwitchActivePhoneNumber makes the number with the given subscriber id the active one
// and returns the active number the portal reports afterwards.
func (c *Client) SwitchActivePhoneNumber(ctx context.Context, subscriberId string) (string, error) {
	if strings.TrimSpace(subscriberId) == "" {
		return "", newError(KindInvalidArgument, "subscriber id must not be empty", nil)
	}
	err := c.ensureLoggedIn(ctx)
	if err != nil {
		return "", err
	}

	c.mutationMu.Lock()
	defer c.mutationMu.Unlock()

	doc, err := c.fetchDocument(
		ctx,
		report_switch_phone_number,
		c.Http.R().SetQueryParams(map[string]string{
			"groupaction": "change_subscriber",
			"subscriber":  subscriberId,
		}),
		"GET",
		endpoint_overview,
	)
	if err != nil {
		return "", err
	}
	number, _ := parseActiveNumber(doc)
	if number == "" {
		err := newError(KindUnexpectedResponse, "active number missing after switching subscriber", nil)
		c.tel.ReportBroken(report_switch_phone_number, err, subscriberId)
		return "", err
	}
	return number, nil
}

// ListBills returns every bill that offers a downloadable PDF, newest first as the portal lists them.
func (c *Client) ListBills(ctx context.Context) ([]BillSummary, error) {
	err := c.ensureLoggedIn(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := c.fetchDocument(ctx, report_list_bills, c.Http.R(), "GET", endpoint_bills)
	if err != nil {
		return nil, err
	}
	return parseBills(doc, c.BaseUrl, c.time.Now(), c.tel), nil
}

// ParseDocumentType validates a document type given as text.
func ParseDocumentType(value string) (DocumentType, error) {
	docType := DocumentType(strings.ToLower(strings.TrimSpace(value)))
	switch docType {
	case DocumentBill, DocumentEgn:
		return docType, nil
	}
	return "", newError(KindInvalidArgument, fmt.Sprintf("invalid document type %q, must be %q or %q", value, DocumentBill, DocumentEgn), nil)
}

// GetBill downloads the PDF of a bill or its itemized record. A response that is not a PDF
// is returned as is, it is only reported.
func (c *Client) GetBill(ctx context.Context, billNumber string, docType DocumentType) ([]byte, error) {
	docType, err := ParseDocumentType(string(docType))
	if err != nil {
		return nil, err
	}

	bills, err := c.ListBills(ctx)
	if err != nil {
		return nil, err
	}
	idx := slices.IndexFunc(bills, func(b BillSummary) bool {
		return b.BillNumber == billNumber
	})
	if idx < 0 {
		return nil, newError(KindNotFound, fmt.Sprintf("bill %q not found", billNumber), nil)
	}
	bill := bills[idx]

	target := bill.BillPdfUrl
	if docType == DocumentEgn {
		target = bill.EgnPdfUrl
	}
	if target == "" {
		return nil, newError(KindUnavailable, fmt.Sprintf("document %q is not available for bill %q", docType, billNumber), nil)
	}

	res, err := c.fetch(ctx, report_get_bill, c.Http.R(), "GET", target)
	if err != nil {
		return nil, err
	}
	contentType := res.Header().Get("content-type")
	if !strings.Contains(contentType, "application/pdf") {
		c.tel.ReportWarning(report_get_bill, "expected a pdf", contentType, billNumber)
	}
	return res.Body(), nil
}

// ListCallHistory returns the calls and messages the portal lists for the active number.
func (c *Client) ListCallHistory(ctx context.Context) ([]CallHistoryEntry, error) {
	err := c.ensureLoggedIn(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := c.fetchDocument(ctx, report_list_call_history, c.Http.R(), "GET", endpoint_call_history)
	if err != nil {
		return nil, err
	}
	return parseCallHistory(doc, c.tel), nil
}

// GetSimSettings returns the SIM toggles of the active number.
func (c *Client) GetSimSettings(ctx context.Context) (SimSettings, error) {
	err := c.ensureLoggedIn(ctx)
	if err != nil {
		return SimSettings{}, err
	}
	res, err := c.fetch(ctx, report_get_sim_settings, c.Http.R(), "POST", endpoint_sim_get_data)
	if err != nil {
		return SimSettings{}, err
	}
	err = c.checkSessionBody(res.Body(), endpoint_sim_get_data)
	if err != nil {
		return SimSettings{}, err
	}
	settings, err := parseSimSettings(res.Body(), c.tel)
	if err != nil {
		c.tel.ReportBroken(report_get_sim_settings, err)
		return SimSettings{}, err
	}
	return settings, nil
}

// ResolveSimSettingName accepts a setting in snake_case or the portal's kebab-case and
// returns its snake_case name.
func ResolveSimSettingName(name string) (string, error) {
	normalized := simName(strings.ToLower(strings.TrimSpace(name)))
	if slices.Contains(simSettingNames, normalized) {
		return normalized, nil
	}

	message := fmt.Sprintf("unknown sim setting %q", name)
	var best string
	var bestScore float64
	for _, candidate := range simSettingNames {
		score := matchr.JaroWinkler(normalized, candidate, false)
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	if bestScore >= setting_suggestion_similarity {
		message += fmt.Sprintf(", did you mean %q?", best)
	}
	return "", newError(KindInvalidArgument, message, nil)
}

// SetSimSetting changes a single SIM toggle.
func (c *Client) SetSimSetting(ctx context.Context, name string, enabled bool) (string, error) {
	name, err := ResolveSimSettingName(name)
	if err != nil {
		return "", err
	}
	err = c.ensureLoggedIn(ctx)
	if err != nil {
		return "", err
	}

	c.mutationMu.Lock()
	defer c.mutationMu.Unlock()

	token, err := c.csrfToken(ctx, endpoint_sim_settings)
	if err != nil {
		return "", err
	}
	value := "f"
	if enabled {
		value = "t"
	}
	res, err := c.fetch(
		ctx,
		report_set_sim_setting,
		c.Http.R().SetFormData(map[string]string{
			"key":   simKey(name),
			"value": value,
			"token": token,
		}),
		"POST",
		endpoint_sim_set_data,
	)
	if err != nil {
		return "", err
	}
	err = c.checkSessionBody(res.Body(), endpoint_sim_set_data)
	if err != nil {
		return "", err
	}
	if strings.ToUpper(strings.TrimSpace(res.String())) != status_ok {
		err := newError(KindUnexpectedResponse, fmt.Sprintf("setting %s was not confirmed: %q", name, strings.TrimSpace(res.String())), nil)
		c.tel.ReportBroken(report_set_sim_setting, err)
		return "", err
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	return fmt.Sprintf("Successfully set '%s' to %s.", name, state), nil
}

// ToggleRoaming enables or disables roaming, which the portal models as the inverse of
// the "roaming barred" toggle.
func (c *Client) ToggleRoaming(ctx context.Context, enabled bool) (string, error) {
	_, err := c.SetSimSetting(ctx, setting_roaming_barred, !enabled)
	if err != nil {
		return "", err
	}
	if enabled {
		return "Roaming has been enabled.", nil
	}
	return "Roaming has been disabled.", nil
}

// GetCallForwardingSettings returns the rule of every condition along with the page wide flags.
func (c *Client) GetCallForwardingSettings(ctx context.Context) (CallForwardingSettings, error) {
	err := c.ensureLoggedIn(ctx)
	if err != nil {
		return CallForwardingSettings{}, err
	}
	doc, err := c.fetchDocument(ctx, report_get_call_forwarding, c.Http.R(), "GET", endpoint_call_forwarding)
	if err != nil {
		return CallForwardingSettings{}, err
	}
	return parseCallForwarding(doc), nil
}

var forwardingNumberRegex = regexp.MustCompile(`^\+?\d{5,30}$`)

// Validate checks a rule before anything is sent to the portal.
func (r CallForwardingRule) Validate() error {
	if !slices.Contains(Conditions, r.Condition) {
		return newError(KindInvalidArgument, fmt.Sprintf("unknown condition %q", r.Condition), nil)
	}
	switch r.Target {
	case TargetDeactivated, TargetVoicemail:
	case TargetNumber:
		if r.TargetNumber == "" {
			return newError(KindInvalidArgument, "a target number is required when forwarding to a number", nil)
		}
	default:
		return newError(KindInvalidArgument, fmt.Sprintf("unknown target %q", r.Target), nil)
	}
	if r.TargetNumber != "" && !forwardingNumberRegex.MatchString(r.TargetNumber) {
		return newError(KindInvalidArgument, fmt.Sprintf("invalid target number %q", r.TargetNumber), nil)
	}
	if r.DelaySeconds != nil && !slices.Contains(NoAnswerDelays, *r.DelaySeconds) {
		return newError(KindInvalidArgument, fmt.Sprintf("invalid delay %d, must be one of %v", *r.DelaySeconds, NoAnswerDelays), nil)
	}
	return nil
}

// responseReportsFailure looks for the portal's failure cues in the visible text of a page.
func responseReportsFailure(doc *goquery.Document) bool {
	doc.Find("script, style").Remove()
	text := doc.Find("body").Text()
	return strings.Contains(text, "Fehler") || strings.Contains(strings.ToLower(text), "error")
}

// SetCallForwardingRule replaces the rule of one condition. The portal's form has no partial
// updates, so the whole form is submitted again with every other field unchanged.
func (c *Client) SetCallForwardingRule(ctx context.Context, rule CallForwardingRule) (string, error) {
	err := rule.Validate()
	if err != nil {
		return "", err
	}
	err = c.ensureLoggedIn(ctx)
	if err != nil {
		return "", err
	}

	c.mutationMu.Lock()
	defer c.mutationMu.Unlock()

	doc, err := c.fetchDocument(ctx, report_set_call_forwarding, c.Http.R(), "GET", endpoint_call_forwarding)
	if err != nil {
		return "", err
	}
	current := parseCallForwarding(doc)
	token := doc.Find("input[name='token']").AttrOr("value", "")
	if token == "" {
		err := newError(KindMissingToken, fmt.Sprintf("could not find CSRF token on %s", endpoint_call_forwarding), nil)
		c.tel.ReportBroken(report_set_call_forwarding, err)
		return "", err
	}

	res, err := c.fetchDocument(
		ctx,
		report_set_call_forwarding,
		c.Http.R().SetFormData(forwardingForm(current, rule, token)),
		"POST",
		endpoint_call_forwarding,
	)
	if err != nil {
		return "", err
	}
	if responseReportsFailure(res) {
		err := newError(KindUnexpectedResponse, fmt.Sprintf("portal reported a failure updating forwarding for %q", rule.Condition), nil)
		c.tel.ReportBroken(report_set_call_forwarding, err)
		return "", err
	}
	return fmt.Sprintf("Successfully updated call forwarding rule for condition '%s'.", rule.Condition), nil
}
