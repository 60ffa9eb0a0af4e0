package kontomanager

import (
	"encoding/json"
	"fmt"
	"kontomanager/internal/components/telemetry"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	status_ok                   = "OK"
	default_forwarding_target   = string(TargetDeactivated)
	default_no_answer_delay     = "25"
	flag_active                 = "a"
	flag_disabled               = "d"
	field_editable_on_phone     = "btel_akt"
	field_voicemail_cli_disable = "voicemail_play_cli_disable"
	field_no_answer_delay       = "nann_sek"
)

type simSettingsResponse struct {
	Status string `json:"status"`
	Data   []struct {
		Key   string          `json:"key"`
		Value json.RawMessage `json:"value"`
	} `json:"data"`
}

// simKey converts between the portal's kebab-case keys and the snake_case names used here.
func simKey(name string) string {
	return strings.ReplaceAll(name, "_", "-")
}

func simName(key string) string {
	return strings.ReplaceAll(key, "-", "_")
}

// decodeFlag accepts the shapes the endpoint has been seen to use for booleans. An item
// without a value counts as false, a null value leaves the setting unreported (ok is false).
func decodeFlag(raw json.RawMessage) (value bool, ok bool, err error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return false, true, nil
	}
	if trimmed == "null" {
		return false, false, nil
	}
	value, err = decodeFlagValue(raw)
	if err != nil {
		return false, false, err
	}
	return value, true, nil
}

func decodeFlagValue(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n != 0, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, fmt.Errorf("unsupported value %s", string(raw))
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "t", "true", "1", "on", "a":
		return true, nil
	case "f", "false", "0", "off", "d", "":
		return false, nil
	}
	return false, fmt.Errorf("unsupported value %q", s)
}

// parseSimSettings decodes the settings endpoint, keys the model does not know are ignored
// and items with a value that cannot be read are skipped with a warning.
func parseSimSettings(body []byte, tel telemetry.API) (SimSettings, error) {
	var res simSettingsResponse
	err := json.Unmarshal(body, &res)
	if err != nil {
		return SimSettings{}, newError(KindParse, "decode sim settings", err)
	}
	if res.Status != status_ok {
		return SimSettings{}, newError(KindApplication, fmt.Sprintf("sim settings returned status %q", res.Status), nil)
	}

	var settings SimSettings
	for _, item := range res.Data {
		name := simName(item.Key)
		if settings.field(name) == nil {
			continue
		}
		value, ok, err := decodeFlag(item.Value)
		if err != nil {
			tel.ReportWarning(report_get_sim_settings, fmt.Errorf("sim setting %s: %w", item.Key, err))
			continue
		}
		if !ok {
			continue
		}
		settings.set(name, value)
	}
	return settings, nil
}

// selectedOption returns the value of the selected option of a <select>, falling back to the
// select's own value attribute and then to `def`.
func selectedOption(doc *goquery.Document, name, def string) string {
	sel := doc.Find(fmt.Sprintf("select[name='%s']", name)).First()
	value, ok := sel.Find("option[selected]").First().Attr("value")
	if ok && value != "" {
		return value
	}
	value, ok = sel.Attr("value")
	if ok && value != "" {
		return value
	}
	return def
}

func parseCallForwarding(doc *goquery.Document) CallForwardingSettings {
	settings := CallForwardingSettings{
		Rules: make([]CallForwardingRule, 0, len(Conditions)),
	}
	for _, condition := range Conditions {
		rule := CallForwardingRule{
			Condition: condition,
			Target:    CallForwardingTarget(selectedOption(doc, string(condition)+"_akt", default_forwarding_target)),
		}
		if rule.Target == TargetNumber {
			rule.TargetNumber = strings.TrimSpace(
				doc.Find(fmt.Sprintf("input[name='%s_rn']", condition)).First().AttrOr("value", ""),
			)
		}
		if condition == ConditionNoAnswer {
			delay, err := strconv.Atoi(selectedOption(doc, field_no_answer_delay, default_no_answer_delay))
			if err == nil {
				rule.DelaySeconds = &delay
			}
		}
		settings.Rules = append(settings.Rules, rule)
	}

	settings.EditableOnPhone = selectedOption(doc, field_editable_on_phone, flag_disabled) == flag_active
	settings.VoicemailPlayCliDisable = selectedOption(doc, field_voicemail_cli_disable, flag_disabled) == flag_disabled
	return settings
}

// forwardingForm rebuilds the complete forwarding form with `rule` replacing the rule of its
// condition, every other field is re-emitted as it currently is.
func forwardingForm(current CallForwardingSettings, rule CallForwardingRule, token string) map[string]string {
	form := map[string]string{
		"dosubmit": "1",
		"token":    token,
	}
	for _, existing := range current.Rules {
		apply := existing
		if existing.Condition == rule.Condition {
			apply = rule
			if apply.DelaySeconds == nil {
				apply.DelaySeconds = existing.DelaySeconds
			}
		}

		form[string(apply.Condition)+"_akt"] = string(apply.Target)
		if apply.Target == TargetNumber && apply.TargetNumber != "" {
			form[string(apply.Condition)+"_rn"] = apply.TargetNumber
		}
		if apply.Condition == ConditionNoAnswer && apply.DelaySeconds != nil {
			form[field_no_answer_delay] = strconv.Itoa(*apply.DelaySeconds)
		}
	}

	form[field_editable_on_phone] = flag_disabled
	if current.EditableOnPhone {
		form[field_editable_on_phone] = flag_active
	}
	form[field_voicemail_cli_disable] = flag_active
	if current.VoicemailPlayCliDisable {
		form[field_voicemail_cli_disable] = flag_disabled
	}
	return form
}
