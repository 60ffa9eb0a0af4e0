package kontomanager

import (
	"encoding/json"
	"time"
)

// PhoneNumber is a number belonging to the logged in account (group).
type PhoneNumber struct {
	Name   string `json:"name"`
	Number string `json:"number"`
	// SubscriberId is the opaque id used to switch to this number, empty for the active number.
	SubscriberId string `json:"subscriber_id,omitempty"`
	IsActive     bool   `json:"is_active"`
}

// UnitQuota is the usage of a single unit (minutes, data, ...). When Unlimited is false
// Remaining == Total - Used, when it is true Total is +Inf and Remaining carries no meaning.
type UnitQuota struct {
	Used      float64 `json:"used"`
	Total     float64 `json:"total"`
	Unit      string  `json:"unit"`
	Remaining float64 `json:"remaining"`
	Unlimited bool    `json:"unlimited"`
}

// MarshalJSON writes total and remaining as null for unlimited quotas, JSON has no infinity.
func (q UnitQuota) MarshalJSON() ([]byte, error) {
	type finite struct {
		Used      float64  `json:"used"`
		Total     *float64 `json:"total"`
		Unit      string   `json:"unit"`
		Remaining *float64 `json:"remaining"`
		Unlimited bool     `json:"unlimited"`
	}
	out := finite{Used: q.Used, Unit: q.Unit, Unlimited: q.Unlimited}
	if !q.Unlimited {
		out.Total = &q.Total
		out.Remaining = &q.Remaining
	}
	return json.Marshal(out)
}

// PackageUsage is a tariff or add-on package along with the quotas reported for it.
type PackageUsage struct {
	Name            string     `json:"package_name"`
	ValidFrom       *time.Time `json:"valid_from,omitempty"`
	ValidUntil      *time.Time `json:"valid_until,omitempty"`
	Minutes         *UnitQuota `json:"minutes,omitempty"`
	Sms             *UnitQuota `json:"sms,omitempty"`
	DataDomestic    *UnitQuota `json:"data_domestic,omitempty"`
	DataEu          *UnitQuota `json:"data_eu,omitempty"`
	DataCarriedOver *UnitQuota `json:"data_carried_over,omitempty"`
	MonthlyCost     *float64   `json:"monthly_cost,omitempty"`
}

func (p PackageUsage) hasQuota() bool {
	return p.Minutes != nil || p.Sms != nil || p.DataDomestic != nil
}

// AccountUsage is the account overview of the active number.
type AccountUsage struct {
	PhoneNumber string `json:"phone_number"`
	IsAdmin     bool   `json:"is_admin"`
	IsPrepaid   bool   `json:"is_prepaid"`

	// prepaid only
	Credit        *float64   `json:"credit,omitempty"`
	SimValidUntil *time.Time `json:"sim_valid_until,omitempty"`
	LastRecharge  *time.Time `json:"last_recharge,omitempty"`

	CurrentCosts float64        `json:"current_costs"`
	NextBillDate *time.Time     `json:"next_bill_date,omitempty"`
	Packages     []PackageUsage `json:"packages"`
}

type BillSummary struct {
	BillNumber string    `json:"bill_number"`
	Date       time.Time `json:"date"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	// HasEgn is true when an itemized record (Einzelgesprächsnachweis) is available.
	HasEgn     bool   `json:"has_egn"`
	BillPdfUrl string `json:"bill_pdf_url"`
	EgnPdfUrl  string `json:"egn_pdf_url,omitempty"`
}

// DocumentType selects which PDF of a bill to download.
type DocumentType string

const (
	DocumentBill DocumentType = "bill"
	DocumentEgn  DocumentType = "egn"
)

type CallHistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	// Type is the portal's label, ex. "Telefonat" or "SMS".
	Type     string  `json:"type"`
	Number   string  `json:"number"`
	Duration string  `json:"duration,omitempty"`
	Cost     float64 `json:"cost"`
}

// SimSettings holds the SIM toggles, a nil field was not reported by the portal.
type SimSettings struct {
	RoamingBarred           *bool `json:"roaming_barred,omitempty"`
	NonEuRoamingBarred      *bool `json:"non_eu_roaming_barred,omitempty"`
	RoamingSmsDisable       *bool `json:"roaming_sms_disable,omitempty"`
	IntVoiceBarred          *bool `json:"int_voice_barred,omitempty"`
	InternationalSmsDisable *bool `json:"international_sms_disable,omitempty"`
	// MptyBarred bars multi-party (conference) calls.
	MptyBarred              *bool `json:"mpty_barred,omitempty"`
	PremiumBarred           *bool `json:"premium_barred,omitempty"`
	DataBarred              *bool `json:"data_barred,omitempty"`
	DataRoamingBarred       *bool `json:"data_roaming_barred,omitempty"`
	NonEuDataRoamingBarred  *bool `json:"non_eu_data_roaming_barred,omitempty"`
}

var simSettingNames = []string{
	"roaming_barred",
	"non_eu_roaming_barred",
	"roaming_sms_disable",
	"int_voice_barred",
	"international_sms_disable",
	"mpty_barred",
	"premium_barred",
	"data_barred",
	"data_roaming_barred",
	"non_eu_data_roaming_barred",
}

// SimSettingNames returns every setting name SimSettings knows about.
func SimSettingNames() []string {
	return append([]string(nil), simSettingNames...)
}

func (s *SimSettings) field(name string) **bool {
	switch name {
	case "roaming_barred":
		return &s.RoamingBarred
	case "non_eu_roaming_barred":
		return &s.NonEuRoamingBarred
	case "roaming_sms_disable":
		return &s.RoamingSmsDisable
	case "int_voice_barred":
		return &s.IntVoiceBarred
	case "international_sms_disable":
		return &s.InternationalSmsDisable
	case "mpty_barred":
		return &s.MptyBarred
	case "premium_barred":
		return &s.PremiumBarred
	case "data_barred":
		return &s.DataBarred
	case "data_roaming_barred":
		return &s.DataRoamingBarred
	case "non_eu_data_roaming_barred":
		return &s.NonEuDataRoamingBarred
	}
	return nil
}

// Get returns the value of a setting by name and whether it was reported.
func (s SimSettings) Get(name string) (value bool, ok bool) {
	f := s.field(name)
	if f == nil || *f == nil {
		return false, false
	}
	return **f, true
}

func (s *SimSettings) set(name string, value bool) bool {
	f := s.field(name)
	if f == nil {
		return false
	}
	*f = &value
	return true
}

// CallForwardingCondition is the portal's code for when a forwarding rule applies.
type CallForwardingCondition string

const (
	ConditionUnconditional CallForwardingCondition = "alle"
	ConditionNoAnswer      CallForwardingCondition = "nann"
	ConditionBusy          CallForwardingCondition = "wtel"
	ConditionUnreachable   CallForwardingCondition = "nerr"
)

// Conditions lists every condition in the order the portal renders them.
var Conditions = []CallForwardingCondition{
	ConditionUnconditional,
	ConditionNoAnswer,
	ConditionBusy,
	ConditionUnreachable,
}

// CallForwardingTarget is the portal's code for where a forwarded call goes.
type CallForwardingTarget string

const (
	TargetDeactivated CallForwardingTarget = "d"
	TargetVoicemail   CallForwardingTarget = "b"
	TargetNumber      CallForwardingTarget = "a"
)

// NoAnswerDelays are the delays (in seconds) the portal accepts for ConditionNoAnswer.
var NoAnswerDelays = []int{5, 10, 15, 20, 25, 30}

type CallForwardingRule struct {
	Condition CallForwardingCondition `json:"condition"`
	Target    CallForwardingTarget    `json:"target"`
	// TargetNumber is only set when Target is TargetNumber.
	TargetNumber string `json:"target_number,omitempty"`
	// DelaySeconds is only meaningful for ConditionNoAnswer.
	DelaySeconds *int `json:"delay_seconds,omitempty"`
}

type CallForwardingSettings struct {
	// Rules holds exactly one rule per condition, in the order of Conditions.
	Rules                   []CallForwardingRule `json:"rules"`
	EditableOnPhone         bool                 `json:"editable_on_phone"`
	VoicemailPlayCliDisable bool                 `json:"voicemail_play_cli_disable"`
}

// Rule returns the rule for a condition.
func (s CallForwardingSettings) Rule(condition CallForwardingCondition) (CallForwardingRule, bool) {
	for _, r := range s.Rules {
		if r.Condition == condition {
			return r, true
		}
	}
	return CallForwardingRule{}, false
}
