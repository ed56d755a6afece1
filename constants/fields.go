package constants

// FieldKind drives normalisation and is written as the second header row of the record store.
type FieldKind string

const (
	KindIndex    FieldKind = "index"
	KindURL      FieldKind = "url"
	KindMetadata FieldKind = "metadata" // populated from document metadata, never from the text service
	KindText     FieldKind = "text"
	KindBoolean  FieldKind = "boolean"
	KindDuration FieldKind = "duration"
	KindParty    FieldKind = "party"
)

const (
	ColumnIdx = "idx"
	ColumnURL = "url"

	FieldForm    = "form"
	FieldExhibit = "exhibit"
	FieldDate    = "date"
)

// SchemaVersion is bumped whenever Columns changes. A store written under one version is never reopened under another.
const SchemaVersion = 1

// Columns is the fixed output order of the record store (68 columns).
var Columns = []string{
	"idx", "form", "exhibit", "date", "buyer", "buyer_location",
	"seller", "seller_location", "issuer", "issuer_location", "url",
	"agreement_type", "license_transferable", "sublicensing", "exclusive",
	"title_and_interest_sold", "ip_sold", "deliverables", "fee_model",
	"fee_type", "fee_amount", "fee_mode", "fee_percent", "charged_per",
	"payment_freq", "tranche_trigger", "delivery_trigger", "auto_renews",
	"term", "can_terminate", "termination_notice", "breach_terminable",
	"breach_notice", "breach_prorated", "coc_terminable", "coc_notice",
	"derivative_work_owned_by", "prices_adjustable", "price_change_notice",
	"price_change_requires", "no_price_changes", "payment_timing",
	"who_pays_sales_tax", "who_pays_expenses", "expenses_include",
	"payment_method", "are_upgrades_provided", "reps_and_warranties_mutual",
	"reps_and_warranties_seller", "reps_and_warranties_buyer",
	"warranty_period", "indemnification", "indemnity_notify",
	"indemnity_discovery_trigger", "liable_for_indirect_damages",
	"max_liability", "liability_time_limit", "has_sla", "sla_tiers",
	"sla_has_service_credits", "sla_credit_cap_pct", "sla_critical_response",
	"sla_critical_fulltime", "sla_medium_fix", "sla_low_fix_required",
	"sla_goals_strict", "law_in_state_of", "arbitration_in_state_of",
}

var booleanFields = []string{
	"license_transferable", "sublicensing", "exclusive", "title_and_interest_sold",
	"ip_sold", "auto_renews", "breach_terminable", "breach_prorated", "coc_terminable",
	"prices_adjustable", "are_upgrades_provided", "liable_for_indirect_damages",
	"has_sla", "sla_has_service_credits", "sla_critical_fulltime",
	"sla_low_fix_required", "sla_goals_strict",
}

var durationFields = []string{
	"term", "termination_notice", "breach_notice", "coc_notice", "price_change_notice",
	"no_price_changes", "warranty_period", "indemnity_notify", "liability_time_limit",
}

var partyFields = []string{"buyer", "seller", "issuer"}

var fieldKinds = func() map[string]FieldKind {
	m := make(map[string]FieldKind, len(Columns))
	for _, c := range Columns {
		m[c] = KindText
	}
	for _, f := range booleanFields {
		m[f] = KindBoolean
	}
	for _, f := range durationFields {
		m[f] = KindDuration
	}
	for _, f := range partyFields {
		m[f] = KindParty
	}
	m[ColumnIdx] = KindIndex
	m[ColumnURL] = KindURL
	m[FieldForm] = KindMetadata
	m[FieldDate] = KindMetadata
	return m
}()

// KindOf returns the kind of a column. Unknown names are treated as free text.
func KindOf(field string) FieldKind {
	if k, ok := fieldKinds[field]; ok {
		return k
	}
	return KindText
}

// ColumnKinds returns the kinds of Columns in order.
func ColumnKinds() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = string(KindOf(c))
	}
	return out
}

// ExtractedFields returns every column except idx and url, in column order.
func ExtractedFields() []string {
	out := make([]string, 0, len(Columns)-2)
	for _, c := range Columns {
		if c == ColumnIdx || c == ColumnURL {
			continue
		}
		out = append(out, c)
	}
	return out
}

// MetadataFields are sourced from document metadata rather than the text service.
func MetadataFields() []string {
	return []string{FieldForm, FieldDate}
}
