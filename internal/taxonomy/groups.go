// Package taxonomy declares the field groups that partition the output columns,
// together with the section-title keywords used to route text to each group.
package taxonomy

import (
	"fmt"
	"slices"
	"strings"

	"github.com/joseph-ayodele/contract-extractor/constants"
)

// FieldGroup is immutable configuration: one text-service call per group per document.
type FieldGroup struct {
	Name string
	// Patterns are case-insensitive regular expressions matched against section titles and numbers.
	Patterns []string
	Fields   []string
}

// Pattern joins the group's patterns into one alternation.
func (g FieldGroup) Pattern() string {
	return strings.Join(g.Patterns, "|")
}

const (
	GroupParties     = "parties"
	GroupPayment     = "payment"
	GroupLicense     = "license"
	GroupTerm        = "term"
	GroupPricing     = "pricing"
	GroupExpenses    = "expenses"
	GroupWarranties  = "warranties"
	GroupLiability   = "liability"
	GroupSLA         = "sla"
	GroupGoverning   = "governing_law"
	GroupExhibit     = "exhibit"
	GroupFullContext = "full_document"
)

var groups = []FieldGroup{
	{
		Name:     GroupParties,
		Patterns: []string{"preamble", "recitals"},
		Fields: []string{
			"exhibit", "buyer", "buyer_location", "seller", "seller_location",
			"issuer", "issuer_location", "agreement_type",
		},
	},
	{
		Name:     GroupPayment,
		Patterns: []string{"payment", "fee", "price", "consideration", "purchase", "invoice", "charge"},
		Fields: []string{
			"fee_model", "fee_type", "fee_amount", "fee_mode", "fee_percent",
			"charged_per", "payment_freq", "tranche_trigger", "delivery_trigger",
			"payment_timing", "payment_method",
		},
	},
	{
		Name:     GroupLicense,
		Patterns: []string{"license", "rights", "intellectual", "property", "ip", "grant"},
		Fields: []string{
			"license_transferable", "sublicensing", "exclusive",
			"title_and_interest_sold", "ip_sold", "deliverables",
			"derivative_work_owned_by",
		},
	},
	{
		Name:     GroupTerm,
		Patterns: []string{"term", "renewal", "termination", "scope"},
		Fields: []string{
			"auto_renews", "term", "can_terminate", "termination_notice",
			"breach_terminable", "breach_notice", "breach_prorated",
			"coc_terminable", "coc_notice",
		},
	},
	{
		Name:     GroupPricing,
		Patterns: []string{"price", "adjustment", "change"},
		Fields: []string{
			"prices_adjustable", "price_change_notice", "price_change_requires",
			"no_price_changes",
		},
	},
	{
		Name:     GroupExpenses,
		Patterns: []string{"expense", "tax", "cost", "travel"},
		Fields:   []string{"who_pays_sales_tax", "who_pays_expenses", "expenses_include"},
	},
	{
		Name:     GroupWarranties,
		Patterns: []string{"warrant", "representation"},
		Fields: []string{
			"reps_and_warranties_mutual", "reps_and_warranties_seller",
			"reps_and_warranties_buyer", "warranty_period",
		},
	},
	{
		Name:     GroupLiability,
		Patterns: []string{"indemnif", "liabilit", "damage", "limitation"},
		Fields: []string{
			"indemnification", "indemnity_notify", "indemnity_discovery_trigger",
			"liable_for_indirect_damages", "max_liability", "liability_time_limit",
		},
	},
	{
		Name:     GroupSLA,
		Patterns: []string{"sla", `service.level`, "support", "maintenance", "error", "resolution", "response"},
		Fields: []string{
			"has_sla", "sla_tiers", "sla_has_service_credits", "sla_credit_cap_pct",
			"sla_critical_response", "sla_critical_fulltime", "sla_medium_fix",
			"sla_low_fix_required", "sla_goals_strict", "are_upgrades_provided",
		},
	},
	{
		Name:     GroupGoverning,
		Patterns: []string{"govern", "law", "jurisdiction", "venue", "arbitration", "miscellaneous"},
		Fields:   []string{"law_in_state_of", "arbitration_in_state_of"},
	},
	// Declared last so answers from the body text take precedence over exhibit schedules.
	{
		Name:     GroupExhibit,
		Patterns: []string{"exhibit"},
		Fields:   []string{"fee_amount", "fee_model", "charged_per", "payment_freq"},
	},
}

// OverlapFields may be requested by more than one group; the first non-empty answer wins.
var OverlapFields = []string{"fee_amount", "fee_model", "charged_per", "payment_freq"}

// Groups returns the declared field groups in precedence order.
func Groups() []FieldGroup {
	out := make([]FieldGroup, len(groups))
	for i, g := range groups {
		out[i] = FieldGroup{
			Name:     g.Name,
			Patterns: slices.Clone(g.Patterns),
			Fields:   slices.Clone(g.Fields),
		}
	}
	return out
}

// ServiceFields returns every field the text service is asked for, in column order.
func ServiceFields() []string {
	meta := constants.MetadataFields()
	var out []string
	for _, f := range constants.ExtractedFields() {
		if slices.Contains(meta, f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// FullDocumentGroup asks for every service field over the whole document.
func FullDocumentGroup() FieldGroup {
	return FieldGroup{Name: GroupFullContext, Fields: ServiceFields()}
}

// Validate checks that the groups plus the metadata fields cover the extracted
// taxonomy exactly once, allowing repeats only for declared overlap fields.
func Validate(gs []FieldGroup) error {
	seen := make(map[string]string)
	for _, g := range gs {
		if g.Name == "" {
			return fmt.Errorf("field group with empty name")
		}
		if len(g.Patterns) == 0 {
			return fmt.Errorf("field group %q has no patterns", g.Name)
		}
		for _, f := range g.Fields {
			if constants.KindOf(f) == constants.KindMetadata {
				return fmt.Errorf("field group %q requests metadata field %q", g.Name, f)
			}
			if prev, dup := seen[f]; dup && !slices.Contains(OverlapFields, f) {
				return fmt.Errorf("field %q declared by both %q and %q", f, prev, g.Name)
			}
			if _, dup := seen[f]; !dup {
				seen[f] = g.Name
			}
		}
	}
	for _, f := range constants.MetadataFields() {
		seen[f] = "metadata"
	}

	want := constants.ExtractedFields()
	for _, f := range want {
		if _, ok := seen[f]; !ok {
			return fmt.Errorf("field %q is not covered by any group", f)
		}
	}
	if len(seen) != len(want) {
		for f := range seen {
			if !slices.Contains(want, f) {
				return fmt.Errorf("field %q is not a canonical column", f)
			}
		}
	}
	return nil
}
