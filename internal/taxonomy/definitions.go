package taxonomy

// definitions are sent with each grouped request so the service answers in the controlled vocabulary.
var definitions = map[string]string{
	"form":                        `SEC form type only (e.g., "10-K", "8-K"). NOT the exhibit type. If metadata shows "EX-10.2", the form is probably "8-K".`,
	"exhibit":                     `Exhibit number only (e.g., "10.6", "10.2"). Extract the number from "EX-10.2" -> "10.2"`,
	"date":                        `Contract date in M/D/YY format (e.g., "2/13/25", "5/26/25")`,
	"buyer":                       `Name of the purchasing party (lowercase, no legal suffixes like "corp.", "inc.", "ltd")`,
	"buyer_location":              `Buyer's state/country code (e.g., "DE", "FL", "UK", "WY")`,
	"seller":                      `Name of the selling party (lowercase, no legal suffixes like "corp.", "inc.", "ltd")`,
	"seller_location":             `Seller's state/country code`,
	"issuer":                      `If different from buyer/seller, the SEC filing company (lowercase)`,
	"issuer_location":             `Issuer's state/country code`,
	"agreement_type":              `"support", "license", or "purchase"`,
	"license_transferable":        `"yes" or "no" - can the license be transferred?`,
	"sublicensing":                `"yes" or "no" - is sublicensing allowed?`,
	"exclusive":                   `"yes" or "no" - is this an exclusive license?`,
	"title_and_interest_sold":     `"yes" or "no" - is full ownership transferred?`,
	"ip_sold":                     `"yes" or "no" - is intellectual property sold?`,
	"deliverables":                `What is being delivered (e.g., "support", "license", "software, docs, trade secrets")`,
	"fee_model":                   `"subscription", "usage", "flat", "tranche"`,
	"fee_type":                    `"fixed" or "percentage"`,
	"fee_amount":                  `Numeric amount (e.g., "3500", "960000")`,
	"fee_mode":                    `"dollars", "stock", etc.`,
	"fee_percent":                 `If percentage-based, the decimal (e.g., "0.06")`,
	"charged_per":                 `Time unit for fees (e.g., "month", "claim")`,
	"payment_freq":                `"monthly", "quarterly", "1", "2" (number of payments)`,
	"tranche_trigger":             `What triggers each payment (e.g., "software operational")`,
	"delivery_trigger":            `What triggers delivery (e.g., "first payment")`,
	"auto_renews":                 `"yes" or "no"`,
	"term":                        `Contract duration (e.g., "6mo", "5y", "1y")`,
	"can_terminate":               `"either side", "mutual agreement", etc.`,
	"termination_notice":          `Notice period (e.g., "1mo", "6mo", "immediate")`,
	"breach_terminable":           `"yes" or "no" - can breach terminate the contract?`,
	"breach_notice":               `Notice period for breach (e.g., "1mo")`,
	"breach_prorated":             `"yes" or "no" - is payment prorated on breach?`,
	"coc_terminable":              `"yes" or "no" - can change of control terminate?`,
	"coc_notice":                  `Notice period for change of control`,
	"derivative_work_owned_by":    `Who owns derivatives ("buyer", "seller")`,
	"prices_adjustable":           `"yes" or "no"`,
	"price_change_notice":         `Notice for price changes (e.g., "1mo")`,
	"price_change_requires":       `What approval needed ("consent", "negotiation")`,
	"no_price_changes":            `Duration of price freeze (e.g., "6mo")`,
	"payment_timing":              `When payment is due (e.g., "start + 0d", "end + 30d")`,
	"who_pays_sales_tax":          `"buyer" or "seller"`,
	"who_pays_expenses":           `"buyer" or "seller"`,
	"expenses_include":            `What expenses are covered (quoted string)`,
	"payment_method":              `"wire", "check", etc.`,
	"are_upgrades_provided":       `"yes" or "no"`,
	"reps_and_warranties_mutual":  `Mutual representations (multi-line text)`,
	"reps_and_warranties_seller":  `Seller's representations (multi-line text)`,
	"reps_and_warranties_buyer":   `Buyer's representations (multi-line text)`,
	"warranty_period":             `Duration of warranty (e.g., "0mo", "1y")`,
	"indemnification":             `Who indemnifies whom (e.g., "seller indemnifies buyer", "mutual")`,
	"indemnity_notify":            `Notice requirement for indemnification (e.g., "1y")`,
	"indemnity_discovery_trigger": `What triggers indemnity (e.g., "constructive")`,
	"liable_for_indirect_damages": `"yes" or "no"`,
	"max_liability":               `Liability cap (e.g., "1x amount paid")`,
	"liability_time_limit":        `Time limit for liability claims (e.g., "12mo")`,
	"has_sla":                     `"yes" or "no" - does it have Service Level Agreement?`,
	"sla_tiers":                   `Number of SLA tiers (e.g., "3")`,
	"sla_has_service_credits":     `"yes" or "no"`,
	"sla_credit_cap_pct":          `Service credit cap as decimal (e.g., "0")`,
	"sla_critical_response":       `Critical issue response time (e.g., "30m")`,
	"sla_critical_fulltime":       `"yes" or "no" - 24/7 support for critical?`,
	"sla_medium_fix":              `Medium issue fix time (e.g., "5d")`,
	"sla_low_fix_required":        `"yes" or "no" - is low priority fix required?`,
	"sla_goals_strict":            `"yes" or "no" - are SLA goals binding?`,
	"law_in_state_of":             `Governing law jurisdiction (e.g., "DE", "FL", "WY")`,
	"arbitration_in_state_of":     `Arbitration location (e.g., "CA", "FL")`,
}

// Definition returns the answer guidance for a field, or "" if none is declared.
func Definition(field string) string {
	return definitions[field]
}
