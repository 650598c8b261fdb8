package business

import (
	"github.com/dealdesk/dealdesk-api/libs/go/money"
)

// JurisdictionRates is a ZIP-scoped snapshot of layered tax rates. Each
// component is preserved for itemized breakdown; components are never merged
// into a single opaque rate.
type JurisdictionRates struct {
	State      string `json:"state"`
	Zip        string `json:"zip,omitempty"`
	CountyName string `json:"county_name,omitempty"`
	CityName   string `json:"city_name,omitempty"`

	StateRate           money.Amount `json:"state_rate"`
	CountyRate          money.Amount `json:"county_rate"`
	CityRate            money.Amount `json:"city_rate"`
	SpecialDistrictRate money.Amount `json:"special_district_rate"`
}

// CombinedRate sums the component rates. Display only; itemized math always
// goes component by component.
func (j *JurisdictionRates) CombinedRate() money.Amount {
	return money.Sum(j.StateRate, j.CountyRate, j.CityRate, j.SpecialDistrictRate)
}

// StateOnly builds a fallback rate snapshot carrying just the state rate.
func StateOnly(state string, rate money.Amount) JurisdictionRates {
	return JurisdictionRates{
		State:               state,
		StateRate:           rate,
		CountyRate:          money.Zero(),
		CityRate:            money.Zero(),
		SpecialDistrictRate: money.Zero(),
	}
}

// TaxContext is the resolver's answer: which state's rules govern the deal,
// the rates to apply, and reciprocity bookkeeping for the buyer's home state.
type TaxContext struct {
	PrimaryState string            `json:"primary_state"`
	HomeState    string            `json:"home_state,omitempty"`
	RuleSet      StateRuleSet      `json:"rule_set"`
	Rates        JurisdictionRates `json:"rates"`

	ReciprocityApplied bool         `json:"reciprocity_applied"`
	HomeStateTaxPaid   money.Amount `json:"home_state_tax_paid"`

	// LowConfidence is set when local rates could not be resolved and the
	// engine fell back to the state-only rate.
	LowConfidence bool     `json:"low_confidence"`
	Warnings      []string `json:"warnings,omitempty"`
}
