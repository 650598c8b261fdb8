package services

import (
	"context"
	"time"

	"github.com/dealdesk/dealdesk-api/libs/go/money"
	"github.com/dealdesk/dealdesk-api/libs/go/types/business"
)

// catalogEffective is the effective date of the seeded rule-set version.
var catalogEffective = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

const catalogVersion = "2025.1"

// baseRule builds the most common rule shape: full trade-in credit, taxable
// doc fee, taxable warranty and accessories, non-taxable GAP and maintenance,
// manufacturer rebates reducing the base on new vehicles.
func baseRule(state, rate string, scheme business.TaxScheme, lease business.LeaseTaxMethod) business.StateRuleSet {
	return business.StateRuleSet{
		State:                         state,
		Version:                       catalogVersion,
		EffectiveDate:                 catalogEffective,
		Scheme:                        scheme,
		StateRate:                     money.MustParse(rate),
		TradeInPolicy:                 business.TradeInFull,
		TradeInCap:                    money.Zero(),
		DocFeeTaxable:                 true,
		DocFeeCap:                     money.Zero(),
		WarrantyTaxable:               true,
		GAPTaxable:                    false,
		MaintenanceTaxable:            false,
		AccessoriesTaxable:            true,
		ManufacturerRebateReducesBase: true,
		LeaseTaxMethod:                lease,
	}
}

// DefaultStateRules returns the seeded rule-set catalog, one entry per U.S.
// state plus DC. Rates and policies approximate each state's motor-vehicle
// tax treatment; production deployments overlay versioned rows from the rules
// store on top of these.
func DefaultStateRules() map[string]business.StateRuleSet {
	rules := map[string]business.StateRuleSet{
		// No general sales tax on vehicles.
		"AK": baseRule("AK", "0", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
		"DE": baseRule("DE", "0", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
		"MT": baseRule("MT", "0", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
		"NH": baseRule("NH", "0", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
		"OR": baseRule("OR", "0.005", business.SchemePrivilege, business.LeaseTaxOnPayment),

		// Special schemes.
		"GA": baseRule("GA", "0.07", business.SchemeTAVT, business.LeaseTaxOnCapReduction),
		"NC": baseRule("NC", "0.03", business.SchemeHUT, business.LeaseTaxOnPayment),
		"AZ": baseRule("AZ", "0.056", business.SchemePrivilege, business.LeaseTaxOnPayment),

		// State-plus-local states.
		"AL": baseRule("AL", "0.02", business.SchemeStatePlusLocal, business.LeaseTaxOnPayment),
		"AR": baseRule("AR", "0.065", business.SchemeStatePlusLocal, business.LeaseTaxOnCapCost),
		"CA": baseRule("CA", "0.0725", business.SchemeStatePlusLocal, business.LeaseTaxOnPayment),
		"CO": baseRule("CO", "0.029", business.SchemeStatePlusLocal, business.LeaseTaxOnPayment),
		"FL": baseRule("FL", "0.06", business.SchemeStatePlusLocal, business.LeaseTaxOnPayment),
		"IL": baseRule("IL", "0.0625", business.SchemeStatePlusLocal, business.LeaseTaxOnPayment),
		"KS": baseRule("KS", "0.065", business.SchemeStatePlusLocal, business.LeaseTaxOnPayment),
		"LA": baseRule("LA", "0.0445", business.SchemeStatePlusLocal, business.LeaseTaxOnPayment),
		"MO": baseRule("MO", "0.04225", business.SchemeStatePlusLocal, business.LeaseTaxOnPayment),
		"NV": baseRule("NV", "0.0685", business.SchemeStatePlusLocal, business.LeaseTaxOnPayment),
		"NM": baseRule("NM", "0.04875", business.SchemeStatePlusLocal, business.LeaseTaxOnPayment),
		"NY": baseRule("NY", "0.04", business.SchemeStatePlusLocal, business.LeaseTaxOnPayment),
		"OK": baseRule("OK", "0.045", business.SchemeStatePlusLocal, business.LeaseTaxOnCapCost),
		"SC": baseRule("SC", "0.05", business.SchemeStatePlusLocal, business.LeaseTaxOnPayment),
		"TN": baseRule("TN", "0.07", business.SchemeStatePlusLocal, business.LeaseTaxOnPayment),
		"UT": baseRule("UT", "0.0485", business.SchemeStatePlusLocal, business.LeaseTaxOnPayment),
		"WA": baseRule("WA", "0.065", business.SchemeStatePlusLocal, business.LeaseTaxOnPayment),
		"WI": baseRule("WI", "0.05", business.SchemeStatePlusLocal, business.LeaseTaxOnPayment),

		// Flat tax-on-price states.
		"CT": baseRule("CT", "0.0635", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
		"DC": baseRule("DC", "0.06", business.SchemeTaxOnPrice, business.LeaseTaxOnCapCost),
		"HI": baseRule("HI", "0.04", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
		"IA": baseRule("IA", "0.05", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
		"ID": baseRule("ID", "0.06", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
		"IN": baseRule("IN", "0.07", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
		"KY": baseRule("KY", "0.06", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
		"MA": baseRule("MA", "0.0625", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
		"MD": baseRule("MD", "0.06", business.SchemeTaxOnPrice, business.LeaseTaxOnCapCost),
		"ME": baseRule("ME", "0.055", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
		"MI": baseRule("MI", "0.06", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
		"MN": baseRule("MN", "0.06875", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
		"MS": baseRule("MS", "0.05", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
		"ND": baseRule("ND", "0.05", business.SchemeTaxOnPrice, business.LeaseTaxOnCapCost),
		"NE": baseRule("NE", "0.055", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
		"NJ": baseRule("NJ", "0.06625", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
		"OH": baseRule("OH", "0.0575", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
		"PA": baseRule("PA", "0.06", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
		"RI": baseRule("RI", "0.07", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
		"SD": baseRule("SD", "0.04", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
		"TX": baseRule("TX", "0.0625", business.SchemeTaxOnPrice, business.LeaseTaxOnCapCost),
		"VA": baseRule("VA", "0.0415", business.SchemeTaxOnPrice, business.LeaseTaxOnCapCost),
		"VT": baseRule("VT", "0.06", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
		"WV": baseRule("WV", "0.06", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
		"WY": baseRule("WY", "0.04", business.SchemeTaxOnPrice, business.LeaseTaxOnPayment),
	}

	// California: no trade-in credit, capped doc fee, rebates taxed
	// pre-rebate.
	ca := rules["CA"]
	ca.TradeInPolicy = business.TradeInNone
	ca.DocFeeCap = money.MustParse("85")
	ca.ManufacturerRebateReducesBase = false
	rules["CA"] = ca

	// Hawaii and DC give no trade-in credit either.
	for _, code := range []string{"HI", "DC"} {
		r := rules[code]
		r.TradeInPolicy = business.TradeInNone
		rules[code] = r
	}

	// Michigan caps the trade-in credit.
	mi := rules["MI"]
	mi.TradeInPolicy = business.TradeInCapped
	mi.TradeInCap = money.MustParse("10000")
	rules["MI"] = mi

	// Virginia taxes the full price with no trade-in credit.
	va := rules["VA"]
	va.TradeInPolicy = business.TradeInNone
	rules["VA"] = va

	// Reciprocity states credit tax paid to the buyer's home state.
	for _, code := range []string{"NY", "NJ", "PA", "OH", "IN", "IL", "MI", "WI", "MN", "IA", "FL"} {
		r := rules[code]
		r.Reciprocity = true
		rules[code] = r
	}

	// States that tax GAP coverage.
	for _, code := range []string{"NY", "WV", "WA"} {
		r := rules[code]
		r.GAPTaxable = true
		rules[code] = r
	}

	// States that tax maintenance contracts.
	for _, code := range []string{"CT", "HI", "NM", "WA", "WV"} {
		r := rules[code]
		r.MaintenanceTaxable = true
		rules[code] = r
	}

	return rules
}

// CatalogRuleStore serves the seeded rule catalog. It backs local runs and
// tests; production wires the database-backed store in front of it.
type CatalogRuleStore struct {
	rules map[string]business.StateRuleSet
}

// NewCatalogRuleStore builds a store over the default catalog.
func NewCatalogRuleStore() *CatalogRuleStore {
	return &CatalogRuleStore{rules: DefaultStateRules()}
}

// GetStateRuleSet returns the rule set active for the state at the given
// date.
func (s *CatalogRuleStore) GetStateRuleSet(ctx context.Context, stateCode string, asOf time.Time) (*business.StateRuleSet, error) {
	rs, ok := s.rules[stateCode]
	if !ok {
		return nil, &business.UnsupportedStateError{State: stateCode}
	}
	if asOf.Before(rs.EffectiveDate) {
		return nil, &business.UnsupportedStateError{State: stateCode}
	}
	return &rs, nil
}
