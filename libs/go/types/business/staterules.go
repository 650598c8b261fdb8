package business

import (
	"time"

	"github.com/dealdesk/dealdesk-api/libs/go/money"
)

// TaxScheme is the closed set of taxation schemes a state can declare.
// Calculators switch over it exhaustively; an unknown value is an error,
// never a fall-through to some default behavior.
type TaxScheme string

const (
	// SchemeTaxOnPrice applies a single state rate to the taxable price.
	SchemeTaxOnPrice TaxScheme = "TAX_ON_PRICE"
	// SchemeStatePlusLocal layers county/city/district rates on top of
	// the state rate, resolved by ZIP.
	SchemeStatePlusLocal TaxScheme = "STATE_PLUS_LOCAL"
	// SchemeTAVT is Georgia's title ad valorem tax: a one-time title tax
	// in place of sales tax.
	SchemeTAVT TaxScheme = "SPECIAL_TAVT"
	// SchemeHUT is North Carolina's highway use tax.
	SchemeHUT TaxScheme = "SPECIAL_HUT"
	// SchemePrivilege is Arizona's transaction privilege tax.
	SchemePrivilege TaxScheme = "SPECIAL_PRIVILEGE"
)

// TradeInPolicy declares how much trade-in credit reduces the taxable base.
type TradeInPolicy string

const (
	TradeInFull   TradeInPolicy = "FULL"
	TradeInCapped TradeInPolicy = "CAPPED"
	TradeInNone   TradeInPolicy = "NONE"
)

// LeaseTaxMethod declares which base a state taxes on lease deals.
type LeaseTaxMethod string

const (
	// LeaseTaxOnPayment taxes each monthly payment.
	LeaseTaxOnPayment LeaseTaxMethod = "TAX_ON_PAYMENT"
	// LeaseTaxOnCapCost taxes the full capitalized cost upfront.
	LeaseTaxOnCapCost LeaseTaxMethod = "TAX_ON_CAP_COST"
	// LeaseTaxOnCapReduction taxes the cap-cost reductions upfront.
	LeaseTaxOnCapReduction LeaseTaxMethod = "TAX_ON_CAP_REDUCTION"
)

// StateRuleSet is one state's vehicle tax rule set. Rule sets are immutable
// once versioned: an update is a new version with a later effective date,
// never an edit to history. Exactly one version is active for a given
// (state, as-of date).
type StateRuleSet struct {
	State         string    `json:"state"`
	Version       string    `json:"version"`
	EffectiveDate time.Time `json:"effective_date"`

	Scheme    TaxScheme    `json:"scheme"`
	StateRate money.Amount `json:"state_rate"` // e.g. 0.0625

	TradeInPolicy TradeInPolicy `json:"trade_in_policy"`
	TradeInCap    money.Amount  `json:"trade_in_cap"` // only read when policy is CAPPED

	DocFeeTaxable bool         `json:"doc_fee_taxable"`
	DocFeeCap     money.Amount `json:"doc_fee_cap"` // zero means uncapped

	WarrantyTaxable    bool `json:"warranty_taxable"`
	GAPTaxable         bool `json:"gap_taxable"`
	MaintenanceTaxable bool `json:"maintenance_taxable"`
	AccessoriesTaxable bool `json:"accessories_taxable"`

	// ManufacturerRebateReducesBase: when true (and the vehicle is new)
	// the manufacturer rebate comes off the taxable price. When false the
	// state taxes the pre-rebate price.
	ManufacturerRebateReducesBase bool `json:"manufacturer_rebate_reduces_base"`

	LeaseTaxMethod LeaseTaxMethod `json:"lease_tax_method"`

	// Reciprocity: the state credits tax already paid to the buyer's home
	// state against its own liability.
	Reciprocity bool `json:"reciprocity"`
}

// IsCategoryTaxable looks up product-category taxability. Unknown categories
// default to taxable, which errs toward collecting tax rather than under-
// collecting it.
func (r *StateRuleSet) IsCategoryTaxable(cat ProductCategory) bool {
	switch cat {
	case ProductWarranty:
		return r.WarrantyTaxable
	case ProductGAP:
		return r.GAPTaxable
	case ProductMaintenance:
		return r.MaintenanceTaxable
	case ProductAccessory:
		return r.AccessoriesTaxable
	default:
		return true
	}
}
