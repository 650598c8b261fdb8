package business

import (
	"time"

	"github.com/dealdesk/dealdesk-api/libs/go/money"
	"github.com/google/uuid"
)

// DealType distinguishes the two payment engines.
type DealType string

const (
	DealTypeRetail DealType = "RETAIL"
	DealTypeLease  DealType = "LEASE"
)

// VehicleCondition affects rebate treatment in several states.
type VehicleCondition string

const (
	VehicleNew  VehicleCondition = "NEW"
	VehicleUsed VehicleCondition = "USED"
)

// ProductCategory classifies F&I products for per-state taxability lookups.
type ProductCategory string

const (
	ProductWarranty    ProductCategory = "WARRANTY"
	ProductGAP         ProductCategory = "GAP"
	ProductMaintenance ProductCategory = "MAINTENANCE"
	ProductAccessory   ProductCategory = "ACCESSORY"
)

// RebateSource identifies who funds a rebate; states treat manufacturer and
// dealer money differently.
type RebateSource string

const (
	RebateManufacturer RebateSource = "MANUFACTURER"
	RebateDealer       RebateSource = "DEALER"
)

// FeeKind identifies fees with state-specific tax treatment. Doc fees are
// the notable case: their taxability and cap come from the rule set, not the
// fee's own Taxable flag.
type FeeKind string

const (
	FeeDoc          FeeKind = "DOC"
	FeeTitle        FeeKind = "TITLE"
	FeeRegistration FeeKind = "REGISTRATION"
	FeeAcquisition  FeeKind = "ACQUISITION"
	FeeOther        FeeKind = "OTHER"
)

// Fee is an itemized deal fee. Taxable controls inclusion in the taxable
// base; Capitalized controls whether a lease rolls it into cap cost.
type Fee struct {
	Name        string       `json:"name"`
	Kind        FeeKind      `json:"kind"`
	Amount      money.Amount `json:"amount"`
	Taxable     bool         `json:"taxable"`
	Capitalized bool         `json:"capitalized"`
}

// FIProduct is a finance-and-insurance product attached to the deal.
type FIProduct struct {
	Name        string          `json:"name"`
	Category    ProductCategory `json:"category"`
	Price       money.Amount    `json:"price"`
	Capitalized bool            `json:"capitalized"`
}

// Rebate is an incentive applied to the deal.
type Rebate struct {
	Source RebateSource `json:"source"`
	Amount money.Amount `json:"amount"`
}

// DealFacts is the complete, immutable input set for one calculation. A
// recalculation always builds a fresh DealFacts; nothing mutates in place.
type DealFacts struct {
	DealID           uuid.UUID        `json:"deal_id"`
	DealType         DealType         `json:"deal_type"`
	VehicleCondition VehicleCondition `json:"vehicle_condition"`

	VehiclePrice money.Amount `json:"vehicle_price"`
	MSRP         money.Amount `json:"msrp"`

	TradeAllowance money.Amount `json:"trade_allowance"`
	TradePayoff    money.Amount `json:"trade_payoff"`

	Rebates  []Rebate    `json:"rebates,omitempty"`
	Fees     []Fee       `json:"fees,omitempty"`
	Products []FIProduct `json:"products,omitempty"`

	DownPayment money.Amount `json:"down_payment"`

	// Retail financing terms.
	APR     money.Amount `json:"apr"`      // annual percentage, e.g. 4.99
	BuyRate money.Amount `json:"buy_rate"` // lender buy rate for reserve spread

	// Lease terms.
	MoneyFactor     money.Amount `json:"money_factor"`
	ResidualPercent money.Amount `json:"residual_percent"` // e.g. 60 for 60%
	SecurityDeposit money.Amount `json:"security_deposit"`

	TermMonths int32 `json:"term_months"`

	RegistrationState string `json:"registration_state"`
	BuyerState        string `json:"buyer_state"`
	DeliveryState     string `json:"delivery_state"`
	DealerState       string `json:"dealer_state"`
	Zip               string `json:"zip"`

	// Tax already collected in the buyer's home state, for reciprocity
	// credit.
	HomeStateTaxPaid money.Amount `json:"home_state_tax_paid"`

	// AsOfDate pins rule-set selection. Supplied by the caller; the
	// engine never reads the clock during calculation.
	AsOfDate time.Time `json:"as_of_date"`
}

// TradeEquity is allowance minus payoff. Negative when the buyer is upside
// down on the trade; surfaced verbatim, never clamped.
func (f *DealFacts) TradeEquity() money.Amount {
	return f.TradeAllowance.Sub(f.TradePayoff)
}

// ManufacturerRebateTotal sums manufacturer-funded rebates.
func (f *DealFacts) ManufacturerRebateTotal() money.Amount {
	total := money.Zero()
	for _, r := range f.Rebates {
		if r.Source == RebateManufacturer {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// DealerIncentiveTotal sums dealer-funded rebates and incentives.
func (f *DealFacts) DealerIncentiveTotal() money.Amount {
	total := money.Zero()
	for _, r := range f.Rebates {
		if r.Source == RebateDealer {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// FeeTotal sums every itemized fee.
func (f *DealFacts) FeeTotal() money.Amount {
	total := money.Zero()
	for _, fee := range f.Fees {
		total = total.Add(fee.Amount)
	}
	return total
}
