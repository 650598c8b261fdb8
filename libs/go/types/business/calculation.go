package business

import (
	"time"

	"github.com/dealdesk/dealdesk-api/libs/go/money"
	"github.com/google/uuid"
)

// TaxLine is a single jurisdiction component of the tax breakdown.
type TaxLine struct {
	Component    string       `json:"component"` // "state", "county", "city", "special_district", "reciprocity_credit"
	Jurisdiction string       `json:"jurisdiction"`
	Rate         money.Amount `json:"rate"`
	TaxableBase  money.Amount `json:"taxable_base"`
	TaxAmount    money.Amount `json:"tax_amount"`
}

// TaxBreakdown is the tax calculator's output. The itemized lines always sum
// to TotalTax to the cent; a mismatch is a defect, not a rounding artifact.
type TaxBreakdown struct {
	Scheme         TaxScheme      `json:"scheme"`
	LeaseTaxMethod LeaseTaxMethod `json:"lease_tax_method,omitempty"`

	TaxableAmount money.Amount `json:"taxable_amount"`
	Lines         []TaxLine    `json:"lines"`
	TotalTax      money.Amount `json:"total_tax"`

	// PaymentTaxRate is populated only for payment-taxed leases; the lease
	// calculator applies it to each monthly payment.
	PaymentTaxRate money.Amount `json:"payment_tax_rate"`
	// UpfrontTax is populated for cap-cost and cap-reduction lease methods.
	UpfrontTax money.Amount `json:"upfront_tax"`

	RebateReducedBase  bool         `json:"rebate_reduced_base"`
	TradeCreditApplied money.Amount `json:"trade_credit_applied"`
	FlooredAtZero      bool         `json:"floored_at_zero"`

	Warnings []string `json:"warnings,omitempty"`
}

// FinanceResult is the retail payment engine's output.
type FinanceResult struct {
	AmountFinanced  money.Amount `json:"amount_financed"`
	TradeEquity     money.Amount `json:"trade_equity"`
	MonthlyPayment  money.Amount `json:"monthly_payment"`
	TotalOfPayments money.Amount `json:"total_of_payments"`
	TotalInterest   money.Amount `json:"total_interest"`
	DealerReserve   money.Amount `json:"dealer_reserve"`
	LoanToValue     money.Amount `json:"loan_to_value"` // percent
	Warnings        []string     `json:"warnings,omitempty"`
}

// LeaseResult is the lease payment engine's output.
type LeaseResult struct {
	GrossCapCost       money.Amount `json:"gross_cap_cost"`
	TotalCapReductions money.Amount `json:"total_cap_reductions"`
	AdjustedCapCost    money.Amount `json:"adjusted_cap_cost"`
	ResidualValue      money.Amount `json:"residual_value"`

	MonthlyDepreciation money.Amount `json:"monthly_depreciation"`
	MonthlyRentCharge   money.Amount `json:"monthly_rent_charge"`
	BaseMonthlyPayment  money.Amount `json:"base_monthly_payment"`
	MonthlyTax          money.Amount `json:"monthly_tax"`
	MonthlyPayment      money.Amount `json:"monthly_payment"`

	TotalRentCharge money.Amount `json:"total_rent_charge"`
	UpfrontTax      money.Amount `json:"upfront_tax"`
	DriveOffTotal   money.Amount `json:"drive_off_total"`

	Warnings []string `json:"warnings,omitempty"`
}

// CalculationResult pairs the tax breakdown with whichever payment engine the
// deal type selected. Results are immutable; a recalculation produces a new
// one.
type CalculationResult struct {
	CalculationID uuid.UUID `json:"calculation_id"`
	DealID        uuid.UUID `json:"deal_id"`
	DealType      DealType  `json:"deal_type"`

	Tax     *TaxBreakdown  `json:"tax"`
	Finance *FinanceResult `json:"finance,omitempty"`
	Lease   *LeaseResult   `json:"lease,omitempty"`

	// Warnings aggregates resolver, tax, and payment warnings. The deal
	// may legitimately proceed with any of them present.
	Warnings []string `json:"warnings,omitempty"`

	CalculatedAt time.Time `json:"calculated_at"`
}

// AuditRecord captures exactly what produced a CalculationResult: the inputs,
// the rule-set version, and the jurisdiction snapshot. Records are
// append-only and keyed by deal so the numbers at any past time can be
// replayed.
type AuditRecord struct {
	CalculationID  uuid.UUID          `json:"calculation_id"`
	DealID         uuid.UUID          `json:"deal_id"`
	DealVersion    int64              `json:"deal_version"`
	RuleSetState   string             `json:"rule_set_state"`
	RuleSetVersion string             `json:"rule_set_version"`
	Jurisdiction   JurisdictionRates  `json:"jurisdiction"`
	Facts          DealFacts          `json:"facts"`
	Result         *CalculationResult `json:"result"`

	// FactsDigest fingerprints (facts, rule-set version) so an unchanged
	// recalculation can be answered from this record instead of appending
	// a duplicate.
	FactsDigest string    `json:"facts_digest"`
	CreatedAt   time.Time `json:"created_at"`
}
