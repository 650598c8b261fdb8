package params

import (
	"time"

	"github.com/dealdesk/dealdesk-api/libs/go/money"
	"github.com/dealdesk/dealdesk-api/libs/go/types/business"
	"github.com/google/uuid"
)

// ResolveJurisdictionParams contains the candidate states and ZIP for
// jurisdiction resolution. Registration state wins over delivery state,
// which wins over dealer state.
type ResolveJurisdictionParams struct {
	RegistrationState string
	BuyerState        string
	DeliveryState     string
	DealerState       string
	Zip               string
	AsOfDate          time.Time
	HomeStateTaxPaid  money.Amount
}

// TaxCalculationParams contains everything the tax calculator needs for one
// retail deal.
type TaxCalculationParams struct {
	Facts   *business.DealFacts
	RuleSet *business.StateRuleSet
	Rates   business.JurisdictionRates
}

// LeaseTaxParams adds the lease bases the lease calculator derives before
// tax is applied.
type LeaseTaxParams struct {
	Facts         *business.DealFacts
	RuleSet       *business.StateRuleSet
	Rates         business.JurisdictionRates
	GrossCapCost  money.Amount
	CapReductions money.Amount
}

// RecalculateDealParams identifies the deal to recalculate.
type RecalculateDealParams struct {
	DealID   uuid.UUID
	AsOfDate time.Time
}
