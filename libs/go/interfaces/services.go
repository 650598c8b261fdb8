package interfaces

import (
	"context"
	"time"

	"github.com/dealdesk/dealdesk-api/libs/go/types/api/params"
	"github.com/dealdesk/dealdesk-api/libs/go/types/business"
	"github.com/google/uuid"
)

// JurisdictionLookup resolves local tax rates for a ZIP code. It is the one
// external call inside the engine; implementations must be context-aware so
// callers can bound it with timeouts.
type JurisdictionLookup interface {
	LookupRates(ctx context.Context, zip, stateCode string) (*business.JurisdictionRates, error)
}

// StateRuleStore serves versioned state rule sets. Read-only from the
// engine's perspective.
type StateRuleStore interface {
	GetStateRuleSet(ctx context.Context, stateCode string, asOf time.Time) (*business.StateRuleSet, error)
}

// DealStore reads deal facts and persists calculation outcomes under
// optimistic locking. SaveCalculation returns business.ErrVersionConflict
// when the deal's version moved since the facts were read.
type DealStore interface {
	GetDealFacts(ctx context.Context, dealID uuid.UUID) (*business.DealFacts, int64, error)
	SaveCalculation(ctx context.Context, dealID uuid.UUID, version int64, result *business.CalculationResult) error
}

// AuditStore appends and reads calculation audit records. Appends must not
// block returning a computed result; failures are surfaced to operators
// instead.
type AuditStore interface {
	AppendAuditRecord(ctx context.Context, record *business.AuditRecord) error
	GetLatestAuditRecord(ctx context.Context, dealID uuid.UUID) (*business.AuditRecord, error)
	ListAuditRecords(ctx context.Context, dealID uuid.UUID) ([]business.AuditRecord, error)
}

// AuditPublisher fans audit records out to downstream consumers.
type AuditPublisher interface {
	PublishAuditRecord(ctx context.Context, record *business.AuditRecord) error
}

// JurisdictionService resolves which state's rules govern a deal.
type JurisdictionService interface {
	Resolve(ctx context.Context, p params.ResolveJurisdictionParams) (*business.TaxContext, error)
	LookupRates(ctx context.Context, zip, stateCode string) (*business.JurisdictionRates, error)
}

// TaxService computes taxable-amount breakdowns under a state's rule set.
type TaxService interface {
	CalculateTax(p params.TaxCalculationParams) (*business.TaxBreakdown, error)
	CalculateLeaseTax(p params.LeaseTaxParams) (*business.TaxBreakdown, error)
}

// FinanceService is the retail payment engine.
type FinanceService interface {
	CalculateFinance(facts *business.DealFacts, tax *business.TaxBreakdown) (*business.FinanceResult, error)
}

// LeaseService is the lease payment engine.
type LeaseService interface {
	CalculateLease(facts *business.DealFacts, tax *business.TaxBreakdown) (*business.LeaseResult, error)
}

// ValuationService orchestrates resolver, tax, and payment engines and owns
// audit bookkeeping.
type ValuationService interface {
	Calculate(ctx context.Context, facts *business.DealFacts) (*business.CalculationResult, *business.TaxContext, error)
	RecalculateDeal(ctx context.Context, p params.RecalculateDealParams) (*business.CalculationResult, error)
	AuditTrail(ctx context.Context, dealID uuid.UUID) ([]business.AuditRecord, error)
}
