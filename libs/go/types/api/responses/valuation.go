package responses

import (
	"github.com/dealdesk/dealdesk-api/libs/go/types/business"
)

// TaxCalculationResponse wraps a tax breakdown for API consumers.
type TaxCalculationResponse struct {
	Object    string                 `json:"object"`
	Breakdown *business.TaxBreakdown `json:"breakdown"`
}

// FinanceCalculationResponse wraps a finance result for API consumers.
type FinanceCalculationResponse struct {
	Object  string                  `json:"object"`
	Tax     *business.TaxBreakdown  `json:"tax,omitempty"`
	Finance *business.FinanceResult `json:"finance"`
}

// LeaseCalculationResponse wraps a lease result for API consumers.
type LeaseCalculationResponse struct {
	Object string                 `json:"object"`
	Tax    *business.TaxBreakdown `json:"tax,omitempty"`
	Lease  *business.LeaseResult  `json:"lease"`
}

// CalculationResponse wraps a full deal calculation for API consumers.
type CalculationResponse struct {
	Object string                      `json:"object"`
	Result *business.CalculationResult `json:"result"`
}

// AuditTrailResponse lists a deal's audit records, newest first.
type AuditTrailResponse struct {
	Object  string                  `json:"object"`
	DealID  string                  `json:"deal_id"`
	Records []business.AuditRecord  `json:"records"`
}
