package handlers

import (
	"net/http"
	"time"

	"github.com/dealdesk/dealdesk-api/libs/go/interfaces"
	"github.com/dealdesk/dealdesk-api/libs/go/types/api/params"
	"github.com/dealdesk/dealdesk-api/libs/go/types/api/responses"
	"github.com/dealdesk/dealdesk-api/libs/go/types/business"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ValuationHandler exposes the valuation engine over HTTP. All monetary
// fields cross this boundary as decimal strings.
type ValuationHandler struct {
	jurisdiction interfaces.JurisdictionService
	tax          interfaces.TaxService
	valuation    interfaces.ValuationService
	logger       *zap.Logger
}

// NewValuationHandler creates a handler with interface dependencies.
func NewValuationHandler(
	jurisdiction interfaces.JurisdictionService,
	tax interfaces.TaxService,
	valuation interfaces.ValuationService,
	logger *zap.Logger,
) *ValuationHandler {
	if logger == nil {
		logger = zap.L()
	}
	return &ValuationHandler{
		jurisdiction: jurisdiction,
		tax:          tax,
		valuation:    valuation,
		logger:       logger,
	}
}

// RegisterRoutes mounts the valuation endpoints on the given router group.
func (h *ValuationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/tax/calculate", h.CalculateTax)
	rg.POST("/finance/calculate", h.CalculateFinance)
	rg.POST("/lease/calculate", h.CalculateLease)
	rg.POST("/deals/:deal_id/recalculate", h.RecalculateDeal)
	rg.GET("/deals/:deal_id/audit", h.GetAuditTrail)
	rg.GET("/jurisdictions/rates", h.LookupRates)
}

// bindFacts decodes the request body into deal facts. The engine never reads
// the clock, so a missing as-of date is pinned here at the boundary.
func (h *ValuationHandler) bindFacts(c *gin.Context) (*business.DealFacts, bool) {
	var facts business.DealFacts
	if err := c.ShouldBindJSON(&facts); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return nil, false
	}
	if facts.DealID == uuid.Nil {
		facts.DealID = uuid.New()
	}
	if facts.AsOfDate.IsZero() {
		facts.AsOfDate = time.Now().UTC()
	}
	return &facts, true
}

// CalculateTax computes the retail tax breakdown for a set of deal facts.
func (h *ValuationHandler) CalculateTax(c *gin.Context) {
	facts, ok := h.bindFacts(c)
	if !ok {
		return
	}

	taxCtx, err := h.jurisdiction.Resolve(c.Request.Context(), params.ResolveJurisdictionParams{
		RegistrationState: facts.RegistrationState,
		BuyerState:        facts.BuyerState,
		DeliveryState:     facts.DeliveryState,
		DealerState:       facts.DealerState,
		Zip:               facts.Zip,
		AsOfDate:          facts.AsOfDate,
		HomeStateTaxPaid:  facts.HomeStateTaxPaid,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	breakdown, err := h.tax.CalculateTax(params.TaxCalculationParams{
		Facts:   facts,
		RuleSet: &taxCtx.RuleSet,
		Rates:   taxCtx.Rates,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	breakdown.Warnings = append(taxCtx.Warnings, breakdown.Warnings...)

	c.JSON(http.StatusOK, responses.TaxCalculationResponse{
		Object:    "tax_breakdown",
		Breakdown: breakdown,
	})
}

// CalculateFinance runs the full retail pipeline for a set of deal facts.
func (h *ValuationHandler) CalculateFinance(c *gin.Context) {
	facts, ok := h.bindFacts(c)
	if !ok {
		return
	}
	facts.DealType = business.DealTypeRetail

	result, _, err := h.valuation.Calculate(c.Request.Context(), facts)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.FinanceCalculationResponse{
		Object:  "finance_calculation",
		Tax:     result.Tax,
		Finance: result.Finance,
	})
}

// CalculateLease runs the full lease pipeline for a set of deal facts.
func (h *ValuationHandler) CalculateLease(c *gin.Context) {
	facts, ok := h.bindFacts(c)
	if !ok {
		return
	}
	facts.DealType = business.DealTypeLease

	result, _, err := h.valuation.Calculate(c.Request.Context(), facts)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.LeaseCalculationResponse{
		Object: "lease_calculation",
		Tax:    result.Tax,
		Lease:  result.Lease,
	})
}

// RecalculateDeal reruns the pipeline for a stored deal.
func (h *ValuationHandler) RecalculateDeal(c *gin.Context) {
	dealID, err := uuid.Parse(c.Param("deal_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid deal id"})
		return
	}

	var asOf time.Time
	if raw := c.Query("as_of"); raw != "" {
		asOf, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid as_of date, expected RFC3339"})
			return
		}
	}

	result, err := h.valuation.RecalculateDeal(c.Request.Context(), params.RecalculateDealParams{
		DealID:   dealID,
		AsOfDate: asOf,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.CalculationResponse{
		Object: "calculation",
		Result: result,
	})
}

// GetAuditTrail returns a deal's audit records, newest first.
func (h *ValuationHandler) GetAuditTrail(c *gin.Context) {
	dealID, err := uuid.Parse(c.Param("deal_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid deal id"})
		return
	}

	records, err := h.valuation.AuditTrail(c.Request.Context(), dealID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.AuditTrailResponse{
		Object:  "audit_trail",
		DealID:  dealID.String(),
		Records: records,
	})
}

// LookupRates exposes the raw ZIP rate lookup for manual-entry flows.
func (h *ValuationHandler) LookupRates(c *gin.Context) {
	zip := c.Query("zip")
	state := c.Query("state")
	if zip == "" || state == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "zip and state query parameters are required"})
		return
	}

	rates, err := h.jurisdiction.LookupRates(c.Request.Context(), zip, state)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, rates)
}
