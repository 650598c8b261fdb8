package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dealdesk/dealdesk-api/libs/go/interfaces"
	"github.com/dealdesk/dealdesk-api/libs/go/logger"
	"github.com/dealdesk/dealdesk-api/libs/go/metrics"
	"github.com/dealdesk/dealdesk-api/libs/go/types/api/params"
	"github.com/dealdesk/dealdesk-api/libs/go/types/business"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ValuationService sequences jurisdiction resolution, tax, and the payment
// engine for a deal, then attaches the audit record. The service itself is
// stateless; every calculation works from a fresh DealFacts and produces a
// fresh CalculationResult.
type ValuationService struct {
	jurisdiction interfaces.JurisdictionService
	tax          interfaces.TaxService
	finance      *FinanceService
	lease        *LeaseService
	deals        interfaces.DealStore
	audit        interfaces.AuditStore
	publisher    interfaces.AuditPublisher
	logger       *zap.Logger
}

// NewValuationService creates a new valuation service. publisher may be nil
// when no downstream audit consumer is configured.
func NewValuationService(
	jurisdiction interfaces.JurisdictionService,
	tax interfaces.TaxService,
	finance *FinanceService,
	lease *LeaseService,
	deals interfaces.DealStore,
	audit interfaces.AuditStore,
	publisher interfaces.AuditPublisher,
) *ValuationService {
	return &ValuationService{
		jurisdiction: jurisdiction,
		tax:          tax,
		finance:      finance,
		lease:        lease,
		deals:        deals,
		audit:        audit,
		publisher:    publisher,
		logger:       logger.Log,
	}
}

// Calculate runs the full pipeline for one deal's facts. The returned
// TaxContext lets callers persist the jurisdiction snapshot alongside the
// result.
func (s *ValuationService) Calculate(ctx context.Context, facts *business.DealFacts) (*business.CalculationResult, *business.TaxContext, error) {
	if facts == nil {
		return nil, nil, business.NewValidationError("facts", "deal facts are required")
	}

	start := time.Now()
	defer func() {
		metrics.CalculationDuration.Observe(time.Since(start).Seconds())
	}()

	taxCtx, err := s.jurisdiction.Resolve(ctx, params.ResolveJurisdictionParams{
		RegistrationState: facts.RegistrationState,
		BuyerState:        facts.BuyerState,
		DeliveryState:     facts.DeliveryState,
		DealerState:       facts.DealerState,
		Zip:               facts.Zip,
		AsOfDate:          facts.AsOfDate,
		HomeStateTaxPaid:  facts.HomeStateTaxPaid,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("resolving jurisdiction: %w", err)
	}

	result := &business.CalculationResult{
		CalculationID: uuid.New(),
		DealID:        facts.DealID,
		DealType:      facts.DealType,
		CalculatedAt:  time.Now().UTC(),
	}

	switch facts.DealType {
	case business.DealTypeRetail:
		breakdown, err := s.tax.CalculateTax(params.TaxCalculationParams{
			Facts:   facts,
			RuleSet: &taxCtx.RuleSet,
			Rates:   taxCtx.Rates,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("calculating tax: %w", err)
		}
		finance, err := s.finance.CalculateFinance(facts, breakdown)
		if err != nil {
			return nil, nil, fmt.Errorf("calculating financing: %w", err)
		}
		result.Tax = breakdown
		result.Finance = finance
		result.Warnings = collectWarnings(taxCtx.Warnings, breakdown.Warnings, finance.Warnings)

	case business.DealTypeLease:
		breakdown, err := s.tax.CalculateLeaseTax(params.LeaseTaxParams{
			Facts:         facts,
			RuleSet:       &taxCtx.RuleSet,
			Rates:         taxCtx.Rates,
			GrossCapCost:  s.lease.GrossCapCost(facts),
			CapReductions: s.lease.CapReductions(facts),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("calculating lease tax: %w", err)
		}
		leaseResult, err := s.lease.CalculateLease(facts, breakdown)
		if err != nil {
			return nil, nil, fmt.Errorf("calculating lease: %w", err)
		}
		result.Tax = breakdown
		result.Lease = leaseResult
		result.Warnings = collectWarnings(taxCtx.Warnings, breakdown.Warnings, leaseResult.Warnings)

	default:
		return nil, nil, business.NewValidationError("deal_type", fmt.Sprintf("unknown deal type %q", facts.DealType))
	}

	metrics.CalculationsTotal.WithLabelValues(string(facts.DealType), taxCtx.PrimaryState).Inc()

	s.logger.Info("Calculated deal valuation",
		zap.String("deal_id", facts.DealID.String()),
		zap.String("calculation_id", result.CalculationID.String()),
		zap.String("deal_type", string(facts.DealType)),
		zap.String("state", taxCtx.PrimaryState),
		zap.Int("warnings", len(result.Warnings)))

	return result, taxCtx, nil
}

// RecalculateDeal reloads a deal's facts and reruns the pipeline. When the
// facts and rule-set version match the latest audit record, the stored
// result is returned and no duplicate audit entry is appended.
func (s *ValuationService) RecalculateDeal(ctx context.Context, p params.RecalculateDealParams) (*business.CalculationResult, error) {
	facts, version, err := s.deals.GetDealFacts(ctx, p.DealID)
	if err != nil {
		return nil, fmt.Errorf("loading deal facts: %w", err)
	}
	if !p.AsOfDate.IsZero() {
		facts.AsOfDate = p.AsOfDate
	}

	result, taxCtx, err := s.Calculate(ctx, facts)
	if err != nil {
		return nil, err
	}

	digest, err := factsDigest(facts, taxCtx.RuleSet.Version)
	if err != nil {
		return nil, fmt.Errorf("computing facts digest: %w", err)
	}

	latest, err := s.audit.GetLatestAuditRecord(ctx, p.DealID)
	if err != nil {
		s.logger.Warn("Failed to load latest audit record",
			zap.String("deal_id", p.DealID.String()),
			zap.Error(err))
	}
	if latest != nil && latest.FactsDigest == digest {
		s.logger.Info("Facts unchanged since last calculation, reusing audit record",
			zap.String("deal_id", p.DealID.String()),
			zap.String("calculation_id", latest.CalculationID.String()))
		return latest.Result, nil
	}

	if err := s.deals.SaveCalculation(ctx, p.DealID, version, result); err != nil {
		return nil, fmt.Errorf("saving calculation: %w", err)
	}

	record := &business.AuditRecord{
		CalculationID:  result.CalculationID,
		DealID:         p.DealID,
		DealVersion:    version,
		RuleSetState:   taxCtx.RuleSet.State,
		RuleSetVersion: taxCtx.RuleSet.Version,
		Jurisdiction:   taxCtx.Rates,
		Facts:          *facts,
		Result:         result,
		FactsDigest:    digest,
		CreatedAt:      result.CalculatedAt,
	}
	s.appendAudit(ctx, record)

	return result, nil
}

// appendAudit writes and publishes the audit record. Audit failures are
// operator problems, not caller problems: the computed result already stands,
// so failures here are logged and counted but never returned.
func (s *ValuationService) appendAudit(ctx context.Context, record *business.AuditRecord) {
	if err := s.audit.AppendAuditRecord(ctx, record); err != nil {
		metrics.AuditSinkFailures.Inc()
		s.logger.Error("Failed to append audit record",
			zap.String("deal_id", record.DealID.String()),
			zap.String("calculation_id", record.CalculationID.String()),
			zap.Error(err))
		return
	}
	s.logger.Debug("Appended audit record",
		zap.Any("record", spew.Sdump(record)))

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAuditRecord(ctx, record); err != nil {
		metrics.AuditSinkFailures.Inc()
		s.logger.Error("Failed to publish audit record",
			zap.String("deal_id", record.DealID.String()),
			zap.String("calculation_id", record.CalculationID.String()),
			zap.Error(err))
	}
}

// AuditTrail returns a deal's audit records, newest first.
func (s *ValuationService) AuditTrail(ctx context.Context, dealID uuid.UUID) ([]business.AuditRecord, error) {
	records, err := s.audit.ListAuditRecords(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("listing audit records: %w", err)
	}
	return records, nil
}

// factsDigest fingerprints the facts together with the rule-set version.
// DealFacts holds no maps, so its JSON encoding is deterministic.
func factsDigest(facts *business.DealFacts, ruleSetVersion string) (string, error) {
	encoded, err := json.Marshal(facts)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(append(encoded, []byte("|"+ruleSetVersion)...))
	return hex.EncodeToString(sum[:]), nil
}

func collectWarnings(groups ...[]string) []string {
	var all []string
	for _, g := range groups {
		all = append(all, g...)
	}
	return all
}
