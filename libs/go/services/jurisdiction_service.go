package services

import (
	"context"
	"fmt"

	"github.com/dealdesk/dealdesk-api/libs/go/interfaces"
	"github.com/dealdesk/dealdesk-api/libs/go/logger"
	"github.com/dealdesk/dealdesk-api/libs/go/metrics"
	"github.com/dealdesk/dealdesk-api/libs/go/types/api/params"
	"github.com/dealdesk/dealdesk-api/libs/go/types/business"
	"go.uber.org/zap"
)

// JurisdictionService resolves which state's rules govern a deal and which
// rates apply. The ZIP rate lookup is the only external call in the engine;
// every failure path degrades to the state-only rate rather than blocking.
type JurisdictionService struct {
	lookup interfaces.JurisdictionLookup
	rules  interfaces.StateRuleStore
	logger *zap.Logger
}

// NewJurisdictionService creates a new jurisdiction service. lookup may be
// nil when no rate provider is configured; resolution then always uses the
// state-only fallback.
func NewJurisdictionService(lookup interfaces.JurisdictionLookup, rules interfaces.StateRuleStore) *JurisdictionService {
	return &JurisdictionService{
		lookup: lookup,
		rules:  rules,
		logger: logger.Log,
	}
}

// Resolve determines the primary state, loads its rule set, and fetches
// jurisdiction rates. Registration state takes precedence over delivery
// state, which takes precedence over dealer state.
func (s *JurisdictionService) Resolve(ctx context.Context, p params.ResolveJurisdictionParams) (*business.TaxContext, error) {
	primary := firstNonEmpty(p.RegistrationState, p.DeliveryState, p.DealerState)
	if primary == "" {
		return nil, business.NewValidationError("state", "no candidate state code provided")
	}

	ruleSet, err := s.rules.GetStateRuleSet(ctx, primary, p.AsOfDate)
	if err != nil {
		return nil, err
	}

	taxCtx := &business.TaxContext{
		PrimaryState:     primary,
		HomeState:        p.BuyerState,
		RuleSet:          *ruleSet,
		HomeStateTaxPaid: p.HomeStateTaxPaid,
	}

	if ruleSet.Reciprocity && p.BuyerState != "" && p.BuyerState != primary && p.HomeStateTaxPaid.IsPositive() {
		taxCtx.ReciprocityApplied = true
	}

	taxCtx.Rates = s.resolveRates(ctx, primary, p.Zip, ruleSet, taxCtx)

	s.logger.Info("Resolved tax jurisdiction",
		zap.String("primary_state", primary),
		zap.String("home_state", p.BuyerState),
		zap.String("zip", p.Zip),
		zap.Bool("reciprocity", taxCtx.ReciprocityApplied),
		zap.Bool("low_confidence", taxCtx.LowConfidence))

	return taxCtx, nil
}

// resolveRates fetches layered rates for state-plus-local schemes; every
// other scheme uses the rule set's state rate directly.
func (s *JurisdictionService) resolveRates(ctx context.Context, state, zip string, ruleSet *business.StateRuleSet, taxCtx *business.TaxContext) business.JurisdictionRates {
	if ruleSet.Scheme != business.SchemeStatePlusLocal {
		return business.StateOnly(state, ruleSet.StateRate)
	}

	if zip == "" {
		taxCtx.LowConfidence = true
		taxCtx.Warnings = append(taxCtx.Warnings,
			"no ZIP code provided; using state-only tax rate")
		return business.StateOnly(state, ruleSet.StateRate)
	}

	if s.lookup == nil {
		taxCtx.LowConfidence = true
		taxCtx.Warnings = append(taxCtx.Warnings,
			"jurisdiction lookup not configured; using state-only tax rate")
		return business.StateOnly(state, ruleSet.StateRate)
	}

	rates, err := s.lookup.LookupRates(ctx, zip, state)
	if err != nil {
		metrics.JurisdictionFallbacks.Inc()
		s.logger.Warn("Jurisdiction lookup failed, falling back to state rate",
			zap.String("state", state),
			zap.String("zip", zip),
			zap.Error(err))
		taxCtx.LowConfidence = true
		taxCtx.Warnings = append(taxCtx.Warnings,
			fmt.Sprintf("local tax rates unavailable for ZIP %s; using state-only tax rate", zip))
		return business.StateOnly(state, ruleSet.StateRate)
	}

	return *rates
}

// LookupRates exposes the raw ZIP lookup for API callers that drive manual
// entry. Unlike Resolve, lookup failures here surface as typed errors.
func (s *JurisdictionService) LookupRates(ctx context.Context, zip, stateCode string) (*business.JurisdictionRates, error) {
	if s.lookup == nil {
		return nil, &business.JurisdictionNotFoundError{Zip: zip, State: stateCode}
	}
	return s.lookup.LookupRates(ctx, zip, stateCode)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
