package services

import (
	"fmt"

	"github.com/dealdesk/dealdesk-api/libs/go/logger"
	"github.com/dealdesk/dealdesk-api/libs/go/money"
	"github.com/dealdesk/dealdesk-api/libs/go/types/api/params"
	"github.com/dealdesk/dealdesk-api/libs/go/types/business"
	"go.uber.org/zap"
)

// TaxService applies a state's rule set to a deal's monetary facts. The
// computation order is fixed: rebates, then trade credit, then taxable
// add-ons, then the zero floor, then itemization. Each step changes the base
// the next step works from, so the steps must not be reordered.
type TaxService struct {
	logger *zap.Logger
}

// NewTaxService creates a new tax service.
func NewTaxService() *TaxService {
	return &TaxService{logger: logger.Log}
}

// CalculateTax computes the retail taxable-amount breakdown for a deal.
func (s *TaxService) CalculateTax(p params.TaxCalculationParams) (*business.TaxBreakdown, error) {
	if err := validateTaxInputs(p.Facts, p.RuleSet); err != nil {
		return nil, err
	}

	s.logger.Info("Calculating tax",
		zap.String("deal_id", p.Facts.DealID.String()),
		zap.String("state", p.RuleSet.State),
		zap.String("scheme", string(p.RuleSet.Scheme)),
		zap.String("vehicle_price", p.Facts.VehiclePrice.StringFixed()))

	breakdown := newBreakdown(p.RuleSet.Scheme, "")

	base := p.Facts.VehiclePrice
	base = s.applyRebateStep(base, p.Facts, p.RuleSet, breakdown)

	base, err := s.applyTradeCreditStep(base, p.Facts, p.RuleSet, breakdown)
	if err != nil {
		return nil, err
	}

	base = base.Add(s.taxableAddOns(p.Facts, p.RuleSet))
	base = s.applyZeroFloor(base, breakdown)
	breakdown.TaxableAmount = base

	if err := s.itemize(base, p.RuleSet, p.Rates, breakdown); err != nil {
		return nil, err
	}
	s.applyReciprocityCredit(p.Facts, p.RuleSet, breakdown)

	return breakdown, nil
}

// CalculateLeaseTax computes the lease tax breakdown. The lease calculator
// supplies the cap-cost bases; depending on the state's lease tax method the
// result carries either a per-payment rate or a single upfront tax.
func (s *TaxService) CalculateLeaseTax(p params.LeaseTaxParams) (*business.TaxBreakdown, error) {
	if err := validateTaxInputs(p.Facts, p.RuleSet); err != nil {
		return nil, err
	}

	s.logger.Info("Calculating lease tax",
		zap.String("deal_id", p.Facts.DealID.String()),
		zap.String("state", p.RuleSet.State),
		zap.String("method", string(p.RuleSet.LeaseTaxMethod)))

	breakdown := newBreakdown(p.RuleSet.Scheme, p.RuleSet.LeaseTaxMethod)

	switch p.RuleSet.LeaseTaxMethod {
	case business.LeaseTaxOnPayment:
		// Tax attaches to each monthly payment downstream; nothing is
		// due upfront.
		breakdown.PaymentTaxRate = p.Rates.CombinedRate()
		return breakdown, nil

	case business.LeaseTaxOnCapCost:
		base := p.GrossCapCost
		base = s.applyRebateStep(base, p.Facts, p.RuleSet, breakdown)
		base, err := s.applyTradeCreditStep(base, p.Facts, p.RuleSet, breakdown)
		if err != nil {
			return nil, err
		}
		base = s.applyZeroFloor(base, breakdown)
		breakdown.TaxableAmount = base
		if err := s.itemize(base, p.RuleSet, p.Rates, breakdown); err != nil {
			return nil, err
		}
		s.applyReciprocityCredit(p.Facts, p.RuleSet, breakdown)
		breakdown.UpfrontTax = breakdown.TotalTax
		return breakdown, nil

	case business.LeaseTaxOnCapReduction:
		base := s.applyZeroFloor(p.CapReductions, breakdown)
		breakdown.TaxableAmount = base
		if err := s.itemize(base, p.RuleSet, p.Rates, breakdown); err != nil {
			return nil, err
		}
		breakdown.UpfrontTax = breakdown.TotalTax
		return breakdown, nil

	default:
		return nil, fmt.Errorf("unsupported lease tax method %q for state %s", p.RuleSet.LeaseTaxMethod, p.RuleSet.State)
	}
}

func newBreakdown(scheme business.TaxScheme, method business.LeaseTaxMethod) *business.TaxBreakdown {
	return &business.TaxBreakdown{
		Scheme:             scheme,
		LeaseTaxMethod:     method,
		TaxableAmount:      money.Zero(),
		TotalTax:           money.Zero(),
		PaymentTaxRate:     money.Zero(),
		UpfrontTax:         money.Zero(),
		TradeCreditApplied: money.Zero(),
	}
}

func validateTaxInputs(facts *business.DealFacts, ruleSet *business.StateRuleSet) error {
	if facts == nil {
		return business.NewValidationError("facts", "deal facts are required")
	}
	if ruleSet == nil {
		return business.NewValidationError("rule_set", "state rule set is required")
	}
	if facts.VehiclePrice.IsNegative() {
		return business.NewValidationError("vehicle_price", "must not be negative")
	}
	return nil
}

// applyRebateStep subtracts the manufacturer rebate from the base when the
// vehicle is new and the state lets rebates reduce the taxable price. States
// that tax the pre-rebate price keep the base unchanged and record the
// rebate as non-reducing.
func (s *TaxService) applyRebateStep(base money.Amount, facts *business.DealFacts, ruleSet *business.StateRuleSet, breakdown *business.TaxBreakdown) money.Amount {
	rebate := facts.ManufacturerRebateTotal()
	if rebate.IsZero() {
		return base
	}
	if ruleSet.ManufacturerRebateReducesBase && facts.VehicleCondition == business.VehicleNew {
		breakdown.RebateReducedBase = true
		return base.Sub(rebate)
	}
	breakdown.RebateReducedBase = false
	return base
}

// applyTradeCreditStep subtracts the trade-in credit per the state's policy.
// The credit basis is the trade allowance; the trade payoff never reduces
// the taxable base.
func (s *TaxService) applyTradeCreditStep(base money.Amount, facts *business.DealFacts, ruleSet *business.StateRuleSet, breakdown *business.TaxBreakdown) (money.Amount, error) {
	var credit money.Amount
	switch ruleSet.TradeInPolicy {
	case business.TradeInFull:
		credit = facts.TradeAllowance
	case business.TradeInCapped:
		credit = money.Min(facts.TradeAllowance, ruleSet.TradeInCap)
	case business.TradeInNone:
		credit = money.Zero()
	default:
		return money.Zero(), fmt.Errorf("unknown trade-in policy %q for state %s", ruleSet.TradeInPolicy, ruleSet.State)
	}
	breakdown.TradeCreditApplied = credit
	return base.Sub(credit), nil
}

// taxableAddOns sums fees and F&I products that the rule set taxes. Doc fees
// follow the rule set's taxability and cap rather than the fee's own flag.
func (s *TaxService) taxableAddOns(facts *business.DealFacts, ruleSet *business.StateRuleSet) money.Amount {
	total := money.Zero()

	for _, fee := range facts.Fees {
		if fee.Kind == business.FeeDoc {
			if !ruleSet.DocFeeTaxable {
				continue
			}
			amt := fee.Amount
			if ruleSet.DocFeeCap.IsPositive() {
				amt = money.Min(amt, ruleSet.DocFeeCap)
			}
			total = total.Add(amt)
			continue
		}
		if fee.Taxable {
			total = total.Add(fee.Amount)
		}
	}

	for _, product := range facts.Products {
		if ruleSet.IsCategoryTaxable(product.Category) {
			total = total.Add(product.Price)
		}
	}

	return total
}

// applyZeroFloor clamps a negative base to zero and flags the clamp. A
// taxable amount below zero is never carried forward.
func (s *TaxService) applyZeroFloor(base money.Amount, breakdown *business.TaxBreakdown) money.Amount {
	if !base.IsNegative() {
		return base
	}
	breakdown.FlooredAtZero = true
	breakdown.Warnings = append(breakdown.Warnings,
		fmt.Sprintf("taxable amount of %s floored at 0.00", base.StringFixed()))
	return money.Zero()
}

// itemize multiplies the base by each jurisdiction component rate
// independently and sums the rounded lines. The total is the sum of the
// lines by construction, so the itemized breakdown always reconciles to the
// cent.
func (s *TaxService) itemize(base money.Amount, ruleSet *business.StateRuleSet, rates business.JurisdictionRates, breakdown *business.TaxBreakdown) error {
	addLine := func(component, jurisdictionName string, rate money.Amount) {
		tax := base.Mul(rate).RoundCents()
		breakdown.Lines = append(breakdown.Lines, business.TaxLine{
			Component:    component,
			Jurisdiction: jurisdictionName,
			Rate:         rate,
			TaxableBase:  base,
			TaxAmount:    tax,
		})
		breakdown.TotalTax = breakdown.TotalTax.Add(tax)
	}

	switch ruleSet.Scheme {
	case business.SchemeTaxOnPrice:
		addLine("state", rates.State, rates.StateRate)
	case business.SchemeStatePlusLocal:
		addLine("state", rates.State, rates.StateRate)
		if rates.CountyRate.IsPositive() {
			addLine("county", rates.CountyName, rates.CountyRate)
		}
		if rates.CityRate.IsPositive() {
			addLine("city", rates.CityName, rates.CityRate)
		}
		if rates.SpecialDistrictRate.IsPositive() {
			addLine("special_district", rates.State, rates.SpecialDistrictRate)
		}
	case business.SchemeTAVT:
		addLine("tavt", rates.State, rates.StateRate)
	case business.SchemeHUT:
		addLine("highway_use", rates.State, rates.StateRate)
	case business.SchemePrivilege:
		addLine("privilege", rates.State, rates.StateRate)
	default:
		return fmt.Errorf("unsupported tax scheme %q for state %s", ruleSet.Scheme, ruleSet.State)
	}

	return nil
}

// applyReciprocityCredit nets tax already paid to the buyer's home state
// against the primary state's liability, as a negative line so the itemized
// sum still equals the total.
func (s *TaxService) applyReciprocityCredit(facts *business.DealFacts, ruleSet *business.StateRuleSet, breakdown *business.TaxBreakdown) {
	if !ruleSet.Reciprocity || facts.BuyerState == "" || facts.BuyerState == ruleSet.State {
		return
	}
	if !facts.HomeStateTaxPaid.IsPositive() || !breakdown.TotalTax.IsPositive() {
		return
	}

	credit := money.Min(breakdown.TotalTax, facts.HomeStateTaxPaid.RoundCents())
	breakdown.Lines = append(breakdown.Lines, business.TaxLine{
		Component:    "reciprocity_credit",
		Jurisdiction: facts.BuyerState,
		Rate:         money.Zero(),
		TaxableBase:  money.Zero(),
		TaxAmount:    credit.Neg(),
	})
	breakdown.TotalTax = breakdown.TotalTax.Sub(credit)
	breakdown.Warnings = append(breakdown.Warnings,
		fmt.Sprintf("credited %s of tax already paid in %s", credit.StringFixed(), facts.BuyerState))
}
