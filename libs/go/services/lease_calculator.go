package services

import (
	"fmt"

	"github.com/dealdesk/dealdesk-api/libs/go/logger"
	"github.com/dealdesk/dealdesk-api/libs/go/money"
	"github.com/dealdesk/dealdesk-api/libs/go/types/business"
	"go.uber.org/zap"
)

// standardLeaseTerms are the terms captive lenders publish residuals for.
var standardLeaseTerms = map[int32]bool{
	24: true, 27: true, 30: true, 33: true,
	36: true, 39: true, 42: true, 48: true,
}

var (
	maxImpliedLeaseAPR = money.MustParse("15")
	minResidualPercent = money.MustParse("20")
	maxResidualPercent = money.MustParse("80")
	moneyFactorToAPR   = money.MustParse("2400")
)

// LeaseService is the lease payment engine. It splits the monthly payment
// into a depreciation charge and a rent charge over the capitalized cost.
type LeaseService struct {
	logger *zap.Logger
}

// NewLeaseService creates a new lease service.
func NewLeaseService() *LeaseService {
	return &LeaseService{logger: logger.Log}
}

// CalculateLease computes the lease payment breakdown. The rent charge uses
// the additive form (adjusted cap cost + residual) times money factor; that
// is the industry formula, not simple interest on a declining balance.
func (s *LeaseService) CalculateLease(facts *business.DealFacts, tax *business.TaxBreakdown) (*business.LeaseResult, error) {
	if facts == nil {
		return nil, business.NewValidationError("facts", "deal facts are required")
	}
	if facts.TermMonths <= 0 {
		return nil, business.NewValidationError("term_months", "must be greater than zero")
	}
	if facts.MoneyFactor.IsNegative() {
		return nil, business.NewValidationError("money_factor", "must not be negative")
	}
	if facts.MSRP.IsNegative() || facts.MSRP.IsZero() {
		return nil, business.NewValidationError("msrp", "must be greater than zero")
	}

	grossCap := s.GrossCapCost(facts)
	reductions := s.CapReductions(facts)
	// A negative adjusted cap cost is reported as-is; clamping it would
	// corrupt the depreciation math below.
	adjustedCap := grossCap.Sub(reductions)

	residual := facts.MSRP.Mul(facts.ResidualPercent).Div(money.FromInt(100)).RoundCents()
	term := money.FromInt(int64(facts.TermMonths))

	depreciation := adjustedCap.Sub(residual)
	monthlyDep := depreciation.Div(term).RoundCents()
	monthlyRent := adjustedCap.Add(residual).Mul(facts.MoneyFactor).RoundCents()
	basePayment := monthlyDep.Add(monthlyRent)

	monthlyTax := money.Zero()
	upfrontTax := money.Zero()
	if tax != nil {
		if tax.LeaseTaxMethod == business.LeaseTaxOnPayment && tax.PaymentTaxRate.IsPositive() {
			monthlyTax = basePayment.Mul(tax.PaymentTaxRate).RoundCents()
		}
		upfrontTax = tax.UpfrontTax
	}
	payment := basePayment.Add(monthlyTax)

	s.logger.Info("Calculating lease",
		zap.String("deal_id", facts.DealID.String()),
		zap.String("adjusted_cap_cost", adjustedCap.StringFixed()),
		zap.String("residual_value", residual.StringFixed()),
		zap.String("monthly_payment", payment.StringFixed()))

	result := &business.LeaseResult{
		GrossCapCost:        grossCap,
		TotalCapReductions:  reductions,
		AdjustedCapCost:     adjustedCap,
		ResidualValue:       residual,
		MonthlyDepreciation: monthlyDep,
		MonthlyRentCharge:   monthlyRent,
		BaseMonthlyPayment:  basePayment,
		MonthlyTax:          monthlyTax,
		MonthlyPayment:      payment,
		TotalRentCharge:     monthlyRent.Mul(term),
		UpfrontTax:          upfrontTax,
		DriveOffTotal:       s.driveOffTotal(facts, payment, upfrontTax),
	}
	result.Warnings = leaseWarnings(facts, adjustedCap)

	return result, nil
}

// GrossCapCost is the selling price plus every fee and product rolled into
// the lease.
func (s *LeaseService) GrossCapCost(facts *business.DealFacts) money.Amount {
	total := facts.VehiclePrice
	for _, fee := range facts.Fees {
		if fee.Capitalized {
			total = total.Add(fee.Amount)
		}
	}
	for _, product := range facts.Products {
		if product.Capitalized {
			total = total.Add(product.Price)
		}
	}
	return total
}

// CapReductions is everything lowering the capitalized cost: cash down,
// trade equity, and all rebates and incentives.
func (s *LeaseService) CapReductions(facts *business.DealFacts) money.Amount {
	return facts.DownPayment.
		Add(facts.TradeEquity()).
		Add(facts.ManufacturerRebateTotal()).
		Add(facts.DealerIncentiveTotal())
}

// driveOffTotal is the cash due at signing: first payment, cash down, fees
// not rolled into the lease, upfront tax, and the security deposit.
func (s *LeaseService) driveOffTotal(facts *business.DealFacts, payment, upfrontTax money.Amount) money.Amount {
	total := payment.Add(facts.DownPayment).Add(upfrontTax).Add(facts.SecurityDeposit)
	for _, fee := range facts.Fees {
		if !fee.Capitalized {
			total = total.Add(fee.Amount)
		}
	}
	return total
}

func leaseWarnings(facts *business.DealFacts, adjustedCap money.Amount) []string {
	var warnings []string

	if !standardLeaseTerms[facts.TermMonths] {
		warnings = append(warnings,
			fmt.Sprintf("non-standard lease term of %d months", facts.TermMonths))
	}

	impliedAPR := facts.MoneyFactor.Mul(moneyFactorToAPR)
	if impliedAPR.Cmp(maxImpliedLeaseAPR) > 0 {
		warnings = append(warnings,
			fmt.Sprintf("money factor %s implies an APR of %s%%, above 15%%", facts.MoneyFactor.String(), impliedAPR.RoundCents().String()))
	}

	if facts.ResidualPercent.Cmp(minResidualPercent) < 0 || facts.ResidualPercent.Cmp(maxResidualPercent) > 0 {
		warnings = append(warnings,
			fmt.Sprintf("residual of %s%% is outside the 20-80%% range", facts.ResidualPercent.String()))
	}

	if facts.VehiclePrice.Cmp(facts.MSRP) > 0 {
		warnings = append(warnings,
			fmt.Sprintf("selling price %s exceeds MSRP %s", facts.VehiclePrice.StringFixed(), facts.MSRP.StringFixed()))
	}

	if adjustedCap.IsNegative() {
		warnings = append(warnings,
			fmt.Sprintf("adjusted cap cost of %s is negative", adjustedCap.StringFixed()))
	}

	return warnings
}
