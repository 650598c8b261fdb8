package services

import (
	"fmt"

	"github.com/dealdesk/dealdesk-api/libs/go/logger"
	"github.com/dealdesk/dealdesk-api/libs/go/money"
	"github.com/dealdesk/dealdesk-api/libs/go/types/business"
	"go.uber.org/zap"
)

// Finance warning thresholds. Crossing one flags the deal; it never blocks
// the calculation.
var (
	maxConventionalAPR = money.MustParse("30")
	maxConventionalLTV = money.MustParse("125")
)

const maxConventionalTermMonths = 84

// FinanceService is the retail payment engine. It amortizes the amount
// financed into a level monthly payment and derives the dealer economics.
type FinanceService struct {
	logger *zap.Logger
}

// NewFinanceService creates a new finance service.
func NewFinanceService() *FinanceService {
	return &FinanceService{logger: logger.Log}
}

// CalculateFinance computes the retail payment breakdown. Amount financed is
// vehicle price plus tax plus fees, less down payment and trade equity.
// Negative trade equity raises the amount financed and is surfaced verbatim.
func (s *FinanceService) CalculateFinance(facts *business.DealFacts, tax *business.TaxBreakdown) (*business.FinanceResult, error) {
	if facts == nil {
		return nil, business.NewValidationError("facts", "deal facts are required")
	}
	if facts.TermMonths <= 0 {
		return nil, business.NewValidationError("term_months", "must be greater than zero")
	}
	if facts.APR.IsNegative() {
		return nil, business.NewValidationError("apr", "must not be negative")
	}
	if facts.VehiclePrice.IsNegative() || facts.VehiclePrice.IsZero() {
		return nil, business.NewValidationError("vehicle_price", "must be greater than zero")
	}

	totalTax := money.Zero()
	if tax != nil {
		totalTax = tax.TotalTax
	}

	tradeEquity := facts.TradeEquity()
	amountFinanced := facts.VehiclePrice.
		Add(totalTax).
		Add(facts.FeeTotal()).
		Sub(facts.DownPayment).
		Sub(tradeEquity).
		RoundCents()

	s.logger.Info("Calculating retail financing",
		zap.String("deal_id", facts.DealID.String()),
		zap.String("amount_financed", amountFinanced.StringFixed()),
		zap.String("apr", facts.APR.String()),
		zap.Int32("term_months", facts.TermMonths))

	payment, err := amortizedPayment(amountFinanced, facts.APR, facts.TermMonths)
	if err != nil {
		return nil, err
	}

	term := money.FromInt(int64(facts.TermMonths))
	totalOfPayments := payment.Mul(term)
	totalInterest := totalOfPayments.Sub(amountFinanced)
	if facts.APR.IsZero() {
		// The rounded payment times term can drift a cent from the
		// principal; at zero rate the interest is zero by definition.
		totalInterest = money.Zero()
	}

	result := &business.FinanceResult{
		AmountFinanced:  amountFinanced,
		TradeEquity:     tradeEquity,
		MonthlyPayment:  payment,
		TotalOfPayments: totalOfPayments,
		TotalInterest:   totalInterest,
		DealerReserve:   dealerReserve(amountFinanced, facts.APR, facts.BuyRate, facts.TermMonths),
		LoanToValue:     amountFinanced.Div(facts.VehiclePrice).Mul(money.FromInt(100)).RoundCents(),
	}
	result.Warnings = financeWarnings(facts, result)

	return result, nil
}

// amortizedPayment is the level-payment amortization formula
// P*r*(1+r)^n / ((1+r)^n - 1), with r the monthly periodic rate. A zero rate
// is special-cased to P/n; feeding it through the formula divides by zero.
func amortizedPayment(principal, apr money.Amount, termMonths int32) (money.Amount, error) {
	term := money.FromInt(int64(termMonths))

	if apr.IsZero() {
		return principal.Div(term).RoundCents(), nil
	}

	monthlyRate := apr.Div(money.FromInt(1200))
	factor := money.FromInt(1).Add(monthlyRate).PowInt(termMonths)
	denominator := factor.Sub(money.FromInt(1))
	if denominator.IsZero() {
		return money.Zero(), fmt.Errorf("amortization factor degenerate for apr %s term %d", apr.String(), termMonths)
	}

	payment := principal.Mul(monthlyRate).Mul(factor).Div(denominator)
	return payment.RoundCents(), nil
}

// dealerReserve is the rate-spread participation: (sell rate - buy rate)
// applied to the amount financed over the term in years. A missing or
// inverted buy rate yields zero, not a negative reserve.
func dealerReserve(amountFinanced, apr, buyRate money.Amount, termMonths int32) money.Amount {
	if buyRate.IsZero() || buyRate.Cmp(apr) >= 0 {
		return money.Zero()
	}
	spread := apr.Sub(buyRate).Div(money.FromInt(100))
	years := money.FromInt(int64(termMonths)).Div(money.FromInt(12))
	return amountFinanced.Mul(spread).Mul(years).RoundCents()
}

func financeWarnings(facts *business.DealFacts, result *business.FinanceResult) []string {
	var warnings []string

	if facts.APR.Cmp(maxConventionalAPR) > 0 {
		warnings = append(warnings,
			fmt.Sprintf("APR of %s%% exceeds 30%%", facts.APR.String()))
	}
	if facts.TermMonths >= maxConventionalTermMonths {
		warnings = append(warnings,
			fmt.Sprintf("term of %d months is %d months or longer", facts.TermMonths, maxConventionalTermMonths))
	}
	if result.TradeEquity.IsNegative() {
		warnings = append(warnings,
			fmt.Sprintf("negative trade equity of %s rolled into amount financed", result.TradeEquity.StringFixed()))
	}
	if result.LoanToValue.Cmp(maxConventionalLTV) > 0 {
		warnings = append(warnings,
			fmt.Sprintf("loan-to-value of %s%% exceeds 125%%", result.LoanToValue.String()))
	}

	return warnings
}
