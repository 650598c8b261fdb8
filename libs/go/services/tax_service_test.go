package services_test

import (
	"errors"
	"testing"

	"github.com/dealdesk/dealdesk-api/libs/go/logger"
	"github.com/dealdesk/dealdesk-api/libs/go/money"
	"github.com/dealdesk/dealdesk-api/libs/go/services"
	"github.com/dealdesk/dealdesk-api/libs/go/types/api/params"
	"github.com/dealdesk/dealdesk-api/libs/go/types/business"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.InitLogger("test")
}

func flatRuleSet(state, rate string) *business.StateRuleSet {
	return &business.StateRuleSet{
		State:                         state,
		Version:                       "test.1",
		Scheme:                        business.SchemeTaxOnPrice,
		StateRate:                     money.MustParse(rate),
		TradeInPolicy:                 business.TradeInFull,
		DocFeeTaxable:                 true,
		WarrantyTaxable:               true,
		AccessoriesTaxable:            true,
		ManufacturerRebateReducesBase: true,
		LeaseTaxMethod:                business.LeaseTaxOnPayment,
	}
}

func retailFacts() *business.DealFacts {
	return &business.DealFacts{
		DealID:           uuid.New(),
		DealType:         business.DealTypeRetail,
		VehicleCondition: business.VehicleNew,
		VehiclePrice:     money.MustParse("30000"),
		TermMonths:       60,
	}
}

func assertLinesReconcile(t *testing.T, breakdown *business.TaxBreakdown) {
	t.Helper()
	sum := money.Zero()
	for _, line := range breakdown.Lines {
		sum = sum.Add(line.TaxAmount)
	}
	assert.True(t, sum.Equal(breakdown.TotalTax),
		"lines sum to %s but total is %s", sum.StringFixed(), breakdown.TotalTax.StringFixed())
}

func TestTaxService_CalculateTax_RebateAndTradeCredit(t *testing.T) {
	service := services.NewTaxService()

	facts := retailFacts()
	facts.Rebates = []business.Rebate{{Source: business.RebateManufacturer, Amount: money.MustParse("2000")}}
	facts.TradeAllowance = money.MustParse("5000")
	facts.Fees = []business.Fee{{Name: "Doc Fee", Kind: business.FeeDoc, Amount: money.MustParse("500")}}

	breakdown, err := service.CalculateTax(params.TaxCalculationParams{
		Facts:   facts,
		RuleSet: flatRuleSet("IN", "0.06"),
		Rates:   business.StateOnly("IN", money.MustParse("0.06")),
	})
	require.NoError(t, err)

	// 30000 - 2000 rebate - 5000 trade + 500 doc fee
	assert.Equal(t, "23500.00", breakdown.TaxableAmount.StringFixed())
	assert.Equal(t, "1410.00", breakdown.TotalTax.StringFixed())
	assert.True(t, breakdown.RebateReducedBase)
	assert.Equal(t, "5000.00", breakdown.TradeCreditApplied.StringFixed())
	assertLinesReconcile(t, breakdown)
}

func TestTaxService_CalculateTax_RebateNotReducingOnUsedVehicle(t *testing.T) {
	service := services.NewTaxService()

	facts := retailFacts()
	facts.VehicleCondition = business.VehicleUsed
	facts.Rebates = []business.Rebate{{Source: business.RebateManufacturer, Amount: money.MustParse("2000")}}

	breakdown, err := service.CalculateTax(params.TaxCalculationParams{
		Facts:   facts,
		RuleSet: flatRuleSet("IN", "0.06"),
		Rates:   business.StateOnly("IN", money.MustParse("0.06")),
	})
	require.NoError(t, err)

	assert.Equal(t, "30000.00", breakdown.TaxableAmount.StringFixed())
	assert.False(t, breakdown.RebateReducedBase)
}

func TestTaxService_CalculateTax_NoTradeCreditWithCappedDocFee(t *testing.T) {
	service := services.NewTaxService()

	ruleSet := flatRuleSet("CA", "0.0725")
	ruleSet.TradeInPolicy = business.TradeInNone
	ruleSet.DocFeeCap = money.MustParse("85")
	ruleSet.ManufacturerRebateReducesBase = false

	facts := retailFacts()
	facts.Rebates = []business.Rebate{{Source: business.RebateManufacturer, Amount: money.MustParse("2000")}}
	facts.TradeAllowance = money.MustParse("5000")
	facts.Fees = []business.Fee{{Name: "Doc Fee", Kind: business.FeeDoc, Amount: money.MustParse("500")}}

	breakdown, err := service.CalculateTax(params.TaxCalculationParams{
		Facts:   facts,
		RuleSet: ruleSet,
		Rates:   business.StateOnly("CA", money.MustParse("0.0725")),
	})
	require.NoError(t, err)

	// Rebate and trade give no credit; doc fee capped at 85.
	assert.Equal(t, "30085.00", breakdown.TaxableAmount.StringFixed())
	assert.Equal(t, "2181.16", breakdown.TotalTax.StringFixed())
	assert.True(t, breakdown.TradeCreditApplied.IsZero())
	assert.False(t, breakdown.RebateReducedBase)
}

func TestTaxService_CalculateTax_CappedTradeCredit(t *testing.T) {
	service := services.NewTaxService()

	ruleSet := flatRuleSet("MI", "0.06")
	ruleSet.TradeInPolicy = business.TradeInCapped
	ruleSet.TradeInCap = money.MustParse("10000")

	facts := retailFacts()
	facts.TradeAllowance = money.MustParse("15000")

	breakdown, err := service.CalculateTax(params.TaxCalculationParams{
		Facts:   facts,
		RuleSet: ruleSet,
		Rates:   business.StateOnly("MI", money.MustParse("0.06")),
	})
	require.NoError(t, err)

	assert.Equal(t, "10000.00", breakdown.TradeCreditApplied.StringFixed())
	assert.Equal(t, "20000.00", breakdown.TaxableAmount.StringFixed())
}

func TestTaxService_CalculateTax_FloorsNegativeBaseAtZero(t *testing.T) {
	service := services.NewTaxService()

	facts := retailFacts()
	facts.VehiclePrice = money.MustParse("10000")
	facts.TradeAllowance = money.MustParse("15000")

	breakdown, err := service.CalculateTax(params.TaxCalculationParams{
		Facts:   facts,
		RuleSet: flatRuleSet("IN", "0.06"),
		Rates:   business.StateOnly("IN", money.MustParse("0.06")),
	})
	require.NoError(t, err)

	assert.Equal(t, "0.00", breakdown.TaxableAmount.StringFixed())
	assert.Equal(t, "0.00", breakdown.TotalTax.StringFixed())
	assert.True(t, breakdown.FlooredAtZero)
	assert.NotEmpty(t, breakdown.Warnings)
}

func TestTaxService_CalculateTax_TradePayoffNeverReducesBase(t *testing.T) {
	service := services.NewTaxService()

	facts := retailFacts()
	facts.TradeAllowance = money.MustParse("5000")
	facts.TradePayoff = money.MustParse("8000")

	breakdown, err := service.CalculateTax(params.TaxCalculationParams{
		Facts:   facts,
		RuleSet: flatRuleSet("IN", "0.06"),
		Rates:   business.StateOnly("IN", money.MustParse("0.06")),
	})
	require.NoError(t, err)

	// Credit is the full allowance regardless of payoff.
	assert.Equal(t, "5000.00", breakdown.TradeCreditApplied.StringFixed())
	assert.Equal(t, "25000.00", breakdown.TaxableAmount.StringFixed())
}

func TestTaxService_CalculateTax_ItemizedStatePlusLocal(t *testing.T) {
	service := services.NewTaxService()

	ruleSet := flatRuleSet("NY", "0.04")
	ruleSet.Scheme = business.SchemeStatePlusLocal

	facts := retailFacts()
	facts.VehiclePrice = money.MustParse("20000")

	breakdown, err := service.CalculateTax(params.TaxCalculationParams{
		Facts:   facts,
		RuleSet: ruleSet,
		Rates: business.JurisdictionRates{
			State:               "NY",
			Zip:                 "10001",
			CountyName:          "New York County",
			CityName:            "New York City",
			StateRate:           money.MustParse("0.04"),
			CountyRate:          money.MustParse("0.02"),
			CityRate:            money.MustParse("0.015"),
			SpecialDistrictRate: money.MustParse("0.005"),
		},
	})
	require.NoError(t, err)

	require.Len(t, breakdown.Lines, 4)
	assert.Equal(t, "800.00", breakdown.Lines[0].TaxAmount.StringFixed())
	assert.Equal(t, "400.00", breakdown.Lines[1].TaxAmount.StringFixed())
	assert.Equal(t, "300.00", breakdown.Lines[2].TaxAmount.StringFixed())
	assert.Equal(t, "100.00", breakdown.Lines[3].TaxAmount.StringFixed())
	assert.Equal(t, "1600.00", breakdown.TotalTax.StringFixed())
	assertLinesReconcile(t, breakdown)
}

func TestTaxService_CalculateTax_ProductTaxability(t *testing.T) {
	service := services.NewTaxService()

	facts := retailFacts()
	facts.Products = []business.FIProduct{
		{Name: "Extended Warranty", Category: business.ProductWarranty, Price: money.MustParse("2000")},
		{Name: "GAP Coverage", Category: business.ProductGAP, Price: money.MustParse("800")},
		{Name: "VIN Etching", Category: business.ProductCategory("VIN_ETCH"), Price: money.MustParse("199")},
	}

	breakdown, err := service.CalculateTax(params.TaxCalculationParams{
		Facts:   facts,
		RuleSet: flatRuleSet("IN", "0.06"),
		Rates:   business.StateOnly("IN", money.MustParse("0.06")),
	})
	require.NoError(t, err)

	// Warranty taxed, GAP exempt, unknown category taxed fail-safe.
	assert.Equal(t, "32199.00", breakdown.TaxableAmount.StringFixed())
}

func TestTaxService_CalculateTax_ReciprocityCredit(t *testing.T) {
	service := services.NewTaxService()

	ruleSet := flatRuleSet("OH", "0.0575")
	ruleSet.Reciprocity = true

	facts := retailFacts()
	facts.VehiclePrice = money.MustParse("20000")
	facts.BuyerState = "MI"
	facts.HomeStateTaxPaid = money.MustParse("300")

	breakdown, err := service.CalculateTax(params.TaxCalculationParams{
		Facts:   facts,
		RuleSet: ruleSet,
		Rates:   business.StateOnly("OH", money.MustParse("0.0575")),
	})
	require.NoError(t, err)

	// 20000 * 0.0575 = 1150, less 300 already paid to MI.
	assert.Equal(t, "850.00", breakdown.TotalTax.StringFixed())
	require.Len(t, breakdown.Lines, 2)
	assert.Equal(t, "reciprocity_credit", breakdown.Lines[1].Component)
	assert.Equal(t, "-300.00", breakdown.Lines[1].TaxAmount.StringFixed())
	assertLinesReconcile(t, breakdown)
}

func TestTaxService_CalculateTax_RejectsBadInputs(t *testing.T) {
	service := services.NewTaxService()

	_, err := service.CalculateTax(params.TaxCalculationParams{RuleSet: flatRuleSet("IN", "0.06")})
	var validationErr *business.ValidationError
	assert.True(t, errors.As(err, &validationErr))

	facts := retailFacts()
	facts.VehiclePrice = money.MustParse("-1")
	_, err = service.CalculateTax(params.TaxCalculationParams{
		Facts:   facts,
		RuleSet: flatRuleSet("IN", "0.06"),
	})
	assert.True(t, errors.As(err, &validationErr))
}

func TestTaxService_CalculateTax_UnknownSchemeFails(t *testing.T) {
	service := services.NewTaxService()

	ruleSet := flatRuleSet("IN", "0.06")
	ruleSet.Scheme = business.TaxScheme("BARTER")

	_, err := service.CalculateTax(params.TaxCalculationParams{
		Facts:   retailFacts(),
		RuleSet: ruleSet,
		Rates:   business.StateOnly("IN", money.MustParse("0.06")),
	})
	assert.ErrorContains(t, err, "unsupported tax scheme")
}

func TestTaxService_CalculateLeaseTax_PaymentMethod(t *testing.T) {
	service := services.NewTaxService()

	facts := retailFacts()
	facts.DealType = business.DealTypeLease

	breakdown, err := service.CalculateLeaseTax(params.LeaseTaxParams{
		Facts:   facts,
		RuleSet: flatRuleSet("CA", "0.0725"),
		Rates: business.JurisdictionRates{
			State:      "CA",
			StateRate:  money.MustParse("0.0725"),
			CountyRate: money.MustParse("0.01"),
		},
		GrossCapCost:  money.MustParse("43795"),
		CapReductions: money.MustParse("3000"),
	})
	require.NoError(t, err)

	assert.Equal(t, "0.0825", breakdown.PaymentTaxRate.String())
	assert.True(t, breakdown.UpfrontTax.IsZero())
	assert.Empty(t, breakdown.Lines)
}

func TestTaxService_CalculateLeaseTax_CapCostMethod(t *testing.T) {
	service := services.NewTaxService()

	ruleSet := flatRuleSet("TX", "0.0625")
	ruleSet.LeaseTaxMethod = business.LeaseTaxOnCapCost

	facts := retailFacts()
	facts.DealType = business.DealTypeLease
	facts.TradeAllowance = money.MustParse("5000")

	breakdown, err := service.CalculateLeaseTax(params.LeaseTaxParams{
		Facts:         facts,
		RuleSet:       ruleSet,
		Rates:         business.StateOnly("TX", money.MustParse("0.0625")),
		GrossCapCost:  money.MustParse("43795"),
		CapReductions: money.MustParse("8000"),
	})
	require.NoError(t, err)

	// Cap-cost base takes the trade credit: 43795 - 5000 = 38795.
	assert.Equal(t, "38795.00", breakdown.TaxableAmount.StringFixed())
	assert.Equal(t, "2424.69", breakdown.UpfrontTax.StringFixed())
	assert.Equal(t, breakdown.TotalTax.StringFixed(), breakdown.UpfrontTax.StringFixed())
	assert.True(t, breakdown.PaymentTaxRate.IsZero())
}

func TestTaxService_CalculateLeaseTax_CapReductionMethod(t *testing.T) {
	service := services.NewTaxService()

	ruleSet := flatRuleSet("GA", "0.07")
	ruleSet.Scheme = business.SchemeTAVT
	ruleSet.LeaseTaxMethod = business.LeaseTaxOnCapReduction

	facts := retailFacts()
	facts.DealType = business.DealTypeLease

	breakdown, err := service.CalculateLeaseTax(params.LeaseTaxParams{
		Facts:         facts,
		RuleSet:       ruleSet,
		Rates:         business.StateOnly("GA", money.MustParse("0.07")),
		GrossCapCost:  money.MustParse("43795"),
		CapReductions: money.MustParse("3000"),
	})
	require.NoError(t, err)

	assert.Equal(t, "3000.00", breakdown.TaxableAmount.StringFixed())
	assert.Equal(t, "210.00", breakdown.UpfrontTax.StringFixed())
}

func TestTaxService_CalculateLeaseTax_UnknownMethodFails(t *testing.T) {
	service := services.NewTaxService()

	ruleSet := flatRuleSet("IN", "0.06")
	ruleSet.LeaseTaxMethod = business.LeaseTaxMethod("TAX_ON_VIBES")

	_, err := service.CalculateLeaseTax(params.LeaseTaxParams{
		Facts:   retailFacts(),
		RuleSet: ruleSet,
		Rates:   business.StateOnly("IN", money.MustParse("0.06")),
	})
	assert.ErrorContains(t, err, "unsupported lease tax method")
}
