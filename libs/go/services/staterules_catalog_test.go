package services_test

import (
	"context"
	"testing"

	"github.com/dealdesk/dealdesk-api/libs/go/money"
	"github.com/dealdesk/dealdesk-api/libs/go/services"
	"github.com/dealdesk/dealdesk-api/libs/go/types/api/params"
	"github.com/dealdesk/dealdesk-api/libs/go/types/business"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultStateRules_CoversAllStates(t *testing.T) {
	rules := services.DefaultStateRules()
	assert.Len(t, rules, 51)

	for state, rule := range rules {
		assert.Equal(t, state, rule.State)
		assert.NotEmpty(t, rule.Version, "state %s missing version", state)
		assert.False(t, rule.StateRate.IsNegative(), "state %s has negative rate", state)
		assert.NotEmpty(t, string(rule.Scheme), "state %s missing scheme", state)
		assert.NotEmpty(t, string(rule.LeaseTaxMethod), "state %s missing lease tax method", state)
	}
}

func TestDefaultStateRules_ZeroTaxStates(t *testing.T) {
	service := services.NewTaxService()
	rules := services.DefaultStateRules()

	for _, state := range []string{"AK", "DE", "MT", "NH"} {
		rule := rules[state]
		facts := retailFacts()

		breakdown, err := service.CalculateTax(params.TaxCalculationParams{
			Facts:   facts,
			RuleSet: &rule,
			Rates:   business.StateOnly(state, rule.StateRate),
		})
		require.NoError(t, err)
		assert.Equal(t, "0.00", breakdown.TotalTax.StringFixed(), "state %s", state)
	}
}

func TestDefaultStateRules_GeorgiaTAVT(t *testing.T) {
	rules := services.DefaultStateRules()
	ga := rules["GA"]

	assert.Equal(t, business.SchemeTAVT, ga.Scheme)
	assert.Equal(t, business.LeaseTaxOnCapReduction, ga.LeaseTaxMethod)
	assert.Equal(t, "0.07", ga.StateRate.String())
}

func TestCatalogRuleStore_UnknownState(t *testing.T) {
	store := services.NewCatalogRuleStore()

	_, err := store.GetStateRuleSet(context.Background(), "PR", testAsOf)
	var unsupportedErr *business.UnsupportedStateError
	assert.ErrorAs(t, err, &unsupportedErr)
}

func TestCatalogRuleStore_CaliforniaOverrides(t *testing.T) {
	store := services.NewCatalogRuleStore()

	ca, err := store.GetStateRuleSet(context.Background(), "CA", testAsOf)
	require.NoError(t, err)

	assert.Equal(t, business.TradeInNone, ca.TradeInPolicy)
	assert.Equal(t, "85.00", ca.DocFeeCap.StringFixed())
	assert.False(t, ca.ManufacturerRebateReducesBase)
	assert.True(t, money.MustParse("0.0725").Equal(ca.StateRate))
}
