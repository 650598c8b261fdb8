package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dealdesk/dealdesk-api/libs/go/interfaces"
	"github.com/dealdesk/dealdesk-api/libs/go/money"
	"github.com/dealdesk/dealdesk-api/libs/go/services"
	"github.com/dealdesk/dealdesk-api/libs/go/testutil"
	"github.com/dealdesk/dealdesk-api/libs/go/types/api/params"
	"github.com/dealdesk/dealdesk-api/libs/go/types/business"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type valuationFixture struct {
	service *services.ValuationService
	deals   *testutil.InMemoryDealStore
	audit   *testutil.InMemoryAuditStore
}

func newValuationFixture(dealStore interfaces.DealStore, auditStore *testutil.InMemoryAuditStore) *valuationFixture {
	deals, _ := dealStore.(*testutil.InMemoryDealStore)
	return &valuationFixture{
		service: services.NewValuationService(
			services.NewJurisdictionService(nil, services.NewCatalogRuleStore()),
			services.NewTaxService(),
			services.NewFinanceService(),
			services.NewLeaseService(),
			dealStore,
			auditStore,
			nil,
		),
		deals: deals,
		audit: auditStore,
	}
}

func retailDealFacts() *business.DealFacts {
	return &business.DealFacts{
		DealID:            uuid.New(),
		DealType:          business.DealTypeRetail,
		VehicleCondition:  business.VehicleUsed,
		VehiclePrice:      money.MustParse("35000"),
		TradeAllowance:    money.MustParse("5000"),
		DownPayment:       money.MustParse("5000"),
		APR:               money.MustParse("4.99"),
		TermMonths:        60,
		RegistrationState: "TX",
		AsOfDate:          testAsOf,
		Fees: []business.Fee{
			{Name: "Doc Fee", Kind: business.FeeDoc, Amount: money.MustParse("150"), Taxable: true},
		},
	}
}

func TestValuationService_Calculate_RetailPipeline(t *testing.T) {
	f := newValuationFixture(testutil.NewInMemoryDealStore(), testutil.NewInMemoryAuditStore())

	result, taxCtx, err := f.service.Calculate(context.Background(), retailDealFacts())
	require.NoError(t, err)

	assert.Equal(t, "TX", taxCtx.PrimaryState)
	require.NotNil(t, result.Tax)
	require.NotNil(t, result.Finance)
	assert.Nil(t, result.Lease)
	// 35000 - 5000 trade + 150 doc fee, at 6.25%.
	assert.Equal(t, "30150.00", result.Tax.TaxableAmount.StringFixed())
	assert.Equal(t, "1884.38", result.Tax.TotalTax.StringFixed())
	assert.True(t, result.Finance.AmountFinanced.IsPositive())
}

func TestValuationService_Calculate_LeasePipeline(t *testing.T) {
	f := newValuationFixture(testutil.NewInMemoryDealStore(), testutil.NewInMemoryAuditStore())

	facts := leaseFacts()
	facts.RegistrationState = "CA"
	facts.AsOfDate = testAsOf

	result, taxCtx, err := f.service.Calculate(context.Background(), facts)
	require.NoError(t, err)

	assert.Equal(t, "CA", taxCtx.PrimaryState)
	require.NotNil(t, result.Lease)
	assert.Nil(t, result.Finance)
	// CA taxes the payment; the state-only fallback rate is 7.25%.
	assert.Equal(t, "0.0725", result.Tax.PaymentTaxRate.String())
	assert.True(t, result.Lease.MonthlyTax.IsPositive())
}

func TestValuationService_Calculate_Determinism(t *testing.T) {
	f := newValuationFixture(testutil.NewInMemoryDealStore(), testutil.NewInMemoryAuditStore())
	ctx := context.Background()

	first, _, err := f.service.Calculate(ctx, retailDealFacts())
	require.NoError(t, err)
	second, _, err := f.service.Calculate(ctx, retailDealFacts())
	require.NoError(t, err)

	assert.Equal(t, first.Tax.TotalTax.String(), second.Tax.TotalTax.String())
	assert.Equal(t, first.Finance.MonthlyPayment.String(), second.Finance.MonthlyPayment.String())
	assert.Equal(t, first.Finance.TotalInterest.String(), second.Finance.TotalInterest.String())
}

func TestValuationService_Calculate_UnknownDealType(t *testing.T) {
	f := newValuationFixture(testutil.NewInMemoryDealStore(), testutil.NewInMemoryAuditStore())

	facts := retailDealFacts()
	facts.DealType = business.DealType("BALLOON")

	_, _, err := f.service.Calculate(context.Background(), facts)
	var validationErr *business.ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

func TestValuationService_RecalculateDeal_AppendsAuditRecord(t *testing.T) {
	f := newValuationFixture(testutil.NewInMemoryDealStore(), testutil.NewInMemoryAuditStore())
	ctx := context.Background()

	facts := retailDealFacts()
	f.deals.PutDeal(facts)

	result, err := f.service.RecalculateDeal(ctx, params.RecalculateDealParams{DealID: facts.DealID})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, 1, f.audit.RecordCount(facts.DealID))

	records, err := f.service.AuditTrail(ctx, facts.DealID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, result.CalculationID, records[0].CalculationID)
	assert.Equal(t, "TX", records[0].RuleSetState)
	assert.NotEmpty(t, records[0].FactsDigest)
}

func TestValuationService_RecalculateDeal_IdempotentOnUnchangedFacts(t *testing.T) {
	f := newValuationFixture(testutil.NewInMemoryDealStore(), testutil.NewInMemoryAuditStore())
	ctx := context.Background()

	facts := retailDealFacts()
	f.deals.PutDeal(facts)

	first, err := f.service.RecalculateDeal(ctx, params.RecalculateDealParams{DealID: facts.DealID})
	require.NoError(t, err)
	second, err := f.service.RecalculateDeal(ctx, params.RecalculateDealParams{DealID: facts.DealID})
	require.NoError(t, err)

	// Same stored result, no duplicate audit entry, no second save.
	assert.Equal(t, first.CalculationID, second.CalculationID)
	assert.Equal(t, first.Tax.TotalTax.String(), second.Tax.TotalTax.String())
	assert.Equal(t, 1, f.audit.RecordCount(facts.DealID))
	assert.Equal(t, 1, f.deals.SaveCalls)
}

func TestValuationService_RecalculateDeal_NewAuditRecordWhenFactsChange(t *testing.T) {
	f := newValuationFixture(testutil.NewInMemoryDealStore(), testutil.NewInMemoryAuditStore())
	ctx := context.Background()

	facts := retailDealFacts()
	f.deals.PutDeal(facts)

	_, err := f.service.RecalculateDeal(ctx, params.RecalculateDealParams{DealID: facts.DealID})
	require.NoError(t, err)

	changed := *facts
	changed.VehiclePrice = money.MustParse("36000")
	f.deals.PutDeal(&changed)

	_, err = f.service.RecalculateDeal(ctx, params.RecalculateDealParams{DealID: facts.DealID})
	require.NoError(t, err)

	assert.Equal(t, 2, f.audit.RecordCount(facts.DealID))
}

func TestValuationService_RecalculateDeal_AuditFailureDoesNotFailResult(t *testing.T) {
	auditStore := testutil.NewInMemoryAuditStore()
	auditStore.FailAppends = errors.New("audit backend down")
	f := newValuationFixture(testutil.NewInMemoryDealStore(), auditStore)

	facts := retailDealFacts()
	f.deals.PutDeal(facts)

	result, err := f.service.RecalculateDeal(context.Background(), params.RecalculateDealParams{DealID: facts.DealID})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 0, auditStore.RecordCount(facts.DealID))
}

func TestValuationService_RecalculateDeal_DealNotFound(t *testing.T) {
	f := newValuationFixture(testutil.NewInMemoryDealStore(), testutil.NewInMemoryAuditStore())

	_, err := f.service.RecalculateDeal(context.Background(), params.RecalculateDealParams{DealID: uuid.New()})
	assert.True(t, errors.Is(err, business.ErrDealNotFound))
}

// staleVersionDealStore returns facts at a version behind the store's truth,
// simulating an edit landing between read and save.
type staleVersionDealStore struct {
	*testutil.InMemoryDealStore
}

func (s *staleVersionDealStore) GetDealFacts(ctx context.Context, dealID uuid.UUID) (*business.DealFacts, int64, error) {
	facts, version, err := s.InMemoryDealStore.GetDealFacts(ctx, dealID)
	if err != nil {
		return nil, 0, err
	}
	return facts, version - 1, nil
}

func TestValuationService_RecalculateDeal_VersionConflict(t *testing.T) {
	inner := testutil.NewInMemoryDealStore()
	f := newValuationFixture(&staleVersionDealStore{inner}, testutil.NewInMemoryAuditStore())

	facts := retailDealFacts()
	inner.PutDeal(facts)

	_, err := f.service.RecalculateDeal(context.Background(), params.RecalculateDealParams{DealID: facts.DealID})
	assert.True(t, errors.Is(err, business.ErrVersionConflict))
}
