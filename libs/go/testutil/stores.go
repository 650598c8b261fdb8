// Package testutil provides in-memory store implementations for unit tests.
package testutil

import (
	"context"
	"sync"

	"github.com/dealdesk/dealdesk-api/libs/go/types/business"
	"github.com/google/uuid"
)

// InMemoryDealStore holds deal facts and saved calculations behind a mutex
// with a per-deal version counter for optimistic-locking tests.
type InMemoryDealStore struct {
	mu           sync.Mutex
	facts        map[uuid.UUID]*business.DealFacts
	versions     map[uuid.UUID]int64
	calculations map[uuid.UUID]*business.CalculationResult
	SaveCalls    int
}

// NewInMemoryDealStore creates an empty deal store.
func NewInMemoryDealStore() *InMemoryDealStore {
	return &InMemoryDealStore{
		facts:        make(map[uuid.UUID]*business.DealFacts),
		versions:     make(map[uuid.UUID]int64),
		calculations: make(map[uuid.UUID]*business.CalculationResult),
	}
}

// PutDeal seeds facts for a deal at version 1.
func (s *InMemoryDealStore) PutDeal(facts *business.DealFacts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts[facts.DealID] = facts
	s.versions[facts.DealID] = 1
}

// BumpVersion simulates a concurrent edit to the deal.
func (s *InMemoryDealStore) BumpVersion(dealID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[dealID]++
}

func (s *InMemoryDealStore) GetDealFacts(ctx context.Context, dealID uuid.UUID) (*business.DealFacts, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	facts, ok := s.facts[dealID]
	if !ok {
		return nil, 0, business.ErrDealNotFound
	}
	copied := *facts
	return &copied, s.versions[dealID], nil
}

func (s *InMemoryDealStore) SaveCalculation(ctx context.Context, dealID uuid.UUID, version int64, result *business.CalculationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SaveCalls++
	if s.versions[dealID] != version {
		return business.ErrVersionConflict
	}
	s.calculations[dealID] = result
	return nil
}

// InMemoryAuditStore appends audit records to a per-deal slice. FailAppends
// makes every append fail with the given error, for audit-isolation tests.
type InMemoryAuditStore struct {
	mu          sync.Mutex
	records     map[uuid.UUID][]business.AuditRecord
	FailAppends error
}

// NewInMemoryAuditStore creates an empty audit store.
func NewInMemoryAuditStore() *InMemoryAuditStore {
	return &InMemoryAuditStore{records: make(map[uuid.UUID][]business.AuditRecord)}
}

func (s *InMemoryAuditStore) AppendAuditRecord(ctx context.Context, record *business.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAppends != nil {
		return s.FailAppends
	}
	s.records[record.DealID] = append(s.records[record.DealID], *record)
	return nil
}

func (s *InMemoryAuditStore) GetLatestAuditRecord(ctx context.Context, dealID uuid.UUID) (*business.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.records[dealID]
	if len(records) == 0 {
		return nil, nil
	}
	latest := records[len(records)-1]
	return &latest, nil
}

func (s *InMemoryAuditStore) ListAuditRecords(ctx context.Context, dealID uuid.UUID) ([]business.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.records[dealID]
	// Newest first.
	out := make([]business.AuditRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		out = append(out, records[i])
	}
	return out, nil
}

// RecordCount returns how many audit records a deal has accumulated.
func (s *InMemoryAuditStore) RecordCount(dealID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records[dealID])
}
