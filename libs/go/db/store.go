// Package db implements the Postgres-backed rule, deal, and audit stores.
package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dealdesk/dealdesk-api/libs/go/types/business"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Store wraps a pgx pool and implements the engine's persistence interfaces:
// versioned state rules, deal facts with optimistic locking, and the
// append-only audit trail.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a store over an existing pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool against the given database URL.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// GetStateRuleSet returns the newest rule set for the state whose effective
// date is at or before asOf. Rule-set rows are immutable; updates insert a
// new version.
func (s *Store) GetStateRuleSet(ctx context.Context, stateCode string, asOf time.Time) (*business.StateRuleSet, error) {
	const query = `
		SELECT rule_set
		FROM state_rule_sets
		WHERE state = $1 AND effective_date <= $2
		ORDER BY effective_date DESC, version DESC
		LIMIT 1`

	var payload []byte
	err := s.pool.QueryRow(ctx, query, stateCode, asOf).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &business.UnsupportedStateError{State: stateCode}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load rule set for state %s", stateCode)
	}

	var ruleSet business.StateRuleSet
	if err := json.Unmarshal(payload, &ruleSet); err != nil {
		return nil, errors.Wrapf(err, "failed to decode rule set for state %s", stateCode)
	}
	return &ruleSet, nil
}

// GetDealFacts returns a deal's current facts and its optimistic-lock
// version.
func (s *Store) GetDealFacts(ctx context.Context, dealID uuid.UUID) (*business.DealFacts, int64, error) {
	const query = `SELECT facts, version FROM deals WHERE id = $1`

	var payload []byte
	var version int64
	err := s.pool.QueryRow(ctx, query, dealID).Scan(&payload, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, business.ErrDealNotFound
	}
	if err != nil {
		return nil, 0, errors.Wrapf(err, "failed to load deal %s", dealID)
	}

	var facts business.DealFacts
	if err := json.Unmarshal(payload, &facts); err != nil {
		return nil, 0, errors.Wrapf(err, "failed to decode facts for deal %s", dealID)
	}
	return &facts, version, nil
}

// SaveCalculation attaches a calculation result to the deal, guarded by the
// version read alongside the facts. A zero-row update means another writer
// moved the version first.
func (s *Store) SaveCalculation(ctx context.Context, dealID uuid.UUID, version int64, result *business.CalculationResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "failed to encode calculation result")
	}

	const query = `
		UPDATE deals
		SET latest_calculation = $1, version = version + 1, updated_at = now()
		WHERE id = $2 AND version = $3`

	tag, err := s.pool.Exec(ctx, query, payload, dealID, version)
	if err != nil {
		return errors.Wrapf(err, "failed to save calculation for deal %s", dealID)
	}
	if tag.RowsAffected() == 0 {
		return business.ErrVersionConflict
	}
	return nil
}

// AppendAuditRecord inserts one audit row. Rows are never updated or
// deleted.
func (s *Store) AppendAuditRecord(ctx context.Context, record *business.AuditRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "failed to encode audit record")
	}

	const query = `
		INSERT INTO audit_records
			(calculation_id, deal_id, deal_version, rule_set_state, rule_set_version, facts_digest, record, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = s.pool.Exec(ctx, query,
		record.CalculationID, record.DealID, record.DealVersion,
		record.RuleSetState, record.RuleSetVersion, record.FactsDigest,
		payload, record.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "failed to append audit record for deal %s", record.DealID)
	}
	return nil
}

// GetLatestAuditRecord returns the newest audit record for the deal, or nil
// when the deal has none.
func (s *Store) GetLatestAuditRecord(ctx context.Context, dealID uuid.UUID) (*business.AuditRecord, error) {
	const query = `
		SELECT record
		FROM audit_records
		WHERE deal_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var payload []byte
	err := s.pool.QueryRow(ctx, query, dealID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load latest audit record for deal %s", dealID)
	}

	var record business.AuditRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, errors.Wrapf(err, "failed to decode audit record for deal %s", dealID)
	}
	return &record, nil
}

// ListAuditRecords returns every audit record for the deal, newest first.
func (s *Store) ListAuditRecords(ctx context.Context, dealID uuid.UUID) ([]business.AuditRecord, error) {
	const query = `
		SELECT record
		FROM audit_records
		WHERE deal_id = $1
		ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, dealID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list audit records for deal %s", dealID)
	}
	defer rows.Close()

	var records []business.AuditRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrap(err, "failed to scan audit record")
		}
		var record business.AuditRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, errors.Wrap(err, "failed to decode audit record")
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read audit records")
	}
	return records, nil
}
