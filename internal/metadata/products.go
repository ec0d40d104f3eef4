package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ProductRecord loads a record by ID; a missing record returns nil, nil.
func (s *Store) ProductRecord(ctx context.Context, id string) (*ProductRecord, error) {
	ctx = ensureContext(ctx)
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT record_json FROM product_records WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load product record %q: %w", id, err)
	}
	var record ProductRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, fmt.Errorf("decode product record %q: %w", id, err)
	}
	return &record, nil
}

// ProductRecordExists reports whether a record with id is stored.
func (s *Store) ProductRecordExists(ctx context.Context, id string) (bool, error) {
	ctx = ensureContext(ctx)
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM product_records WHERE id = ?`, id).Scan(&count); err != nil {
		return false, fmt.Errorf("check product record %q: %w", id, err)
	}
	return count > 0, nil
}

// ProductRecords lists the records of one definition, or all records when
// definitionID is empty, ordered by ID.
func (s *Store) ProductRecords(ctx context.Context, definitionID string) ([]ProductRecord, error) {
	ctx = ensureContext(ctx)
	query := `SELECT record_json FROM product_records`
	var args []any
	if definitionID != "" {
		query += ` WHERE definition_id = ?`
		args = append(args, definitionID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list product records: %w", err)
	}
	defer rows.Close()

	var records []ProductRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan product record: %w", err)
		}
		var record ProductRecord
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			return nil, fmt.Errorf("decode product record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product records: %w", err)
	}
	return records, nil
}

// SaveProductRecord inserts or replaces a record. Status and LastModified
// default to VALID and now.
func (s *Store) SaveProductRecord(ctx context.Context, record ProductRecord) error {
	if strings.TrimSpace(record.ID) == "" {
		return errors.New("product record id is required")
	}
	if record.Status == "" {
		record.Status = StatusValid
	}
	if record.Type == "" {
		record.Type = RecordType
	}
	if record.LastModified.IsZero() {
		record.LastModified = time.Now().UTC()
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode product record %q: %w", record.ID, err)
	}
	_, err = s.exec(ctx,
		`INSERT INTO product_records (id, definition_id, kind, region_id, status, last_modified, record_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET definition_id = excluded.definition_id, kind = excluded.kind,
		 region_id = excluded.region_id, status = excluded.status, last_modified = excluded.last_modified,
		 record_json = excluded.record_json`,
		record.ID, record.DefinitionID, record.Kind, nullableString(record.Region.ID),
		record.Status, formatTime(record.LastModified), string(payload),
	)
	if err != nil {
		return fmt.Errorf("save product record %q: %w", record.ID, err)
	}
	return nil
}

// DeleteProductRecord removes a record. Deleting a missing ID is not an error.
func (s *Store) DeleteProductRecord(ctx context.Context, id string) error {
	if _, err := s.exec(ctx, `DELETE FROM product_records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete product record %q: %w", id, err)
	}
	return nil
}
