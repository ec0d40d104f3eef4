package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ncanimate/internal/services"
)

// Task loads a task by ID. A missing task returns an error wrapping
// services.ErrNotFound.
func (s *Store) Task(ctx context.Context, id string) (*Task, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, type, product_id, region_id, created_at FROM tasks WHERE id = ?`, id)

	var (
		task      Task
		productID sql.NullString
		regionID  sql.NullString
		created   sql.NullString
	)
	if err := row.Scan(&task.ID, &task.Type, &productID, &regionID, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %q: %w", id, services.ErrNotFound)
		}
		return nil, fmt.Errorf("load task %q: %w", id, err)
	}
	task.ProductID = productID.String
	task.RegionID = regionID.String
	createdAt, err := parseTime(created)
	if err != nil {
		return nil, fmt.Errorf("task %q created_at: %w", id, err)
	}
	task.CreatedAt = createdAt
	return &task, nil
}

// SaveTask inserts or replaces a task.
func (s *Store) SaveTask(ctx context.Context, task Task) error {
	if strings.TrimSpace(task.ID) == "" {
		return errors.New("task id is required")
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	_, err := s.exec(ctx,
		`INSERT INTO tasks (id, type, product_id, region_id, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET type = excluded.type, product_id = excluded.product_id,
		 region_id = excluded.region_id, created_at = excluded.created_at`,
		task.ID, task.Type, nullableString(task.ProductID), nullableString(task.RegionID), formatTime(task.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save task %q: %w", task.ID, err)
	}
	return nil
}
