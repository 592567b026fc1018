package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Insert stores a new PENDING work order. Inserting an existing work ID
// returns ErrDuplicate.
func (s *Store) Insert(ctx context.Context, order *WorkOrder) error {
	if err := order.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	order.Status = StatusPending
	order.Durations = order.Durations.Normalized()
	order.ResultURL = ""
	order.Error = ""
	order.CreatedAt = now
	order.UpdatedAt = now
	order.StartedAt = nil
	order.FinishedAt = nil

	args := []any{
		order.WorkID,
		order.SourcePath,
		order.DisplayName,
		order.ConfidenceThreshold,
		order.MosaicStrength,
	}
	for _, class := range Classes {
		args = append(args, order.Durations[class])
	}
	args = append(args, int(order.Status), formatTime(now), formatTime(now))

	_, err := s.execWithRetry(ctx,
		`INSERT INTO work_orders (
            work_id, source_path, display_name, confidence_threshold, mosaic_strength,
            knife, gun, cigarette, middle_finger, credit_card, receipt, license_plate,
            status, created_at, updated_at
        ) VALUES (`+makePlaceholders(len(args))+`)`,
		args...,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, order.WorkID)
		}
		return fmt.Errorf("insert work order: %w", err)
	}
	return nil
}

// Delete removes a PENDING work order. It backs out an ingestion whose upload
// never reached its source path; orders in any other status are left alone
// and reported as ErrNotFound.
func (s *Store) Delete(ctx context.Context, workID string) error {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM work_orders WHERE work_id = ? AND status = ?`,
		workID, int(StatusPending),
	)
	if err != nil {
		return fmt.Errorf("delete work order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete work order: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, workID)
	}
	return nil
}

// Get fetches a work order by ID, returning ErrNotFound when absent.
func (s *Store) Get(ctx context.Context, workID string) (*WorkOrder, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+orderColumns+` FROM work_orders WHERE work_id = ?`, workID)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, workID)
	}
	if err != nil {
		return nil, fmt.Errorf("get work order: %w", err)
	}
	return order, nil
}

// MarkRunning moves a PENDING order to RUNNING and stamps started_at.
func (s *Store) MarkRunning(ctx context.Context, workID string) error {
	now := formatTime(time.Now())
	return s.transition(ctx, workID, StatusPending, StatusRunning,
		`started_at = ?, updated_at = ?`, now, now)
}

// MarkDone moves a RUNNING order to DONE with its result URL and per-class
// durations. Durations are rounded to two decimals.
func (s *Store) MarkDone(ctx context.Context, workID, resultURL string, durations Durations) error {
	now := formatTime(time.Now())
	normalized := durations.Normalized()
	sets := make([]string, 0, len(Classes)+3)
	args := make([]any, 0, len(Classes)+3)
	for _, class := range Classes {
		sets = append(sets, class+" = ?")
		args = append(args, normalized[class])
	}
	sets = append(sets, "result_url = ?", "finished_at = ?", "updated_at = ?")
	args = append(args, nullableString(resultURL), now, now)
	return s.transition(ctx, workID, StatusRunning, StatusDone, strings.Join(sets, ", "), args...)
}

// MarkFailed moves a RUNNING order to FAILED with a non-empty message.
func (s *Store) MarkFailed(ctx context.Context, workID, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown error"
	}
	now := formatTime(time.Now())
	return s.transition(ctx, workID, StatusRunning, StatusFailed,
		`error_message = ?, finished_at = ?, updated_at = ?`, message, now, now)
}

func (s *Store) transition(ctx context.Context, workID string, from, to Status, sets string, args ...any) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	query := `UPDATE work_orders SET status = ?, ` + sets + ` WHERE work_id = ? AND status = ?`
	all := append([]any{int(to)}, args...)
	all = append(all, workID, int(from))

	res, err := s.execWithRetry(ctx, query, all...)
	if err != nil {
		return fmt.Errorf("update work order %s: %w", workID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}
	current, err := s.Get(ctx, workID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %s, cannot move to %s", ErrInvalidTransition, workID, current.Status, to)
}

// PendingIDs returns the IDs of PENDING orders sorted by their numeric digits.
func (s *Store) PendingIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT work_id FROM work_orders WHERE status = ?`, int(StatusPending))
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending: %w", err)
	}
	SortIDsNumeric(ids)
	return ids, nil
}

// List returns orders filtered by status (all when none given), ordered by
// creation time.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*WorkOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM work_orders`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, st := range statuses {
			args = append(args, int(st))
		}
	}
	query += ` ORDER BY created_at, work_id`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list work orders: %w", err)
	}
	defer rows.Close()

	var orders []*WorkOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan work order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// FailInterrupted marks every RUNNING order FAILED with InterruptedReason.
// Only a freshly started daemon may call this: no worker can own a RUNNING
// order at that point.
func (s *Store) FailInterrupted(ctx context.Context) ([]string, error) {
	running, err := s.List(ctx, StatusRunning)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(running))
	for _, order := range running {
		if err := s.MarkFailed(ctx, order.WorkID, InterruptedReason); err != nil {
			return ids, err
		}
		ids = append(ids, order.WorkID)
	}
	return ids, nil
}

// Stats counts orders per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM work_orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status, count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}
