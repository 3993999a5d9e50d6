package schedule

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for schedule persistence.
type Repository interface {
	// GetByID retrieves a schedule by org and id.
	// Returns ErrScheduleNotFound if the schedule does not exist.
	GetByID(ctx context.Context, orgID, id string) (*Schedule, error)

	// ListByOrg retrieves all schedules in an org.
	ListByOrg(ctx context.Context, orgID string) ([]Schedule, error)

	// ListByValve retrieves all schedules for one valve.
	ListByValve(ctx context.Context, orgID, valveID string) ([]Schedule, error)

	// Create inserts a new schedule.
	Create(ctx context.Context, s *Schedule) error

	// Update overwrites an existing schedule.
	// Returns ErrScheduleNotFound if the schedule does not exist.
	Update(ctx context.Context, s *Schedule) error

	// Delete removes a schedule record.
	// Returns ErrScheduleNotFound if the schedule does not exist.
	Delete(ctx context.Context, orgID, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed schedule repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const scheduleColumns = `id, org_id, block_id, valve_id, pump_id, days,
		start_time, end_time, p_start_time, status, pump_ack, valve_ack,
		created_by, created_at, updated_at`

// GetByID retrieves a schedule by org and id.
func (r *SQLiteRepository) GetByID(ctx context.Context, orgID, id string) (*Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE org_id = ? AND id = ?`

	row := r.db.QueryRowContext(ctx, query, orgID, id)
	s, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("querying schedule by id: %w", err)
	}
	return s, nil
}

// ListByOrg retrieves all schedules in an org.
func (r *SQLiteRepository) ListByOrg(ctx context.Context, orgID string) ([]Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE org_id = ?
		ORDER BY start_time`

	return r.querySchedules(ctx, query, orgID)
}

// ListByValve retrieves all schedules for one valve.
func (r *SQLiteRepository) ListByValve(ctx context.Context, orgID, valveID string) ([]Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE org_id = ? AND valve_id = ?
		ORDER BY start_time`

	return r.querySchedules(ctx, query, orgID, valveID)
}

// Create inserts a new schedule.
func (r *SQLiteRepository) Create(ctx context.Context, s *Schedule) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	daysJSON, err := marshalDays(s.Days)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO schedules (
			id, org_id, block_id, valve_id, pump_id, days,
			start_time, end_time, p_start_time, status, pump_ack, valve_ack,
			created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		s.ID, s.OrgID, s.BlockID, s.ValveID, s.PumpID, daysJSON,
		s.StartTime, s.EndTime, s.PStartTime, string(s.Status),
		boolToInt(s.PumpAck), boolToInt(s.ValveAck),
		s.CreatedBy,
		s.CreatedAt.Format(time.RFC3339),
		s.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting schedule: %w", err)
	}
	return nil
}

// Update overwrites an existing schedule.
func (r *SQLiteRepository) Update(ctx context.Context, s *Schedule) error {
	s.UpdatedAt = time.Now().UTC()

	daysJSON, err := marshalDays(s.Days)
	if err != nil {
		return err
	}

	query := `
		UPDATE schedules SET
			block_id = ?, valve_id = ?, pump_id = ?, days = ?,
			start_time = ?, end_time = ?, p_start_time = ?, status = ?,
			pump_ack = ?, valve_ack = ?, updated_at = ?
		WHERE org_id = ? AND id = ?`

	result, err := r.db.ExecContext(ctx, query,
		s.BlockID, s.ValveID, s.PumpID, daysJSON,
		s.StartTime, s.EndTime, s.PStartTime, string(s.Status),
		boolToInt(s.PumpAck), boolToInt(s.ValveAck),
		s.UpdatedAt.Format(time.RFC3339),
		s.OrgID, s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating schedule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

// Delete removes a schedule record.
func (r *SQLiteRepository) Delete(ctx context.Context, orgID, id string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM schedules WHERE org_id = ? AND id = ?", orgID, id)
	if err != nil {
		return fmt.Errorf("deleting schedule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

// querySchedules executes a query and returns a slice of schedules.
func (r *SQLiteRepository) querySchedules(ctx context.Context, query string, args ...any) ([]Schedule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying schedules: %w", err)
	}
	defer rows.Close()

	var schedules []Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning schedule: %w", err)
		}
		schedules = append(schedules, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating schedules: %w", err)
	}
	return schedules, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSchedule scans a row or rows result into a Schedule.
func scanSchedule(scanner rowScanner) (*Schedule, error) {
	var s Schedule
	var daysJSON, status, createdAt, updatedAt string
	var pumpAck, valveAck int

	err := scanner.Scan(
		&s.ID, &s.OrgID, &s.BlockID, &s.ValveID, &s.PumpID, &daysJSON,
		&s.StartTime, &s.EndTime, &s.PStartTime, &status, &pumpAck, &valveAck,
		&s.CreatedBy, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Status = Status(status)
	s.PumpAck = pumpAck != 0
	s.ValveAck = valveAck != 0

	if daysJSON != "" {
		if err := json.Unmarshal([]byte(daysJSON), &s.Days); err != nil {
			return nil, fmt.Errorf("unmarshalling days: %w", err)
		}
	}

	var parseErr error
	s.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	s.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &s, nil
}

// marshalDays encodes the recurrence days as a JSON array.
func marshalDays(days []int) (string, error) {
	if days == nil {
		days = []int{}
	}
	b, err := json.Marshal(days)
	if err != nil {
		return "", fmt.Errorf("marshalling days: %w", err)
	}
	return string(b), nil
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
