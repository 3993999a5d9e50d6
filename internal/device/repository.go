package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Catalog defines the interface for device catalog persistence.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Catalog interface {
	// GetByID retrieves a device by org and id.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, orgID, id string) (*Device, error)

	// List retrieves all devices in an org.
	List(ctx context.Context, orgID string) ([]Device, error)

	// ListChildren retrieves all devices whose parent is the given device.
	ListChildren(ctx context.Context, orgID, parentID string) ([]Device, error)

	// ListByBlockAndType retrieves devices of one type within a block.
	ListByBlockAndType(ctx context.Context, orgID, blockID string, t DeviceType) ([]Device, error)

	// Create inserts a new device.
	// Returns ErrDeviceExists if the (org, id) pair already exists.
	Create(ctx context.Context, d *Device) error

	// Update modifies an existing device.
	// Returns ErrDeviceNotFound if the device does not exist.
	Update(ctx context.Context, d *Device) error

	// Delete removes a device.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, orgID, id string) error

	// UpdateThresholds overwrites the thresholds of many devices in
	// parallel. Partial failure is allowed; the result names each failure.
	UpdateThresholds(ctx context.Context, orgID string, ids []string, minT, maxT int) BatchResult
}

// BatchResult reports the per-device outcome of a batch write.
// There is no transaction: devices in Updated committed even when
// Failed is non-empty.
type BatchResult struct {
	Updated []string
	Failed  map[string]error
}

// OK reports whether every device in the batch was updated.
func (r BatchResult) OK() bool {
	return len(r.Failed) == 0
}

// SQLiteCatalog implements Catalog using SQLite.
type SQLiteCatalog struct {
	db *sql.DB
}

// NewSQLiteCatalog creates a new SQLite-backed catalog.
// The db parameter should be an open SQLite connection.
func NewSQLiteCatalog(db *sql.DB) *SQLiteCatalog {
	return &SQLiteCatalog{db: db}
}

const deviceColumns = `id, org_id, block_id, type, name, parent_id,
		min_threshold, max_threshold, created_at, updated_at`

// GetByID retrieves a device by org and id.
func (c *SQLiteCatalog) GetByID(ctx context.Context, orgID, id string) (*Device, error) {
	query := `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE org_id = ? AND id = ?`

	row := c.db.QueryRowContext(ctx, query, orgID, id)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return d, nil
}

// List retrieves all devices in an org.
func (c *SQLiteCatalog) List(ctx context.Context, orgID string) ([]Device, error) {
	query := `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE org_id = ?
		ORDER BY name`

	return c.queryDevices(ctx, query, orgID)
}

// ListChildren retrieves all devices whose parent is the given device.
func (c *SQLiteCatalog) ListChildren(ctx context.Context, orgID, parentID string) ([]Device, error) {
	query := `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE org_id = ? AND parent_id = ?
		ORDER BY name`

	return c.queryDevices(ctx, query, orgID, parentID)
}

// ListByBlockAndType retrieves devices of one type within a block.
func (c *SQLiteCatalog) ListByBlockAndType(ctx context.Context, orgID, blockID string, t DeviceType) ([]Device, error) {
	query := `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE org_id = ? AND block_id = ? AND type = ?
		ORDER BY name`

	return c.queryDevices(ctx, query, orgID, blockID, string(t))
}

// Create inserts a new device.
func (c *SQLiteCatalog) Create(ctx context.Context, d *Device) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	if d.BlockID == "" || d.Type == TypeSump {
		d.BlockID = BlockNone
	}

	query := `
		INSERT INTO devices (
			id, org_id, block_id, type, name, parent_id,
			min_threshold, max_threshold, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := c.db.ExecContext(ctx, query,
		d.ID,
		d.OrgID,
		d.BlockID,
		string(d.Type),
		d.Name,
		nullableString(d.ParentID),
		nullableInt(d.MinThreshold),
		nullableInt(d.MaxThreshold),
		d.CreatedAt.Format(time.RFC3339),
		d.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// Update modifies an existing device.
func (c *SQLiteCatalog) Update(ctx context.Context, d *Device) error {
	d.UpdatedAt = time.Now().UTC()
	if d.BlockID == "" || d.Type == TypeSump {
		d.BlockID = BlockNone
	}

	query := `
		UPDATE devices SET
			block_id = ?, type = ?, name = ?, parent_id = ?,
			min_threshold = ?, max_threshold = ?, updated_at = ?
		WHERE org_id = ? AND id = ?`

	result, err := c.db.ExecContext(ctx, query,
		d.BlockID,
		string(d.Type),
		d.Name,
		nullableString(d.ParentID),
		nullableInt(d.MinThreshold),
		nullableInt(d.MaxThreshold),
		d.UpdatedAt.Format(time.RFC3339),
		d.OrgID,
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("updating device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// Delete removes a device.
func (c *SQLiteCatalog) Delete(ctx context.Context, orgID, id string) error {
	result, err := c.db.ExecContext(ctx,
		"DELETE FROM devices WHERE org_id = ? AND id = ?", orgID, id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// UpdateThresholds overwrites the thresholds of many devices in parallel.
// Each device is an independent write with no ordering guarantee between
// them; a failure on one device does not stop the others.
func (c *SQLiteCatalog) UpdateThresholds(ctx context.Context, orgID string, ids []string, minT, maxT int) BatchResult {
	res := BatchResult{Failed: make(map[string]error)}
	now := time.Now().UTC().Format(time.RFC3339)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			err := c.updateOneThreshold(ctx, orgID, id, minT, maxT, now)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed[id] = err
			} else {
				res.Updated = append(res.Updated, id)
			}
		}(id)
	}

	wg.Wait()
	return res
}

func (c *SQLiteCatalog) updateOneThreshold(ctx context.Context, orgID, id string, minT, maxT int, now string) error {
	result, err := c.db.ExecContext(ctx, `
		UPDATE devices
		SET min_threshold = ?, max_threshold = ?, updated_at = ?
		WHERE org_id = ? AND id = ?`,
		minT, maxT, now, orgID, id,
	)
	if err != nil {
		return fmt.Errorf("updating thresholds: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// queryDevices executes a query and returns a slice of devices.
func (c *SQLiteCatalog) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDevice scans a row or rows result into a Device.
func scanDevice(scanner rowScanner) (*Device, error) {
	var d Device
	var parentID sql.NullString
	var minT, maxT sql.NullInt64
	var deviceType, createdAt, updatedAt string

	err := scanner.Scan(
		&d.ID,
		&d.OrgID,
		&d.BlockID,
		&deviceType,
		&d.Name,
		&parentID,
		&minT,
		&maxT,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Type = DeviceType(deviceType)
	if parentID.Valid {
		d.ParentID = &parentID.String
	}
	if minT.Valid {
		v := int(minT.Int64)
		d.MinThreshold = &v
	}
	if maxT.Valid {
		v := int(maxT.Int64)
		d.MaxThreshold = &v
	}

	var parseErr error
	d.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	d.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &d, nil
}

// nullableString returns a sql.NullString for optional string pointers.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullableInt returns a sql.NullInt64 for optional int pointers.
func nullableInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
