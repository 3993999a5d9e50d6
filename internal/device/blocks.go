package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Blocks defines the interface for block persistence.
type Blocks interface {
	// GetByID retrieves a block by org and id.
	// Returns ErrBlockNotFound if the block does not exist.
	GetByID(ctx context.Context, orgID, id string) (*Block, error)

	// List retrieves all blocks in an org.
	List(ctx context.Context, orgID string) ([]Block, error)

	// Create inserts a new block. Mode defaults to manual when unset.
	Create(ctx context.Context, b *Block) error

	// SetMode changes a block's operating mode.
	// Returns ErrBlockNotFound if the block does not exist.
	SetMode(ctx context.Context, orgID, id string, mode Mode, actor string) error
}

// SQLiteBlocks implements Blocks using SQLite.
type SQLiteBlocks struct {
	db *sql.DB
}

// NewSQLiteBlocks creates a new SQLite-backed block repository.
func NewSQLiteBlocks(db *sql.DB) *SQLiteBlocks {
	return &SQLiteBlocks{db: db}
}

// GetByID retrieves a block by org and id.
func (r *SQLiteBlocks) GetByID(ctx context.Context, orgID, id string) (*Block, error) {
	query := `
		SELECT id, org_id, name, mode, updated_by, created_at, updated_at
		FROM blocks
		WHERE org_id = ? AND id = ?`

	row := r.db.QueryRowContext(ctx, query, orgID, id)
	b, err := scanBlock(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBlockNotFound
		}
		return nil, fmt.Errorf("querying block by id: %w", err)
	}
	return b, nil
}

// List retrieves all blocks in an org.
func (r *SQLiteBlocks) List(ctx context.Context, orgID string) ([]Block, error) {
	query := `
		SELECT id, org_id, name, mode, updated_by, created_at, updated_at
		FROM blocks
		WHERE org_id = ?
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("querying blocks: %w", err)
	}
	defer rows.Close()

	var blocks []Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning block: %w", err)
		}
		blocks = append(blocks, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating blocks: %w", err)
	}
	return blocks, nil
}

// Create inserts a new block.
func (r *SQLiteBlocks) Create(ctx context.Context, b *Block) error {
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	if b.Mode == "" {
		b.Mode = ModeManual
	}

	query := `
		INSERT INTO blocks (id, org_id, name, mode, updated_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		b.ID,
		b.OrgID,
		b.Name,
		string(b.Mode),
		b.UpdatedBy,
		b.CreatedAt.Format(time.RFC3339),
		b.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: block %s", ErrDeviceExists, b.ID)
		}
		return fmt.Errorf("inserting block: %w", err)
	}
	return nil
}

// SetMode changes a block's operating mode.
func (r *SQLiteBlocks) SetMode(ctx context.Context, orgID, id string, mode Mode, actor string) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE blocks
		SET mode = ?, updated_by = ?, updated_at = ?
		WHERE org_id = ? AND id = ?`,
		string(mode), actor, time.Now().UTC().Format(time.RFC3339), orgID, id,
	)
	if err != nil {
		return fmt.Errorf("updating block mode: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrBlockNotFound
	}
	return nil
}

// scanBlock scans a row or rows result into a Block.
func scanBlock(scanner rowScanner) (*Block, error) {
	var b Block
	var mode, createdAt, updatedAt string

	err := scanner.Scan(
		&b.ID,
		&b.OrgID,
		&b.Name,
		&mode,
		&b.UpdatedBy,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Mode = Mode(mode)

	var parseErr error
	b.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	b.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &b, nil
}
