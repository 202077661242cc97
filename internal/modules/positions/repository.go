// Package positions provides position persistence for the ledger.
//
// A position moves through a small state machine: TO_BE_BOUGHT and TO_BE_SOLD
// rows are transient order placeholders created at intake; IN_POSSESSION is
// the single merged holding per (customer, fund); SOLD is terminal. The
// at-most-one-possessed rule is enforced by a partial unique index as well as
// by the settlement logic.
package positions

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/deltastar/cfs/internal/database"
	"github.com/deltastar/cfs/internal/domain"
	"github.com/deltastar/cfs/pkg/money"
)

const positionColumns = `id, customer_id, fund_id, status, shares, created_at`

// Repository handles position database operations.
type Repository struct {
	q   database.Queryer
	log zerolog.Logger
}

// NewRepository creates a new position repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		q:   db,
		log: log.With().Str("repo", "position").Logger(),
	}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *Repository) WithTx(q database.Queryer) *Repository {
	return &Repository{q: q, log: r.log}
}

// Create inserts a new position and fills in its ID and creation time.
func (r *Repository) Create(p *domain.Position) error {
	now := time.Now()

	res, err := r.q.Exec(`
		INSERT INTO positions (customer_id, fund_id, status, shares, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.CustomerID, p.FundID, string(p.Status), int64(p.Shares), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create position: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get position id: %w", err)
	}
	p.ID = id
	p.CreatedAt = now

	return nil
}

// GetByID returns the position with the given id, or domain.ErrPositionNotFound.
func (r *Repository) GetByID(id int64) (*domain.Position, error) {
	row := r.q.QueryRow("SELECT "+positionColumns+" FROM positions WHERE id = ?", id)
	p, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrPositionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan position: %w", err)
	}
	return p, nil
}

// GetPossessed returns the customer's IN_POSSESSION position for a fund, or
// (nil, nil) if the customer holds none. Holding nothing is a valid state,
// not an error.
func (r *Repository) GetPossessed(customerID, fundID int64) (*domain.Position, error) {
	row := r.q.QueryRow(
		"SELECT "+positionColumns+" FROM positions WHERE customer_id = ? AND fund_id = ? AND status = ?",
		customerID, fundID, string(domain.PositionInPossession),
	)
	p, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan possessed position: %w", err)
	}
	return p, nil
}

// ListByCustomer returns a customer's positions, optionally filtered by status
// (empty status means all).
func (r *Repository) ListByCustomer(customerID int64, status domain.PositionStatus) ([]domain.Position, error) {
	query := "SELECT " + positionColumns + " FROM positions WHERE customer_id = ?"
	args := []any{customerID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY id"

	rows, err := r.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var p domain.Position
		var shares, createdAt int64
		var status string
		if err := rows.Scan(&p.ID, &p.CustomerID, &p.FundID, &status, &shares, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		p.Status = domain.PositionStatus(status)
		p.Shares = money.Amount(shares)
		p.CreatedAt = time.Unix(createdAt, 0)
		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}

// UpdateShares sets a position's share count.
func (r *Repository) UpdateShares(id int64, shares money.Amount) error {
	return r.update(id, "UPDATE positions SET shares = ? WHERE id = ?", int64(shares), id)
}

// UpdateStatus moves a position to a new lifecycle state.
func (r *Repository) UpdateStatus(id int64, status domain.PositionStatus) error {
	return r.update(id, "UPDATE positions SET status = ? WHERE id = ?", string(status), id)
}

// Promote moves a TO_BE_BOUGHT placeholder to IN_POSSESSION with its settled
// share count, in one write.
func (r *Repository) Promote(id int64, shares money.Amount) error {
	return r.update(id,
		"UPDATE positions SET status = ?, shares = ? WHERE id = ?",
		string(domain.PositionInPossession), int64(shares), id,
	)
}

// Delete removes a transient placeholder position. Only TO_BE_BOUGHT rows that
// were merged into an existing holding are ever deleted; settled positions are
// history and stay.
func (r *Repository) Delete(id int64) error {
	res, err := r.q.Exec("DELETE FROM positions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete position %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrPositionNotFound
	}
	return nil
}

func (r *Repository) update(id int64, query string, args ...any) error {
	res, err := r.q.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update position %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrPositionNotFound
	}
	return nil
}

func scanPosition(row *sql.Row) (*domain.Position, error) {
	var p domain.Position
	var shares, createdAt int64
	var status string

	err := row.Scan(&p.ID, &p.CustomerID, &p.FundID, &status, &shares, &createdAt)
	if err != nil {
		return nil, err
	}

	p.Status = domain.PositionStatus(status)
	p.Shares = money.Amount(shares)
	p.CreatedAt = time.Unix(createdAt, 0)
	return &p, nil
}
