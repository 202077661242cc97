// Package snapshots records nightly per-customer balance snapshots: the
// customer's total claim (available cash, both check reservations, and the
// value of possessed positions at last published prices). Snapshots make the
// ledger's conservation property observable over time.
package snapshots

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/deltastar/cfs/internal/domain"
	"github.com/deltastar/cfs/pkg/money"
)

// Snapshot is one stored balance snapshot. Payload is a msgpack-encoded
// Breakdown.
type Snapshot struct {
	ID         int64
	CustomerID int64
	Day        domain.Day
	TotalValue money.Amount
	Payload    []byte
	CreatedAt  time.Time
}

// Repository handles balance snapshot persistence.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new snapshot repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "snapshot").Logger(),
	}
}

// Upsert stores a snapshot for (customer, day), replacing any earlier snapshot
// taken the same day.
func (r *Repository) Upsert(customerID int64, day domain.Day, total money.Amount, payload []byte) error {
	_, err := r.db.Exec(`
		INSERT INTO balance_snapshots (customer_id, snapshot_day, total_value, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(customer_id, snapshot_day) DO UPDATE SET
			total_value = excluded.total_value,
			payload = excluded.payload,
			created_at = excluded.created_at`,
		customerID, day.String(), int64(total), payload, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot for customer %d: %w", customerID, err)
	}
	return nil
}

// ListByCustomer returns a customer's snapshots in day order.
func (r *Repository) ListByCustomer(customerID int64) ([]Snapshot, error) {
	rows, err := r.db.Query(`
		SELECT id, customer_id, snapshot_day, total_value, payload, created_at
		FROM balance_snapshots WHERE customer_id = ? ORDER BY snapshot_day`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		var day string
		var total, createdAt int64
		if err := rows.Scan(&s.ID, &s.CustomerID, &day, &total, &s.Payload, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		s.Day = domain.Day(day)
		s.TotalValue = money.Amount(total)
		s.CreatedAt = time.Unix(createdAt, 0)
		snapshots = append(snapshots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}
