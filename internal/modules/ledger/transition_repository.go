// Package ledger provides the transition history: every order ever placed and
// its settlement state. Transitions are append-mostly: a row is written once
// at intake and mutated exactly once, by the execution batch, to reach DONE.
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/deltastar/cfs/internal/database"
	"github.com/deltastar/cfs/internal/domain"
	"github.com/deltastar/cfs/pkg/money"
)

const transitionColumns = `id, ref, customer_id, fund_id, position_id, type, status,
	amount, shares, execute_date, created_at`

// TransitionRepository handles transition database operations.
type TransitionRepository struct {
	q   database.Queryer
	log zerolog.Logger
}

// NewTransitionRepository creates a new transition repository.
func NewTransitionRepository(db *sql.DB, log zerolog.Logger) *TransitionRepository {
	return &TransitionRepository{
		q:   db,
		log: log.With().Str("repo", "transition").Logger(),
	}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *TransitionRepository) WithTx(q database.Queryer) *TransitionRepository {
	return &TransitionRepository{q: q, log: r.log}
}

// Create inserts a new transition, assigning a UUID reference if the caller
// did not provide one. The reference is the transition's external identifier.
func (r *TransitionRepository) Create(t *domain.Transition) error {
	if t.Ref == "" {
		t.Ref = uuid.NewString()
	}
	now := time.Now()

	res, err := r.q.Exec(`
		INSERT INTO transitions
		(ref, customer_id, fund_id, position_id, type, status, amount, shares, execute_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Ref, t.CustomerID, nullID(t.FundID), nullID(t.PositionID),
		string(t.Type), string(t.Status), int64(t.Amount), int64(t.Shares),
		nullDay(t.ExecuteDate), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create transition: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get transition id: %w", err)
	}
	t.ID = id
	t.CreatedAt = now

	r.log.Info().
		Str("ref", t.Ref).
		Str("type", string(t.Type)).
		Int64("customer_id", t.CustomerID).
		Msg("Transition created")

	return nil
}

// GetByRef returns the transition with the given external reference, or
// domain.ErrTransitionNotFound.
func (r *TransitionRepository) GetByRef(ref string) (*domain.Transition, error) {
	row := r.q.QueryRow("SELECT "+transitionColumns+" FROM transitions WHERE ref = ?", ref)
	t, err := scanTransition(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrTransitionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transition: %w", err)
	}
	return t, nil
}

// ListPending returns all PENDING transitions in creation order. The execution
// batch reads the full pending set and dispatches by type.
func (r *TransitionRepository) ListPending() ([]domain.Transition, error) {
	return r.queryTransitions(
		"SELECT "+transitionColumns+" FROM transitions WHERE status = ? ORDER BY id",
		string(domain.TransitionPending),
	)
}

// ListByCustomer returns a customer's transitions, newest first.
func (r *TransitionRepository) ListByCustomer(customerID int64) ([]domain.Transition, error) {
	return r.queryTransitions(
		"SELECT "+transitionColumns+" FROM transitions WHERE customer_id = ? ORDER BY id DESC",
		customerID,
	)
}

// ListAll returns up to limit transitions, newest first.
func (r *TransitionRepository) ListAll(limit int) ([]domain.Transition, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.queryTransitions(
		"SELECT "+transitionColumns+" FROM transitions ORDER BY id DESC LIMIT ?", limit,
	)
}

// Reassign points a transition at a different position. Used when a buy's
// placeholder merges into an existing holding and the placeholder row goes
// away.
func (r *TransitionRepository) Reassign(id, positionID int64) error {
	res, err := r.q.Exec("UPDATE transitions SET position_id = ? WHERE id = ?", positionID, id)
	if err != nil {
		return fmt.Errorf("failed to reassign transition %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrTransitionNotFound
	}
	return nil
}

// MarkDone settles a transition: status DONE and the execution date, exactly
// once. The status guard makes settlement idempotent; a DONE transition is
// never written again.
func (r *TransitionRepository) MarkDone(id int64, executeDate domain.Day) error {
	return r.settle(
		"UPDATE transitions SET status = ?, execute_date = ? WHERE id = ? AND status = ?",
		string(domain.TransitionDone), executeDate.String(), id, string(domain.TransitionPending),
	)
}

// MarkDoneWithAmount settles a SELL transition, recording the realized cash
// proceeds on the transition itself.
func (r *TransitionRepository) MarkDoneWithAmount(id int64, executeDate domain.Day, amount money.Amount) error {
	return r.settle(
		"UPDATE transitions SET status = ?, execute_date = ?, amount = ? WHERE id = ? AND status = ?",
		string(domain.TransitionDone), executeDate.String(), int64(amount), id, string(domain.TransitionPending),
	)
}

func (r *TransitionRepository) settle(query string, args ...any) error {
	res, err := r.q.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to settle transition: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrTransitionNotFound
	}
	return nil
}

func (r *TransitionRepository) queryTransitions(query string, args ...any) ([]domain.Transition, error) {
	rows, err := r.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer rows.Close()

	var transitions []domain.Transition
	for rows.Next() {
		var t domain.Transition
		var fundID, positionID sql.NullInt64
		var executeDate sql.NullString
		var amount, shares, createdAt int64
		var typ, status string

		err := rows.Scan(&t.ID, &t.Ref, &t.CustomerID, &fundID, &positionID,
			&typ, &status, &amount, &shares, &executeDate, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}

		t.FundID = fundID.Int64
		t.PositionID = positionID.Int64
		t.Type = domain.TransitionType(typ)
		t.Status = domain.TransitionStatus(status)
		t.Amount = money.Amount(amount)
		t.Shares = money.Amount(shares)
		if executeDate.Valid {
			t.ExecuteDate = domain.Day(executeDate.String)
		}
		t.CreatedAt = time.Unix(createdAt, 0)
		transitions = append(transitions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transitions: %w", err)
	}

	return transitions, nil
}

func scanTransition(row *sql.Row) (*domain.Transition, error) {
	var t domain.Transition
	var fundID, positionID sql.NullInt64
	var executeDate sql.NullString
	var amount, shares, createdAt int64
	var typ, status string

	err := row.Scan(&t.ID, &t.Ref, &t.CustomerID, &fundID, &positionID,
		&typ, &status, &amount, &shares, &executeDate, &createdAt)
	if err != nil {
		return nil, err
	}

	t.FundID = fundID.Int64
	t.PositionID = positionID.Int64
	t.Type = domain.TransitionType(typ)
	t.Status = domain.TransitionStatus(status)
	t.Amount = money.Amount(amount)
	t.Shares = money.Amount(shares)
	if executeDate.Valid {
		t.ExecuteDate = domain.Day(executeDate.String)
	}
	t.CreatedAt = time.Unix(createdAt, 0)
	return &t, nil
}

// nullID maps the zero id (no reference) to SQL NULL.
func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// nullDay maps the unset day to SQL NULL.
func nullDay(d domain.Day) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}
