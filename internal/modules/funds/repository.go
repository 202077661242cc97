// Package funds provides fund persistence, price history and fund admin.
package funds

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/deltastar/cfs/internal/database"
	"github.com/deltastar/cfs/internal/domain"
	"github.com/deltastar/cfs/pkg/money"
)

const fundColumns = `id, symbol, name, comment, last_price, last_transition_day, created_at`

// Repository handles fund and price-history database operations.
type Repository struct {
	q   database.Queryer
	log zerolog.Logger
}

// NewRepository creates a new fund repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		q:   db,
		log: log.With().Str("repo", "fund").Logger(),
	}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *Repository) WithTx(q database.Queryer) *Repository {
	return &Repository{q: q, log: r.log}
}

// Create inserts a new fund and fills in its ID and creation time.
func (r *Repository) Create(f *domain.Fund) error {
	now := time.Now()

	res, err := r.q.Exec(`
		INSERT INTO funds (symbol, name, comment, last_price, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		f.Symbol, f.Name, f.Comment, int64(f.LastPrice), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create fund: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get fund id: %w", err)
	}
	f.ID = id
	f.CreatedAt = now

	r.log.Info().Int64("fund_id", id).Str("symbol", f.Symbol).Msg("Fund created")
	return nil
}

// GetByID returns the fund with the given id, or domain.ErrFundNotFound.
func (r *Repository) GetByID(id int64) (*domain.Fund, error) {
	row := r.q.QueryRow("SELECT "+fundColumns+" FROM funds WHERE id = ?", id)
	return scanFund(row)
}

// GetBySymbol returns the fund with the given symbol, or domain.ErrFundNotFound.
func (r *Repository) GetBySymbol(symbol string) (*domain.Fund, error) {
	row := r.q.QueryRow("SELECT "+fundColumns+" FROM funds WHERE symbol = ?", symbol)
	return scanFund(row)
}

// GetByName returns the fund with the given name, or domain.ErrFundNotFound.
func (r *Repository) GetByName(name string) (*domain.Fund, error) {
	row := r.q.QueryRow("SELECT "+fundColumns+" FROM funds WHERE name = ?", name)
	return scanFund(row)
}

// List returns all funds ordered by symbol.
func (r *Repository) List() ([]domain.Fund, error) {
	return r.queryFunds("SELECT " + fundColumns + " FROM funds ORDER BY symbol")
}

// Search returns funds whose name or symbol contains the keyword.
func (r *Repository) Search(keyword string) ([]domain.Fund, error) {
	pattern := "%" + keyword + "%"
	return r.queryFunds(
		"SELECT "+fundColumns+" FROM funds WHERE name LIKE ? OR symbol LIKE ? ORDER BY symbol",
		pattern, pattern,
	)
}

// UpdatePrice records a price publication on the fund itself: the new last
// price and the day it was published.
func (r *Repository) UpdatePrice(id int64, price money.Amount, day domain.Day) error {
	res, err := r.q.Exec(
		"UPDATE funds SET last_price = ?, last_transition_day = ? WHERE id = ?",
		int64(price), day.String(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update price for fund %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrFundNotFound
	}

	return nil
}

// AddPriceHistory appends one published price to the fund's history.
func (r *Repository) AddPriceHistory(fundID int64, price money.Amount, day domain.Day) error {
	_, err := r.q.Exec(
		"INSERT INTO fund_price_history (fund_id, price, price_date) VALUES (?, ?, ?)",
		fundID, int64(price), day.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to record price history for fund %d: %w", fundID, err)
	}
	return nil
}

// PriceHistory returns a fund's published prices in date order.
func (r *Repository) PriceHistory(fundID int64) ([]domain.FundPriceHistory, error) {
	rows, err := r.q.Query(
		"SELECT id, fund_id, price, price_date FROM fund_price_history WHERE fund_id = ? ORDER BY price_date",
		fundID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var history []domain.FundPriceHistory
	for rows.Next() {
		var h domain.FundPriceHistory
		var price int64
		var day string
		if err := rows.Scan(&h.ID, &h.FundID, &price, &day); err != nil {
			return nil, fmt.Errorf("failed to scan price history: %w", err)
		}
		h.Price = money.Amount(price)
		h.PriceDate = domain.Day(day)
		history = append(history, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price history: %w", err)
	}

	return history, nil
}

func (r *Repository) queryFunds(query string, args ...any) ([]domain.Fund, error) {
	rows, err := r.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query funds: %w", err)
	}
	defer rows.Close()

	var funds []domain.Fund
	for rows.Next() {
		var f domain.Fund
		var lastPrice, createdAt int64
		var lastDay sql.NullString
		if err := rows.Scan(&f.ID, &f.Symbol, &f.Name, &f.Comment, &lastPrice, &lastDay, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan fund: %w", err)
		}
		f.LastPrice = money.Amount(lastPrice)
		if lastDay.Valid {
			f.LastTransitionDay = domain.Day(lastDay.String)
		}
		f.CreatedAt = time.Unix(createdAt, 0)
		funds = append(funds, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating funds: %w", err)
	}

	return funds, nil
}

func scanFund(row *sql.Row) (*domain.Fund, error) {
	var f domain.Fund
	var lastPrice, createdAt int64
	var lastDay sql.NullString

	err := row.Scan(&f.ID, &f.Symbol, &f.Name, &f.Comment, &lastPrice, &lastDay, &createdAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrFundNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan fund: %w", err)
	}

	f.LastPrice = money.Amount(lastPrice)
	if lastDay.Valid {
		f.LastTransitionDay = domain.Day(lastDay.String)
	}
	f.CreatedAt = time.Unix(createdAt, 0)
	return &f, nil
}
