// Package customers provides customer account persistence and onboarding.
package customers

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/deltastar/cfs/internal/database"
	"github.com/deltastar/cfs/internal/domain"
	"github.com/deltastar/cfs/pkg/money"
)

const customerColumns = `id, username, first_name, last_name, address_line1, address_line2,
	city, state, zipcode, cash, cash_to_be_checked, cash_to_be_deposited, created_at`

// Repository handles customer database operations.
type Repository struct {
	q   database.Queryer
	log zerolog.Logger
}

// NewRepository creates a new customer repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		q:   db,
		log: log.With().Str("repo", "customer").Logger(),
	}
}

// WithTx returns a copy of the repository bound to the given transaction.
// Services use this to group an operation's reads and writes atomically.
func (r *Repository) WithTx(q database.Queryer) *Repository {
	return &Repository{q: q, log: r.log}
}

// Create inserts a new customer and fills in its ID and creation time.
// Returns domain.ErrUsernameTaken on a duplicate username.
func (r *Repository) Create(c *domain.Customer) error {
	now := time.Now()

	res, err := r.q.Exec(`
		INSERT INTO customers
		(username, first_name, last_name, address_line1, address_line2,
		 city, state, zipcode, cash, cash_to_be_checked, cash_to_be_deposited, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Username, c.FirstName, c.LastName, c.AddressLine1, c.AddressLine2,
		c.City, c.State, c.Zipcode,
		int64(c.Cash), int64(c.CashToBeChecked), int64(c.CashToBeDeposited),
		now.Unix(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: customers.username") {
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("failed to create customer: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get customer id: %w", err)
	}
	c.ID = id
	c.CreatedAt = now

	r.log.Info().Int64("customer_id", id).Str("username", c.Username).Msg("Customer created")
	return nil
}

// GetByID returns the customer with the given id, or domain.ErrCustomerNotFound.
func (r *Repository) GetByID(id int64) (*domain.Customer, error) {
	row := r.q.QueryRow("SELECT "+customerColumns+" FROM customers WHERE id = ?", id)
	return r.scanCustomer(row)
}

// GetByUsername returns the customer with the given username, or
// domain.ErrCustomerNotFound.
func (r *Repository) GetByUsername(username string) (*domain.Customer, error) {
	row := r.q.QueryRow("SELECT "+customerColumns+" FROM customers WHERE username = ?", username)
	return r.scanCustomer(row)
}

// List returns all customers ordered by id.
func (r *Repository) List() ([]domain.Customer, error) {
	rows, err := r.q.Query("SELECT " + customerColumns + " FROM customers ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		c, err := scanCustomerRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customers: %w", err)
	}

	return customers, nil
}

// UpdateBalances writes all three cash fields of a customer. Balance changes
// always travel through here so the CHECK constraints guard every write.
func (r *Repository) UpdateBalances(id int64, cash, toBeChecked, toBeDeposited money.Amount) error {
	res, err := r.q.Exec(`
		UPDATE customers
		SET cash = ?, cash_to_be_checked = ?, cash_to_be_deposited = ?
		WHERE id = ?`,
		int64(cash), int64(toBeChecked), int64(toBeDeposited), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update balances for customer %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrCustomerNotFound
	}

	return nil
}

func (r *Repository) scanCustomer(row *sql.Row) (*domain.Customer, error) {
	var c domain.Customer
	var cash, toBeChecked, toBeDeposited, createdAt int64

	err := row.Scan(&c.ID, &c.Username, &c.FirstName, &c.LastName,
		&c.AddressLine1, &c.AddressLine2, &c.City, &c.State, &c.Zipcode,
		&cash, &toBeChecked, &toBeDeposited, &createdAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}

	c.Cash = money.Amount(cash)
	c.CashToBeChecked = money.Amount(toBeChecked)
	c.CashToBeDeposited = money.Amount(toBeDeposited)
	c.CreatedAt = time.Unix(createdAt, 0)
	return &c, nil
}

func scanCustomerRow(rows *sql.Rows) (domain.Customer, error) {
	var c domain.Customer
	var cash, toBeChecked, toBeDeposited, createdAt int64

	err := rows.Scan(&c.ID, &c.Username, &c.FirstName, &c.LastName,
		&c.AddressLine1, &c.AddressLine2, &c.City, &c.State, &c.Zipcode,
		&cash, &toBeChecked, &toBeDeposited, &createdAt)
	if err != nil {
		return domain.Customer{}, err
	}

	c.Cash = money.Amount(cash)
	c.CashToBeChecked = money.Amount(toBeChecked)
	c.CashToBeDeposited = money.Amount(toBeDeposited)
	c.CreatedAt = time.Unix(createdAt, 0)
	return c, nil
}
