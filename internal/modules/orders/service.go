// Package orders implements order intake: the reservation half of the
// ledger's two-phase reserve/settle cycle.
//
// Every order reserves its cash or shares synchronously at intake, inside one
// transaction, before the order becomes a PENDING transition. That reservation
// is what prevents double-spending between order placement and the next
// execution batch. All validation happens before the first write, so a failed
// order leaves every entity untouched.
package orders

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/deltastar/cfs/internal/database"
	"github.com/deltastar/cfs/internal/domain"
	"github.com/deltastar/cfs/internal/modules/customers"
	"github.com/deltastar/cfs/internal/modules/funds"
	"github.com/deltastar/cfs/internal/modules/ledger"
	"github.com/deltastar/cfs/internal/modules/positions"
	"github.com/deltastar/cfs/pkg/money"
)

// Bounds are the configured transaction-amount limits. Order amounts, sell
// share counts and published prices must all fall within [Min, Max].
type Bounds struct {
	Min money.Amount
	Max money.Amount
}

// Contains reports whether v is within the bounds.
func (b Bounds) Contains(v money.Amount) bool {
	return v >= b.Min && v <= b.Max
}

// Service implements order intake.
type Service struct {
	db          *sql.DB
	customers   *customers.Repository
	funds       *funds.Repository
	positions   *positions.Repository
	transitions *ledger.TransitionRepository
	bounds      Bounds
	log         zerolog.Logger
}

// NewService creates a new order intake service.
func NewService(
	db *sql.DB,
	customerRepo *customers.Repository,
	fundRepo *funds.Repository,
	positionRepo *positions.Repository,
	transitionRepo *ledger.TransitionRepository,
	bounds Bounds,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:          db,
		customers:   customerRepo,
		funds:       fundRepo,
		positions:   positionRepo,
		transitions: transitionRepo,
		bounds:      bounds,
		log:         log.With().Str("service", "orders").Logger(),
	}
}

// Buy places a buy order: the amount is debited from the customer's cash
// immediately and a TO_BE_BOUGHT position plus a PENDING BUY transition are
// created. Shares are computed at the fund's next published price.
func (s *Service) Buy(customerID, fundID int64, amount money.Amount) (*domain.Transition, error) {
	var transition *domain.Transition

	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		if !s.bounds.Contains(amount) {
			return fmt.Errorf("%w: amount %s outside [%s, %s]",
				domain.ErrAmountOutOfBounds, amount, s.bounds.Min, s.bounds.Max)
		}

		customer, err := s.customers.WithTx(tx).GetByID(customerID)
		if err != nil {
			return err
		}
		fund, err := s.funds.WithTx(tx).GetByID(fundID)
		if err != nil {
			return err
		}
		if customer.Cash < amount {
			return fmt.Errorf("%w: cash %s, requested %s",
				domain.ErrInsufficientBalance, customer.Cash, amount)
		}

		// Reserve: the cash leaves the available balance now.
		err = s.customers.WithTx(tx).UpdateBalances(customer.ID,
			customer.Cash-amount, customer.CashToBeChecked, customer.CashToBeDeposited)
		if err != nil {
			return err
		}

		position := &domain.Position{
			CustomerID: customer.ID,
			FundID:     fund.ID,
			Status:     domain.PositionToBeBought,
			Shares:     0,
		}
		if err := s.positions.WithTx(tx).Create(position); err != nil {
			return err
		}

		transition = &domain.Transition{
			CustomerID: customer.ID,
			FundID:     fund.ID,
			PositionID: position.ID,
			Type:       domain.TransitionBuy,
			Status:     domain.TransitionPending,
			Amount:     amount,
		}
		return s.transitions.WithTx(tx).Create(transition)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("customer_id", customerID).
		Int64("fund_id", fundID).
		Str("amount", amount.String()).
		Str("ref", transition.Ref).
		Msg("Buy order placed")

	return transition, nil
}

// Sell places a sell order: the shares leave the customer's possessed position
// immediately and move into a TO_BE_SOLD position; a PENDING SELL transition
// records the order. Cash proceeds are computed at the fund's next published
// price.
func (s *Service) Sell(customerID, fundID int64, shares money.Amount) (*domain.Transition, error) {
	var transition *domain.Transition

	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		if !s.bounds.Contains(shares) {
			return fmt.Errorf("%w: shares %s outside [%s, %s]",
				domain.ErrAmountOutOfBounds, shares, s.bounds.Min, s.bounds.Max)
		}

		if _, err := s.customers.WithTx(tx).GetByID(customerID); err != nil {
			return err
		}
		fund, err := s.funds.WithTx(tx).GetByID(fundID)
		if err != nil {
			return err
		}

		possessed, err := s.positions.WithTx(tx).GetPossessed(customerID, fund.ID)
		if err != nil {
			return err
		}
		if possessed == nil || possessed.Shares < shares {
			held := money.Amount(0)
			if possessed != nil {
				held = possessed.Shares
			}
			return fmt.Errorf("%w: held %s, requested %s",
				domain.ErrInsufficientShares, held, shares)
		}

		// Reserve: the shares leave the available pool now.
		err = s.positions.WithTx(tx).UpdateShares(possessed.ID, possessed.Shares-shares)
		if err != nil {
			return err
		}

		pending := &domain.Position{
			CustomerID: customerID,
			FundID:     fund.ID,
			Status:     domain.PositionToBeSold,
			Shares:     shares,
		}
		if err := s.positions.WithTx(tx).Create(pending); err != nil {
			return err
		}

		transition = &domain.Transition{
			CustomerID: customerID,
			FundID:     fund.ID,
			PositionID: pending.ID,
			Type:       domain.TransitionSell,
			Status:     domain.TransitionPending,
			Shares:     shares,
		}
		return s.transitions.WithTx(tx).Create(transition)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("customer_id", customerID).
		Int64("fund_id", fundID).
		Str("shares", shares.String()).
		Str("ref", transition.Ref).
		Msg("Sell order placed")

	return transition, nil
}

// RequestCheck places a withdrawal order: the amount moves from cash into the
// to-be-checked reservation and a PENDING REQUEST_CHECK transition records it.
// The money leaves the system at the next execution batch.
func (s *Service) RequestCheck(customerID int64, amount money.Amount) (*domain.Transition, error) {
	var transition *domain.Transition

	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		if !s.bounds.Contains(amount) {
			return fmt.Errorf("%w: amount %s outside [%s, %s]",
				domain.ErrAmountOutOfBounds, amount, s.bounds.Min, s.bounds.Max)
		}

		customer, err := s.customers.WithTx(tx).GetByID(customerID)
		if err != nil {
			return err
		}
		if customer.Cash < amount {
			return fmt.Errorf("%w: cash %s, requested %s",
				domain.ErrInsufficientBalance, customer.Cash, amount)
		}

		err = s.customers.WithTx(tx).UpdateBalances(customer.ID,
			customer.Cash-amount, customer.CashToBeChecked+amount, customer.CashToBeDeposited)
		if err != nil {
			return err
		}

		transition = &domain.Transition{
			CustomerID: customer.ID,
			Type:       domain.TransitionRequestCheck,
			Status:     domain.TransitionPending,
			Amount:     amount,
		}
		return s.transitions.WithTx(tx).Create(transition)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("customer_id", customerID).
		Str("amount", amount.String()).
		Str("ref", transition.Ref).
		Msg("Check requested")

	return transition, nil
}

// DepositCheck records an incoming check: the amount is added to the
// to-be-deposited reservation and a PENDING DEPOSIT_CHECK transition records
// it. The cash becomes available at the next execution batch. There is no
// balance precondition since the money is not in the system yet.
func (s *Service) DepositCheck(customerID int64, amount money.Amount) (*domain.Transition, error) {
	var transition *domain.Transition

	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		if !s.bounds.Contains(amount) {
			return fmt.Errorf("%w: amount %s outside [%s, %s]",
				domain.ErrAmountOutOfBounds, amount, s.bounds.Min, s.bounds.Max)
		}

		customer, err := s.customers.WithTx(tx).GetByID(customerID)
		if err != nil {
			return err
		}

		err = s.customers.WithTx(tx).UpdateBalances(customer.ID,
			customer.Cash, customer.CashToBeChecked, customer.CashToBeDeposited+amount)
		if err != nil {
			return err
		}

		transition = &domain.Transition{
			CustomerID: customer.ID,
			Type:       domain.TransitionDepositCheck,
			Status:     domain.TransitionPending,
			Amount:     amount,
		}
		return s.transitions.WithTx(tx).Create(transition)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("customer_id", customerID).
		Str("amount", amount.String()).
		Str("ref", transition.Ref).
		Msg("Check deposited")

	return transition, nil
}
