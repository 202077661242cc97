// Package execution implements the daily settlement batch: publishing fund
// prices for an execution day and advancing every eligible pending transition
// to its terminal state.
package execution

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/deltastar/cfs/internal/database"
	"github.com/deltastar/cfs/internal/domain"
	"github.com/deltastar/cfs/internal/modules/customers"
	"github.com/deltastar/cfs/internal/modules/funds"
	"github.com/deltastar/cfs/internal/modules/ledger"
	"github.com/deltastar/cfs/internal/modules/orders"
	"github.com/deltastar/cfs/internal/modules/positions"
	"github.com/deltastar/cfs/pkg/money"
)

// Service implements the execution batch.
type Service struct {
	db          *sql.DB
	customers   *customers.Repository
	funds       *funds.Repository
	positions   *positions.Repository
	transitions *ledger.TransitionRepository
	bounds      orders.Bounds
	log         zerolog.Logger
}

// NewService creates a new execution batch service.
func NewService(
	db *sql.DB,
	customerRepo *customers.Repository,
	fundRepo *funds.Repository,
	positionRepo *positions.Repository,
	transitionRepo *ledger.TransitionRepository,
	bounds orders.Bounds,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:          db,
		customers:   customerRepo,
		funds:       fundRepo,
		positions:   positionRepo,
		transitions: transitionRepo,
		bounds:      bounds,
		log:         log.With().Str("service", "execution").Logger(),
	}
}

// ExecuteDay publishes one price per fund entry for the given day and settles
// all eligible pending transitions. The whole invocation is one transaction.
//
// Check transitions (DEPOSIT_CHECK, REQUEST_CHECK) are not fund-scoped and
// settle exactly once per invocation, before the per-fund loop.
//
// Fund entries are independent of each other: each one is validated (price
// bounds, fund exists, date strictly after the fund's last transition day)
// before any of its mutations, so a failed entry contributes an error result
// and no changes while the rest of the batch proceeds. Errors after an entry's
// validation passed (storage faults, share-count overflow) abort and roll back
// the whole invocation.
func (s *Service) ExecuteDay(entries []domain.PriceEntry, date domain.Day) ([]domain.ExecutionResult, error) {
	if date.IsZero() {
		return nil, domain.ErrInvalidDate
	}

	results := make([]domain.ExecutionResult, len(entries))

	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		if err := s.settleChecks(tx, date); err != nil {
			return err
		}

		for i, entry := range entries {
			results[i] = domain.ExecutionResult{FundID: entry.FundID}

			fund, err := s.validateEntry(tx, entry, date)
			if err != nil {
				results[i].Err = err
				results[i].Error = err.Error()
				continue
			}

			settled, err := s.settleFund(tx, fund, entry.Price, date)
			if err != nil {
				// Past validation every failure is a fault, not a bad entry.
				// Returning it rolls back the whole invocation.
				return err
			}
			results[i].Settled = settled
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, res := range results {
		if res.Err != nil {
			s.log.Warn().Int64("fund_id", res.FundID).Str("date", date.String()).
				Err(res.Err).Msg("Fund entry skipped")
		} else {
			s.log.Info().Int64("fund_id", res.FundID).Str("date", date.String()).
				Int("settled", res.Settled).Msg("Fund settled")
		}
	}

	return results, nil
}

// settleChecks settles all pending check transitions. Deposits move reserved
// cash into the available balance; check requests burn the reservation (the
// money has left the system).
func (s *Service) settleChecks(tx *sql.Tx, date domain.Day) error {
	pending, err := s.transitions.WithTx(tx).ListPending()
	if err != nil {
		return err
	}

	for _, t := range pending {
		switch t.Type {
		case domain.TransitionDepositCheck:
			customer, err := s.customers.WithTx(tx).GetByID(t.CustomerID)
			if err != nil {
				return err
			}
			err = s.customers.WithTx(tx).UpdateBalances(customer.ID,
				customer.Cash+t.Amount, customer.CashToBeChecked, customer.CashToBeDeposited-t.Amount)
			if err != nil {
				return err
			}
			if err := s.transitions.WithTx(tx).MarkDone(t.ID, date); err != nil {
				return err
			}

		case domain.TransitionRequestCheck:
			customer, err := s.customers.WithTx(tx).GetByID(t.CustomerID)
			if err != nil {
				return err
			}
			err = s.customers.WithTx(tx).UpdateBalances(customer.ID,
				customer.Cash, customer.CashToBeChecked-t.Amount, customer.CashToBeDeposited)
			if err != nil {
				return err
			}
			if err := s.transitions.WithTx(tx).MarkDone(t.ID, date); err != nil {
				return err
			}
		}
	}

	return nil
}

// validateEntry checks a price entry before any of its mutations: price within
// bounds, fund exists, date strictly after the fund's last transition day.
func (s *Service) validateEntry(tx *sql.Tx, entry domain.PriceEntry, date domain.Day) (*domain.Fund, error) {
	if !s.bounds.Contains(entry.Price) {
		return nil, fmt.Errorf("%w: price %s outside [%s, %s]",
			domain.ErrAmountOutOfBounds, entry.Price, s.bounds.Min, s.bounds.Max)
	}

	fund, err := s.funds.WithTx(tx).GetByID(entry.FundID)
	if err != nil {
		return nil, err
	}

	// Monotonicity guard: a fund's execution days strictly increase. Same-day
	// republication is rejected, so a day can never be settled twice.
	if !date.After(fund.LastTransitionDay) {
		return nil, fmt.Errorf("%w: %s is not after last transition day %s",
			domain.ErrInvalidExecutionDate, date, fund.LastTransitionDay)
	}

	return fund, nil
}

// settleFund records a validated price and settles all pending BUY/SELL
// transitions for the fund. It returns the number of settled transitions.
func (s *Service) settleFund(tx *sql.Tx, fund *domain.Fund, price money.Amount, date domain.Day) (int, error) {
	if err := s.funds.WithTx(tx).AddPriceHistory(fund.ID, price, date); err != nil {
		return 0, err
	}
	if err := s.funds.WithTx(tx).UpdatePrice(fund.ID, price, date); err != nil {
		return 0, err
	}

	pending, err := s.transitions.WithTx(tx).ListPending()
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, t := range pending {
		if t.FundID != fund.ID {
			continue
		}
		switch t.Type {
		case domain.TransitionBuy:
			err = s.settleBuy(tx, t, price, date)
		case domain.TransitionSell:
			err = s.settleSell(tx, t, price, date)
		default:
			continue
		}
		if err != nil {
			return settled, err
		}
		settled++
	}

	return settled, nil
}

// settleBuy converts a pending buy's reserved cash into shares at the
// published price. If the customer already possesses the fund the shares merge
// into the existing holding and the placeholder position is discarded;
// otherwise the placeholder is promoted to IN_POSSESSION.
func (s *Service) settleBuy(tx *sql.Tx, t domain.Transition, price money.Amount, date domain.Day) error {
	shares, err := money.SharesFromAmount(t.Amount, price)
	if err != nil {
		return fmt.Errorf("buy transition %s: %w", t.Ref, err)
	}

	possessed, err := s.positions.WithTx(tx).GetPossessed(t.CustomerID, t.FundID)
	if err != nil {
		return err
	}

	if possessed == nil {
		if err := s.positions.WithTx(tx).Promote(t.PositionID, shares); err != nil {
			return err
		}
	} else {
		if err := s.positions.WithTx(tx).UpdateShares(possessed.ID, possessed.Shares+shares); err != nil {
			return err
		}
		// The transition must point at the surviving holding before the
		// placeholder row goes, or the foreign key rejects the delete.
		if err := s.transitions.WithTx(tx).Reassign(t.ID, possessed.ID); err != nil {
			return err
		}
		if err := s.positions.WithTx(tx).Delete(t.PositionID); err != nil {
			return err
		}
	}

	return s.transitions.WithTx(tx).MarkDone(t.ID, date)
}

// settleSell converts a pending sell's reserved shares into cash at the
// published price. The TO_BE_SOLD position becomes SOLD and the realized
// proceeds are recorded on the transition.
func (s *Service) settleSell(tx *sql.Tx, t domain.Transition, price money.Amount, date domain.Day) error {
	cash, err := money.CashFromShares(t.Shares, price)
	if err != nil {
		return fmt.Errorf("sell transition %s: %w", t.Ref, err)
	}

	customer, err := s.customers.WithTx(tx).GetByID(t.CustomerID)
	if err != nil {
		return err
	}
	err = s.customers.WithTx(tx).UpdateBalances(customer.ID,
		customer.Cash+cash, customer.CashToBeChecked, customer.CashToBeDeposited)
	if err != nil {
		return err
	}

	if err := s.positions.WithTx(tx).UpdateStatus(t.PositionID, domain.PositionSold); err != nil {
		return err
	}

	return s.transitions.WithTx(tx).MarkDoneWithAmount(t.ID, date, cash)
}
