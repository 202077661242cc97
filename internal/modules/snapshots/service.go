package snapshots

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/deltastar/cfs/internal/domain"
	"github.com/deltastar/cfs/internal/modules/customers"
	"github.com/deltastar/cfs/internal/modules/funds"
	"github.com/deltastar/cfs/internal/modules/positions"
	"github.com/deltastar/cfs/pkg/money"
)

// Breakdown is the msgpack payload of a snapshot: where the customer's total
// claim sits at snapshot time.
type Breakdown struct {
	Cash              int64           `msgpack:"cash"`
	CashToBeChecked   int64           `msgpack:"cash_to_be_checked"`
	CashToBeDeposited int64           `msgpack:"cash_to_be_deposited"`
	Positions         []PositionValue `msgpack:"positions"`
	Total             int64           `msgpack:"total"`
}

// PositionValue is one possessed holding valued at the fund's last price.
type PositionValue struct {
	FundID int64 `msgpack:"fund_id"`
	Shares int64 `msgpack:"shares"`
	Price  int64 `msgpack:"price"`
	Value  int64 `msgpack:"value"`
}

// Service computes and stores balance snapshots.
type Service struct {
	repo      *Repository
	customers *customers.Repository
	positions *positions.Repository
	funds     *funds.Repository
	log       zerolog.Logger
}

// NewService creates a new snapshot service.
func NewService(
	repo *Repository,
	customerRepo *customers.Repository,
	positionRepo *positions.Repository,
	fundRepo *funds.Repository,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		customers: customerRepo,
		positions: positionRepo,
		funds:     fundRepo,
		log:       log.With().Str("service", "snapshots").Logger(),
	}
}

// SnapshotAll records a snapshot for every customer for the given day.
func (s *Service) SnapshotAll(day domain.Day) error {
	if day.IsZero() {
		day = domain.DayOf(time.Now())
	}

	all, err := s.customers.List()
	if err != nil {
		return fmt.Errorf("failed to list customers for snapshot: %w", err)
	}

	for _, customer := range all {
		if err := s.snapshotCustomer(customer, day); err != nil {
			return err
		}
	}

	s.log.Info().Str("day", day.String()).Int("customers", len(all)).Msg("Balance snapshots recorded")
	return nil
}

func (s *Service) snapshotCustomer(customer domain.Customer, day domain.Day) error {
	held, err := s.positions.ListByCustomer(customer.ID, domain.PositionInPossession)
	if err != nil {
		return err
	}

	breakdown := Breakdown{
		Cash:              int64(customer.Cash),
		CashToBeChecked:   int64(customer.CashToBeChecked),
		CashToBeDeposited: int64(customer.CashToBeDeposited),
	}
	total := customer.Cash + customer.CashToBeChecked + customer.CashToBeDeposited

	for _, p := range held {
		fund, err := s.funds.GetByID(p.FundID)
		if err != nil {
			return err
		}
		// An unpriced fund values its positions at zero.
		value := money.Amount(0)
		if fund.LastPrice > 0 {
			value, err = money.CashFromShares(p.Shares, fund.LastPrice)
			if err != nil {
				return fmt.Errorf("valuing position %d: %w", p.ID, err)
			}
		}
		total += value
		breakdown.Positions = append(breakdown.Positions, PositionValue{
			FundID: p.FundID,
			Shares: int64(p.Shares),
			Price:  int64(fund.LastPrice),
			Value:  int64(value),
		})
	}

	breakdown.Total = int64(total)
	payload, err := msgpack.Marshal(breakdown)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot for customer %d: %w", customer.ID, err)
	}

	return s.repo.Upsert(customer.ID, day, total, payload)
}
