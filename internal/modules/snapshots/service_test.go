package snapshots

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/deltastar/cfs/internal/domain"
	"github.com/deltastar/cfs/internal/modules/customers"
	"github.com/deltastar/cfs/internal/modules/funds"
	"github.com/deltastar/cfs/internal/modules/positions"
	"github.com/deltastar/cfs/internal/testutil"
	"github.com/deltastar/cfs/pkg/money"
)

func TestSnapshotAll(t *testing.T) {
	db := testutil.OpenLedgerDB(t)
	log := zerolog.Nop()

	customerRepo := customers.NewRepository(db, log)
	fundRepo := funds.NewRepository(db, log)
	positionRepo := positions.NewRepository(db, log)
	repo := NewRepository(db, log)
	service := NewService(repo, customerRepo, positionRepo, fundRepo, log)

	customer := &domain.Customer{Username: "alice", FirstName: "Alice", LastName: "Moore"}
	require.NoError(t, customerRepo.Create(customer))
	require.NoError(t, customerRepo.UpdateBalances(customer.ID,
		money.MustParse("600"), money.MustParse("100"), money.MustParse("50")))

	fund := &domain.Fund{Symbol: "VTSAX", Name: "Total Market"}
	require.NoError(t, fundRepo.Create(fund))
	require.NoError(t, fundRepo.UpdatePrice(fund.ID, money.MustParse("50"), "2026-01-05"))

	held := &domain.Position{
		CustomerID: customer.ID,
		FundID:     fund.ID,
		Status:     domain.PositionInPossession,
		Shares:     money.MustParse("8"),
	}
	require.NoError(t, positionRepo.Create(held))

	require.NoError(t, service.SnapshotAll("2026-01-05"))

	list, err := repo.ListByCustomer(customer.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// 600 cash + 100 checked + 50 deposited + 8 shares at 50 = 1150.
	assert.Equal(t, domain.Day("2026-01-05"), list[0].Day)
	assert.Equal(t, money.MustParse("1150"), list[0].TotalValue)

	var breakdown Breakdown
	require.NoError(t, msgpack.Unmarshal(list[0].Payload, &breakdown))
	assert.Equal(t, int64(money.MustParse("600")), breakdown.Cash)
	require.Len(t, breakdown.Positions, 1)
	assert.Equal(t, int64(money.MustParse("400")), breakdown.Positions[0].Value)
	assert.Equal(t, int64(money.MustParse("1150")), breakdown.Total)
}

func TestSnapshotUpsertSameDay(t *testing.T) {
	db := testutil.OpenLedgerDB(t)
	log := zerolog.Nop()

	customerRepo := customers.NewRepository(db, log)
	fundRepo := funds.NewRepository(db, log)
	positionRepo := positions.NewRepository(db, log)
	repo := NewRepository(db, log)
	service := NewService(repo, customerRepo, positionRepo, fundRepo, log)

	customer := &domain.Customer{Username: "alice", FirstName: "Alice", LastName: "Moore"}
	require.NoError(t, customerRepo.Create(customer))
	require.NoError(t, customerRepo.UpdateBalances(customer.ID, money.MustParse("100"), 0, 0))

	require.NoError(t, service.SnapshotAll("2026-01-05"))

	require.NoError(t, customerRepo.UpdateBalances(customer.ID, money.MustParse("250"), 0, 0))
	require.NoError(t, service.SnapshotAll("2026-01-05"))

	list, err := repo.ListByCustomer(customer.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, money.MustParse("250"), list[0].TotalValue)
}
