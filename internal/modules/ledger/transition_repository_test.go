package ledger

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deltastar/cfs/internal/domain"
	"github.com/deltastar/cfs/internal/testutil"
	"github.com/deltastar/cfs/pkg/money"
)

func newTestRepo(t *testing.T) (*TransitionRepository, *sql.DB) {
	t.Helper()
	db := testutil.OpenLedgerDB(t)
	return NewTransitionRepository(db, zerolog.Nop()), db
}

func seedCustomer(t *testing.T, db *sql.DB, username string) int64 {
	t.Helper()
	res, err := db.Exec(
		"INSERT INTO customers (username, created_at) VALUES (?, ?)", username, time.Now().Unix())
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func TestCreateAssignsRef(t *testing.T) {
	repo, db := newTestRepo(t)
	customerID := seedCustomer(t, db, "alice")

	transition := &domain.Transition{
		CustomerID: customerID,
		Type:       domain.TransitionDepositCheck,
		Status:     domain.TransitionPending,
		Amount:     money.MustParse("350"),
	}
	require.NoError(t, repo.Create(transition))
	assert.NotZero(t, transition.ID)
	assert.NotEmpty(t, transition.Ref)

	got, err := repo.GetByRef(transition.Ref)
	require.NoError(t, err)
	assert.Equal(t, transition.ID, got.ID)
	assert.Equal(t, money.MustParse("350"), got.Amount)
	assert.Zero(t, got.FundID)
	assert.True(t, got.ExecuteDate.IsZero())
}

func TestCreateKeepsCallerRef(t *testing.T) {
	repo, db := newTestRepo(t)
	customerID := seedCustomer(t, db, "alice")

	transition := &domain.Transition{
		Ref:        "fixed-ref",
		CustomerID: customerID,
		Type:       domain.TransitionRequestCheck,
		Status:     domain.TransitionPending,
	}
	require.NoError(t, repo.Create(transition))
	assert.Equal(t, "fixed-ref", transition.Ref)
}

func TestGetByRefNotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.GetByRef("missing")
	assert.ErrorIs(t, err, domain.ErrTransitionNotFound)
}

func TestListPendingOrder(t *testing.T) {
	repo, db := newTestRepo(t)
	customerID := seedCustomer(t, db, "alice")

	for i := 0; i < 3; i++ {
		transition := &domain.Transition{
			CustomerID: customerID,
			Type:       domain.TransitionDepositCheck,
			Status:     domain.TransitionPending,
		}
		require.NoError(t, repo.Create(transition))
	}
	done := &domain.Transition{
		CustomerID: customerID,
		Type:       domain.TransitionDepositCheck,
		Status:     domain.TransitionDone,
	}
	require.NoError(t, repo.Create(done))

	pending, err := repo.ListPending()
	require.NoError(t, err)
	require.Len(t, pending, 3)
	// Creation order: settlement walks pending transitions oldest first.
	assert.Less(t, pending[0].ID, pending[1].ID)
	assert.Less(t, pending[1].ID, pending[2].ID)
}

func TestListByCustomerNewestFirst(t *testing.T) {
	repo, db := newTestRepo(t)
	alice := seedCustomer(t, db, "alice")
	bob := seedCustomer(t, db, "bob")

	for _, customerID := range []int64{alice, bob, alice} {
		transition := &domain.Transition{
			CustomerID: customerID,
			Type:       domain.TransitionDepositCheck,
			Status:     domain.TransitionPending,
		}
		require.NoError(t, repo.Create(transition))
	}

	list, err := repo.ListByCustomer(alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Greater(t, list[0].ID, list[1].ID)
}

func TestListAllLimit(t *testing.T) {
	repo, db := newTestRepo(t)
	customerID := seedCustomer(t, db, "alice")

	for i := 0; i < 5; i++ {
		transition := &domain.Transition{
			CustomerID: customerID,
			Type:       domain.TransitionDepositCheck,
			Status:     domain.TransitionPending,
		}
		require.NoError(t, repo.Create(transition))
	}

	list, err := repo.ListAll(3)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	list, err = repo.ListAll(0) // default limit
	require.NoError(t, err)
	assert.Len(t, list, 5)
}

func TestMarkDoneSettlesExactlyOnce(t *testing.T) {
	repo, db := newTestRepo(t)
	customerID := seedCustomer(t, db, "alice")

	transition := &domain.Transition{
		CustomerID: customerID,
		Type:       domain.TransitionDepositCheck,
		Status:     domain.TransitionPending,
	}
	require.NoError(t, repo.Create(transition))

	require.NoError(t, repo.MarkDone(transition.ID, "2026-01-05"))

	got, err := repo.GetByRef(transition.Ref)
	require.NoError(t, err)
	assert.Equal(t, domain.TransitionDone, got.Status)
	assert.Equal(t, domain.Day("2026-01-05"), got.ExecuteDate)

	// A DONE transition cannot settle again.
	err = repo.MarkDone(transition.ID, "2026-01-06")
	assert.ErrorIs(t, err, domain.ErrTransitionNotFound)

	got, err = repo.GetByRef(transition.Ref)
	require.NoError(t, err)
	assert.Equal(t, domain.Day("2026-01-05"), got.ExecuteDate)
}

func TestMarkDoneWithAmount(t *testing.T) {
	repo, db := newTestRepo(t)
	customerID := seedCustomer(t, db, "alice")

	transition := &domain.Transition{
		CustomerID: customerID,
		Type:       domain.TransitionSell,
		Status:     domain.TransitionPending,
		Shares:     money.MustParse("4"),
	}
	require.NoError(t, repo.Create(transition))

	require.NoError(t, repo.MarkDoneWithAmount(transition.ID, "2026-01-05", money.MustParse("100")))

	got, err := repo.GetByRef(transition.Ref)
	require.NoError(t, err)
	assert.Equal(t, domain.TransitionDone, got.Status)
	assert.Equal(t, money.MustParse("100"), got.Amount)
	assert.Equal(t, money.MustParse("4"), got.Shares)
}
