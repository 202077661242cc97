package customers

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deltastar/cfs/internal/domain"
	"github.com/deltastar/cfs/internal/testutil"
	"github.com/deltastar/cfs/pkg/money"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(testutil.OpenLedgerDB(t), zerolog.Nop())
}

func TestCreateAndGet(t *testing.T) {
	repo := newTestRepo(t)

	c := &domain.Customer{
		Username:     "alice",
		FirstName:    "Alice",
		LastName:     "Moore",
		AddressLine1: "1 Main St",
		City:         "Springfield",
		State:        "IL",
		Zipcode:      "62704",
	}
	require.NoError(t, repo.Create(c))
	assert.NotZero(t, c.ID)

	got, err := repo.GetByID(c.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "Alice Moore", got.DisplayName())
	assert.Equal(t, money.Amount(0), got.Cash)

	byName, err := repo.GetByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byName.ID)
}

func TestCreateDuplicateUsername(t *testing.T) {
	repo := newTestRepo(t)

	first := &domain.Customer{Username: "alice", FirstName: "Alice", LastName: "Moore"}
	require.NoError(t, repo.Create(first))

	dup := &domain.Customer{Username: "alice", FirstName: "Other", LastName: "Alice"}
	err := repo.Create(dup)
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)
}

func TestGetNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetByID(42)
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)

	_, err = repo.GetByUsername("nobody")
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestList(t *testing.T) {
	repo := newTestRepo(t)

	for _, username := range []string{"alice", "bob", "carol"} {
		c := &domain.Customer{Username: username, FirstName: "F", LastName: "L"}
		require.NoError(t, repo.Create(c))
	}

	all, err := repo.List()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alice", all[0].Username)
	assert.Equal(t, "carol", all[2].Username)
}

func TestUpdateBalances(t *testing.T) {
	repo := newTestRepo(t)

	c := &domain.Customer{Username: "alice", FirstName: "Alice", LastName: "Moore"}
	require.NoError(t, repo.Create(c))

	err := repo.UpdateBalances(c.ID,
		money.MustParse("600"), money.MustParse("100"), money.MustParse("50"))
	require.NoError(t, err)

	got, err := repo.GetByID(c.ID)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("600"), got.Cash)
	assert.Equal(t, money.MustParse("100"), got.CashToBeChecked)
	assert.Equal(t, money.MustParse("50"), got.CashToBeDeposited)
}

func TestUpdateBalancesNotFound(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.UpdateBalances(42, 0, 0, 0)
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestUpdateBalancesRejectsNegative(t *testing.T) {
	repo := newTestRepo(t)

	c := &domain.Customer{Username: "alice", FirstName: "Alice", LastName: "Moore"}
	require.NoError(t, repo.Create(c))

	// The CHECK constraints are the last line of defense under the services.
	err := repo.UpdateBalances(c.ID, money.MustParse("-1"), 0, 0)
	assert.Error(t, err)
}

func TestServiceCreate(t *testing.T) {
	repo := newTestRepo(t)
	service := NewService(repo, zerolog.Nop())

	created, err := service.Create(domain.Customer{
		Username:  "  alice  ",
		FirstName: "Alice",
		LastName:  "Moore",
		Cash:      money.MustParse("999"), // must be ignored
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", created.Username)
	assert.Equal(t, money.Amount(0), created.Cash)
}

func TestServiceCreateValidation(t *testing.T) {
	repo := newTestRepo(t)
	service := NewService(repo, zerolog.Nop())

	tests := []struct {
		name     string
		customer domain.Customer
	}{
		{"missing username", domain.Customer{FirstName: "A", LastName: "B"}},
		{"missing first name", domain.Customer{Username: "alice", LastName: "B"}},
		{"missing last name", domain.Customer{Username: "alice", FirstName: "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Create(tt.customer)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}
