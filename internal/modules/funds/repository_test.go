package funds

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

func seedFund(t *testing.T, repo *Repository, symbol, name string) *domain.Fund {
	t.Helper()
	f := &domain.Fund{Symbol: symbol, Name: name}
	require.NoError(t, repo.Create(f))
	return f
}

func TestCreateAndGet(t *testing.T) {
	repo := newTestRepo(t)
	f := seedFund(t, repo, "VTSAX", "Total Stock Market Index")

	got, err := repo.GetByID(f.ID)
	require.NoError(t, err)
	assert.Equal(t, "VTSAX", got.Symbol)
	assert.True(t, got.LastTransitionDay.IsZero())
	assert.Equal(t, money.Amount(0), got.LastPrice)

	bySymbol, err := repo.GetBySymbol("VTSAX")
	require.NoError(t, err)
	assert.Equal(t, f.ID, bySymbol.ID)

	byName, err := repo.GetByName("Total Stock Market Index")
	require.NoError(t, err)
	assert.Equal(t, f.ID, byName.ID)
}

func TestGetNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetByID(42)
	assert.ErrorIs(t, err, domain.ErrFundNotFound)

	_, err = repo.GetBySymbol("NOPE")
	assert.ErrorIs(t, err, domain.ErrFundNotFound)
}

func TestListAndSearch(t *testing.T) {
	repo := newTestRepo(t)
	seedFund(t, repo, "VTSAX", "Total Stock Market Index")
	seedFund(t, repo, "VBTLX", "Total Bond Market Index")
	seedFund(t, repo, "GRWTH", "Aggressive Growth")

	all, err := repo.List()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "GRWTH", all[0].Symbol) // ordered by symbol

	matches, err := repo.Search("Total")
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	matches, err = repo.Search("VTS")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "VTSAX", matches[0].Symbol)
}

func TestUpdatePriceAndHistory(t *testing.T) {
	repo := newTestRepo(t)
	f := seedFund(t, repo, "VTSAX", "Total Stock Market Index")

	require.NoError(t, repo.AddPriceHistory(f.ID, money.MustParse("50"), "2026-01-05"))
	require.NoError(t, repo.UpdatePrice(f.ID, money.MustParse("50"), "2026-01-05"))
	require.NoError(t, repo.AddPriceHistory(f.ID, money.MustParse("52.5"), "2026-01-06"))
	require.NoError(t, repo.UpdatePrice(f.ID, money.MustParse("52.5"), "2026-01-06"))

	got, err := repo.GetByID(f.ID)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("52.5"), got.LastPrice)
	assert.Equal(t, domain.Day("2026-01-06"), got.LastTransitionDay)

	history, err := repo.PriceHistory(f.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.Day("2026-01-05"), history[0].PriceDate)
	assert.Equal(t, money.MustParse("52.5"), history[1].Price)
}

func TestUpdatePriceNotFound(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.UpdatePrice(42, money.MustParse("50"), "2026-01-05")
	assert.ErrorIs(t, err, domain.ErrFundNotFound)
}

func TestAddPriceHistoryRejectsDuplicateDay(t *testing.T) {
	repo := newTestRepo(t)
	f := seedFund(t, repo, "VTSAX", "Total Stock Market Index")

	require.NoError(t, repo.AddPriceHistory(f.ID, money.MustParse("50"), "2026-01-05"))
	err := repo.AddPriceHistory(f.ID, money.MustParse("51"), "2026-01-05")
	assert.Error(t, err)
}

func TestServiceCreate(t *testing.T) {
	repo := newTestRepo(t)
	service := NewService(repo, zerolog.Nop())

	fund, err := service.Create("Total Stock Market Index", "VTSAX", "broad market")
	require.NoError(t, err)
	assert.NotZero(t, fund.ID)

	_, err = service.Create("Total Stock Market Index", "OTHER", "")
	assert.ErrorIs(t, err, domain.ErrFundNameTaken)

	_, err = service.Create("Another Fund", "VTSAX", "")
	assert.ErrorIs(t, err, domain.ErrFundSymbolTaken)

	_, err = service.Create("", "SYM", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestServiceSearchRequiresKeyword(t *testing.T) {
	repo := newTestRepo(t)
	service := NewService(repo, zerolog.Nop())

	_, err := service.Search("   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestServicePriceHistoryUnknownFund(t *testing.T) {
	repo := newTestRepo(t)
	service := NewService(repo, zerolog.Nop())

	_, err := service.PriceHistory(42)
	assert.ErrorIs(t, err, domain.ErrFundNotFound)
}
