package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deltastar/cfs/internal/domain"
	"github.com/deltastar/cfs/internal/modules/customers"
	"github.com/deltastar/cfs/internal/modules/execution"
	"github.com/deltastar/cfs/internal/modules/funds"
	"github.com/deltastar/cfs/internal/modules/ledger"
	"github.com/deltastar/cfs/internal/modules/orders"
	"github.com/deltastar/cfs/internal/modules/positions"
	"github.com/deltastar/cfs/internal/testutil"
	"github.com/deltastar/cfs/pkg/money"
)

type fixture struct {
	router    *chi.Mux
	customers *customers.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.OpenLedgerDB(t)
	log := zerolog.Nop()
	bounds := orders.Bounds{Min: money.MustParse("0.001"), Max: money.MustParse("1000000")}

	customerRepo := customers.NewRepository(db, log)
	fundRepo := funds.NewRepository(db, log)
	positionRepo := positions.NewRepository(db, log)
	transitionRepo := ledger.NewTransitionRepository(db, log)

	orderService := orders.NewService(db, customerRepo, fundRepo, positionRepo, transitionRepo, bounds, log)
	executionService := execution.NewService(db, customerRepo, fundRepo, positionRepo, transitionRepo, bounds, log)

	customer := &domain.Customer{Username: "alice", FirstName: "Alice", LastName: "Moore"}
	require.NoError(t, customerRepo.Create(customer))
	require.NoError(t, customerRepo.UpdateBalances(customer.ID, money.MustParse("1000"), 0, 0))

	fund := &domain.Fund{Symbol: "VTSAX", Name: "Total Market"}
	require.NoError(t, fundRepo.Create(fund))

	_, err := orderService.Buy(customer.ID, fund.ID, money.MustParse("400"))
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Route("/execution", NewHandler(executionService, log).Routes)

	return &fixture{router: router, customers: customerRepo}
}

func (f *fixture) post(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/execution/day", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleExecuteDay(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, `{"date": "2026-01-05", "prices": [{"fund_id": 1, "price": "50.000"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Data struct {
			Date    string                   `json:"date"`
			Results []domain.ExecutionResult `json:"results"`
			Settled int                      `json:"settled"`
			Failed  int                      `json:"failed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "2026-01-05", response.Data.Date)
	assert.Equal(t, 1, response.Data.Settled)
	assert.Equal(t, 0, response.Data.Failed)
	require.Len(t, response.Data.Results, 1)
	assert.Empty(t, response.Data.Results[0].Error)

	customer, err := f.customers.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("600"), customer.Cash)
}

func TestHandleExecuteDayReportsFailedEntries(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, `{"date": "2026-01-05", "prices": [{"fund_id": 99, "price": "50.000"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Data struct {
			Results []domain.ExecutionResult `json:"results"`
			Failed  int                      `json:"failed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Data.Failed)
	require.Len(t, response.Data.Results, 1)
	assert.NotEmpty(t, response.Data.Results[0].Error)
}

func TestHandleExecuteDayBadRequests(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing date", `{"prices": []}`},
		{"malformed date", `{"date": "01/05/2026", "prices": []}`},
		{"bad price", `{"date": "2026-01-05", "prices": [{"fund_id": 1, "price": "abc"}]}`},
		{"malformed body", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.post(t, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
