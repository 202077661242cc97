// Package domain provides the core ledger entities and their state machines.
package domain

import (
	"time"

	"github.com/deltastar/cfs/pkg/money"
)

// PositionStatus is the lifecycle state of a position.
// TO_BE_BOUGHT and TO_BE_SOLD positions are transient (one per open order);
// a customer has at most one IN_POSSESSION position per fund.
type PositionStatus string

const (
	PositionToBeBought   PositionStatus = "TO_BE_BOUGHT"
	PositionInPossession PositionStatus = "IN_POSSESSION"
	PositionToBeSold     PositionStatus = "TO_BE_SOLD"
	PositionSold         PositionStatus = "SOLD"
)

// Valid reports whether s is a known position status.
func (s PositionStatus) Valid() bool {
	switch s {
	case PositionToBeBought, PositionInPossession, PositionToBeSold, PositionSold:
		return true
	}
	return false
}

// TransitionType is the kind of order a transition records.
type TransitionType string

const (
	TransitionBuy          TransitionType = "BUY"
	TransitionSell         TransitionType = "SELL"
	TransitionDepositCheck TransitionType = "DEPOSIT_CHECK"
	TransitionRequestCheck TransitionType = "REQUEST_CHECK"
)

// TransitionStatus is the settlement state of a transition. A DONE transition
// is immutable history and is never mutated or deleted.
type TransitionStatus string

const (
	TransitionPending TransitionStatus = "PENDING"
	TransitionDone    TransitionStatus = "DONE"
)

// Customer represents an account holder. Cash is the available balance;
// CashToBeChecked and CashToBeDeposited are reservations for pending check
// withdrawals and deposits. Cash never goes negative: every order reserves
// synchronously at intake.
type Customer struct {
	ID                int64        `json:"id"`
	Username          string       `json:"username"`
	FirstName         string       `json:"first_name"`
	LastName          string       `json:"last_name"`
	AddressLine1      string       `json:"address_line1"`
	AddressLine2      string       `json:"address_line2"`
	City              string       `json:"city"`
	State             string       `json:"state"`
	Zipcode           string       `json:"zipcode"`
	Cash              money.Amount `json:"cash"`
	CashToBeChecked   money.Amount `json:"cash_to_be_checked"`
	CashToBeDeposited money.Amount `json:"cash_to_be_deposited"`
	CreatedAt         time.Time    `json:"created_at"`
}

// DisplayName returns the customer's full name for logs and views.
func (c Customer) DisplayName() string {
	return c.FirstName + " " + c.LastName
}

// Fund represents a mutual fund. LastPrice is the most recent settled price;
// LastTransitionDay is the day of the most recent price publication and is
// strictly monotonically increasing across publications.
type Fund struct {
	ID                int64        `json:"id"`
	Symbol            string       `json:"symbol"`
	Name              string       `json:"name"`
	Comment           string       `json:"comment"`
	LastPrice         money.Amount `json:"last_price"`
	LastTransitionDay Day          `json:"last_transition_day"`
	CreatedAt         time.Time    `json:"created_at"`
}

// Position is a customer's holding (or pending holding) in a fund.
type Position struct {
	ID         int64          `json:"id"`
	CustomerID int64          `json:"customer_id"`
	FundID     int64          `json:"fund_id"`
	Status     PositionStatus `json:"status"`
	Shares     money.Amount   `json:"shares"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Transition is the unit of the ledger's history. FundID and PositionID are 0
// for check transitions, which reference neither. Amount carries the cash side
// of the order (for SELL it is filled with the realized proceeds at
// settlement); Shares carries the share side. ExecuteDate is set exactly once,
// when the transition settles.
type Transition struct {
	ID          int64            `json:"id"`
	Ref         string           `json:"ref"` // external UUID reference
	CustomerID  int64            `json:"customer_id"`
	FundID      int64            `json:"fund_id,omitempty"`
	PositionID  int64            `json:"position_id,omitempty"`
	Type        TransitionType   `json:"type"`
	Status      TransitionStatus `json:"status"`
	Amount      money.Amount     `json:"amount"`
	Shares      money.Amount     `json:"shares"`
	ExecuteDate Day              `json:"execute_date,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// FundPriceHistory is one published price for a fund on an execution day.
type FundPriceHistory struct {
	ID        int64        `json:"id"`
	FundID    int64        `json:"fund_id"`
	Price     money.Amount `json:"price"`
	PriceDate Day          `json:"price_date"`
}

// PriceEntry is one (fund, price) pair submitted to an execution day.
type PriceEntry struct {
	FundID int64
	Price  money.Amount
}

// ExecutionResult reports the outcome of settling one price entry.
// A failed entry carries its error; entries are independent of each other.
type ExecutionResult struct {
	FundID  int64  `json:"fund_id"`
	Settled int    `json:"settled"`
	Err     error  `json:"-"`
	Error   string `json:"error,omitempty"`
}
