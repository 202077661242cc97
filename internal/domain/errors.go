package domain

import "errors"

// Ledger error kinds. All are detected before any mutation is applied, so a
// failed operation leaves every entity unchanged. The money package
// contributes money.ErrInvalidAmount and money.ErrOverflow for the fixed-point
// domain itself.
var (
	// ErrCustomerNotFound indicates an unknown customer identifier.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrFundNotFound indicates an unknown fund identifier.
	ErrFundNotFound = errors.New("fund not found")

	// ErrPositionNotFound indicates an unknown position identifier.
	ErrPositionNotFound = errors.New("position not found")

	// ErrTransitionNotFound indicates an unknown transition reference.
	ErrTransitionNotFound = errors.New("transition not found")

	// ErrInsufficientBalance indicates the customer's available cash does not
	// cover the requested amount.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientShares indicates the customer does not hold enough shares
	// of the fund to cover a sell order.
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrAmountOutOfBounds indicates an order amount or published price outside
	// the configured transaction bounds.
	ErrAmountOutOfBounds = errors.New("amount out of bounds")

	// ErrInvalidExecutionDate indicates a price publication whose date is not
	// strictly after the fund's last transition day.
	ErrInvalidExecutionDate = errors.New("invalid execution date")

	// ErrInvalidDate indicates a malformed date string.
	ErrInvalidDate = errors.New("invalid date")

	// ErrUsernameTaken indicates a duplicate customer username.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrFundNameTaken indicates a duplicate fund name.
	ErrFundNameTaken = errors.New("fund name already exists")

	// ErrFundSymbolTaken indicates a duplicate fund symbol.
	ErrFundSymbolTaken = errors.New("fund symbol already exists")

	// ErrInvalidInput indicates a missing or malformed request field.
	ErrInvalidInput = errors.New("invalid input")
)
