// ===============================
// File: internal/curve/errors.go
// ===============================
package curve

import (
	"errors"
	"fmt"

	"github.com/rovshanmuradov/pumpcurve/internal/fixedmath"
)

// Kind identifies a rejected operation. Kinds implement error so callers can
// match them with errors.Is through any amount of wrapping.
type Kind uint16

// Codes follow the on-chain custom error numbering, which starts at 6000.
const (
	InvalidAdminAccount Kind = iota + 6000
	InvalidMigrationAuth
	SlippageExceeded
	InvalidBaseToken
	InvalidFeeWallet
	BondingCurveIsCompleted
	BondingCurveIsNotCompleted
	NotEnoughBaseToken
	NotEnoughQuoteToken
	DevBuyAmountIsTooSmall
	NotEnoughSolBalance
	InvalidInitialTokenTransferPercent
	OverflowEstimateOutQuote
	OverflowEstimateOutBase
	MathOverflow
	MathUnderflow
	MathDivisionByZero
	TokenConstraintError
	// InvalidOpenTime only holds code 6018; no operation here schedules an open time.
	InvalidOpenTime
	BondingCurveAlreadyMigrated
	InvalidSwapFee
	InvalidVirtualReserves
	MarketNotFound
	MarketAlreadyExists
)

var kindMessages = map[Kind]string{
	InvalidAdminAccount:                "invalid admin account",
	InvalidMigrationAuth:               "invalid migration authority",
	SlippageExceeded:                   "output below expected amount",
	InvalidBaseToken:                   "invalid base asset",
	InvalidFeeWallet:                   "invalid fee recipient",
	BondingCurveIsCompleted:            "bonding curve is completed",
	BondingCurveIsNotCompleted:         "bonding curve is not completed",
	NotEnoughBaseToken:                 "not enough base asset",
	NotEnoughQuoteToken:                "not enough quote asset",
	DevBuyAmountIsTooSmall:             "dev buy amount is too small",
	NotEnoughSolBalance:                "not enough native balance",
	InvalidInitialTokenTransferPercent: "invalid initial token transfer percent",
	OverflowEstimateOutQuote:           "quote output estimate overflow",
	OverflowEstimateOutBase:            "base output estimate overflow",
	MathOverflow:                       "math overflow",
	MathUnderflow:                      "math underflow",
	MathDivisionByZero:                 "math division by zero",
	TokenConstraintError:               "token ordering constraint violated",
	InvalidOpenTime:                    "invalid open time",
	BondingCurveAlreadyMigrated:        "bonding curve already migrated",
	InvalidSwapFee:                     "swap fee exceeds basis point max",
	InvalidVirtualReserves:             "virtual reserves must be non-zero",
	MarketNotFound:                     "market not found",
	MarketAlreadyExists:                "market already exists",
}

func (k Kind) Error() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return fmt.Sprintf("curve error %d", uint16(k))
}

// Code returns the numeric error code.
func (k Kind) Code() uint16 { return uint16(k) }

// Category groups kinds by the reason an operation was rejected.
type Category string

const (
	CategoryAuthorization Category = "authorization"
	CategoryPrecondition  Category = "precondition"
	CategoryArithmetic    Category = "arithmetic"
	CategoryEconomic      Category = "economic"
)

// Category reports which class of failure k belongs to.
func (k Kind) Category() Category {
	switch k {
	case InvalidAdminAccount, InvalidMigrationAuth:
		return CategoryAuthorization
	case OverflowEstimateOutQuote, OverflowEstimateOutBase, MathOverflow, MathUnderflow, MathDivisionByZero:
		return CategoryArithmetic
	case SlippageExceeded:
		return CategoryEconomic
	default:
		return CategoryPrecondition
	}
}

// Error is a rejected operation. It unwraps to both its Kind and the
// underlying cause, if any.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind.Error(), e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind.Error())
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op string, kind Kind) error {
	return &Error{Op: op, Kind: kind}
}

// Wrap returns an Error of kind for op that keeps err as its cause.
func Wrap(op string, kind Kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// mathError maps a fixedmath failure onto its kind, keeping the cause.
func mathError(op string, err error) error {
	switch {
	case errors.Is(err, fixedmath.ErrMathOverflow):
		return &Error{Op: op, Kind: MathOverflow, Err: err}
	case errors.Is(err, fixedmath.ErrMathUnderflow):
		return &Error{Op: op, Kind: MathUnderflow, Err: err}
	case errors.Is(err, fixedmath.ErrMathDivisionByZero):
		return &Error{Op: op, Kind: MathDivisionByZero, Err: err}
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// KindOf extracts the kind of a curve error.
func KindOf(err error) (Kind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	var k Kind
	if errors.As(err, &k) {
		return k, true
	}
	return 0, false
}

// ParseKind resolves a kind by its identifier, e.g. "SlippageExceeded".
func ParseKind(name string) (Kind, bool) {
	k, ok := kindNames[name]
	return k, ok
}

var kindNames = map[string]Kind{
	"InvalidAdminAccount":                InvalidAdminAccount,
	"InvalidMigrationAuth":               InvalidMigrationAuth,
	"SlippageExceeded":                   SlippageExceeded,
	"InvalidBaseToken":                   InvalidBaseToken,
	"InvalidFeeWallet":                   InvalidFeeWallet,
	"BondingCurveIsCompleted":            BondingCurveIsCompleted,
	"BondingCurveIsNotCompleted":         BondingCurveIsNotCompleted,
	"NotEnoughBaseToken":                 NotEnoughBaseToken,
	"NotEnoughQuoteToken":                NotEnoughQuoteToken,
	"DevBuyAmountIsTooSmall":             DevBuyAmountIsTooSmall,
	"NotEnoughSolBalance":                NotEnoughSolBalance,
	"InvalidInitialTokenTransferPercent": InvalidInitialTokenTransferPercent,
	"OverflowEstimateOutQuote":           OverflowEstimateOutQuote,
	"OverflowEstimateOutBase":            OverflowEstimateOutBase,
	"MathOverflow":                       MathOverflow,
	"MathUnderflow":                      MathUnderflow,
	"MathDivisionByZero":                 MathDivisionByZero,
	"TokenConstraintError":               TokenConstraintError,
	"InvalidOpenTime":                    InvalidOpenTime,
	"BondingCurveAlreadyMigrated":        BondingCurveAlreadyMigrated,
	"InvalidSwapFee":                     InvalidSwapFee,
	"InvalidVirtualReserves":             InvalidVirtualReserves,
	"MarketNotFound":                     MarketNotFound,
	"MarketAlreadyExists":                MarketAlreadyExists,
}
