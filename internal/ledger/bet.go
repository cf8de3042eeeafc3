package ledger

import (
	"errors"
	"fmt"
	"time"
)

// BetType distinguishes a straight bet from a multi-leg parlay.
type BetType string

const (
	TypeSingle BetType = "single"
	TypeParlay BetType = "parlay"
)

// Outcome is the settled (or not yet settled) result of a bet.
type Outcome string

const (
	OutcomeWon     Outcome = "won"
	OutcomeLost    Outcome = "lost"
	OutcomePending Outcome = "pending"
)

// ParlayLeg is a single selection inside a parlay. Legs are owned by their
// parent Bet: deleting the bet or replacing its legs wholesale destroys them.
type ParlayLeg struct {
	ID     string  `json:"id"`
	Detail string  `json:"detail"`
	Odds   float64 `json:"odds"`
}

// Bet is a single entry in the ledger.
//
// For parlays, Odds is always derived as the product of the leg odds and the
// bet carries at least two legs. For singles, Legs is empty.
type Bet struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id,omitempty"`
	EventDate Date        `json:"event_date"`
	Type      BetType     `json:"type"`
	Detail    string      `json:"detail"`
	Stake     float64     `json:"stake"`
	Odds      float64     `json:"odds"`
	Cashout   *float64    `json:"cashout"`
	Outcome   Outcome     `json:"outcome"`
	Legs      []ParlayLeg `json:"legs"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// GrossReturn is the realized return of the bet. A present cashout wins over
// everything else, even when it is zero: cashing out for nothing is a settled
// result, not a pending one. Otherwise a won bet pays stake times odds and
// anything else pays nothing.
func GrossReturn(b Bet) float64 {
	if b.Cashout != nil {
		return *b.Cashout
	}
	if b.Outcome == OutcomeWon {
		return b.Stake * b.Odds
	}
	return 0
}

// Net is the gross return minus the stake.
func Net(b Bet) float64 {
	return GrossReturn(b) - b.Stake
}

// ErrValidation marks local precondition failures, rejected before any
// network or queue interaction.
var ErrValidation = errors.New("validation failed")

func errValidationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// Validate checks the ledger invariants for a bet about to be recorded.
func Validate(b Bet) error {
	if b.Detail == "" {
		return fmt.Errorf("%w: detail is required", ErrValidation)
	}
	if b.Stake <= 0 {
		return fmt.Errorf("%w: stake must be > 0", ErrValidation)
	}
	if b.Cashout != nil && *b.Cashout < 0 {
		return fmt.Errorf("%w: cashout must be >= 0", ErrValidation)
	}
	switch b.Outcome {
	case OutcomeWon, OutcomeLost, OutcomePending:
	default:
		return fmt.Errorf("%w: unknown outcome %q", ErrValidation, b.Outcome)
	}
	switch b.Type {
	case TypeSingle:
		if len(b.Legs) != 0 {
			return fmt.Errorf("%w: single bet cannot carry legs", ErrValidation)
		}
		if b.Odds <= 1 {
			return fmt.Errorf("%w: odds must be > 1", ErrValidation)
		}
	case TypeParlay:
		if len(b.Legs) < 2 {
			return fmt.Errorf("%w: parlay needs at least 2 legs", ErrValidation)
		}
		for _, leg := range b.Legs {
			if leg.Detail == "" {
				return fmt.Errorf("%w: parlay leg needs a detail", ErrValidation)
			}
			if leg.Odds <= 1 {
				return fmt.Errorf("%w: parlay leg odds must be > 1", ErrValidation)
			}
		}
	default:
		return fmt.Errorf("%w: unknown bet type %q", ErrValidation, b.Type)
	}
	return nil
}
