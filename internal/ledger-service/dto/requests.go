package dto

import "github.com/invictos/bet-ledger/internal/ledger"

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateBetRequest is the write shape of a bet. The client may choose the id
// (required for offline-first replay idempotence by identifier); legs carry
// no ids, the server assigns them. Parlay odds are derived server-side from
// the legs.
type CreateBetRequest struct {
	ID        string            `json:"id,omitempty"`
	EventDate ledger.Date       `json:"event_date"`
	Type      ledger.BetType    `json:"type"`
	Detail    string            `json:"detail"`
	Stake     float64           `json:"stake"`
	Odds      float64           `json:"odds"`
	Cashout   *float64          `json:"cashout"`
	Outcome   ledger.Outcome    `json:"outcome"`
	Legs      []ledger.LegInput `json:"legs"`
}
