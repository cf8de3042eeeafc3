package dto

import (
	"time"

	"github.com/invictos/bet-ledger/internal/ledger"
)

type UserRead struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

type AuthResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        UserRead `json:"user"`
}

// SyncResponse carries every bet updated at or after the requested
// watermark plus the fresh server timestamp to store as the next one.
type SyncResponse struct {
	LastSync time.Time    `json:"last_sync"`
	Items    []ledger.Bet `json:"items"`
}

// ErrorResponse is the uniform error body: {"detail": "..."}.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
