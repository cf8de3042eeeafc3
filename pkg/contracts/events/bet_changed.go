package events

// BetChanged is published by the ledger service whenever a bet is created,
// updated or deleted. Consumed by the audit worker.
type BetChanged struct {
	BetID    string `json:"bet_id"`
	UserID   string `json:"user_id"`
	Action   string `json:"action"` // "created" | "updated" | "deleted"
	Detail   string `json:"detail,omitempty"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)
