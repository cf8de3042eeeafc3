package topics

const (
	// Bet ledger mutations
	BetChanged = "bet_changed"

	// DLQs
	BetChangedDLQ = "bet_changed_dlq"
)
