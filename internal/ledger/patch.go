package ledger

// LegInput is a leg as supplied on write: the server assigns leg ids.
type LegInput struct {
	Detail string  `json:"detail"`
	Odds   float64 `json:"odds"`
}

// BetPatch is a partial update to a bet. Only non-nil fields are applied.
// Legs, when present, replace the existing legs wholesale; the old legs are
// destroyed with no merge.
type BetPatch struct {
	EventDate *Date       `json:"event_date,omitempty"`
	Type      *BetType    `json:"type,omitempty"`
	Detail    *string     `json:"detail,omitempty"`
	Stake     *float64    `json:"stake,omitempty"`
	Odds      *float64    `json:"odds,omitempty"`
	Cashout   *float64    `json:"cashout,omitempty"`
	Outcome   *Outcome    `json:"outcome,omitempty"`
	Legs      *[]LegInput `json:"legs,omitempty"`
}

// IsZero reports whether the patch carries no fields at all.
func (p BetPatch) IsZero() bool {
	return p.EventDate == nil && p.Type == nil && p.Detail == nil &&
		p.Stake == nil && p.Odds == nil && p.Cashout == nil &&
		p.Outcome == nil && p.Legs == nil
}

// Apply overwrites the present fields of p onto b and returns the result.
// When legs are replaced on a parlay, the odds are re-derived from the new
// legs; the caller is expected to Validate the result.
func (p BetPatch) Apply(b Bet) Bet {
	if p.EventDate != nil {
		b.EventDate = *p.EventDate
	}
	if p.Type != nil {
		b.Type = *p.Type
	}
	if p.Detail != nil {
		b.Detail = *p.Detail
	}
	if p.Stake != nil {
		b.Stake = *p.Stake
	}
	if p.Odds != nil {
		b.Odds = *p.Odds
	}
	if p.Cashout != nil {
		v := *p.Cashout
		b.Cashout = &v
	}
	if p.Outcome != nil {
		b.Outcome = *p.Outcome
	}
	if p.Legs != nil {
		// Legs are cleared first and re-attached only on a parlay, so a legs
		// patch can never leave a single bet carrying legs.
		b.Legs = nil
		if b.Type == TypeParlay {
			for _, in := range *p.Legs {
				b.Legs = append(b.Legs, ParlayLeg{Detail: in.Detail, Odds: in.Odds})
			}
			if len(b.Legs) >= 2 {
				if odds, err := ParlayOdds(b.Legs); err == nil {
					b.Odds = odds
				}
			}
		}
	}
	return b
}

// Validate checks the patch fields that can be rejected locally before any
// network or queue interaction.
func (p BetPatch) Validate() error {
	if p.Stake != nil && *p.Stake <= 0 {
		return errValidationf("stake must be > 0")
	}
	if p.Odds != nil && *p.Odds <= 1 {
		return errValidationf("odds must be > 1")
	}
	if p.Cashout != nil && *p.Cashout < 0 {
		return errValidationf("cashout must be >= 0")
	}
	if p.Outcome != nil {
		switch *p.Outcome {
		case OutcomeWon, OutcomeLost, OutcomePending:
		default:
			return errValidationf("unknown outcome %q", *p.Outcome)
		}
	}
	if p.Legs != nil {
		if len(*p.Legs) < 2 {
			return errValidationf("parlay needs at least 2 legs")
		}
		for _, leg := range *p.Legs {
			if leg.Odds <= 1 {
				return errValidationf("parlay leg odds must be > 1")
			}
		}
	}
	return nil
}
