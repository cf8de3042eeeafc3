package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/invictos/bet-ledger/internal/ledger"
)

// Postgres persists users, bets and parlay legs. Legs are owned by their bet
// by containment: cascade-on-delete and wholesale replacement are done
// explicitly here, inside the same transaction as the parent mutation.
type Postgres struct{ db *sql.DB }

// NewPostgres returns a repository over the given connection.
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// CreateUser inserts a new account.
func (p *Postgres) CreateUser(ctx context.Context, email, fullName, passwordHash string) (User, error) {
	u := User{
		ID:        uuid.NewString(),
		Email:     email,
		FullName:  fullName,
		CreatedAt: time.Now().UTC(),
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO users (id, email, full_name, hashed_password, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		u.ID, u.Email, u.FullName, passwordHash, u.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return User{}, ErrDuplicateEmail
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns the account and its password hash.
func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (User, string, error) {
	var u User
	var hash string
	err := p.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, hashed_password, created_at
		FROM users WHERE email=$1`, email,
	).Scan(&u.ID, &u.Email, &u.FullName, &hash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, "", ErrNotFound
	}
	if err != nil {
		return User{}, "", fmt.Errorf("select user by email: %w", err)
	}
	return u, hash, nil
}

// GetUser returns the account by id.
func (p *Postgres) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	err := p.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, created_at
		FROM users WHERE id=$1`, id,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

// CreateBet inserts the bet and its legs in one transaction and returns the
// stored copy with server timestamps.
func (p *Postgres) CreateBet(ctx context.Context, userID string, b ledger.Bet) (ledger.Bet, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.UserID = userID
	b.CreatedAt = now
	b.UpdatedAt = now

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Bet{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bets (id, user_id, event_date, type, detail, stake, odds, cashout, outcome, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		b.ID, userID, b.EventDate.String(), b.Type, b.Detail, b.Stake, b.Odds,
		nullFloat(b.Cashout), b.Outcome, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			// Replayed create from an offline queue: the bet is already
			// stored, return the existing row instead of failing.
			return p.GetBet(ctx, userID, b.ID)
		}
		return ledger.Bet{}, fmt.Errorf("insert bet: %w", err)
	}

	for i := range b.Legs {
		b.Legs[i].ID = uuid.NewString()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO parlay_legs (id, bet_id, detail, odds, created_at)
			VALUES ($1,$2,$3,$4,$5)`,
			b.Legs[i].ID, b.ID, b.Legs[i].Detail, b.Legs[i].Odds, now,
		)
		if err != nil {
			return ledger.Bet{}, fmt.Errorf("insert leg: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ledger.Bet{}, fmt.Errorf("commit: %w", err)
	}
	return b, nil
}

// GetBet returns one bet scoped to its owner.
func (p *Postgres) GetBet(ctx context.Context, userID, id string) (ledger.Bet, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, user_id, event_date, type, detail, stake, odds, cashout, outcome, created_at, updated_at
		FROM bets WHERE id=$1 AND user_id=$2`, id, userID)
	b, err := scanBet(row)
	if err != nil {
		return ledger.Bet{}, err
	}
	legs, err := p.legsFor(ctx, []string{b.ID})
	if err != nil {
		return ledger.Bet{}, err
	}
	b.Legs = legs[b.ID]
	return b, nil
}

// UpdateBet applies a partial patch. When the patch replaces legs, the old
// legs are deleted and the new ones inserted wholesale; for parlays the odds
// are re-derived from the new legs.
func (p *Postgres) UpdateBet(ctx context.Context, userID, id string, patch ledger.BetPatch) (ledger.Bet, error) {
	current, err := p.GetBet(ctx, userID, id)
	if err != nil {
		return ledger.Bet{}, err
	}

	updated := patch.Apply(current)
	if err := ledger.Validate(updated); err != nil {
		return ledger.Bet{}, err
	}
	updated.UpdatedAt = time.Now().UTC()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Bet{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE bets
		SET event_date=$1, type=$2, detail=$3, stake=$4, odds=$5, cashout=$6, outcome=$7, updated_at=$8
		WHERE id=$9 AND user_id=$10`,
		updated.EventDate.String(), updated.Type, updated.Detail, updated.Stake,
		updated.Odds, nullFloat(updated.Cashout), updated.Outcome, updated.UpdatedAt,
		id, userID,
	)
	if err != nil {
		return ledger.Bet{}, fmt.Errorf("update bet: %w", err)
	}

	if patch.Legs != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM parlay_legs WHERE bet_id=$1`, id); err != nil {
			return ledger.Bet{}, fmt.Errorf("delete old legs: %w", err)
		}
		for i := range updated.Legs {
			updated.Legs[i].ID = uuid.NewString()
			_, err = tx.ExecContext(ctx, `
				INSERT INTO parlay_legs (id, bet_id, detail, odds, created_at)
				VALUES ($1,$2,$3,$4,$5)`,
				updated.Legs[i].ID, id, updated.Legs[i].Detail, updated.Legs[i].Odds, updated.UpdatedAt,
			)
			if err != nil {
				return ledger.Bet{}, fmt.Errorf("insert leg: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return ledger.Bet{}, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

// DeleteBet removes the bet and its legs (explicit cascade) in one
// transaction.
func (p *Postgres) DeleteBet(ctx context.Context, userID, id string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var owner string
	err = tx.QueryRowContext(ctx, `SELECT user_id FROM bets WHERE id=$1`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != userID) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("select bet owner: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM parlay_legs WHERE bet_id=$1`, id); err != nil {
		return fmt.Errorf("delete legs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM bets WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete bet: %w", err)
	}
	return tx.Commit()
}

// ListBets returns the user's bets, optionally bounded by event date,
// ordered (event_date desc, created_at desc).
func (p *Postgres) ListBets(ctx context.Context, userID string, start, end *ledger.Date) ([]ledger.Bet, error) {
	q := `
		SELECT id, user_id, event_date, type, detail, stake, odds, cashout, outcome, created_at, updated_at
		FROM bets WHERE user_id=$1`
	args := []any{userID}
	if start != nil {
		args = append(args, start.String())
		q += fmt.Sprintf(" AND event_date >= $%d", len(args))
	}
	if end != nil {
		args = append(args, end.String())
		q += fmt.Sprintf(" AND event_date <= $%d", len(args))
	}
	q += " ORDER BY event_date DESC, created_at DESC"

	return p.queryBets(ctx, q, args...)
}

// SyncSince returns the user's bets updated at or after since (inclusive),
// ordered by updated_at ascending. Zero since returns everything.
func (p *Postgres) SyncSince(ctx context.Context, userID string, since time.Time) ([]ledger.Bet, error) {
	q := `
		SELECT id, user_id, event_date, type, detail, stake, odds, cashout, outcome, created_at, updated_at
		FROM bets WHERE user_id=$1`
	args := []any{userID}
	if !since.IsZero() {
		args = append(args, since.UTC())
		q += fmt.Sprintf(" AND updated_at >= $%d", len(args))
	}
	q += " ORDER BY updated_at"

	return p.queryBets(ctx, q, args...)
}

func (p *Postgres) queryBets(ctx context.Context, q string, args ...any) ([]ledger.Bet, error) {
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select bets: %w", err)
	}
	defer rows.Close()

	var bets []ledger.Bet
	var ids []string
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		bets = append(bets, b)
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bets: %w", err)
	}

	legs, err := p.legsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range bets {
		bets[i].Legs = legs[bets[i].ID]
	}
	return bets, nil
}

func (p *Postgres) legsFor(ctx context.Context, betIDs []string) (map[string][]ledger.ParlayLeg, error) {
	out := make(map[string][]ledger.ParlayLeg)
	if len(betIDs) == 0 {
		return out, nil
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, bet_id, detail, odds
		FROM parlay_legs WHERE bet_id = ANY($1)
		ORDER BY created_at, id`, pq.Array(betIDs))
	if err != nil {
		return nil, fmt.Errorf("select legs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var leg ledger.ParlayLeg
		var betID string
		if err := rows.Scan(&leg.ID, &betID, &leg.Detail, &leg.Odds); err != nil {
			return nil, fmt.Errorf("scan leg: %w", err)
		}
		out[betID] = append(out[betID], leg)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBet(row rowScanner) (ledger.Bet, error) {
	var b ledger.Bet
	var eventDate time.Time
	var cashout sql.NullFloat64
	err := row.Scan(&b.ID, &b.UserID, &eventDate, &b.Type, &b.Detail, &b.Stake,
		&b.Odds, &cashout, &b.Outcome, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Bet{}, ErrNotFound
	}
	if err != nil {
		return ledger.Bet{}, fmt.Errorf("scan bet: %w", err)
	}
	b.EventDate = ledger.NewDate(eventDate.Year(), eventDate.Month(), eventDate.Day())
	if cashout.Valid {
		v := cashout.Float64
		b.Cashout = &v
	}
	return b, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
