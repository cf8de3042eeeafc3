package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/invictos/bet-ledger/internal/ledger"
)

// User is the profile the Remote Authority reports for the authenticated
// account.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// SyncResult is the incremental pull response: every bet whose updated_at is
// at or after the requested watermark, plus a fresh server timestamp to store
// as the next watermark.
type SyncResult struct {
	LastSync time.Time    `json:"last_sync"`
	Items    []ledger.Bet `json:"items"`
}

// Client talks to the ledger service over HTTP. Every call is bounded by the
// underlying http.Client timeout; exceeding it surfaces as a
// ConnectivityError, never a hang.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	token string
}

// New builds a client for the given base URL with the given call bound.
func New(base string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(base, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// SetToken installs (or clears, with "") the bearer token for subsequent
// calls.
func (c *Client) SetToken(token string) { c.token = token }

// Register creates an account and returns the issued token and profile.
func (c *Client) Register(ctx context.Context, email, password, fullName string) (AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}
	if fullName != "" {
		body["full_name"] = fullName
	}
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &out); err != nil {
		return AuthResponse{}, err
	}
	c.token = out.AccessToken
	return out, nil
}

// Login authenticates and returns the issued token and profile.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return AuthResponse{}, err
	}
	c.token = out.AccessToken
	return out, nil
}

// Me fetches the profile for the current token.
func (c *Client) Me(ctx context.Context) (User, error) {
	var out User
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out)
	return out, err
}

// betPayload is the write representation of a bet: leg ids are
// server-assigned, so legs go up as {detail, odds} only.
type betPayload struct {
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

func toPayload(b ledger.Bet) betPayload {
	p := betPayload{
		ID:        b.ID,
		EventDate: b.EventDate,
		Type:      b.Type,
		Detail:    b.Detail,
		Stake:     b.Stake,
		Odds:      b.Odds,
		Cashout:   b.Cashout,
		Outcome:   b.Outcome,
		Legs:      []ledger.LegInput{},
	}
	for _, leg := range b.Legs {
		p.Legs = append(p.Legs, ledger.LegInput{Detail: leg.Detail, Odds: leg.Odds})
	}
	return p
}

// CreateBet records a bet remotely and returns the server copy, which
// carries server-assigned timestamps and leg ids.
func (c *Client) CreateBet(ctx context.Context, b ledger.Bet) (ledger.Bet, error) {
	var out ledger.Bet
	err := c.do(ctx, http.MethodPost, "/bets", toPayload(b), &out)
	return out, err
}

// UpdateBet applies a partial patch and returns the server copy.
func (c *Client) UpdateBet(ctx context.Context, id string, patch ledger.BetPatch) (ledger.Bet, error) {
	var out ledger.Bet
	err := c.do(ctx, http.MethodPatch, "/bets/"+id, patch, &out)
	return out, err
}

// DeleteBet removes a bet remotely.
func (c *Client) DeleteBet(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/bets/"+id, nil, nil)
}

// ListBets fetches the caller's bets, optionally bounded by event date.
func (c *Client) ListBets(ctx context.Context, start, end *ledger.Date) ([]ledger.Bet, error) {
	q := url.Values{}
	if start != nil {
		q.Set("start", start.String())
	}
	if end != nil {
		q.Set("end", end.String())
	}
	path := "/bets"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []ledger.Bet
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// SyncSince pulls every bet updated at or after since (server-side inclusive
// filter). A zero since pulls everything.
func (c *Client) SyncSince(ctx context.Context, since time.Time) (SyncResult, error) {
	path := "/sync"
	if !since.IsZero() {
		q := url.Values{}
		q.Set("since", since.UTC().Format(time.RFC3339))
		path += "?" + q.Encode()
	}
	var out SyncResult
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return &ConnectivityError{Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return &RejectionError{Status: res.StatusCode, Message: extractDetail(res.Body, res.StatusCode)}
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// extractDetail pulls the server's {"detail": ...} message, falling back to
// the raw body.
func extractDetail(body io.Reader, status int) string {
	raw, _ := io.ReadAll(io.LimitReader(body, 4096))
	var parsed struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return fmt.Sprintf("http %d: %s", status, strings.TrimSpace(string(raw)))
}
