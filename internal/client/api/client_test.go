package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/invictos/bet-ledger/internal/ledger"
)

func TestConnectivityErrorWhenServerUnreachable(t *testing.T) {
	// Grab a port that is guaranteed closed.
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New(base, time.Second)
	_, err := c.ListBets(context.Background(), nil, nil)
	require.True(t, IsConnectivity(err))
	require.False(t, IsRejection(err))
}

func TestRejectionErrorCarriesServerDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "bet not found"})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	err := c.DeleteBet(context.Background(), "nope")
	require.True(t, IsRejection(err))
	var re *RejectionError
	require.ErrorAs(t, err, &re)
	require.Equal(t, http.StatusNotFound, re.Status)
	require.Equal(t, "bet not found", re.Message)
}

func TestCreateBetSendsWritePayloadAndBearer(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/bets", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(ledger.Bet{
			ID:        gotBody["id"].(string),
			EventDate: ledger.NewDate(2025, time.July, 14),
			Type:      ledger.TypeParlay,
			Detail:    "combo",
			Stake:     20,
			Odds:      3.255,
			Outcome:   ledger.OutcomePending,
			Legs: []ledger.ParlayLeg{
				{ID: "l1", Detail: "a", Odds: 1.55},
				{ID: "l2", Detail: "b", Odds: 2.1},
			},
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	c.SetToken("tok-123")

	bet := ledger.Bet{
		ID:        "b1",
		EventDate: ledger.NewDate(2025, time.July, 14),
		Type:      ledger.TypeParlay,
		Detail:    "combo",
		Stake:     20,
		Odds:      3.255,
		Outcome:   ledger.OutcomePending,
		Legs: []ledger.ParlayLeg{
			{ID: "local-1", Detail: "a", Odds: 1.55},
			{ID: "local-2", Detail: "b", Odds: 2.1},
		},
	}
	created, err := c.CreateBet(context.Background(), bet)
	require.NoError(t, err)
	require.Equal(t, "b1", created.ID)
	require.Equal(t, "l1", created.Legs[0].ID)

	require.Equal(t, "Bearer tok-123", gotAuth)
	// Legs go up without ids; the server assigns them.
	legs := gotBody["legs"].([]any)
	require.Len(t, legs, 2)
	first := legs[0].(map[string]any)
	require.NotContains(t, first, "id")
	require.Equal(t, "a", first["detail"])
}

func TestSyncSincePassesWatermark(t *testing.T) {
	var gotSince string
	ts := time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sync", r.URL.Path)
		gotSince = r.URL.Query().Get("since")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SyncResult{LastSync: ts.Add(time.Minute), Items: []ledger.Bet{}})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	res, err := c.SyncSince(context.Background(), ts)
	require.NoError(t, err)
	require.Equal(t, "2025-07-14T12:00:00Z", gotSince)
	require.True(t, res.LastSync.Equal(ts.Add(time.Minute)))

	// A zero watermark omits the parameter entirely.
	_, err = c.SyncSince(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Empty(t, gotSince)
}

func TestLoginInstallsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			_ = json.NewEncoder(w).Encode(AuthResponse{
				AccessToken: "tok-9",
				TokenType:   "bearer",
				User:        User{ID: "u1", Email: "a@b.c"},
			})
		case "/auth/me":
			require.Equal(t, "Bearer tok-9", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(User{ID: "u1", Email: "a@b.c"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	auth, err := c.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	require.Equal(t, "tok-9", auth.AccessToken)

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, "u1", me.ID)
}
