package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/invictos/bet-ledger/internal/ledger"
	"github.com/invictos/bet-ledger/internal/ledger-service/auth"
	"github.com/invictos/bet-ledger/internal/ledger-service/cache"
	"github.com/invictos/bet-ledger/internal/ledger-service/dto"
	"github.com/invictos/bet-ledger/internal/ledger-service/repo"
	"github.com/invictos/bet-ledger/pkg/contracts/events"
)

// Repo is the persistence surface the API needs.
type Repo interface {
	CreateUser(ctx context.Context, email, fullName, passwordHash string) (repo.User, error)
	GetUserByEmail(ctx context.Context, email string) (repo.User, string, error)
	GetUser(ctx context.Context, id string) (repo.User, error)

	CreateBet(ctx context.Context, userID string, b ledger.Bet) (ledger.Bet, error)
	GetBet(ctx context.Context, userID, id string) (ledger.Bet, error)
	UpdateBet(ctx context.Context, userID, id string, patch ledger.BetPatch) (ledger.Bet, error)
	DeleteBet(ctx context.Context, userID, id string) error
	ListBets(ctx context.Context, userID string, start, end *ledger.Date) ([]ledger.Bet, error)
	SyncSince(ctx context.Context, userID string, since time.Time) ([]ledger.Bet, error)
}

type Server struct {
	log     *zap.Logger
	repo    Repo
	tokens  *auth.Tokens
	betList *cache.BetList
	origins []string
	publ    interface {
		PublishBetChanged(context.Context, events.BetChanged) error
	}
}

func NewServer(log *zap.Logger, r Repo, tk *auth.Tokens, bl *cache.BetList, origins []string, p interface {
	PublishBetChanged(context.Context, events.BetChanged) error
}) *Server {
	return &Server{log: log, repo: r, tokens: tk, betList: bl, origins: origins, publ: p}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/auth/register", s.register)
	r.Post("/auth/login", s.login)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/auth/me", s.me)
		r.Get("/bets", s.listBets)
		r.Post("/bets", s.createBet)
		r.Get("/bets/{id}", s.getBet)
		r.Patch("/bets/{id}", s.updateBet)
		r.Delete("/bets/{id}", s.deleteBet)
		r.Get("/sync", s.sync)
	})

	return r
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Email == "" || len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "email and a password of at least 6 characters are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.log.Error("hash password", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	u, err := s.repo.CreateUser(r.Context(), req.Email, req.FullName, hash)
	if errors.Is(err, repo.ErrDuplicateEmail) {
		writeError(w, http.StatusBadRequest, "email already registered")
		return
	}
	if err != nil {
		s.log.Error("create user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.issueAuth(w, http.StatusCreated, u)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	u, hash, err := s.repo.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !auth.VerifyPassword(hash, req.Password)) {
		writeError(w, http.StatusUnauthorized, "incorrect email or password")
		return
	}
	if err != nil {
		s.log.Error("login lookup", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.issueAuth(w, http.StatusOK, u)
}

func (s *Server) issueAuth(w http.ResponseWriter, status int, u repo.User) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		s.log.Error("issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, status, dto.AuthResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        dto.UserRead{ID: u.ID, Email: u.Email, FullName: u.FullName},
	})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u, err := s.repo.GetUser(r.Context(), userID(r.Context()))
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "unknown user")
		return
	}
	if err != nil {
		s.log.Error("get user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, dto.UserRead{ID: u.ID, Email: u.Email, FullName: u.FullName})
}

func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	uid := userID(r.Context())

	start, err := parseDateParam(r, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start date")
		return
	}
	end, err := parseDateParam(r, "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end date")
		return
	}

	if start == nil && end == nil {
		if bets, ok := s.betList.Get(r.Context(), uid); ok {
			writeJSON(w, http.StatusOK, bets)
			return
		}
	}

	bets, err := s.repo.ListBets(r.Context(), uid, start, end)
	if err != nil {
		s.log.Error("list bets", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if bets == nil {
		bets = []ledger.Bet{}
	}
	if start == nil && end == nil {
		s.betList.Set(r.Context(), uid, bets)
	}
	writeJSON(w, http.StatusOK, bets)
}

func (s *Server) createBet(w http.ResponseWriter, r *http.Request) {
	uid := userID(r.Context())

	var req dto.CreateBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	b := ledger.Bet{
		ID:        req.ID,
		EventDate: req.EventDate,
		Type:      req.Type,
		Detail:    req.Detail,
		Stake:     req.Stake,
		Odds:      req.Odds,
		Cashout:   req.Cashout,
		Outcome:   req.Outcome,
	}
	if b.Outcome == "" {
		b.Outcome = ledger.OutcomePending
	}
	for _, leg := range req.Legs {
		b.Legs = append(b.Legs, ledger.ParlayLeg{Detail: leg.Detail, Odds: leg.Odds})
	}
	if b.Type == ledger.TypeParlay {
		odds, err := ledger.ParlayOdds(b.Legs)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		b.Odds = odds
	}
	if err := ledger.Validate(b); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.repo.CreateBet(r.Context(), uid, b)
	if err != nil {
		s.log.Error("create bet", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.betList.Invalidate(r.Context(), uid)
	_ = s.publ.PublishBetChanged(r.Context(), events.BetChanged{
		BetID:  created.ID,
		UserID: uid,
		Action: events.ActionCreated,
		Detail: created.Detail,
	})

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	b, err := s.repo.GetBet(r.Context(), userID(r.Context()), chi.URLParam(r, "id"))
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "bet not found")
		return
	}
	if err != nil {
		s.log.Error("get bet", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) updateBet(w http.ResponseWriter, r *http.Request) {
	uid := userID(r.Context())
	id := chi.URLParam(r, "id")

	var patch ledger.BetPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := patch.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.repo.UpdateBet(r.Context(), uid, id, patch)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "bet not found")
		return
	}
	if errors.Is(err, ledger.ErrValidation) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.log.Error("update bet", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.betList.Invalidate(r.Context(), uid)
	_ = s.publ.PublishBetChanged(r.Context(), events.BetChanged{
		BetID:  updated.ID,
		UserID: uid,
		Action: events.ActionUpdated,
		Detail: updated.Detail,
	})

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteBet(w http.ResponseWriter, r *http.Request) {
	uid := userID(r.Context())
	id := chi.URLParam(r, "id")

	err := s.repo.DeleteBet(r.Context(), uid, id)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "bet not found")
		return
	}
	if err != nil {
		s.log.Error("delete bet", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.betList.Invalidate(r.Context(), uid)
	_ = s.publ.PublishBetChanged(r.Context(), events.BetChanged{
		BetID:  id,
		UserID: uid,
		Action: events.ActionDeleted,
	})

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sync(w http.ResponseWriter, r *http.Request) {
	uid := userID(r.Context())

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since timestamp")
			return
		}
		since = t
	}

	items, err := s.repo.SyncSince(r.Context(), uid, since)
	if err != nil {
		s.log.Error("sync since", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if items == nil {
		items = []ledger.Bet{}
	}
	writeJSON(w, http.StatusOK, dto.SyncResponse{
		LastSync: time.Now().UTC(),
		Items:    items,
	})
}

func parseDateParam(r *http.Request, name string) (*ledger.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := ledger.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, dto.ErrorResponse{Detail: detail})
}
