// Package api provides the HTTP surface over the ledger engine: market
// creation and betting, oracle resolution, claims, views, and the owner's
// admin controls.
//
// Caller identity comes from the X-Account-Id header; authorization checks
// (owner, oracle) live in the engine, not here.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pricelock/ledger-engine/internal/custody"
	"github.com/pricelock/ledger-engine/internal/guard"
	"github.com/pricelock/ledger-engine/internal/ledger"
	"github.com/pricelock/ledger-engine/internal/model"
	"github.com/pricelock/ledger-engine/internal/safemath"
)

// Service exposes the engine's operations over HTTP.
type Service struct {
	engine *ledger.Engine
	bank   *custody.MemoryBank // non-nil only in local mode; enables /balances
}

// NewService creates the HTTP service. Pass a nil bank when running against
// an external custody backend; the balances route then returns 404.
func NewService(eng *ledger.Engine, bank *custody.MemoryBank) *Service {
	return &Service{engine: eng, bank: bank}
}

// Routes mounts every ledger route on the given router. The hub's
// WebSocket endpoint is registered separately in main.
func (s *Service) Routes(r chi.Router) {
	r.Post("/markets", s.CreateMarket)
	r.Post("/markets/batch", s.BatchCreateMarkets)
	r.Get("/markets", s.ListMarkets)
	r.Get("/markets/{marketID}", s.GetMarket)
	r.Get("/markets/{marketID}/odds", s.GetOdds)
	r.Post("/markets/{marketID}/resolve", s.ResolveMarket)
	r.Post("/markets/{marketID}/claim", s.ClaimWinnings)
	r.Get("/markets/{marketID}/positions/{account}", s.GetPosition)
	r.Get("/markets/{marketID}/positions/{account}/payout", s.GetPotentialPayout)

	r.Post("/bets", s.PlaceBet)
	r.Post("/bets/batch", s.BatchPlaceBets)

	r.Get("/state", s.GetState)
	r.Get("/oracles/{account}/reputation", s.GetOracleReputation)
	r.Get("/balances/{account}", s.GetBalance)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/pause", s.Pause)
		r.Post("/unpause", s.Unpause)
		r.Post("/emergency/enable", s.EnableEmergency)
		r.Post("/emergency/disable", s.DisableEmergency)
		r.Post("/oracle", s.SetOracle)
		r.Post("/fee-recipient", s.SetFeeRecipient)
		r.Get("/trusted-oracles", s.ListTrustedOracles)
		r.Post("/trusted-oracles", s.AddTrustedOracle)
		r.Delete("/trusted-oracles/{account}", s.RemoveTrustedOracle)
	})
}

// --- Markets ---

// CreateMarket handles POST /api/v1/markets
func (s *Service) CreateMarket(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	var req ledger.CreateMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id, err := s.engine.CreateMarket(r.Context(), caller, req)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]uint64{"market_id": id})
}

// BatchCreateMarkets handles POST /api/v1/markets/batch
func (s *Service) BatchCreateMarkets(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	var req struct {
		Markets []ledger.CreateMarketRequest `json:"markets"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	n, err := s.engine.BatchCreateMarkets(r.Context(), caller, req.Markets)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"created":        n,
		"market_counter": s.engine.MarketCounter(),
	})
}

// ListMarkets handles GET /api/v1/markets
// Optional ?status=open|resolved filter.
func (s *Service) ListMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := s.engine.Markets(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, markets)
}

// GetMarket handles GET /api/v1/markets/{marketID}
func (s *Service) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(w, r)
	if !ok {
		return
	}
	market, err := s.engine.Market(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, market)
}

// GetOdds handles GET /api/v1/markets/{marketID}/odds
func (s *Service) GetOdds(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(w, r)
	if !ok {
		return
	}
	view, err := s.engine.Odds(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// --- Betting ---

// PlaceBet handles POST /api/v1/bets
func (s *Service) PlaceBet(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	var req ledger.BetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.engine.PlaceBet(r.Context(), caller, req); err != nil {
		writeEngineError(w, err)
		return
	}

	position, err := s.engine.Position(r.Context(), req.MarketID, caller)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, position)
}

// BatchPlaceBets handles POST /api/v1/bets/batch
func (s *Service) BatchPlaceBets(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	var req struct {
		Bets []ledger.BetRequest `json:"bets"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	n, err := s.engine.BatchPlaceBets(r.Context(), caller, req.Bets)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"placed": n})
}

// --- Settlement ---

// ResolveMarket handles POST /api/v1/markets/{marketID}/resolve
func (s *Service) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := marketID(w, r)
	if !ok {
		return
	}
	var req struct {
		ObservedPrice uint64 `json:"observed_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	outcome, err := s.engine.ResolveMarket(r.Context(), caller, id, req.ObservedPrice)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"market_id":      id,
		"outcome":        outcome,
		"observed_price": req.ObservedPrice,
	})
}

// ClaimWinnings handles POST /api/v1/markets/{marketID}/claim
func (s *Service) ClaimWinnings(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := marketID(w, r)
	if !ok {
		return
	}

	amount, err := s.engine.ClaimWinnings(r.Context(), caller, id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"market_id": id,
		"account":   caller,
		"payout":    amount,
	})
}

// --- Views ---

// GetPosition handles GET /api/v1/markets/{marketID}/positions/{account}
func (s *Service) GetPosition(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(w, r)
	if !ok {
		return
	}
	account := model.AccountID(chi.URLParam(r, "account"))

	position, err := s.engine.Position(r.Context(), id, account)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, position)
}

// GetPotentialPayout handles
// GET /api/v1/markets/{marketID}/positions/{account}/payout
func (s *Service) GetPotentialPayout(w http.ResponseWriter, r *http.Request) {
	id, ok := marketID(w, r)
	if !ok {
		return
	}
	account := model.AccountID(chi.URLParam(r, "account"))

	preview, err := s.engine.PotentialPayout(r.Context(), id, account)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// GetState handles GET /api/v1/state
func (s *Service) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.State())
}

// GetOracleReputation handles GET /api/v1/oracles/{account}/reputation
func (s *Service) GetOracleReputation(w http.ResponseWriter, r *http.Request) {
	account := model.AccountID(chi.URLParam(r, "account"))
	writeJSON(w, http.StatusOK, s.engine.OracleReputation(account))
}

// GetBalance handles GET /api/v1/balances/{account}. Local mode only.
func (s *Service) GetBalance(w http.ResponseWriter, r *http.Request) {
	if s.bank == nil {
		writeError(w, "balances unavailable with external custody", http.StatusNotFound)
		return
	}
	account := model.AccountID(chi.URLParam(r, "account"))
	writeJSON(w, http.StatusOK, map[string]any{
		"account": account,
		"balance": s.bank.Balance(account),
		"vault":   s.bank.VaultBalance(),
	})
}

// --- Admin ---

// Pause handles POST /api/v1/admin/pause
func (s *Service) Pause(w http.ResponseWriter, r *http.Request) {
	s.adminToggle(w, r, s.engine.Pause)
}

// Unpause handles POST /api/v1/admin/unpause
func (s *Service) Unpause(w http.ResponseWriter, r *http.Request) {
	s.adminToggle(w, r, s.engine.Unpause)
}

// EnableEmergency handles POST /api/v1/admin/emergency/enable
func (s *Service) EnableEmergency(w http.ResponseWriter, r *http.Request) {
	s.adminToggle(w, r, s.engine.EnableEmergency)
}

// DisableEmergency handles POST /api/v1/admin/emergency/disable
func (s *Service) DisableEmergency(w http.ResponseWriter, r *http.Request) {
	s.adminToggle(w, r, s.engine.DisableEmergency)
}

func (s *Service) adminToggle(w http.ResponseWriter, r *http.Request, op func(model.AccountID) error) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := op(caller); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.State())
}

// SetOracle handles POST /api/v1/admin/oracle
func (s *Service) SetOracle(w http.ResponseWriter, r *http.Request) {
	s.adminAccountOp(w, r, s.engine.SetOracleAddress)
}

// SetFeeRecipient handles POST /api/v1/admin/fee-recipient
func (s *Service) SetFeeRecipient(w http.ResponseWriter, r *http.Request) {
	s.adminAccountOp(w, r, s.engine.SetFeeRecipient)
}

// AddTrustedOracle handles POST /api/v1/admin/trusted-oracles
func (s *Service) AddTrustedOracle(w http.ResponseWriter, r *http.Request) {
	s.adminAccountOp(w, r, s.engine.AddTrustedOracle)
}

func (s *Service) adminAccountOp(w http.ResponseWriter, r *http.Request, op func(caller, target model.AccountID) error) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	var req struct {
		Account model.AccountID `json:"account"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Account == "" {
		writeError(w, "account is required", http.StatusBadRequest)
		return
	}
	if err := op(caller, req.Account); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.State())
}

// RemoveTrustedOracle handles DELETE /api/v1/admin/trusted-oracles/{account}
func (s *Service) RemoveTrustedOracle(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	account := model.AccountID(chi.URLParam(r, "account"))
	if err := s.engine.RemoveTrustedOracle(caller, account); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trusted_oracles": s.engine.TrustedOracles()})
}

// ListTrustedOracles handles GET /api/v1/admin/trusted-oracles
func (s *Service) ListTrustedOracles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"trusted_oracles": s.engine.TrustedOracles()})
}

// --- Helpers ---

// callerID extracts the verified account from X-Account-Id. Writes a 400 and
// returns false when the header is absent.
func callerID(w http.ResponseWriter, r *http.Request) (model.AccountID, bool) {
	account := r.Header.Get("X-Account-Id")
	if account == "" {
		writeError(w, "X-Account-Id header is required", http.StatusBadRequest)
		return "", false
	}
	return model.AccountID(account), true
}

func marketID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "marketID")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		writeError(w, "invalid market id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// writeEngineError maps engine sentinels onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	writeError(w, err.Error(), statusFor(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrMarketNotFound):
		return http.StatusNotFound
	case errors.Is(err, guard.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, guard.ErrPaused):
		return http.StatusServiceUnavailable
	case errors.Is(err, ledger.ErrTransferFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidPrice),
		errors.Is(err, guard.ErrInvalidAmount),
		errors.Is(err, guard.ErrInvalidPrice),
		errors.Is(err, safemath.ErrOverflow),
		errors.Is(err, safemath.ErrUnderflow):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrMarketExpired),
		errors.Is(err, ledger.ErrMarketClosed),
		errors.Is(err, ledger.ErrNotExpired),
		errors.Is(err, ledger.ErrAlreadyResolved),
		errors.Is(err, ledger.ErrAlreadyClaimed),
		errors.Is(err, ledger.ErrNoPosition),
		errors.Is(err, ledger.ErrOracleExists),
		errors.Is(err, ledger.ErrOracleAbsent),
		errors.Is(err, ledger.ErrTooManyOracles),
		errors.Is(err, guard.ErrReentrancy),
		errors.Is(err, guard.ErrAlreadyPaused),
		errors.Is(err, guard.ErrNotPaused):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
