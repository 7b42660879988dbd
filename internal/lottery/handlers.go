package lottery

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/lottera/lottery-core/internal/custody"
	"github.com/lottera/lottery-core/internal/metrics"
	"github.com/lottera/lottery-core/internal/model"
	"github.com/lottera/lottery-core/internal/oracle"
	"github.com/lottera/lottery-core/internal/store"
)

// --- Request types ---

// CreateLotteryRequest is the JSON body for POST /lotteries.
type CreateLotteryRequest struct {
	Caller              string `json:"caller"`
	Name                string `json:"name"`
	TotalNumbers        int    `json:"total_numbers"`
	MaxRewardMultiplier int64  `json:"max_reward_multiplier"`
	MaxSlippagePercent  int64  `json:"max_slippage_percent"`
	TotalWinningNumbers int    `json:"total_winning_numbers"`
	FeePercent          int64  `json:"fee_percent"`
}

// BuyWagersRequest is the JSON body for POST /lotteries/{lotteryID}/wagers.
type BuyWagersRequest struct {
	Gambler string       `json:"gambler"`
	Entries []WagerEntry `json:"entries"`
}

// StakeRequest is the JSON body for stake and unstake calls.
type StakeRequest struct {
	Banker string          `json:"banker"`
	Amount decimal.Decimal `json:"amount"`
}

// AdminRequest carries the caller for owner-only state transitions.
type AdminRequest struct {
	Caller string `json:"caller"`
}

// AdjustWinningCountRequest is the JSON body for PUT winning-count.
type AdjustWinningCountRequest struct {
	Caller string `json:"caller"`
	Count  int    `json:"count"`
}

// DrawRequest is the JSON body for POST /lotteries/{lotteryID}/draw.
type DrawRequest struct {
	Caller  string `json:"caller"`
	Numbers []int  `json:"numbers"`
}

// ClaimRequest is the JSON body for POST /lotteries/{lotteryID}/claims.
type ClaimRequest struct {
	Gambler string `json:"gambler"`
}

// --- HTTP Handlers ---

// HandleCreateLottery handles POST /api/v1/lotteries
func (s *Service) HandleCreateLottery(w http.ResponseWriter, r *http.Request) {
	var req CreateLotteryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	l, err := s.CreateLottery(r.Context(), req.Caller, CreateLotteryParams{
		Name:                req.Name,
		TotalNumbers:        req.TotalNumbers,
		MaxRewardMultiplier: req.MaxRewardMultiplier,
		MaxSlippagePercent:  req.MaxSlippagePercent,
		TotalWinningNumbers: req.TotalWinningNumbers,
		FeePercent:          req.FeePercent,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	slog.Info("lottery created",
		"id", l.ID,
		"name", l.Name,
		"total_numbers", l.TotalNumbers,
		"max_reward_multiplier", l.MaxRewardMultiplier,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(l)
}

// HandleListLotteries handles GET /api/v1/lotteries
func (s *Service) HandleListLotteries(w http.ResponseWriter, r *http.Request) {
	lotteries, err := s.store.ListLotteries(r.Context())
	if err != nil {
		writeError(w, "failed to list lotteries", http.StatusInternalServerError)
		return
	}
	if lotteries == nil {
		lotteries = []model.Lottery{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(lotteries)
}

// HandleGetLottery handles GET /api/v1/lotteries/{lotteryID}
func (s *Service) HandleGetLottery(w http.ResponseWriter, r *http.Request) {
	lotteryID := chi.URLParam(r, "lotteryID")

	l, err := s.store.GetLottery(r.Context(), lotteryID)
	if err != nil {
		writeError(w, "lottery not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(l)
}

// HandleGetLotteryByName handles GET /api/v1/lotteries/by-name/{name}
func (s *Service) HandleGetLotteryByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	l, err := s.store.GetLotteryByName(r.Context(), name)
	if err != nil {
		writeError(w, "lottery not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(l)
}

// HandleGetQuotes handles GET /api/v1/quotes/{amount}. It prices the
// amount through the oracle pair in both directions, for frontends
// showing exchange rates alongside locked amounts.
func (s *Service) HandleGetQuotes(w http.ResponseWriter, r *http.Request) {
	amount, err := decimal.NewFromString(chi.URLParam(r, "amount"))
	if err != nil || amount.Sign() <= 0 {
		writeError(w, "invalid amount", http.StatusBadRequest)
		return
	}

	toStable, err := oracle.QuoteRewardToStable(r.Context(), s.reserves, amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	toReward, err := oracle.QuoteStableToReward(r.Context(), s.reserves, amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"amount":           amount.String(),
		"reward_to_stable": toStable.String(),
		"stable_to_reward": toReward.String(),
	})
}

// HandleBuyWagers handles POST /api/v1/lotteries/{lotteryID}/wagers
func (s *Service) HandleBuyWagers(w http.ResponseWriter, r *http.Request) {
	lotteryID := chi.URLParam(r, "lotteryID")

	var req BuyWagersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Gambler == "" {
		writeError(w, "gambler is required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	purchases, err := s.BuyWagers(r.Context(), lotteryID, req.Gambler, req.Entries)
	if err != nil {
		if errors.Is(err, ErrExceedsMaxAllowance) {
			metrics.AllowanceRejections.Inc()
		}
		writeServiceError(w, err)
		return
	}
	metrics.WagerLatency.Observe(time.Since(start).Seconds())
	metrics.WagersTotal.WithLabelValues(lotteryID).Add(float64(len(purchases)))

	slog.Info("wagers placed",
		"lottery", lotteryID,
		"gambler", req.Gambler,
		"entries", len(purchases),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(purchases)
}

// HandleGetWagers handles GET /api/v1/lotteries/{lotteryID}/wagers/{gambler}
func (s *Service) HandleGetWagers(w http.ResponseWriter, r *http.Request) {
	lotteryID := chi.URLParam(r, "lotteryID")
	gambler := chi.URLParam(r, "gambler")

	purchases, err := s.Wagers(r.Context(), lotteryID, gambler)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if purchases == nil {
		purchases = []model.Purchase{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(purchases)
}

// HandleStake handles POST /api/v1/lotteries/{lotteryID}/stake
func (s *Service) HandleStake(w http.ResponseWriter, r *http.Request) {
	lotteryID := chi.URLParam(r, "lotteryID")

	var req StakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Banker == "" {
		writeError(w, "banker is required", http.StatusBadRequest)
		return
	}

	pos, err := s.StakeStable(r.Context(), lotteryID, req.Banker, req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	slog.Info("stable staked",
		"lottery", lotteryID,
		"banker", req.Banker,
		"amount", req.Amount.String(),
		"principal", pos.Principal.String(),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pos)
}

// HandleUnstake handles POST /api/v1/lotteries/{lotteryID}/unstake
func (s *Service) HandleUnstake(w http.ResponseWriter, r *http.Request) {
	lotteryID := chi.URLParam(r, "lotteryID")

	var req StakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Banker == "" {
		writeError(w, "banker is required", http.StatusBadRequest)
		return
	}

	pos, err := s.UnstakeStable(r.Context(), lotteryID, req.Banker, req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	slog.Info("stable unstaked",
		"lottery", lotteryID,
		"banker", req.Banker,
		"amount", req.Amount.String(),
		"principal", pos.Principal.String(),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pos)
}

// HandleGetStake handles GET /api/v1/lotteries/{lotteryID}/stake/{banker}
func (s *Service) HandleGetStake(w http.ResponseWriter, r *http.Request) {
	lotteryID := chi.URLParam(r, "lotteryID")
	banker := chi.URLParam(r, "banker")

	principal, err := s.BankerStaked(r.Context(), lotteryID, banker)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"banker":    banker,
		"principal": principal.String(),
	})
}

// HandleClose handles POST /api/v1/lotteries/{lotteryID}/close
func (s *Service) HandleClose(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.CloseLottery, "lottery closed")
}

// HandleReopen handles POST /api/v1/lotteries/{lotteryID}/reopen
func (s *Service) HandleReopen(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.ReopenLottery, "lottery reopened")
}

// HandleAdjustWinningCount handles PUT /api/v1/lotteries/{lotteryID}/winning-count
func (s *Service) HandleAdjustWinningCount(w http.ResponseWriter, r *http.Request) {
	lotteryID := chi.URLParam(r, "lotteryID")

	var req AdjustWinningCountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.AdjustTotalWinningNumber(r.Context(), lotteryID, req.Caller, req.Count); err != nil {
		writeServiceError(w, err)
		return
	}

	slog.Info("winning count adjusted", "lottery", lotteryID, "count", req.Count)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"total_winning_numbers": req.Count})
}

// HandleDraw handles POST /api/v1/lotteries/{lotteryID}/draw
func (s *Service) HandleDraw(w http.ResponseWriter, r *http.Request) {
	lotteryID := chi.URLParam(r, "lotteryID")

	var req DrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.SetWinningNumbers(r.Context(), lotteryID, req.Caller, req.Numbers)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandleGetWinningNumbers handles GET /api/v1/lotteries/{lotteryID}/winning-numbers
func (s *Service) HandleGetWinningNumbers(w http.ResponseWriter, r *http.Request) {
	lotteryID := chi.URLParam(r, "lotteryID")

	numbers, err := s.WinningNumbers(r.Context(), lotteryID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if numbers == nil {
		numbers = []int{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]int{"winning_numbers": numbers})
}

// HandleGetMultiplier handles GET /api/v1/lotteries/{lotteryID}/numbers/{number}/multiplier
func (s *Service) HandleGetMultiplier(w http.ResponseWriter, r *http.Request) {
	lotteryID := chi.URLParam(r, "lotteryID")
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, "invalid number", http.StatusBadRequest)
		return
	}

	mult, err := s.RewardMultiplier(r.Context(), lotteryID, number)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{"multiplier": mult})
}

// HandleGetMaxAllowBet handles GET /api/v1/lotteries/{lotteryID}/numbers/{number}/max-bet
func (s *Service) HandleGetMaxAllowBet(w http.ResponseWriter, r *http.Request) {
	lotteryID := chi.URLParam(r, "lotteryID")
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, "invalid number", http.StatusBadRequest)
		return
	}

	maxBet, err := s.MaxAllowBet(r.Context(), lotteryID, number)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"max_bet": maxBet.String()})
}

// HandleGetLocked handles GET /api/v1/lotteries/{lotteryID}/locked
func (s *Service) HandleGetLocked(w http.ResponseWriter, r *http.Request) {
	lotteryID := chi.URLParam(r, "lotteryID")

	amount, percent, err := s.LockedStable(r.Context(), lotteryID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"locked_stable":  amount.String(),
		"locked_percent": percent.String(),
	})
}

// HandleGetClaimable handles GET /api/v1/lotteries/{lotteryID}/claims/{gambler}
func (s *Service) HandleGetClaimable(w http.ResponseWriter, r *http.Request) {
	lotteryID := chi.URLParam(r, "lotteryID")
	gambler := chi.URLParam(r, "gambler")

	claimable, err := s.ClaimableReward(r.Context(), lotteryID, gambler)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"gambler":   gambler,
		"claimable": claimable.String(),
	})
}

// HandleClaim handles POST /api/v1/lotteries/{lotteryID}/claims
func (s *Service) HandleClaim(w http.ResponseWriter, r *http.Request) {
	lotteryID := chi.URLParam(r, "lotteryID")

	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Gambler == "" {
		writeError(w, "gambler is required", http.StatusBadRequest)
		return
	}

	paid, err := s.ClaimReward(r.Context(), lotteryID, req.Gambler)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	metrics.RewardsClaimed.WithLabelValues(lotteryID).Add(paid.InexactFloat64())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"gambler": req.Gambler,
		"paid":    paid.String(),
	})
}

// handleTransition dispatches close/reopen style owner calls.
func (s *Service) handleTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, lotteryID, caller string) error, logMsg string) {
	lotteryID := chi.URLParam(r, "lotteryID")

	var req AdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := fn(r.Context(), lotteryID, req.Caller); err != nil {
		writeServiceError(w, err)
		return
	}

	slog.Info(logMsg, "lottery", lotteryID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// writeServiceError maps service errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, err.Error(), errStatus(err))
}

func errStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, oracle.ErrOracleUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrZeroAmount),
		errors.Is(err, ErrInvalidNumber),
		errors.Is(err, ErrInvalidName),
		errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrInvalidWinningNumber),
		errors.Is(err, ErrDuplicateWinningNumber),
		errors.Is(err, ErrWinningCountMismatch):
		return http.StatusBadRequest
	case errors.Is(err, ErrLotteryClosed),
		errors.Is(err, ErrLotteryNotClosed),
		errors.Is(err, ErrAlreadyClosed),
		errors.Is(err, ErrExceedsMaxAllowance),
		errors.Is(err, ErrExceedsStaked),
		errors.Is(err, ErrExceedsUnlocked),
		errors.Is(err, custody.ErrInsufficientBalance):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
