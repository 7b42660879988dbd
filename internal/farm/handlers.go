package farm

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/lottera/lottery-core/internal/custody"
)

// StakeRequest is the JSON body for stake and unstake calls.
type StakeRequest struct {
	Account string          `json:"account"`
	Amount  decimal.Decimal `json:"amount"`
}

// ClaimFarmRequest is the JSON body for POST /farm/claims.
type ClaimFarmRequest struct {
	Account string `json:"account"`
}

// HandleStake handles POST /api/v1/farm/stake
func (f *Farm) HandleStake(w http.ResponseWriter, r *http.Request) {
	var req StakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Account == "" {
		writeError(w, "account is required", http.StatusBadRequest)
		return
	}

	info, err := f.Stake(r.Context(), req.Account, req.Amount)
	if err != nil {
		writeFarmError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

// HandleUnstake handles POST /api/v1/farm/unstake
func (f *Farm) HandleUnstake(w http.ResponseWriter, r *http.Request) {
	var req StakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Account == "" {
		writeError(w, "account is required", http.StatusBadRequest)
		return
	}

	info, err := f.Unstake(r.Context(), req.Account, req.Amount)
	if err != nil {
		writeFarmError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

// HandleClaim handles POST /api/v1/farm/claims
func (f *Farm) HandleClaim(w http.ResponseWriter, r *http.Request) {
	var req ClaimFarmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Account == "" {
		writeError(w, "account is required", http.StatusBadRequest)
		return
	}

	paid, err := f.ClaimRewards(r.Context(), req.Account)
	if err != nil {
		writeFarmError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"account": req.Account,
		"paid":    paid.String(),
	})
}

// HandleGetRewards handles GET /api/v1/farm/rewards/{account}
func (f *Farm) HandleGetRewards(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"account": account,
		"rewards": f.GetRewards(account).String(),
	})
}

// HandleGetUserInfo handles GET /api/v1/farm/users/{account}
func (f *Farm) HandleGetUserInfo(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(f.GetUserInfo(account))
}

func writeFarmError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrZeroAmount):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrExceedsShares), errors.Is(err, custody.ErrInsufficientBalance):
		writeError(w, err.Error(), http.StatusConflict)
	default:
		writeError(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
