// backend/src/handlers/deposit_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/username/assetfolio/backend/src/deposit"
	"github.com/username/assetfolio/backend/src/logger"
)

type DepositHandler struct {
	depositService *deposit.Service
}

func NewDepositHandler(service *deposit.Service) *DepositHandler {
	return &DepositHandler{depositService: service}
}

type issueDepositRequest struct {
	UserName       string          `json:"user_name"`
	AccountNumber  string          `json:"account_number"`
	TransferAmount decimal.Decimal `json:"transfer_amount"`
}

type issueDepositResponse struct {
	TransferIdentifier int64 `json:"transfer_identifier"`
}

// HandleIssueDeposit creates a signed deposit claim. Only the transfer
// identifier is returned; the signature stays server-side.
func (h *DepositHandler) HandleIssueDeposit(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	var req issueDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if req.UserName == "" || req.AccountNumber == "" {
		sendJSONError(w, "user_name and account_number are required", http.StatusBadRequest)
		return
	}
	if !req.TransferAmount.IsPositive() {
		sendJSONError(w, "transfer_amount must be positive", http.StatusBadRequest)
		return
	}

	transferID, err := h.depositService.IssueClaim(req.UserName, req.AccountNumber, req.TransferAmount)
	if err != nil {
		ctxLogger.Error("Failed to issue deposit claim", "accountNumber", req.AccountNumber, "error", err)
		sendJSONError(w, "Failed to issue deposit claim", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, issueDepositResponse{TransferIdentifier: transferID})
}

type settleDepositRequest struct {
	TransferIdentifier int64  `json:"transfer_identifier"`
	Signature          string `json:"signature"`
}

type settleDepositResponse struct {
	Status bool `json:"status"`
}

// HandleSettleDeposit verifies a claim and credits the account. Any
// verification failure leaves the claim pending and the balance
// untouched.
func (h *DepositHandler) HandleSettleDeposit(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	var req settleDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if req.TransferIdentifier == 0 || req.Signature == "" {
		sendJSONError(w, "transfer_identifier and signature are required", http.StatusBadRequest)
		return
	}

	err := h.depositService.SettleClaim(req.TransferIdentifier, req.Signature)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, settleDepositResponse{Status: true})
	case errors.Is(err, deposit.ErrClaimNotFound):
		sendJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, deposit.ErrAlreadySettled):
		sendJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, deposit.ErrInvalidSignature),
		errors.Is(err, deposit.ErrClaimExpired),
		errors.Is(err, deposit.ErrClaimMismatch):
		ctxLogger.Warn("Deposit settlement rejected", "transferID", req.TransferIdentifier, "error", err)
		sendJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		ctxLogger.Error("Deposit settlement failed", "transferID", req.TransferIdentifier, "error", err)
		sendJSONError(w, "Failed to settle deposit", http.StatusInternalServerError)
	}
}
