// backend/src/handlers/investment_handler.go
package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/username/assetfolio/backend/src/logger"
	"github.com/username/assetfolio/backend/src/services"
)

type InvestmentHandler struct {
	investmentService *services.InvestmentService
}

func NewInvestmentHandler(service *services.InvestmentService) *InvestmentHandler {
	return &InvestmentHandler{investmentService: service}
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// HandleGetInvestmentView serves the per-user investment summary.
func (h *InvestmentHandler) HandleGetInvestmentView(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		sendJSONError(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	view, err := h.investmentService.GetInvestmentView(userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendJSONError(w, "User not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to load investment view", "userID", userID, "error", err)
		sendJSONError(w, "Failed to load investment view", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleGetInvestmentDetail serves one investment with its proceeds
// figures.
func (h *InvestmentHandler) HandleGetInvestmentDetail(w http.ResponseWriter, r *http.Request) {
	investmentID, err := pathID(r, "investmentID")
	if err != nil {
		sendJSONError(w, "Invalid investment id", http.StatusBadRequest)
		return
	}

	view, err := h.investmentService.GetInvestmentDetail(investmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendJSONError(w, "Investment not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to load investment detail", "investmentID", investmentID, "error", err)
		sendJSONError(w, "Failed to load investment detail", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleGetUserHoldings serves the user's positions with their
// appraisal amounts.
func (h *InvestmentHandler) HandleGetUserHoldings(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		sendJSONError(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	views, err := h.investmentService.GetUserHoldingViews(userID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to load user holdings", "userID", userID, "error", err)
		sendJSONError(w, "Failed to load user holdings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, views)
}
