// backend/src/handlers/response.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/assetfolio/backend/src/logger"
)

type jsonErrorResponse struct {
	Error string `json:"error"`
}

func sendJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(jsonErrorResponse{Error: message}); err != nil {
		logger.L.Error("Error encoding JSON error response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L.Error("Error encoding JSON response", "error", err)
	}
}
