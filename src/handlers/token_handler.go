package handlers

import (
	"net/http"

	"github.com/username/tradevault/src/logger"
	"github.com/username/tradevault/src/storage"
	"github.com/username/tradevault/src/utils"
)

type TokenHandler struct {
	tokens storage.TokenStore
}

func NewTokenHandler(tokens storage.TokenStore) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

// HandleRotateToken issues a fresh ingestion token for the caller and
// invalidates the one used to authenticate this request.
func (h *TokenHandler) HandleRotateToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	token, err := h.tokens.Rotate(userID)
	if err != nil {
		logger.L.Error("Token rotation failed", "userID", userID, "error", err)
		utils.SendJSONError(w, "internal error rotating token", http.StatusInternalServerError)
		return
	}
	logger.L.Info("Ingestion token rotated", "userID", userID)
	utils.SendJSON(w, http.StatusOK, map[string]string{"token": token})
}
