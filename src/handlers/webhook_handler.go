package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/username/tradevault/src/logger"
	"github.com/username/tradevault/src/models"
	"github.com/username/tradevault/src/services"
	"github.com/username/tradevault/src/utils"
)

type WebhookHandler struct {
	webhookService *services.WebhookService
}

func NewWebhookHandler(webhookService *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// HandleTradingViewAlert ingests one alert. The shared secret travels in the
// X-Webhook-Secret header; the per-user routing token is part of the body.
func (h *WebhookHandler) HandleTradingViewAlert(w http.ResponseWriter, r *http.Request) {
	var alert models.WebhookAlert
	if err := json.NewDecoder(r.Body).Decode(&alert); err != nil {
		utils.SendJSONError(w, "malformed alert payload", http.StatusBadRequest)
		return
	}

	trade, err := h.webhookService.HandleAlert(alert, r.Header.Get("X-Webhook-Secret"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBadWebhookSecret):
			utils.SendJSONError(w, "invalid webhook secret", http.StatusUnauthorized)
		case errors.Is(err, services.ErrUnknownToken):
			utils.SendJSONError(w, "user not found", http.StatusNotFound)
		case errors.Is(err, services.ErrUnknownAccount):
			utils.SendJSONError(w, "account not found", http.StatusNotFound)
		case errors.Is(err, services.ErrParsingFailed):
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			logger.L.Error("Webhook ingestion failed", "error", err)
			utils.SendJSONError(w, "internal error processing alert", http.StatusInternalServerError)
		}
		return
	}

	utils.SendJSON(w, http.StatusOK, map[string]any{"status": "ok", "trade_id": trade.ID})
}
