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

type EmailHandler struct {
	emailService *services.InboundEmailService
}

func NewEmailHandler(emailService *services.InboundEmailService) *EmailHandler {
	return &EmailHandler{emailService: emailService}
}

// HandleInboundEmail ingests one decoded inbound message, typically posted
// by the mail provider's route. MIME decoding happens upstream; this
// endpoint receives the structured form.
func (h *EmailHandler) HandleInboundEmail(w http.ResponseWriter, r *http.Request) {
	var mail models.InboundEmail
	if err := json.NewDecoder(r.Body).Decode(&mail); err != nil {
		utils.SendJSONError(w, "malformed inbound email payload", http.StatusBadRequest)
		return
	}

	result, err := h.emailService.HandleEmail(mail)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownToken):
			utils.SendJSONError(w, "user not found", http.StatusNotFound)
		default:
			logger.L.Error("Inbound email ingestion failed", "recipient", mail.Recipient, "error", err)
			utils.SendJSONError(w, "internal error processing email", http.StatusInternalServerError)
		}
		return
	}

	utils.SendJSON(w, http.StatusOK, result)
}
