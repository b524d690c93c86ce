package handlers

import (
	"net/http"

	"github.com/username/tradevault/src/models"
	"github.com/username/tradevault/src/services"
	"github.com/username/tradevault/src/storage"
	"github.com/username/tradevault/src/utils"
)

type MetricsHandler struct {
	metrics  storage.MetricsStore
	accounts storage.AccountStore
	coach    *services.CoachService
}

func NewMetricsHandler(metrics storage.MetricsStore, accounts storage.AccountStore, coach *services.CoachService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, accounts: accounts, coach: coach}
}

func (h *MetricsHandler) resolveRequest(w http.ResponseWriter, r *http.Request) (userID, accountID int64, date string, ok bool) {
	userID, authed := GetUserIDFromContext(r.Context())
	if !authed {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return 0, 0, "", false
	}

	date = r.URL.Query().Get("date")
	if _, err := utils.ParseDay(date); err != nil {
		utils.SendJSONError(w, "date parameter must be YYYY-MM-DD", http.StatusBadRequest)
		return 0, 0, "", false
	}

	tag := r.URL.Query().Get("account")
	var account *models.Account
	var err error
	if tag == "" {
		account, err = h.accounts.EnsureDefault(userID)
	} else {
		account, err = h.accounts.FindByTag(userID, tag)
	}
	if err != nil {
		utils.SendJSONError(w, "internal error resolving account", http.StatusInternalServerError)
		return 0, 0, "", false
	}
	if account == nil {
		utils.SendJSONError(w, "account not found", http.StatusNotFound)
		return 0, 0, "", false
	}
	return userID, account.ID, date, true
}

// HandleGetDailyMetrics returns the derived aggregate for one day.
func (h *MetricsHandler) HandleGetDailyMetrics(w http.ResponseWriter, r *http.Request) {
	userID, accountID, date, ok := h.resolveRequest(w, r)
	if !ok {
		return
	}

	metric, err := h.metrics.FindByDay(userID, accountID, date)
	if err != nil {
		utils.SendJSONError(w, "internal error reading metrics", http.StatusInternalServerError)
		return
	}
	if metric == nil {
		utils.SendJSONError(w, "no metrics for that date", http.StatusNotFound)
		return
	}
	utils.SendJSON(w, http.StatusOK, metric)
}

// HandleGetDailyCoaching returns AI coaching text for one day. Disabled
// deployments (no coach model configured) answer 404.
func (h *MetricsHandler) HandleGetDailyCoaching(w http.ResponseWriter, r *http.Request) {
	if h.coach == nil {
		utils.SendJSONError(w, "coaching is not enabled", http.StatusNotFound)
		return
	}
	userID, accountID, date, ok := h.resolveRequest(w, r)
	if !ok {
		return
	}

	text, err := h.coach.DailyCoaching(r.Context(), userID, accountID, date)
	if err != nil {
		utils.SendJSONError(w, "internal error generating coaching text", http.StatusInternalServerError)
		return
	}
	if text == "" {
		utils.SendJSONError(w, "no trading activity for that date", http.StatusNotFound)
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]string{"date": date, "coaching": text})
}
