package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/tradevault/src/models"
	"github.com/username/tradevault/src/storage"
	"github.com/username/tradevault/src/utils"
)

type MappingHandler struct {
	mappings storage.MappingStore
}

func NewMappingHandler(mappings storage.MappingStore) *MappingHandler {
	return &MappingHandler{mappings: mappings}
}

type saveMappingRequest struct {
	Name    string             `json:"name"`
	Source  string             `json:"source"`
	Mapping models.MappingSpec `json:"mapping"`
}

// HandleSaveMapping stores a named, reusable column mapping for the caller.
func (h *MappingHandler) HandleSaveMapping(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req saveMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "malformed mapping payload", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		utils.SendJSONError(w, "mapping name is required", http.StatusBadRequest)
		return
	}
	if req.Mapping.Symbol == "" || req.Mapping.Side == "" || req.Mapping.Quantity == "" ||
		req.Mapping.EntryPrice == "" || req.Mapping.EntryTime == "" {
		utils.SendJSONError(w, "mapping must cover symbol, side, quantity, entry price and entry time", http.StatusBadRequest)
		return
	}
	if req.Source == "" {
		req.Source = "custom"
	}

	profile := &models.MappingProfile{
		UserID:  userID,
		Name:    req.Name,
		Source:  req.Source,
		Mapping: req.Mapping,
	}
	if err := h.mappings.Save(profile); err != nil {
		utils.SendJSONError(w, "internal error saving mapping", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, http.StatusOK, profile)
}

// HandleListMappings lists the caller's saved mapping profiles.
func (h *MappingHandler) HandleListMappings(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	profiles, err := h.mappings.ListByUser(userID)
	if err != nil {
		utils.SendJSONError(w, "internal error listing mappings", http.StatusInternalServerError)
		return
	}
	if profiles == nil {
		profiles = []models.MappingProfile{}
	}
	utils.SendJSON(w, http.StatusOK, profiles)
}
