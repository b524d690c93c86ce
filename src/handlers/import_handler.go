package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/username/tradevault/src/config"
	"github.com/username/tradevault/src/logger"
	"github.com/username/tradevault/src/models"
	"github.com/username/tradevault/src/parsers"
	"github.com/username/tradevault/src/services"
	"github.com/username/tradevault/src/storage"
	"github.com/username/tradevault/src/utils"
)

type ImportHandler struct {
	importService *services.ImportService
	accounts      storage.AccountStore
	mappings      storage.MappingStore
}

func NewImportHandler(importService *services.ImportService, accounts storage.AccountStore, mappings storage.MappingStore) *ImportHandler {
	return &ImportHandler{importService: importService, accounts: accounts, mappings: mappings}
}

// HandleImport ingests a multipart CSV upload. The source mapping comes, in
// order of preference, from a saved mapping profile named in the "mapping"
// form field, or from signature auto-detection. When neither applies the
// response names the failure so the client can collect a manual mapping.
func (h *ImportHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "userID", userID, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)",
			config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	account, err := h.resolveAccount(userID, r.FormValue("account"))
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	headers, records, err := parsers.ReadRecords(file)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error reading CSV file: %v", err), http.StatusBadRequest)
		return
	}

	spec, source, err := h.resolveMapping(userID, r.FormValue("mapping"), headers)
	if err != nil {
		utils.SendJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":         err.Error(),
			"needs_mapping": true,
			"headers":       headers,
		})
		return
	}

	logger.L.Info("Processing import", "userID", userID, "accountID", account.ID,
		"filename", fileHeader.Filename, "source", source)

	result, err := h.importService.ImportBatch(userID, account.ID, records, spec, models.SourceCSV)
	if err != nil {
		if errors.Is(err, services.ErrStorageUnavailable) {
			utils.SendJSONError(w, "storage unavailable, import aborted", http.StatusServiceUnavailable)
			return
		}
		logger.L.Error("Internal error processing import", "userID", userID, "error", err)
		utils.SendJSONError(w, "An internal error occurred while processing the file.", http.StatusInternalServerError)
		return
	}

	utils.SendJSON(w, http.StatusOK, result)
}

func (h *ImportHandler) resolveAccount(userID int64, raw string) (*models.Account, error) {
	if raw == "" {
		return h.accounts.EnsureDefault(userID)
	}
	account, err := h.accounts.FindByTag(userID, raw)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("unknown account %q", raw)
	}
	return account, nil
}

func (h *ImportHandler) resolveMapping(userID int64, profileName string, headers []string) (models.MappingSpec, string, error) {
	if profileName != "" {
		profile, err := h.mappings.FindByName(userID, profileName)
		if err != nil {
			return models.MappingSpec{}, "", fmt.Errorf("loading mapping profile: %w", err)
		}
		if profile == nil {
			return models.MappingSpec{}, "", fmt.Errorf("mapping profile %q not found", profileName)
		}
		return profile.Mapping, profile.Source, nil
	}
	source, spec, ok := parsers.Detect(headers)
	if !ok {
		return models.MappingSpec{}, "", fmt.Errorf("no known source signature matches the file header; supply a mapping profile")
	}
	return spec, source, nil
}
