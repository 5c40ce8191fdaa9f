package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stocklink/stocklink/internal/domain"
	"github.com/stocklink/stocklink/internal/filter"
	"github.com/stocklink/stocklink/internal/logger"
	"github.com/stocklink/stocklink/internal/repository"
)

// SettingsHandlers serves the per-link sync configuration CRUD.
type SettingsHandlers struct {
	settings repository.Settings
	accounts repository.Account
}

func NewSettingsHandlers(settings repository.Settings, accounts repository.Account) *SettingsHandlers {
	return &SettingsHandlers{settings: settings, accounts: accounts}
}

// SaveSettingsRequest is the upsert payload for one link's configuration.
type SaveSettingsRequest struct {
	AccountLinkID      string              `json:"account_link_id" validate:"required"`
	EntityTypes        []string            `json:"entity_types" validate:"required,min=1,dive,entitytype"`
	MatchFields        map[string]string   `json:"match_fields" validate:"omitempty,dive,matchfield"`
	Filter             *domain.FilterSpec  `json:"filter,omitempty"`
	PriceMappings      map[string]string   `json:"price_mappings,omitempty"`
	AttributeAllowlist map[string][]string `json:"attribute_allowlist,omitempty"`
	CreateFolders      bool                `json:"create_folders"`
	SyncImages         bool                `json:"sync_images"`
	ImageFanoutLimit   int                 `json:"image_fanout_limit" validate:"gte=0"`
}

// HandleSave upserts the sync settings of one account link.
func (h *SettingsHandlers) HandleSave() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SaveSettingsRequest
		if err := DecodeAndValidateRequest(r, w, &req, "Save settings"); err != nil {
			return
		}

		// The link must exist before configuration may attach to it.
		if _, err := h.accounts.GetLink(r.Context(), req.AccountLinkID); err != nil {
			respondServiceError(w, r, ErrMsgSaveSettingsFailed, err)
			return
		}

		if problems := filter.Validate(req.Filter); len(problems) > 0 {
			fields := make(map[string]string, len(problems))
			for _, p := range problems {
				fields[p.Path] = p.Message
			}
			respondJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error:  ErrMsgInvalidFilterHTTP,
				Fields: fields,
			})
			return
		}

		settings := &domain.SyncSettings{
			AccountLinkID:      req.AccountLinkID,
			EntityTypes:        toEntityTypes(req.EntityTypes),
			MatchFields:        toMatchFields(req.MatchFields),
			Filter:             req.Filter,
			PriceMappings:      req.PriceMappings,
			AttributeAllowlist: toAllowlist(req.AttributeAllowlist),
			CreateFolders:      req.CreateFolders,
			SyncImages:         req.SyncImages,
			ImageFanoutLimit:   req.ImageFanoutLimit,
		}
		if err := h.settings.Upsert(r.Context(), settings); err != nil {
			respondServiceError(w, r, ErrMsgSaveSettingsFailed, err)
			return
		}

		logger.FromContext(r.Context()).Info("sync settings saved", "link_id", req.AccountLinkID)
		respondJSON(w, http.StatusOK, DataResponse{Message: MsgSettingsSavedSuccess, Data: settings})
	}
}

// HandleGet returns the settings of one link.
func (h *SettingsHandlers) HandleGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		linkID, ok := GetQueryParam(r, w, "link_id")
		if !ok {
			return
		}

		settings, err := h.settings.GetByLinkID(r.Context(), linkID)
		if err != nil {
			respondServiceError(w, r, ErrMsgListSettingsFailed, err)
			return
		}
		respondJSON(w, http.StatusOK, settings)
	}
}

// HandleList returns the settings of every configured link.
func (h *SettingsHandlers) HandleList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := h.settings.List(r.Context())
		if err != nil {
			respondServiceError(w, r, ErrMsgListSettingsFailed, err)
			return
		}
		respondJSON(w, http.StatusOK, DataResponse{Data: settings})
	}
}

// HandleDelete removes the settings row with the given id.
func (h *SettingsHandlers) HandleDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			respondError(w, http.StatusBadRequest, ErrMsgInvalidRequestSummary)
			return
		}

		if err := h.settings.Delete(r.Context(), id); err != nil {
			respondServiceError(w, r, ErrMsgDeleteSettingsFailed, err)
			return
		}
		respondJSON(w, http.StatusOK, SuccessResponse{Message: MsgSettingsDeletedSuccess})
	}
}

func toEntityTypes(values []string) []domain.EntityType {
	out := make([]domain.EntityType, 0, len(values))
	for _, v := range values {
		out = append(out, domain.EntityType(v))
	}
	return out
}

func toMatchFields(values map[string]string) map[domain.EntityType]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[domain.EntityType]string, len(values))
	for k, v := range values {
		out[domain.EntityType(k)] = v
	}
	return out
}

func toAllowlist(values map[string][]string) map[domain.EntityType][]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[domain.EntityType][]string, len(values))
	for k, v := range values {
		out[domain.EntityType(k)] = v
	}
	return out
}
