package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/stocklink/stocklink/internal/batch"
	"github.com/stocklink/stocklink/internal/domain"
	"github.com/stocklink/stocklink/internal/logger"
	"github.com/stocklink/stocklink/internal/precache"
	"github.com/stocklink/stocklink/internal/repository"
)

// SyncHandlers serves the synchronization trigger endpoints and queue
// introspection.
type SyncHandlers struct {
	batch    batch.Service
	accounts repository.Account
	settings repository.Settings
	queue    repository.Queue
}

func NewSyncHandlers(batch batch.Service, accounts repository.Account, settings repository.Settings, queue repository.Queue) *SyncHandlers {
	return &SyncHandlers{batch: batch, accounts: accounts, settings: settings, queue: queue}
}

// BatchSyncRequest triggers a batch synchronization of one catalog kind
// over one link.
type BatchSyncRequest struct {
	AccountLinkID string `json:"account_link_id" validate:"required"`
	EntityType    string `json:"entity_type" validate:"required,entitytype"`
}

// AssortmentSyncRequest triggers a combined batch synchronization of every
// enabled catalog kind over one link.
type AssortmentSyncRequest struct {
	AccountLinkID string `json:"account_link_id" validate:"required"`
}

// EntitySyncRequest fans one changed entity out to every eligible child of
// a main account.
type EntitySyncRequest struct {
	AccountID  string `json:"account_id" validate:"required"`
	EntityType string `json:"entity_type" validate:"required,entitytype"`
	EntityID   string `json:"entity_id" validate:"required"`
}

// TriggerResponse reports how many queue jobs a trigger produced.
type TriggerResponse struct {
	Message string `json:"message"`
	Jobs    int    `json:"jobs"`
}

// HandleBatchSync enqueues batch jobs for one catalog kind.
func (h *SyncHandlers) HandleBatchSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BatchSyncRequest
		if err := DecodeAndValidateRequest(r, w, &req, "Batch sync"); err != nil {
			return
		}

		run, err := h.buildRun(r.Context(), req.AccountLinkID)
		if err != nil {
			respondServiceError(w, r, ErrMsgTriggerBatchFailed, err)
			return
		}

		jobs, err := h.batch.LoadAndCreateBatchTasks(r.Context(), run, domain.EntityType(req.EntityType))
		if err != nil {
			respondServiceError(w, r, ErrMsgTriggerBatchFailed, err)
			return
		}

		respondJSON(w, http.StatusAccepted, TriggerResponse{
			Message: fmt.Sprintf("batch sync of %s enqueued", req.EntityType),
			Jobs:    jobs,
		})
	}
}

// HandleAssortmentSync enqueues batch jobs for all enabled kinds in one
// combined fetch.
func (h *SyncHandlers) HandleAssortmentSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AssortmentSyncRequest
		if err := DecodeAndValidateRequest(r, w, &req, "Assortment sync"); err != nil {
			return
		}

		run, err := h.buildRun(r.Context(), req.AccountLinkID)
		if err != nil {
			respondServiceError(w, r, ErrMsgTriggerBatchFailed, err)
			return
		}

		jobs, err := h.batch.LoadAndCreateAssortmentBatchTasks(r.Context(), run)
		if err != nil {
			respondServiceError(w, r, ErrMsgTriggerBatchFailed, err)
			return
		}

		respondJSON(w, http.StatusAccepted, TriggerResponse{
			Message: "assortment sync enqueued",
			Jobs:    jobs,
		})
	}
}

// HandleEntitySync fans one entity change out across child accounts. This
// is the endpoint remote webhooks land on.
func (h *SyncHandlers) HandleEntitySync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EntitySyncRequest
		if err := DecodeAndValidateRequest(r, w, &req, "Entity sync"); err != nil {
			return
		}

		jobs, err := h.batch.SyncEntityToChildren(r.Context(), req.AccountID, domain.EntityType(req.EntityType), req.EntityID)
		if err != nil {
			respondServiceError(w, r, ErrMsgTriggerEntityFailed, err)
			return
		}

		logger.FromContext(r.Context()).Info("entity sync triggered",
			"account_id", req.AccountID, "type", req.EntityType, "entity_id", req.EntityID, "jobs", jobs)
		respondJSON(w, http.StatusAccepted, TriggerResponse{
			Message: fmt.Sprintf("entity %s fan-out enqueued", req.EntityID),
			Jobs:    jobs,
		})
	}
}

// HandleQueueStats reports job counts by status.
func (h *SyncHandlers) HandleQueueStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := h.queue.Stats(r.Context())
		if err != nil {
			respondServiceError(w, r, ErrMsgQueueStatsFailed, err)
			return
		}
		respondJSON(w, http.StatusOK, DataResponse{Data: stats})
	}
}

// buildRun loads the link, both accounts and the settings a batch trigger
// operates on.
func (h *SyncHandlers) buildRun(ctx context.Context, linkID string) (*precache.Run, error) {
	link, err := h.accounts.GetLink(ctx, linkID)
	if err != nil {
		return nil, err
	}
	parent, err := h.accounts.GetAccount(ctx, link.ParentAccountID)
	if err != nil {
		return nil, err
	}
	child, err := h.accounts.GetAccount(ctx, link.ChildAccountID)
	if err != nil {
		return nil, err
	}
	settings, err := h.settings.GetByLinkID(ctx, link.ID)
	if err != nil {
		return nil, err
	}
	return &precache.Run{Parent: parent, Child: child, Link: link, Settings: settings}, nil
}
