package mapping

import (
	"context"
	"errors"
	"fmt"

	"github.com/stocklink/stocklink/internal/domain"
	"github.com/stocklink/stocklink/internal/logger"
	"github.com/stocklink/stocklink/internal/metrics"
	"github.com/stocklink/stocklink/internal/remote"
	"github.com/stocklink/stocklink/internal/repository"
)

// Resolver finds or establishes the child-side counterpart of one
// parent-side record.
type Resolver interface {
	// Resolve answers "which child-side record does this parent record map
	// to?" with one of three outcomes: resolved, skip, or needs-creation.
	Resolve(ctx context.Context, req ResolveRequest) (domain.Resolution, error)

	// ConfirmCreated persists the mapping after the caller created the
	// child-side record following a needs-creation outcome.
	ConfirmCreated(ctx context.Context, req ResolveRequest, childID string) (*domain.Mapping, error)

	// ResolveAfterConflict re-runs resolution once after the remote side
	// rejected a create with a uniqueness conflict.
	ResolveAfterConflict(ctx context.Context, req ResolveRequest) (domain.Resolution, error)
}

// ResolveRequest carries everything one resolution needs: the identity key,
// the child account to search, the collection endpoint on the child side and
// the match field/value pair used when no mapping exists yet.
type ResolveRequest struct {
	Key        domain.MappingKey
	Child      *domain.Account
	Endpoint   string
	MatchField string
	MatchValue string
}

type resolver struct {
	store repository.Mapping
	api   remote.API
}

// NewResolver creates a mapping resolver backed by the given store and
// remote client.
func NewResolver(store repository.Mapping, api remote.API) Resolver {
	return &resolver{store: store, api: api}
}

func (r *resolver) Resolve(ctx context.Context, req ResolveRequest) (domain.Resolution, error) {
	log := logger.FromContext(ctx)

	m, err := r.store.Get(ctx, req.Key)
	switch {
	case err == nil:
		if !verifiedKinds[req.Key.Kind] {
			return domain.Resolved(m), nil
		}
		exists, verr := r.childExists(ctx, req, m.ChildID)
		if verr != nil {
			return domain.Resolution{}, verr
		}
		if exists {
			return domain.Resolved(m), nil
		}
		log.Warn("mapped record gone on child side, dropping stale mapping",
			"kind", req.Key.Kind, "parent_id", req.Key.ParentID, "child_id", m.ChildID)
		if derr := r.store.Delete(ctx, req.Key); derr != nil {
			return domain.Resolution{}, fmt.Errorf("failed to drop stale mapping: %w", derr)
		}
	case !errors.Is(err, domain.ErrMappingNotFound):
		return domain.Resolution{}, fmt.Errorf("failed to look up mapping: %w", err)
	}

	if req.MatchValue == "" {
		return domain.SkipResolution("match field " + req.MatchField + " has no value"), nil
	}

	filter := remote.MatchFilter(req.MatchField, req.MatchValue)
	rows, err := r.api.FetchPage(ctx, req.Child, req.Endpoint, filter, searchPageLimit, 0)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("failed to search child account: %w", err)
	}
	if len(rows) == 0 {
		return domain.NeedsCreation(), nil
	}
	if len(rows) > 1 {
		log.Warn("match value is ambiguous on child side, using first hit",
			"kind", req.Key.Kind, "match_field", req.MatchField, "hits", len(rows))
	}

	winner, created, err := r.store.InsertIfAbsent(ctx, &domain.Mapping{
		Key:        req.Key,
		ChildID:    rows[0].ID,
		MatchField: req.MatchField,
		MatchValue: req.MatchValue,
	})
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("failed to persist mapping: %w", err)
	}
	if !created {
		log.Debug("concurrent resolver established the mapping first",
			"kind", req.Key.Kind, "parent_id", req.Key.ParentID, "child_id", winner.ChildID)
	}
	return domain.Resolved(winner), nil
}

func (r *resolver) ConfirmCreated(ctx context.Context, req ResolveRequest, childID string) (*domain.Mapping, error) {
	winner, created, err := r.store.InsertIfAbsent(ctx, &domain.Mapping{
		Key:         req.Key,
		ChildID:     childID,
		MatchField:  req.MatchField,
		MatchValue:  req.MatchValue,
		AutoCreated: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist created mapping: %w", err)
	}
	if !created {
		// Someone else mapped the key while we were creating. Their row
		// wins; the record we created stays behind as a duplicate on the
		// child side and is surfaced for operators to merge.
		logger.FromContext(ctx).Warn("mapping already present after creation",
			"kind", req.Key.Kind, "parent_id", req.Key.ParentID,
			"created_child_id", childID, "mapped_child_id", winner.ChildID)
	}
	return winner, nil
}

// ResolveAfterConflict handles the race where the child-side record appeared
// between our search and our create: the remote side answers the create with
// a uniqueness conflict, and a second resolution pass normally finds the
// record. A second needs-creation outcome means the conflict points at a
// record the match filter cannot see (stale cached metadata, or a unique
// field other than the match field); that one the caller must surface.
func (r *resolver) ResolveAfterConflict(ctx context.Context, req ResolveRequest) (domain.Resolution, error) {
	metrics.MappingConflicts.Inc()

	res, err := r.Resolve(ctx, req)
	if err != nil {
		return domain.Resolution{}, err
	}

	log := logger.FromContext(ctx)
	switch res.Status {
	case domain.StatusResolved:
		log.Info("uniqueness conflict resolved by retry",
			"kind", req.Key.Kind, "parent_id", req.Key.ParentID, "child_id", res.Mapping.ChildID)
	case domain.StatusNeedsCreation:
		log.Error("uniqueness conflict but no matching record found on retry",
			"kind", req.Key.Kind, "parent_id", req.Key.ParentID, "match_field", req.MatchField)
	}
	return res, nil
}

func (r *resolver) childExists(ctx context.Context, req ResolveRequest, childID string) (bool, error) {
	_, err := r.api.FetchEntity(ctx, req.Child, req.Endpoint, childID)
	if err == nil {
		return true, nil
	}
	if remote.IsNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to verify mapped record: %w", err)
}
