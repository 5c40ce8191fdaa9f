package batch

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/stocklink/stocklink/internal/domain"
	"github.com/stocklink/stocklink/internal/mapping"
	"github.com/stocklink/stocklink/internal/precache"
	"github.com/stocklink/stocklink/internal/remote"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) FetchPage(ctx context.Context, acc *domain.Account, endpoint, filter string, limit, offset int) ([]domain.Entity, error) {
	args := m.Called(ctx, acc, endpoint, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Entity), args.Error(1)
}

func (m *MockAPI) FetchEntity(ctx context.Context, acc *domain.Account, endpoint, id string) (*domain.Entity, error) {
	args := m.Called(ctx, acc, endpoint, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Entity), args.Error(1)
}

func (m *MockAPI) Create(ctx context.Context, acc *domain.Account, endpoint string, body map[string]any) (*domain.Entity, error) {
	args := m.Called(ctx, acc, endpoint, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Entity), args.Error(1)
}

func (m *MockAPI) CreateBulk(ctx context.Context, acc *domain.Account, endpoint string, bodies []map[string]any) ([]remote.BulkResult, error) {
	args := m.Called(ctx, acc, endpoint, bodies)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]remote.BulkResult), args.Error(1)
}

func (m *MockAPI) Update(ctx context.Context, acc *domain.Account, endpoint, id string, body map[string]any) (*domain.Entity, error) {
	args := m.Called(ctx, acc, endpoint, id, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Entity), args.Error(1)
}

func (m *MockAPI) Delete(ctx context.Context, acc *domain.Account, endpoint, id string) error {
	args := m.Called(ctx, acc, endpoint, id)
	return args.Error(0)
}

type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Enqueue(ctx context.Context, job *domain.SyncJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockQueue) Dequeue(ctx context.Context) (*domain.SyncJob, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncJob), args.Error(1)
}

func (m *MockQueue) MarkCompleted(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *MockQueue) MarkFailed(ctx context.Context, jobID string, lastError string) error {
	args := m.Called(ctx, jobID, lastError)
	return args.Error(0)
}

func (m *MockQueue) Reschedule(ctx context.Context, jobID string, at time.Time) error {
	args := m.Called(ctx, jobID, at)
	return args.Error(0)
}

func (m *MockQueue) Stats(ctx context.Context) (map[domain.JobStatus]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.JobStatus]int), args.Error(1)
}

func (m *MockQueue) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepo) GetLink(ctx context.Context, linkID string) (*domain.AccountLink, error) {
	args := m.Called(ctx, linkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountLink), args.Error(1)
}

func (m *MockAccountRepo) ListActiveLinks(ctx context.Context, parentAccountID string) ([]domain.AccountLink, error) {
	args := m.Called(ctx, parentAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AccountLink), args.Error(1)
}

type MockSettingsRepo struct {
	mock.Mock
}

func (m *MockSettingsRepo) GetByLinkID(ctx context.Context, linkID string) (*domain.SyncSettings, error) {
	args := m.Called(ctx, linkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncSettings), args.Error(1)
}

func (m *MockSettingsRepo) Upsert(ctx context.Context, settings *domain.SyncSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

func (m *MockSettingsRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSettingsRepo) List(ctx context.Context) ([]domain.SyncSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SyncSettings), args.Error(1)
}

type MockMappingStore struct {
	mock.Mock
}

func (m *MockMappingStore) Get(ctx context.Context, key domain.MappingKey) (*domain.Mapping, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Mapping), args.Error(1)
}

func (m *MockMappingStore) InsertIfAbsent(ctx context.Context, mp *domain.Mapping) (*domain.Mapping, bool, error) {
	args := m.Called(ctx, mp)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Mapping), args.Bool(1), args.Error(2)
}

func (m *MockMappingStore) Delete(ctx context.Context, key domain.MappingKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockMappingStore) ListByKind(ctx context.Context, parentAccountID, childAccountID string, kind domain.MappingKind) ([]domain.Mapping, error) {
	args := m.Called(ctx, parentAccountID, childAccountID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Mapping), args.Error(1)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, req mapping.ResolveRequest) (domain.Resolution, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.Resolution), args.Error(1)
}

func (m *MockResolver) ConfirmCreated(ctx context.Context, req mapping.ResolveRequest, childID string) (*domain.Mapping, error) {
	args := m.Called(ctx, req, childID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Mapping), args.Error(1)
}

func (m *MockResolver) ResolveAfterConflict(ctx context.Context, req mapping.ResolveRequest) (domain.Resolution, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.Resolution), args.Error(1)
}

// stubLookup backs strategy selection in loader tests.
type stubLookup map[string]string

func (s stubLookup) AttributeQueryField(attributeID string) (string, bool) {
	f, ok := s[attributeID]
	return f, ok
}

// stubCache is a no-op precache.Service for task-creation tests.
type stubCache struct{}

func (stubCache) CacheAll(ctx context.Context, run *precache.Run) error { return nil }
func (stubCache) PrimeAttributeMetadata(ctx context.Context, run *precache.Run) error {
	return nil
}
func (stubCache) ChildID(run *precache.Run, kind domain.MappingKind, entityType domain.EntityType, parentID string) (string, bool) {
	return "", false
}
func (stubCache) AttributeQueryField(run *precache.Run, attributeID string) (string, bool) {
	return "", false
}
func (stubCache) Reset(run *precache.Run) {}
