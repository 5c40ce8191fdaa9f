package handler

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/stocklink/stocklink/internal/domain"
	"github.com/stocklink/stocklink/internal/precache"
)

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

type MockBatchService struct {
	mock.Mock
}

func (m *MockBatchService) LoadAndCreateBatchTasks(ctx context.Context, run *precache.Run, t domain.EntityType) (int, error) {
	args := m.Called(ctx, run, t)
	return args.Int(0), args.Error(1)
}

func (m *MockBatchService) LoadAndCreateAssortmentBatchTasks(ctx context.Context, run *precache.Run) (int, error) {
	args := m.Called(ctx, run)
	return args.Int(0), args.Error(1)
}

func (m *MockBatchService) SyncEntityToChildren(ctx context.Context, parentAccountID string, t domain.EntityType, entityID string) (int, error) {
	args := m.Called(ctx, parentAccountID, t, entityID)
	return args.Int(0), args.Error(1)
}

func (m *MockBatchService) SyncAllDirect(ctx context.Context, run *precache.Run, t domain.EntityType) (domain.BatchReport, error) {
	args := m.Called(ctx, run, t)
	return args.Get(0).(domain.BatchReport), args.Error(1)
}
