package precache

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/stocklink/stocklink/internal/domain"
	"github.com/stocklink/stocklink/internal/remote"
)

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
