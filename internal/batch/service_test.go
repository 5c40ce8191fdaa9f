package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stocklink/stocklink/internal/domain"
	"github.com/stocklink/stocklink/internal/precache"
	"github.com/stocklink/stocklink/internal/remote"
	"github.com/stocklink/stocklink/internal/syncer"
)

func testRun(types ...domain.EntityType) *precache.Run {
	return &precache.Run{
		Parent: &domain.Account{ID: "parent-acc"},
		Child:  &domain.Account{ID: "child-acc"},
		Link:   &domain.AccountLink{ID: "link-1", ParentAccountID: "parent-acc", ChildAccountID: "child-acc"},
		Settings: &domain.SyncSettings{
			AccountLinkID: "link-1",
			EntityTypes:   types,
		},
	}
}

func newTestService(api *MockAPI, queue *MockQueue, accounts *MockAccountRepo, settings *MockSettingsRepo, pageSize, chunkSize int) Service {
	store := new(MockMappingStore)
	resolver := new(MockResolver)
	orch := syncer.NewOrchestrator(store, resolver, stubCache{}, api)
	loader := NewLoader(api, pageSize)
	return NewService(loader, queue, accounts, settings, orch, stubCache{}, chunkSize, 5<<20, time.Second)
}

func manyProducts(n int) []domain.Entity {
	out := make([]domain.Entity, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Entity{
			ID:     fmt.Sprintf("p%03d", i),
			Type:   domain.EntityProduct,
			Name:   fmt.Sprintf("Product %d", i),
			Fields: map[string]any{"externalCode": fmt.Sprintf("C%03d", i)},
		})
	}
	return out
}

func TestChunkEntitiesCountInvariant(t *testing.T) {
	input := manyProducts(250)

	chunks := chunkEntities(input, 100, 5<<20)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 100)
	assert.Len(t, chunks[1], 100)
	assert.Len(t, chunks[2], 50)

	// Union of all chunks equals the input, no duplicates or omissions.
	seen := make(map[string]bool)
	for _, chunk := range chunks {
		for _, e := range chunk {
			assert.False(t, seen[e.ID], "duplicate entity %s", e.ID)
			seen[e.ID] = true
		}
	}
	assert.Len(t, seen, 250)
}

func TestChunkEntitiesByteBound(t *testing.T) {
	input := manyProducts(10)
	one := entitySize(&input[0])

	// Room for roughly three entities per chunk.
	chunks := chunkEntities(input, 100, one*3+one/2)

	require.NotEmpty(t, chunks)
	total := 0
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 3)
		total += len(chunk)
	}
	assert.Equal(t, 10, total)
}

func TestChunkEntitiesEmptyInput(t *testing.T) {
	assert.Nil(t, chunkEntities(nil, 100, 5<<20))
}

func TestLoadAndCreateBatchTasksEndToEnd(t *testing.T) {
	api := new(MockAPI)
	queue := new(MockQueue)
	run := testRun(domain.EntityProduct)
	svc := newTestService(api, queue, new(MockAccountRepo), new(MockSettingsRepo), 100, 100)

	// 250 products, filter disabled: three full pages then a short one.
	all := manyProducts(250)
	api.On("FetchPage", mock.Anything, run.Parent, "entity/product", "", 100, 0).Return(all[0:100], nil)
	api.On("FetchPage", mock.Anything, run.Parent, "entity/product", "", 100, 100).Return(all[100:200], nil)
	api.On("FetchPage", mock.Anything, run.Parent, "entity/product", "", 100, 200).Return(all[200:250], nil)

	var jobs []*domain.SyncJob
	queue.On("Enqueue", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		jobs = append(jobs, args.Get(1).(*domain.SyncJob))
	}).Return(nil)

	created, err := svc.LoadAndCreateBatchTasks(context.Background(), run, domain.EntityProduct)

	require.NoError(t, err)
	assert.Equal(t, 3, created)
	require.Len(t, jobs, 3)

	sizes := make([]int, 0, 3)
	seen := make(map[string]bool)
	for _, job := range jobs {
		assert.Equal(t, domain.OperationBatchSync, job.Operation)
		assert.Equal(t, domain.PriorityManual, job.Priority)
		assert.Equal(t, "link-1", job.LinkID)

		var payload domain.BatchPayload
		require.NoError(t, json.Unmarshal(job.Payload, &payload))
		assert.Equal(t, "products", payload.Key)
		sizes = append(sizes, len(payload.Entities))
		for _, e := range payload.Entities {
			seen[e.ID] = true
		}
	}
	assert.Equal(t, []int{100, 100, 50}, sizes)
	assert.Len(t, seen, 250)
}

func TestLoadAndCreateBatchTasksSkipsDisabledType(t *testing.T) {
	api := new(MockAPI)
	queue := new(MockQueue)
	run := testRun(domain.EntityProduct)
	svc := newTestService(api, queue, new(MockAccountRepo), new(MockSettingsRepo), 100, 100)

	created, err := svc.LoadAndCreateBatchTasks(context.Background(), run, domain.EntityBundle)

	require.NoError(t, err)
	assert.Zero(t, created)
	api.AssertNotCalled(t, "FetchPage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAssortmentTasksSplitByKind(t *testing.T) {
	api := new(MockAPI)
	queue := new(MockQueue)
	run := testRun(domain.EntityProduct, domain.EntityService)
	svc := newTestService(api, queue, new(MockAccountRepo), new(MockSettingsRepo), 100, 100)

	rows := []domain.Entity{
		{ID: "p1", Type: domain.EntityProduct, Name: "Widget", Fields: map[string]any{"externalCode": "C1"}},
		{ID: "s1", Type: domain.EntityService, Name: "Install", Fields: map[string]any{"externalCode": "C2"}},
		{ID: "p2", Type: domain.EntityProduct, Name: ""}, // dropped by post-filter
		{ID: "b1", Type: domain.EntityBundle, Name: "Kit"}, // kind disabled
	}
	api.On("FetchPage", mock.Anything, run.Parent, "entity/assortment", "", 100, 0).Return(rows, nil)

	var jobs []*domain.SyncJob
	queue.On("Enqueue", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		jobs = append(jobs, args.Get(1).(*domain.SyncJob))
	}).Return(nil)

	created, err := svc.LoadAndCreateAssortmentBatchTasks(context.Background(), run)

	require.NoError(t, err)
	assert.Equal(t, 2, created)
	require.Len(t, jobs, 2)

	kinds := map[domain.EntityType]int{}
	for _, job := range jobs {
		var payload domain.BatchPayload
		require.NoError(t, json.Unmarshal(job.Payload, &payload))
		kinds[job.EntityType] = len(payload.Entities)
	}
	assert.Equal(t, map[domain.EntityType]int{domain.EntityProduct: 1, domain.EntityService: 1}, kinds)
}

func TestSyncEntityToChildrenSpreadsSchedule(t *testing.T) {
	api := new(MockAPI)
	queue := new(MockQueue)
	accounts := new(MockAccountRepo)
	settings := new(MockSettingsRepo)
	svc := newTestService(api, queue, accounts, settings, 100, 100)

	links := []domain.AccountLink{
		{ID: "link-1", ParentAccountID: "parent-acc", ChildAccountID: "child-1", Status: domain.LinkActive},
		{ID: "link-2", ParentAccountID: "parent-acc", ChildAccountID: "child-2", Status: domain.LinkActive},
		{ID: "link-3", ParentAccountID: "parent-acc", ChildAccountID: "child-3", Status: domain.LinkActive},
	}
	accounts.On("ListActiveLinks", mock.Anything, "parent-acc").Return(links, nil)

	enabled := &domain.SyncSettings{EntityTypes: []domain.EntityType{domain.EntityProduct}}
	settings.On("GetByLinkID", mock.Anything, "link-1").Return(enabled, nil)
	// link-2 has product sync off, link-3 has no settings at all.
	settings.On("GetByLinkID", mock.Anything, "link-2").
		Return(&domain.SyncSettings{EntityTypes: []domain.EntityType{domain.EntityService}}, nil)
	settings.On("GetByLinkID", mock.Anything, "link-3").Return(nil, domain.ErrSettingsNotFound)

	var jobs []*domain.SyncJob
	queue.On("Enqueue", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		jobs = append(jobs, args.Get(1).(*domain.SyncJob))
	}).Return(nil)

	enqueued, err := svc.SyncEntityToChildren(context.Background(), "parent-acc", domain.EntityProduct, "prod-1")

	require.NoError(t, err)
	assert.Equal(t, 1, enqueued)
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.OperationEntitySync, jobs[0].Operation)
	assert.Equal(t, domain.PriorityWebhook, jobs[0].Priority)
	assert.Equal(t, "prod-1", jobs[0].EntityID)
}

func TestSyncEntityToChildrenDelaysIncrease(t *testing.T) {
	api := new(MockAPI)
	queue := new(MockQueue)
	accounts := new(MockAccountRepo)
	settings := new(MockSettingsRepo)
	svc := newTestService(api, queue, accounts, settings, 100, 100)

	links := []domain.AccountLink{
		{ID: "link-1", Status: domain.LinkActive},
		{ID: "link-2", Status: domain.LinkActive},
	}
	accounts.On("ListActiveLinks", mock.Anything, "parent-acc").Return(links, nil)
	enabled := &domain.SyncSettings{EntityTypes: []domain.EntityType{domain.EntityProduct}}
	settings.On("GetByLinkID", mock.Anything, mock.Anything).Return(enabled, nil)

	var jobs []*domain.SyncJob
	queue.On("Enqueue", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		jobs = append(jobs, args.Get(1).(*domain.SyncJob))
	}).Return(nil)

	enqueued, err := svc.SyncEntityToChildren(context.Background(), "parent-acc", domain.EntityProduct, "prod-1")

	require.NoError(t, err)
	assert.Equal(t, 2, enqueued)
	require.Len(t, jobs, 2)
	gap := jobs[1].ScheduledAt.Sub(jobs[0].ScheduledAt)
	assert.Equal(t, time.Second, gap)
}

func TestSyncAllDirectWorksInSubGroups(t *testing.T) {
	api := new(MockAPI)
	store := new(MockMappingStore)
	resolver := new(MockResolver)
	orch := syncer.NewOrchestrator(store, resolver, stubCache{}, api)
	loader := NewLoader(api, 100)
	svc := NewService(loader, new(MockQueue), new(MockAccountRepo), new(MockSettingsRepo),
		orch, stubCache{}, 100, 5<<20, time.Second)
	run := testRun(domain.EntityProduct)

	// 45 products arrive in a single page and get bulk-posted in fixed
	// sub-groups of 20, 20 and 5.
	all := manyProducts(45)
	api.On("FetchPage", mock.Anything, run.Parent, "entity/product", "", 100, 0).Return(all, nil)

	resolver.On("Resolve", mock.Anything, mock.Anything).Return(domain.NeedsCreation(), nil)
	resolver.On("ConfirmCreated", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.Mapping{ChildID: "created"}, nil)

	var groupSizes []int
	bulkCreated := func(n int) []remote.BulkResult {
		out := make([]remote.BulkResult, n)
		for i := range out {
			out[i] = remote.BulkResult{Entity: &domain.Entity{ID: fmt.Sprintf("c%03d", i)}}
		}
		return out
	}
	record := func(args mock.Arguments) {
		groupSizes = append(groupSizes, len(args.Get(3).([]map[string]any)))
	}
	bySize := func(n int) any {
		return mock.MatchedBy(func(bodies []map[string]any) bool { return len(bodies) == n })
	}
	api.On("CreateBulk", mock.Anything, run.Child, "entity/product", bySize(20)).
		Run(record).Return(bulkCreated(20), nil)
	api.On("CreateBulk", mock.Anything, run.Child, "entity/product", bySize(5)).
		Run(record).Return(bulkCreated(5), nil)

	report, err := svc.SyncAllDirect(context.Background(), run, domain.EntityProduct)

	require.NoError(t, err)
	assert.Equal(t, []int{20, 20, 5}, groupSizes)
	assert.Equal(t, 45, report.Total)
	assert.Equal(t, 45, report.Succeeded)
	assert.Zero(t, report.Failed)
}

func TestLoadAndCreateBatchTasksLowersAttributeFilter(t *testing.T) {
	api := new(MockAPI)
	queue := new(MockQueue)
	store := new(MockMappingStore)
	resolver := new(MockResolver)
	cache := precache.NewService(store, api, 100, 0)
	orch := syncer.NewOrchestrator(store, resolver, cache, api)
	loader := NewLoader(api, 100)
	svc := NewService(loader, queue, new(MockAccountRepo), new(MockSettingsRepo),
		orch, cache, 100, 5<<20, time.Second)

	run := testRun(domain.EntityProduct)
	run.Settings.Filter = &domain.FilterSpec{
		Enabled: true,
		Logic:   domain.LogicAnd,
		Mode:    domain.ModeWhitelist,
		Conditions: []domain.FilterCondition{
			{Type: domain.ConditionAttribute, AttributeID: "a1", Operator: domain.OpEquals, Value: "red"},
		},
	}

	// Task creation primes the parent-side attribute metadata first, so the
	// fetch runs under the lowered filter instead of scanning everything.
	api.On("FetchPage", mock.Anything, run.Parent, "entity/product/metadata/attributes", "", 100, 0).
		Return([]domain.Entity{{ID: "a1", Name: "Color", Fields: map[string]any{"filterable": true}}}, nil)
	api.On("FetchPage", mock.Anything, run.Parent, "entity/product", "attr_a1=red", 100, 0).
		Return([]domain.Entity{{ID: "p1", Type: domain.EntityProduct, Name: "Widget", Fields: map[string]any{"externalCode": "C1"}}}, nil)

	queue.On("Enqueue", mock.Anything, mock.Anything).Return(nil)

	created, err := svc.LoadAndCreateBatchTasks(context.Background(), run, domain.EntityProduct)

	require.NoError(t, err)
	assert.Equal(t, 1, created)
	api.AssertNotCalled(t, "FetchPage", mock.Anything, run.Parent, "entity/product", "", mock.Anything, mock.Anything)
}
