package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocklink/stocklink/internal/domain"
)

func testAccount() *domain.Account {
	return &domain.Account{ID: "acc-1", AccessToken: "token-1", Role: domain.RoleMain}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *RateTracker) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tracker := NewRateTracker()
	return NewClient(srv.URL, 5*time.Second, tracker), tracker
}

func TestFetchPageDecodesRows(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		assert.Equal(t, "code=X1", r.URL.Query().Get("filter"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"rows":[
			{"id":"e1","name":"Widget","meta":{"type":"product"},"code":"X1",
			 "productFolder":{"id":"f1","name":"Tools"},
			 "attributes":[{"id":"a1","name":"Color","type":"string","value":"red"}]},
			{"id":"e2","name":"Gadget","meta":{"type":"product"},"externalCode":"EXT-2"}
		]}`))
	})

	rows, err := client.FetchPage(context.Background(), testAccount(), "product", "code=X1", 100, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "e1", rows[0].ID)
	assert.Equal(t, domain.EntityProduct, rows[0].Type)
	require.NotNil(t, rows[0].Folder)
	assert.Equal(t, "f1", rows[0].Folder.ID)

	v, ok := rows[0].MatchValue("code")
	assert.True(t, ok)
	assert.Equal(t, "X1", v)

	attr, ok := rows[0].Attribute("a1")
	require.True(t, ok)
	assert.Equal(t, "red", attr.Value)

	v, ok = rows[1].MatchValue("externalCode")
	assert.True(t, ok)
	assert.Equal(t, "EXT-2", v)
}

func TestDo429ReturnsRateLimitError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.FetchPage(context.Background(), testAccount(), "product", "", 100, 0)
	require.Error(t, err)

	retryAfter, ok := IsRateLimited(err)
	require.True(t, ok)
	assert.Equal(t, 7*time.Second, retryAfter)
}

func TestDoConsultsTrackerBeforeSending(t *testing.T) {
	var calls int
	client, tracker := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"rows":[]}`))
	})

	tracker.UpdateFromResponse("acc-1", RateLimitInfo{Limit: 10, Remaining: 0, RetryAfter: time.Minute})

	_, err := client.FetchPage(context.Background(), testAccount(), "product", "", 100, 0)
	_, rateLimited := IsRateLimited(err)
	assert.True(t, rateLimited)
	assert.Zero(t, calls, "request must not be sent while the quota window is closed")
}

func TestDoUpdatesTrackerFromHeaders(t *testing.T) {
	client, tracker := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "45")
		w.Header().Set("X-RateLimit-Remaining", "12")
		w.Write([]byte(`{"rows":[]}`))
	})

	_, err := client.FetchPage(context.Background(), testAccount(), "product", "", 100, 0)
	require.NoError(t, err)

	avail := tracker.CheckAvailability("acc-1", 1)
	assert.True(t, avail.Available)
	assert.Equal(t, 12, avail.Remaining)
}

func TestDoParsesAPIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPreconditionFailed)
		w.Write([]byte(`{"errors":[{"code":3006,"error":"value must be unique"}]}`))
	})

	_, err := client.Create(context.Background(), testAccount(), "product", map[string]any{"name": "x"})
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.Contains(t, err.Error(), "value must be unique")
}

func TestDoUnknownFilterFieldIsFilterRejection(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":[{"code":3001,"error":"unknown filter field"}]}`))
	})

	_, err := client.FetchPage(context.Background(), testAccount(), "product", "bogus=1", 100, 0)
	require.Error(t, err)
	assert.True(t, IsFilterRejected(err))
	assert.False(t, IsConflict(err))
}

func TestDoRedirectIsNotAnError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	})

	err := client.Delete(context.Background(), testAccount(), "product", "e1")
	assert.NoError(t, err)
}

func TestCreateBulkMixesEntitiesAndErrors(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":"e1","name":"ok","meta":{"type":"product"}},
			{"errors":[{"code":3006,"error":"duplicate code"}]},
			{"id":"e3","name":"also ok","meta":{"type":"product"}}
		]`))
	})

	results, err := client.CreateBulk(context.Background(), testAccount(), "product", []map[string]any{{}, {}, {}})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NotNil(t, results[0].Entity)
	assert.Nil(t, results[0].Err)

	assert.Nil(t, results[1].Entity)
	require.NotNil(t, results[1].Err)
	assert.Equal(t, CodeDuplicateValue, results[1].Err.Code)

	assert.Equal(t, "e3", results[2].Entity.ID)
}

func TestDecodeEntityRejectsMissingID(t *testing.T) {
	_, err := DecodeEntity([]byte(`{"name":"no id"}`))
	assert.Error(t, err)
}
