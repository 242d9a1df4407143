package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/prudhivi99/designify-catalog/internal/client"
	"github.com/prudhivi99/designify-catalog/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

// fakeUpstream serves canned results keyed by endpoint.
type fakeUpstream struct {
	mu        sync.Mutex
	responses map[string]client.Result
	calls     map[string]int
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		responses: make(map[string]client.Result),
		calls:     make(map[string]int),
	}
}

func (f *fakeUpstream) ok(endpoint, body string) *fakeUpstream {
	f.responses[endpoint] = client.Result{Success: true, Status: http.StatusOK, Data: []byte(body)}
	return f
}

func (f *fakeUpstream) fail(endpoint string, status int) *fakeUpstream {
	err := &client.HTTPStatusError{URL: endpoint, StatusCode: status}
	f.responses[endpoint] = client.Result{Success: false, Status: status, Message: err.Error(), Err: err}
	return f
}

func (f *fakeUpstream) get(endpoint string) client.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[endpoint]++
	if res, ok := f.responses[endpoint]; ok {
		return res
	}
	err := &client.TransportError{URL: endpoint, Err: errors.New("connection refused")}
	return client.Result{Success: false, Status: http.StatusInternalServerError, Message: err.Error(), Err: err}
}

func (f *fakeUpstream) callCount(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

func (f *fakeUpstream) Products(ctx context.Context) client.Result {
	return f.get("/products")
}

func (f *fakeUpstream) ProductByID(ctx context.Context, id int) client.Result {
	return f.get(fmt.Sprintf("/products/%d", id))
}

func (f *fakeUpstream) Details(ctx context.Context, detailsID int) client.Result {
	return f.get(fmt.Sprintf("/details/%d", detailsID))
}

const catalogJSON = `[
	{"id": 1, "title": "Designify UI", "slug": "designify-ui", "icon": "zap", "detailsId": 10},
	{"id": 2, "title": "Designify Prototype", "slug": "designify-prototype", "detailsId": 20},
	{"id": 3, "title": "Designify Collaborate", "slug": "designify-collaborate"},
	{"id": 4, "title": "No slug"}
]`

func TestListAll_BareArrayAndEnvelope(t *testing.T) {
	bare := NewService(newFakeUpstream().ok("/products", catalogJSON)).ListAll(context.Background())
	enveloped := NewService(newFakeUpstream().ok("/products", `{"products": `+catalogJSON+`}`)).ListAll(context.Background())

	require.Len(t, bare, 4)
	assert.Equal(t, bare, enveloped)
	assert.Equal(t, "designify-ui", bare[0].Slug)
	assert.Equal(t, models.DefaultIcon, bare[1].Icon)
	for _, p := range bare {
		assert.NotNil(t, p.Features)
		assert.NotNil(t, p.HowTo)
	}
}

func TestListAll_FailureYieldsEmpty(t *testing.T) {
	svc := NewService(newFakeUpstream())

	products := svc.ListAll(context.Background())
	assert.NotNil(t, products)
	assert.Empty(t, products)

	_, err := svc.FetchAll(context.Background())
	var transportErr *client.TransportError
	assert.ErrorAs(t, err, &transportErr)
}

func TestFetchAll_UnexpectedShape(t *testing.T) {
	svc := NewService(newFakeUpstream().ok("/products", `{"items": []}`))

	_, err := svc.FetchAll(context.Background())
	var decodeErr *client.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.ErrorIs(t, err, models.ErrUnexpectedShape)
	assert.Empty(t, svc.ListAll(context.Background()))
}

func TestFetchAll_SkipsMalformedRecords(t *testing.T) {
	svc := NewService(newFakeUpstream().ok("/products", `[{"id": 1, "title": "A"}, 42, "x", {"id": 3, "title": "C"}]`))

	products, err := svc.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, 1, products[0].ID)
	assert.Equal(t, 3, products[1].ID)
}

func TestFetchAll_WrongTypedFieldsKeepTheRecord(t *testing.T) {
	svc := NewService(newFakeUpstream().ok("/products", `[{"id": 1, "title": "A", "slug": "a", "tag": 3}, {"id": 2, "title": ["bad"], "slug": "b"}]`))

	products := svc.ListAll(context.Background())
	require.Len(t, products, 2)
	assert.Empty(t, products[0].Tag)
	assert.Empty(t, products[1].Title)

	p, ok := svc.GetFull(context.Background(), "a")
	require.True(t, ok)
	assert.Equal(t, 1, p.ID)
}

func TestGetBySlug(t *testing.T) {
	svc := NewService(newFakeUpstream().ok("/products", catalogJSON))

	p, ok := svc.GetBySlug(context.Background(), "designify-prototype")
	require.True(t, ok)
	assert.Equal(t, 2, p.ID)

	for _, slug := range []string{"missing", "", "Designify-UI"} {
		_, ok := svc.GetBySlug(context.Background(), slug)
		assert.False(t, ok, slug)

		_, err := svc.FetchBySlug(context.Background(), slug)
		assert.ErrorIs(t, err, ErrNotFound, slug)
	}
}

func TestGetBySlug_UpstreamDown(t *testing.T) {
	svc := NewService(newFakeUpstream())

	_, ok := svc.GetBySlug(context.Background(), "designify-ui")
	assert.False(t, ok)

	_, err := svc.FetchBySlug(context.Background(), "designify-ui")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestGetByID(t *testing.T) {
	up := newFakeUpstream().
		ok("/products", catalogJSON).
		ok("/products/1", `{"id": 1, "title": "Designify UI", "slug": "designify-ui"}`).
		fail("/products/9", http.StatusNotFound).
		fail("/products/3", http.StatusInternalServerError)
	svc := NewService(up)

	p, ok := svc.GetByID(context.Background(), 1)
	require.True(t, ok)
	assert.Equal(t, "Designify UI", p.Title)
	assert.Equal(t, 0, up.callCount("/products"))

	_, ok = svc.GetByID(context.Background(), 9)
	assert.False(t, ok)
	assert.Equal(t, 0, up.callCount("/products"))

	// a broken single product endpoint falls back to the list
	p, ok = svc.GetByID(context.Background(), 3)
	require.True(t, ok)
	assert.Equal(t, "designify-collaborate", p.Slug)
	assert.Equal(t, 1, up.callCount("/products"))
}

func TestGetByID_EnvelopeAndMissingFromList(t *testing.T) {
	up := newFakeUpstream().
		ok("/products", catalogJSON).
		ok("/products/2", `{"product": {"id": 2, "title": "Designify Prototype"}}`)
	svc := NewService(up)

	p, err := svc.FetchByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Designify Prototype", p.Title)

	_, err = svc.FetchByID(context.Background(), 77)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetRelated(t *testing.T) {
	svc := NewService(newFakeUpstream().ok("/products", catalogJSON))

	for i := 0; i < 20; i++ {
		related := svc.GetRelated(context.Background(), 1, 2)
		require.Len(t, related, 2)
		seen := map[int]bool{}
		for _, p := range related {
			assert.NotEqual(t, 1, p.ID)
			assert.False(t, seen[p.ID], "duplicate product %d", p.ID)
			seen[p.ID] = true
		}
	}
}

func TestGetRelated_Limits(t *testing.T) {
	svc := NewService(newFakeUpstream().ok("/products", catalogJSON), WithRand(rand.New(rand.NewPCG(1, 2))))

	assert.Len(t, svc.GetRelated(context.Background(), 1, 0), DefaultRelatedLimit)
	assert.Len(t, svc.GetRelated(context.Background(), 1, 10), 3)
	assert.Len(t, svc.GetRelated(context.Background(), 99, 10), 4)

	single := NewService(newFakeUpstream().ok("/products", `[{"id": 1, "title": "A"}]`))
	related := single.GetRelated(context.Background(), 1, 2)
	assert.NotNil(t, related)
	assert.Empty(t, related)

	down := NewService(newFakeUpstream())
	assert.Empty(t, down.GetRelated(context.Background(), 1, 2))
}

func TestGetFull_MergesDetails(t *testing.T) {
	up := newFakeUpstream().
		ok("/products", `[{"id": 1, "title": "A", "slug": "a", "detailsId": 10}]`).
		ok("/details/10", `{"features": [{"title": "F1", "description": "d", "helps": ["x"], "image": "/9j/AAAA"}], "howto": []}`)
	svc := NewService(up)

	p, ok := svc.GetFull(context.Background(), "a")
	require.True(t, ok)
	require.Len(t, p.Features, 1)
	assert.Equal(t, "F1", p.Features[0].Title)
	assert.Equal(t, "data:image/jpeg;base64,/9j/AAAA", p.Features[0].Image)
	assert.Equal(t, []string{"x"}, p.Features[0].Helps)
	assert.NotNil(t, p.HowTo)
	assert.Empty(t, p.HowTo)
}

func TestGetFull_SkipsOnlyMalformedDetailsEntries(t *testing.T) {
	up := newFakeUpstream().
		ok("/products", `[{"id": 1, "title": "A", "slug": "a", "detailsId": 10}]`).
		ok("/details/10", `{"features": [{"title": "F1", "helps": "x"}, 5, {"title": "F2"}], "howto": [{"title": "S1"}]}`)
	svc := NewService(up)

	p, ok := svc.GetFull(context.Background(), "a")
	require.True(t, ok)
	require.Len(t, p.Features, 2)
	assert.Equal(t, "F1", p.Features[0].Title)
	assert.Equal(t, []string{"x"}, p.Features[0].Helps)
	assert.Equal(t, "F2", p.Features[1].Title)
	assert.Equal(t, []string{}, p.Features[1].Helps)
	require.Len(t, p.HowTo, 1)
	assert.Equal(t, "S1", p.HowTo[0].Title)
}

func TestGetFull_DetailsFailureDropsListRecordFeatures(t *testing.T) {
	up := newFakeUpstream().
		ok("/products", `[{"id": 1, "title": "A", "slug": "a", "detailsId": 10, "features": [{"title": "stale"}]}]`).
		fail("/details/10", http.StatusServiceUnavailable)
	svc := NewService(up)

	p, ok := svc.GetFull(context.Background(), "a")
	require.True(t, ok)
	assert.NotNil(t, p.Features)
	assert.Empty(t, p.Features)
	assert.Empty(t, p.HowTo)
}

func TestGetFull_NestedDetails(t *testing.T) {
	up := newFakeUpstream().
		ok("/products", `{"products": [{"id": 1, "title": "A", "slug": "a", "detailsId": "10"}]}`).
		ok("/details/10", `{"details": {"features": [], "howto": [{"_id": "s1", "title": "Open", "image": "iVBORxyz"}]}}`)
	svc := NewService(up)

	p, ok := svc.GetFull(context.Background(), "a")
	require.True(t, ok)
	assert.Empty(t, p.Features)
	require.Len(t, p.HowTo, 1)
	assert.Equal(t, "s1", p.HowTo[0].ID)
	assert.Equal(t, "data:image/jpeg;base64,iVBORxyz", p.HowTo[0].Image)
}

func TestGetFull_DetailsFailureFallsBackToBase(t *testing.T) {
	up := newFakeUpstream().ok("/products", `[{"id": 1, "title": "A", "slug": "a", "detailsId": 10}]`)
	svc := NewService(up)

	p, ok := svc.GetFull(context.Background(), "a")
	require.True(t, ok)
	assert.Equal(t, 1, p.ID)
	assert.Equal(t, 10, p.DetailsID)
	assert.NotNil(t, p.Features)
	assert.Empty(t, p.Features)
	assert.NotNil(t, p.HowTo)
	assert.Empty(t, p.HowTo)
	assert.Equal(t, 1, up.callCount("/details/10"))
}

func TestGetFull_WithoutDetailsID(t *testing.T) {
	up := newFakeUpstream().ok("/products", catalogJSON)
	svc := NewService(up)

	p, ok := svc.GetFull(context.Background(), "designify-collaborate")
	require.True(t, ok)
	assert.Equal(t, 3, p.ID)
	assert.Empty(t, p.Features)
	assert.Equal(t, 0, up.callCount("/details/0"))

	_, ok = svc.GetFull(context.Background(), "missing")
	assert.False(t, ok)
}

func TestListAllFull(t *testing.T) {
	up := newFakeUpstream().
		ok("/products", catalogJSON).
		ok("/details/10", `{"features": [{"title": "F1"}], "howto": [{"title": "S1"}]}`).
		fail("/details/20", http.StatusInternalServerError)
	svc := NewService(up, WithMaxConcurrentDetails(2))

	products := svc.ListAllFull(context.Background())
	require.Len(t, products, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, []int{products[0].ID, products[1].ID, products[2].ID, products[3].ID})
	require.Len(t, products[0].Features, 1)
	assert.Equal(t, "F1", products[0].Features[0].Title)
	assert.Len(t, products[0].HowTo, 1)
	assert.Empty(t, products[1].Features)
	assert.Empty(t, products[2].Features)

	assert.Empty(t, NewService(newFakeUpstream()).ListAllFull(context.Background()))
}

func TestFetchAllFull_CancelledContext(t *testing.T) {
	up := newFakeUpstream().
		ok("/products", catalogJSON).
		ok("/details/10", `{"features": [{"title": "F1"}]}`).
		ok("/details/20", `{"features": [{"title": "F2"}]}`)
	svc := NewService(up)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.FetchAllFull(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, up.callCount("/details/10"))

	products := svc.ListAllFull(ctx)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestDetailsResolver(t *testing.T) {
	up := newFakeUpstream().ok("/details/5", `{"data": {"features": [{"id": 1, "title": "F"}]}}`)
	r := NewDetailsResolver(up, nil)

	d, err := r.Fetch(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, d.Features, 1)
	assert.Equal(t, "1", d.Features[0].ID)
	assert.NotNil(t, d.HowTo)

	_, err = r.Fetch(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidDetailsID)

	d = r.Resolve(context.Background(), 6)
	assert.NotNil(t, d.Features)
	assert.Empty(t, d.Features)
	assert.Empty(t, d.HowTo)
}

// End to end against a fake product API over HTTP.
func TestService_OverHTTP(t *testing.T) {
	var detailsCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/products", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"products": [{"id": 1, "title": "A", "slug": "a", "detailsId": 10}, {"id": 2, "title": "B", "slug": "b", "detailsId": 11}]}`))
	})
	mux.HandleFunc("/api/v1/details/10", func(w http.ResponseWriter, r *http.Request) {
		detailsCalls.Add(1)
		w.Write([]byte(`{"features": [{"title": "F1", "description": "d", "helps": ["x"], "image": "/9j/AAAA"}], "howto": []}`))
	})
	mux.HandleFunc("/api/v1/details/11", func(w http.ResponseWriter, r *http.Request) {
		detailsCalls.Add(1)
		// the connection is dropped mid-response
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("response writer is not a hijacker")
			return
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Errorf("hijack failed: %v", err)
			return
		}
		conn.Close()
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	api := client.NewAPIClient(ts.URL+"/api/v1", client.WithHTTPClient(ts.Client()))
	svc := NewService(api)

	a, ok := svc.GetFull(context.Background(), "a")
	require.True(t, ok)
	require.Len(t, a.Features, 1)
	assert.Equal(t, "data:image/jpeg;base64,/9j/AAAA", a.Features[0].Image)
	assert.Empty(t, a.HowTo)

	b, ok := svc.GetFull(context.Background(), "b")
	require.True(t, ok)
	assert.Equal(t, "B", b.Title)
	assert.Empty(t, b.Features)
	assert.Empty(t, b.HowTo)

	// the transport may retry the dropped request once
	assert.GreaterOrEqual(t, detailsCalls.Load(), int32(2))
}
