package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/habedi/hrdesk/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hrServer is a tiny HR backend accepting a single current access token.
type hrServer struct {
	*httptest.Server
	mu        sync.Mutex
	access    string
	refresh   string
	refreshes atomic.Int32
	lastQuery string
}

func newHRServer(t *testing.T) *hrServer {
	t.Helper()
	s := &hrServer{access: "a1", refresh: "r1"}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		defer s.mu.Unlock()
		if body["refresh_token"] != s.refresh {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		s.refreshes.Add(1)
		s.access = "a-refreshed"
		json.NewEncoder(w).Encode(map[string]any{"access_token": s.access, "expires_in": 900})
	})
	s.protected(mux, "GET /api/me", `{"id":1,"email":"ada@example.com","name":"Ada","role":"employee"}`)
	s.protected(mux, "GET /api/employees", `[{"id":1,"firstName":"Ada","lastName":"Lovelace","status":"active"},{"id":2,"firstName":"Alan","lastName":"Turing","status":"active"}]`)
	s.protected(mux, "GET /api/employees/1", `{"id":1,"firstName":"Ada","lastName":"Lovelace","position":"Engineer"}`)
	s.protected(mux, "GET /api/departments", `[{"id":3,"name":"Research","employeeCount":2}]`)
	s.protected(mux, "GET /api/leave-requests", `[{"id":7,"employeeId":1,"type":"vacation","startDate":"2026-07-01","endDate":"2026-07-05","status":"pending"}]`)
	s.protected(mux, "GET /api/announcements", `[{"id":9,"title":"Office closed","body":"Friday"}]`)
	mux.HandleFunc("POST /api/leave-requests", s.guard(func(w http.ResponseWriter, r *http.Request) {
		var in NewLeaveRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.StartDate == "" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(LeaveRequest{ID: 8, Type: in.Type, StartDate: in.StartDate, EndDate: in.EndDate, Status: LeavePending})
	}))
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *hrServer) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		ok := r.Header.Get("Authorization") == "Bearer "+s.access
		s.lastQuery = r.URL.RawQuery
		s.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *hrServer) protected(mux *http.ServeMux, pattern, body string) {
	mux.HandleFunc(pattern, s.guard(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func (s *hrServer) expire() {
	s.mu.Lock()
	s.access = "a-rotated-by-server"
	s.mu.Unlock()
}

// newSession wires the API through a coordinator, logged in with a1/r1.
func newSession(t *testing.T, s *hrServer) (*API, *auth.Store) {
	t.Helper()
	pipeline := NewPipeline(PipelineConfig{})
	store := auth.NewStore(auth.NewMemoryTier(), auth.NewMemoryTier())
	require.NoError(t, store.Write(context.Background(), auth.Credentials{AccessToken: "a1", RefreshToken: "r1"}, auth.TierSession))
	gate := auth.NewRefreshGate(NewIssuer(s.URL, pipeline), store)
	api, err := NewAPI(s.URL, auth.NewCoordinator(pipeline, store, gate))
	require.NoError(t, err)
	return api, store
}

func TestNewAPI_InvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "not a url", "/relative", "://missing-scheme"} {
		_, err := NewAPI(raw, NewPipeline(PipelineConfig{}))
		assert.Error(t, err, "base URL %q", raw)
	}
}

func TestAPI_Resources(t *testing.T) {
	s := newHRServer(t)
	api, _ := newSession(t, s)
	ctx := context.Background()

	me, err := api.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", me.Email)

	employees, err := api.ListEmployees(ctx, 0)
	require.NoError(t, err)
	require.Len(t, employees, 2)
	assert.Equal(t, "Alan Turing", employees[1].FullName())

	_, err = api.ListEmployees(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "departmentId=3", s.lastQuery)

	emp, err := api.GetEmployee(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Engineer", emp.Position)

	depts, err := api.ListDepartments(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Research", depts[0].Name)

	leaves, err := api.ListLeaveRequests(ctx, LeavePending)
	require.NoError(t, err)
	assert.Equal(t, "status=pending", s.lastQuery)
	assert.Equal(t, "vacation", leaves[0].Type)

	news, err := api.ListAnnouncements(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Office closed", news[0].Title)

	created, err := api.CreateLeaveRequest(ctx, NewLeaveRequest{Type: "sick", StartDate: "2026-08-01", EndDate: "2026-08-02"})
	require.NoError(t, err)
	assert.Equal(t, 8, created.ID)
	assert.Equal(t, LeavePending, created.Status)
}

func TestAPI_NotFoundIsHTTPError(t *testing.T) {
	s := newHRServer(t)
	api, _ := newSession(t, s)

	_, err := api.GetEmployee(context.Background(), 404)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
}

func TestAPI_RefreshesExpiredTokenTransparently(t *testing.T) {
	s := newHRServer(t)
	api, store := newSession(t, s)
	s.expire()

	created, err := api.CreateLeaveRequest(context.Background(), NewLeaveRequest{Type: "vacation", StartDate: "2026-09-01", EndDate: "2026-09-03"})
	require.NoError(t, err, "the POST body survives the replay")
	assert.Equal(t, "2026-09-01", created.StartDate)
	assert.Equal(t, int32(1), s.refreshes.Load())

	access, err := store.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a-refreshed", access)
}

func TestAPI_ConcurrentCallsShareOneRefresh(t *testing.T) {
	s := newHRServer(t)
	api, _ := newSession(t, s)
	s.expire()

	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for _, call := range []func() error{
		func() error { _, err := api.Me(ctx); return err },
		func() error { _, err := api.ListEmployees(ctx, 0); return err },
		func() error { _, err := api.ListDepartments(ctx); return err },
		func() error { _, err := api.ListAnnouncements(ctx); return err },
	} {
		wg.Add(1)
		go func(call func() error) {
			defer wg.Done()
			errs <- call()
		}(call)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	// Requests that observed the 401 after the refresh finished reuse the new token.
	assert.Equal(t, int32(1), s.refreshes.Load())
}

func TestAPI_RevokedRefreshTokenEndsSession(t *testing.T) {
	s := newHRServer(t)
	api, store := newSession(t, s)
	s.mu.Lock()
	s.access, s.refresh = "other", "other"
	s.mu.Unlock()

	_, err := api.Me(context.Background())
	assert.ErrorIs(t, err, auth.ErrSessionExpired)
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	creds, tier, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, creds)
	assert.Equal(t, auth.TierNone, tier)
}
