package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeIssuer counts refresh calls and returns a canned token or error.
type fakeIssuer struct {
	mu        sync.Mutex
	calls     int
	seen      []string
	delay     time.Duration
	block     chan struct{}
	token     *oauth2.Token
	err       error
	onRefresh func()
}

func (f *fakeIssuer) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	f.mu.Lock()
	f.calls++
	f.seen = append(f.seen, refreshToken)
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.onRefresh != nil {
		f.onRefresh()
	}
	return f.token, nil
}

func (f *fakeIssuer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// countingEnder records how often the session was ended.
type countingEnder struct {
	calls atomic.Int32
	cause atomic.Value
}

func (e *countingEnder) EndSession(_ context.Context, cause error) {
	e.calls.Add(1)
	e.cause.Store(cause)
}

// tokenServer accepts only the current valid bearer token.
type tokenServer struct {
	*httptest.Server
	valid atomic.Value

	mu   sync.Mutex
	hits []string // "<X-Test-ID> <Authorization>" per request
}

func newTokenServer(t *testing.T, valid string, handler func(w http.ResponseWriter, r *http.Request, authorized bool)) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.valid.Store(valid)
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.mu.Lock()
		ts.hits = append(ts.hits, r.Header.Get("X-Test-ID")+" "+r.Header.Get("Authorization"))
		ts.mu.Unlock()

		authorized := r.Header.Get("Authorization") == "Bearer "+ts.valid.Load().(string)
		if handler != nil {
			handler(w, r, authorized)
			return
		}
		if !authorized {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tokenServer) Hits() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]string(nil), ts.hits...)
}

// harness wires a coordinator over memory tiers.
type harness struct {
	session    *MemoryTier
	persistent *MemoryTier
	store      *Store
	issuer     *fakeIssuer
	ender      *countingEnder
	gate       *RefreshGate
	coord      *Coordinator
}

func newHarness(t *testing.T, pipeline Pipeline, issuer *fakeIssuer, opts ...GateOption) *harness {
	t.Helper()
	h := &harness{
		session:    NewMemoryTier(),
		persistent: NewMemoryTier(),
		issuer:     issuer,
		ender:      &countingEnder{},
	}
	h.store = NewStore(h.session, h.persistent)
	opts = append([]GateOption{WithSessionEnder(h.ender)}, opts...)
	h.gate = NewRefreshGate(issuer, h.store, opts...)
	h.coord = NewCoordinator(pipeline, h.store, h.gate)
	return h
}

func (h *harness) login(t *testing.T, access, refresh string, tier Tier) {
	t.Helper()
	require.NoError(t, h.store.Write(context.Background(), Credentials{AccessToken: access, RefreshToken: refresh}, tier))
}

func newGet(t *testing.T, ctx context.Context, url, id string) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("X-Test-ID", id)
	return req
}

// queued returns the number of waiters behind the in-flight refresh.
func queued(g *RefreshGate) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.flight == nil {
		return 0
	}
	return len(g.flight.waiters)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, time.Millisecond)
}
