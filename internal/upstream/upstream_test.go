package upstream

import (
	"cgmd/internal/models"
	"cgmd/internal/storage"
	"cgmd/internal/structures"
	"cgmd/internal/testutil"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves canned responses keyed by request path and records hits.
type fakeAPI struct {
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	hits     map[string]int
	requests []*http.Request
	bodies   []string
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{handlers: make(map[string]http.HandlerFunc), hits: make(map[string]int)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		api.mu.Lock()
		api.hits[r.URL.Path]++
		api.requests = append(api.requests, r)
		api.bodies = append(api.bodies, string(body))
		h, ok := api.handlers[r.URL.Path]
		api.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return api, srv
}

func (a *fakeAPI) on(path string, h http.HandlerFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers[path] = h
}

func (a *fakeAPI) reply(path, body string) {
	a.on(path, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, body)
	})
}

func (a *fakeAPI) count(path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hits[path]
}

func (a *fakeAPI) last() *http.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests[len(a.requests)-1]
}

type fixture struct {
	conf    *structures.Config
	logger  *testutil.MockLogger
	metrics *testutil.MockMetrics
	store   storage.SessionStoreInterface
	client  *Client
}

func newFixture(t *testing.T, srv *httptest.Server) *fixture {
	t.Helper()
	conf := testutil.Config(t.TempDir())
	conf.Upstream.BaseURL = srv.URL
	conf.Upstream.RegionURLTemplate = srv.URL + "/{region}"

	logger := &testutil.MockLogger{}
	metrics := &testutil.MockMetrics{}
	files := storage.NewFileManager(&testutil.MockCompressor{}, logger, metrics)
	return &fixture{
		conf:    conf,
		logger:  logger,
		metrics: metrics,
		store:   storage.NewSessionStore(conf, files, logger),
		client:  NewClient(conf, logger, metrics),
	}
}

func (f *fixture) auth() *AuthManager {
	return NewAuthManager(f.conf, f.client, f.store, f.logger)
}

func successBody(userID, token string) string {
	return fmt.Sprintf(`{"status":0,"data":{"user":{"id":%q},"authTicket":{"token":%q,"expires":1792051200,"duration":15552000000}}}`, userID, token)
}

func stepBody(step, token string) string {
	return fmt.Sprintf(`{"status":4,"data":{"step":{"type":%q,"componentName":"AcceptDocument"},"authTicket":{"token":%q}}}`, step, token)
}

const redirectEU = `{"status":0,"data":{"redirect":true,"region":"eu"}}`

var creds = models.Credentials{Email: "user@example.com", Password: "secret"}

func decodeBody(t *testing.T, body string) map[string]string {
	t.Helper()
	out := map[string]string{}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}
