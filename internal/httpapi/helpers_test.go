package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/erauner12/callwatch/internal/auth"
	"github.com/erauner12/callwatch/internal/config"
	"github.com/erauner12/callwatch/internal/dispatch"
	"github.com/erauner12/callwatch/internal/feed"
	"github.com/erauner12/callwatch/internal/harvest"
	"github.com/erauner12/callwatch/internal/journal"
)

const (
	testRoot  = "calls"
	testToken = "channel-secret"
)

// stubFeed serves one page of changes after the start cursor and nothing after that
type stubFeed struct {
	mu       sync.Mutex
	entries  []feed.ChangeEntry
	listErr  error
	lists    int
	watches  []feed.WatchRequest
	stopped  []string
	stopErr  error
	listDone chan struct{}
}

func (f *stubFeed) StartCursor(context.Context) (string, error) { return "10", nil }

func (f *stubFeed) ListChanges(_ context.Context, token string, _ int64) (feed.ChangePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listDone != nil {
		defer func() {
			select {
			case f.listDone <- struct{}{}:
			default:
			}
		}()
	}
	if f.listErr != nil {
		return feed.ChangePage{}, f.listErr
	}
	if token == "10" {
		return feed.ChangePage{Entries: f.entries, NewStartToken: "11"}, nil
	}
	return feed.ChangePage{NewStartToken: token}, nil
}

func (f *stubFeed) Parents(_ context.Context, id string) ([]string, error) {
	if id == testRoot {
		return []string{"root"}, nil
	}
	return nil, nil
}

func (f *stubFeed) CreateWatch(_ context.Context, req feed.WatchRequest) (feed.WatchRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watches = append(f.watches, req)
	return feed.WatchRegistration{ChannelID: req.ChannelID, ResourceID: "res-1", Address: req.Address}, nil
}

func (f *stubFeed) StopWatch(_ context.Context, channelID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopErr != nil {
		return f.stopErr
	}
	f.stopped = append(f.stopped, channelID)
	return nil
}

func (f *stubFeed) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

// stubDispatcher accepts everything and journals like the real client
type stubDispatcher struct {
	mu       sync.Mutex
	endpoint string
	journal  journal.Journal
	sent     []string
}

func (d *stubDispatcher) Endpoint() string { return d.endpoint }

func (d *stubDispatcher) Dispatch(ctx context.Context, _ any, meta dispatch.Meta) dispatch.Result {
	d.mu.Lock()
	d.sent = append(d.sent, meta.FileID)
	d.mu.Unlock()
	if d.journal != nil {
		_ = d.journal.Append(ctx, journal.Record{FileID: meta.FileID, Name: meta.Name, Direction: meta.Direction, Delivered: true, Status: 202})
	}
	return dispatch.Result{Delivered: true, Status: 202, CorrelationID: "c-" + meta.FileID}
}

type testEnv struct {
	router     http.Handler
	cfg        *config.Config
	feed       *stubFeed
	dispatcher *stubDispatcher
	harvester  *harvest.Harvester
	journal    *journal.Memory
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.RootFolderID = testRoot
	cfg.DispatchURL = "http://processor.test/v1/recordings"
	cfg.WebhookToken = testToken
	cfg.PublicBaseURL = "https://callwatch.example.com"
	if mutate != nil {
		mutate(cfg)
	}

	j := journal.NewMemory(10)
	f := &stubFeed{entries: []feed.ChangeEntry{
		{FileID: "a1", Name: "incoming_call.m4a", MimeType: "audio/mp4", Parents: []string{testRoot}},
		{FileID: "n1", Name: "notes.txt", MimeType: "text/plain", Parents: []string{testRoot}},
	}}
	d := &stubDispatcher{endpoint: cfg.EffectiveDispatchURL(), journal: j}
	h := harvest.New(harvest.Options{
		Feed:         f,
		Dispatcher:   d,
		RootFolderID: cfg.RootFolderID,
		PageSize:     cfg.Drive.PageSize,
		CacheSize:    cfg.Drive.AncestryCacheSize,
	})

	srv := &Server{Config: cfg, Harvester: h, Journal: j, Version: "test"}
	return &testEnv{
		router:     srv.Routes(auth.JWTCfg{DevMode: true}),
		cfg:        cfg,
		feed:       f,
		dispatcher: d,
		harvester:  h,
		journal:    j,
	}
}

// do performs a request as the dev-mode operator
func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Debug-Sub", "test-operator")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// notify delivers a Drive push notification
func (e *testEnv) notify(t *testing.T, channelID, token, state string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, config.NotificationPath, nil)
	req.Header.Set(hdrChannelID, channelID)
	req.Header.Set(hdrResourceID, "res-1")
	req.Header.Set(hdrResourceState, state)
	req.Header.Set(hdrMessageNumber, "1")
	if token != "" {
		req.Header.Set(hdrChannelToken, token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v (body: %s)", err, w.Body.String())
	}
}
