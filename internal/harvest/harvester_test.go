package harvest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erauner12/callwatch/internal/config"
	"github.com/erauner12/callwatch/internal/dispatch"
	"github.com/erauner12/callwatch/internal/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rootID = "calls"

// fakeFeed serves scripted pages keyed by token and a static parent map
type fakeFeed struct {
	mu        sync.Mutex
	start     string
	pages     map[string]feed.ChangePage
	pageErr   map[string]error
	parents   map[string][]string
	parentErr map[string]error
	listCalls []string
	gate      chan struct{} // when set, ListChanges blocks until it receives
	entered   chan struct{} // signalled (non-blocking) when ListChanges starts
	watches   []feed.WatchRequest
	stopped   []string
	watchErr  error
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		start:     "100",
		pages:     map[string]feed.ChangePage{},
		pageErr:   map[string]error{},
		parents:   map[string][]string{"calls": {"root"}, "other": {"root"}, "2024": {"calls"}},
		parentErr: map[string]error{},
	}
}

func (f *fakeFeed) StartCursor(context.Context) (string, error) { return f.start, nil }

func (f *fakeFeed) ListChanges(ctx context.Context, token string, _ int64) (feed.ChangePage, error) {
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return feed.ChangePage{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, token)
	if err, ok := f.pageErr[token]; ok {
		return feed.ChangePage{}, err
	}
	if page, ok := f.pages[token]; ok {
		return page, nil
	}
	// Nothing new since token
	return feed.ChangePage{NewStartToken: token}, nil
}

func (f *fakeFeed) Parents(_ context.Context, id string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.parentErr[id]; ok {
		return nil, err
	}
	return f.parents[id], nil
}

func (f *fakeFeed) CreateWatch(_ context.Context, req feed.WatchRequest) (feed.WatchRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watchErr != nil {
		return feed.WatchRegistration{}, f.watchErr
	}
	f.watches = append(f.watches, req)
	return feed.WatchRegistration{
		ChannelID:  req.ChannelID,
		ResourceID: "res-" + req.ChannelID,
		Address:    req.Address,
	}, nil
}

func (f *fakeFeed) StopWatch(_ context.Context, channelID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, channelID)
	return nil
}

func (f *fakeFeed) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listCalls)
}

// fakeDispatcher records payloads and fails for the configured file ids
type fakeDispatcher struct {
	mu       sync.Mutex
	endpoint string
	sent     []Notification
	failFor  map[string]bool
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{endpoint: "http://processor.test/v1/recordings", failFor: map[string]bool{}}
}

func (d *fakeDispatcher) Endpoint() string { return d.endpoint }

func (d *fakeDispatcher) Dispatch(_ context.Context, payload any, meta dispatch.Meta) dispatch.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, payload.(Notification))
	if d.failFor[meta.FileID] {
		return dispatch.Result{Status: 500, Body: "boom"}
	}
	return dispatch.Result{Delivered: true, Status: 202}
}

func (d *fakeDispatcher) sentIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.sent))
	for _, n := range d.sent {
		ids = append(ids, n.FileID)
	}
	return ids
}

func audio(id, name string, parents ...string) feed.ChangeEntry {
	return feed.ChangeEntry{
		FileID:       id,
		Name:         name,
		MimeType:     "audio/mp4",
		Parents:      parents,
		CreatedTime:  "2024-06-01T10:00:00Z",
		ModifiedTime: "2024-06-01T10:05:00Z",
		WebViewLink:  "https://drive.google.com/file/d/" + id + "/view",
	}
}

func newHarvester(f *fakeFeed, d *fakeDispatcher) *Harvester {
	return New(Options{Feed: f, Dispatcher: d, RootFolderID: rootID, PageSize: 100})
}

func TestRun_DispatchesOnlyInSubtreeAudio(t *testing.T) {
	f := newFakeFeed()
	f.pages["100"] = feed.ChangePage{
		Entries: []feed.ChangeEntry{
			{FileID: "2024", Name: "2024", MimeType: feed.FolderMimeType, Parents: []string{"calls"}},
			audio("outside", "incoming-elsewhere.m4a", "other"),
			audio("inside", "Incoming_Outgoing_2024.m4a", "2024"),
		},
		NewStartToken: "101",
	}
	d := newFakeDispatcher()
	h := newHarvester(f, d)

	rep, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"inside"}, d.sentIDs())
	sent := d.sent[0]
	assert.Equal(t, Source, sent.Source)
	assert.Equal(t, "Incoming_Outgoing_2024.m4a", sent.Name)
	assert.Equal(t, "incoming", string(sent.Direction))
	assert.Equal(t, "https://drive.google.com/file/d/inside/view", sent.WebViewLink)

	assert.Equal(t, 3, rep.Entries)
	assert.Equal(t, 1, rep.Folders)
	assert.Equal(t, 1, rep.OutsideRoot)
	assert.Equal(t, 1, rep.Qualifying)
	assert.Equal(t, 1, rep.Delivered)
	assert.True(t, rep.Advanced)
	assert.Equal(t, "101", rep.EndCursor)

	cur, _ := h.Tracker().Peek()
	assert.Equal(t, "101", cur)
}

func TestRun_SkipsRemovedTrashedAndNonAudio(t *testing.T) {
	f := newFakeFeed()
	trashed := audio("trashed", "a.m4a", "calls")
	trashed.Trashed = true
	f.pages["100"] = feed.ChangePage{
		Entries: []feed.ChangeEntry{
			{FileID: "", Name: "ghost.m4a"},
			{FileID: "gone", Removed: true},
			trashed,
			{FileID: "notes", Name: "notes.txt", MimeType: "text/plain", Parents: []string{"calls"}},
			{FileID: "ext", Name: "call.M4A", MimeType: "application/octet-stream", Parents: []string{"calls"}},
		},
		NewStartToken: "101",
	}
	d := newFakeDispatcher()
	h := newHarvester(f, d)

	rep, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"ext"}, d.sentIDs())
	assert.Equal(t, 1, rep.NoID)
	assert.Equal(t, 2, rep.Removed)
	assert.Equal(t, 1, rep.NotAudio)
}

func TestRun_PageFailureLeavesCursorUnchanged(t *testing.T) {
	f := newFakeFeed()
	f.pages["100"] = feed.ChangePage{
		Entries:       []feed.ChangeEntry{audio("a", "a.m4a", "calls")},
		NextPageToken: "p2",
	}
	f.pageErr["p2"] = feed.ErrTransient
	d := newFakeDispatcher()
	h := newHarvester(f, d)

	_, err := h.Tracker().CurrentOrInit(context.Background())
	require.NoError(t, err)
	before, _ := h.Tracker().Peek()

	rep, err := h.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, feed.ErrTransient)
	assert.False(t, rep.Advanced)

	after, _ := h.Tracker().Peek()
	assert.Equal(t, before, after)

	// The next pass resumes from the same position and re-sees page one
	delete(f.pageErr, "p2")
	f.pages["p2"] = feed.ChangePage{NewStartToken: "102"}
	_, err = h.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a"}, d.sentIDs())
	after, _ = h.Tracker().Peek()
	assert.Equal(t, "102", after)
}

func TestRun_MultiPageAdvancesAfterLastPage(t *testing.T) {
	f := newFakeFeed()
	f.pages["100"] = feed.ChangePage{Entries: []feed.ChangeEntry{audio("a", "a.wav", "calls")}, NextPageToken: "p2"}
	f.pages["p2"] = feed.ChangePage{Entries: []feed.ChangeEntry{audio("b", "b.wav", "2024")}, NextPageToken: "p3"}
	f.pages["p3"] = feed.ChangePage{NewStartToken: "200"}
	d := newFakeDispatcher()
	h := newHarvester(f, d)

	rep, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Pages)
	assert.Equal(t, []string{"a", "b"}, d.sentIDs())
	assert.Equal(t, []string{"100", "p2", "p3"}, f.listCalls)
	cur, _ := h.Tracker().Peek()
	assert.Equal(t, "200", cur)
}

func TestRun_NoNewStartTokenKeepsCursor(t *testing.T) {
	f := newFakeFeed()
	f.pages["100"] = feed.ChangePage{Entries: []feed.ChangeEntry{audio("a", "a.wav", "calls")}}
	h := newHarvester(f, newFakeDispatcher())

	rep, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, rep.Advanced)
	cur, _ := h.Tracker().Peek()
	assert.Equal(t, "100", cur)
}

func TestRun_SecondPassWithoutChangesDispatchesNothing(t *testing.T) {
	f := newFakeFeed()
	f.pages["100"] = feed.ChangePage{
		Entries:       []feed.ChangeEntry{audio("a", "a.mp3", "calls")},
		NewStartToken: "101",
	}
	d := newFakeDispatcher()
	h := newHarvester(f, d)

	_, err := h.Run(context.Background())
	require.NoError(t, err)
	rep, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, rep.Qualifying)
	assert.Len(t, d.sentIDs(), 1)
	assert.Equal(t, int64(2), h.Passes())
}

func TestRun_DispatchFailureDoesNotStopPass(t *testing.T) {
	f := newFakeFeed()
	f.pages["100"] = feed.ChangePage{
		Entries: []feed.ChangeEntry{
			audio("a", "a.mp3", "calls"),
			audio("b", "b.mp3", "calls"),
			audio("c", "c.mp3", "calls"),
		},
		NewStartToken: "101",
	}
	d := newFakeDispatcher()
	d.failFor["a"] = true
	h := newHarvester(f, d)

	rep, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, d.sentIDs())
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 2, rep.Delivered)
	assert.True(t, rep.Advanced, "dispatch failures never hold the cursor back")
}

func TestRun_AncestryFailureSkipsOnlyThatEntry(t *testing.T) {
	f := newFakeFeed()
	f.parentErr["locked"] = errors.New("permission denied")
	f.pages["100"] = feed.ChangePage{
		Entries: []feed.ChangeEntry{
			audio("x", "x.mp3", "locked"),
			audio("y", "y.mp3", "calls"),
		},
		NewStartToken: "101",
	}
	d := newFakeDispatcher()
	h := newHarvester(f, d)

	rep, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, d.sentIDs())
	assert.Equal(t, 1, rep.Errors)
	assert.True(t, rep.Advanced)
}

func TestRun_StalledPagination(t *testing.T) {
	f := newFakeFeed()
	f.pages["100"] = feed.ChangePage{NextPageToken: "100"}
	h := newHarvester(f, newFakeDispatcher())

	_, err := h.Run(context.Background())
	assert.ErrorIs(t, err, ErrStalledPagination)
}

func TestRun_ConfigurationErrors(t *testing.T) {
	f := newFakeFeed()

	h := New(Options{Feed: f, Dispatcher: newFakeDispatcher()})
	_, err := h.Run(context.Background())
	assert.ErrorIs(t, err, config.ErrMissingRootFolder)

	d := newFakeDispatcher()
	d.endpoint = ""
	h = New(Options{Feed: f, Dispatcher: d, RootFolderID: rootID})
	_, err = h.Run(context.Background())
	assert.ErrorIs(t, err, config.ErrMissingDispatchURL)
	assert.ErrorIs(t, h.Trigger(context.Background()), config.ErrMissingDispatchURL)

	assert.Zero(t, f.listCount(), "no feed calls without configuration")
}

func TestTrigger_CoalescesWhileActive(t *testing.T) {
	f := newFakeFeed()
	f.gate = make(chan struct{})
	f.entered = make(chan struct{}, 8)
	d := newFakeDispatcher()
	h := newHarvester(f, d)
	ctx := context.Background()

	require.NoError(t, h.Trigger(ctx))
	<-f.entered

	// The first pass is now blocked in ListChanges; pile up more triggers
	for i := 0; i < 5; i++ {
		require.NoError(t, h.Trigger(ctx))
	}

	// Release the first pass, then the single coalesced follow-up
	f.gate <- struct{}{}
	<-f.entered
	f.gate <- struct{}{}

	require.Eventually(t, func() bool { return h.Passes() == 2 }, 2*time.Second, 10*time.Millisecond)

	// No third pass shows up
	select {
	case <-f.entered:
		t.Fatal("unexpected extra pass")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, 2, f.listCount())
}

func TestRun_WaitsForActivePass(t *testing.T) {
	f := newFakeFeed()
	f.gate = make(chan struct{})
	f.entered = make(chan struct{}, 8)
	h := newHarvester(f, newFakeDispatcher())

	require.NoError(t, h.Trigger(context.Background()))
	<-f.entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := h.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	f.gate <- struct{}{}
	require.Eventually(t, func() bool { return h.Passes() == 1 }, 2*time.Second, 10*time.Millisecond)

	close(f.gate)
	_, err = h.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), h.Passes())
}
