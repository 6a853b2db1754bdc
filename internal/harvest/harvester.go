// Package harvest drives passes over the remote change feed and dispatches one
// notification per qualifying audio file inside the watched folder.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erauner12/callwatch/internal/ancestry"
	"github.com/erauner12/callwatch/internal/classify"
	"github.com/erauner12/callwatch/internal/config"
	"github.com/erauner12/callwatch/internal/dispatch"
	"github.com/erauner12/callwatch/internal/feed"
	"github.com/erauner12/callwatch/internal/syncx"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// ErrStalledPagination indicates the feed handed back the token it was given
var ErrStalledPagination = errors.New("change feed returned a non-advancing page token")

// Dispatcher delivers one payload; it reports the outcome instead of failing
type Dispatcher interface {
	Endpoint() string
	Dispatch(ctx context.Context, payload any, meta dispatch.Meta) dispatch.Result
}

// Options configures a Harvester. Resolver and Tracker are built from Feed when nil.
type Options struct {
	Feed         feed.Feed
	Dispatcher   Dispatcher
	RootFolderID string
	PageSize     int64
	CacheSize    int
	Resolver     *ancestry.Resolver
	Tracker      *syncx.Tracker
}

// Harvester owns the cursor and ancestry cache for one watched folder.
// At most one pass runs at a time.
type Harvester struct {
	feed         feed.Feed
	dispatcher   Dispatcher
	resolver     *ancestry.Resolver
	tracker      *syncx.Tracker
	rootFolderID string
	pageSize     int64

	sem     *semaphore.Weighted
	pending atomic.Bool
	passes  atomic.Int64

	mu   sync.Mutex
	last *Report
}

// New creates a Harvester
func New(opts Options) *Harvester {
	resolver := opts.Resolver
	if resolver == nil {
		resolver = ancestry.NewResolver(opts.Feed, opts.CacheSize)
	}
	tracker := opts.Tracker
	if tracker == nil {
		tracker = syncx.NewTracker(opts.Feed)
	}
	return &Harvester{
		feed:         opts.Feed,
		dispatcher:   opts.Dispatcher,
		resolver:     resolver,
		tracker:      tracker,
		rootFolderID: opts.RootFolderID,
		pageSize:     opts.PageSize,
		sem:          semaphore.NewWeighted(1),
	}
}

// Tracker exposes the cursor tracker (registration seeds it)
func (h *Harvester) Tracker() *syncx.Tracker { return h.tracker }

// Cursor returns the held cursor without initializing it
func (h *Harvester) Cursor() (string, bool) { return h.tracker.Peek() }

// Resolver exposes the ancestry resolver
func (h *Harvester) Resolver() *ancestry.Resolver { return h.resolver }

// Passes returns how many passes have completed, successfully or not
func (h *Harvester) Passes() int64 { return h.passes.Load() }

// LastReport returns the report of the most recent pass, if any
func (h *Harvester) LastReport() (Report, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return Report{}, false
	}
	return *h.last, true
}

// Preflight reports missing settings that make every pass impossible
func (h *Harvester) Preflight() error {
	if h.rootFolderID == "" {
		return config.ErrMissingRootFolder
	}
	if h.dispatcher == nil || h.dispatcher.Endpoint() == "" {
		return config.ErrMissingDispatchURL
	}
	return nil
}

// Run executes one pass synchronously, waiting for any active pass to finish first
func (h *Harvester) Run(ctx context.Context) (Report, error) {
	if err := h.Preflight(); err != nil {
		return Report{}, err
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return Report{}, err
	}
	rep, err := h.pass(ctx)
	h.sem.Release(1)

	if h.pending.Load() {
		h.startDrain(context.WithoutCancel(ctx))
	}
	return rep, err
}

// Trigger requests an asynchronous pass. Requests arriving while a pass is active
// collapse into a single follow-up pass.
func (h *Harvester) Trigger(ctx context.Context) error {
	if err := h.Preflight(); err != nil {
		return err
	}
	h.pending.Store(true)
	h.startDrain(context.WithoutCancel(ctx))
	return nil
}

// startDrain runs passes while requests are pending. Whoever releases the semaphore
// re-checks the pending flag, so a request is never stranded.
func (h *Harvester) startDrain(ctx context.Context) {
	if !h.sem.TryAcquire(1) {
		return
	}
	go func() {
		for {
			for h.pending.Swap(false) {
				if _, err := h.pass(ctx); err != nil {
					log.Ctx(ctx).Error().Err(err).Msg("triggered harvest pass failed")
				}
			}
			h.sem.Release(1)
			if !h.pending.Load() || !h.sem.TryAcquire(1) {
				return
			}
		}
	}()
}

// pass must be called with the semaphore held
func (h *Harvester) pass(ctx context.Context) (rep Report, err error) {
	rep.StartedAt = time.Now().UTC()
	logger := log.Ctx(ctx).With().Str("rootFolderId", h.rootFolderID).Logger()

	defer func() {
		rep.Duration = time.Since(rep.StartedAt)
		if err != nil {
			rep.Error = err.Error()
		}
		h.passes.Add(1)
		h.mu.Lock()
		last := rep
		h.last = &last
		h.mu.Unlock()
	}()

	cursor, err := h.tracker.CurrentOrInit(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("cannot start harvest without a cursor")
		return rep, err
	}
	rep.StartCursor, rep.EndCursor = cursor, cursor

	token := cursor
	newStart := ""
	for {
		page, err := h.feed.ListChanges(ctx, token, h.pageSize)
		if err != nil {
			logger.Error().Err(err).Int("page", rep.Pages+1).Msg("change page fetch failed, cursor left unchanged")
			return rep, fmt.Errorf("list changes: %w", err)
		}
		rep.Pages++
		if page.NewStartToken != "" {
			newStart = page.NewStartToken
		}

		for _, entry := range page.Entries {
			h.process(ctx, &logger, entry, &rep)
		}

		if page.NextPageToken == "" {
			break
		}
		if page.NextPageToken == token {
			logger.Error().Str("token", token).Msg("change feed pagination stalled")
			return rep, ErrStalledPagination
		}
		token = page.NextPageToken
	}

	if newStart == "" {
		logger.Warn().Str("cursor", cursor).Msg("feed returned no new start token, cursor left unchanged")
	} else {
		h.tracker.AdvanceTo(newStart)
		rep.EndCursor, rep.Advanced = newStart, true
	}

	logger.Info().
		Int("pages", rep.Pages).
		Int("entries", rep.Entries).
		Int("qualifying", rep.Qualifying).
		Int("delivered", rep.Delivered).
		Int("failed", rep.Failed).
		Int("entryErrors", rep.Errors).
		Str("cursor", rep.EndCursor).
		Msg("harvest pass complete")
	return rep, nil
}

// process evaluates one entry. Nothing here aborts the pass.
func (h *Harvester) process(ctx context.Context, logger *zerolog.Logger, e feed.ChangeEntry, rep *Report) {
	rep.Entries++

	switch {
	case e.FileID == "":
		rep.NoID++
		return
	case e.Removed || e.Trashed:
		rep.Removed++
		return
	case e.IsFolder():
		rep.Folders++
		return
	case !classify.IsAudio(e.Name, e.MimeType):
		rep.NotAudio++
		logger.Debug().Str("fileId", e.FileID).Str("mimeType", e.MimeType).Msg("skipping non-audio change")
		return
	}

	h.resolver.Prime(e.FileID, e.Parents)
	inside, err := h.resolver.IsDescendantOf(ctx, e.FileID, h.rootFolderID)
	if err != nil {
		rep.Errors++
		logger.Warn().Err(err).Str("fileId", e.FileID).Str("name", e.Name).Msg("ancestry check failed, skipping entry")
		return
	}
	if !inside {
		rep.OutsideRoot++
		logger.Debug().Str("fileId", e.FileID).Msg("skipping change outside watched folder")
		return
	}

	n := NewNotification(e)
	rep.Qualifying++
	res := h.dispatcher.Dispatch(ctx, n, dispatch.Meta{
		FileID:    n.FileID,
		Name:      n.Name,
		Direction: string(n.Direction),
	})
	if res.Delivered {
		rep.Delivered++
	} else {
		rep.Failed++
	}
	rep.Dispatches = append(rep.Dispatches, DispatchOutcome{
		FileID:        n.FileID,
		Name:          n.Name,
		Direction:     string(n.Direction),
		Delivered:     res.Delivered,
		Status:        res.Status,
		Error:         res.Error,
		CorrelationID: res.CorrelationID,
	})
}
