package syncx

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrEmptyStartCursor indicates the feed returned no starting position
var ErrEmptyStartCursor = errors.New("feed returned an empty start cursor")

// StartCursorSource hands out the feed position for "now"
type StartCursorSource interface {
	StartCursor(ctx context.Context) (string, error)
}

// Tracker owns the single synchronization cursor of a harvester.
// The cursor lives in memory only: a restart begins again at "now".
type Tracker struct {
	source StartCursorSource
	mu     sync.Mutex
	token  string
	set    bool
}

// NewTracker creates a tracker with no cursor
func NewTracker(source StartCursorSource) *Tracker {
	return &Tracker{source: source}
}

// CurrentOrInit returns the held cursor, fetching and storing a fresh start cursor on first use.
// On failure nothing is stored.
func (t *Tracker) CurrentOrInit(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.set {
		return t.token, nil
	}

	token, err := t.source.StartCursor(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to initialize cursor: %w", err)
	}
	if token == "" {
		return "", ErrEmptyStartCursor
	}

	t.token, t.set = token, true
	log.Ctx(ctx).Info().Str("cursor", token).Msg("sync cursor initialized")
	return token, nil
}

// AdvanceTo overwrites the held cursor. The feed is trusted to only move forward.
func (t *Tracker) AdvanceTo(token string) {
	if token == "" {
		log.Warn().Msg("ignoring attempt to advance sync cursor to an empty token")
		return
	}

	t.mu.Lock()
	prev := t.token
	t.token, t.set = token, true
	t.mu.Unlock()

	log.Debug().Str("from", prev).Str("to", token).Msg("sync cursor advanced")
}

// Peek returns the held cursor without initializing it
func (t *Tracker) Peek() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.token, t.set
}

// Reset drops the held cursor; the next CurrentOrInit starts again at "now"
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.token, t.set = "", false
	t.mu.Unlock()
}
