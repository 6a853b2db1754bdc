package harvest

import (
	"context"
	"fmt"

	"github.com/erauner12/callwatch/internal/config"
	"github.com/erauner12/callwatch/internal/feed"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RegisterRequest asks for a push subscription pointed at Address
type RegisterRequest struct {
	Address string
	Token   string
	// Fresh discards the held cursor and starts from the feed's current position
	Fresh bool
}

// Register creates a watch channel starting at the harvester's cursor.
// The cursor is initialized if absent, so the first triggered pass resumes where the watch began.
func (h *Harvester) Register(ctx context.Context, req RegisterRequest) (feed.WatchRegistration, error) {
	if req.Address == "" {
		return feed.WatchRegistration{}, config.ErrMissingCallbackAddress
	}

	// Registration touches the cursor, so it waits for any active pass
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return feed.WatchRegistration{}, err
	}
	defer h.sem.Release(1)

	if req.Fresh {
		h.tracker.Reset()
	}
	cursor, err := h.tracker.CurrentOrInit(ctx)
	if err != nil {
		return feed.WatchRegistration{}, fmt.Errorf("init cursor: %w", err)
	}

	reg, err := h.feed.CreateWatch(ctx, feed.WatchRequest{
		ChannelID: uuid.NewString(),
		Cursor:    cursor,
		Address:   req.Address,
		Token:     req.Token,
	})
	if err != nil {
		return feed.WatchRegistration{}, err
	}
	if reg.StartCursor == "" {
		reg.StartCursor = cursor
	}

	log.Ctx(ctx).Info().
		Str("channelId", reg.ChannelID).
		Str("resourceId", reg.ResourceID).
		Str("address", reg.Address).
		Str("cursor", reg.StartCursor).
		Time("expiration", reg.Expiration).
		Msg("watch registered")
	return reg, nil
}

// Unregister stops a watch channel
func (h *Harvester) Unregister(ctx context.Context, channelID, resourceID string) error {
	if err := h.feed.StopWatch(ctx, channelID, resourceID); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("channelId", channelID).Str("resourceId", resourceID).Msg("watch stopped")
	return nil
}
