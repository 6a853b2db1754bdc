package httpapi

import (
	"net/http"

	"github.com/erauner12/callwatch/internal/auth"
	"github.com/erauner12/callwatch/internal/config"
	"github.com/rs/zerolog/log"
)

// Drive push notification headers
const (
	hdrChannelID     = "X-Goog-Channel-ID"
	hdrChannelToken  = "X-Goog-Channel-Token"
	hdrResourceID    = "X-Goog-Resource-ID"
	hdrResourceState = "X-Goog-Resource-State"
	hdrMessageNumber = "X-Goog-Message-Number"

	// stateSync is sent once when a channel is created; it carries no changes
	stateSync = "sync"
)

type notificationAck struct {
	Accepted bool   `json:"accepted"`
	State    string `json:"state"`
}

// DriveNotification handles POST /v1/drive/notifications
// Acknowledges promptly; the pass runs in the background.
func (s *Server) DriveNotification(w http.ResponseWriter, r *http.Request) {
	state := r.Header.Get(hdrResourceState)
	logger := log.Ctx(r.Context()).With().
		Str("channelId", r.Header.Get(hdrChannelID)).
		Str("resourceId", r.Header.Get(hdrResourceID)).
		Str("state", state).
		Str("messageNumber", r.Header.Get(hdrMessageNumber)).
		Logger()

	expected := ""
	if s.Config != nil {
		expected = s.Config.WebhookToken
	}
	if err := auth.VerifyChannelToken(expected, r.Header.Get(hdrChannelToken)); err != nil {
		logger.Warn().Err(err).Msg("rejected drive notification")
		writeError(w, r, http.StatusUnauthorized, "invalid channel token")
		return
	}

	if state == stateSync {
		logger.Info().Msg("watch channel handshake acknowledged")
		writeJSON(w, http.StatusOK, notificationAck{Accepted: true, State: state})
		return
	}

	if err := s.Harvester.Trigger(logger.WithContext(r.Context())); err != nil {
		// Only configuration problems surface here; Drive retries on 5xx until they are fixed
		logger.Error().Err(err).Bool("configError", config.IsConfigurationError(err)).Msg("cannot harvest on notification")
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Debug().Msg("harvest pass triggered")
	writeJSON(w, http.StatusOK, notificationAck{Accepted: true, State: state})
}
