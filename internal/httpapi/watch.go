package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/erauner12/callwatch/internal/config"
	"github.com/erauner12/callwatch/internal/feed"
	"github.com/erauner12/callwatch/internal/harvest"
	"github.com/rs/zerolog/log"
)

type registerReq struct {
	Address string `json:"address"`
	Fresh   bool   `json:"fresh"`
}

type stopReq struct {
	ChannelID  string `json:"channelId"`
	ResourceID string `json:"resourceId"`
}

// decodeOptional decodes a JSON body, treating an empty body as the zero value
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// remoteStatus maps a feed error to a response status
func remoteStatus(err error) int {
	if errors.Is(err, feed.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

// RegisterWatch handles POST /v1/watch
func (s *Server) RegisterWatch(w http.ResponseWriter, r *http.Request) {
	var body registerReq
	if err := decodeOptional(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	address := body.Address
	token := ""
	if s.Config != nil {
		if address == "" {
			address = s.Config.CallbackAddress()
		}
		token = s.Config.WebhookToken
	}

	reg, err := s.Harvester.Register(r.Context(), harvest.RegisterRequest{
		Address: address,
		Token:   token,
		Fresh:   body.Fresh,
	})
	if err != nil {
		if config.IsConfigurationError(err) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Msg("watch registration failed")
		writeError(w, r, remoteStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, reg)
}

// StopWatch handles DELETE /v1/watch
func (s *Server) StopWatch(w http.ResponseWriter, r *http.Request) {
	var body stopReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	if body.ChannelID == "" || body.ResourceID == "" {
		writeError(w, r, http.StatusBadRequest, "channelId and resourceId are required")
		return
	}

	if err := s.Harvester.Unregister(r.Context(), body.ChannelID, body.ResourceID); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("channelId", body.ChannelID).Msg("stop watch failed")
		writeError(w, r, remoteStatus(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
