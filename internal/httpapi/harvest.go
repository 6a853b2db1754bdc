package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/erauner12/callwatch/internal/config"
)

// Harvest handles POST /v1/harvest
// Runs one pass synchronously and returns its report.
func (s *Server) Harvest(w http.ResponseWriter, r *http.Request) {
	rep, err := s.Harvester.Run(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, rep)
	case config.IsConfigurationError(err):
		writeError(w, r, http.StatusInternalServerError, err.Error())
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusServiceUnavailable, err.Error())
	default:
		// Remote failure mid-pass; the report shows how far it got
		writeJSON(w, http.StatusBadGateway, rep)
	}
}
