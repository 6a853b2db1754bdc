package httpapi

import (
	"net/http"

	"github.com/erauner12/callwatch/internal/journal"
	"github.com/rs/zerolog/log"
)

type deliveriesResp struct {
	Items []journal.Record `json:"items"`
}

// Deliveries handles GET /v1/deliveries?limit=N
// Returns the most recent dispatch attempts, newest first.
func (s *Server) Deliveries(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"), 50, 500)

	items := []journal.Record{}
	if s.Journal != nil {
		recs, err := s.Journal.Recent(r.Context(), limit)
		if err != nil {
			log.Ctx(r.Context()).Error().Err(err).Msg("failed to read delivery journal")
			writeError(w, r, http.StatusInternalServerError, "journal unavailable")
			return
		}
		if recs != nil {
			items = recs
		}
	}

	writeJSON(w, http.StatusOK, deliveriesResp{Items: items})
}
