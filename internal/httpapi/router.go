package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/erauner12/callwatch/internal/auth"
	"github.com/erauner12/callwatch/internal/config"
	"github.com/erauner12/callwatch/internal/harvest"
	"github.com/erauner12/callwatch/internal/journal"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Server holds dependencies for HTTP handlers
type Server struct {
	Config    *config.Config
	Harvester *harvest.Harvester
	Journal   journal.Journal
	Version   string

	// NotificationLimit throttles Drive callbacks per channel id
	NotificationLimit RateLimitInfo
	// OperatorLimit throttles operator endpoints per subject
	OperatorLimit RateLimitInfo
}

// DefaultNotificationLimit allows a burst of callbacks per channel while Drive flushes queued events
var DefaultNotificationLimit = RateLimitInfo{WindowSeconds: 60, MaxRequests: 300, Burst: 60}

// DefaultOperatorLimit is sized for humans and scripts, not bulk traffic
var DefaultOperatorLimit = RateLimitInfo{WindowSeconds: 60, MaxRequests: 60, Burst: 10}

type errorResp struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}

// writeError writes a JSON error body carrying the request's correlation id
func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, code, errorResp{Error: msg, CorrelationID: GetCorrelationID(r.Context())})
}

// parseLimit parses a limit query param with default and max
func parseLimit(q string, def, max int) int {
	if q == "" {
		return def
	}
	n, err := strconv.Atoi(q)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func limitOrDefault(l, def RateLimitInfo) RateLimitInfo {
	if l.WindowSeconds <= 0 || l.MaxRequests <= 0 || l.Burst <= 0 {
		return def
	}
	return l
}

// Routes creates the HTTP router
func (s *Server) Routes(jwt auth.JWTCfg) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	// Health check (unauthenticated)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	})
	r.Get("/v1/info", s.Info)

	// Drive push callbacks authenticate with the channel token, not operator credentials
	r.With(RateLimitMiddleware(limitOrDefault(s.NotificationLimit, DefaultNotificationLimit), ChannelKey)).
		Post(config.NotificationPath, s.DriveNotification)

	if !jwt.Enabled() {
		log.Warn().Msg("operator endpoints are unauthenticated: set JWT_HS256_SECRET or DEV_MODE")
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(jwt))
		r.Use(RateLimitMiddleware(limitOrDefault(s.OperatorLimit, DefaultOperatorLimit), SubjectKey))

		r.Post("/v1/harvest", s.Harvest)
		r.Post("/v1/watch", s.RegisterWatch)
		r.Delete("/v1/watch", s.StopWatch)
		r.Get("/v1/status", s.Status)
		r.Get("/v1/deliveries", s.Deliveries)
	})

	log.Info().Msg("HTTP routes registered")
	return r
}
