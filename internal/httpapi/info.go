package httpapi

import (
	"net/http"
	"time"

	"github.com/erauner12/callwatch/internal/config"
	"github.com/erauner12/callwatch/internal/harvest"
)

// ServerInfo describes the service and which settings are in place
type ServerInfo struct {
	Service      string         `json:"service"`
	Version      string         `json:"version"`
	ServerTime   string         `json:"serverTime"`
	Configured   Configured     `json:"configured"`
	Notification string         `json:"notificationPath"`
	RateLimit    *RateLimitInfo `json:"rateLimit,omitempty"`
}

// Configured flags the settings a harvest pass or watch registration depends on
type Configured struct {
	RootFolder   bool `json:"rootFolder"`
	Dispatch     bool `json:"dispatch"`
	WebhookToken bool `json:"webhookToken"`
	PublicURL    bool `json:"publicBaseUrl"`
}

// RateLimitInfo describes a rate limiting policy
type RateLimitInfo struct {
	WindowSeconds int `json:"windowSeconds"` // e.g. 60
	MaxRequests   int `json:"maxRequests"`   // per window
	Burst         int `json:"burst"`         // token bucket size
}

// StatusResp is the operator view of the engine state
type StatusResp struct {
	CursorSet  bool            `json:"cursorSet"`
	Cursor     string          `json:"cursor,omitempty"`
	CacheSize  int             `json:"ancestryCacheSize"`
	Passes     int64           `json:"passes"`
	LastReport *harvest.Report `json:"lastReport,omitempty"`
}

// Info handles GET /v1/info
// This endpoint can be called without authentication to allow capability discovery
func (s *Server) Info(w http.ResponseWriter, r *http.Request) {
	limit := limitOrDefault(s.NotificationLimit, DefaultNotificationLimit)
	info := ServerInfo{
		Service:      "callwatch",
		Version:      s.Version,
		ServerTime:   time.Now().UTC().Format(time.RFC3339Nano),
		Notification: config.NotificationPath,
		RateLimit:    &limit,
	}
	if s.Config != nil {
		info.Configured = Configured{
			RootFolder:   s.Config.RootFolderID != "",
			Dispatch:     s.Config.EffectiveDispatchURL() != "",
			WebhookToken: s.Config.WebhookToken != "",
			PublicURL:    s.Config.PublicBaseURL != "",
		}
	}

	writeJSON(w, http.StatusOK, info)
}

// Status handles GET /v1/status
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	cursor, ok := s.Harvester.Cursor()
	resp := StatusResp{
		CursorSet: ok,
		Cursor:    cursor,
		CacheSize: s.Harvester.Resolver().Len(),
		Passes:    s.Harvester.Passes(),
	}
	if rep, ok := s.Harvester.LastReport(); ok {
		resp.LastReport = &rep
	}
	writeJSON(w, http.StatusOK, resp)
}
