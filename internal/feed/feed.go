// Package feed defines the remote change-feed contract the harvester consumes
// and its Google Drive implementation.
package feed

import (
	"context"
	"time"
)

// FolderMimeType marks Drive folders; they are ancestry nodes, never notifications
const FolderMimeType = "application/vnd.google-apps.folder"

// ChangeEntry is a single change reported by the feed
type ChangeEntry struct {
	FileID         string
	Name           string
	MimeType       string
	Parents        []string
	CreatedTime    string
	ModifiedTime   string
	WebViewLink    string
	WebContentLink string
	Removed        bool
	Trashed        bool
}

// IsFolder reports whether the entry describes a folder
func (e ChangeEntry) IsFolder() bool {
	return e.MimeType == FolderMimeType
}

// ChangePage is one page of the change feed.
// NextPageToken is set while more pages remain; NewStartToken only on the last page.
type ChangePage struct {
	Entries       []ChangeEntry
	NextPageToken string
	NewStartToken string
}

// WatchRequest describes a push subscription to create
type WatchRequest struct {
	ChannelID string
	Cursor    string
	Address   string
	Token     string
}

// WatchRegistration is an active push subscription as acknowledged by the provider
type WatchRegistration struct {
	ChannelID   string    `json:"channelId"`
	ResourceID  string    `json:"resourceId"`
	Address     string    `json:"address"`
	StartCursor string    `json:"startCursor"`
	Expiration  time.Time `json:"expiration,omitempty"`
}

// Feed is the remote change-feed provider
type Feed interface {
	StartCursor(ctx context.Context) (string, error)
	ListChanges(ctx context.Context, token string, pageSize int64) (ChangePage, error)
	Parents(ctx context.Context, itemID string) ([]string, error)
	CreateWatch(ctx context.Context, req WatchRequest) (WatchRegistration, error)
	StopWatch(ctx context.Context, channelID, resourceID string) error
}
