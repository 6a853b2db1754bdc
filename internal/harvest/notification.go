package harvest

import (
	"github.com/erauner12/callwatch/internal/classify"
	"github.com/erauner12/callwatch/internal/feed"
)

// Source tags every notification with the system it came from
const Source = "google-drive"

// Notification is the JSON body POSTed to the processor for one qualifying file
type Notification struct {
	Source         string             `json:"source"`
	FileID         string             `json:"fileId"`
	Name           string             `json:"name"`
	MimeType       string             `json:"mimeType"`
	CreatedTime    string             `json:"createdTime"`
	ModifiedTime   string             `json:"modifiedTime"`
	WebViewLink    string             `json:"webViewLink,omitempty"`
	WebContentLink string             `json:"webContentLink,omitempty"`
	Direction      classify.Direction `json:"direction"`
}

// NewNotification builds the payload for a qualifying change entry
func NewNotification(e feed.ChangeEntry) Notification {
	return Notification{
		Source:         Source,
		FileID:         e.FileID,
		Name:           e.Name,
		MimeType:       e.MimeType,
		CreatedTime:    e.CreatedTime,
		ModifiedTime:   e.ModifiedTime,
		WebViewLink:    e.WebViewLink,
		WebContentLink: e.WebContentLink,
		Direction:      classify.InferDirection(e.Name),
	}
}
