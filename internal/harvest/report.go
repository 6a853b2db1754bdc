package harvest

import "time"

// Report summarizes one harvesting pass
type Report struct {
	StartCursor string `json:"startCursor"`
	EndCursor   string `json:"endCursor"`
	Advanced    bool   `json:"advanced"`
	Pages       int    `json:"pages"`

	Entries     int `json:"entries"`
	NoID        int `json:"skippedNoId"`
	Removed     int `json:"skippedRemoved"`
	Folders     int `json:"skippedFolders"`
	NotAudio    int `json:"skippedNotAudio"`
	OutsideRoot int `json:"skippedOutsideRoot"`
	Errors      int `json:"entryErrors"`

	Qualifying int `json:"qualifying"`
	Delivered  int `json:"delivered"`
	Failed     int `json:"failed"`

	Dispatches []DispatchOutcome `json:"dispatches"`

	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"durationNs"`
	Error     string        `json:"error,omitempty"`
}

// DispatchOutcome is the per-file result of a dispatch within a pass
type DispatchOutcome struct {
	FileID        string `json:"fileId"`
	Name          string `json:"name"`
	Direction     string `json:"direction"`
	Delivered     bool   `json:"delivered"`
	Status        int    `json:"status,omitempty"`
	Error         string `json:"error,omitempty"`
	CorrelationID string `json:"correlationId"`
}
