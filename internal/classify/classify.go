// Package classify decides which changed Drive items are call recordings and
// guesses the call direction from the file name.
package classify

import (
	"path"
	"strings"
)

// Direction is the inferred call direction of a recording
type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
	Unknown  Direction = "unknown"
)

const audioMediaPrefix = "audio/"

// audioExtensions are matched against the lower-cased file suffix
var audioExtensions = map[string]struct{}{
	".mp3":  {},
	".m4a":  {},
	".wav":  {},
	".aac":  {},
	".ogg":  {},
	".oga":  {},
	".opus": {},
	".flac": {},
	".amr":  {},
	".3gp":  {},
	".wma":  {},
	".aif":  {},
	".aiff": {},
	".caf":  {},
}

// IsAudio reports whether an item is audio by content type or, failing that, by extension
func IsAudio(name, contentType string) bool {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), audioMediaPrefix) {
		return true
	}
	ext := strings.ToLower(path.Ext(name))
	_, ok := audioExtensions[ext]
	return ok
}

// InferDirection looks for "incoming" then "outgoing" in the name, case-insensitively.
// A name carrying both tokens resolves to Incoming.
func InferDirection(name string) Direction {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, string(Incoming)):
		return Incoming
	case strings.Contains(lower, string(Outgoing)):
		return Outgoing
	default:
		return Unknown
	}
}
