package calls

import "errors"

// DocumentName is the storage key of the call history document.
const DocumentName = "calls.json"

// TimestampLayout is the ISO-8601 form used for call timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Bus event kinds published by the log.
const (
	EventStateChanged = "call.state_changed"
	EventRecorded     = "call.recorded"
)

// ErrCallInProgress is returned when a call is started or received while
// another session is live.
var ErrCallInProgress = errors.New("call already in progress")

// Direction is the call record "type".
type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
	Missed   Direction = "missed"
)

// Mode is voice or video.
type Mode string

const (
	Voice Mode = "voice"
	Video Mode = "video"
)

// ParseMode validates s, defaulting to Voice when empty.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return Voice, nil
	case Voice, Video:
		return Mode(s), nil
	}
	return "", errors.New("call mode must be voice or video")
}

// Status is the outcome of a call.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusMissed    Status = "missed"
	StatusDeclined  Status = "declined"
	StatusBusy      Status = "busy"
)

// Record is one entry of the call history. Duration is set only once a
// completed call ends.
type Record struct {
	ID            string    `json:"id"`
	ContactID     string    `json:"contactId"`
	ContactName   string    `json:"contactName"`
	ContactAvatar string    `json:"contactAvatar"`
	Type          Direction `json:"type"`
	Mode          Mode      `json:"callMode"`
	Duration      *int      `json:"duration,omitempty"`
	Timestamp     string    `json:"timestamp"`
	Status        Status    `json:"status"`
}

func (r Record) clone() Record {
	if r.Duration != nil {
		d := *r.Duration
		r.Duration = &d
	}
	return r
}

// Contact identifies the other party of a call.
type Contact struct {
	ID     string
	Name   string
	Avatar string
}

// Session is the call currently in progress. It is never persisted.
type Session struct {
	ID            string `json:"id"`
	ContactID     string `json:"contactId"`
	ContactName   string `json:"contactName"`
	ContactAvatar string `json:"contactAvatar"`
	Mode          Mode   `json:"callMode"`
	StartTime     string `json:"startTime"`
	Active        bool   `json:"isActive"`
	Muted         bool   `json:"isMuted"`
	SpeakerOn     bool   `json:"isSpeakerOn"`
	VideoEnabled  bool   `json:"isVideoEnabled"`
}

// Stats aggregates the whole call history.
type Stats struct {
	TotalCalls    int `json:"totalCalls"`
	TotalDuration int `json:"totalDuration"`
	MissedCalls   int `json:"missedCalls"`
	VoiceCalls    int `json:"voiceCalls"`
	VideoCalls    int `json:"videoCalls"`
}
