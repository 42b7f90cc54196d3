package events

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/tubeq/tubeq/internal/engine/types"
)

// ProgressMsg represents a progress update from a worker
type ProgressMsg struct {
	DownloadID string
	Percent    float64 // clamped to [0,100]
	Downloaded int64
	Total      int64   // 0 when the size is unknown
	Speed      float64 // bytes per second
	ETA        int64   // seconds, 0 when unknown
}

// DownloadStatusMsg carries a human-readable status text such as
// "Download Paused" together with the phase it corresponds to.
type DownloadStatusMsg struct {
	DownloadID string
	Phase      types.Phase
	Status     string
}

// LogMsg is a line for the user-facing activity log. Workers always emit the
// log line of a transition before its status message.
type LogMsg struct {
	DownloadID string
	Message    string
	Time       time.Time
}

// DownloadInfoMsg is sent once metadata has been resolved
type DownloadInfoMsg struct {
	DownloadID string
	Title      string
	Channel    string
}

// DownloadQueuedMsg is sent when a task enters the backlog
type DownloadQueuedMsg struct {
	DownloadID string
	URL        string
}

// DownloadStartedMsg is sent when a task is promoted into the active set
type DownloadStartedMsg struct {
	DownloadID string
	URL        string
}

// DownloadCompleteMsg signals that the download finished successfully
type DownloadCompleteMsg struct {
	DownloadID string
	Title      string
	OutputPath string
	MediaType  string
	Elapsed    time.Duration
}

// DownloadErrorMsg carries the error that moved a task to Failed
type DownloadErrorMsg struct {
	DownloadID string
	Title      string
	Err        error
}

func (m DownloadErrorMsg) MarshalJSON() ([]byte, error) {
	type encoded struct {
		DownloadID string `json:"DownloadID"`
		Title      string `json:"Title,omitempty"`
		Err        string `json:"Err,omitempty"`
	}

	out := encoded{
		DownloadID: m.DownloadID,
		Title:      m.Title,
	}
	if m.Err != nil {
		out.Err = m.Err.Error()
	}

	return json.Marshal(out)
}

func (m *DownloadErrorMsg) UnmarshalJSON(data []byte) error {
	var aux struct {
		DownloadID string          `json:"DownloadID"`
		Title      string          `json:"Title"`
		Err        json.RawMessage `json:"Err"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	m.DownloadID = aux.DownloadID
	m.Title = aux.Title
	m.Err = nil

	if len(aux.Err) == 0 {
		return nil
	}

	var errStr string
	if err := json.Unmarshal(aux.Err, &errStr); err == nil {
		if errStr != "" {
			m.Err = errors.New(errStr)
		}
		return nil
	}

	// Accept non-string payloads (e.g. {}) from older servers.
	raw := string(aux.Err)
	if raw != "" && raw != "null" {
		m.Err = errors.New(raw)
	}
	return nil
}

// DownloadRemovedMsg is sent when a task record is forgotten by the pool
type DownloadRemovedMsg struct {
	DownloadID string
}

// ScheduleFiredMsg is sent when the scheduler submits a due entry
type ScheduleFiredMsg struct {
	ScheduleID string
	DownloadID string
	URL        string
	Err        string `json:",omitempty"`
}
