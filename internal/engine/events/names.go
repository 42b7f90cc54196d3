package events

import (
	"encoding/json"
	"fmt"
)

// Event names used on the server-sent event stream.
const (
	NameProgress  = "progress"
	NameStatus    = "status"
	NameLog       = "log"
	NameInfo      = "info"
	NameQueued    = "queued"
	NameStarted   = "started"
	NameComplete  = "complete"
	NameError     = "error"
	NameRemoved   = "removed"
	NameScheduled = "scheduled"
)

// Name returns the stream event name for msg, or "" for unknown types.
func Name(msg any) string {
	switch msg.(type) {
	case ProgressMsg:
		return NameProgress
	case DownloadStatusMsg:
		return NameStatus
	case LogMsg:
		return NameLog
	case DownloadInfoMsg:
		return NameInfo
	case DownloadQueuedMsg:
		return NameQueued
	case DownloadStartedMsg:
		return NameStarted
	case DownloadCompleteMsg:
		return NameComplete
	case DownloadErrorMsg:
		return NameError
	case DownloadRemovedMsg:
		return NameRemoved
	case ScheduleFiredMsg:
		return NameScheduled
	}
	return ""
}

// Decode rebuilds a message from its stream event name and JSON payload.
func Decode(name string, data []byte) (any, error) {
	switch name {
	case NameProgress:
		return decodeAs[ProgressMsg](data)
	case NameStatus:
		return decodeAs[DownloadStatusMsg](data)
	case NameLog:
		return decodeAs[LogMsg](data)
	case NameInfo:
		return decodeAs[DownloadInfoMsg](data)
	case NameQueued:
		return decodeAs[DownloadQueuedMsg](data)
	case NameStarted:
		return decodeAs[DownloadStartedMsg](data)
	case NameComplete:
		return decodeAs[DownloadCompleteMsg](data)
	case NameError:
		return decodeAs[DownloadErrorMsg](data)
	case NameRemoved:
		return decodeAs[DownloadRemovedMsg](data)
	case NameScheduled:
		return decodeAs[ScheduleFiredMsg](data)
	}
	return nil, fmt.Errorf("unknown event %q", name)
}

func decodeAs[T any](data []byte) (any, error) {
	var m T
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
