package types

// DownloadStatus represents the transient status of a task known to the pool
type DownloadStatus struct {
	ID          string         `json:"id"`
	Task        TaskDescriptor `json:"task"`
	Title       string         `json:"title"`
	Channel     string         `json:"channel"`
	Phase       Phase          `json:"phase"`
	Progress    float64        `json:"progress"` // Percentage 0-100
	Speed       float64        `json:"speed"`    // bytes/s
	ETA         int64          `json:"eta"`      // Estimated seconds remaining
	Downloaded  int64          `json:"downloaded"`
	TotalSize   int64          `json:"total_size"`
	Error       string         `json:"error,omitempty"`
	OutputPath  string         `json:"output_path,omitempty"`
	MediaType   string         `json:"media_type,omitempty"`
	AddedAt     int64          `json:"added_at"`               // Unix timestamp when submitted
	CompletedAt int64          `json:"completed_at,omitempty"` // Unix timestamp of the terminal phase
}

// HistoryEntry is one row of the persisted download history
type HistoryEntry struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Channel     string `json:"channel"`
	Status      string `json:"status"` // last status text, e.g. "Download Error"
	Destination string `json:"destination"`
	OutputPath  string `json:"output_path,omitempty"`
	MediaType   string `json:"media_type,omitempty"`
	Error       string `json:"error,omitempty"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

// Failed reports whether the entry's last status was an error.
func (h HistoryEntry) Failed() bool {
	return h.Status == StatusError
}

// ScheduleStatus is the state of a scheduler entry
type ScheduleStatus string

const (
	ScheduleScheduled ScheduleStatus = "Scheduled"
	ScheduleStarted   ScheduleStatus = "Started"
)

// ScheduleEntry is one time-triggered submission
type ScheduleEntry struct {
	ID         string         `json:"id"`
	TriggerAt  int64          `json:"trigger_at"` // Unix timestamp
	Task       TaskDescriptor `json:"task"`
	Recurrence Recurrence     `json:"recurrence"`
	Status     ScheduleStatus `json:"status"`
	LastTaskID string         `json:"last_task_id,omitempty"`
}
