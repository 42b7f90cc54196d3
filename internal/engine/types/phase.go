package types

// Phase is the lifecycle position of a single download task.
type Phase string

const (
	PhasePending     Phase = "pending"
	PhaseResolving   Phase = "resolving"
	PhaseDownloading Phase = "downloading"
	PhasePaused      Phase = "paused"
	PhaseCompleted   Phase = "completed"
	PhaseCancelled   Phase = "cancelled"
	PhaseFailed      Phase = "failed"
)

// IsTerminal reports whether no further transitions can happen.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseCancelled || p == PhaseFailed
}

// IsActive reports whether the phase counts against the concurrency limit.
func (p Phase) IsActive() bool {
	return p == PhaseResolving || p == PhaseDownloading || p == PhasePaused
}

var transitions = map[Phase][]Phase{
	PhasePending:     {PhaseResolving, PhaseCancelled},
	PhaseResolving:   {PhaseDownloading, PhasePaused, PhaseCancelled, PhaseFailed},
	PhaseDownloading: {PhasePaused, PhaseCompleted, PhaseCancelled, PhaseFailed},
	PhasePaused:      {PhaseDownloading, PhaseCompleted, PhaseCancelled, PhaseFailed},
}

// CanTransition reports whether moving from p to next is allowed. Phases only
// move forward, except for the Paused/Downloading toggle.
func (p Phase) CanTransition(next Phase) bool {
	for _, allowed := range transitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Status texts carried by DownloadStatusMsg. History matching depends on the
// exact wording.
const (
	StatusError     = "Download Error"
	StatusCompleted = "Download Completed"
	StatusCancelled = "Download Cancelled"
	StatusPaused    = "Download Paused"
	StatusResumed   = "Download Resumed"
	StatusQueued    = "Queued"
	StatusStarted   = "Download Started"
)

// PlaceholderTitle is shown until metadata has been resolved.
const PlaceholderTitle = "Fetching..."
