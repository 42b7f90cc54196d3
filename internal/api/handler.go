// Package api exposes a DownloadService over local HTTP with a server-sent
// event stream.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tubeq/tubeq/internal/core"
	"github.com/tubeq/tubeq/internal/engine"
	"github.com/tubeq/tubeq/internal/engine/events"
	"github.com/tubeq/tubeq/internal/engine/types"
	"github.com/tubeq/tubeq/internal/utils"
)

// DownloadRequest is the body of POST /download and POST /schedule. Fields
// left empty take the server's defaults.
type DownloadRequest struct {
	URL          string `json:"url"`
	Destination  string `json:"destination,omitempty"`
	Resolution   string `json:"resolution,omitempty"`
	OutputFormat string `json:"output_format,omitempty"`
	AudioOnly    *bool  `json:"audio_only,omitempty"`
	Playlist     bool   `json:"playlist,omitempty"`
	Subtitles    *bool  `json:"subtitles,omitempty"`
	Priority     string `json:"priority,omitempty"`
	RateLimit    string `json:"rate_limit,omitempty"` // e.g. "500K"
	FromQueue    bool   `json:"from_queue,omitempty"`

	// Schedule only
	TriggerAt  string `json:"trigger_at,omitempty"` // RFC 3339 or "2006-01-02 15:04"
	Recurrence string `json:"recurrence,omitempty"`
}

// Descriptor merges the request over base.
func (r DownloadRequest) Descriptor(base types.TaskDescriptor) (types.TaskDescriptor, error) {
	desc := base
	desc.URL = strings.TrimSpace(r.URL)
	if r.Destination != "" {
		if strings.Contains(r.Destination, "..") {
			return desc, &engine.ValidationError{Field: "destination", Reason: "must not contain '..'"}
		}
		desc.Destination = r.Destination
	}
	if r.Resolution != "" {
		res, err := types.ParseResolution(r.Resolution)
		if err != nil {
			return desc, &engine.ValidationError{Field: "resolution", Reason: err.Error()}
		}
		desc.Resolution = res
	}
	if r.OutputFormat != "" {
		f, err := types.ParseOutputFormat(r.OutputFormat)
		if err != nil {
			return desc, &engine.ValidationError{Field: "output_format", Reason: err.Error()}
		}
		desc.OutputFormat = f
	}
	if r.AudioOnly != nil {
		desc.AudioOnly = *r.AudioOnly
	}
	if r.Subtitles != nil {
		desc.Subtitles = *r.Subtitles
	}
	desc.Playlist = r.Playlist
	desc.FromQueue = r.FromQueue
	if r.Priority != "" {
		p, err := types.ParsePriority(r.Priority)
		if err != nil {
			return desc, &engine.ValidationError{Field: "priority", Reason: err.Error()}
		}
		desc.Priority = p
	}
	if r.RateLimit != "" {
		rate, err := utils.ParseRate(r.RateLimit)
		if err != nil {
			return desc, &engine.ValidationError{Field: "rate_limit", Reason: err.Error()}
		}
		desc.MaxRateBytesPerSec = rate
	}
	if r.Recurrence != "" {
		rec, err := types.ParseRecurrence(r.Recurrence)
		if err != nil {
			return desc, &engine.ValidationError{Field: "recurrence", Reason: err.Error()}
		}
		desc.Recurrence = rec
	}
	return desc, engine.ValidateDescriptor(desc)
}

// ParseTriggerTime accepts RFC 3339, a local "2006-01-02 15:04" or Unix seconds.
func ParseTriggerTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", s, time.Local); err == nil {
		return t, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0), nil
	}
	return time.Time{}, fmt.Errorf("invalid trigger time %q", s)
}

// Server routes HTTP requests to a DownloadService.
type Server struct {
	Service core.DownloadService
	Token   string
	// Defaults returns the descriptor requests are merged over.
	Defaults func() types.TaskDescriptor
	Port     int

	// Heartbeat is the SSE keep-alive period.
	Heartbeat time.Duration
}

// Handler builds the routed, authenticated handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "port": s.Port})
	})

	mux.HandleFunc("/download", s.handleDownload)
	mux.HandleFunc("/list", s.handleList)
	mux.HandleFunc("/pause", s.control("paused", s.Service.Pause, s.Service.PauseAll))
	mux.HandleFunc("/resume", s.control("resumed", s.Service.Resume, s.Service.ResumeAll))
	mux.HandleFunc("/cancel", s.control("cancelled", s.Service.Cancel, s.Service.CancelAll))
	mux.HandleFunc("/start", s.handleStart)
	mux.HandleFunc("/concurrency", s.handleConcurrency)
	mux.HandleFunc("/schedule", s.handleSchedule)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/retry", s.handleRetry)
	mux.HandleFunc("/events", s.handleEvents)

	return corsMiddleware(s.authMiddleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || s.Token == "" {
			next.ServeHTTP(w, r)
			return
		}
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.Token)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Debug("Failed to encode response: %v", err)
	}
}

// writeError maps service errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	var verr *engine.ValidationError
	switch {
	case errors.As(err, &verr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, core.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) defaults() types.TaskDescriptor {
	if s.Defaults == nil {
		return types.TaskDescriptor{}
	}
	return s.Defaults()
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "Missing id parameter", http.StatusBadRequest)
			return
		}
		st, err := s.Service.GetStatus(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)

	case http.MethodPost:
		var req DownloadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		desc, err := req.Descriptor(s.defaults())
		if err != nil {
			writeError(w, err)
			return
		}
		utils.Debug("Received download request: URL=%s, Destination=%s", desc.URL, desc.Destination)

		id, err := s.Service.Add(desc)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "queued",
			"message": "Download queued successfully",
			"id":      id,
		})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	list, err := s.Service.List()
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []types.DownloadStatus{}
	}
	writeJSON(w, http.StatusOK, list)
}

// control handles pause/resume/cancel. Without an id the action applies to
// every active download.
func (s *Server) control(verb string, one func(string) error, all func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id := r.URL.Query().Get("id")
		var err error
		if id == "" {
			err = all()
		} else {
			err = one(id)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		resp := map[string]string{"status": verb}
		if id != "" {
			resp["id"] = id
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	n, err := s.Service.StartQueue()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"started": n})
}

func (s *Server) handleConcurrency(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	n, err := strconv.Atoi(r.URL.Query().Get("n"))
	if err != nil {
		http.Error(w, "Invalid n parameter", http.StatusBadRequest)
		return
	}
	if err := s.Service.SetMaxConcurrent(n); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"max_concurrent": n})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.Service.Schedules()
		if err != nil {
			writeError(w, err)
			return
		}
		if list == nil {
			list = []types.ScheduleEntry{}
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		var req DownloadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		at, err := ParseTriggerTime(req.TriggerAt)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		desc, err := req.Descriptor(s.defaults())
		if err != nil {
			writeError(w, err)
			return
		}
		entry, err := s.Service.Schedule(at, desc)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)

	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "Missing id parameter", http.StatusBadRequest)
			return
		}
		if err := s.Service.Unschedule(id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.Service.SearchHistory(r.URL.Query().Get("q"))
		if err != nil {
			writeError(w, err)
			return
		}
		if list == nil {
			list = []types.HistoryEntry{}
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodDelete:
		if err := s.Service.ClearHistory(); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ids, err := s.Service.RetryFailed()
	if err != nil {
		writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"ids": ids})
}

// handleEvents streams events as "event: <name>\ndata: <json>\n\n".
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	stream, cleanup, err := s.Service.StreamEvents(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	defer cleanup()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := s.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case msg, ok := <-stream:
			if !ok {
				return
			}
			name := events.Name(msg)
			if name == "" {
				continue
			}
			data, err := json.Marshal(msg)
			if err != nil {
				utils.Debug("Failed to encode %s event: %v", name, err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
