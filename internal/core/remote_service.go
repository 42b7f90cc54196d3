package core

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tubeq/tubeq/internal/engine/events"
	"github.com/tubeq/tubeq/internal/engine/types"
	"github.com/tubeq/tubeq/internal/utils"
)

// RemoteDownloadService implements DownloadService for a remote daemon.
type RemoteDownloadService struct {
	BaseURL   string
	Token     string
	Client    *http.Client
	SSEClient *http.Client
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewRemoteDownloadService creates a new remote service instance.
func NewRemoteDownloadService(baseURL string, token string) *RemoteDownloadService {
	ctx, cancel := context.WithCancel(context.Background())
	return &RemoteDownloadService{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Token:     token,
		Client:    &http.Client{Timeout: 30 * time.Second},
		SSEClient: &http.Client{},
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *RemoteDownloadService) doRequest(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(s.ctx, method, s.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+s.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		// Limit error body read to 1KB
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	return resp, nil
}

// getJSON performs a request and decodes the JSON response into out.
func (s *RemoteDownloadService) getJSON(method, path string, body any, out any) error {
	resp, err := s.doRequest(method, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func withID(path, id string) string {
	if id == "" {
		return path
	}
	return path + "?id=" + url.QueryEscape(id)
}

// List returns the status of all known downloads.
func (s *RemoteDownloadService) List() ([]types.DownloadStatus, error) {
	var statuses []types.DownloadStatus
	if err := s.getJSON(http.MethodGet, "/list", nil, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// GetStatus returns a status for a single download by id.
func (s *RemoteDownloadService) GetStatus(id string) (*types.DownloadStatus, error) {
	var status types.DownloadStatus
	if err := s.getJSON(http.MethodGet, withID("/download", id), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (s *RemoteDownloadService) History() ([]types.HistoryEntry, error) {
	return s.SearchHistory("")
}

func (s *RemoteDownloadService) SearchHistory(query string) ([]types.HistoryEntry, error) {
	path := "/history"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}
	var entries []types.HistoryEntry
	if err := s.getJSON(http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *RemoteDownloadService) ClearHistory() error {
	return s.getJSON(http.MethodDelete, "/history", nil, nil)
}

// requestFor renders a descriptor as an API request body.
func requestFor(desc types.TaskDescriptor) map[string]any {
	req := map[string]any{
		"url":        desc.URL,
		"audio_only": desc.AudioOnly,
		"playlist":   desc.Playlist,
		"subtitles":  desc.Subtitles,
		"from_queue": desc.FromQueue,
	}
	if desc.Destination != "" {
		req["destination"] = desc.Destination
	}
	if desc.Resolution != "" {
		req["resolution"] = string(desc.Resolution)
	}
	if desc.OutputFormat != "" {
		req["output_format"] = desc.OutputFormat
	}
	if desc.Priority != 0 {
		req["priority"] = strconv.Itoa(int(desc.Priority))
	}
	if desc.MaxRateBytesPerSec > 0 {
		// The API takes K/M/G strings; round up to whole KiB.
		req["rate_limit"] = fmt.Sprintf("%dK", (desc.MaxRateBytesPerSec+1023)/1024)
	}
	if desc.Recurrence != "" {
		req["recurrence"] = string(desc.Recurrence)
	}
	return req
}

// Add queues a new download.
func (s *RemoteDownloadService) Add(desc types.TaskDescriptor) (string, error) {
	var result map[string]string
	if err := s.getJSON(http.MethodPost, "/download", requestFor(desc), &result); err != nil {
		return "", err
	}
	return result["id"], nil
}

func (s *RemoteDownloadService) Pause(id string) error {
	return s.getJSON(http.MethodPost, withID("/pause", id), nil, nil)
}

func (s *RemoteDownloadService) Resume(id string) error {
	return s.getJSON(http.MethodPost, withID("/resume", id), nil, nil)
}

func (s *RemoteDownloadService) Cancel(id string) error {
	return s.getJSON(http.MethodPost, withID("/cancel", id), nil, nil)
}

func (s *RemoteDownloadService) PauseAll() error  { return s.Pause("") }
func (s *RemoteDownloadService) ResumeAll() error { return s.Resume("") }
func (s *RemoteDownloadService) CancelAll() error { return s.Cancel("") }

func (s *RemoteDownloadService) StartQueue() (int, error) {
	var result map[string]int
	if err := s.getJSON(http.MethodPost, "/start", nil, &result); err != nil {
		return 0, err
	}
	return result["started"], nil
}

func (s *RemoteDownloadService) SetMaxConcurrent(n int) error {
	return s.getJSON(http.MethodPost, "/concurrency?n="+strconv.Itoa(n), nil, nil)
}

func (s *RemoteDownloadService) Schedule(triggerAt time.Time, desc types.TaskDescriptor) (*types.ScheduleEntry, error) {
	req := requestFor(desc)
	req["trigger_at"] = triggerAt.Format(time.RFC3339)

	var entry types.ScheduleEntry
	if err := s.getJSON(http.MethodPost, "/schedule", req, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *RemoteDownloadService) Schedules() ([]types.ScheduleEntry, error) {
	var entries []types.ScheduleEntry
	if err := s.getJSON(http.MethodGet, "/schedule", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *RemoteDownloadService) Unschedule(id string) error {
	return s.getJSON(http.MethodDelete, withID("/schedule", id), nil, nil)
}

func (s *RemoteDownloadService) RetryFailed() ([]string, error) {
	var result map[string][]string
	if err := s.getJSON(http.MethodPost, "/retry", nil, &result); err != nil {
		return nil, err
	}
	return result["ids"], nil
}

// Shutdown stops the service.
func (s *RemoteDownloadService) Shutdown() error {
	s.cancel()
	return nil
}

// StreamEvents returns a channel that receives real-time download events via SSE.
func (s *RemoteDownloadService) StreamEvents(ctx context.Context) (<-chan any, func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan any, 100)
	go s.streamWithReconnect(ctx, ch)
	return ch, cancel, nil
}

func (s *RemoteDownloadService) streamWithReconnect(ctx context.Context, ch chan any) {
	defer close(ch)
	backoff := 1 * time.Second
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ctx.Done():
			return
		default:
		}

		err := s.connectSSE(ctx, ch)
		if err == nil {
			return
		}
		utils.Debug("Event stream disconnected: %v (retrying in %s)", err, backoff)

		select {
		case <-s.ctx.Done():
			return
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (s *RemoteDownloadService) connectSSE(ctx context.Context, ch chan any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/events", nil)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Connection", "keep-alive")

	resp, err := s.SSEClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to connect to event stream: %s", resp.Status)
	}

	reader := bufio.NewReader(resp.Body)
	for {
		eventType := ""
		var dataLines []string

		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			line = strings.TrimRight(line, "\r\n")

			// Blank line dispatches event
			if line == "" {
				break
			}
			// Comment/heartbeat
			if strings.HasPrefix(line, ":") {
				continue
			}
			if strings.HasPrefix(line, "event:") {
				eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				continue
			}
			if strings.HasPrefix(line, "data:") {
				dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
				continue
			}
		}

		if eventType == "" || len(dataLines) == 0 {
			continue
		}

		msg, err := events.Decode(eventType, []byte(strings.Join(dataLines, "\n")))
		if err != nil {
			utils.Debug("Skipping %s event: %v", eventType, err)
			continue
		}

		// Progress is dropped when the reader falls behind; other events wait.
		if _, isProgress := msg.(events.ProgressMsg); isProgress {
			select {
			case ch <- msg:
			default:
			}
			continue
		}
		select {
		case ch <- msg:
		case <-ctx.Done():
			return nil
		}
	}
}
