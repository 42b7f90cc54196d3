package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/tubeq/tubeq/internal/engine/types"
)

// =============================================================================
// Message Type Assertions
// =============================================================================

func TestMessageTypes_AreDistinct(t *testing.T) {
	messages := []interface{}{
		ProgressMsg{DownloadID: "progress"},
		DownloadStatusMsg{DownloadID: "status"},
		LogMsg{DownloadID: "log"},
		DownloadInfoMsg{DownloadID: "info"},
		DownloadQueuedMsg{DownloadID: "queued"},
		DownloadStartedMsg{DownloadID: "started"},
		DownloadCompleteMsg{DownloadID: "complete"},
		DownloadErrorMsg{DownloadID: "error"},
		DownloadRemovedMsg{DownloadID: "removed"},
		ScheduleFiredMsg{ScheduleID: "scheduled"},
	}

	typeNames := make(map[string]bool)
	names := make(map[string]bool)
	for _, msg := range messages {
		typeName := fmt.Sprintf("%T", msg)
		if typeNames[typeName] {
			t.Errorf("Duplicate type: %s", typeName)
		}
		typeNames[typeName] = true

		name := Name(msg)
		if name == "" {
			t.Errorf("No stream name for %s", typeName)
		}
		if names[name] {
			t.Errorf("Duplicate stream name %q", name)
		}
		names[name] = true
	}

	if len(typeNames) != 10 {
		t.Errorf("Expected 10 distinct types, got %d", len(typeNames))
	}
}

func TestName_Unknown(t *testing.T) {
	if got := Name(struct{}{}); got != "" {
		t.Errorf("Name(struct{}) = %q, want empty", got)
	}
}

// =============================================================================
// Stream Round Trip
// =============================================================================

func TestDecode_RoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	messages := []any{
		ProgressMsg{DownloadID: "a", Percent: 42.5, Downloaded: 425, Total: 1000, Speed: 12, ETA: 3},
		DownloadStatusMsg{DownloadID: "a", Phase: types.PhasePaused, Status: types.StatusPaused},
		LogMsg{DownloadID: "a", Message: "Paused: Title", Time: now},
		DownloadInfoMsg{DownloadID: "a", Title: "Title", Channel: "Chan"},
		DownloadCompleteMsg{DownloadID: "a", OutputPath: "/tmp/x.mp4", MediaType: "video/mp4", Elapsed: time.Second},
		ScheduleFiredMsg{ScheduleID: "s", DownloadID: "a", URL: "https://example.com"},
	}

	for _, msg := range messages {
		t.Run(Name(msg), func(t *testing.T) {
			data, err := json.Marshal(msg)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			got, err := Decode(Name(msg), data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !reflect.DeepEqual(got, msg) {
				t.Errorf("Decode = %#v, want %#v", got, msg)
			}
		})
	}
}

func TestDecode_UnknownEvent(t *testing.T) {
	if _, err := Decode("bogus", []byte(`{}`)); err == nil {
		t.Error("expected error for unknown event name")
	}
}

// =============================================================================
// DownloadErrorMsg JSON
// =============================================================================

func TestDownloadErrorMsg_JSON(t *testing.T) {
	sent := DownloadErrorMsg{DownloadID: "err", Title: "T", Err: errors.New("boom")}

	data, err := json.Marshal(sent)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got, err := Decode(NameError, data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	m, ok := got.(DownloadErrorMsg)
	if !ok {
		t.Fatalf("Decode returned %T", got)
	}
	if m.Err == nil || m.Err.Error() != "boom" {
		t.Errorf("Err = %v, want boom", m.Err)
	}
	if m.Title != "T" {
		t.Errorf("Title = %q, want T", m.Title)
	}
}

func TestDownloadErrorMsg_UnmarshalVariants(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr string
	}{
		{"string", `{"DownloadID":"x","Err":"failed"}`, "failed"},
		{"empty string", `{"DownloadID":"x","Err":""}`, ""},
		{"missing", `{"DownloadID":"x"}`, ""},
		{"null", `{"DownloadID":"x","Err":null}`, ""},
		{"object", `{"DownloadID":"x","Err":{}}`, "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m DownloadErrorMsg
			if err := json.Unmarshal([]byte(tt.payload), &m); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			got := ""
			if m.Err != nil {
				got = m.Err.Error()
			}
			if got != tt.wantErr {
				t.Errorf("Err = %q, want %q", got, tt.wantErr)
			}
			if m.DownloadID != "x" {
				t.Errorf("DownloadID = %q", m.DownloadID)
			}
		})
	}
}

// =============================================================================
// Channel Communication
// =============================================================================

func TestProgressMsg_ChannelCommunication(t *testing.T) {
	ch := make(chan any, 1)

	sent := ProgressMsg{
		DownloadID: "channel-test",
		Percent:    50,
		Downloaded: 1000,
		Total:      2000,
	}

	ch <- sent
	received, ok := (<-ch).(ProgressMsg)
	if !ok {
		t.Fatal("expected ProgressMsg from channel")
	}
	if !reflect.DeepEqual(received, sent) {
		t.Error("Message should be identical after channel send/receive")
	}
}
