package types

import "testing"

func TestPhase_Transitions(t *testing.T) {
	tests := []struct {
		from, to Phase
		want     bool
	}{
		{PhasePending, PhaseResolving, true},
		{PhaseResolving, PhaseDownloading, true},
		{PhaseResolving, PhaseFailed, true},
		{PhaseDownloading, PhasePaused, true},
		{PhasePaused, PhaseDownloading, true},
		{PhaseDownloading, PhaseCompleted, true},
		{PhasePaused, PhaseCancelled, true},
		{PhaseDownloading, PhaseResolving, false},
		{PhaseCompleted, PhaseDownloading, false},
		{PhaseCancelled, PhasePending, false},
		{PhaseFailed, PhaseResolving, false},
		{PhasePending, PhaseCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPhase_Classification(t *testing.T) {
	for _, p := range []Phase{PhaseCompleted, PhaseCancelled, PhaseFailed} {
		if !p.IsTerminal() || p.IsActive() {
			t.Errorf("%s should be terminal and inactive", p)
		}
	}
	for _, p := range []Phase{PhaseResolving, PhaseDownloading, PhasePaused} {
		if p.IsTerminal() || !p.IsActive() {
			t.Errorf("%s should be active", p)
		}
	}
	if PhasePending.IsActive() || PhasePending.IsTerminal() {
		t.Error("pending is neither active nor terminal")
	}
}

func TestParseResolution(t *testing.T) {
	tests := []struct {
		in      string
		want    Resolution
		wantErr bool
	}{
		{"720p", Resolution720p, false},
		{"1080", Resolution1080p, false},
		{" 4320P ", Resolution4320p, false},
		{"", DefaultResolution, false},
		{"999p", "", true},
	}
	for _, tt := range tests {
		got, err := ParseResolution(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseResolution(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseResolution(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseRecurrenceAndPriority(t *testing.T) {
	if r, err := ParseRecurrence("Monthly"); err != nil || r != RecurrenceMonthly {
		t.Errorf("ParseRecurrence(Monthly) = %q, %v", r, err)
	}
	if r, err := ParseRecurrence(""); err != nil || r != RecurrenceNone {
		t.Errorf("ParseRecurrence(\"\") = %q, %v", r, err)
	}
	if _, err := ParseRecurrence("hourly"); err == nil {
		t.Error("expected error for hourly")
	}
	if p, err := ParsePriority("high"); err != nil || p != PriorityHigh {
		t.Errorf("ParsePriority(high) = %v, %v", p, err)
	}
	if _, err := ParsePriority("urgent"); err == nil {
		t.Error("expected error for urgent")
	}
	if PriorityLow.String() != "Low" {
		t.Errorf("PriorityLow.String() = %q", PriorityLow.String())
	}
	if f, err := ParseOutputFormat("MKV"); err != nil || f != "mkv" {
		t.Errorf("ParseOutputFormat(MKV) = %q, %v", f, err)
	}
}
