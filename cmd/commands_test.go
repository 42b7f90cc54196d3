package cmd

import (
	"testing"

	"github.com/spf13/cobra"

	"github.com/tubeq/tubeq/internal/engine/types"
)

func TestRootCommand_Subcommands(t *testing.T) {
	want := []string{"add", "ls", "pause", "resume", "cancel", "start", "concurrency",
		"schedule", "history", "config", "connect", "server", "token"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd == rootCmd {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestRootCommand_Aliases(t *testing.T) {
	for alias, name := range map[string]string{"get": "add", "list": "ls", "rm": "cancel"} {
		cmd, _, err := rootCmd.Find([]string{alias})
		if err != nil {
			t.Fatalf("alias %q: %v", alias, err)
		}
		if cmd.Name() != name {
			t.Errorf("alias %q resolved to %q, want %q", alias, cmd.Name(), name)
		}
	}
}

func TestRootCommand_PersistentFlags(t *testing.T) {
	for _, name := range []string{"host", "token"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("persistent flag --%s missing", name)
		}
	}
	for _, name := range []string{"batch", "port", "output", "exit-when-done"} {
		if rootCmd.Flags().Lookup(name) == nil {
			t.Errorf("flag --%s missing", name)
		}
	}
}

func newDescriptorCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addDescriptorFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags(%v): %v", args, err)
	}
	return cmd
}

func TestDescriptorFromFlags_KeepsBaseWhenUnset(t *testing.T) {
	base := types.TaskDescriptor{
		Destination:  "/videos",
		Resolution:   types.DefaultResolution,
		OutputFormat: "mkv",
		Subtitles:    true,
		Priority:     types.PriorityLow,
	}
	got, err := descriptorFromFlags(newDescriptorCommand(t), base)
	if err != nil {
		t.Fatal(err)
	}
	if got != base {
		t.Errorf("descriptor = %+v, want %+v", got, base)
	}
}

func TestDescriptorFromFlags_Overrides(t *testing.T) {
	cmd := newDescriptorCommand(t,
		"-o", "/music", "-r", "1080", "-f", "webm", "--audio",
		"--playlist", "--subs=false", "--rate", "2M", "--priority", "high")

	got, err := descriptorFromFlags(cmd, types.TaskDescriptor{Subtitles: true})
	if err != nil {
		t.Fatal(err)
	}
	if got.Destination != "/music" {
		t.Errorf("Destination = %q", got.Destination)
	}
	if got.Resolution != "1080p" {
		t.Errorf("Resolution = %q", got.Resolution)
	}
	if got.OutputFormat != "webm" {
		t.Errorf("OutputFormat = %q", got.OutputFormat)
	}
	if !got.AudioOnly || !got.Playlist || got.Subtitles {
		t.Errorf("booleans = audio %v playlist %v subs %v", got.AudioOnly, got.Playlist, got.Subtitles)
	}
	if got.MaxRateBytesPerSec != 2*1024*1024 {
		t.Errorf("MaxRateBytesPerSec = %d", got.MaxRateBytesPerSec)
	}
	if got.Priority != types.PriorityHigh {
		t.Errorf("Priority = %d", got.Priority)
	}
}

func TestDescriptorFromFlags_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"resolution", []string{"-r", "123p"}},
		{"format", []string{"-f", "gif"}},
		{"rate", []string{"--rate", "fast"}},
		{"priority", []string{"--priority", "urgent"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := descriptorFromFlags(newDescriptorCommand(t, tt.args...), types.TaskDescriptor{}); err == nil {
				t.Errorf("expected error for %v", tt.args)
			}
		})
	}
}
