package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateConfig(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("APPDATA", tmp)
	return tmp
}

func TestDefaultSettings(t *testing.T) {
	settings := DefaultSettings()

	if settings == nil {
		t.Fatal("DefaultSettings returned nil")
	}

	t.Run("GeneralSettings", func(t *testing.T) {
		if settings.General.DefaultDownloadDir == "" {
			t.Error("Default download directory should not be empty")
		}
		if !strings.Contains(strings.ToLower(settings.General.DefaultDownloadDir), "downloads") {
			t.Errorf("Default download dir should contain 'Downloads', got: %s", settings.General.DefaultDownloadDir)
		}
		if !settings.General.HistoryEnabled {
			t.Error("HistoryEnabled should be true by default")
		}
		if settings.General.ClipboardMonitor {
			t.Error("ClipboardMonitor should be false by default")
		}
	})

	t.Run("QueueSettings", func(t *testing.T) {
		if settings.Queue.MaxConcurrentDownloads != 3 {
			t.Errorf("MaxConcurrentDownloads should default to 3, got: %d", settings.Queue.MaxConcurrentDownloads)
		}
		if settings.Queue.SchedulerIntervalSeconds != 10 {
			t.Errorf("SchedulerIntervalSeconds should default to 10, got: %d", settings.Queue.SchedulerIntervalSeconds)
		}
	})

	t.Run("DownloadSettings", func(t *testing.T) {
		if settings.Downloads.DefaultResolution != "720p" {
			t.Errorf("DefaultResolution = %q", settings.Downloads.DefaultResolution)
		}
		if settings.Downloads.DefaultFormat != "mp4" {
			t.Errorf("DefaultFormat = %q", settings.Downloads.DefaultFormat)
		}
		if settings.Downloads.RateLimit != "" {
			t.Errorf("RateLimit should be unlimited by default, got %q", settings.Downloads.RateLimit)
		}
	})

	if err := settings.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestPaths(t *testing.T) {
	tmp := isolateConfig(t)

	appDir := GetAppDir()
	if !strings.HasPrefix(appDir, tmp) {
		t.Errorf("GetAppDir() = %s, want under %s", appDir, tmp)
	}
	for _, p := range []string{GetSettingsPath(), GetStateDir(), GetLogsDir(), GetRuntimeDir(), GetDatabasePath()} {
		if !strings.HasPrefix(p, appDir) {
			t.Errorf("%s should be under %s", p, appDir)
		}
	}
	if !strings.HasSuffix(GetSettingsPath(), "settings.json") {
		t.Errorf("Settings path should end with 'settings.json', got: %s", GetSettingsPath())
	}

	require.NoError(t, EnsureDirs())
	for _, dir := range []string{GetStateDir(), GetLogsDir(), GetRuntimeDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestLoadSettings_MissingFile(t *testing.T) {
	isolateConfig(t)

	settings, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), settings)
}

func TestLoadSettings_CorruptedJSON(t *testing.T) {
	isolateConfig(t)
	require.NoError(t, os.MkdirAll(GetAppDir(), 0o755))
	require.NoError(t, os.WriteFile(GetSettingsPath(), []byte("{invalid json"), 0o644))

	_, err := LoadSettings()
	if err == nil {
		t.Error("Expected error when loading invalid JSON")
	}
}

func TestLoadSettings_PartialJSON(t *testing.T) {
	isolateConfig(t)
	partial := `{
		"general": {
			"default_download_dir": "/custom/path"
		},
		"queue": {
			"max_concurrent_downloads": 6
		}
	}`
	require.NoError(t, os.MkdirAll(GetAppDir(), 0o755))
	require.NoError(t, os.WriteFile(GetSettingsPath(), []byte(partial), 0o644))

	settings, err := LoadSettings()
	require.NoError(t, err)

	assert.Equal(t, "/custom/path", settings.General.DefaultDownloadDir)
	assert.Equal(t, 6, settings.Queue.MaxConcurrentDownloads)
	// Missing keys keep their defaults.
	assert.Equal(t, 10, settings.Queue.SchedulerIntervalSeconds)
	assert.True(t, settings.General.HistoryEnabled)
	assert.Equal(t, "mp4", settings.Downloads.DefaultFormat)
}

func TestSaveAndLoadSettings_RoundTrip(t *testing.T) {
	isolateConfig(t)

	original := DefaultSettings()
	original.General.DefaultDownloadDir = "/test/path"
	original.General.HistoryEnabled = false
	original.Downloads.RateLimit = "2M"
	original.Downloads.AudioOnly = true
	original.Queue.MaxConcurrentDownloads = 5
	original.Network.ProxyURL = "socks5://127.0.0.1:1080"

	require.NoError(t, SaveSettings(original))

	if _, err := os.Stat(GetSettingsPath() + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should be renamed away")
	}

	loaded, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestSettingsJSON_Keys(t *testing.T) {
	data, err := json.Marshal(DefaultSettings())
	require.NoError(t, err)

	var sections map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &sections))

	for category, metas := range GetSettingsMetadata() {
		section, ok := sections[strings.ToLower(category)]
		if !ok {
			t.Errorf("category %s missing from JSON", category)
			continue
		}
		for _, m := range metas {
			if _, ok := section[m.Key]; !ok {
				t.Errorf("setting %s.%s missing from JSON", category, m.Key)
			}
		}
	}
	assert.Len(t, CategoryOrder(), len(GetSettingsMetadata()))
}

func TestSetValue(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		check   func(*Settings) bool
		wantErr bool
	}{
		{"int", "max_concurrent_downloads", "7", func(s *Settings) bool { return s.Queue.MaxConcurrentDownloads == 7 }, false},
		{"qualified", "queue.scheduler_interval_seconds", "30", func(s *Settings) bool { return s.Queue.SchedulerIntervalSeconds == 30 }, false},
		{"bool", "clipboard_monitor", "true", func(s *Settings) bool { return s.General.ClipboardMonitor }, false},
		{"string", "rate_limit", "500K", func(s *Settings) bool { return s.Downloads.RateLimit == "500K" }, false},
		{"bad int", "max_concurrent_downloads", "many", nil, true},
		{"zero concurrency", "max_concurrent_downloads", "0", nil, true},
		{"bad rate", "rate_limit", "fast", nil, true},
		{"unknown", "does_not_exist", "1", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			err := s.SetValue(tt.key, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, DefaultSettings(), s, "failed set must not modify settings")
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.check(s))

			got, err := s.GetValue(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestToRuntimeConfig(t *testing.T) {
	settings := DefaultSettings()
	settings.Downloads.RateLimit = "500K"
	settings.Network.CookieFile = "/tmp/c.txt"

	runtime := settings.ToRuntimeConfig()
	require.NotNil(t, runtime)
	assert.Equal(t, 3, runtime.MaxConcurrentDownloads)
	assert.Equal(t, int64(500*1024), runtime.RateLimitBytes)
	assert.Equal(t, "/tmp/c.txt", runtime.CookieFile)
	assert.True(t, runtime.HistoryEnabled)

	settings.Downloads.RateLimit = "garbage"
	assert.Zero(t, settings.ToRuntimeConfig().RateLimitBytes)
}

func TestWatchSettings(t *testing.T) {
	isolateConfig(t)
	require.NoError(t, SaveSettings(DefaultSettings()))

	var got atomic.Int64
	require.NoError(t, WatchSettings(func(s *Settings) {
		got.Store(int64(s.Queue.MaxConcurrentDownloads))
	}))

	updated := DefaultSettings()
	updated.Queue.MaxConcurrentDownloads = 8
	data, err := json.MarshalIndent(updated, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Clean(GetSettingsPath()), data, 0o644))

	assert.Eventually(t, func() bool { return got.Load() == 8 }, 5*time.Second, 20*time.Millisecond)
}
