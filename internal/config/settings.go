package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/tubeq/tubeq/internal/utils"
)

// Settings holds all user-configurable application settings organized by category.
type Settings struct {
	General   GeneralSettings  `json:"general" mapstructure:"general"`
	Downloads DownloadSettings `json:"downloads" mapstructure:"downloads"`
	Queue     QueueSettings    `json:"queue" mapstructure:"queue"`
	Network   NetworkSettings  `json:"network" mapstructure:"network"`
}

// GeneralSettings contains application behavior settings.
type GeneralSettings struct {
	DefaultDownloadDir string `json:"default_download_dir" mapstructure:"default_download_dir"`
	HistoryEnabled     bool   `json:"history_enabled" mapstructure:"history_enabled"`
	ClipboardMonitor   bool   `json:"clipboard_monitor" mapstructure:"clipboard_monitor"`
	LogRetentionCount  int    `json:"log_retention_count" mapstructure:"log_retention_count"`
}

// DownloadSettings are the defaults applied to new tasks.
type DownloadSettings struct {
	DefaultResolution string `json:"default_resolution" mapstructure:"default_resolution"`
	DefaultFormat     string `json:"default_format" mapstructure:"default_format"`
	AudioOnly         bool   `json:"audio_only" mapstructure:"audio_only"`
	Subtitles         bool   `json:"subtitles" mapstructure:"subtitles"`
	RateLimit         string `json:"rate_limit" mapstructure:"rate_limit"` // e.g. "500K", "2M"; empty = unlimited
}

// QueueSettings controls the worker pool and scheduler.
type QueueSettings struct {
	MaxConcurrentDownloads   int `json:"max_concurrent_downloads" mapstructure:"max_concurrent_downloads"`
	SchedulerIntervalSeconds int `json:"scheduler_interval_seconds" mapstructure:"scheduler_interval_seconds"`
}

// NetworkSettings are passed to the yt-dlp adapter.
type NetworkSettings struct {
	ProxyURL   string `json:"proxy_url" mapstructure:"proxy_url"`
	CookieFile string `json:"cookie_file" mapstructure:"cookie_file"`
}

// SettingMeta provides metadata for a single setting (for CLI rendering).
type SettingMeta struct {
	Key         string // JSON key name
	Label       string // Human-readable label
	Description string
	Type        string // "string", "int", "bool"
}

// GetSettingsMetadata returns metadata for all settings organized by category.
func GetSettingsMetadata() map[string][]SettingMeta {
	return map[string][]SettingMeta{
		"General": {
			{Key: "default_download_dir", Label: "Default Download Dir", Description: "Directory for new downloads.", Type: "string"},
			{Key: "history_enabled", Label: "History", Description: "Record finished, cancelled and failed downloads.", Type: "bool"},
			{Key: "clipboard_monitor", Label: "Clipboard Monitor", Description: "Queue video URLs copied to the clipboard.", Type: "bool"},
			{Key: "log_retention_count", Label: "Log Retention Count", Description: "Number of recent debug log files to keep.", Type: "int"},
		},
		"Downloads": {
			{Key: "default_resolution", Label: "Resolution", Description: "Default resolution (144p-4320p).", Type: "string"},
			{Key: "default_format", Label: "Format", Description: "Container for video downloads (mp4, mkv, webm, flv, avi).", Type: "string"},
			{Key: "audio_only", Label: "Audio Only", Description: "Extract audio to mp3 by default.", Type: "bool"},
			{Key: "subtitles", Label: "Subtitles", Description: "Download every subtitle track by default.", Type: "bool"},
			{Key: "rate_limit", Label: "Rate Limit", Description: "Per-download rate limit such as 500K or 2M. Empty for unlimited.", Type: "string"},
		},
		"Queue": {
			{Key: "max_concurrent_downloads", Label: "Max Concurrent Downloads", Description: "Downloads running at once. Applied live.", Type: "int"},
			{Key: "scheduler_interval_seconds", Label: "Scheduler Interval", Description: "Seconds between scheduler polls.", Type: "int"},
		},
		"Network": {
			{Key: "proxy_url", Label: "Proxy URL", Description: "Proxy passed to yt-dlp (e.g. socks5://127.0.0.1:1080).", Type: "string"},
			{Key: "cookie_file", Label: "Cookie File", Description: "Netscape cookie file. Created with a consent cookie when missing.", Type: "string"},
		},
	}
}

// CategoryOrder returns the order of categories for display.
func CategoryOrder() []string {
	return []string{"General", "Downloads", "Queue", "Network"}
}

// DefaultSettings returns a new Settings instance with sensible defaults.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	defaultDir := filepath.Join(homeDir, "Downloads")

	return &Settings{
		General: GeneralSettings{
			DefaultDownloadDir: defaultDir,
			HistoryEnabled:     true,
			ClipboardMonitor:   false,
			LogRetentionCount:  5,
		},
		Downloads: DownloadSettings{
			DefaultResolution: "720p",
			DefaultFormat:     "mp4",
		},
		Queue: QueueSettings{
			MaxConcurrentDownloads:   3,
			SchedulerIntervalSeconds: 10,
		},
		Network: NetworkSettings{
			CookieFile: filepath.Join(GetAppDir(), "cookies.txt"),
		},
	}
}

// GetSettingsPath returns the path to the settings JSON file.
func GetSettingsPath() string {
	return filepath.Join(GetAppDir(), "settings.json")
}

// LoadSettings loads settings from disk. Returns defaults if file doesn't exist.
func LoadSettings() (*Settings, error) {
	return loadSettingsFile(GetSettingsPath())
}

func loadSettingsFile(path string) (*Settings, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return decodeSettings(v)
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	return v
}

// decodeSettings unmarshals over the defaults so missing keys keep them.
func decodeSettings(v *viper.Viper) (*Settings, error) {
	settings := DefaultSettings()
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	return settings, nil
}

// SaveSettings saves settings to disk atomically.
func SaveSettings(s *Settings) error {
	path := GetSettingsPath()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	// Atomic write: write to temp file, then rename
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

// GetValue returns the current value of key as a string.
func (s *Settings) GetValue(key string) (string, error) {
	category, meta, err := findSetting(key)
	if err != nil {
		return "", err
	}
	sections, err := s.sections()
	if err != nil {
		return "", err
	}
	val, ok := sections[category][meta.Key]
	if !ok {
		return "", nil
	}
	switch val := val.(type) {
	case string:
		return val, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	default:
		return fmt.Sprint(val), nil
	}
}

// SetValue parses value according to the setting's type and stores it.
func (s *Settings) SetValue(key, value string) error {
	category, meta, err := findSetting(key)
	if err != nil {
		return err
	}

	var parsed any
	switch meta.Type {
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s expects true or false", key)
		}
		parsed = b
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s expects an integer", key)
		}
		parsed = n
	default:
		parsed = value
	}

	sections, err := s.sections()
	if err != nil {
		return err
	}
	sections[category][meta.Key] = parsed

	data, err := json.Marshal(sections)
	if err != nil {
		return err
	}
	updated := DefaultSettings()
	if err := json.Unmarshal(data, updated); err != nil {
		return err
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	*s = *updated
	return nil
}

func (s *Settings) sections() (map[string]map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var sections map[string]map[string]any
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

func findSetting(key string) (string, SettingMeta, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if cat, name, ok := strings.Cut(key, "."); ok {
		key = name
		for _, m := range GetSettingsMetadata()[categoryTitle(cat)] {
			if m.Key == key {
				return cat, m, nil
			}
		}
		return "", SettingMeta{}, fmt.Errorf("unknown setting %q", key)
	}
	for cat, metas := range GetSettingsMetadata() {
		for _, m := range metas {
			if m.Key == key {
				return strings.ToLower(cat), m, nil
			}
		}
	}
	return "", SettingMeta{}, fmt.Errorf("unknown setting %q", key)
}

func categoryTitle(cat string) string {
	for _, c := range CategoryOrder() {
		if strings.EqualFold(c, cat) {
			return c
		}
	}
	return cat
}

// Validate rejects values the download engine cannot use.
func (s *Settings) Validate() error {
	if s.Queue.MaxConcurrentDownloads < 1 {
		return fmt.Errorf("max_concurrent_downloads must be at least 1")
	}
	if s.Queue.SchedulerIntervalSeconds < 1 {
		return fmt.Errorf("scheduler_interval_seconds must be at least 1")
	}
	if _, err := utils.ParseRate(s.Downloads.RateLimit); err != nil {
		return err
	}
	return nil
}

// RuntimeConfig is the subset of settings the download engine consumes
type RuntimeConfig struct {
	MaxConcurrentDownloads   int
	SchedulerIntervalSeconds int
	HistoryEnabled           bool
	CookieFile               string
	ProxyURL                 string
	RateLimitBytes           int64
}

// ToRuntimeConfig creates a RuntimeConfig from user Settings. An unparsable
// rate limit is treated as unlimited.
func (s *Settings) ToRuntimeConfig() *RuntimeConfig {
	rate, err := utils.ParseRate(s.Downloads.RateLimit)
	if err != nil {
		utils.Debug("Ignoring invalid rate limit %q: %v", s.Downloads.RateLimit, err)
		rate = 0
	}
	return &RuntimeConfig{
		MaxConcurrentDownloads:   s.Queue.MaxConcurrentDownloads,
		SchedulerIntervalSeconds: s.Queue.SchedulerIntervalSeconds,
		HistoryEnabled:           s.General.HistoryEnabled,
		CookieFile:               s.Network.CookieFile,
		ProxyURL:                 s.Network.ProxyURL,
		RateLimitBytes:           rate,
	}
}
