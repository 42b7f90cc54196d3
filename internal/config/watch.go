package config

import (
	"github.com/fsnotify/fsnotify"

	"github.com/tubeq/tubeq/internal/utils"
)

// WatchSettings reloads the settings file whenever it changes on disk and
// hands the result to onChange. Invalid edits are logged and skipped. The
// file must exist before watching starts.
func WatchSettings(onChange func(*Settings)) error {
	path := GetSettingsPath()
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		utils.Debug("Settings file changed: %s", e.Name)
		settings, err := decodeSettings(v)
		if err != nil {
			utils.Debug("Error reloading settings: %v", err)
			return
		}
		if err := settings.Validate(); err != nil {
			utils.Debug("Ignoring invalid settings: %v", err)
			return
		}
		onChange(settings)
	})
	v.WatchConfig()
	return nil
}
