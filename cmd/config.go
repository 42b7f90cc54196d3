package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tubeq/tubeq/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
	Long: `Show or change settings. Changes are written to the settings file and
picked up by a running daemon without a restart.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		settings := loadSettingsOrExit()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		meta := config.GetSettingsMetadata()
		for _, cat := range config.CategoryOrder() {
			fmt.Fprintf(w, "[%s]\t\t\n", cat)
			for _, m := range meta[cat] {
				val, err := settings.GetValue(m.Key)
				if err != nil {
					val = "?"
				}
				fmt.Fprintf(w, "  %s\t%s\t%s\n", m.Key, val, m.Description)
			}
		}
		_ = w.Flush()
		fmt.Printf("\nSettings file: %s\n", config.GetSettingsPath())
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		val, err := loadSettingsOrExit().GetValue(args[0])
		if err != nil {
			exitWithError(err)
		}
		fmt.Println(val)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		settings := loadSettingsOrExit()
		if err := settings.SetValue(args[0], args[1]); err != nil {
			exitWithError(err)
		}
		if err := config.SaveSettings(settings); err != nil {
			exitWithError(fmt.Errorf("saving settings: %w", err))
		}
		fmt.Printf("%s = %s\n", args[0], args[1])
	},
}

func loadSettingsOrExit() *config.Settings {
	settings, err := config.LoadSettings()
	if err != nil {
		exitWithError(err)
	}
	return settings
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
