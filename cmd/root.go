package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/tubeq/tubeq/internal/config"
	"github.com/tubeq/tubeq/internal/core"
	"github.com/tubeq/tubeq/internal/engine/types"
	"github.com/tubeq/tubeq/internal/tui"
	"github.com/tubeq/tubeq/internal/utils"
)

// Version information - set via ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "tubeq [url]...",
	Short:   "A yt-dlp download queue with a terminal dashboard",
	Long:    `tubeq queues YouTube and other yt-dlp supported downloads, runs a bounded number of them at once and shows their progress in a terminal dashboard.`,
	Version: Version,
	Args:    cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		settings := initializeGlobalState()

		isMaster, err := AcquireLock()
		if err != nil {
			exitWithError(fmt.Errorf("acquiring lock: %w", err))
		}
		if !isMaster {
			fmt.Fprintln(os.Stderr, "Error: tubeq is already running.")
			fmt.Fprintln(os.Stderr, "Use 'tubeq add <url>' to add a download to the active instance, or 'tubeq connect' to open its dashboard.")
			os.Exit(1)
		}
		defer func() {
			if err := ReleaseLock(); err != nil {
				utils.Debug("Error releasing lock: %v", err)
			}
		}()

		portFlag, _ := cmd.Flags().GetInt("port")
		batchFile, _ := cmd.Flags().GetString("batch")
		outputDir, _ := cmd.Flags().GetString("output")
		exitWhenDone, _ := cmd.Flags().GetBool("exit-when-done")

		port, ln, err := listen(portFlag)
		if err != nil {
			exitWithError(err)
		}

		d, err := startDaemon(settings, ln, port, outputDir)
		if err != nil {
			_ = ln.Close()
			exitWithError(err)
		}
		saveActivePort(port)
		defer removeActivePort()
		defer d.stop()

		urls, err := collectURLs(args, batchFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading batch file: %v\n", err)
		}

		startTUI(d.Service, d.defaults, exitWhenDone, func() {
			if len(urls) > 0 {
				d.queueURLs(urls)
			}
		})
	},
}

// startTUI runs the dashboard over service until the user quits. afterStart
// runs once the model is subscribed so its events are not missed.
func startTUI(service core.DownloadService, defaults func() types.TaskDescriptor, exitWhenDone bool, afterStart func()) {
	if termenv.EnvNoColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m, err := tui.InitialRootModel(ctx, service, defaults, Version)
	if err != nil {
		exitWithError(fmt.Errorf("starting event stream: %w", err))
	}

	p := tea.NewProgram(m, tea.WithAltScreen())

	if afterStart != nil {
		go afterStart()
	}

	if exitWhenDone {
		go func() {
			// Give initial downloads time to be queued
			time.Sleep(3 * time.Second)
			ticker := time.NewTicker(2 * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				if allDone(service) {
					p.Quit()
					return
				}
			}
		}()
	}

	if _, err := p.Run(); err != nil {
		exitWithError(fmt.Errorf("running program: %w", err))
	}
}

// allDone reports whether no download is pending or active.
func allDone(service core.DownloadService) bool {
	list, err := service.List()
	if err != nil {
		return false
	}
	for _, d := range list {
		if !d.Phase.IsTerminal() {
			return false
		}
	}
	return true
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringP("batch", "b", "", "File containing URLs to download (one per line)")
	rootCmd.Flags().IntP("port", "p", 0, fmt.Sprintf("Port to listen on (default: %d or first available)", DefaultPort))
	rootCmd.Flags().StringP("output", "o", "", "Default output directory")
	rootCmd.Flags().Bool("exit-when-done", false, "Exit when all downloads complete")

	rootCmd.PersistentFlags().StringVar(&globalHost, "host", "", "Daemon address for client commands (or set TUBEQ_HOST)")
	rootCmd.PersistentFlags().StringVar(&globalToken, "token", "", "Bearer token for the daemon (or set TUBEQ_TOKEN)")

	rootCmd.SetVersionTemplate("tubeq version {{.Version}}\n")
}

// localDefaults builds the default descriptor from the local settings file,
// for commands that run without an embedded daemon.
func localDefaults() types.TaskDescriptor {
	settings, err := config.LoadSettings()
	if err != nil {
		settings = config.DefaultSettings()
	}
	return types.DefaultTask(settings)
}
