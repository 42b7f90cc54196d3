package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tubeq/tubeq/internal/core"
	"github.com/tubeq/tubeq/internal/engine/types"
	"github.com/tubeq/tubeq/internal/utils"
)

var lsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List downloads known to the daemon",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := clientService()
		if err != nil {
			exitWithError(err)
		}
		list, err := svc.List()
		if err != nil {
			exitWithError(err)
		}
		if len(list) == 0 {
			fmt.Println("No downloads.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPHASE\tPROGRESS\tSPEED\tETA\tTITLE")
		for _, d := range list {
			title := d.Title
			if title == "" || d.Phase == types.PhasePending {
				title = d.Task.URL
			}
			fmt.Fprintf(w, "%s\t%s\t%.1f%%\t%s\t%s\t%s\n",
				utils.ShortID(d.ID), d.Phase, d.Progress, utils.FormatSpeed(d.Speed), utils.FormatETA(d.ETA), utils.Truncate(title, 60))
		}
		_ = w.Flush()
	},
}

// controlCommand builds pause/resume/cancel. Without an id the action applies
// to every active download.
func controlCommand(use, short, done string, one func(core.DownloadService, string) error, all func(core.DownloadService) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [id]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			svc, err := clientService()
			if err != nil {
				exitWithError(err)
			}
			if len(args) == 0 {
				if err := all(svc); err != nil {
					exitWithError(err)
				}
				fmt.Printf("All active downloads %s.\n", done)
				return
			}
			id, err := resolveDownloadID(svc, args[0])
			if err != nil {
				exitWithError(err)
			}
			if err := one(svc, id); err != nil {
				exitWithError(fmt.Errorf("%s: %w", utils.ShortID(id), err))
			}
			fmt.Printf("Download %s %s.\n", utils.ShortID(id), done)
		},
	}
}

var (
	pauseCmd = controlCommand("pause", "Pause a download, or all active downloads", "paused",
		core.DownloadService.Pause, core.DownloadService.PauseAll)
	resumeCmd = controlCommand("resume", "Resume a download, or all paused downloads", "resumed",
		core.DownloadService.Resume, core.DownloadService.ResumeAll)
	cancelCmd = controlCommand("cancel", "Cancel a download, or all active downloads", "cancelled",
		core.DownloadService.Cancel, core.DownloadService.CancelAll)
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start queued downloads up to the concurrency limit",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := clientService()
		if err != nil {
			exitWithError(err)
		}
		n, err := svc.StartQueue()
		if err != nil {
			exitWithError(err)
		}
		fmt.Printf("Started %d queued download(s).\n", n)
	},
}

var concurrencyCmd = &cobra.Command{
	Use:   "concurrency <n>",
	Short: "Set the maximum number of simultaneous downloads",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			exitWithError(fmt.Errorf("invalid number %q", args[0]))
		}
		svc, err := clientService()
		if err != nil {
			exitWithError(err)
		}
		if err := svc.SetMaxConcurrent(n); err != nil {
			exitWithError(err)
		}
		fmt.Printf("Max concurrent downloads set to %d.\n", n)
	},
}

func init() {
	cancelCmd.Aliases = []string{"rm"}
	rootCmd.AddCommand(lsCmd, pauseCmd, resumeCmd, cancelCmd, startCmd, concurrencyCmd)
}
