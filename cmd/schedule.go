package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tubeq/tubeq/internal/api"
	"github.com/tubeq/tubeq/internal/engine/types"
	"github.com/tubeq/tubeq/internal/utils"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage time-triggered downloads",
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add <url> <time>",
	Short: "Queue a download at a given time",
	Long: `Queue a download at a given time. The time is RFC 3339
(2024-05-01T20:00:00+02:00), local "2006-01-02 15:04" or Unix seconds.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		triggerAt, err := api.ParseTriggerTime(args[1])
		if err != nil {
			exitWithError(err)
		}

		desc, err := descriptorFromFlags(cmd, localDefaults())
		if err != nil {
			exitWithError(err)
		}
		desc.URL = args[0]
		every, _ := cmd.Flags().GetString("every")
		if desc.Recurrence, err = types.ParseRecurrence(every); err != nil {
			exitWithError(err)
		}

		svc, err := clientService()
		if err != nil {
			exitWithError(err)
		}
		entry, err := svc.Schedule(triggerAt, desc)
		if err != nil {
			exitWithError(err)
		}
		fmt.Printf("Scheduled %s for %s [%s]\n", desc.URL, time.Unix(entry.TriggerAt, 0).Format("2006-01-02 15:04"), utils.ShortID(entry.ID))
	},
}

var scheduleLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List scheduled downloads",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := clientService()
		if err != nil {
			exitWithError(err)
		}
		entries, err := svc.Schedules()
		if err != nil {
			exitWithError(err)
		}
		if len(entries) == 0 {
			fmt.Println("No scheduled downloads.")
			return
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tWHEN\tREPEAT\tSTATUS\tURL")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				utils.ShortID(e.ID), time.Unix(e.TriggerAt, 0).Format("2006-01-02 15:04"), e.Recurrence, e.Status, e.Task.URL)
		}
		_ = w.Flush()
	},
}

var scheduleRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a scheduled download",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := clientService()
		if err != nil {
			exitWithError(err)
		}
		entries, err := svc.Schedules()
		if err != nil {
			exitWithError(err)
		}
		ids := make([]string, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.ID)
		}
		id, err := resolveIDFromCandidates(args[0], ids)
		if err != nil {
			exitWithError(err)
		}
		if err := svc.Unschedule(id); err != nil {
			exitWithError(err)
		}
		fmt.Printf("Removed schedule %s.\n", utils.ShortID(id))
	},
}

func init() {
	addDescriptorFlags(scheduleAddCmd)
	scheduleAddCmd.Flags().String("every", "", "Repeat: daily, weekly or monthly")

	scheduleCmd.AddCommand(scheduleAddCmd, scheduleLsCmd, scheduleRmCmd)
	rootCmd.AddCommand(scheduleCmd)
}
