package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tubeq/tubeq/internal/engine/types"
	"github.com/tubeq/tubeq/internal/utils"
)

var historyCmd = &cobra.Command{
	Use:   "history [query]",
	Short: "Show or search the download history",
	Args:  cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := clientService()
		if err != nil {
			exitWithError(err)
		}
		entries, err := svc.SearchHistory(strings.Join(args, " "))
		if err != nil {
			exitWithError(err)
		}
		printHistory(entries)
	},
}

var historyRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Queue every failed download again",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := clientService()
		if err != nil {
			exitWithError(err)
		}
		ids, err := svc.RetryFailed()
		if err != nil {
			exitWithError(err)
		}
		fmt.Printf("%d failed downloads retried.\n", len(ids))
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all history entries",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := clientService()
		if err != nil {
			exitWithError(err)
		}
		if err := svc.ClearHistory(); err != nil {
			exitWithError(err)
		}
		fmt.Println("All history deleted.")
	},
}

func printHistory(entries []types.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Println("No history.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWHEN\tSTATUS\tCHANNEL\tTITLE")
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = e.URL
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			utils.ShortID(e.ID), utils.FormatAge(e.CreatedAt), e.Status, utils.Truncate(e.Channel, 24), utils.Truncate(title, 60))
	}
	_ = w.Flush()
}

func init() {
	historyCmd.AddCommand(historyRetryCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
