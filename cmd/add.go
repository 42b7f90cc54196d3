package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tubeq/tubeq/internal/engine/types"
	"github.com/tubeq/tubeq/internal/utils"
)

var addCmd = &cobra.Command{
	Use:     "add <url>...",
	Aliases: []string{"get"},
	Short:   "Add downloads to the running tubeq daemon",
	Args:    cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		batchFile, _ := cmd.Flags().GetString("batch")
		urls, err := collectURLs(args, batchFile)
		if err != nil {
			exitWithError(fmt.Errorf("reading batch file: %w", err))
		}
		if len(urls) == 0 {
			exitWithError(fmt.Errorf("no URLs given"))
		}

		base, err := descriptorFromFlags(cmd, localDefaults())
		if err != nil {
			exitWithError(err)
		}

		svc, err := clientService()
		if err != nil {
			exitWithError(err)
		}

		failed := 0
		for _, url := range urls {
			desc := base
			desc.URL = url
			id, err := svc.Add(desc)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error adding %s: %v\n", url, err)
				failed++
				continue
			}
			fmt.Printf("Queued: %s [%s]\n", url, utils.ShortID(id))
		}
		if failed > 0 {
			os.Exit(1)
		}
	},
}

// addDescriptorFlags registers the task options shared by add and schedule.
func addDescriptorFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "Destination directory")
	cmd.Flags().StringP("resolution", "r", "", "Video resolution, e.g. 720p or 1080p")
	cmd.Flags().StringP("format", "f", "", "Container format: mp4, mkv, webm, flv or avi")
	cmd.Flags().BoolP("audio", "a", false, "Download audio only (mp3)")
	cmd.Flags().Bool("playlist", false, "Download the whole playlist")
	cmd.Flags().Bool("subs", false, "Write all available subtitles")
	cmd.Flags().String("rate", "", "Rate limit, e.g. 500K or 2M")
	cmd.Flags().String("priority", "", "Priority: high, medium or low")
}

// descriptorFromFlags overlays the flags the user set on base.
func descriptorFromFlags(cmd *cobra.Command, base types.TaskDescriptor) (types.TaskDescriptor, error) {
	desc := base
	flags := cmd.Flags()

	if flags.Changed("output") {
		desc.Destination, _ = flags.GetString("output")
	}
	if flags.Changed("resolution") {
		s, _ := flags.GetString("resolution")
		r, err := types.ParseResolution(s)
		if err != nil {
			return desc, err
		}
		desc.Resolution = r
	}
	if flags.Changed("format") {
		s, _ := flags.GetString("format")
		f, err := types.ParseOutputFormat(s)
		if err != nil {
			return desc, err
		}
		desc.OutputFormat = f
	}
	if flags.Changed("audio") {
		desc.AudioOnly, _ = flags.GetBool("audio")
	}
	if flags.Changed("playlist") {
		desc.Playlist, _ = flags.GetBool("playlist")
	}
	if flags.Changed("subs") {
		desc.Subtitles, _ = flags.GetBool("subs")
	}
	if flags.Changed("rate") {
		s, _ := flags.GetString("rate")
		rate, err := utils.ParseRate(s)
		if err != nil {
			return desc, err
		}
		desc.MaxRateBytesPerSec = rate
	}
	if flags.Changed("priority") {
		s, _ := flags.GetString("priority")
		p, err := types.ParsePriority(s)
		if err != nil {
			return desc, err
		}
		desc.Priority = p
	}
	return desc, nil
}

func init() {
	addDescriptorFlags(addCmd)
	addCmd.Flags().StringP("batch", "b", "", "File containing URLs to download (one per line)")
	rootCmd.AddCommand(addCmd)
}
