package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tubeq/tubeq/internal/config"
	"github.com/tubeq/tubeq/internal/core"
	"github.com/tubeq/tubeq/internal/engine/events"
	"github.com/tubeq/tubeq/internal/utils"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage the tubeq background server (daemon)",
	Long:  `Start, stop, or check the status of the tubeq background server.`,
}

var serverStartCmd = &cobra.Command{
	Use:   "start [url]...",
	Short: "Start the tubeq server in headless mode",
	Run: func(cmd *cobra.Command, args []string) {
		settings := initializeGlobalState()

		isMaster, err := AcquireLock()
		if err != nil {
			exitWithError(fmt.Errorf("acquiring lock: %w", err))
		}
		if !isMaster {
			fmt.Fprintln(os.Stderr, "Error: tubeq server is already running.")
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

		savePID()
		defer removePID()

		startServerLogic(settings, args, portFlag, batchFile, outputDir, exitWhenDone)
	},
}

var serverStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running tubeq server",
	Run: func(cmd *cobra.Command, args []string) {
		pid := readPID()
		if pid == 0 {
			fmt.Println("No running tubeq server found (PID file missing).")
			return
		}

		process, err := os.FindProcess(pid)
		if err != nil {
			fmt.Printf("Error finding process: %v\n", err)
			return
		}
		if err := process.Signal(syscall.SIGTERM); err != nil {
			fmt.Printf("Error stopping server: %v\n", err)
			return
		}
		fmt.Printf("Sent stop signal to process %d\n", pid)
	},
}

var serverStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the status of the tubeq server",
	Run: func(cmd *cobra.Command, args []string) {
		pid := readPID()
		if pid == 0 {
			fmt.Println("tubeq server is NOT running.")
			return
		}

		process, err := os.FindProcess(pid)
		if err != nil {
			fmt.Printf("tubeq server is NOT running (Process %d not found).\n", pid)
			return
		}
		// Signal 0 only checks existence
		if err := process.Signal(syscall.Signal(0)); err != nil {
			fmt.Printf("tubeq server is NOT running (Process %d dead).\n", pid)
			return
		}

		fmt.Printf("tubeq server is running (PID: %d, Port: %d).\n", pid, readActivePort())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.AddCommand(serverStartCmd)
	serverCmd.AddCommand(serverStopCmd)
	serverCmd.AddCommand(serverStatusCmd)

	serverStartCmd.Flags().StringP("batch", "b", "", "File containing URLs to download")
	serverStartCmd.Flags().IntP("port", "p", 0, "Port to listen on")
	serverStartCmd.Flags().StringP("output", "o", "", "Default output directory")
	serverStartCmd.Flags().Bool("exit-when-done", false, "Exit when all downloads complete")
}

func pidFilePath() string {
	return filepath.Join(config.GetRuntimeDir(), "pid")
}

func savePID() {
	if err := os.WriteFile(pidFilePath(), []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		utils.Debug("Error writing PID file: %v", err)
	}
}

func removePID() {
	if err := os.Remove(pidFilePath()); err != nil && !os.IsNotExist(err) {
		utils.Debug("Error removing PID file: %v", err)
	}
}

func readPID() int {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0
	}
	pid, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	return pid
}

func startServerLogic(settings *config.Settings, args []string, portFlag int, batchFile string, outputDir string, exitWhenDone bool) {
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	consumerDone, err := StartHeadlessConsumer(ctx, d.Service)
	if err != nil {
		exitWithError(err)
	}

	fmt.Printf("tubeq %s running in server mode.\n", Version)
	fmt.Printf("HTTP server listening on port %d\n", port)
	fmt.Println("Press Ctrl+C to exit.")

	urls, err := collectURLs(args, batchFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading batch file: %v\n", err)
	}
	if len(urls) > 0 {
		d.queueURLs(urls)
	}

	finished := make(chan struct{})
	if exitWhenDone {
		go func() {
			time.Sleep(2 * time.Second)
			ticker := time.NewTicker(2 * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				if allDone(d.Service) {
					fmt.Println("All downloads finished. Exiting...")
					close(finished)
					return
				}
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
		fmt.Println("\nShutting down...")
	case <-finished:
	}

	d.stop()
	<-consumerDone
}

// StartHeadlessConsumer prints lifecycle events to stdout until ctx is done
// or the stream closes. The returned channel is closed when it stops.
func StartHeadlessConsumer(ctx context.Context, service core.DownloadService) (<-chan struct{}, error) {
	stream, cleanup, err := service.StreamEvents(ctx)
	if err != nil {
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cleanup()
		for msg := range stream {
			if line := headlessLine(msg); line != "" {
				fmt.Println(line)
			}
		}
	}()
	return done, nil
}

// headlessLine renders the events worth printing in server mode.
func headlessLine(msg any) string {
	switch m := msg.(type) {
	case events.DownloadQueuedMsg:
		return fmt.Sprintf("Queued: %s [%s]", m.URL, utils.ShortID(m.DownloadID))
	case events.DownloadStartedMsg:
		return fmt.Sprintf("Started: %s [%s]", m.URL, utils.ShortID(m.DownloadID))
	case events.LogMsg:
		return m.Time.Format("15:04:05") + " " + m.Message
	case events.DownloadCompleteMsg:
		return fmt.Sprintf("Completed: %s [%s] (in %s)", m.OutputPath, utils.ShortID(m.DownloadID), m.Elapsed.Round(time.Second))
	case events.DownloadErrorMsg:
		return fmt.Sprintf("Error: %s [%s]: %v", m.Title, utils.ShortID(m.DownloadID), m.Err)
	case events.DownloadRemovedMsg:
		return fmt.Sprintf("Removed: [%s]", utils.ShortID(m.DownloadID))
	}
	return ""
}
