package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tubeq/tubeq/internal/config"
	"github.com/tubeq/tubeq/internal/core"
	"github.com/tubeq/tubeq/internal/utils"
)

// Persistent flags shared by the client commands
var (
	globalHost  string
	globalToken string
)

// exitWithError prints err the way every command reports failures and exits 1.
func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// findAvailablePort tries ports starting from 'start' until one is available
func findAvailablePort(start int) (int, net.Listener) {
	for port := start; port < start+100; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			return port, ln
		}
	}
	return 0, nil
}

func portFilePath() string {
	return filepath.Join(config.GetRuntimeDir(), "port")
}

// saveActivePort records the API port so clients can discover the daemon.
func saveActivePort(port int) {
	if err := os.MkdirAll(config.GetRuntimeDir(), 0o755); err != nil {
		utils.Debug("Error creating runtime dir: %v", err)
	}
	if err := os.WriteFile(portFilePath(), []byte(strconv.Itoa(port)), 0o644); err != nil {
		utils.Debug("Error writing port file: %v", err)
	}
	utils.Debug("HTTP server listening on port %d", port)
}

func removeActivePort() {
	if err := os.Remove(portFilePath()); err != nil && !os.IsNotExist(err) {
		utils.Debug("Error removing port file: %v", err)
	}
}

// readActivePort reads the port from the port file
func readActivePort() int {
	data, err := os.ReadFile(portFilePath())
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return port
}

// readURLsFromFile reads URLs from a file, one per line. Blank lines and
// lines starting with '#' are skipped.
func readURLsFromFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	scanner := bufio.NewScanner(file)
	const maxCapacity = 1024 * 1024 // long playlist URLs
	scanner.Buffer(make([]byte, 0, 64*1024), maxCapacity)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return urls, nil
}

// collectURLs merges positional arguments with the lines of a batch file.
func collectURLs(args []string, batchFile string) ([]string, error) {
	urls := append([]string(nil), args...)
	if batchFile != "" {
		fileURLs, err := readURLsFromFile(batchFile)
		if err != nil {
			return urls, err
		}
		urls = append(urls, fileURLs...)
	}
	return urls, nil
}

func resolveLocalToken() string {
	if token := strings.TrimSpace(globalToken); token != "" {
		return token
	}
	if token := strings.TrimSpace(os.Getenv("TUBEQ_TOKEN")); token != "" {
		return token
	}
	return ensureAuthToken()
}

func resolveHostTarget() string {
	if host := strings.TrimSpace(globalHost); host != "" {
		return host
	}
	return strings.TrimSpace(os.Getenv("TUBEQ_HOST"))
}

// resolveTokenForTarget only falls back to the local token file for
// loopback targets.
func resolveTokenForTarget(target string) (string, error) {
	if token := strings.TrimSpace(globalToken); token != "" {
		return token, nil
	}
	if token := strings.TrimSpace(os.Getenv("TUBEQ_TOKEN")); token != "" {
		return token, nil
	}
	if isLoopbackHost(hostnameFromTarget(target)) {
		return ensureAuthToken(), nil
	}
	return "", errors.New("no token provided for remote host. use --token or set TUBEQ_TOKEN")
}

// resolveAPIConnection returns the base URL and token of the daemon the
// client commands talk to: --host/TUBEQ_HOST if set, else the local port file.
func resolveAPIConnection() (string, string, error) {
	target := resolveHostTarget()
	if target == "" {
		port := readActivePort()
		if port == 0 {
			return "", "", errors.New("tubeq is not running locally. start it with 'tubeq server start' or pass --host")
		}
		return fmt.Sprintf("http://127.0.0.1:%d", port), resolveLocalToken(), nil
	}

	baseURL, err := resolveConnectBaseURL(target, false)
	if err != nil {
		return "", "", err
	}
	token, err := resolveTokenForTarget(target)
	if err != nil {
		return "", "", err
	}
	return baseURL, token, nil
}

// clientService connects to the running daemon.
func clientService() (*core.RemoteDownloadService, error) {
	baseURL, token, err := resolveAPIConnection()
	if err != nil {
		return nil, err
	}
	return core.NewRemoteDownloadService(baseURL, token), nil
}

// resolveDownloadID expands a short id prefix using the daemon's task list.
func resolveDownloadID(svc core.DownloadService, partialID string) (string, error) {
	if len(partialID) >= 32 {
		return partialID, nil
	}
	downloads, err := svc.List()
	if err != nil {
		return "", fmt.Errorf("failed to list downloads: %w", err)
	}
	candidates := make([]string, 0, len(downloads))
	for _, d := range downloads {
		candidates = append(candidates, d.ID)
	}
	return resolveIDFromCandidates(partialID, candidates)
}

func resolveIDFromCandidates(partialID string, candidates []string) (string, error) {
	var matches []string
	seen := make(map[string]bool)
	for _, id := range candidates {
		if strings.HasPrefix(id, partialID) && !seen[id] {
			matches = append(matches, id)
			seen[id] = true
		}
	}

	if len(matches) == 1 {
		return matches[0], nil
	}
	if len(matches) > 1 {
		return "", fmt.Errorf("ambiguous ID prefix '%s' matches %d downloads", partialID, len(matches))
	}
	return partialID, nil // No match, use as-is (will fail with "not found" later)
}
