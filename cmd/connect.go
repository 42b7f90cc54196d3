package cmd

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tubeq/tubeq/internal/core"
)

var connectCmd = &cobra.Command{
	Use:   "connect [host:port]",
	Short: "Open the dashboard of a running tubeq daemon",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		target := resolveHostTarget()
		if len(args) > 0 {
			target = args[0]
		}
		if target == "" {
			port := readActivePort()
			if port == 0 {
				exitWithError(fmt.Errorf("no active tubeq daemon found locally. usage: tubeq connect <host:port>"))
			}
			target = fmt.Sprintf("127.0.0.1:%d", port)
		}

		insecureHTTP, _ := cmd.Flags().GetBool("insecure-http")
		baseURL, err := resolveConnectBaseURL(target, insecureHTTP)
		if err != nil {
			exitWithError(err)
		}
		token, err := resolveTokenForTarget(target)
		if err != nil {
			exitWithError(err)
		}

		fmt.Printf("Connecting to %s...\n", baseURL)
		service := core.NewRemoteDownloadService(baseURL, token)
		defer func() { _ = service.Shutdown() }()

		if _, err := service.List(); err != nil {
			exitWithError(fmt.Errorf("failed to connect: %w", err))
		}

		startTUI(service, localDefaults, false, nil)
	},
}

func init() {
	connectCmd.Flags().Bool("insecure-http", false, "Allow plain HTTP for non-loopback targets")
	rootCmd.AddCommand(connectCmd)
}

func resolveConnectBaseURL(target string, allowInsecureHTTP bool) (string, error) {
	if strings.Contains(target, "://") {
		u, err := url.Parse(target)
		if err != nil {
			return "", fmt.Errorf("invalid target: %v", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", fmt.Errorf("unsupported scheme %q (use http or https)", u.Scheme)
		}
		if u.Host == "" {
			return "", fmt.Errorf("invalid target: missing host")
		}
		if u.Scheme == "http" && !allowInsecureHTTP && !isLoopbackHost(u.Hostname()) {
			return "", fmt.Errorf("refusing insecure HTTP for non-loopback target. use https:// or --insecure-http")
		}
		return fmt.Sprintf("%s://%s", u.Scheme, u.Host), nil
	}

	scheme := "https"
	if isLoopbackHost(hostnameFromTarget(target)) || allowInsecureHTTP {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s", scheme, target), nil
}

func hostnameFromTarget(target string) string {
	if i := strings.Index(target, "://"); i != -1 {
		target = target[i+3:]
	}
	if i := strings.Index(target, "/"); i != -1 {
		target = target[:i]
	}
	if host, _, err := net.SplitHostPort(target); err == nil {
		return host
	}
	return strings.Trim(target, "[]")
}

func isLoopbackHost(host string) bool {
	if host == "" {
		return false
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
