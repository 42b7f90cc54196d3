package testutil

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestNewAPIServer_BindsIPv4Loopback(t *testing.T) {
	srv := NewAPIServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.URL.Path)
	}))

	if !strings.HasPrefix(srv.URL, "http://127.0.0.1:") {
		t.Fatalf("URL = %s, want 127.0.0.1", srv.URL)
	}
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "/health" {
		t.Errorf("body = %q, want /health", body)
	}
}

func TestRequireTCPListener(t *testing.T) {
	RequireTCPListener(t)
	// Reaching here means the port was released again
	NewAPIServer(t, http.NotFoundHandler())
}
