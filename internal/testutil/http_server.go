// Package testutil holds listener helpers shared by the API and CLI tests.
package testutil

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

// RequireTCPListener skips the test when the sandbox forbids binding a
// loopback IPv4 port.
func RequireTCPListener(t *testing.T) {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("tcp4 listener unavailable: %v", err)
	}
	_ = ln.Close()
}

// NewAPIServer serves handler on 127.0.0.1 and closes it when the test ends.
// httptest.NewServer may pick [::1], which some sandboxes reject.
func NewAPIServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("tcp4 listener unavailable: %v", err)
	}

	srv := &httptest.Server{
		Listener: ln,
		Config:   &http.Server{Handler: handler},
	}
	srv.Start()
	t.Cleanup(srv.Close)
	return srv
}
