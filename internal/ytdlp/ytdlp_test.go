package ytdlp

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureCookieFile_CreatesConsentCookie(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "cookies.txt")

	require.NoError(t, EnsureCookieFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ConsentCookie, string(data))
	assert.Contains(t, string(data), "CONSENT\tYES+42")
}

func TestEnsureCookieFile_KeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(path, []byte("custom"), 0o600))

	require.NoError(t, EnsureCookieFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", string(data))
}

func TestNew_WritesCookieFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	c, err := New(Config{CookieFile: path})
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, path, c.config().CookieFile)

	c.SetConfig(Config{ProxyURL: "socks5://127.0.0.1:1080"})
	assert.Equal(t, "socks5://127.0.0.1:1080", c.config().ProxyURL)
}

func TestRateLimitArg(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, ""},
		{-1, ""},
		{512000, "512000"},
		{2 * 1024 * 1024, "2097152"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rateLimitArg(tt.in))
	}
}

func TestSubLangs(t *testing.T) {
	assert.Equal(t, "all", subLangs(true))
	assert.Equal(t, "en.*", subLangs(false))
}

func TestProgressFromUpdate(t *testing.T) {
	now := time.Now()
	u := ytdlp.ProgressUpdate{
		DownloadedBytes: 1000,
		TotalBytes:      4000,
		Started:         now.Add(-2 * time.Second),
	}

	p := progressFromUpdate(u, now)
	assert.Equal(t, int64(1000), p.Downloaded)
	assert.Equal(t, int64(4000), p.Total)
	assert.InDelta(t, 500.0, p.Speed, 1)
	assert.Greater(t, p.ETA, int64(0))
}

func TestProgressFromUpdate_UnknownTotal(t *testing.T) {
	p := progressFromUpdate(ytdlp.ProgressUpdate{DownloadedBytes: 10}, time.Now())
	assert.Equal(t, int64(10), p.Downloaded)
	assert.Zero(t, p.Total)
	assert.Zero(t, p.Speed)
}

func TestDeref(t *testing.T) {
	s := "x"
	assert.Equal(t, "x", deref(&s))
	assert.Equal(t, "", deref(nil))
}
