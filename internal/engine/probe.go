package engine

import (
	"context"
	"strings"

	"github.com/tubeq/tubeq/internal/utils"
)

// Metadata is what the resolver learns about a URL before downloading.
type Metadata struct {
	Title    string
	Uploader string
}

// MetadataResolver fetches title and uploader for a URL without downloading.
type MetadataResolver interface {
	Resolve(ctx context.Context, url string) (Metadata, error)
}

// ResolverFunc adapts a function to MetadataResolver.
type ResolverFunc func(ctx context.Context, url string) (Metadata, error)

func (f ResolverFunc) Resolve(ctx context.Context, url string) (Metadata, error) {
	return f(ctx, url)
}

// Probe resolves metadata for url and wraps any failure in a
// MetadataFetchError. Blank fields fall back to "Unknown".
func Probe(ctx context.Context, r MetadataResolver, url string) (Metadata, error) {
	utils.Debug("Resolving metadata: %s", url)

	md, err := r.Resolve(ctx, url)
	if err != nil {
		utils.Debug("Metadata fetch failed for %s: %v", url, err)
		return Metadata{}, &MetadataFetchError{URL: url, Err: err}
	}
	if strings.TrimSpace(md.Title) == "" {
		md.Title = "Unknown"
	}
	if strings.TrimSpace(md.Uploader) == "" {
		md.Uploader = "Unknown"
	}
	utils.Debug("Resolved %s: %q by %q", url, md.Title, md.Uploader)
	return md, nil
}
