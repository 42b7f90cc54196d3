package utils

import (
	"github.com/h2non/filetype"
)

// DetectMediaType sniffs the MIME type of a finished download from its
// header bytes. It returns "" when the type is unknown or the file cannot
// be read.
func DetectMediaType(path string) string {
	if path == "" {
		return ""
	}
	kind, err := filetype.MatchFile(path)
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	return kind.MIME.Value
}
