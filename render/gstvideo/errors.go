package gstvideo

import (
	"errors"
	"strings"

	"github.com/tinyzimmer/go-gst/gst"
)

// ErrFileNotFound is returned by Play when a local file does not exist.
var ErrFileNotFound = errors.New("gstvideo: video file not found")

// ErrorCategory represents the classification of playback errors for telemetry
type ErrorCategory int

const (
	// ErrCategoryNetwork indicates remote source failures (connection, timeout, DNS)
	ErrCategoryNetwork ErrorCategory = iota
	// ErrCategoryCodec indicates decode/format failures
	ErrCategoryCodec
	// ErrCategoryMissingFile indicates a missing or unreadable file
	ErrCategoryMissingFile
	// ErrCategoryUnknown indicates unclassified errors
	ErrCategoryUnknown
)

// String returns a human-readable string representation of the error category
func (e ErrorCategory) String() string {
	switch e {
	case ErrCategoryNetwork:
		return "network"
	case ErrCategoryCodec:
		return "codec"
	case ErrCategoryMissingFile:
		return "missing_file"
	default:
		return "unknown"
	}
}

// ClassifyGStreamerError categorizes a bus error for telemetry.
//
// go-gst's GError does not expose the error domain, so classification relies
// on message heuristics.
func ClassifyGStreamerError(gerr *gst.GError) ErrorCategory {
	if gerr == nil {
		return ErrCategoryUnknown
	}
	return classify(gerr.Error(), gerr.DebugString())
}

// classify checks, most specific first: missing file, codec, network.
func classify(errMsg, debugStr string) ErrorCategory {
	combined := strings.ToLower(errMsg + " " + debugStr)

	switch {
	case containsAny(combined, missingFileKeywords):
		return ErrCategoryMissingFile
	case containsAny(combined, codecKeywords):
		return ErrCategoryCodec
	case containsAny(combined, networkKeywords):
		return ErrCategoryNetwork
	default:
		return ErrCategoryUnknown
	}
}

var missingFileKeywords = []string{
	"no such file",
	"does not exist",
	"could not open resource for reading",
	"resource not found",
	"permission denied",
}

var codecKeywords = []string{
	"codec",
	"decode",
	"format",
	"negotiation",
	"not negotiated",
	"caps",
	"no decoder",
	"missing plugin",
	"demux",
}

var networkKeywords = []string{
	"connection",
	"timeout",
	"timed out",
	"unreachable",
	"network",
	"dns",
	"resolve",
	"socket",
	"http",
	"could not connect",
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
