// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bot drives a stateful conversational exchange with a
// chat-bot-backed archive: send a query, wait for a reply, paginate
// results, press an action button, and wait for an uploaded asset.
package bot

import (
	"regexp"
	"strconv"
	"strings"
)

// Action is one interactive affordance attached to a bot reply: a
// display label and an opaque invocation handle.
type Action struct {
	Label  string `json:"label"`
	Handle string `json:"handle"`
}

// AssetRef describes an asynchronously delivered file.
type AssetRef struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Message is one inbound bot message.
type Message struct {
	ID      int64     `json:"id"`
	Text    string    `json:"text,omitempty"`
	Actions []Action  `json:"actions,omitempty"`
	Asset   *AssetRef `json:"asset,omitempty"`
}

// ReplyKind tags a parsed bot reply.
type ReplyKind int

const (
	// ReplyInterim is a "still working" message, not a terminal reply.
	ReplyInterim ReplyKind = iota

	// ReplyTerminalSingle is a terminal reply about a single document.
	ReplyTerminalSingle

	// ReplyTerminalList is a terminal reply carrying a result count.
	ReplyTerminalList

	// ReplyError is a terminal negative reply (not found, failure).
	ReplyError
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyInterim:
		return "interim"
	case ReplyTerminalSingle:
		return "single"
	case ReplyTerminalList:
		return "list"
	case ReplyError:
		return "error"
	default:
		return "unknown"
	}
}

// Reply is a parsed bot message, decoupled from the transport so the
// classification is unit-testable on its own.
type Reply struct {
	Kind    ReplyKind
	Message Message

	// ResultCount is the embedded result count of a list reply.
	ResultCount int

	// SizeBytes is the advertised asset size parsed from the reply text
	// or an action label, zero when none is advertised.
	SizeBytes int64
}

var (
	interimPattern = regexp.MustCompile(`(?i)\b(searching|still looking|please wait|processing|one moment)\b`)
	errorPattern   = regexp.MustCompile(`(?i)\b(not found|no results|nothing found|unavailable|failed)\b`)
	countPattern   = regexp.MustCompile(`(?i)\b(\d+)\s+results?\b`)
	sizePattern    = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(B|KB|KiB|MB|MiB|GB|GiB)\b`)
)

// ParseReply classifies a bot message. Order matters: an interim marker
// wins over everything, a negative marker over a count, a count over
// the single-document default.
func ParseReply(m Message) Reply {
	r := Reply{Message: m, SizeBytes: advertisedSize(m)}

	switch {
	case interimPattern.MatchString(m.Text):
		r.Kind = ReplyInterim
	case errorPattern.MatchString(m.Text):
		r.Kind = ReplyError
	default:
		if c := countPattern.FindStringSubmatch(m.Text); c != nil {
			r.Kind = ReplyTerminalList
			r.ResultCount, _ = strconv.Atoi(c[1])
		} else {
			r.Kind = ReplyTerminalSingle
		}
	}
	return r
}

// advertisedSize scans the reply text and every action label for a
// file-size annotation like "2.3 MB".
func advertisedSize(m Message) int64 {
	if n := parseSize(m.Text); n > 0 {
		return n
	}
	for _, a := range m.Actions {
		if n := parseSize(a.Label); n > 0 {
			return n
		}
	}
	return 0
}

// parseSize converts a "<number> <unit>" annotation to bytes, zero when
// absent.
func parseSize(s string) int64 {
	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	switch strings.ToUpper(m[2]) {
	case "B":
		return int64(v)
	case "KB", "KIB":
		return int64(v * 1024)
	case "MB", "MIB":
		return int64(v * 1024 * 1024)
	default: // GB, GiB
		return int64(v * 1024 * 1024 * 1024)
	}
}
