package domain

import (
	"strings"
	"time"
)

// MaxLineLength bounds a single log line; anything longer is truncated
// before parsing to keep memory per line fixed.
const MaxLineLength = 8192

// LogLine is one parsed access-log line. It is ephemeral: the aggregator
// folds it into an ActivityRecord and the value is not retained.
type LogLine struct {
	Address   string    `json:"address"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	UserAgent string    `json:"user_agent,omitempty"`
}

// RequestKey returns the "METHOD PATH" histogram key for this line.
func (l *LogLine) RequestKey() string {
	return l.Method + " " + l.Path
}

// NormalizeAddress strips an interface-zone suffix (fe80::1%eth0) and
// anything after an embedded space from an address token. Parsers return
// the token verbatim; comparisons go through this.
func NormalizeAddress(addr string) string {
	if i := strings.IndexByte(addr, '%'); i >= 0 {
		addr = addr[:i]
	}
	if i := strings.IndexByte(addr, ' '); i >= 0 {
		addr = addr[:i]
	}
	return addr
}
