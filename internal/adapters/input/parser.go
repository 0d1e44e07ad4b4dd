package input

import (
	"errors"
	"strings"
	"time"

	"github.com/soctools/logwarden/internal/domain"
)

// ErrMalformedLine marks a line in which the address, timestamp, status or
// request could not be located. Recoverable: callers skip the line, the
// batch continues.
var ErrMalformedLine = errors.New("malformed log line")

const (
	clfTimeLayout  = "02/Jan/2006:15:04:05 -0700"
	bareTimeLayout = "02/Jan/2006:15:04:05"
)

// AccessLogParser extracts address, timestamp, status and method+path from
// one combined-log-style line. Stateless; a single instance is safe for
// concurrent use.
type AccessLogParser struct{}

func NewAccessLogParser() *AccessLogParser {
	return &AccessLogParser{}
}

// Parse returns the parsed line or ErrMalformedLine. The address is the
// leading token, taken verbatim: no format validation happens here, and any
// zone suffix is stripped later by the filters, not the parser.
func (p *AccessLogParser) Parse(line string) (*domain.LogLine, error) {
	if len(line) > domain.MaxLineLength {
		line = line[:domain.MaxLineLength]
	}
	if line == "" {
		return nil, ErrMalformedLine
	}

	addrEnd := skipUntil(line, 0, ' ')
	if addrEnd <= 0 {
		return nil, ErrMalformedLine
	}
	address := line[:addrEnd]

	tsStart := skipUntil(line, addrEnd, '[')
	if tsStart == -1 {
		return nil, ErrMalformedLine
	}
	tsEnd := skipUntil(line, tsStart+1, ']')
	if tsEnd == -1 {
		return nil, ErrMalformedLine
	}
	timestamp, err := parseTimestamp(line[tsStart+1 : tsEnd])
	if err != nil {
		return nil, ErrMalformedLine
	}

	reqStart := skipUntil(line, tsEnd, '"')
	if reqStart == -1 {
		return nil, ErrMalformedLine
	}
	reqEnd := findClosingQuote(line, reqStart+1)
	if reqEnd == -1 {
		return nil, ErrMalformedLine
	}
	method, path, err := parseRequest(line[reqStart+1 : reqEnd])
	if err != nil {
		return nil, err
	}

	status, pos, err := parseStatus(line, reqEnd+1)
	if err != nil {
		return nil, err
	}

	return &domain.LogLine{
		Address:   address,
		Timestamp: timestamp,
		Status:    status,
		Method:    method,
		Path:      path,
		UserAgent: parseUserAgent(line, pos),
	}, nil
}

// parseTimestamp accepts the full bracketed fragment with zone offset, or
// falls back to the date part alone when the zone is absent.
func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(clfTimeLayout, s); err == nil {
		return ts, nil
	}
	datePart := s
	if i := strings.IndexByte(s, ' '); i >= 0 {
		datePart = s[:i]
	}
	return time.Parse(bareTimeLayout, datePart)
}

// parseRequest splits `METHOD path HTTP/ver` inside the quoted request.
// The protocol suffix is optional: its absence is not a parse failure.
func parseRequest(s string) (method, path string, err error) {
	firstSpace := skipUntil(s, 0, ' ')
	if firstSpace <= 0 {
		return "", "", ErrMalformedLine
	}
	method = s[:firstSpace]

	rest := s[firstSpace+1:]
	if rest == "" {
		return "", "", ErrMalformedLine
	}
	if i := strings.LastIndexByte(rest, ' '); i > 0 && strings.HasPrefix(rest[i+1:], "HTTP/") {
		rest = rest[:i]
	}
	return method, rest, nil
}

// parseStatus finds the 3-digit status code following the quoted request.
func parseStatus(line string, pos int) (string, int, error) {
	for pos < len(line) && line[pos] == ' ' {
		pos++
	}
	end := pos
	for end < len(line) && line[end] >= '0' && line[end] <= '9' {
		end++
	}
	if end-pos != 3 {
		return "", 0, ErrMalformedLine
	}
	if line[pos] < '1' || line[pos] > '5' {
		return "", 0, ErrMalformedLine
	}
	return line[pos:end], end, nil
}

// parseUserAgent pulls the last quoted field of a combined-format line.
// Absent on common-format lines; that is fine, the field is enrichment only.
func parseUserAgent(line string, pos int) string {
	last := strings.LastIndexByte(line, '"')
	if last <= pos {
		return ""
	}
	start := strings.LastIndexByte(line[:last], '"')
	if start <= pos {
		return ""
	}
	ua := line[start+1 : last]
	if ua == "-" {
		return ""
	}
	return ua
}

func skipUntil(s string, pos int, char byte) int {
	for i := pos; i < len(s); i++ {
		if s[i] == char {
			return i
		}
	}
	return -1
}

func findClosingQuote(s string, start int) int {
	i := start
	for i < len(s) {
		if s[i] == '\\' && i+1 < len(s) {
			i += 2
			continue
		}
		if s[i] == '"' {
			return i
		}
		i++
	}
	return -1
}
