package input

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soctools/logwarden/internal/domain"
)

func TestParseCombinedLine(t *testing.T) {
	parser := NewAccessLogParser()

	line := `203.0.113.7 - - [10/Oct/2023:13:55:36 +0000] "GET /index.html HTTP/1.1" 200 2326 "-" "Mozilla/5.0"`
	parsed, err := parser.Parse(line)
	require.NoError(t, err)

	assert.Equal(t, "203.0.113.7", parsed.Address)
	assert.Equal(t, "200", parsed.Status)
	assert.Equal(t, "GET", parsed.Method)
	assert.Equal(t, "/index.html", parsed.Path)
	assert.Equal(t, "Mozilla/5.0", parsed.UserAgent)

	expected := time.Date(2023, time.October, 10, 13, 55, 36, 0, time.UTC)
	assert.True(t, parsed.Timestamp.Equal(expected))
}

func TestParseVariants(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		method string
		path   string
		status string
		ua     string
	}{
		{
			name:   "common format without user agent",
			line:   `192.0.2.1 - - [10/Oct/2023:13:55:36 +0000] "POST /login HTTP/1.1" 401 512`,
			method: "POST",
			path:   "/login",
			status: "401",
			ua:     "",
		},
		{
			name:   "request without protocol suffix",
			line:   `192.0.2.1 - - [10/Oct/2023:13:55:36 +0000] "GET /health" 200 12`,
			method: "GET",
			path:   "/health",
			status: "200",
		},
		{
			name:   "query string preserved in path",
			line:   `192.0.2.1 - - [10/Oct/2023:13:55:36 +0000] "GET /search?q=1%3D1 HTTP/1.1" 200 99 "-" "curl/8.0"`,
			method: "GET",
			path:   "/search?q=1%3D1",
			status: "200",
			ua:     "curl/8.0",
		},
		{
			name:   "dash user agent treated as absent",
			line:   `192.0.2.1 - - [10/Oct/2023:13:55:36 +0000] "GET / HTTP/1.1" 200 5 "-" "-"`,
			method: "GET",
			path:   "/",
			status: "200",
			ua:     "",
		},
		{
			name:   "timestamp without zone offset",
			line:   `192.0.2.1 - - [10/Oct/2023:13:55:36] "GET / HTTP/1.1" 200 5`,
			method: "GET",
			path:   "/",
			status: "200",
		},
	}

	parser := NewAccessLogParser()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := parser.Parse(tc.line)
			require.NoError(t, err)
			assert.Equal(t, tc.method, parsed.Method)
			assert.Equal(t, tc.path, parsed.Path)
			assert.Equal(t, tc.status, parsed.Status)
			assert.Equal(t, tc.ua, parsed.UserAgent)
			assert.False(t, parsed.Timestamp.IsZero())
		})
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty line", ""},
		{"garbage", "not a log line at all"},
		{"missing timestamp", `192.0.2.1 - - "GET / HTTP/1.1" 200 5`},
		{"unterminated timestamp", `192.0.2.1 - - [10/Oct/2023:13:55:36 +0000 "GET / HTTP/1.1" 200 5`},
		{"unparseable timestamp", `192.0.2.1 - - [yesterday] "GET / HTTP/1.1" 200 5`},
		{"missing request", `192.0.2.1 - - [10/Oct/2023:13:55:36 +0000] 200 5`},
		{"unterminated request quote", `192.0.2.1 - - [10/Oct/2023:13:55:36 +0000] "GET / HTTP/1.1 200 5`},
		{"request without path", `192.0.2.1 - - [10/Oct/2023:13:55:36 +0000] "GET" 200 5`},
		{"two digit status", `192.0.2.1 - - [10/Oct/2023:13:55:36 +0000] "GET / HTTP/1.1" 20 5`},
		{"four digit status", `192.0.2.1 - - [10/Oct/2023:13:55:36 +0000] "GET / HTTP/1.1" 2000 5`},
		{"status out of class range", `192.0.2.1 - - [10/Oct/2023:13:55:36 +0000] "GET / HTTP/1.1" 999 5`},
		{"non numeric status", `192.0.2.1 - - [10/Oct/2023:13:55:36 +0000] "GET / HTTP/1.1" abc 5`},
	}

	parser := NewAccessLogParser()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parser.Parse(tc.line)
			assert.ErrorIs(t, err, ErrMalformedLine)
		})
	}
}

func TestParseTruncatesOversizedLine(t *testing.T) {
	parser := NewAccessLogParser()

	// A valid prefix followed by a huge tail still parses: only the first
	// MaxLineLength bytes are considered.
	line := `192.0.2.1 - - [10/Oct/2023:13:55:36 +0000] "GET / HTTP/1.1" 200 5 "-" "x"` +
		strings.Repeat("y", domain.MaxLineLength)
	parsed, err := parser.Parse(line)
	require.NoError(t, err)
	assert.Equal(t, "200", parsed.Status)
}

func BenchmarkParse(b *testing.B) {
	parser := NewAccessLogParser()
	line := `203.0.113.7 - - [10/Oct/2023:13:55:36 +0000] "GET /index.html?q=test HTTP/1.1" 200 2326 "https://example.com/" "Mozilla/5.0 (X11; Linux x86_64)"`

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := parser.Parse(line); err != nil {
			b.Fatal(err)
		}
	}
}

func TestParseEscapedQuoteInRequest(t *testing.T) {
	parser := NewAccessLogParser()

	line := `192.0.2.1 - - [10/Oct/2023:13:55:36 +0000] "GET /a\"b HTTP/1.1" 404 5`
	parsed, err := parser.Parse(line)
	require.NoError(t, err)
	assert.Equal(t, `/a\"b`, parsed.Path)
	assert.Equal(t, "404", parsed.Status)
}
