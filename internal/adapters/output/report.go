// Package output provides report destinations and the metrics exporter.
package output

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/soctools/logwarden/internal/domain"
	"github.com/soctools/logwarden/pkg/sanitize"
)

// maxUserAgentLen bounds attacker-supplied user agents in reports.
const maxUserAgentLen = 256

// reportEntry is one address's row in a generated report, flattened from
// the internal result for stable serialization.
type reportEntry struct {
	Address      string           `json:"address"`
	ThreatScore  int              `json:"threat_score"`
	RequestCount int              `json:"request_count"`
	FirstSeen    string           `json:"first_seen"`
	LastSeen     string           `json:"last_seen"`
	StatusCodes  map[string]int   `json:"status_codes"`
	UserAgents   []string         `json:"user_agents,omitempty"`
	Findings     []domain.Finding `json:"findings"`
}

// reportDocument is the top-level shape of a JSON report.
type reportDocument struct {
	GeneratedAt string        `json:"generated_at"`
	Addresses   int           `json:"addresses"`
	Results     []reportEntry `json:"results"`
}

// sortedEntries flattens the result map into rows ordered by descending
// threat score, ties broken by address for deterministic output.
func sortedEntries(results map[string]*domain.ScoredResult) []reportEntry {
	entries := make([]reportEntry, 0, len(results))
	for addr, res := range results {
		agents := make([]string, 0, len(res.Record.UserAgents))
		for ua := range res.Record.UserAgents {
			agents = append(agents, sanitize.Line(ua, maxUserAgentLen))
		}
		sort.Strings(agents)

		entries = append(entries, reportEntry{
			Address:      addr,
			ThreatScore:  res.ThreatScore,
			RequestCount: res.Record.Count,
			FirstSeen:    res.FirstSeenString(),
			LastSeen:     res.LastSeenString(),
			StatusCodes:  res.Record.StatusCodes,
			UserAgents:   agents,
			Findings:     res.Findings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ThreatScore != entries[j].ThreatScore {
			return entries[i].ThreatScore > entries[j].ThreatScore
		}
		return entries[i].Address < entries[j].Address
	})
	return entries
}

// JSONReporter writes the full result set as a pretty-printed JSON
// document to a file or stdout.
type JSONReporter struct {
	writer    io.Writer
	bufWriter *bufio.Writer
	file      *os.File
}

// JSONReporterConfig configures the JSON report destination.
type JSONReporterConfig struct {
	FilePath string // Output file path (empty for discard)
	Stdout   bool   // Write to stdout instead of a file
}

// NewJSONReporter opens the report destination. Report files are created
// with 0600: reports name client addresses and attack evidence.
func NewJSONReporter(config JSONReporterConfig) (*JSONReporter, error) {
	var writer io.Writer
	var file *os.File

	if config.Stdout {
		writer = os.Stdout
	} else if config.FilePath != "" {
		var err error
		file, err = os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return nil, err
		}
		writer = file
	} else {
		writer = io.Discard
	}

	const bufferSize = 64 * 1024
	return &JSONReporter{
		writer:    writer,
		bufWriter: bufio.NewWriterSize(writer, bufferSize),
		file:      file,
	}, nil
}

func (r *JSONReporter) Report(ctx context.Context, results map[string]*domain.ScoredResult) error {
	doc := reportDocument{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Addresses:   len(results),
		Results:     sortedEntries(results),
	}

	encoder := json.NewEncoder(r.bufWriter)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

// Close flushes the buffer and syncs the file before closing.
func (r *JSONReporter) Close() error {
	if err := r.bufWriter.Flush(); err != nil {
		return err
	}
	if r.file != nil {
		if err := r.file.Sync(); err != nil {
			return err
		}
		return r.file.Close()
	}
	return nil
}

// CSVReporter writes a one-row-per-address summary, spreadsheet-friendly.
// Findings collapse into a semicolon-joined kind list.
type CSVReporter struct {
	file   *os.File
	writer *csv.Writer
}

func NewCSVReporter(path string) (*CSVReporter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}
	return &CSVReporter{file: file, writer: csv.NewWriter(file)}, nil
}

func (r *CSVReporter) Report(ctx context.Context, results map[string]*domain.ScoredResult) error {
	header := []string{"address", "threat_score", "request_count", "first_seen", "last_seen", "findings"}
	if err := r.writer.Write(header); err != nil {
		return err
	}

	for _, entry := range sortedEntries(results) {
		kinds := ""
		for i, f := range entry.Findings {
			if i > 0 {
				kinds += ";"
			}
			kinds += string(f.Kind)
		}
		row := []string{
			entry.Address,
			strconv.Itoa(entry.ThreatScore),
			strconv.Itoa(entry.RequestCount),
			entry.FirstSeen,
			entry.LastSeen,
			kinds,
		}
		if err := r.writer.Write(row); err != nil {
			return err
		}
	}

	r.writer.Flush()
	return r.writer.Error()
}

func (r *CSVReporter) Close() error {
	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		return err
	}
	if err := r.file.Sync(); err != nil {
		return err
	}
	return r.file.Close()
}
