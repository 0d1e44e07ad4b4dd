package input

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// TailMonitor tracks a single growing log file: the byte offset of the last
// read and an identity marker for rotation detection. Each ReadNew call
// returns only newly appended complete lines, so a cycle's cost is
// proportional to new log volume, not total file size.
//
// Thread Safety: not safe for concurrent use. The watch engine serializes
// all calls on one goroutine.
type TailMonitor struct {
	path     string
	offset   int64
	identity os.FileInfo
}

func NewTailMonitor(path string) *TailMonitor {
	return &TailMonitor{path: path}
}

// Prime records the starting offset: the file's current size, so only
// content appended after this point is analyzed, or zero when the caller
// wants the existing content scanned too.
func (t *TailMonitor) Prime(fromBeginning bool) error {
	fi, err := os.Stat(t.path)
	if err != nil {
		return err
	}
	t.identity = fi
	if fromBeginning {
		t.offset = 0
	} else {
		t.offset = fi.Size()
	}
	return nil
}

// Offset returns the current read position. Exposed for tests and status
// logging.
func (t *TailMonitor) Offset() int64 {
	return t.offset
}

// ReadNew stats the file, handles rotation, and returns any newly appended
// complete lines.
//
// Rotation (file shrank below the stored offset, or the path now points at
// a different file) resets the offset to zero; skipped tail content is not
// recovered. The offset advances past every returned line even if the
// caller's subsequent analysis fails — the same bytes are never reprocessed.
// On a read error the offset is left untouched and the next cycle retries.
func (t *TailMonitor) ReadNew() (lines []string, rotated bool, err error) {
	fi, err := os.Stat(t.path)
	if err != nil {
		return nil, false, err
	}

	if fi.Size() < t.offset || (t.identity != nil && !os.SameFile(t.identity, fi)) {
		log.Warn().
			Str("file", t.path).
			Int64("offset", t.offset).
			Int64("size", fi.Size()).
			Msg("Log file rotated, resetting read position")
		t.offset = 0
		rotated = true
	}
	t.identity = fi

	if fi.Size() == t.offset {
		return nil, rotated, nil
	}

	buf, err := t.readFrom(t.offset, fi.Size()-t.offset)
	if err != nil {
		return nil, rotated, err
	}

	// Hold back a trailing partial line; it is picked up once the writer
	// terminates it.
	cut := bytes.LastIndexByte(buf, '\n')
	if cut == -1 {
		return nil, rotated, nil
	}

	t.offset += int64(cut + 1)
	return splitLines(buf[:cut]), rotated, nil
}

func (t *TailMonitor) readFrom(offset, n int64) ([]byte, error) {
	file, err := os.Open(t.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	buf := make([]byte, n)
	read, err := io.ReadFull(file, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return buf[:read], nil
}

func splitLines(buf []byte) []string {
	raw := strings.Split(string(buf), "\n")
	lines := raw[:0]
	for _, line := range raw {
		line = strings.TrimSuffix(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
