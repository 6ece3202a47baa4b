package decoder

import (
	"bytes"
	"strings"
)

// Splitter accumulates raw chunks and cuts them into lines. It holds exactly
// the bytes received since the last CR or LF.
//
// CR, LF and CRLF all terminate a line. Lines that are empty after trimming
// are dropped, so a CRLF pair yields a single line whether or not it straddles
// two chunks. There is no maximum line length.
type Splitter struct {
	buf []byte
}

// Feed appends chunk and returns every complete, non-empty, trimmed line it
// closes, in arrival order.
func (s *Splitter) Feed(chunk []byte) []string {
	s.buf = append(s.buf, chunk...)
	var lines []string
	for {
		idx := bytes.IndexAny(s.buf, "\r\n")
		if idx < 0 {
			break
		}
		line := strings.TrimSpace(string(s.buf[:idx]))
		s.buf = s.buf[idx+1:]
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(s.buf) == 0 {
		s.buf = nil
	}
	return lines
}

// Pending returns the number of buffered bytes not yet terminated.
func (s *Splitter) Pending() int { return len(s.buf) }

// Reset discards any unterminated bytes.
func (s *Splitter) Reset() { s.buf = nil }
