package trame

import "bytes"

// Splitter frames a byte stream into text lines. Lines may span
// several writes; "\n", "\r\n" and "\r" terminate a line.
type Splitter struct {
	buf []byte
	max int

	// discarding is set while the rest of an overlong line is skipped.
	discarding bool
}

// NewSplitter returns a splitter. A line longer than max bytes is discarded
// up to its terminator. A max of 0 disables the limit.
func NewSplitter(max int) *Splitter {
	return &Splitter{max: max}
}

// Write appends p to the pending data and returns the completed lines.
// Empty lines are skipped.
func (s *Splitter) Write(p []byte) []string {
	var lines []string

	for len(p) > 0 {
		i := bytes.IndexAny(p, "\r\n")

		chunk := p
		if i >= 0 {
			chunk = p[:i]
		}

		if !s.discarding {
			if s.max > 0 && len(s.buf)+len(chunk) > s.max {
				s.buf = s.buf[:0]
				s.discarding = true
			} else {
				s.buf = append(s.buf, chunk...)
			}
		}

		if i < 0 {
			break
		}

		if !s.discarding && len(s.buf) > 0 {
			lines = append(lines, string(s.buf))
		}
		s.buf = s.buf[:0]
		s.discarding = false

		p = p[i+1:]
	}

	return lines
}

// Flush returns the pending unterminated line, if any, and resets the splitter.
func (s *Splitter) Flush() string {
	line := string(s.buf)
	s.buf = s.buf[:0]
	s.discarding = false

	return line
}
