package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// srtTimestampLine matches "00:00:01,000 --> 00:00:04,000" with optional
// trailing cue settings. WebVTT uses dots for the millisecond separator.
var srtTimestampLine = regexp.MustCompile(`^(\d{1,2}:\d{2}:\d{2})[,.](\d{3})\s+-->\s+(\d{1,2}:\d{2}:\d{2})[,.](\d{3})(.*)$`)

// cueIndexLine matches a bare numeric cue counter.
var cueIndexLine = regexp.MustCompile(`^\d+$`)

// ConvertSRT reads SubRip text from r and writes the WebVTT equivalent to w.
// Cue counters are renumbered from 1 regardless of the source numbering, and
// timestamp millisecond separators become dots.
func ConvertSRT(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	out := bufio.NewWriter(w)
	if _, err := out.WriteString("WEBVTT\n\n"); err != nil {
		return fmt.Errorf("writing vtt header: %w", err)
	}

	cueNum := 0
	inCue := false
	expectTimestamp := false

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		line = strings.TrimPrefix(line, "\uFEFF")

		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			if inCue {
				out.WriteString("\n")
				inCue = false
			}
			expectTimestamp = false
			continue
		}

		if !inCue && !expectTimestamp && cueIndexLine.MatchString(trimmed) {
			// Original cue counter. Dropped and replaced below.
			expectTimestamp = true
			continue
		}

		if m := srtTimestampLine.FindStringSubmatch(trimmed); m != nil {
			cueNum++
			fmt.Fprintf(out, "%d\n", cueNum)
			fmt.Fprintf(out, "%s.%s --> %s.%s%s\n", m[1], m[2], m[3], m[4], m[5])
			inCue = true
			expectTimestamp = false
			continue
		}

		if inCue {
			out.WriteString(line + "\n")
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading srt: %w", err)
	}

	if inCue {
		out.WriteString("\n")
	}
	if err := out.Flush(); err != nil {
		return fmt.Errorf("writing vtt: %w", err)
	}
	return nil
}
