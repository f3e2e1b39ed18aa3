package adapter

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// legacyThreadPatterns match thread ids printed as plain text by tools, or by
// older tool versions, that do not emit a structured session event.
var legacyThreadPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)"(?:session_id|sessionId|thread_id|threadId)"\s*:\s*"([^"\s]+)"`),
	regexp.MustCompile(`(?i)\bsession[ _-]?id\s*[:=]\s*([A-Za-z0-9][A-Za-z0-9_.\-]*)`),
	regexp.MustCompile(`(?i)\bthread[ _-]?id\s*[:=]\s*([A-Za-z0-9][A-Za-z0-9_.\-]*)`),
}

// ParseLine runs a.ParseOutputLine, turning a panic into a nil event.
func ParseLine(a Adapter, line string) (ev *Event) {
	if a == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("adapter panicked parsing line",
				"adapter", a.Name(), "panic", fmt.Sprint(r))
			ev = nil
		}
	}()
	return a.ParseOutputLine(line)
}

// ParseEvents parses every line of output with a.
func ParseEvents(a Adapter, output string) []Event {
	var events []Event
	for _, line := range splitLines(output) {
		if ev := ParseLine(a, line); ev != nil {
			events = append(events, *ev)
		}
	}
	return events
}

// FindThreadID scans output for the id of the conversation thread the tool
// created. Structured events parsed by a win over plain-text matches; within
// each pass the first match wins. It returns "" when nothing matches.
func FindThreadID(a Adapter, output string) string {
	if a != nil {
		for _, line := range splitLines(output) {
			ev := ParseLine(a, line)
			if ev == nil {
				continue
			}
			if id := a.ExtractSessionID(ev); id != "" {
				return id
			}
		}
	}
	for _, re := range legacyThreadPatterns {
		if m := re.FindStringSubmatch(output); m != nil {
			return m[1]
		}
	}
	return ""
}

// AssistantText returns the assistant-authored text in output. Without an
// adapter, or when the adapter recognized no assistant messages, the raw
// output is returned unchanged.
func AssistantText(a Adapter, output string) string {
	if a == nil {
		return output
	}
	var parts []string
	for _, line := range splitLines(output) {
		ev := ParseLine(a, line)
		if ev == nil {
			continue
		}
		if text := a.ExtractAssistantMessage(ev); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return output
	}
	return strings.Join(parts, "\n")
}

func splitLines(output string) []string {
	lines := strings.Split(output, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}
