// Package promparse parses the Prometheus text exposition format into
// structured, typed, labeled records for the dashboard.
//
// The parser is a pure, single-pass function over one text blob. It is
// maximally permissive: a malformed line is skipped and parsing continues,
// so a payload containing stray comments or vendor extensions still yields
// every well-formed sample. The only fatal failure is input that is not
// text at all.
//
//	# HELP http_requests_total Total HTTP requests
//	# TYPE http_requests_total counter
//	http_requests_total{method="GET",route="/"} 1027 1609459200000
package promparse

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrNotText is returned when the input cannot be treated as UTF-8 text.
// This is the single fatal failure; everything else is recovered per line.
var ErrNotText = errors.New("payload is not valid UTF-8 text")

const (
	helpPrefix = "# HELP "
	typePrefix = "# TYPE "
)

// Parse parses one self-contained exposition text blob into a fresh
// ParsedMetrics. It holds no state across calls and is safe to invoke
// concurrently with independent inputs.
func Parse(text string) (*ParsedMetrics, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("cannot parse metrics payload: %w", ErrNotText)
	}

	meta := make(map[string]familyMeta)
	result := newParsedMetrics()

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			// HELP/TYPE directives update the metadata table; any other
			// #-prefixed line is an ignorable comment.
			processDirective(line, meta)
			continue
		}

		sample, ok := parseSampleLine(line)
		if !ok {
			result.SkippedLines++
			continue
		}

		result.add(classify(sample, meta))
	}

	return result, nil
}

// ParseReader reads the full payload from r and parses it. A read failure
// is fatal: no partial result is returned in its place.
func ParseReader(r io.Reader) (*ParsedMetrics, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics payload: %w", err)
	}
	return Parse(string(data))
}

// processDirective handles one "# HELP <name> <text>" or "# TYPE <name>
// <type>" line. Malformed directives are ignored, matching the recoverable
// line failure policy.
func processDirective(line string, meta map[string]familyMeta) {
	switch {
	case strings.HasPrefix(line, helpPrefix):
		rest := line[len(helpPrefix):]
		name, tail := scanMetricName(rest)
		if name == "" || (tail != "" && tail[0] != ' ' && tail[0] != '\t') {
			return
		}
		m := meta[name]
		m.help = unescapeHelp(strings.TrimSpace(tail))
		meta[name] = m

	case strings.HasPrefix(line, typePrefix):
		rest := line[len(typePrefix):]
		name, tail := scanMetricName(rest)
		if name == "" || (tail != "" && tail[0] != ' ' && tail[0] != '\t') {
			return
		}
		fields := strings.Fields(tail)
		if len(fields) == 0 {
			return
		}
		m := meta[name]
		// Unrecognized type tokens are stored verbatim rather than rejected.
		m.typ = fields[0]
		meta[name] = m
	}
}

// parseSampleLine parses one sample line:
//
//	metric_name ['{' label_list '}'] WS value [WS timestamp]
//
// The optional millisecond timestamp is consumed and discarded. A line that
// does not match the grammar reports ok=false and is skipped by the caller.
func parseSampleLine(line string) (MetricSample, bool) {
	name, rest := scanMetricName(line)
	if name == "" {
		return MetricSample{}, false
	}

	labels := map[string]string{}
	trimmed := strings.TrimLeft(rest, " \t")
	if strings.HasPrefix(trimmed, "{") {
		inner, after, ok := splitLabelBlock(trimmed[1:])
		if !ok {
			return MetricSample{}, false
		}
		labels, ok = parseLabels(inner)
		if !ok {
			return MetricSample{}, false
		}
		rest = after
	} else if len(trimmed) == len(rest) {
		// No label block and no separator after the name.
		return MetricSample{}, false
	} else {
		rest = trimmed
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 || len(fields) > 2 {
		return MetricSample{}, false
	}

	value, ok := normalizeValue(fields[0])
	if !ok {
		return MetricSample{}, false
	}

	if len(fields) == 2 {
		// Millisecond timestamp: consumed so it cannot corrupt parsing,
		// but it carries no semantic output.
		if _, err := strconv.ParseInt(fields[1], 10, 64); err != nil {
			return MetricSample{}, false
		}
	}

	return MetricSample{Name: name, Value: value, Labels: labels}, true
}

// splitLabelBlock scans s (the text after the opening '{') up to the
// matching '}', tracking quote and escape state so that braces and commas
// inside quoted label values do not terminate the block.
func splitLabelBlock(s string) (inner, rest string, ok bool) {
	inQuotes := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuotes {
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case '"':
				inQuotes = false
			}
			continue
		}
		switch c {
		case '"':
			inQuotes = true
		case '}':
			return s[:i], s[i+1:], true
		}
	}

	// Unterminated label block.
	return "", "", false
}

// parseLabels parses the contents between '{' and '}' into a label map.
// Whitespace around '=' and ',' is ignored, a trailing comma is tolerated,
// and a duplicate label name keeps its last occurrence.
func parseLabels(s string) (map[string]string, bool) {
	labels := make(map[string]string)
	i := 0

	for {
		i = skipSpace(s, i)
		if i >= len(s) {
			return labels, true
		}

		name, _ := scanMetricName(s[i:])
		if name == "" {
			return nil, false
		}
		i += len(name)

		i = skipSpace(s, i)
		if i >= len(s) || s[i] != '=' {
			return nil, false
		}
		i++

		i = skipSpace(s, i)
		if i >= len(s) || s[i] != '"' {
			return nil, false
		}
		i++

		var value strings.Builder
		closed := false
		for i < len(s) {
			c := s[i]
			if c == '\\' && i+1 < len(s) {
				switch s[i+1] {
				case '"':
					value.WriteByte('"')
				case '\\':
					value.WriteByte('\\')
				case 'n':
					value.WriteByte('\n')
				default:
					value.WriteByte(c)
					value.WriteByte(s[i+1])
				}
				i += 2
				continue
			}
			if c == '"' {
				closed = true
				i++
				break
			}
			value.WriteByte(c)
			i++
		}
		if !closed {
			return nil, false
		}

		labels[name] = value.String()

		i = skipSpace(s, i)
		if i >= len(s) {
			return labels, true
		}
		if s[i] != ',' {
			return nil, false
		}
		i++
	}
}

// normalizeValue converts a value token into a float64. The sentinel forms
// +Inf, Inf, -Inf and NaN are recognized case-insensitively; everything
// else must parse as a decimal or scientific-notation literal.
func normalizeValue(token string) (float64, bool) {
	switch strings.ToLower(token) {
	case "+inf", "inf":
		return math.Inf(1), true
	case "-inf":
		return math.Inf(-1), true
	case "nan":
		return math.NaN(), true
	}

	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// scanMetricName reads a metric or label name using the character class
// [A-Za-z_:][A-Za-z0-9_:]* and returns the name plus the remaining text.
// An empty name means s does not start with a valid name character.
func scanMetricName(s string) (name, rest string) {
	i := 0
	for ; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_', c == ':':
		case c >= '0' && c <= '9':
			if i == 0 {
				return "", s
			}
		default:
			return s[:i], s[i:]
		}
	}
	return s, ""
}

// skipSpace advances i past spaces and tabs.
func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

// unescapeHelp decodes the backslash escapes of HELP text: "\\" becomes a
// backslash and "\n" a newline.
func unescapeHelp(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
