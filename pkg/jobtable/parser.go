// Package jobtable turns the text table printed by the job scheduler CLI into
// structured job records.
//
// The listing is only fixed-width for its leading id column. Every other field
// is located relative to two anchor tokens: "ago" (last run and status) and
// "in"/"at" (next run). Lines that do not follow the layout degrade to records
// with empty fields instead of failing.
package jobtable

import (
	"regexp"
	"strings"
)

var (
	statusPattern = regexp.MustCompile(`\bago\s+(\S+)`)
	lastPattern   = regexp.MustCompile(`(\d+[a-zA-Z]+)\s+ago\b`)
	nextPattern   = regexp.MustCompile(`\b(?:in|at)\s+\S+`)
	cronSuffix    = regexp.MustCompile(`\s*\bcron\b.*$`)
)

var defaultParser = NewParser(DefaultOptions())

// Parser parses job listings using a fixed column layout. It holds no mutable
// state and is safe for concurrent use.
type Parser struct {
	opts Options
}

// NewParser creates a parser, replacing unset widths with the defaults
func NewParser(opts Options) *Parser {
	defaults := DefaultOptions()
	if opts.HeaderLines < 0 {
		opts.HeaderLines = 0
	}
	if opts.IDWidth <= 0 {
		opts.IDWidth = defaults.IDWidth
	}
	if opts.NameFallbackEnd <= 0 {
		opts.NameFallbackEnd = defaults.NameFallbackEnd
	}
	if opts.NameFallbackEnd < opts.IDWidth {
		opts.NameFallbackEnd = opts.IDWidth
	}
	return &Parser{opts: opts}
}

// Options returns the effective parser options
func (p *Parser) Options() Options {
	return p.opts
}

// ParseJobTable parses raw command output, skipping headerLines leading rows
func ParseJobTable(raw string, headerLines int) []JobRecord {
	opts := DefaultOptions()
	opts.HeaderLines = headerLines
	return NewParser(opts).Parse(raw)
}

// ParseLine parses a single data row using the default layout
func ParseLine(line string) (JobRecord, bool) {
	return defaultParser.ParseLine(line)
}

// Parse returns one record per parseable row, in input order. The result is
// never nil.
func (p *Parser) Parse(raw string) []JobRecord {
	records := make([]JobRecord, 0)

	raw = strings.TrimLeft(raw, "\r\n")
	raw = strings.TrimRight(raw, " \t\r\n")
	if raw == "" {
		return records
	}

	lines := strings.Split(raw, "\n")
	if p.opts.HeaderLines >= len(lines) {
		return records
	}

	for _, line := range lines[p.opts.HeaderLines:] {
		if record, ok := p.ParseLine(line); ok {
			records = append(records, record)
		}
	}

	return records
}

// ParseLine extracts a record from one row. It reports false when the row is
// blank or its id column is empty.
func (p *Parser) ParseLine(line string) (JobRecord, bool) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return JobRecord{}, false
	}

	idEnd := charOffset(line, p.opts.IDWidth)
	id := strings.TrimSpace(line[:idEnd])
	if id == "" {
		return JobRecord{}, false
	}

	record := JobRecord{ID: id}

	if m := statusPattern.FindStringSubmatch(line); m != nil {
		record.Status = m[1]
	}

	// Everything left of the last-run duration belongs to name and next.
	limit := len(line)
	if loc := lastPattern.FindStringSubmatchIndex(line); loc != nil {
		record.Last = line[loc[2]:loc[3]] + " ago"
		limit = loc[0]
	}

	markerStart := -1
	for _, loc := range nextPattern.FindAllStringIndex(line, -1) {
		if loc[1] > limit {
			break
		}
		if loc[0] < idEnd {
			continue
		}
		record.Next = strings.TrimSpace(line[loc[0]:loc[1]])
		markerStart = loc[0]
	}

	nameEnd := markerStart
	if nameEnd <= idEnd {
		nameEnd = charOffset(line, p.opts.NameFallbackEnd)
		if p.opts.NameStopsAtLast {
			nameEnd = min(nameEnd, limit)
		}
	}
	name := cronSuffix.ReplaceAllString(clip(line, idEnd, nameEnd), "")
	record.Name = strings.TrimSpace(name)

	return record, true
}

// charOffset returns the byte index of the n-th character of s, or len(s)
// when s is shorter
func charOffset(s string, n int) int {
	for i := range s {
		if n == 0 {
			return i
		}
		n--
	}
	return len(s)
}

// clip returns s[from:to] bounded by the length of s
func clip(s string, from, to int) string {
	to = min(to, len(s))
	if from >= to {
		return ""
	}
	return s[from:to]
}
