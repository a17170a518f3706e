package jobtable

// JobRecord is one row of the scheduler's job listing
type JobRecord struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Next   string `json:"next"`
	Last   string `json:"last"`
	Status string `json:"status"`
}

// Options controls where the parser expects each column to sit. Widths
// count characters, not bytes.
type Options struct {
	// HeaderLines is the number of leading rows skipped before parsing
	HeaderLines int `json:"header_lines" yaml:"header_lines"`
	// IDWidth is the fixed width of the identifier column
	IDWidth int `json:"id_width" yaml:"id_width"`
	// NameFallbackEnd bounds the name column when no schedule marker is found
	NameFallbackEnd int `json:"name_fallback_end" yaml:"name_fallback_end"`
	// NameStopsAtLast cuts the fallback name window at the last-run column
	NameStopsAtLast bool `json:"name_stops_at_last" yaml:"name_stops_at_last"`
}

// DefaultOptions matches the column layout of `openclaw cron list`
func DefaultOptions() Options {
	return Options{
		HeaderLines:     1,
		IDWidth:         36,
		NameFallbackEnd: 70,
	}
}
