package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// rangeFlags carries the shared --from/--to/--days window flags.
type rangeFlags struct {
	from string
	to   string
	days int
}

func (f *rangeFlags) register(cmd *cobra.Command, defaultDays int) {
	cmd.Flags().StringVar(&f.from, "from", "", "start datetime (ISO, e.g. 2025-01-01 or 2025-01-01T12:00)")
	cmd.Flags().StringVar(&f.to, "to", "", "end datetime (ISO), defaults to now")
	cmd.Flags().IntVar(&f.days, "days", defaultDays, "window size in days if no explicit dates are given")
}

// resolve computes the closed [start, end] UTC window. Explicit dates
// win; otherwise the window is the trailing --days ending now.
func (f *rangeFlags) resolve() (time.Time, time.Time, error) {
	now := time.Now().UTC()
	if f.from == "" && f.to == "" {
		return now.AddDate(0, 0, -f.days), now, nil
	}

	end := now
	if f.to != "" {
		parsed, err := parseDate(f.to)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = parsed
	}
	start := end.AddDate(0, 0, -f.days)
	if f.from != "" {
		parsed, err := parseDate(f.from)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = parsed
	}
	return start, end, nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseDate accepts ISO-ish datetimes; values without a zone are
// interpreted as UTC.
func parseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if parsed, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse datetime %q", value)
}
