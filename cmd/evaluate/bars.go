package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"signal-engine/internal/market"
)

// readBarsFile loads a CSV bar file; "-" reads stdin
func readBarsFile(path string) ([]market.Bar, error) {
	if path == "" {
		return nil, errors.New("--csv is required")
	}
	if path == "-" {
		return readBars(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bars: %w", err)
	}
	defer f.Close()
	return readBars(f)
}

// readBars parses timestamp,open,high,low,close[,volume] rows. A header row
// is skipped when its first field is not a timestamp.
func readBars(r io.Reader) ([]market.Bar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var bars []market.Bar
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) < 5 {
			return nil, fmt.Errorf("line %d: want at least 5 columns, got %d", line, len(record))
		}

		ts, err := parseTimestamp(record[0])
		if err != nil {
			if line == 1 && len(bars) == 0 {
				continue
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		values := make([]float64, 5)
		for i := 1; i < len(record) && i <= 5; i++ {
			if values[i-1], err = strconv.ParseFloat(strings.TrimSpace(record[i]), 64); err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", line, i+1, err)
			}
		}

		bar := market.Bar{
			Timestamp: ts,
			Open:      values[0],
			High:      values[1],
			Low:       values[2],
			Close:     values[3],
			Volume:    values[4],
		}
		if err := bar.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, errors.New("no bars found")
	}
	return bars, nil
}

// parseTimestamp accepts RFC3339, "2006-01-02 15:04:05", or unix seconds or
// milliseconds
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
