// Package data loads candle series from local files.
package data

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"futsim/market"
)

// LoadCSV reads candles from a CSV file with header
// time,open,high,low,close,volume. Time is RFC3339 or unix seconds.
// Rows must be in ascending time order.
func LoadCSV(path string) ([]market.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candles: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read candles: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("candle file %q has no data rows", path)
	}

	candles := make([]market.Candle, 0, len(rows)-1)
	var prev time.Time

	for i, row := range rows[1:] {
		if len(row) < 6 {
			return nil, fmt.Errorf("row %d: want 6 columns, got %d", i+2, len(row))
		}

		ts, err := parseTime(row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if !prev.IsZero() && !ts.After(prev) {
			return nil, fmt.Errorf("row %d: out-of-order timestamp %s", i+2, ts)
		}
		prev = ts

		vals := make([]float64, 5)
		for j := 1; j <= 5; j++ {
			v, err := strconv.ParseFloat(row[j], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d col %d: %w", i+2, j+1, err)
			}
			vals[j-1] = v
		}

		candles = append(candles, market.Candle{
			Time:   ts,
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}

	return candles, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", s)
}
