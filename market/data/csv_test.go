package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCandles(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candles.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeCandles(t, `time,open,high,low,close,volume
2024-03-05T14:30:00Z,5000,5002.5,4999,5001.75,1250
2024-03-05T14:31:00Z,5001.75,5003,5000.5,5002,980
`)

	candles, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.Equal(t, time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), candles[0].Time.UTC())
	assert.InDelta(t, 5000, candles[0].Open, 1e-9)
	assert.InDelta(t, 5002.5, candles[0].High, 1e-9)
	assert.InDelta(t, 1250, candles[0].Volume, 1e-9)
}

func TestLoadCSVUnixSeconds(t *testing.T) {
	path := writeCandles(t, `time,open,high,low,close,volume
1709648400,5000,5001,4999,5000.5,1000
1709648460,5000.5,5002,5000,5001,900
`)

	candles, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1709648400), candles[0].Time.Unix())
}

func TestLoadCSVRejectsOutOfOrder(t *testing.T) {
	path := writeCandles(t, `time,open,high,low,close,volume
2024-03-05T14:31:00Z,5000,5001,4999,5000.5,1000
2024-03-05T14:30:00Z,5000.5,5002,5000,5001,900
`)

	_, err := LoadCSV(path)
	assert.ErrorContains(t, err, "out-of-order")
}

func TestLoadCSVRejectsEmptyAndMalformed(t *testing.T) {
	_, err := LoadCSV(writeCandles(t, "time,open,high,low,close,volume\n"))
	assert.Error(t, err)

	_, err = LoadCSV(writeCandles(t, `time,open,high,low,close,volume
2024-03-05T14:30:00Z,abc,5001,4999,5000.5,1000
`))
	assert.Error(t, err)

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
