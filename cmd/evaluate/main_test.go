package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-engine/internal/database"
	"signal-engine/internal/levels"
)

func writeBars(t *testing.T, n int, header bool) string {
	t.Helper()
	var b strings.Builder
	if header {
		b.WriteString("timestamp,open,high,low,close,volume\n")
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := 100 + float64(i)*0.2 + 2*math.Sin(float64(i)/3)
		o := c - 0.3*math.Cos(float64(i))
		fmt.Fprintf(&b, "%s,%.4f,%.4f,%.4f,%.4f,1000\n",
			start.Add(time.Duration(i)*time.Hour).Format(time.RFC3339),
			o, math.Max(o, c)+0.5, math.Min(o, c)-0.5, c)
	}
	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "absent.json")))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestReadBars(t *testing.T) {
	input := `timestamp,open,high,low,close,volume
1704067200,100,101,99,100.5,10
1704070800000,100.5,102,100,101.5
# comment
2024-01-01 02:00:00,101.5,103,101,102,12
`
	bars, err := readBars(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), bars[0].Timestamp)
	assert.Equal(t, time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC), bars[1].Timestamp)
	assert.Zero(t, bars[1].Volume)
	assert.Equal(t, 102.0, bars[2].Close)
}

func TestReadBarsRejects(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"header only":  "timestamp,open,high,low,close\n",
		"short row":    "1704067200,100,101,99\n",
		"bad number":   "1704067200,100,abc,99,100\n",
		"high below":   "1704067200,100,98,99,100\n",
		"bad time mid": "1704067200,100,101,99,100\nyesterday,100,101,99,100\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := readBars(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestRunCommandSummary(t *testing.T) {
	path := writeBars(t, 240, true)

	out, err := execute(t, "run", "--csv", path, "--symbol", "BTCUSDT", "--timeframe", "1h", "--summary")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "BTCUSDT 1h @ 2024-01-10 23:00"), out)
	assert.Contains(t, out, "confidence")
	runSummary = false
}

func TestRunCommandInsufficientData(t *testing.T) {
	path := writeBars(t, 50, false)

	_, err := execute(t, "run", "--csv", path, "--symbol", "BTCUSDT")
	assert.ErrorContains(t, err, "insufficient")
}

func TestLevelsCommand(t *testing.T) {
	path := writeBars(t, 240, true)

	out, err := execute(t, "levels", "--csv", path, "--method", "camarilla")
	require.NoError(t, err)
	levelsMethod = ""

	var set levels.LevelSet
	require.NoError(t, json.Unmarshal([]byte(out), &set))
	assert.Equal(t, levels.Camarilla, set.Method)
	assert.Contains(t, set.Levels, "H4")
	assert.Contains(t, set.Levels, "fib_0.618")
}

func TestPatternsCommand(t *testing.T) {
	path := writeBars(t, 30, true)

	out, err := execute(t, "patterns", "--csv", path, "--all")
	require.NoError(t, err)
	patternsAll = false
	assert.Contains(t, out, "PATTERN")
	assert.Contains(t, out, "in 30 bars")
}

func TestBucketize(t *testing.T) {
	valid, invalid := true, false
	records := []*database.EvaluationRecord{
		{Direction: "HOLD", LongConfidence: 0.2, ShortConfidence: 0.1},
		{Direction: "LONG", LongConfidence: 0.85, ShortConfidence: 0.1, PlanValid: &valid},
		{Direction: "SHORT", LongConfidence: 0.1, ShortConfidence: 0.65, PlanValid: &invalid},
		{Direction: "LONG", LongConfidence: 1.0, PlanValid: &valid},
	}

	buckets := bucketize(records, defaultBuckets())
	assert.Equal(t, 1, buckets[0].Hold)
	assert.Equal(t, 1, buckets[3].Short)
	assert.Equal(t, 1, buckets[3].PlansRejected)
	assert.Equal(t, 2, buckets[5].Long)
	assert.Equal(t, 2, buckets[5].PlansValid)

	rows := thresholdTable(records, []float64{0.5, 0.9})
	assert.Equal(t, ThresholdRow{Threshold: 0.5, Admitted: 3, Excluded: 1}, rows[0])
	assert.Equal(t, ThresholdRow{Threshold: 0.9, Admitted: 1, Excluded: 3}, rows[1])

	var out bytes.Buffer
	printHistory(&out, records, 0.5)
	assert.Contains(t, out.String(), "(current)")
}
