package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/vol-surface/internal/pricing"
	"github.com/contactkeval/vol-surface/internal/surface"
	"github.com/contactkeval/vol-surface/internal/testutil"
)

func fixture() *surface.Surface {
	calls := []surface.Point{{Kind: pricing.Call, Strike: 100, TimeToExpiry: 0.5, Vol: 0.2}}
	puts := []surface.Point{{Kind: pricing.Put, Strike: 95, TimeToExpiry: 0.5, Vol: 0.25}}
	return &surface.Surface{
		RunID:  "run-1",
		Ticker: "XYZ",
		Spot:   100,
		AsOf:   time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC),
		Calls:  calls,
		Puts:   puts,
		Summary: surface.Summary{
			Quotes:    4,
			Filtered:  1,
			Invalid:   1,
			Converged: 2,
			Calls:     surface.Describe(calls),
			Puts:      surface.Describe(puts),
		},
	}
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteJSON(fixture(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "surface-XYZ-run-1.json"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var got surface.Surface
	require.NoError(t, json.Unmarshal(b, &got))
	testutil.CompareWithGolden(t, "surface", got)
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteCSV(fixture(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "surface-XYZ-run-1.csv"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(b), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Equal(t, "kind,strike,time_to_expiry,implied_vol", string(lines[0]))

	var points []surface.Point
	require.NoError(t, gocsv.UnmarshalBytes(b, &points))
	assert.Equal(t, fixture().Points(), points)
}

func TestWriteToMissingDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	_, err := WriteJSON(fixture(), missing)
	assert.Error(t, err)
	_, err = WriteCSV(fixture(), missing)
	assert.Error(t, err)
}

func TestPrintSummary(t *testing.T) {
	s := fixture()
	s.Puts = nil
	s.Summary.Puts = surface.VolStats{}

	var buf bytes.Buffer
	PrintSummary(&buf, s)
	out := buf.String()

	assert.Contains(t, out, "XYZ spot 100.00 run run-1")
	assert.Contains(t, out, "converged 2, invalid 1")
	assert.Contains(t, out, "20.00%")
	assert.Contains(t, out, "STD DEV")
}
