// Package report writes surfaces to disk and to the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/olekukonko/tablewriter"

	"github.com/contactkeval/vol-surface/internal/surface"
)

// BaseName is the file stem shared by a surface's reports.
func BaseName(s *surface.Surface) string {
	return fmt.Sprintf("surface-%s-%s", s.Ticker, s.RunID)
}

// WriteJSON writes the whole surface, summary and per-quote results included,
// and returns the file path.
func WriteJSON(s *surface.Surface, outdir string) (string, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(outdir, BaseName(s)+".json")
	if err := os.WriteFile(path, b, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// WriteCSV writes one row per surface point: kind, strike, time_to_expiry,
// implied_vol.
func WriteCSV(s *surface.Surface, outdir string) (string, error) {
	path := filepath.Join(outdir, BaseName(s)+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	points := s.Points()
	if err := gocsv.MarshalFile(&points, f); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// PrintSummary renders outcome counts and per-kind vol statistics.
func PrintSummary(w io.Writer, s *surface.Surface) {
	sum := s.Summary
	fmt.Fprintf(w, "%s spot %.2f run %s\n", s.Ticker, s.Spot, s.RunID)
	fmt.Fprintf(w, "quotes %d, filtered %d, converged %d, invalid %d, non-computable %d, divergent %d\n",
		sum.Quotes, sum.Filtered, sum.Converged, sum.Invalid, sum.NonComputable, sum.Divergent)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"kind", "count", "mean", "median", "min", "max", "std dev"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.Append(statsRow("call", sum.Calls))
	table.Append(statsRow("put", sum.Puts))
	table.Render()
}

func statsRow(kind string, v surface.VolStats) []string {
	if v.Count == 0 {
		return []string{kind, "0", "-", "-", "-", "-", "-"}
	}
	pct := func(x float64) string { return fmt.Sprintf("%.2f%%", 100*x) }
	return []string{kind, fmt.Sprint(v.Count), pct(v.Mean), pct(v.Median), pct(v.Min), pct(v.Max), pct(v.StdDev)}
}
