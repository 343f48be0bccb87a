package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"

	"donation-summary/internal/summary"
)

const separatorWidth = 80

// Options control console rendering.
type Options struct {
	// ShowFailedErrors includes the distinct error strings of failed
	// donations in each destination block.
	ShowFailedErrors bool
}

// WriteConsole renders the human-readable summary: a totals header followed
// by one block per destination, sorted by descending total solutions.
func WriteConsole(w io.Writer, s summary.Summary, opts Options) error {
	line := strings.Repeat("=", separatorWidth)
	thin := strings.Repeat("-", separatorWidth)

	t := s.Totals
	fmt.Fprintln(w)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "DONATION CONSOLIDATION SUMMARY")
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "\nTotal Destinations: %d\n", t.TotalDestinations)
	fmt.Fprintf(w, "Total Successful Donations: %d\n", t.TotalSuccessful)
	fmt.Fprintf(w, "Total Already Submitted: %d\n", t.TotalAlreadySubmitted)
	fmt.Fprintf(w, "Total Failed: %d\n", t.TotalFailed)
	fmt.Fprintf(w, "Total Solutions Consolidated: %d\n", t.TotalSolutions)
	fmt.Fprintf(w, "Estimated NIGHT Consolidated: %s\n", t.TotalEstimatedNight.StringFixed(0))
	if t.DuplicatesRemoved > 0 {
		fmt.Fprintf(w, "Duplicates Removed (cross-stream): %d\n", t.DuplicatesRemoved)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, thin)
	fmt.Fprintln(w, "\nSummary by Destination Address:")
	fmt.Fprintln(w, thin)

	for _, d := range s.SortedDestinations() {
		fmt.Fprintf(w, "\nDestination: %s\n", d.DestinationAddress)
		fmt.Fprintf(w, "  Solutions Consolidated: %d\n", d.TotalSolutions)
		fmt.Fprintf(w, "  Estimated NIGHT: %s\n", d.EstimatedNight.StringFixed(0))
		fmt.Fprintf(w, "  Successful Donations: %d\n", d.TotalDonations)
		fmt.Fprintf(w, "  Already Submitted: %d\n", d.AlreadySubmitted)
		fmt.Fprintf(w, "  Failed: %d\n", d.Failed)
		fmt.Fprintf(w, "  Unique Source Addresses: %d\n", d.UniqueSourceAddresses)
		fmt.Fprintf(w, "  Unique Donation IDs: %d\n", d.UniqueDonationIDs)
		if d.FirstDonation != "" {
			fmt.Fprintf(w, "  First Donation: %s\n", d.FirstDonation)
		}
		if d.LastDonation != "" {
			fmt.Fprintf(w, "  Last Donation: %s\n", d.LastDonation)
		}
		if opts.ShowFailedErrors && len(d.FailedErrors) > 0 {
			fmt.Fprintln(w, "  Errors:")
			for _, e := range d.FailedErrors {
				fmt.Fprintf(w, "    - %s\n", sanitizeInline(e))
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, line)
	return nil
}

// WriteJSON persists the summary as pretty-printed JSON.
func WriteJSON(path string, s summary.Summary) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write summary json: %w", err)
	}
	return nil
}

// WriteCSV exports per-destination rows ordered by descending solutions.
func WriteCSV(path string, s summary.Summary) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"destination_address", "total_solutions_consolidated", "estimated_night", "total_donations", "already_submitted", "failed", "unique_source_addresses", "unique_donation_ids", "first_donation", "last_donation"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, d := range s.SortedDestinations() {
		row := []string{
			d.DestinationAddress,
			strconv.FormatInt(d.TotalSolutions, 10),
			d.EstimatedNight.StringFixed(0),
			strconv.Itoa(d.TotalDonations),
			strconv.Itoa(d.AlreadySubmitted),
			strconv.Itoa(d.Failed),
			strconv.Itoa(d.UniqueSourceAddresses),
			strconv.Itoa(d.UniqueDonationIDs),
			d.FirstDonation,
			d.LastDonation,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}

// WritePNG renders a bar chart of the top destinations by solutions.
func WritePNG(path string, s summary.Summary, topN int) error {
	dests := s.SortedDestinations()
	if len(dests) == 0 {
		return fmt.Errorf("no destinations to chart")
	}
	if topN > 0 && len(dests) > topN {
		dests = dests[:topN]
	}

	if err := ensureDir(path); err != nil {
		return err
	}

	bars := make([]chart.Value, 0, len(dests))
	for _, d := range dests {
		bars = append(bars, chart.Value{
			Label: shortAddress(d.DestinationAddress),
			Value: float64(d.TotalSolutions),
		})
	}

	graph := chart.BarChart{
		Title:    "Solutions Consolidated by Destination",
		Width:    1280,
		Height:   720,
		BarWidth: 40,
		XAxis: chart.Style{
			TextRotationDegrees: 45,
		},
		Bars: bars,
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

// shortAddress truncates long bech32-style addresses for axis labels.
func shortAddress(addr string) string {
	if len(addr) <= 16 {
		return addr
	}
	return addr[:8] + ".." + addr[len(addr)-6:]
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
