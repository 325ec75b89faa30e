package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/mhollis/baselint"
)

var (
	pathColor    = color.New(color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	okColor      = color.New(color.FgGreen)
	dimColor     = color.New(color.Faint)
)

func severityColor(sev baselint.Severity) *color.Color {
	switch sev {
	case baselint.SeverityError:
		return errorColor
	case baselint.SeverityWarning:
		return warningColor
	default:
		return infoColor
	}
}

// formatFindingLine renders one finding with a one-based position.
func formatFindingLine(w io.Writer, f baselint.Finding) {
	pos := fmt.Sprintf("%d:%d", f.Range.Start.Line+1, f.Range.Start.Column+1)
	fmt.Fprintf(w, "  %-8s %s  %s", pos, severityColor(f.Severity).Sprintf("%-7s", string(f.Severity)), f.Message)
	if f.FeatureID != "" {
		dimColor.Fprintf(w, "  (%s)", f.FeatureID)
	}
	if f.Rule != "" {
		dimColor.Fprintf(w, "  [%s]", f.Rule)
	}
	fmt.Fprintln(w)
}

// formatCheckText renders findings grouped by file, then a summary line.
func formatCheckText(w io.Writer, files []CLIFileCheck) {
	findings := 0
	unsupported := 0
	for _, fr := range files {
		for _, f := range fr.Findings {
			findings++
			if f.Reason == baselint.ReasonUnsupported {
				unsupported++
			}
		}
		if len(fr.Findings) == 0 {
			continue
		}
		pathColor.Fprintln(w, fr.Path)
		for _, f := range fr.Findings {
			formatFindingLine(w, f)
		}
		fmt.Fprintln(w)
	}

	if findings == 0 {
		okColor.Fprintf(w, "No findings in %d file(s)\n", len(files))
		return
	}
	fmt.Fprintf(w, "%d finding(s) in %d file(s)", findings, len(files))
	if unsupported > 0 {
		fmt.Fprintf(w, ", %s", errorColor.Sprintf("%d unsupported", unsupported))
	}
	fmt.Fprintln(w)
}

// formatAuditText renders an audit report: per-file findings, the
// feature leaderboard, then whole-store totals.
func formatAuditText(w io.Writer, rep *baselint.AuditReport) {
	for _, fr := range rep.Files {
		if len(fr.Findings) == 0 && fr.Err == "" {
			continue
		}
		pathColor.Fprintln(w, fr.Path)
		if fr.Err != "" {
			errorColor.Fprintf(w, "  audit failed: %s\n", fr.Err)
		}
		for _, f := range fr.Findings {
			formatFindingLine(w, f)
		}
		fmt.Fprintln(w)
	}

	if len(rep.TopFeatures) > 0 {
		fmt.Fprintln(w, "Most flagged features:")
		for _, ft := range rep.TopFeatures {
			fmt.Fprintf(w, "  %s (%s): %d\n", ft.FeatureName, ft.FeatureID, ft.Count)
		}
		fmt.Fprintln(w)
	}

	total := 0
	for _, n := range rep.TotalsByReason {
		total += n
	}
	if total == 0 {
		okColor.Fprintln(w, "No findings")
		return
	}
	parts := make([]string, 0, 3)
	for _, reason := range []baselint.Reason{baselint.ReasonUnsupported, baselint.ReasonLimited, baselint.ReasonRule} {
		if n := rep.TotalsByReason[reason]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, reason))
		}
	}
	fmt.Fprintf(w, "%d finding(s): %s\n", total, strings.Join(parts, ", "))
}

// formatFeatureText renders one catalog record.
func formatFeatureText(w io.Writer, rec *baselint.Record) {
	pathColor.Fprintf(w, "%s", rec.Name)
	dimColor.Fprintf(w, "  (%s)\n", rec.ID)
	fmt.Fprintf(w, "  Baseline: %s\n", levelText(rec.Status.Baseline))
	if !rec.Status.LowDate.IsZero() {
		fmt.Fprintf(w, "  Newly available since:  %s\n", rec.Status.LowDate.Format("2006-01-02"))
	}
	if !rec.Status.HighDate.IsZero() {
		fmt.Fprintf(w, "  Widely available since: %s\n", rec.Status.HighDate.Format("2006-01-02"))
	}
	if rec.SpecURL != "" {
		fmt.Fprintf(w, "  Spec: %s\n", rec.SpecURL)
	}
	if rec.DocURL != "" {
		fmt.Fprintf(w, "  Docs: %s\n", rec.DocURL)
	}
}

// levelText renders a Baseline level with its color.
func levelText(l baselint.Level) string {
	switch l {
	case baselint.LevelHigh:
		return okColor.Sprint("widely available")
	case baselint.LevelLow:
		return warningColor.Sprint("newly available")
	default:
		return errorColor.Sprint("limited availability")
	}
}

// outputResult prints the JSON envelope for --format json.
func outputResult(result CLIResult) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// validateFormat rejects --format values other than text and json.
func validateFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	}
	return fmt.Errorf("unknown format %q (want text or json)", format)
}
