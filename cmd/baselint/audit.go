package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mhollis/baselint"
)

var (
	flagForce  bool
	flagReport string
	flagOut    string
)

var auditCmd = &cobra.Command{
	Use:   "audit [path]",
	Short: "Audit a workspace and persist results",
	Long:  "Analyzes every supported file under the workspace and stores per-file results in a SQLite database, so the next audit re-analyzes only files whose content changed. Optionally writes a Markdown or JSON report.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAudit,
}

func init() {
	auditCmd.Flags().BoolVar(&flagForce, "force", false, "delete the audit database and re-analyze from scratch")
	auditCmd.Flags().StringVar(&flagReport, "report", "", "write a report file: md|json")
	auditCmd.Flags().StringVar(&flagOut, "out", "", "report file path (default: baseline-report.<ext> in the workspace root)")
	auditCmd.Flags().BoolVar(&flagNewlyAvailable, "flag-newly-available", false, "also flag newly available features")
	auditCmd.Flags().StringVar(&flagRulesDir, "rules-dir", "", "load custom rule scripts from this directory")
}

func runAudit(cmd *cobra.Command, args []string) error {
	if flagReport != "" && flagReport != "md" && flagReport != "json" {
		return fmt.Errorf("invalid report format %q: must be md or json", flagReport)
	}

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	repoRoot := findRepoRoot(targetDir)
	dbPath := resolveDBPath(repoRoot)

	// --force starts over: the database file is removed, not replayed.
	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("clearing %s: %w", dbPath, err)
		}
		fmt.Fprintf(os.Stderr, "Removed %s\n", dbPath)
	}

	s, err := loadSettings(cmd, targetDir)
	if err != nil {
		return err
	}
	analyzer, err := newAnalyzer(s)
	if err != nil {
		return fmt.Errorf("creating analyzer: %w", err)
	}
	defer analyzer.Close()

	auditor, err := baselint.NewAuditor(analyzer, dbPath)
	if err != nil {
		return fmt.Errorf("opening audit store: %w", err)
	}
	defer auditor.Close()

	rep, auditErr := auditor.Audit(context.Background(), targetDir)
	if rep == nil {
		return auditErr
	}

	// Timing summary to stderr, findings to stdout.
	fmt.Fprintf(os.Stderr, "Audited %s in %s (%d analyzed, %d unchanged, %d failed)\n",
		targetDir,
		rep.Duration.Round(time.Millisecond),
		rep.FilesScanned, rep.FilesSkipped, rep.FilesFailed,
	)
	fmt.Fprintf(os.Stderr, "Audit database: %s\n", dbPath)

	switch {
	case flagReport != "":
		outPath := flagOut
		if outPath == "" {
			outPath = filepath.Join(targetDir, "baseline-report."+flagReport)
		}
		if err := writeReportFile(rep, flagReport, outPath); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Report: %s\n", outPath)
	case flagFormat == "json":
		if err := rep.WriteJSON(os.Stdout); err != nil {
			return err
		}
	default:
		formatAuditText(os.Stdout, rep)
	}

	return auditErr
}

func writeReportFile(rep *baselint.AuditReport, format, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	if format == "md" {
		err = rep.WriteMarkdown(f)
	} else {
		err = rep.WriteJSON(f)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
