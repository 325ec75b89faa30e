package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mhollis/baselint"
)

var (
	flagNewlyAvailable bool
	flagRulesDir       string
)

// errFindings forces a non-zero exit after findings were printed.
var errFindings = errors.New("unsupported features found")

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Analyze files and flag non-Baseline feature use",
	Long:  "Parses the given files (or every supported file under the given directories), resolves the web platform features they use, and prints a finding for each use that is not Baseline. Exits 1 when any unsupported feature is found.",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&flagNewlyAvailable, "flag-newly-available", false, "also flag newly available features")
	checkCmd.Flags().StringVar(&flagRulesDir, "rules-dir", "", "load custom rule scripts from this directory")
}

func runCheck(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}
	paths, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no supported files under %s", strings.Join(args, ", "))
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting cwd: %w", err)
	}
	s, err := loadSettings(cmd, cwd)
	if err != nil {
		return err
	}
	analyzer, err := newAnalyzer(s)
	if err != nil {
		return fmt.Errorf("creating analyzer: %w", err)
	}
	defer analyzer.Close()

	ctx := context.Background()

	var results []CLIFileCheck
	var unsupported int
	for _, path := range paths {
		doc, err := baselint.NewFileDocument(path)
		if err != nil {
			return err
		}
		an, err := analyzer.Analyze(ctx, doc)
		if err != nil {
			return fmt.Errorf("checking %s: %w", path, err)
		}
		for _, f := range an.Findings {
			if f.Reason == baselint.ReasonUnsupported {
				unsupported++
			}
		}
		results = append(results, CLIFileCheck{
			Path:     displayPath(cwd, path),
			Language: an.Language,
			Findings: an.Findings,
			Features: len(an.Features),
			Partial:  an.Partial,
		})
	}

	if flagFormat == "json" {
		if err := outputResult(CLIResult{Command: "check", Results: results}); err != nil {
			return err
		}
	} else {
		formatCheckText(os.Stdout, results)
	}

	if unsupported > 0 {
		// Findings are already on stdout; just set the exit code.
		errorHandled = true
		return errFindings
	}
	return nil
}

// collectFiles expands each argument: files pass through, directories
// are discovered the same way the auditor does.
func collectFiles(args []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolving path %q: %w", arg, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("path not found: %s", arg)
		}
		if info.IsDir() {
			found, err := baselint.DiscoverFiles(abs)
			if err != nil {
				return nil, err
			}
			for _, p := range found {
				if !seen[p] {
					seen[p] = true
					paths = append(paths, p)
				}
			}
			continue
		}
		if !seen[abs] {
			seen[abs] = true
			paths = append(paths, abs)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// displayPath prefers a path relative to the working directory.
func displayPath(cwd, path string) string {
	rel, err := filepath.Rel(cwd, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
