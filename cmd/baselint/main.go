package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	flagDB     string
	flagFormat string
	flagConfig string
)

// errorHandled is set by commands that already rendered their failure,
// so main() doesn't double-print.
var errorHandled bool

func main() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	if !errorHandled {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(1)
}

var rootCmd = &cobra.Command{
	Use:               "baselint",
	Short:             "Baseline web-feature compatibility analysis",
	Long:              "Baselint parses CSS, JavaScript, TypeScript and HTML with tree-sitter, resolves the web platform features they use against the Baseline dataset, and flags the ones that are not yet safe to rely on everywhere.",
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: validateGlobalFlags,
}

func validateGlobalFlags(*cobra.Command, []string) error {
	return validateFormat(flagFormat)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "audit database path (default: .baselint/audit.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: text|json")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .baselint.yml at the repo root)")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(featuresCmd)
}

// resolveTargetDir picks the directory a command operates on: the first
// positional argument when given, the working directory otherwise.
func resolveTargetDir(args []string) (string, error) {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", target, err)
	}
	st, err := os.Stat(abs)
	switch {
	case err != nil:
		return "", fmt.Errorf("no such directory: %s", abs)
	case !st.IsDir():
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}

// findRepoRoot returns the nearest ancestor of dir (dir included) that
// holds a .git directory. Workspaces outside any repository get dir
// itself back, so relative paths still have a stable anchor.
func findRepoRoot(dir string) string {
	for cur := dir; ; {
		if st, err := os.Stat(filepath.Join(cur, ".git")); err == nil && st.IsDir() {
			return cur
		}
		up := filepath.Dir(cur)
		if up == cur {
			return dir
		}
		cur = up
	}
}

// resolveDBPath places the audit database. Relative --db values are
// anchored at the repo root so invocations from any subdirectory share
// one database.
func resolveDBPath(repoRoot string) string {
	switch {
	case flagDB == "":
		return filepath.Join(repoRoot, ".baselint", "audit.db")
	case filepath.IsAbs(flagDB):
		return flagDB
	default:
		return filepath.Join(repoRoot, flagDB)
	}
}
