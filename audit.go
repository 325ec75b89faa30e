package baselint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/minio/highwayhash"

	"github.com/mhollis/baselint/internal/parser"
	"github.com/mhollis/baselint/internal/store"
)

// auditHashKey keys the content hashes persisted by the audit store.
// Distinct from the parse-memo key so bumping one never silently
// invalidates the other.
var auditHashKey = []byte("baselint-audit-file-key-32bytes!")

// auditBatchSize bounds how many files are read into memory per round.
const auditBatchSize = 10

const metaDatasetVersion = "dataset_version"

// skipDirs are directory names the fallback walk never descends into.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
}

// AuditOption configures an Auditor.
type AuditOption func(*Auditor)

// WithAuditWorkers caps the analysis worker pool. Defaults to NumCPU.
func WithAuditWorkers(n int) AuditOption {
	return func(au *Auditor) {
		au.workers = n
	}
}

// WithFileTimeout bounds the analysis of a single file. Defaults to ten
// seconds.
func WithFileTimeout(d time.Duration) AuditOption {
	return func(au *Auditor) {
		if d > 0 {
			au.fileTimeout = d
		}
	}
}

// WithForce re-analyzes every file, ignoring stored content hashes.
func WithForce(force bool) AuditOption {
	return func(au *Auditor) {
		au.force = force
	}
}

// Auditor audits a workspace: it discovers supported files, runs them
// through an Analyzer with a bounded worker pool, and persists results
// so the next audit can skip unchanged files.
type Auditor struct {
	analyzer *Analyzer
	store    *store.Store

	workers     int
	fileTimeout time.Duration
	force       bool
}

// NewAuditor opens (or creates) the audit store at dbPath and wires it
// to a. The store's parent directory is created if missing.
func NewAuditor(a *Analyzer, dbPath string, opts ...AuditOption) (*Auditor, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("audit store dir: %w", err)
		}
	}
	st, err := store.NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	au := &Auditor{
		analyzer:    a,
		store:       st,
		workers:     runtime.NumCPU(),
		fileTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(au)
	}
	if au.workers < 1 {
		au.workers = 1
	}
	return au, nil
}

// Close releases the audit store.
func (au *Auditor) Close() error {
	return au.store.Close()
}

// Store exposes the underlying audit store for read-only queries.
func (au *Auditor) Store() *store.Store {
	return au.store
}

// FileReport is one file's outcome within an AuditReport. Positions in
// Findings are zero-based.
type FileReport struct {
	Path      string    `json:"path"`
	Language  string    `json:"language"`
	Findings  []Finding `json:"findings,omitempty"`
	Features  int       `json:"features"`
	Lines     int       `json:"lines"`
	Partial   bool      `json:"partial,omitempty"`
	FromCache bool      `json:"from_cache,omitempty"`
	Err       string    `json:"error,omitempty"`
}

// FeatureTally is one row of the report's feature leaderboard.
type FeatureTally struct {
	FeatureID   string `json:"feature_id"`
	FeatureName string `json:"feature_name"`
	Count       int    `json:"count"`
}

// AuditReport aggregates one audit run. Totals cover the whole store,
// so unchanged files keep contributing their persisted findings.
type AuditReport struct {
	Root             string           `json:"root"`
	DatasetVersion   string           `json:"dataset_version,omitempty"`
	StartedAt        time.Time        `json:"started_at"`
	Duration         time.Duration    `json:"duration"`
	FilesScanned     int              `json:"files_scanned"`
	FilesSkipped     int              `json:"files_skipped"`
	FilesFailed      int              `json:"files_failed"`
	Files            []FileReport     `json:"files"`
	TotalsByReason   map[Reason]int   `json:"totals_by_reason"`
	TotalsBySeverity map[Severity]int `json:"totals_by_severity"`
	TopFeatures      []FeatureTally   `json:"top_features,omitempty"`
}

// Audit analyzes every supported file under root. Files whose content
// hash matches the store replay their persisted findings without
// re-parsing; a dataset change invalidates every stored result. Rows
// for files no longer in the tree are pruned.
//
// Per-file failures do not stop the audit: they are folded into the
// report and accumulated into the returned error, so callers get both
// the partial report and the failure.
func (au *Auditor) Audit(ctx context.Context, root string) (*AuditReport, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	started := time.Now()
	paths, err := DiscoverFiles(absRoot)
	if err != nil {
		return nil, err
	}

	force := au.force
	datasetVersion := au.analyzer.DatasetVersion()
	storedVersion, err := au.store.Meta(metaDatasetVersion)
	if err != nil {
		return nil, err
	}
	if storedVersion != datasetVersion {
		// Findings depend on the dataset, so stored results are stale.
		force = true
	}

	if err := au.pruneMissing(absRoot, paths); err != nil {
		return nil, err
	}

	rep := &AuditReport{
		Root:           absRoot,
		DatasetVersion: datasetVersion,
		StartedAt:      started,
	}

	var errs []error
	for start := 0; start < len(paths); start += auditBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+auditBatchSize, len(paths))
		au.auditBatch(ctx, absRoot, paths[start:end], force, rep, &errs)
	}

	if err := au.store.SetMeta(metaDatasetVersion, datasetVersion); err != nil {
		errs = append(errs, err)
	}
	if err := au.fillTotals(rep); err != nil {
		errs = append(errs, err)
	}

	sort.Slice(rep.Files, func(i, j int) bool { return rep.Files[i].Path < rep.Files[j].Path })
	rep.Duration = time.Since(started)

	if len(errs) > 0 {
		return rep, fmt.Errorf("audit had %d error(s): %w", len(errs), errs[0])
	}
	return rep, nil
}

// auditItem holds everything a worker needs for one file.
type auditItem struct {
	rel     string
	lang    string
	content []byte
	hash    string
}

// auditBatch processes one slice of paths through three phases:
//
//	Phase A (serial):   read, hash, replay unchanged files from the store.
//	Phase B (parallel): analyze via worker pool.
//	Phase C (serial):   persist results, fold into the report.
func (au *Auditor) auditBatch(ctx context.Context, root string, paths []string, force bool, rep *AuditReport, errs *[]error) {
	// ---- Phase A ----
	var items []auditItem
	for _, path := range paths {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		lang, ok := parser.LanguageForPath(path)
		if !ok {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// Listed then deleted; the next audit prunes its row.
				continue
			}
			*errs = append(*errs, fmt.Errorf("read %s: %w", rel, err))
			rep.Files = append(rep.Files, FileReport{Path: rel, Language: lang, Err: err.Error()})
			rep.FilesFailed++
			continue
		}
		hash := contentHash(content)
		if !force {
			existing, err := au.store.FileByPath(rel)
			if err != nil {
				*errs = append(*errs, err)
			} else if existing != nil && existing.Hash == hash {
				fr, err := au.replayStored(existing)
				if err != nil {
					*errs = append(*errs, err)
				} else {
					rep.Files = append(rep.Files, fr)
					rep.FilesSkipped++
					continue
				}
			}
		}
		items = append(items, auditItem{rel: rel, lang: lang, content: content, hash: hash})
	}
	if len(items) == 0 {
		return
	}

	// ---- Phase B ----
	numWorkers := min(au.workers, len(items))

	workCh := make(chan auditItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type result struct {
		item     auditItem
		analysis *Analysis
		err      error
	}
	resultCh := make(chan result, len(items))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workCh {
				fileCtx, cancel := context.WithTimeout(ctx, au.fileTimeout)
				doc := NewMemDocument("file://"+filepath.Join(root, item.rel), item.lang, item.content)
				an, err := au.analyzer.Analyze(fileCtx, doc)
				cancel()
				resultCh <- result{item: item, analysis: an, err: err}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C ----
	now := time.Now()
	for res := range resultCh {
		if res.err != nil {
			*errs = append(*errs, fmt.Errorf("analyze %s: %w", res.item.rel, res.err))
			rep.Files = append(rep.Files, FileReport{Path: res.item.rel, Language: res.item.lang, Err: res.err.Error()})
			rep.FilesFailed++
			continue
		}
		an := res.analysis
		if an.TimedOut {
			// Persisting an empty result would hide the file behind its
			// hash on the next run.
			*errs = append(*errs, fmt.Errorf("analyze %s: %w", res.item.rel, ErrTimeout))
			rep.Files = append(rep.Files, FileReport{Path: res.item.rel, Language: an.Language, Err: "parse timed out"})
			rep.FilesFailed++
			continue
		}

		file := &store.File{
			Path:         res.item.rel,
			Language:     an.Language,
			Hash:         res.item.hash,
			SizeBytes:    int64(len(res.item.content)),
			LineCount:    countLines(res.item.content),
			FeatureCount: len(an.Features),
			Partial:      an.Partial,
			LastAudited:  now,
		}
		if err := au.store.SaveResult(file, storedFindings(an.Findings)); err != nil {
			*errs = append(*errs, err)
			rep.Files = append(rep.Files, FileReport{Path: res.item.rel, Language: an.Language, Err: err.Error()})
			rep.FilesFailed++
			continue
		}
		rep.Files = append(rep.Files, FileReport{
			Path:     res.item.rel,
			Language: an.Language,
			Findings: an.Findings,
			Features: len(an.Features),
			Lines:    file.LineCount,
			Partial:  an.Partial,
		})
		rep.FilesScanned++
	}
}

// replayStored rebuilds a FileReport from persisted rows.
func (au *Auditor) replayStored(f *store.File) (FileReport, error) {
	stored, err := au.store.FindingsByFile(f.ID)
	if err != nil {
		return FileReport{}, err
	}
	return FileReport{
		Path:      f.Path,
		Language:  f.Language,
		Findings:  publicFindings(stored),
		Features:  f.FeatureCount,
		Lines:     f.LineCount,
		Partial:   f.Partial,
		FromCache: true,
	}, nil
}

// pruneMissing drops store rows for files no longer in the tree.
func (au *Auditor) pruneMissing(root string, paths []string) error {
	current := make(map[string]bool, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			rel = p
		}
		current[rel] = true
	}
	stored, err := au.store.Paths()
	if err != nil {
		return err
	}
	for _, p := range stored {
		if !current[p] {
			if err := au.store.DeleteFile(p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (au *Auditor) fillTotals(rep *AuditReport) error {
	byReason, err := au.store.CountsByReason()
	if err != nil {
		return err
	}
	rep.TotalsByReason = make(map[Reason]int, len(byReason))
	for k, v := range byReason {
		rep.TotalsByReason[Reason(k)] = v
	}

	bySeverity, err := au.store.CountsBySeverity()
	if err != nil {
		return err
	}
	rep.TotalsBySeverity = make(map[Severity]int, len(bySeverity))
	for k, v := range bySeverity {
		rep.TotalsBySeverity[Severity(k)] = v
	}

	top, err := au.store.TopFeatures(10)
	if err != nil {
		return err
	}
	for _, fc := range top {
		rep.TopFeatures = append(rep.TopFeatures, FeatureTally{
			FeatureID:   fc.FeatureID,
			FeatureName: fc.FeatureName,
			Count:       fc.Count,
		})
	}
	return nil
}

// DiscoverFiles lists the supported source files under root. Inside a
// git repository git ls-files keeps .gitignore semantics; otherwise a
// filesystem walk skips hidden directories and common build output.
func DiscoverFiles(root string) ([]string, error) {
	paths, err := gitListFiles(root)
	if err != nil {
		return walkListFiles(root)
	}
	return paths, nil
}

// gitListFiles lists tracked plus untracked-but-not-ignored files.
func gitListFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		abs := filepath.Join(root, line)
		if _, ok := parser.LanguageForPath(abs); ok {
			paths = append(paths, abs)
		}
	}
	return paths, nil
}

// walkListFiles is the non-git fallback.
func walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := parser.LanguageForPath(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

func contentHash(content []byte) string {
	return fmt.Sprintf("%016x", highwayhash.Sum64(content, auditHashKey))
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := bytes.Count(content, []byte("\n"))
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}

func storedFindings(findings []Finding) []store.Finding {
	out := make([]store.Finding, 0, len(findings))
	for _, f := range findings {
		out = append(out, store.Finding{
			FeatureID:   f.FeatureID,
			FeatureName: f.FeatureName,
			Reason:      string(f.Reason),
			Severity:    string(f.Severity),
			Message:     f.Message,
			Rule:        f.Rule,
			StartLine:   f.Range.Start.Line,
			StartCol:    f.Range.Start.Column,
			EndLine:     f.Range.End.Line,
			EndCol:      f.Range.End.Column,
		})
	}
	return out
}

func publicFindings(stored []store.Finding) []Finding {
	if len(stored) == 0 {
		return nil
	}
	out := make([]Finding, 0, len(stored))
	for _, f := range stored {
		out = append(out, Finding{
			Range: Range{
				Start: Position{Line: f.StartLine, Column: f.StartCol},
				End:   Position{Line: f.EndLine, Column: f.EndCol},
			},
			FeatureID:   f.FeatureID,
			FeatureName: f.FeatureName,
			Reason:      Reason(f.Reason),
			Severity:    Severity(f.Severity),
			Message:     f.Message,
			Rule:        f.Rule,
		})
	}
	return out
}

// WriteJSON writes the report as indented JSON.
func (r *AuditReport) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteMarkdown writes a human-readable summary: run counters, totals,
// the feature leaderboard, then per-file findings. Positions render
// one-based.
func (r *AuditReport) WriteMarkdown(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Baseline audit\n\n")
	fmt.Fprintf(&b, "- Root: `%s`\n", r.Root)
	if r.DatasetVersion != "" {
		fmt.Fprintf(&b, "- Dataset: %s\n", r.DatasetVersion)
	}
	fmt.Fprintf(&b, "- Date: %s\n", r.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Files: %d analyzed, %d unchanged, %d failed\n\n",
		r.FilesScanned, r.FilesSkipped, r.FilesFailed)

	if len(r.TotalsByReason) > 0 {
		fmt.Fprintf(&b, "## Totals\n\n")
		fmt.Fprintf(&b, "| Reason | Findings |\n|---|---|\n")
		for _, reason := range []Reason{ReasonUnsupported, ReasonLimited, ReasonRule} {
			if n := r.TotalsByReason[reason]; n > 0 {
				fmt.Fprintf(&b, "| %s | %d |\n", reason, n)
			}
		}
		fmt.Fprintf(&b, "\n")
	}

	if len(r.TopFeatures) > 0 {
		fmt.Fprintf(&b, "## Most flagged features\n\n")
		fmt.Fprintf(&b, "| Feature | Findings |\n|---|---|\n")
		for _, ft := range r.TopFeatures {
			fmt.Fprintf(&b, "| %s (`%s`) | %d |\n", ft.FeatureName, ft.FeatureID, ft.Count)
		}
		fmt.Fprintf(&b, "\n")
	}

	wroteHeader := false
	for _, fr := range r.Files {
		if len(fr.Findings) == 0 && fr.Err == "" {
			continue
		}
		if !wroteHeader {
			fmt.Fprintf(&b, "## Findings\n\n")
			wroteHeader = true
		}
		fmt.Fprintf(&b, "### %s\n\n", fr.Path)
		if fr.Err != "" {
			fmt.Fprintf(&b, "- audit failed: %s\n", fr.Err)
		}
		for _, f := range fr.Findings {
			fmt.Fprintf(&b, "- `%d:%d` **%s** %s",
				f.Range.Start.Line+1, f.Range.Start.Column+1, f.Severity, f.Message)
			if f.FeatureID != "" {
				fmt.Fprintf(&b, " (`%s`)", f.FeatureID)
			}
			if f.Rule != "" {
				fmt.Fprintf(&b, " [%s]", f.Rule)
			}
			fmt.Fprintf(&b, "\n")
		}
		fmt.Fprintf(&b, "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
