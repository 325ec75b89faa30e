package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// testFile builds a minimal file row for path.
func testFile(path, lang, hash string) *File {
	return &File{
		Path:        path,
		Language:    lang,
		Hash:        hash,
		SizeBytes:   128,
		LineCount:   9,
		Partial:     false,
		LastAudited: time.Now().Truncate(time.Second),
	}
}

func testFinding(featureID, reason string, line int) Finding {
	return Finding{
		FeatureID:   featureID,
		FeatureName: featureID,
		Reason:      reason,
		Severity:    "warning",
		Message:     featureID + " flagged",
		StartLine:   line,
		StartCol:    0,
		EndLine:     line,
		EndCol:      5,
	}
}

// =============================================================================
// Schema & lifecycle
// =============================================================================

func TestNewStore_CreatesSchema(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"files", "findings", "metadata"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}

	version, err := s.Meta(metaSchemaVersion)
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, version)
}

func TestNewStore_ResetsIncompatibleSchema(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.SaveResult(testFile("src/app.css", "css", "h1"), []Finding{
		testFinding("css.properties.float", "unsupported", 3),
	}))
	require.NoError(t, s.SetMeta(metaSchemaVersion, "0"))
	require.NoError(t, s.Close())

	s, err = NewStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	files, err := s.Files()
	require.NoError(t, err)
	assert.Empty(t, files, "incompatible store is rebuilt empty")

	version, err := s.Meta(metaSchemaVersion)
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, version)
}

func TestMeta_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	missing, err := s.Meta("dataset_version")
	require.NoError(t, err)
	assert.Equal(t, "", missing)

	require.NoError(t, s.SetMeta("dataset_version", "2025.8.1"))
	require.NoError(t, s.SetMeta("dataset_version", "2025.9.0"))

	got, err := s.Meta("dataset_version")
	require.NoError(t, err)
	assert.Equal(t, "2025.9.0", got)
}

// =============================================================================
// Files & findings
// =============================================================================

func TestSaveResult_InsertsFileAndFindings(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	f := testFile("src/app.css", "css", "h1")
	f.FeatureCount = 2
	findings := []Finding{
		testFinding("css.properties.float", "unsupported", 5),
		testFinding("css.properties.zoom", "unsupported", 2),
	}
	require.NoError(t, s.SaveResult(f, findings))
	require.Positive(t, f.ID)
	require.Positive(t, findings[0].ID)
	assert.Equal(t, f.ID, findings[0].FileID)

	got, err := s.FileByPath("src/app.css")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, "css", got.Language)
	assert.Equal(t, "h1", got.Hash)
	assert.Equal(t, int64(128), got.SizeBytes)
	assert.Equal(t, 9, got.LineCount)
	assert.Equal(t, 2, got.FeatureCount)
	assert.WithinDuration(t, f.LastAudited, got.LastAudited, time.Second)

	stored, err := s.FindingsByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "css.properties.zoom", stored[0].FeatureID, "findings come back in document order")
	assert.Equal(t, "css.properties.float", stored[1].FeatureID)
}

func TestSaveResult_ReplacesPreviousFindings(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	f := testFile("src/app.css", "css", "h1")
	require.NoError(t, s.SaveResult(f, []Finding{
		testFinding("css.properties.float", "unsupported", 1),
		testFinding("css.properties.zoom", "unsupported", 2),
	}))
	firstID := f.ID

	updated := testFile("src/app.css", "css", "h2")
	require.NoError(t, s.SaveResult(updated, []Finding{
		testFinding("css.properties.float", "unsupported", 9),
	}))
	assert.Equal(t, firstID, updated.ID, "re-auditing keeps the file row")

	got, err := s.FileByPath("src/app.css")
	require.NoError(t, err)
	assert.Equal(t, "h2", got.Hash)

	stored, err := s.FindingsByFile(firstID)
	require.NoError(t, err)
	require.Len(t, stored, 1, "old findings are replaced, not appended")
	assert.Equal(t, 9, stored[0].StartLine)
}

func TestFileByPath_MissingIsNil(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	f, err := s.FileByPath("src/never-audited.css")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestDeleteFile(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	f := testFile("src/app.css", "css", "h1")
	require.NoError(t, s.SaveResult(f, []Finding{testFinding("css.properties.float", "unsupported", 1)}))

	require.NoError(t, s.DeleteFile("src/app.css"))

	got, err := s.FileByPath("src/app.css")
	require.NoError(t, err)
	assert.Nil(t, got)

	stored, err := s.FindingsByFile(f.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)

	require.NoError(t, s.DeleteFile("src/unknown.css"), "deleting an unaudited path is a no-op")
}

func TestFilesAndPaths_OrderedByPath(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	require.NoError(t, s.SaveResult(testFile("src/z.css", "css", "h1"), nil))
	require.NoError(t, s.SaveResult(testFile("src/a.css", "css", "h2"), nil))
	require.NoError(t, s.SaveResult(testFile("lib/m.ts", "typescript", "h3"), nil))

	paths, err := s.Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/m.ts", "src/a.css", "src/z.css"}, paths)

	files, err := s.Files()
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "lib/m.ts", files[0].Path)
}

// =============================================================================
// Aggregates
// =============================================================================

func seedAggregates(t *testing.T, s *Store) {
	t.Helper()
	require.NoError(t, s.SaveResult(testFile("src/a.css", "css", "h1"), []Finding{
		testFinding("css.properties.float", "unsupported", 1),
		testFinding("css.properties.float", "unsupported", 7),
		testFinding("css.properties.text-wrap", "limited-support", 2),
	}))
	rule := Finding{Reason: "rule", Severity: "error", Message: "banned", Rule: "no-float", StartLine: 3}
	require.NoError(t, s.SaveResult(testFile("src/b.css", "css", "h2"), []Finding{
		testFinding("css.properties.float", "unsupported", 4),
		rule,
	}))
}

func TestCountsByReasonAndSeverity(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	seedAggregates(t, s)

	byReason, err := s.CountsByReason()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"unsupported": 3, "limited-support": 1, "rule": 1}, byReason)

	bySeverity, err := s.CountsBySeverity()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"warning": 4, "error": 1}, bySeverity)
}

func TestTopFeatures(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	seedAggregates(t, s)

	top, err := s.TopFeatures(10)
	require.NoError(t, err)
	require.Len(t, top, 2, "rule findings without a feature id stay off the leaderboard")
	assert.Equal(t, FeatureCount{FeatureID: "css.properties.float", FeatureName: "css.properties.float", Count: 3}, top[0])
	assert.Equal(t, 1, top[1].Count)

	limited, err := s.TopFeatures(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "css.properties.float", limited[0].FeatureID)
}

func TestFindingsByReason(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	seedAggregates(t, s)

	rule, err := s.FindingsByReason("rule")
	require.NoError(t, err)
	require.Len(t, rule, 1)
	assert.Equal(t, "no-float", rule[0].Rule)
	assert.Empty(t, rule[0].FeatureID)
}
