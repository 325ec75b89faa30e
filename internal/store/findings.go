package store

import "fmt"

const findingCols = `id, file_id, feature_id, feature_name, reason, severity, message, rule,
	start_line, start_col, end_line, end_col`

func (s *Store) scanFinding(scanner interface{ Scan(...any) error }) (Finding, error) {
	var f Finding
	return f, scanner.Scan(
		&f.ID, &f.FileID, &f.FeatureID, &f.FeatureName,
		&f.Reason, &f.Severity, &f.Message, &f.Rule,
		&f.StartLine, &f.StartCol, &f.EndLine, &f.EndCol,
	)
}

func (s *Store) queryFindings(query string, args ...any) ([]Finding, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var findings []Finding
	for rows.Next() {
		f, err := s.scanFinding(rows)
		if err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// FindingsByFile returns a file's findings in document order.
func (s *Store) FindingsByFile(fileID int64) ([]Finding, error) {
	findings, err := s.queryFindings(
		"SELECT "+findingCols+" FROM findings WHERE file_id = ? ORDER BY start_line, start_col, id", fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("findings by file: %w", err)
	}
	return findings, nil
}

// FindingsByReason returns every finding with the given reason, ordered
// by file then position.
func (s *Store) FindingsByReason(reason string) ([]Finding, error) {
	findings, err := s.queryFindings(
		"SELECT "+findingCols+" FROM findings WHERE reason = ? ORDER BY file_id, start_line, start_col, id", reason,
	)
	if err != nil {
		return nil, fmt.Errorf("findings by reason: %w", err)
	}
	return findings, nil
}

// CountsByReason returns how many findings each reason produced.
func (s *Store) CountsByReason() (map[string]int, error) {
	return s.countsBy("reason")
}

// CountsBySeverity returns how many findings each severity produced.
func (s *Store) CountsBySeverity() (map[string]int, error) {
	return s.countsBy("severity")
}

func (s *Store) countsBy(column string) (map[string]int, error) {
	rows, err := s.db.Query("SELECT " + column + ", COUNT(*) FROM findings GROUP BY " + column)
	if err != nil {
		return nil, fmt.Errorf("counts by %s: %w", column, err)
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

// TopFeatures returns the feature ids with the most findings, busiest
// first, ties broken by id.
func (s *Store) TopFeatures(limit int) ([]FeatureCount, error) {
	rows, err := s.db.Query(
		`SELECT feature_id, feature_name, COUNT(*) AS n FROM findings
		 WHERE feature_id != ''
		 GROUP BY feature_id, feature_name
		 ORDER BY n DESC, feature_id ASC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top features: %w", err)
	}
	defer rows.Close()
	var out []FeatureCount
	for rows.Next() {
		var fc FeatureCount
		if err := rows.Scan(&fc.FeatureID, &fc.FeatureName, &fc.Count); err != nil {
			return nil, fmt.Errorf("scan feature count: %w", err)
		}
		out = append(out, fc)
	}
	return out, rows.Err()
}
