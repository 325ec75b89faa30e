package store

import (
	"database/sql"
	"fmt"
)

const fileCols = `id, path, language, hash, size_bytes, line_count, feature_count, partial, last_audited`

// SaveResult writes one file's audit outcome in a single transaction:
// the file row is inserted or updated and its findings are replaced
// wholesale. file.ID and the findings' IDs are filled in on success.
func (s *Store) SaveResult(file *File, findings []Finding) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save result: begin: %w", err)
	}
	defer tx.Rollback()

	var fileID int64
	err = tx.QueryRow("SELECT id FROM files WHERE path = ?", file.Path).Scan(&fileID)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.Exec(
			`INSERT INTO files (path, language, hash, size_bytes, line_count, feature_count, partial, last_audited)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			file.Path, file.Language, file.Hash, file.SizeBytes, file.LineCount,
			file.FeatureCount, file.Partial, file.LastAudited,
		)
		if err != nil {
			return fmt.Errorf("save result: insert file %s: %w", file.Path, err)
		}
		fileID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("save result: last insert id: %w", err)
		}
	case err != nil:
		return fmt.Errorf("save result: file id: %w", err)
	default:
		if _, err := tx.Exec(
			`UPDATE files SET language = ?, hash = ?, size_bytes = ?, line_count = ?, feature_count = ?, partial = ?, last_audited = ?
			 WHERE id = ?`,
			file.Language, file.Hash, file.SizeBytes, file.LineCount,
			file.FeatureCount, file.Partial, file.LastAudited, fileID,
		); err != nil {
			return fmt.Errorf("save result: update file %s: %w", file.Path, err)
		}
		if _, err := tx.Exec("DELETE FROM findings WHERE file_id = ?", fileID); err != nil {
			return fmt.Errorf("save result: clear findings: %w", err)
		}
	}
	file.ID = fileID

	for i := range findings {
		f := &findings[i]
		f.FileID = fileID
		res, err := tx.Exec(
			`INSERT INTO findings (file_id, feature_id, feature_name, reason, severity, message, rule,
				start_line, start_col, end_line, end_col)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.FileID, f.FeatureID, f.FeatureName, f.Reason, f.Severity, f.Message, f.Rule,
			f.StartLine, f.StartCol, f.EndLine, f.EndCol,
		)
		if err != nil {
			return fmt.Errorf("save result: insert finding: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("save result: finding id: %w", err)
		}
		f.ID = id
	}

	return tx.Commit()
}

func (s *Store) scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	return f, scanner.Scan(
		&f.ID, &f.Path, &f.Language, &f.Hash,
		&f.SizeBytes, &f.LineCount, &f.FeatureCount, &f.Partial, &f.LastAudited,
	)
}

// FileByPath returns the audited file at path, or nil when the path has
// never been audited.
func (s *Store) FileByPath(path string) (*File, error) {
	f, err := s.scanFile(s.db.QueryRow(
		"SELECT "+fileCols+" FROM files WHERE path = ?", path,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// Files returns every audited file ordered by path.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT " + fileCols + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := s.scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Paths returns every audited path, ordered.
func (s *Store) Paths() ([]string, error) {
	rows, err := s.db.Query("SELECT path FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("paths: %w", err)
	}
	defer rows.Close()
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// DeleteFile transactionally removes a file and its findings. Removing
// a path that was never audited is a no-op.
func (s *Store) DeleteFile(path string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("delete file: begin: %w", err)
	}
	defer tx.Rollback()

	var fileID int64
	err = tx.QueryRow("SELECT id FROM files WHERE path = ?", path).Scan(&fileID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete file: file id: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM findings WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("delete file: findings: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM files WHERE id = ?", fileID); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return tx.Commit()
}
