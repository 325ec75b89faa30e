package store

import "time"

// File is one audited file's row.
type File struct {
	ID           int64
	Path         string
	Language     string
	Hash         string
	SizeBytes    int64
	LineCount    int
	FeatureCount int
	Partial      bool
	LastAudited  time.Time
}

// Finding is one persisted finding. Reason and Severity are stored as
// their wire strings so the schema never chases the enum types.
type Finding struct {
	ID          int64
	FileID      int64
	FeatureID   string
	FeatureName string
	Reason      string
	Severity    string
	Message     string
	Rule        string
	StartLine   int
	StartCol    int
	EndLine     int
	EndCol      int
}

// FeatureCount is one row of the feature leaderboard: how many findings
// a feature id produced across the workspace.
type FeatureCount struct {
	FeatureID   string
	FeatureName string
	Count       int
}
