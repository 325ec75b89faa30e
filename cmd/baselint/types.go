package main

import "github.com/mhollis/baselint"

// CLIResult is the top-level JSON envelope for command output.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIFileCheck is one checked file in `baselint check` output.
// Positions inside Findings are zero-based.
type CLIFileCheck struct {
	Path     string             `json:"path"`
	Language string             `json:"language"`
	Findings []baselint.Finding `json:"findings"`
	Features int                `json:"features"`
	Partial  bool               `json:"partial,omitempty"`
}
