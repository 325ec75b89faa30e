// Package rules carries the built-in rule scripts bundled with the
// baselint CLI. Each .risor file is one rule; the engine runs them
// after core analysis.
package rules

import "embed"

//go:embed *.risor
var FS embed.FS
