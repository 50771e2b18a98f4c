// Package types defines every cross‑package data structure used by the tre CLI.
package types

const (
	// CurrentDirectoryToken is the root path shorthand resolved to the working directory name.
	CurrentDirectoryToken = "."

	DefaultMaxDepth = 5

	ColorModeAuto   = "auto"
	ColorModeAlways = "always"
	ColorModeNever  = "never"
)

// Entry is one filesystem node encountered during traversal.
// LinksToDirectory marks a symbolic link whose target is a directory. Such an entry
// is ordered and rendered as a leaf but displayed like a directory.
type Entry struct {
	Path             string
	RelativePath     string
	Name             string
	IsDirectory      bool
	LinksToDirectory bool
	Depth            int
}

// IsRoot reports whether the entry is the traversal root.
func (entry Entry) IsRoot() bool {
	return entry.Depth == 0
}

// RenderOptions controls presentation attributes of the rendered tree.
type RenderOptions struct {
	Colorize bool
}
