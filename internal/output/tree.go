// Package output renders ordered directory entries as a text tree.
package output

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/temirov/tre/internal/types"
)

const (
	treeBranchConnector = "├── "
	treeLastConnector   = "└── "
	treeBranchPadding   = "│   "
	treeLastPadding     = "    "
	lineTerminator      = "\n"

	// directoryColor is ANSI blue.
	directoryColor = "4"

	errorMissingParentFormat  = "%w: %s"
	errorResolveWorkingFormat = "resolving current directory: %w"
)

// ErrMissingParent reports an entry whose parent directory is not part of the rendered entries.
var ErrMissingParent = errors.New("parent directory missing from tree")

// RenderTree renders entries, ordered as produced by the collector, into one line per entry.
// rootPath is the path token the traversal started from and becomes the first line.
func RenderTree(entries []types.Entry, rootPath string, options types.RenderOptions) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	treeRenderer := treeRenderer{
		rootPath:    rootPath,
		highlighter: newHighlighter(options.Colorize),
		directories: make(map[string]struct{}),
	}
	for _, entry := range entries {
		if entry.IsDirectory {
			treeRenderer.directories[entry.Path] = struct{}{}
		}
	}

	lines := make([]string, 0, len(entries))
	var levels openLevels
	for _, entry := range slices.Backward(entries) {
		nextLevels, line, stepError := treeRenderer.step(levels, entry)
		if stepError != nil {
			return "", stepError
		}
		levels = nextLevels
		lines = append(lines, line)
	}
	slices.Reverse(lines)
	return strings.Join(lines, ""), nil
}

type treeRenderer struct {
	rootPath    string
	highlighter highlighter
	directories map[string]struct{}
}

// step renders one entry of the backward pass and returns the level state for the entry above it.
func (renderer treeRenderer) step(levels openLevels, entry types.Entry) (openLevels, string, error) {
	if entry.IsDirectory {
		levels = levels.close(entry.Depth+1, entry.Path)
	}

	if entry.IsRoot() {
		rootName, rootNameError := renderer.rootDisplayName()
		if rootNameError != nil {
			return nil, "", rootNameError
		}
		if entry.IsDirectory {
			rootName = renderer.highlighter.directory(rootName)
		}
		return levels, rootName + lineTerminator, nil
	}

	var line strings.Builder
	for level := 1; level < entry.Depth; level++ {
		if levels.isOpen(level) {
			line.WriteString(treeBranchPadding)
		} else {
			line.WriteString(treeLastPadding)
		}
	}

	parentPath := filepath.Dir(entry.Path)
	if _, known := renderer.directories[parentPath]; !known {
		return nil, "", fmt.Errorf(errorMissingParentFormat, ErrMissingParent, entry.Path)
	}
	if levels.holds(entry.Depth, parentPath) {
		line.WriteString(treeBranchConnector)
	} else {
		line.WriteString(treeLastConnector)
		levels = levels.open(entry.Depth, parentPath)
	}

	if entry.IsDirectory || entry.LinksToDirectory {
		line.WriteString(renderer.highlighter.directory(entry.Name))
	} else {
		line.WriteString(entry.Name)
	}
	line.WriteString(lineTerminator)
	return levels, line.String(), nil
}

// rootDisplayName returns the root path verbatim, except for paths naming the current
// directory ("." or "./") which are shown as the name of the resolved working directory.
func (renderer treeRenderer) rootDisplayName() (string, error) {
	if filepath.Clean(renderer.rootPath) != types.CurrentDirectoryToken {
		return renderer.rootPath, nil
	}
	absolutePath, absoluteError := filepath.Abs(renderer.rootPath)
	if absoluteError != nil {
		return "", fmt.Errorf(errorResolveWorkingFormat, absoluteError)
	}
	resolvedPath, resolveError := filepath.EvalSymlinks(absolutePath)
	if resolveError != nil {
		return "", fmt.Errorf(errorResolveWorkingFormat, resolveError)
	}
	return filepath.Base(resolvedPath), nil
}

// openLevels records, per indentation level, the directory that still has
// children further down the tree. Level L is the column of entries at depth L
// and belongs to their parent. An empty string marks a closed level.
// Updates return a copy so a state is never shared between steps.
type openLevels []string

func (levels openLevels) isOpen(level int) bool {
	return level < len(levels) && levels[level] != ""
}

func (levels openLevels) holds(level int, directoryPath string) bool {
	return level < len(levels) && levels[level] == directoryPath
}

func (levels openLevels) open(level int, directoryPath string) openLevels {
	updated := make(openLevels, max(len(levels), level+1))
	copy(updated, levels)
	updated[level] = directoryPath
	return updated
}

func (levels openLevels) close(level int, directoryPath string) openLevels {
	if !levels.holds(level, directoryPath) {
		return levels
	}
	return levels.open(level, "")
}

// highlighter styles directory names. The lipgloss renderer is pinned to the
// ANSI profile so the escape sequences do not depend on the output terminal.
type highlighter struct {
	enabled bool
	style   lipgloss.Style
}

func newHighlighter(enabled bool) highlighter {
	styleRenderer := lipgloss.NewRenderer(io.Discard)
	styleRenderer.SetColorProfile(termenv.ANSI)
	return highlighter{
		enabled: enabled,
		style: styleRenderer.NewStyle().
			Foreground(lipgloss.Color(directoryColor)).
			TabWidth(lipgloss.NoTabConversion),
	}
}

func (highlighter highlighter) directory(name string) string {
	if !highlighter.enabled {
		return name
	}
	return highlighter.style.Render(name)
}
