// Package collector enumerates filesystem entries below a root and orders them for rendering.
package collector

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"go.uber.org/zap"

	"github.com/temirov/tre/internal/types"
	"github.com/temirov/tre/internal/utils"
)

const (
	// errorStatRootFormat is used when the traversal root cannot be inspected.
	errorStatRootFormat = "stat root %s: %w"
	// errorReadRootFormat is used when the traversal root cannot be listed.
	errorReadRootFormat = "reading root %s: %w"

	skippedEntryMessage = "skipping unreadable entry"
	pathLogField        = "path"
)

// ErrNegativeDepth reports a maximum depth below zero.
var ErrNegativeDepth = errors.New("max depth must not be negative")

// Collector walks a directory down to MaxDepth. It leaves out the .git directory at
// the root unless IncludeGit is set, keep-directory placeholder files, paths matched
// by IgnoreMatcher (gitignore semantics) and paths matched by ExclusionPatterns.
type Collector struct {
	MaxDepth          int
	IncludeGit        bool
	IgnoreMatcher     gitignore.Matcher
	ExclusionPatterns []string
	Logger            *zap.Logger
}

// Entries returns a lazy sequence of the entries below rootPath in walk order.
// Entries that cannot be read are yielded with a non-nil error and an Entry carrying only the path.
// The sequence walks the filesystem each time it is ranged over.
func (collector *Collector) Entries(rootPath string) iter.Seq2[types.Entry, error] {
	return func(yield func(types.Entry, error) bool) {
		cleanRootPath := filepath.Clean(rootPath)
		walkFunction := func(currentPath string, directoryEntry fs.DirEntry, walkError error) error {
			cleanPath := filepath.Clean(currentPath)
			if walkError != nil {
				if !yield(types.Entry{Path: cleanPath}, walkError) {
					return filepath.SkipAll
				}
				return nil
			}

			relativePath := utils.RelativePathOrSelf(cleanPath, cleanRootPath)
			pathSegments := utils.SplitRelativePath(relativePath)
			depth := len(pathSegments)
			isDirectory := directoryEntry.IsDir()
			if depth > 0 && collector.excludes(pathSegments, relativePath, directoryEntry.Name(), isDirectory) {
				if isDirectory {
					return filepath.SkipDir
				}
				return nil
			}

			entry := types.Entry{
				Path:             cleanPath,
				RelativePath:     relativePath,
				Name:             directoryEntry.Name(),
				IsDirectory:      isDirectory,
				LinksToDirectory: depth > 0 && linksToDirectory(cleanPath, directoryEntry),
				Depth:            depth,
			}
			if !yield(entry, nil) {
				return filepath.SkipAll
			}
			if isDirectory && depth >= collector.MaxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		_ = filepath.WalkDir(walkRoot(rootPath), walkFunction)
	}
}

// Collect gathers the entries below rootPath and returns them in rendering order.
// A root that cannot be read is an error; any other unreadable entry is dropped.
func (collector *Collector) Collect(rootPath string) ([]types.Entry, error) {
	if collector.MaxDepth < 0 {
		return nil, ErrNegativeDepth
	}
	if _, statError := os.Stat(rootPath); statError != nil {
		return nil, fmt.Errorf(errorStatRootFormat, rootPath, statError)
	}

	return collector.drain(collector.Entries(rootPath), rootPath)
}

// drain gathers the entries of sequence and sorts them. An error on rootPath is
// returned; errors on other entries are logged and the entries dropped.
func (collector *Collector) drain(sequence iter.Seq2[types.Entry, error], rootPath string) ([]types.Entry, error) {
	cleanRootPath := filepath.Clean(rootPath)
	var entries []types.Entry
	for entry, entryError := range sequence {
		if entryError != nil {
			if entry.Path == cleanRootPath {
				return nil, fmt.Errorf(errorReadRootFormat, rootPath, entryError)
			}
			collector.logger().Debug(skippedEntryMessage, zap.String(pathLogField, entry.Path), zap.Error(entryError))
			continue
		}
		entries = append(entries, entry)
	}

	SortEntries(entries)
	return entries, nil
}

// excludes reports whether a non-root entry is filtered out of the tree.
func (collector *Collector) excludes(pathSegments []string, relativePath string, name string, isDirectory bool) bool {
	if !collector.IncludeGit && pathSegments[0] == utils.GitDirectoryName {
		return true
	}
	if !isDirectory && utils.IsPlaceholderFile(name) {
		return true
	}
	if collector.IgnoreMatcher != nil && collector.IgnoreMatcher.Match(pathSegments, isDirectory) {
		return true
	}
	return utils.ShouldIgnoreByPath(relativePath, collector.ExclusionPatterns)
}

// linksToDirectory reports whether a walked entry is a symbolic link whose target is a directory.
func linksToDirectory(path string, directoryEntry fs.DirEntry) bool {
	if directoryEntry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	targetInformation, targetError := os.Stat(path)
	return targetError == nil && targetInformation.IsDir()
}

func (collector *Collector) logger() *zap.Logger {
	if collector.Logger == nil {
		return zap.NewNop()
	}
	return collector.Logger
}

// walkRoot returns the path handed to filepath.WalkDir. A root that is a symbolic
// link to a directory gets a trailing separator so the walk descends into the target.
func walkRoot(rootPath string) string {
	linkInformation, linkError := os.Lstat(rootPath)
	if linkError != nil || linkInformation.Mode()&fs.ModeSymlink == 0 {
		return rootPath
	}
	targetInformation, targetError := os.Stat(rootPath)
	if targetError != nil || !targetInformation.IsDir() {
		return rootPath
	}
	return rootPath + string(filepath.Separator)
}
