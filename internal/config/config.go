// Package config loads application configuration and parses ignore files into gitignore patterns.
package config

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/temirov/tre/internal/utils"
)

const (
	// commentPrefix starts a comment line in an ignore file.
	commentPrefix = "#"

	warningCloseIgnoreFileFormat = "Warning: failed to close %s: %v\n"
	errorLoadIgnoreFileFormat    = "loading %s from %s: %w"
)

// IgnoreOptions controls which ignore files apply to a traversal.
type IgnoreOptions struct {
	UseGitignore  bool
	UseIgnoreFile bool
	MaxDepth      int
}

// LoadIgnoreFilePatterns reads an ignore file and returns its patterns scoped to domain,
// the slash-separated segments of the directory holding the file relative to the traversal root.
// Blank lines and comments are skipped. A missing file yields no patterns.
//
// #nosec G304
func LoadIgnoreFilePatterns(ignoreFilePath string, domain []string) ([]gitignore.Pattern, error) {
	fileHandle, openFileError := os.Open(ignoreFilePath)
	if openFileError != nil {
		if os.IsNotExist(openFileError) {
			return nil, nil
		}
		return nil, openFileError
	}
	defer func() {
		closeError := fileHandle.Close()
		if closeError != nil {
			fmt.Fprintf(os.Stderr, warningCloseIgnoreFileFormat, ignoreFilePath, closeError)
		}
	}()

	var ignorePatterns []gitignore.Pattern
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.HasPrefix(line, commentPrefix) || strings.TrimSpace(line) == "" {
			continue
		}
		ignorePatterns = append(ignorePatterns, gitignore.ParsePattern(line, domain))
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, scanError
	}
	return ignorePatterns, nil
}

// LoadRecursiveIgnorePatterns walks rootDirectoryPath down to options.MaxDepth and collects the
// patterns of every utils.GitIgnoreFileName and utils.IgnoreFileName found on the way. Each
// pattern is scoped to the directory holding its file, so it follows gitignore semantics:
// a bare name matches at any depth below that directory, a leading or inner slash anchors it
// there, and later patterns (deeper directories, .ignore over .gitignore) take precedence.
// utils.GitDirectoryName directories below the root are not searched and directories that
// cannot be read are skipped.
func LoadRecursiveIgnorePatterns(rootDirectoryPath string, options IgnoreOptions) ([]gitignore.Pattern, error) {
	var sourceFileNames []string
	if options.UseGitignore {
		sourceFileNames = append(sourceFileNames, utils.GitIgnoreFileName)
	}
	if options.UseIgnoreFile {
		sourceFileNames = append(sourceFileNames, utils.IgnoreFileName)
	}
	if len(sourceFileNames) == 0 {
		return nil, nil
	}

	var aggregatedPatterns []gitignore.Pattern
	walkFunction := func(currentDirectoryPath string, directoryEntry fs.DirEntry, walkError error) error {
		if walkError != nil {
			if currentDirectoryPath == rootDirectoryPath {
				return walkError
			}
			return nil
		}
		if !directoryEntry.IsDir() {
			return nil
		}
		if directoryEntry.Name() == utils.GitDirectoryName && currentDirectoryPath != rootDirectoryPath {
			return filepath.SkipDir
		}

		domain := utils.SplitRelativePath(utils.RelativePathOrSelf(currentDirectoryPath, rootDirectoryPath))
		if len(domain) >= options.MaxDepth {
			return filepath.SkipDir
		}
		for _, sourceFileName := range sourceFileNames {
			loadedPatterns, loadError := LoadIgnoreFilePatterns(filepath.Join(currentDirectoryPath, sourceFileName), domain)
			if loadError != nil {
				return fmt.Errorf(errorLoadIgnoreFileFormat, sourceFileName, currentDirectoryPath, loadError)
			}
			aggregatedPatterns = append(aggregatedPatterns, loadedPatterns...)
		}
		return nil
	}

	if walkError := filepath.WalkDir(rootDirectoryPath, walkFunction); walkError != nil {
		return nil, walkError
	}
	return aggregatedPatterns, nil
}

// LoadIgnoreMatcher returns a matcher over the ignore files below rootDirectoryPath.
func LoadIgnoreMatcher(rootDirectoryPath string, options IgnoreOptions) (gitignore.Matcher, error) {
	ignorePatterns, loadError := LoadRecursiveIgnorePatterns(rootDirectoryPath, options)
	if loadError != nil {
		return nil, loadError
	}
	return gitignore.NewMatcher(ignorePatterns), nil
}
