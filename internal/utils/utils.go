// Package utils contains general helper functions used across the tre tool.
package utils

import (
	"path/filepath"
	"strings"
)

// Ignore file constants used across the project.
const (
	// IgnoreFileName is the name of the project's ignore file.
	IgnoreFileName = ".ignore"
	// GitIgnoreFileName is the name of the Git ignore file.
	GitIgnoreFileName = ".gitignore"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"
	// GitKeepFileName is the placeholder Git uses to track otherwise empty directories.
	GitKeepFileName = ".gitkeep"
)

const pathSegmentSeparator = "/"

// DeduplicatePatterns removes duplicate patterns from a slice while preserving order.
// The first occurrence of each unique pattern is kept.
func DeduplicatePatterns(patterns []string) []string {
	encounteredPatterns := make(map[string]struct{})
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if _, exists := encounteredPatterns[pattern]; !exists {
			encounteredPatterns[pattern] = struct{}{}
			result = append(result, pattern)
		}
	}
	return result
}

// CleanPatterns trims surrounding whitespace, drops empty patterns and removes duplicates.
func CleanPatterns(patterns []string) []string {
	trimmedPatterns := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if trimmedPattern := strings.TrimSpace(pattern); trimmedPattern != "" {
			trimmedPatterns = append(trimmedPatterns, trimmedPattern)
		}
	}
	return DeduplicatePatterns(trimmedPatterns)
}

// RelativePathOrSelf calculates the slash-separated relative path from root to fullPath.
// Both paths are cleaned first, so a relative root works with paths produced by walking it.
// Returns "." if fullPath and root resolve to the same directory and the cleaned
// fullPath if relative calculation fails.
func RelativePathOrSelf(fullPath, root string) string {
	cleanPath := filepath.Clean(fullPath)
	cleanRoot := filepath.Clean(root)

	if cleanPath == cleanRoot {
		return "."
	}

	relativePath, relErr := filepath.Rel(cleanRoot, cleanPath)
	if relErr != nil {
		return cleanPath
	}
	return filepath.ToSlash(relativePath)
}

// SplitRelativePath breaks a slash-separated relative path into its segments.
// The root path "." has no segments.
func SplitRelativePath(relativePath string) []string {
	normalizedPath := strings.ReplaceAll(relativePath, "\\", pathSegmentSeparator)
	if normalizedPath == "." || normalizedPath == "" {
		return nil
	}
	return strings.Split(normalizedPath, pathSegmentSeparator)
}

// IsPlaceholderFile reports whether a file name is a keep-directory marker.
func IsPlaceholderFile(fileName string) bool {
	return fileName == GitKeepFileName
}

// ShouldIgnoreByPath reports whether a path relative to the processing root
// matches one of the exclusion patterns given on the command line or in the
// configuration file. The candidate path and every pattern are converted to
// forward-slash form before evaluation. Patterns
// are split into hierarchical segments, allowing nested directory prefixes such
// as "subdir/node_modules/" and "subdir/.clasp.json" to match. A pattern ending
// with a trailing slash matches the specified directory and all descendant paths,
// preventing recursion into that directory. Other patterns match an exact path
// where each segment is evaluated with filepath.Match semantics.
func ShouldIgnoreByPath(relativePath string, ignorePatterns []string) bool {
	normalizedPath := strings.ReplaceAll(relativePath, "\\", pathSegmentSeparator)
	pathSegments := strings.Split(normalizedPath, pathSegmentSeparator)
	lastSegment := ""
	if len(pathSegments) > 0 {
		lastSegment = pathSegments[len(pathSegments)-1]
	}

	for _, patternValue := range ignorePatterns {
		normalizedPattern := strings.ReplaceAll(patternValue, "\\", pathSegmentSeparator)

		isDirectoryPattern := strings.HasSuffix(normalizedPattern, pathSegmentSeparator)
		trimmedPattern := strings.TrimSuffix(normalizedPattern, pathSegmentSeparator)
		patternSegments := strings.Split(trimmedPattern, pathSegmentSeparator)

		if isDirectoryPattern {
			if len(pathSegments) >= len(patternSegments) && segmentsMatch(pathSegments[:len(patternSegments)], patternSegments) {
				return true
			}
			continue
		}

		if len(patternSegments) == 1 {
			isMatched, matchError := filepath.Match(patternSegments[0], lastSegment)
			if matchError == nil && isMatched {
				return true
			}
			continue
		}

		if len(pathSegments) == len(patternSegments) && segmentsMatch(pathSegments, patternSegments) {
			return true
		}
	}

	return false
}

// segmentsMatch reports whether each pattern segment matches the corresponding
// path segment using filepath.Match semantics.
func segmentsMatch(pathSegments, patternSegments []string) bool {
	for segmentIndex, patternSegment := range patternSegments {
		isMatched, matchError := filepath.Match(patternSegment, pathSegments[segmentIndex])
		if matchError != nil || !isMatched {
			return false
		}
	}
	return true
}
