package collector

import (
	"slices"
	"strings"

	"github.com/temirov/tre/internal/types"
	"github.com/temirov/tre/internal/utils"
)

// SortKey orders entries so that each directory is immediately followed by its
// files and then by its subdirectories' subtrees.
//
// GroupSegments is the directory an entry is grouped under: a file's parent, but
// a directory's own path. Comparing group paths segment by segment keeps every
// subtree contiguous even when sibling names contain characters that sort below
// the path separator.
type SortKey struct {
	GroupSegments  []string
	IsNotDirectory bool
	Name           string
}

// NewSortKey derives the sort key of an entry.
func NewSortKey(entry types.Entry) SortKey {
	groupSegments := utils.SplitRelativePath(entry.RelativePath)
	if !entry.IsDirectory && len(groupSegments) > 0 {
		groupSegments = groupSegments[:len(groupSegments)-1]
	}
	return SortKey{
		GroupSegments:  groupSegments,
		IsNotDirectory: !entry.IsDirectory,
		Name:           entry.Name,
	}
}

// Compare returns -1, 0 or +1 depending on whether key sorts before, with or after other.
func (key SortKey) Compare(other SortKey) int {
	if groupOrder := slices.Compare(key.GroupSegments, other.GroupSegments); groupOrder != 0 {
		return groupOrder
	}
	if key.IsNotDirectory != other.IsNotDirectory {
		if key.IsNotDirectory {
			return 1
		}
		return -1
	}
	return strings.Compare(key.Name, other.Name)
}

// SortEntries orders entries in place by their SortKey.
func SortEntries(entries []types.Entry) {
	keys := make(map[string]SortKey, len(entries))
	for _, entry := range entries {
		keys[entry.Path] = NewSortKey(entry)
	}
	slices.SortStableFunc(entries, func(left, right types.Entry) int {
		return keys[left.Path].Compare(keys[right.Path])
	})
}
