package collector_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/stretchr/testify/require"

	"github.com/temirov/tre/internal/collector"
	"github.com/temirov/tre/internal/testfixtures"
	"github.com/temirov/tre/internal/types"
)

var scenarioOrder = []string{
	".",
	".gitignore",
	"file_0.txt",
	"file_1.txt",
	"file_2.txt",
	"dir_0_0",
	"dir_0_0/file_0.txt",
	"dir_0_0/dir_1_0",
	"dir_0_0/dir_1_0/dir_2_0",
	"dir_0_0/dir_1_0/dir_2_0/file_0.txt",
	"dir_0_0/dir_1_0/dir_2_0/file_1.txt",
	"dir_0_0/dir_1_0/dir_2_1",
	"dir_0_0/dir_1_1",
	"dir_0_0/dir_1_1/file_0.txt",
	"dir_0_0/dir_1_1/file_1.txt",
	"dir_0_0/dir_1_1/dir_2_0",
	"dir_0_0/dir_1_1/dir_2_0/file_0.txt",
	"dir_0_0/dir_1_1/dir_2_0/dir_3_0",
	"dir_0_0/dir_1_1/dir_2_0/dir_3_0/file_0.txt",
	"dir_0_0/dir_1_1/dir_2_0/dir_3_1",
}

func relativePaths(entries []types.Entry) []string {
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		paths = append(paths, entry.RelativePath)
	}
	return paths
}

func TestCollectOrdersScenario(t *testing.T) {
	rootDirectory := testfixtures.BuildScenario(t, t.TempDir())

	entries, collectError := (&collector.Collector{MaxDepth: 5}).Collect(rootDirectory)
	require.NoError(t, collectError)
	require.Equal(t, scenarioOrder, relativePaths(entries))

	require.Equal(t, rootDirectory, entries[0].Path)
	require.Equal(t, 0, entries[0].Depth)
	require.True(t, entries[0].IsDirectory)
	for _, entry := range entries[1:] {
		require.Equal(t, filepath.Base(entry.Path), entry.Name)
		require.Equal(t, filepath.Join(rootDirectory, filepath.FromSlash(entry.RelativePath)), entry.Path)
	}
	deepest := entries[len(entries)-2]
	require.Equal(t, "file_0.txt", deepest.Name)
	require.Equal(t, 5, deepest.Depth)
	require.False(t, deepest.IsDirectory)
}

func TestCollectHonorsMaxDepth(t *testing.T) {
	rootDirectory := testfixtures.BuildScenario(t, t.TempDir())

	testCases := []struct {
		name     string
		maxDepth int
		expected []string
	}{
		{
			name:     "root only",
			maxDepth: 0,
			expected: []string{"."},
		},
		{
			name:     "direct children",
			maxDepth: 1,
			expected: []string{".", ".gitignore", "file_0.txt", "file_1.txt", "file_2.txt", "dir_0_0"},
		},
		{
			name:     "grandchildren",
			maxDepth: 2,
			expected: []string{
				".", ".gitignore", "file_0.txt", "file_1.txt", "file_2.txt",
				"dir_0_0", "dir_0_0/file_0.txt", "dir_0_0/dir_1_0", "dir_0_0/dir_1_1",
			},
		},
		{
			name:     "deeper than the tree",
			maxDepth: 50,
			expected: scenarioOrder,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			entries, collectError := (&collector.Collector{MaxDepth: testCase.maxDepth}).Collect(rootDirectory)
			require.NoError(t, collectError)
			require.Equal(t, testCase.expected, relativePaths(entries))
			for _, entry := range entries {
				require.LessOrEqual(t, entry.Depth, testCase.maxDepth)
			}
		})
	}
}

func TestCollectFiltering(t *testing.T) {
	testCases := []struct {
		name              string
		files             []string
		includeGit        bool
		ignorePatterns    map[string][]string
		exclusionPatterns []string
		expected          []string
	}{
		{
			name:     "git directory and placeholders are excluded",
			files:    []string{".git/HEAD", "empty/.gitkeep", "keep.txt"},
			expected: []string{".", "keep.txt", "empty"},
		},
		{
			name:       "git directory is listed when included",
			files:      []string{".git/HEAD", "keep.txt"},
			includeGit: true,
			expected:   []string{".", "keep.txt", ".git", ".git/HEAD"},
		},
		{
			name:     "nested git names are not special",
			files:    []string{"vendor/.git", "vendor/lib.go"},
			expected: []string{".", "vendor", "vendor/.git", "vendor/lib.go"},
		},
		{
			name:     "hidden entries are included",
			files:    []string{".env", ".config/settings.json", "visible.txt"},
			expected: []string{".", ".env", "visible.txt", ".config", ".config/settings.json"},
		},
		{
			name:              "exclusion patterns exclude files and whole directories",
			files:             []string{"build/out.bin", "debug.log", "main.go", "src/app.log", "src/app.go"},
			exclusionPatterns: []string{"build/", "*.log"},
			expected:          []string{".", "main.go", "src", "src/app.go"},
		},
		{
			name:           "nested ignore patterns apply at every depth below their directory",
			files:          []string{"sub/a.log", "sub/deep/b.log", "sub/deep/c.txt", "top.log"},
			ignorePatterns: map[string][]string{"sub": {"*.log"}},
			expected:       []string{".", "top.log", "sub", "sub/deep", "sub/deep/c.txt"},
		},
		{
			name:           "leading slash anchors a pattern to its directory",
			files:          []string{"build/x.go", "src/build/y.go"},
			ignorePatterns: map[string][]string{"": {"/build"}},
			expected:       []string{".", "src", "src/build", "src/build/y.go"},
		},
		{
			name:           "directory pattern matches directories at any depth",
			files:          []string{"node_modules/a.js", "web/node_modules/b.js", "web/index.js", "docs/node_modules"},
			ignorePatterns: map[string][]string{"": {"node_modules/"}},
			expected:       []string{".", "docs", "docs/node_modules", "web", "web/index.js"},
		},
		{
			name:           "negated pattern keeps a file",
			files:          []string{"a.log", "keep.log"},
			ignorePatterns: map[string][]string{"": {"*.log", "!keep.log"}},
			expected:       []string{".", "keep.log"},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			rootDirectory := t.TempDir()
			testfixtures.WriteFiles(t, rootDirectory, testCase.files...)

			entryCollector := &collector.Collector{
				MaxDepth:          types.DefaultMaxDepth,
				IncludeGit:        testCase.includeGit,
				ExclusionPatterns: testCase.exclusionPatterns,
			}
			if testCase.ignorePatterns != nil {
				entryCollector.IgnoreMatcher = gitignore.NewMatcher(parsePatterns(testCase.ignorePatterns))
			}
			entries, collectError := entryCollector.Collect(rootDirectory)
			require.NoError(t, collectError)
			require.Equal(t, testCase.expected, relativePaths(entries))
		})
	}
}

// parsePatterns scopes each list of ignore lines to the slash-separated directory it is keyed by.
func parsePatterns(linesByDirectory map[string][]string) []gitignore.Pattern {
	var patterns []gitignore.Pattern
	for directory, lines := range linesByDirectory {
		var domain []string
		if directory != "" {
			domain = strings.Split(directory, "/")
		}
		for _, line := range lines {
			patterns = append(patterns, gitignore.ParsePattern(line, domain))
		}
	}
	return patterns
}

func TestCollectKeepsSubtreesContiguous(t *testing.T) {
	rootDirectory := t.TempDir()
	testfixtures.WriteFiles(t, rootDirectory, "a/x.txt", "a-b/y.txt", "a.txt", "a/z/w.txt", "+plus/p.txt")

	entries, collectError := (&collector.Collector{MaxDepth: 5}).Collect(rootDirectory)
	require.NoError(t, collectError)
	require.Equal(t, []string{
		".",
		"a.txt",
		"+plus",
		"+plus/p.txt",
		"a",
		"a/x.txt",
		"a/z",
		"a/z/w.txt",
		"a-b",
		"a-b/y.txt",
	}, relativePaths(entries))
}

func TestCollectFilesBeforeDirectories(t *testing.T) {
	rootDirectory := testfixtures.BuildScenario(t, t.TempDir())

	entries, collectError := (&collector.Collector{MaxDepth: 5}).Collect(rootDirectory)
	require.NoError(t, collectError)

	childrenByParent := make(map[string][]types.Entry)
	var parents []string
	for _, entry := range entries[1:] {
		parentPath := filepath.Dir(entry.Path)
		if _, seen := childrenByParent[parentPath]; !seen {
			parents = append(parents, parentPath)
		}
		childrenByParent[parentPath] = append(childrenByParent[parentPath], entry)
	}

	for _, parentPath := range parents {
		children := childrenByParent[parentPath]
		for index := 1; index < len(children); index++ {
			previous, current := children[index-1], children[index]
			require.False(t, previous.IsDirectory && !current.IsDirectory, "directory %s listed before file %s", previous.Path, current.Path)
			if previous.IsDirectory == current.IsDirectory {
				require.Less(t, previous.Name, current.Name)
			}
		}
	}
}

func TestCollectSkipsUnreadableDirectories(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	rootDirectory := t.TempDir()
	testfixtures.WriteFiles(t, rootDirectory, "locked/secret.txt", "open/visible.txt")
	lockedDirectory := filepath.Join(rootDirectory, "locked")
	require.NoError(t, os.Chmod(lockedDirectory, 0o000))
	t.Cleanup(func() {
		_ = os.Chmod(lockedDirectory, 0o755)
	})

	entries, collectError := (&collector.Collector{MaxDepth: 5}).Collect(rootDirectory)
	require.NoError(t, collectError)
	require.Equal(t, []string{".", "locked", "open", "open/visible.txt"}, relativePaths(entries))
}

func TestCollectErrors(t *testing.T) {
	t.Run("negative depth", func(t *testing.T) {
		_, collectError := (&collector.Collector{MaxDepth: -1}).Collect(t.TempDir())
		require.ErrorIs(t, collectError, collector.ErrNegativeDepth)
	})

	t.Run("missing root", func(t *testing.T) {
		missingRoot := filepath.Join(t.TempDir(), "missing")
		_, collectError := (&collector.Collector{MaxDepth: 1}).Collect(missingRoot)
		require.Error(t, collectError)
		require.ErrorIs(t, collectError, os.ErrNotExist)
	})
}

func TestCollectFollowsLinkedRoot(t *testing.T) {
	baseDirectory := t.TempDir()
	targetDirectory := filepath.Join(baseDirectory, "target")
	testfixtures.WriteFiles(t, targetDirectory, "inside.txt")
	linkPath := filepath.Join(baseDirectory, "link")
	if symlinkError := os.Symlink(targetDirectory, linkPath); symlinkError != nil {
		t.Skipf("symlinks unavailable: %v", symlinkError)
	}

	entries, collectError := (&collector.Collector{MaxDepth: 2}).Collect(linkPath)
	require.NoError(t, collectError)
	require.Equal(t, []string{".", "inside.txt"}, relativePaths(entries))
	require.Equal(t, linkPath, entries[0].Path)
	require.True(t, entries[0].IsDirectory)
	require.Equal(t, filepath.Join(linkPath, "inside.txt"), entries[1].Path)
}

func TestEntriesStopsWhenConsumerStops(t *testing.T) {
	rootDirectory := testfixtures.BuildScenario(t, t.TempDir())

	var visited int
	for _, entryError := range (&collector.Collector{MaxDepth: 5}).Entries(rootDirectory) {
		require.NoError(t, entryError)
		visited++
		if visited == 3 {
			break
		}
	}
	require.Equal(t, 3, visited)
}

func TestEntriesYieldsDirectoryRemovedDuringWalk(t *testing.T) {
	rootDirectory := t.TempDir()
	testfixtures.WriteFiles(t, rootDirectory, "gone/inner.txt", "kept.txt")
	removedDirectory := filepath.Join(rootDirectory, "gone")

	var failedPaths []string
	var listedPaths []string
	for entry, entryError := range (&collector.Collector{MaxDepth: 5}).Entries(rootDirectory) {
		if entryError != nil {
			failedPaths = append(failedPaths, entry.Path)
			continue
		}
		listedPaths = append(listedPaths, entry.RelativePath)
		if entry.Path == removedDirectory {
			require.NoError(t, os.RemoveAll(removedDirectory))
		}
	}
	require.Equal(t, []string{removedDirectory}, failedPaths)
	require.Equal(t, []string{".", "gone", "kept.txt"}, listedPaths)
}

func TestCollectListsLinkedDirectoriesAsLeaves(t *testing.T) {
	rootDirectory := t.TempDir()
	testfixtures.WriteFiles(t, rootDirectory, "real/inside.txt", "z.txt")
	if symlinkError := os.Symlink(filepath.Join(rootDirectory, "real"), filepath.Join(rootDirectory, "alias")); symlinkError != nil {
		t.Skipf("symlinks unavailable: %v", symlinkError)
	}

	entries, collectError := (&collector.Collector{MaxDepth: 5}).Collect(rootDirectory)
	require.NoError(t, collectError)
	require.Equal(t, []string{".", "alias", "z.txt", "real", "real/inside.txt"}, relativePaths(entries))

	linkedEntry := entries[1]
	require.False(t, linkedEntry.IsDirectory)
	require.True(t, linkedEntry.LinksToDirectory)
	for _, entry := range entries {
		if entry.RelativePath != "alias" {
			require.False(t, entry.LinksToDirectory, entry.RelativePath)
		}
	}
}
