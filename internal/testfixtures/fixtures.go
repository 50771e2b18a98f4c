// Package testfixtures builds directory trees used by tests across packages.
package testfixtures

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ScenarioRootRelativePath is where BuildScenario places the sample tree below its base directory.
const ScenarioRootRelativePath = "tests/case1"

// ScenarioPlainOutput is the rendering of the sample tree at depth five without highlighting.
const ScenarioPlainOutput = `tests/case1
├── .gitignore
├── file_0.txt
├── file_1.txt
├── file_2.txt
└── dir_0_0
    ├── file_0.txt
    ├── dir_1_0
    │   ├── dir_2_0
    │   │   ├── file_0.txt
    │   │   └── file_1.txt
    │   └── dir_2_1
    └── dir_1_1
        ├── file_0.txt
        ├── file_1.txt
        └── dir_2_0
            ├── file_0.txt
            ├── dir_3_0
            │   └── file_0.txt
            └── dir_3_1
`

// scenarioFiles lists every file of the sample tree relative to its root.
// The .git directory and .gitkeep placeholders never appear in the rendering.
var scenarioFiles = []string{
	".gitignore",
	"file_0.txt",
	"file_1.txt",
	"file_2.txt",
	".git/HEAD",
	".git/refs/heads/main",
	"dir_0_0/file_0.txt",
	"dir_0_0/dir_1_0/dir_2_0/file_0.txt",
	"dir_0_0/dir_1_0/dir_2_0/file_1.txt",
	"dir_0_0/dir_1_0/dir_2_1/.gitkeep",
	"dir_0_0/dir_1_1/file_0.txt",
	"dir_0_0/dir_1_1/file_1.txt",
	"dir_0_0/dir_1_1/dir_2_0/file_0.txt",
	"dir_0_0/dir_1_1/dir_2_0/dir_3_0/file_0.txt",
	"dir_0_0/dir_1_1/dir_2_0/dir_3_1/.gitkeep",
}

// BuildScenario creates the sample tree below baseDirectory and returns the absolute path of its root.
func BuildScenario(testingHandle testing.TB, baseDirectory string) string {
	testingHandle.Helper()
	rootDirectory := filepath.Join(baseDirectory, filepath.FromSlash(ScenarioRootRelativePath))
	WriteFiles(testingHandle, rootDirectory, scenarioFiles...)
	return rootDirectory
}

// WriteFiles creates each slash-separated relative path below rootDirectory.
// Paths ending in "/" become empty directories; other paths become empty files.
func WriteFiles(testingHandle testing.TB, rootDirectory string, relativePaths ...string) {
	testingHandle.Helper()
	for _, relativePath := range relativePaths {
		targetPath := filepath.Join(rootDirectory, filepath.FromSlash(relativePath))
		if strings.HasSuffix(relativePath, "/") {
			if makeDirectoryError := os.MkdirAll(targetPath, 0o755); makeDirectoryError != nil {
				testingHandle.Fatalf("mkdir %s: %v", targetPath, makeDirectoryError)
			}
			continue
		}
		if makeDirectoryError := os.MkdirAll(filepath.Dir(targetPath), 0o755); makeDirectoryError != nil {
			testingHandle.Fatalf("mkdir %s: %v", filepath.Dir(targetPath), makeDirectoryError)
		}
		if writeError := os.WriteFile(targetPath, nil, 0o644); writeError != nil {
			testingHandle.Fatalf("write %s: %v", targetPath, writeError)
		}
	}
}
