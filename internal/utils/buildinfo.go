package utils

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime/debug"
	"strings"
)

const (
	unknownVersion     = "unknown"
	developmentVersion = "(devel)"
	gitExecutableName  = "git"
)

// gitDescribeArguments lists the describe invocations tried in order: an exact tag first, then a long description.
var gitDescribeArguments = [][]string{
	{"describe", "--tags", "--exact-match"},
	{"describe", "--tags", "--long", "--dirty"},
}

// GetApplicationVersion reports the module version embedded at build time.
// Development builds fall back to describing the enclosing git checkout.
func GetApplicationVersion() string {
	buildInfo, buildInfoAvailable := debug.ReadBuildInfo()
	if buildInfoAvailable && buildInfo.Main.Version != "" && buildInfo.Main.Version != developmentVersion {
		return buildInfo.Main.Version
	}

	repositoryDirectory, repositoryError := findGitDirectory(".")
	if repositoryError != nil {
		return unknownVersion
	}
	for _, describeArguments := range gitDescribeArguments {
		// #nosec G204
		describeCommand := exec.Command(gitExecutableName, describeArguments...)
		describeCommand.Dir = repositoryDirectory
		describeOutput, describeError := describeCommand.Output()
		if describeError == nil && len(describeOutput) > 0 {
			return strings.TrimSpace(string(describeOutput))
		}
	}
	return unknownVersion
}

// findGitDirectory walks upward from startDirectory and returns the first
// directory that contains a .git folder.
func findGitDirectory(startDirectory string) (string, error) {
	absoluteStartDirectory, errorAbsolute := filepath.Abs(startDirectory)
	if errorAbsolute != nil {
		return "", fmt.Errorf("failed to get absolute path for %s: %w", startDirectory, errorAbsolute)
	}

	for currentDirectory := absoluteStartDirectory; ; {
		fileInformation, errorStat := os.Stat(filepath.Join(currentDirectory, GitDirectoryName))
		if errorStat == nil && fileInformation.IsDir() {
			return currentDirectory, nil
		}
		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			return "", fmt.Errorf(".git directory not found in or above %s", absoluteStartDirectory)
		}
		currentDirectory = parentDirectory
	}
}
