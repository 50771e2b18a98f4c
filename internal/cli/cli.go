// Package cli provides the command line interface.
package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/temirov/tre/internal/collector"
	"github.com/temirov/tre/internal/config"
	"github.com/temirov/tre/internal/output"
	"github.com/temirov/tre/internal/services/clipboard"
	"github.com/temirov/tre/internal/types"
	"github.com/temirov/tre/internal/utils"
)

const (
	depthFlagName         = "depth"
	depthFlagShorthand    = "d"
	colorFlagName         = "color"
	exclusionFlagName     = "e"
	noGitignoreFlagName   = "no-gitignore"
	noIgnoreFlagName      = "no-ignore"
	includeGitFlagName    = "git"
	copyFlagName          = "copy"
	configFlagName        = "config"
	initFlagName          = "init"
	forceFlagName         = "force"
	verboseFlagName       = "verbose"
	versionFlagName       = "version"
	versionTemplate       = "tre version: %s\n"
	initializedTemplate   = "configuration written to %s\n"
	noColorEnvironmentKey = "NO_COLOR"
	rootUse               = "tre [path]"
	rootShortDescription  = "render a directory as a tree"
	rootLongDescription   = `tre prints the files and directories below a path as a tree.
Files are listed before subdirectories and directory names are highlighted.
The .git directory and .gitkeep placeholders are left out; patterns from
.gitignore and .ignore files are honored unless disabled.

A lone numeric argument is read as the depth when --depth is not given and no
file of that name exists, so "tre 2" renders the current directory two levels deep.`
	rootUsageExample = `  # Render the current directory five levels deep
  tre

  # Render a directory three levels deep
  tre -d 3 ./internal

  # Render the current directory two levels deep
  tre 2

  # Write a default configuration file into the current directory
  tre --init`

	depthFlagDescription       = "maximum depth below the root"
	colorFlagDescription       = "highlight directories: auto, always, or never"
	exclusionFlagDescription   = "exclude path pattern"
	noGitignoreFlagDescription = "do not use .gitignore"
	noIgnoreFlagDescription    = "do not use .ignore"
	includeGitFlagDescription  = "include git directory"
	copyFlagDescription        = "copy the rendered tree to the clipboard"
	configFlagDescription      = "configuration file to load instead of ./" + utils.ConfigFileName
	initFlagDescription        = "write a default configuration file (--init for ./" + utils.ConfigFileName + ", --init=global for ~/" + utils.GlobalConfigDirectoryName + ") and exit"
	forceFlagDescription       = "overwrite an existing configuration file with --init"
	verboseFlagDescription     = "log skipped entries"
	versionFlagDescription     = "display application version"

	invalidColorModeMessage = "invalid color value '%s'; expected auto, always, or never"
	invalidDepthMessage     = "invalid depth %d; depth must not be negative"
	errorPathMissingFormat  = "path '%s' does not exist"
	errorStatFormat         = "stat failed for '%s': %w"
	errorLoadIgnoreFormat   = "loading ignore patterns for '%s': %w"
	errorCollectFormat      = "collecting entries for '%s': %w"
	errorRenderFormat       = "rendering tree for '%s': %w"
	errorLoadConfigFormat   = "loading configuration: %w"
)

// Dependencies supplies the collaborators of the root command.
type Dependencies struct {
	Logger   *zap.Logger
	LogLevel *zap.AtomicLevel
	Copier   clipboard.Copier
}

// Execute runs the tre application.
func Execute(logger *zap.Logger, logLevel zap.AtomicLevel) error {
	rootCommand := NewRootCommand(Dependencies{
		Logger:   logger,
		LogLevel: &logLevel,
		Copier:   clipboard.NewService(),
	})
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.Execute()
}

// commandOptions stores the values bound to the root command's flags.
type commandOptions struct {
	depth             int
	colorMode         string
	exclusionPatterns []string
	disableGitignore  bool
	disableIgnoreFile bool
	includeGit        bool
	copyToClipboard   bool
	configPath        string
	initTarget        string
	force             bool
	verbose           bool
	showVersion       bool
}

// treeSettings is the outcome of merging defaults, configuration files and flags.
type treeSettings struct {
	rootPath        string
	maxDepth        int
	colorMode       string
	copyToClipboard bool
	includeGit      bool
	exclusions      []string
	ignoreOptions   config.IgnoreOptions
}

// NewRootCommand builds the root Cobra command.
func NewRootCommand(dependencies Dependencies) *cobra.Command {
	var options commandOptions

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		Example:       rootUsageExample,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if options.showVersion {
				fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				return nil
			}
			if options.verbose && dependencies.LogLevel != nil {
				dependencies.LogLevel.SetLevel(zap.DebugLevel)
			}
			if command.Flags().Changed(initFlagName) {
				return runInit(command.OutOrStdout(), options)
			}
			rootPath := types.CurrentDirectoryToken
			if len(arguments) > 0 {
				rootPath = arguments[0]
			}
			settings, settingsError := resolveSettings(command, options, rootPath)
			if settingsError != nil {
				return settingsError
			}
			return runTree(command.OutOrStdout(), dependencies, settings)
		},
	}

	flags := rootCommand.Flags()
	flags.IntVarP(&options.depth, depthFlagName, depthFlagShorthand, types.DefaultMaxDepth, depthFlagDescription)
	flags.StringVar(&options.colorMode, colorFlagName, types.ColorModeAuto, colorFlagDescription)
	flags.StringArrayVarP(&options.exclusionPatterns, exclusionFlagName, exclusionFlagName, nil, exclusionFlagDescription)
	registerBooleanFlag(flags, &options.disableGitignore, noGitignoreFlagName, noGitignoreFlagDescription)
	registerBooleanFlag(flags, &options.disableIgnoreFile, noIgnoreFlagName, noIgnoreFlagDescription)
	registerBooleanFlag(flags, &options.includeGit, includeGitFlagName, includeGitFlagDescription)
	registerBooleanFlag(flags, &options.copyToClipboard, copyFlagName, copyFlagDescription)
	flags.StringVar(&options.configPath, configFlagName, "", configFlagDescription)
	flags.StringVar(&options.initTarget, initFlagName, string(config.InitTargetLocal), initFlagDescription)
	flags.Lookup(initFlagName).NoOptDefVal = string(config.InitTargetLocal)
	registerBooleanFlag(flags, &options.force, forceFlagName, forceFlagDescription)
	registerBooleanFlag(flags, &options.verbose, verboseFlagName, verboseFlagDescription)
	registerBooleanFlag(flags, &options.showVersion, versionFlagName, versionFlagDescription)
	return rootCommand
}

// runInit writes the default configuration file.
func runInit(writer io.Writer, options commandOptions) error {
	destinationPath, initError := config.InitializeConfiguration(config.InitOptions{
		Target: config.InitTarget(strings.ToLower(options.initTarget)),
		Force:  options.force,
	})
	if initError != nil {
		return initError
	}
	fmt.Fprintf(writer, initializedTemplate, destinationPath)
	return nil
}

// resolveSettings layers explicit flags over configuration files over built-in defaults.
func resolveSettings(command *cobra.Command, options commandOptions, rootPath string) (treeSettings, error) {
	applicationConfiguration, loadError := config.LoadApplicationConfiguration(config.LoadOptions{
		ExplicitFilePath: options.configPath,
	})
	if loadError != nil {
		return treeSettings{}, fmt.Errorf(errorLoadConfigFormat, loadError)
	}
	treeConfiguration := applicationConfiguration.Tree
	flags := command.Flags()

	depthExplicit := flags.Changed(depthFlagName)
	maxDepth := options.depth
	if !depthExplicit {
		maxDepth = config.IntOrDefault(treeConfiguration.Depth, types.DefaultMaxDepth)
	}
	rootPath, maxDepth = applyDepthShorthand(rootPath, maxDepth, depthExplicit)
	if maxDepth < 0 {
		return treeSettings{}, fmt.Errorf(invalidDepthMessage, maxDepth)
	}

	colorMode := options.colorMode
	if !flags.Changed(colorFlagName) && treeConfiguration.Color != "" {
		colorMode = treeConfiguration.Color
	}
	colorMode = strings.ToLower(colorMode)
	if !isSupportedColorMode(colorMode) {
		return treeSettings{}, fmt.Errorf(invalidColorModeMessage, colorMode)
	}

	pathConfiguration := treeConfiguration.Paths
	settings := treeSettings{
		rootPath:        rootPath,
		maxDepth:        maxDepth,
		colorMode:       colorMode,
		copyToClipboard: options.copyToClipboard,
		includeGit:      options.includeGit,
		exclusions:      utils.CleanPatterns(append(append([]string{}, pathConfiguration.Exclude...), options.exclusionPatterns...)),
		ignoreOptions: config.IgnoreOptions{
			UseGitignore:  !options.disableGitignore,
			UseIgnoreFile: !options.disableIgnoreFile,
			MaxDepth:      maxDepth,
		},
	}
	if !flags.Changed(copyFlagName) {
		settings.copyToClipboard = config.BoolOrDefault(treeConfiguration.Clipboard, false)
	}
	if !flags.Changed(noGitignoreFlagName) {
		settings.ignoreOptions.UseGitignore = config.BoolOrDefault(pathConfiguration.UseGitignore, true)
	}
	if !flags.Changed(noIgnoreFlagName) {
		settings.ignoreOptions.UseIgnoreFile = config.BoolOrDefault(pathConfiguration.UseIgnoreFile, true)
	}
	if !flags.Changed(includeGitFlagName) {
		settings.includeGit = config.BoolOrDefault(pathConfiguration.IncludeGit, false)
	}
	return settings, nil
}

// applyDepthShorthand reads a numeric path argument as the depth of the current directory.
// It applies only when the depth was not given explicitly and no entry with that name exists.
func applyDepthShorthand(rootPath string, maxDepth int, depthExplicit bool) (string, int) {
	if depthExplicit {
		return rootPath, maxDepth
	}
	shorthandDepth, parseError := strconv.Atoi(rootPath)
	if parseError != nil || shorthandDepth < 0 {
		return rootPath, maxDepth
	}
	if _, statError := os.Stat(rootPath); statError == nil {
		return rootPath, maxDepth
	}
	return types.CurrentDirectoryToken, shorthandDepth
}

// runTree collects, renders and prints the tree described by settings.
func runTree(writer io.Writer, dependencies Dependencies, settings treeSettings) error {
	rootInformation, statError := os.Stat(settings.rootPath)
	if statError != nil {
		if os.IsNotExist(statError) {
			return fmt.Errorf(errorPathMissingFormat, settings.rootPath)
		}
		return fmt.Errorf(errorStatFormat, settings.rootPath, statError)
	}

	var ignoreMatcher gitignore.Matcher
	if rootInformation.IsDir() {
		loadedMatcher, loadError := config.LoadIgnoreMatcher(settings.rootPath, settings.ignoreOptions)
		if loadError != nil {
			return fmt.Errorf(errorLoadIgnoreFormat, settings.rootPath, loadError)
		}
		ignoreMatcher = loadedMatcher
	}

	entryCollector := &collector.Collector{
		MaxDepth:          settings.maxDepth,
		IncludeGit:        settings.includeGit,
		IgnoreMatcher:     ignoreMatcher,
		ExclusionPatterns: settings.exclusions,
		Logger:            dependencies.Logger,
	}
	entries, collectError := entryCollector.Collect(settings.rootPath)
	if collectError != nil {
		return fmt.Errorf(errorCollectFormat, settings.rootPath, collectError)
	}

	colorize := shouldColorize(settings.colorMode, writer)
	renderedTree, renderError := output.RenderTree(entries, settings.rootPath, types.RenderOptions{Colorize: colorize})
	if renderError != nil {
		return fmt.Errorf(errorRenderFormat, settings.rootPath, renderError)
	}
	if _, writeError := io.WriteString(writer, renderedTree); writeError != nil {
		return writeError
	}

	if !settings.copyToClipboard || dependencies.Copier == nil {
		return nil
	}
	plainTree := renderedTree
	if colorize {
		plainTree, renderError = output.RenderTree(entries, settings.rootPath, types.RenderOptions{})
		if renderError != nil {
			return fmt.Errorf(errorRenderFormat, settings.rootPath, renderError)
		}
	}
	return dependencies.Copier.Copy(plainTree)
}

// isSupportedColorMode reports whether the provided color mode is recognized.
func isSupportedColorMode(colorMode string) bool {
	switch colorMode {
	case types.ColorModeAuto, types.ColorModeAlways, types.ColorModeNever:
		return true
	default:
		return false
	}
}

// shouldColorize decides whether directory names are highlighted. In auto mode
// color is used only for a terminal and only when NO_COLOR is unset.
func shouldColorize(colorMode string, writer io.Writer) bool {
	switch colorMode {
	case types.ColorModeAlways:
		return true
	case types.ColorModeNever:
		return false
	}
	if _, noColor := os.LookupEnv(noColorEnvironmentKey); noColor {
		return false
	}
	outputFile, isFile := writer.(*os.File)
	return isFile && term.IsTerminal(int(outputFile.Fd()))
}
