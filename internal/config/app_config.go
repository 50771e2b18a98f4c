package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/temirov/tre/internal/utils"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds command defaults read from configuration files.
type ApplicationConfiguration struct {
	Tree TreeConfiguration `mapstructure:"tree"`
}

// TreeConfiguration defines defaults for rendering a tree.
type TreeConfiguration struct {
	Depth     *int              `mapstructure:"depth"`
	Color     string            `mapstructure:"color"`
	Clipboard *bool             `mapstructure:"clipboard"`
	Paths     PathConfiguration `mapstructure:"paths"`
}

// PathConfiguration configures inclusion and exclusion rules for path traversal.
type PathConfiguration struct {
	Exclude       []string `mapstructure:"exclude"`
	UseGitignore  *bool    `mapstructure:"use_gitignore"`
	UseIgnoreFile *bool    `mapstructure:"use_ignore"`
	IncludeGit    *bool    `mapstructure:"include_git"`
}

// LoadApplicationConfiguration loads configuration from the global file and then the local or explicit file.
// Values from the local file override global ones; missing files are not an error.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if options.ExplicitFilePath != "" {
		if _, statErr := os.Stat(localPath); statErr != nil {
			return ApplicationConfiguration{}, fmt.Errorf("configuration file %s: %w", localPath, statErr)
		}
	}
	localConfig, loadErr := loadConfigurationFromPath(localPath)
	if loadErr != nil {
		return ApplicationConfiguration{}, loadErr
	}
	merged = merged.Merge(localConfig)

	merged.Tree.Paths.Exclude = utils.DeduplicatePatterns(merged.Tree.Paths.Exclude)

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) string {
	if explicitPath == "" {
		return filepath.Join(workingDirectory, utils.ConfigFileName)
	}
	if filepath.IsAbs(explicitPath) {
		return explicitPath
	}
	return filepath.Join(workingDirectory, explicitPath)
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("yaml")
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Tree = result.Tree.merge(override.Tree)
	return result
}

func (config TreeConfiguration) merge(override TreeConfiguration) TreeConfiguration {
	result := config
	if override.Depth != nil {
		result.Depth = cloneInt(override.Depth)
	}
	if override.Color != "" {
		result.Color = override.Color
	}
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	result.Paths = result.Paths.merge(override.Paths)
	return result
}

func (config PathConfiguration) merge(override PathConfiguration) PathConfiguration {
	result := config
	if len(override.Exclude) > 0 {
		result.Exclude = append([]string{}, utils.DeduplicatePatterns(override.Exclude)...)
	}
	if override.UseGitignore != nil {
		result.UseGitignore = cloneBool(override.UseGitignore)
	}
	if override.UseIgnoreFile != nil {
		result.UseIgnoreFile = cloneBool(override.UseIgnoreFile)
	}
	if override.IncludeGit != nil {
		result.IncludeGit = cloneBool(override.IncludeGit)
	}
	return result
}

// BoolOrDefault dereferences value, falling back when the key was not configured.
func BoolOrDefault(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

// IntOrDefault dereferences value, falling back when the key was not configured.
func IntOrDefault(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
