package utils

const (
	// LoggerInitializationFailedMessageFormat reports a logger that could not be built.
	LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"
	// ApplicationExecutionFailedMessage prefixes fatal application errors.
	ApplicationExecutionFailedMessage = "tre failed"
	// ConfigFileName is the name of the local and global configuration file.
	ConfigFileName = ".tre.yaml"
	// GlobalConfigDirectoryName is the directory under the user's home holding the global configuration.
	GlobalConfigDirectoryName = ".tre"
)
