package config

import "errors"

var (
	// ErrMissingRootFolder indicates that no watched root folder is configured
	ErrMissingRootFolder = errors.New("rootFolderId is required (ROOT_FOLDER_ID)")

	// ErrMissingDispatchURL indicates that the downstream processor endpoint is neither configured nor derivable
	ErrMissingDispatchURL = errors.New("dispatchUrl is required (DISPATCH_URL or PROCESSOR_BASE_URL)")

	// ErrMissingCallbackAddress indicates that a watch cannot be registered without a callback address
	ErrMissingCallbackAddress = errors.New("callback address is required (PUBLIC_BASE_URL or explicit address)")

	// ErrConfigFileNotFound indicates that the config file was not found
	ErrConfigFileNotFound = errors.New("configuration file not found")

	// ErrInvalidConfigFormat indicates that the config file has invalid YAML
	ErrInvalidConfigFormat = errors.New("invalid configuration file format")
)

// IsConfigurationError reports whether err stems from a missing required setting.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrMissingRootFolder) ||
		errors.Is(err, ErrMissingDispatchURL) ||
		errors.Is(err, ErrMissingCallbackAddress)
}
