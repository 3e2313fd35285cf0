// Package config loads, normalizes, and validates restronaut configuration.
//
// Configuration is TOML, searched at the --config flag path, then
// ~/.config/restronaut/config.toml, then restronaut.toml in the working
// directory and beside the executable. Secrets can be supplied through the
// environment instead of the file. After Load returns, every path is expanded
// and absolute and every watched folder has a usable retry budget, filter, and
// refresh interval.
//
// Other packages should consume the resolved views (Directories,
// OrderServiceTimeout, ArchiveEnabled, ...) rather than re-deriving defaults.
package config
