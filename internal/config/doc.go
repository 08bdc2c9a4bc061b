// Package config loads stork's configuration.
//
// Values are resolved in layers: built-in defaults, the YAML file
// (~/.stork/config.yaml unless a path is given), a .stork.yaml overlay in the
// working directory, and finally STORK_* environment variables. The overlay is
// applied with ShallowMergeYAML, so each top-level section it names replaces
// the loaded one wholesale. A .env file in the working directory is loaded
// into the environment first, without overriding variables already set.
package config
