// Package config defines the build configuration consumed by the builder and
// provides helpers to read it from the environment or an optional YAML file
// and to validate it.
//
// Environment variable names follow the packaging pipeline that drives the
// builder: _PATH, config_name, out, payload, src and license.
package config
