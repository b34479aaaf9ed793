package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Config holds the externally supplied inputs of a build.
type Config struct {
	// SearchPath is the executable search path used to resolve the archiver.
	SearchPath string `mapstructure:"_PATH" yaml:"_PATH"`
	// ConfigName is the build configuration name embedded in the package filename.
	ConfigName string `mapstructure:"config_name" yaml:"config_name"`
	// OutDir is the directory receiving the tar archive and the build report.
	OutDir string `mapstructure:"out" yaml:"out"`
	// PayloadDir holds version.txt and the bin/ directory with the executables.
	PayloadDir string `mapstructure:"payload" yaml:"payload"`
	// SrcDir is the source tree root, providing images/app.icns.
	SrcDir string `mapstructure:"src" yaml:"src"`
	// LicenseFile is the path of the HTML license copied into the app bundle.
	LicenseFile string `mapstructure:"license" yaml:"license"`
}

// Environment variable names read by FromEnv.
const (
	EnvSearchPath  = "_PATH"
	EnvConfigName  = "config_name"
	EnvOutDir      = "out"
	EnvPayloadDir  = "payload"
	EnvSrcDir      = "src"
	EnvLicenseFile = "license"
)

// ErrMissingVariable is wrapped by every validation error about an absent setting.
var ErrMissingVariable = errors.New("required setting is not set")

// LookupFunc resolves a single environment variable; os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// variables lists the recognized keys in the order they are reported.
func variables() []string {
	return []string{
		EnvSearchPath,
		EnvConfigName,
		EnvOutDir,
		EnvPayloadDir,
		EnvSrcDir,
		EnvLicenseFile,
	}
}

// FromEnv collects the recognized variables through lookup and decodes them into a Config.
// Absent variables leave their fields empty; call Validate to enforce presence.
func FromEnv(lookup LookupFunc) (*Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	values := make(map[string]any, len(variables()))

	for _, key := range variables() {
		if value, ok := lookup(key); ok {
			values[key] = value
		}
	}

	var cfg Config
	if err := mapstructure.Decode(values, &cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	return &cfg, nil
}

// Load reads configuration from a YAML file on fs. An empty path yields an empty Config.
// A nil fs reads from the OS filesystem.
func Load(fs afero.Fs, path string) (*Config, error) {
	if path == "" {
		return new(Config), nil
	}

	if fs == nil {
		fs = afero.NewOsFs()
	}

	contents, err := afero.ReadFile(fs, filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	return &cfg, nil
}

// Merge returns a copy of base with every non-empty field of override applied on top.
func Merge(base, override *Config) *Config {
	merged := new(Config)
	if base != nil {
		*merged = *base
	}

	if override == nil {
		return merged
	}

	pick := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}

	pick(&merged.SearchPath, override.SearchPath)
	pick(&merged.ConfigName, override.ConfigName)
	pick(&merged.OutDir, override.OutDir)
	pick(&merged.PayloadDir, override.PayloadDir)
	pick(&merged.SrcDir, override.SrcDir)
	pick(&merged.LicenseFile, override.LicenseFile)

	return merged
}

// Resolve loads the optional file at path and overlays the environment on it.
func Resolve(fs afero.Fs, path string, lookup LookupFunc) (*Config, error) {
	fromFile, err := Load(fs, path)
	if err != nil {
		return nil, err
	}

	fromEnv, err := FromEnv(lookup)
	if err != nil {
		return nil, err
	}

	cfg := Merge(fromFile, fromEnv)
	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every missing setting at once.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration: %w", ErrMissingVariable)
	}

	fields := map[string]string{
		EnvSearchPath:  cfg.SearchPath,
		EnvConfigName:  cfg.ConfigName,
		EnvOutDir:      cfg.OutDir,
		EnvPayloadDir:  cfg.PayloadDir,
		EnvSrcDir:      cfg.SrcDir,
		EnvLicenseFile: cfg.LicenseFile,
	}

	var errs []error

	for _, key := range variables() {
		if fields[key] == "" {
			errs = append(errs, fmt.Errorf("%s: %w", key, ErrMissingVariable))
		}
	}

	return errors.Join(errs...)
}
