package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the build parameters for producing the installer.
// It is constructed once at startup and threaded through every phase of the
// pipeline without further mutation.
type Config struct {
	// ProjectRoot is the Azure CLI repository checkout the build reads from.
	ProjectRoot string `yaml:"project_root"`
	// SourceDir is the directory with component packages, relative to ProjectRoot.
	SourceDir string `yaml:"source_dir"`
	// OutputDir is where final artifacts are written, relative to ProjectRoot.
	OutputDir string `yaml:"output_dir"`
	// AppName is the product name used in artifact names and install paths.
	AppName string `yaml:"app_name"`
	// DisplayName is the human-readable product title shown by the installer.
	DisplayName string `yaml:"display_name"`
	// ExecutableName is the launcher name installed into /usr/local/bin.
	ExecutableName string `yaml:"executable_name"`
	// PythonModule is the module executed by the launcher (python -m <module>).
	PythonModule string `yaml:"python_module"`
	// InstallPrefix is the directory under /usr/local holding the runtime.
	InstallPrefix string `yaml:"install_prefix"`
	// PkgIdentifier is the reverse-DNS identifier embedded in the package.
	PkgIdentifier string `yaml:"pkg_identifier"`
	// Python is the interpreter used to create the build virtual environment.
	Python string `yaml:"python"`
	// VersionFile is the source file declaring __version__, relative to ProjectRoot.
	VersionFile string `yaml:"version_file"`
}

const (
	// DefaultConfigFilename is the default filename for build settings.
	DefaultConfigFilename = "azure-cli-pkg.yaml"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errAppNameRequired is returned when the product name is missing.
	errAppNameRequired = errors.New("app name must be provided")
	// errBadIdentifier is returned when the package identifier is not reverse-DNS shaped.
	errBadIdentifier = errors.New("package identifier must be a dotted reverse-DNS name")
)

// Default returns the configuration used when no settings file is present.
// The values mirror the Azure CLI repository layout.
func Default() *Config {
	return &Config{
		ProjectRoot:    ".",
		SourceDir:      "src",
		OutputDir:      filepath.Join("dist", "macos_pkg"),
		AppName:        "azure-cli",
		DisplayName:    "Azure CLI",
		ExecutableName: "az",
		PythonModule:   "azure.cli",
		InstallPrefix:  "microsoft",
		PkgIdentifier:  "com.microsoft.azure-cli",
		Python:         "python3",
		VersionFile:    filepath.Join("src", "azure-cli-core", "azure", "cli", "core", "__init__.py"),
	}
}

// Load reads configuration from the provided path and validates essential fields.
// An empty path means the default filename; if that file does not exist the
// defaults are returned as-is. An explicitly provided path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills defaults for the optional ones.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.AppName == "" {
		return errAppNameRequired
	}

	defaults := Default()

	if cfg.ProjectRoot == "" {
		cfg.ProjectRoot = defaults.ProjectRoot
	}

	if cfg.SourceDir == "" {
		cfg.SourceDir = defaults.SourceDir
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = defaults.OutputDir
	}

	if cfg.DisplayName == "" {
		cfg.DisplayName = defaults.DisplayName
	}

	if cfg.ExecutableName == "" {
		cfg.ExecutableName = defaults.ExecutableName
	}

	if cfg.PythonModule == "" {
		cfg.PythonModule = defaults.PythonModule
	}

	if cfg.InstallPrefix == "" {
		cfg.InstallPrefix = defaults.InstallPrefix
	}

	if cfg.PkgIdentifier == "" {
		cfg.PkgIdentifier = defaults.PkgIdentifier
	}

	if cfg.Python == "" {
		cfg.Python = defaults.Python
	}

	if cfg.VersionFile == "" {
		cfg.VersionFile = defaults.VersionFile
	}

	if !strings.Contains(cfg.PkgIdentifier, ".") {
		return fmt.Errorf("%w: %s", errBadIdentifier, cfg.PkgIdentifier)
	}

	return nil
}

// SourcePath returns the absolute-ish path to the component source directory.
func (c *Config) SourcePath() string {
	return filepath.Join(c.ProjectRoot, c.SourceDir)
}

// ComponentDirs returns the component source directories in required
// installation order: telemetry first, core second, the top-level CLI last.
// Later components declare dependencies on earlier ones.
func (c *Config) ComponentDirs() []string {
	src := c.SourcePath()

	return []string{
		filepath.Join(src, c.AppName+"-telemetry"),
		filepath.Join(src, c.AppName+"-core"),
		filepath.Join(src, c.AppName),
	}
}

// VersionFilePath returns the path of the file declaring __version__.
func (c *Config) VersionFilePath() string {
	return filepath.Join(c.ProjectRoot, c.VersionFile)
}

// OutputPath returns the artifacts directory.
func (c *Config) OutputPath() string {
	return filepath.Join(c.ProjectRoot, c.OutputDir)
}

// InstallDir returns the runtime directory relative to /usr/local,
// e.g. "microsoft/azure-cli".
func (c *Config) InstallDir() string {
	return c.InstallPrefix + "/" + c.AppName
}
