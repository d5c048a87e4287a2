package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "l10nkit.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/l10nkit"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
	// EnvFile is the optional dotenv file read from the working directory
	EnvFile = ".env"
	// EnvPrefix prefixes every environment override
	EnvPrefix = "L10NKIT_"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger

	// HomeDir and WorkDir default to the user's home and the process
	// working directory.
	HomeDir string
	WorkDir string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, LookupEnv: os.LookupEnv}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/l10nkit/config.yaml)
// 3. Project config (explicit path, or l10nkit.yaml in current or parent directories)
// 4. .env file in the working directory
// 5. L10NKIT_* environment variables
//
// An explicit path that cannot be loaded is an error; the discovered files
// are optional.
func (l *Loader) Load(explicitPath string) (*Config, error) {
	config := DefaultConfig()

	// User config
	if userConfigPath := l.userConfigPath(); userConfigPath != "" {
		if userConfig, err := LoadFromFile(userConfigPath); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
			config.Merge(userConfig)
		} else if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
		}
	}

	// Project config
	if explicitPath != "" {
		projectConfig, err := LoadFromFile(explicitPath)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config", slog.String("path", explicitPath))
		config.Merge(projectConfig)
	} else if projectConfigPath := l.findProjectConfig(); projectConfigPath != "" {
		if projectConfig, err := LoadFromFile(projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
			config.Merge(projectConfig)
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	// Environment, with real variables winning over the .env file
	config.Merge(l.envConfig(l.readEnvFile()))

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (l *Loader) workDir() string {
	if l.WorkDir != "" {
		return l.WorkDir
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return cwd
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home := l.HomeDir
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return ""
		}
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for l10nkit.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	dir := l.workDir()
	if dir == "" {
		return ""
	}

	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// readEnvFile parses the .env file without touching the process environment.
func (l *Loader) readEnvFile() map[string]string {
	dir := l.workDir()
	if dir == "" {
		return nil
	}
	path := filepath.Join(dir, EnvFile)
	values, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("Failed to read env file", slog.String("path", path), slog.String("error", err.Error()))
		}
		return nil
	}
	l.logger.Debug("Loaded env file", slog.String("path", path))
	return values
}

// envConfig builds a config layer from L10NKIT_* variables. The process
// environment takes precedence over dotenv values.
func (l *Loader) envConfig(dotenv map[string]string) *Config {
	lookup := l.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(name string) string {
		key := EnvPrefix + name
		if v, ok := lookup(key); ok {
			return v
		}
		return dotenv[key]
	}

	c := &Config{
		Paths: PathsConfig{
			Source:      get("SOURCE"),
			L10n:        get("L10N"),
			Filters:     get("FILTERS"),
			Errorcheck:  get("ERRORCHECK"),
			MetricsFile: get("METRICS_FILE"),
		},
		Locales: splitList(get("LOCALES")),
		Exclude: splitList(get("EXCLUDE")),
		Log: LogConfig{
			Level:  strings.ToLower(get("LOG_LEVEL")),
			Format: strings.ToLower(get("LOG_FORMAT")),
		},
	}
	return c
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
