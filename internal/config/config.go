package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	ghosterrors "github.com/hpungsan/ghostmcp/internal/errors"
)

// Environment variable names read by ApplyEnv.
const (
	EnvAPIURL      = "GHOST_API_URL"
	EnvAdminAPIKey = "GHOST_ADMIN_API_KEY"
	EnvAPIVersion  = "GHOST_API_VERSION"
	EnvSyncDir     = "GHOST_SYNC_DIR"
	EnvLogLevel    = "GHOSTMCP_LOG_LEVEL"
)

// RepoDirName is the per-project config directory searched upward from the working directory.
const RepoDirName = ".ghostmcp"

// Config holds application configuration.
type Config struct {
	// APIURL is the Ghost site URL, e.g. https://blog.example.com
	APIURL string `json:"api_url,omitempty"`

	// AdminAPIKey is the Ghost Admin API key in "<id>:<hex secret>" form.
	AdminAPIKey string `json:"admin_api_key,omitempty"`

	// APIVersion is sent as the Accept-Version header.
	APIVersion string `json:"api_version,omitempty"`

	// SyncDir is the root directory for post sync, one subdirectory per post slug.
	// Relative paths are resolved against the working directory by ResolveSyncDir.
	SyncDir string `json:"sync_dir,omitempty"`

	// RequestTimeoutSeconds bounds each HTTP request to Ghost.
	RequestTimeoutSeconds int `json:"request_timeout_seconds,omitempty"`

	// RetryCount is the number of automatic retries per Ghost request.
	// Zero disables retries so a transient failure surfaces as that post's error.
	RetryCount int `json:"retry_count,omitempty"`

	// MaxFileBytes limits files read through the file:// indirection marker.
	MaxFileBytes int64 `json:"max_file_bytes,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// Known types: "posts". Unknown type names are logged as warnings.
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		APIVersion:            "v5.0",
		SyncDir:               "posts",
		RequestTimeoutSeconds: 30,
		MaxFileBytes:          5 * 1024 * 1024,
		LogLevel:              "info",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.ghostmcp.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.ghostmcp) and repo (.ghostmcp) directories.
// Repo config is found by walking upward from startDir to find the nearest .ghostmcp/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .ghostmcp/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, RepoDirName, "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ApplyEnv overlays environment variables onto cfg. Empty variables are ignored.
func ApplyEnv(cfg *Config, getenv func(string) string) *Config {
	env := &Config{
		APIURL:      strings.TrimSpace(getenv(EnvAPIURL)),
		AdminAPIKey: strings.TrimSpace(getenv(EnvAdminAPIKey)),
		APIVersion:  strings.TrimSpace(getenv(EnvAPIVersion)),
		SyncDir:     strings.TrimSpace(getenv(EnvSyncDir)),
		LogLevel:    strings.TrimSpace(getenv(EnvLogLevel)),
	}
	return Merge(cfg, env)
}

// Validate reports whether the Ghost connection settings are usable.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return ghosterrors.NewInvalidRequest(EnvAPIURL + " is not set")
	}
	if c.AdminAPIKey == "" {
		return ghosterrors.NewInvalidRequest(EnvAdminAPIKey + " is not set")
	}
	return nil
}

// ResolveSyncDir returns SyncDir as an absolute path, resolving relative paths against workDir.
func (c *Config) ResolveSyncDir(workDir string) string {
	if filepath.IsAbs(c.SyncDir) {
		return filepath.Clean(c.SyncDir)
	}
	return filepath.Join(workDir, c.SyncDir)
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		APIURL:      pickString(base.APIURL, overlay.APIURL),
		AdminAPIKey: pickString(base.AdminAPIKey, overlay.AdminAPIKey),
		APIVersion:  pickString(base.APIVersion, overlay.APIVersion),
		SyncDir:     pickString(base.SyncDir, overlay.SyncDir),
		LogLevel:    pickString(base.LogLevel, overlay.LogLevel),
	}

	result.RequestTimeoutSeconds = overlay.RequestTimeoutSeconds
	if result.RequestTimeoutSeconds == 0 {
		result.RequestTimeoutSeconds = base.RequestTimeoutSeconds
	}

	result.RetryCount = overlay.RetryCount
	if result.RetryCount == 0 {
		result.RetryCount = base.RetryCount
	}

	result.MaxFileBytes = overlay.MaxFileBytes
	if result.MaxFileBytes == 0 {
		result.MaxFileBytes = base.MaxFileBytes
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

// pickString returns overlay if non-empty, else base.
func pickString(base, overlay string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
