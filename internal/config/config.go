// Package config provides configuration management for the VibeBoard engine.
// Values resolve in three layers: built-in defaults, then an optional YAML
// file, then environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// Default values
	DefaultPort       = 8585
	DefaultLogLevel   = "info"
	DefaultDataDir    = ".vibeboard"
	DefaultPageType   = "timeline"
	DefaultFPS        = 24.0
	DefaultAutosaveMs = 500
	DefaultBakeSecs   = 600
	DefaultFFprobe    = "ffprobe"

	// Environment variable names
	EnvConfigFile  = "VIBEBOARD_CONFIG"
	EnvPort        = "VIBEBOARD_PORT"
	EnvLogLevel    = "VIBEBOARD_LOG_LEVEL"
	EnvDataDir     = "VIBEBOARD_DATA_DIR"
	EnvPageType    = "VIBEBOARD_PAGE_TYPE"
	EnvProjectID   = "VIBEBOARD_PROJECT_ID"
	EnvStudioURL   = "VIBEBOARD_STUDIO_URL"
	EnvStudioToken = "VIBEBOARD_STUDIO_TOKEN"
	EnvFPS         = "VIBEBOARD_FPS"
	EnvAutosaveMs  = "VIBEBOARD_AUTOSAVE_MS"
	EnvBakeTimeout = "VIBEBOARD_BAKE_TIMEOUT_SECONDS"
	EnvFFprobe     = "VIBEBOARD_FFPROBE"

	// Database filename
	DBFilename = "vibeboard.db"
)

// Config defines the engine configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	MediaDir() string
	PageType() string
	ProjectID() string
	StudioURL() string
	StudioToken() string
	FPS() float64
	AutosaveInterval() time.Duration
	BakeTimeout() time.Duration
	FFprobePath() string
}

// EngineConfig is the concrete Config backed by file + environment.
type EngineConfig struct {
	port        int
	logLevel    string
	dataDir     string
	pageType    string
	projectID   string
	studioURL   string
	studioToken string
	fps         float64
	autosaveMs  int
	bakeSecs    int
	ffprobePath string
}

// fileConfig mirrors the YAML config file shape.
type fileConfig struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	LogLevel string `yaml:"log_level"`
	DataDir  string `yaml:"data_dir"`
	PageType string `yaml:"page_type"`
	Studio   struct {
		BaseURL   string `yaml:"base_url"`
		Token     string `yaml:"token"`
		ProjectID string `yaml:"project_id"`
	} `yaml:"studio"`
	Playback struct {
		FPS float64 `yaml:"fps"`
	} `yaml:"playback"`
	Autosave struct {
		IntervalMs int `yaml:"interval_ms"`
	} `yaml:"autosave"`
	Bake struct {
		TimeoutSeconds int `yaml:"timeout_seconds"`
	} `yaml:"bake"`
	Media struct {
		FFprobePath string `yaml:"ffprobe_path"`
	} `yaml:"media"`
}

// Load builds an EngineConfig from defaults, then the YAML file at path
// (or $VIBEBOARD_CONFIG when path is empty; missing files are fine), then
// environment variables.
func Load(path string) (*EngineConfig, error) {
	cfg := &EngineConfig{
		port:        DefaultPort,
		logLevel:    DefaultLogLevel,
		dataDir:     defaultDataDir(),
		pageType:    DefaultPageType,
		fps:         DefaultFPS,
		autosaveMs:  DefaultAutosaveMs,
		bakeSecs:    DefaultBakeSecs,
		ffprobePath: DefaultFFprobe,
	}

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.port < 1 || cfg.port > 65535 {
		return nil, fmt.Errorf("invalid port %d: must be between 1 and 65535", cfg.port)
	}
	if cfg.fps <= 0 {
		return nil, fmt.Errorf("invalid fps %v: must be positive", cfg.fps)
	}
	if cfg.autosaveMs < 100 {
		return nil, fmt.Errorf("invalid autosave interval %dms: must be at least 100ms", cfg.autosaveMs)
	}
	return cfg, nil
}

func (c *EngineConfig) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Server.Port != 0 {
		c.port = fc.Server.Port
	}
	if fc.LogLevel != "" {
		c.logLevel = fc.LogLevel
	}
	if fc.DataDir != "" {
		c.dataDir = fc.DataDir
	}
	if fc.PageType != "" {
		c.pageType = fc.PageType
	}
	if fc.Studio.BaseURL != "" {
		c.studioURL = fc.Studio.BaseURL
	}
	if fc.Studio.Token != "" {
		c.studioToken = fc.Studio.Token
	}
	if fc.Studio.ProjectID != "" {
		c.projectID = fc.Studio.ProjectID
	}
	if fc.Playback.FPS != 0 {
		c.fps = fc.Playback.FPS
	}
	if fc.Autosave.IntervalMs != 0 {
		c.autosaveMs = fc.Autosave.IntervalMs
	}
	if fc.Bake.TimeoutSeconds != 0 {
		c.bakeSecs = fc.Bake.TimeoutSeconds
	}
	if fc.Media.FFprobePath != "" {
		c.ffprobePath = fc.Media.FFprobePath
	}
	return nil
}

func (c *EngineConfig) applyEnv() error {
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		c.port = port
	}
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		c.logLevel = ll
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		c.dataDir = dd
	}
	if pt := os.Getenv(EnvPageType); pt != "" {
		c.pageType = pt
	}
	if pid := os.Getenv(EnvProjectID); pid != "" {
		c.projectID = pid
	}
	if u := os.Getenv(EnvStudioURL); u != "" {
		c.studioURL = u
	}
	if tok := os.Getenv(EnvStudioToken); tok != "" {
		c.studioToken = tok
	}
	if f := os.Getenv(EnvFPS); f != "" {
		fps, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvFPS, err)
		}
		c.fps = fps
	}
	if ms := os.Getenv(EnvAutosaveMs); ms != "" {
		n, err := strconv.Atoi(ms)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvAutosaveMs, err)
		}
		c.autosaveMs = n
	}
	if s := os.Getenv(EnvBakeTimeout); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvBakeTimeout, err)
		}
		c.bakeSecs = n
	}
	if fp := os.Getenv(EnvFFprobe); fp != "" {
		c.ffprobePath = fp
	}
	return nil
}

// Port returns the HTTP server port
func (c *EngineConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EngineConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EngineConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EngineConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// MediaDir returns the local upload cache directory
func (c *EngineConfig) MediaDir() string {
	return filepath.Join(c.dataDir, "media")
}

// PageType identifies which editing surface this engine instance backs;
// recovery snapshots are keyed by it.
func (c *EngineConfig) PageType() string {
	return c.pageType
}

// ProjectID returns the open project's id
func (c *EngineConfig) ProjectID() string {
	return c.projectID
}

// StudioURL returns the studio backend base URL; empty means stub clients
func (c *EngineConfig) StudioURL() string {
	return c.studioURL
}

// StudioToken returns the bearer token for the studio backend
func (c *EngineConfig) StudioToken() string {
	return c.studioToken
}

// FPS returns the playback frame rate used for frame stepping
func (c *EngineConfig) FPS() float64 {
	return c.fps
}

// AutosaveInterval returns the recovery snapshot cadence
func (c *EngineConfig) AutosaveInterval() time.Duration {
	return time.Duration(c.autosaveMs) * time.Millisecond
}

// BakeTimeout returns the per-job bake deadline
func (c *EngineConfig) BakeTimeout() time.Duration {
	return time.Duration(c.bakeSecs) * time.Second
}

// FFprobePath returns the ffprobe binary used for upload duration probing
func (c *EngineConfig) FFprobePath() string {
	return c.ffprobePath
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
