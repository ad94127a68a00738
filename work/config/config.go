package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"sync"
	"time"
)

// Config holds all application configuration values for the SGAI proxy.
// It includes settings for the origin/forward target, the ad server, the
// insertion schedule, and the ambient stack (logging, caching, the
// optional persisted-session store).
type Config struct {
	ListenAddr          string        `json:"listenAddr"`
	MetricsAddr         string        `json:"metricsAddr"`
	ForwardURL          string        `json:"forwardURL"`
	InterstitialsBase   string        `json:"interstitialsBase"`
	UserAgent           string        `json:"userAgent"`
	ReqOrigin           string        `json:"reqOrigin"`
	ReqReferrer         string        `json:"reqReferrer"`
	AdServerEndpoint    string        `json:"adServerEndpoint"`
	AdServerMode        string        `json:"adServerMode"` // "default" | "advanced"
	InsertionMode       string        `json:"insertionMode"` // "static" | "dynamic"
	Debug               bool          `json:"debug"`
	LogLevel            string        `json:"logLevel"`
	ObfuscateUrls       bool          `json:"obfuscateUrls"`
	CacheEnabled        bool          `json:"cacheEnabled"`
	CacheDuration       time.Duration `json:"cacheDuration"`
	OriginTimeout       time.Duration `json:"originTimeout"`
	WorkerThreads       int           `json:"workerThreads"`
	MaxConnectionsToApp int           `json:"maxConnectionsToApp"`

	// Ad break schedule.
	BreakCycle       time.Duration `json:"breakCycle"`       // spacing between fixed breaks
	BreakDuration    time.Duration `json:"breakDuration"`    // default ad break duration
	BreakPodCount    int           `json:"breakPodCount"`    // default avails per break
	FixedBreakCount  int           `json:"fixedBreakCount"`  // number of fixed-schedule breaks to materialize
	BumperDuration   time.Duration `json:"bumperDuration"`   // leading/trailing bumper duration, advanced ad-server mode

	// Rewriter behavior.
	LegacyResumeOffset bool `json:"legacyResumeOffset"`

	TestAssetURL string `json:"testAssetURL"` // unconditional creative-URL override, for staging

	// Optional persisted-session collaborator.
	PersistedSessionEndpoint    string `json:"persistedSessionEndpoint"` // sqlite file path; empty disables persistence
	PersistedSessionTable       string `json:"persistedSessionTable"`
	PersistedSessionCredentials string `json:"persistedSessionCredentials"` // "user:pass"-style; its SHA-256 digest keys the at-rest encryption
}

// ConfigFile represents the JSON file structure for marshaling/unmarshaling
// configuration. String duration fields (e.g., "30m") are parsed into
// time.Duration values.
type ConfigFile struct {
	ListenAddr          string `json:"listenAddr"`
	MetricsAddr         string `json:"metricsAddr"`
	ForwardURL          string `json:"forwardURL"`
	InterstitialsBase   string `json:"interstitialsBase"`
	UserAgent           string `json:"userAgent"`
	ReqOrigin           string `json:"reqOrigin"`
	ReqReferrer         string `json:"reqReferrer"`
	AdServerEndpoint    string `json:"adServerEndpoint"`
	AdServerMode        string `json:"adServerMode"`
	InsertionMode       string `json:"insertionMode"`
	Debug               bool   `json:"debug"`
	LogLevel            string `json:"logLevel"`
	ObfuscateUrls       bool   `json:"obfuscateUrls"`
	CacheEnabled        bool   `json:"cacheEnabled"`
	CacheDuration       string `json:"cacheDuration"`
	OriginTimeout       string `json:"originTimeout"`
	WorkerThreads       int    `json:"workerThreads"`
	MaxConnectionsToApp int    `json:"maxConnectionsToApp"`

	BreakCycle      string `json:"breakCycle"`
	BreakDuration   string `json:"breakDuration"`
	BreakPodCount   int    `json:"breakPodCount"`
	FixedBreakCount int    `json:"fixedBreakCount"`
	BumperDuration  string `json:"bumperDuration"`

	LegacyResumeOffset bool `json:"legacyResumeOffset"`

	TestAssetURL string `json:"testAssetURL"`

	PersistedSessionEndpoint    string `json:"persistedSessionEndpoint"`
	PersistedSessionTable       string `json:"persistedSessionTable"`
	PersistedSessionCredentials string `json:"persistedSessionCredentials"`
}

var (
	configCache *Config
	configMutex sync.RWMutex
)

// CLIFlags are the ambient CLI flags layered on top of the JSON config,
// generalizing the teacher's flag/env/JSON-config layering.
type CLIFlags struct {
	Debug                       bool
	LogLevel                    string
	CacheDuration               time.Duration
	MetricsAddr                 string
	LegacyResumeOffset          bool
	PersistedSessionEndpoint    string
	PersistedSessionTable       string
	PersistedSessionCredentials string
}

// ParseFlags registers the ambient CLI flags described in spec_full.md §6
// on fs. It does not parse anything itself: the returned CLIFlags are
// filled in once the caller runs fs.Parse, so callers can register their
// own flags on the same flag.FlagSet first.
func ParseFlags(fs *flag.FlagSet) *CLIFlags {
	f := &CLIFlags{}
	fs.BoolVar(&f.Debug, "debug", false, "enable debug logging")
	fs.StringVar(&f.LogLevel, "log-level", "", "log level: debug|info|warn|error")
	fs.DurationVar(&f.CacheDuration, "cache-duration", 0, "response cache duration")
	fs.StringVar(&f.MetricsAddr, "metrics-addr", "", "address to serve /metrics on")
	fs.BoolVar(&f.LegacyResumeOffset, "legacy-resume-offset", false, "emit the legacy X-RESUME-OFFSET/CUSTOM-DROP-OFFSET attribute")
	fs.StringVar(&f.PersistedSessionEndpoint, "persisted-session-endpoint", "", "sqlite file path for persisted sessions; empty disables persistence")
	fs.StringVar(&f.PersistedSessionTable, "persisted-session-table", "sessions", "table name for persisted sessions (kept in config only; the store always writes to the \"sessions\" table)")
	fs.StringVar(&f.PersistedSessionCredentials, "persisted-session-credentials", "", "user:pass credentials whose SHA-256 digest keys the at-rest encryption of persisted sessions")
	return f
}

// ApplyFlags overlays non-zero CLI flag values onto config, giving flags
// precedence over the JSON file (teacher's layering: file provides
// defaults, flags/env override at process start).
func ApplyFlags(cfg *Config, f *CLIFlags) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Debug = true
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.CacheDuration > 0 {
		cfg.CacheDuration = f.CacheDuration
	}
	if f.MetricsAddr != "" {
		cfg.MetricsAddr = f.MetricsAddr
	}
	if f.LegacyResumeOffset {
		cfg.LegacyResumeOffset = true
	}
	if f.PersistedSessionEndpoint != "" {
		cfg.PersistedSessionEndpoint = f.PersistedSessionEndpoint
	}
	if f.PersistedSessionTable != "" {
		cfg.PersistedSessionTable = f.PersistedSessionTable
	}
	if f.PersistedSessionCredentials != "" {
		cfg.PersistedSessionCredentials = f.PersistedSessionCredentials
	}
}

// LoadConfig loads the configuration from file or returns the cached
// instance, using the same double-checked-locking singleton as the
// teacher's LoadConfig.
func LoadConfig() *Config {
	configMutex.RLock()
	if configCache != nil {
		defer configMutex.RUnlock()
		return configCache
	}
	configMutex.RUnlock()

	configMutex.Lock()
	defer configMutex.Unlock()

	if configCache != nil {
		return configCache
	}

	configPath := "/settings/config.json"
	cfg, err := loadFromFile(configPath)
	if err != nil {
		log.Printf("Failed to load config from %s: %v", configPath, err)
		log.Printf("Falling back to default configuration...")
		cfg = getDefaultConfig()
	}

	validateAndSetDefaults(cfg)
	configCache = cfg

	if cfg.Debug {
		log.Printf("Configuration loaded:")
		log.Printf("  Forward URL: %s", obfuscateURL(cfg.ForwardURL))
		log.Printf("  Ad server: %s (mode=%s)", obfuscateURL(cfg.AdServerEndpoint), cfg.AdServerMode)
		log.Printf("  Insertion mode: %s", cfg.InsertionMode)
		log.Printf("  Legacy resume offset: %v", cfg.LegacyResumeOffset)
		log.Printf("  Persisted sessions: %v", cfg.PersistedSessionEndpoint != "")
	}

	return cfg
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cf ConfigFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return convertFromFile(&cf)
}

func convertFromFile(cf *ConfigFile) (*Config, error) {
	cfg := &Config{
		ListenAddr:                  cf.ListenAddr,
		MetricsAddr:                 cf.MetricsAddr,
		ForwardURL:                  cf.ForwardURL,
		InterstitialsBase:           cf.InterstitialsBase,
		UserAgent:                   cf.UserAgent,
		ReqOrigin:                   cf.ReqOrigin,
		ReqReferrer:                 cf.ReqReferrer,
		AdServerEndpoint:            cf.AdServerEndpoint,
		AdServerMode:                cf.AdServerMode,
		InsertionMode:               cf.InsertionMode,
		Debug:                       cf.Debug,
		LogLevel:                    cf.LogLevel,
		ObfuscateUrls:               cf.ObfuscateUrls,
		CacheEnabled:                cf.CacheEnabled,
		WorkerThreads:               cf.WorkerThreads,
		MaxConnectionsToApp:         cf.MaxConnectionsToApp,
		BreakPodCount:               cf.BreakPodCount,
		FixedBreakCount:             cf.FixedBreakCount,
		LegacyResumeOffset:          cf.LegacyResumeOffset,
		TestAssetURL:                cf.TestAssetURL,
		PersistedSessionEndpoint:    cf.PersistedSessionEndpoint,
		PersistedSessionTable:       cf.PersistedSessionTable,
		PersistedSessionCredentials: cf.PersistedSessionCredentials,
	}

	var err error
	if cf.CacheDuration != "" {
		if cfg.CacheDuration, err = time.ParseDuration(cf.CacheDuration); err != nil {
			return nil, fmt.Errorf("invalid cacheDuration: %w", err)
		}
	}
	if cf.OriginTimeout != "" {
		if cfg.OriginTimeout, err = time.ParseDuration(cf.OriginTimeout); err != nil {
			return nil, fmt.Errorf("invalid originTimeout: %w", err)
		}
	}
	if cf.BreakCycle != "" {
		if cfg.BreakCycle, err = time.ParseDuration(cf.BreakCycle); err != nil {
			return nil, fmt.Errorf("invalid breakCycle: %w", err)
		}
	}
	if cf.BreakDuration != "" {
		if cfg.BreakDuration, err = time.ParseDuration(cf.BreakDuration); err != nil {
			return nil, fmt.Errorf("invalid breakDuration: %w", err)
		}
	}
	if cf.BumperDuration != "" {
		if cfg.BumperDuration, err = time.ParseDuration(cf.BumperDuration); err != nil {
			return nil, fmt.Errorf("invalid bumperDuration: %w", err)
		}
	}

	return cfg, nil
}

// getDefaultConfig's break-schedule defaults (BreakDuration, BreakPodCount,
// FixedBreakCount) follow original_source/'s own defaults rather than the
// larger defaults named elsewhere in the ad-insertion literature; this is
// a deliberate divergence, not an oversight — see DESIGN.md.
func getDefaultConfig() *Config {
	return &Config{
		ListenAddr:          ":8080",
		MetricsAddr:         ":9090",
		AdServerMode:        "default",
		InsertionMode:       "static",
		Debug:               false,
		LogLevel:            "info",
		ObfuscateUrls:       false,
		CacheEnabled:        true,
		CacheDuration:       30 * time.Second,
		OriginTimeout:       10 * time.Second,
		WorkerThreads:       8,
		MaxConnectionsToApp: 100,
		BreakCycle:          30 * time.Second,
		BreakDuration:       10 * time.Second,
		BreakPodCount:       2,
		FixedBreakCount:     9,
		BumperDuration:      6 * time.Second,
		PersistedSessionTable: "sessions",
	}
}

// validateAndSetDefaults ensures all config values are valid, filling in
// defaults for missing/invalid ones, mirroring the teacher's
// validateAndSetDefaults.
func validateAndSetDefaults(cfg *Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = ":9090"
	}
	if cfg.AdServerMode == "" {
		cfg.AdServerMode = "default"
	}
	if cfg.InsertionMode == "" {
		cfg.InsertionMode = "static"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "sgai-proxy/1.0"
	}
	if cfg.CacheDuration <= 0 {
		cfg.CacheDuration = 30 * time.Second
	}
	if cfg.OriginTimeout <= 0 {
		cfg.OriginTimeout = 10 * time.Second
	}
	if cfg.WorkerThreads <= 0 {
		cfg.WorkerThreads = 8
	}
	if cfg.MaxConnectionsToApp <= 0 {
		cfg.MaxConnectionsToApp = 100
	}
	if cfg.BreakCycle <= 0 {
		cfg.BreakCycle = 30 * time.Second
	}
	if cfg.BreakDuration <= 0 {
		cfg.BreakDuration = 10 * time.Second
	}
	if cfg.BreakPodCount <= 0 {
		cfg.BreakPodCount = 2
	}
	if cfg.FixedBreakCount <= 0 {
		cfg.FixedBreakCount = 9
	}
	if cfg.BumperDuration <= 0 {
		cfg.BumperDuration = 6 * time.Second
	}
	if cfg.PersistedSessionTable == "" {
		cfg.PersistedSessionTable = "sessions"
	}
}

// CreateExampleConfig creates an example config file on disk.
func CreateExampleConfig(path string) error {
	example := ConfigFile{
		ListenAddr:          "0.0.0.0:8080",
		MetricsAddr:         "0.0.0.0:9090",
		ForwardURL:          "https://origin.example.com",
		AdServerEndpoint:    "https://ads.example.com/vast",
		AdServerMode:        "advanced",
		InsertionMode:       "dynamic",
		Debug:               false,
		LogLevel:            "info",
		ObfuscateUrls:       true,
		CacheEnabled:        true,
		CacheDuration:       "30s",
		OriginTimeout:       "10s",
		WorkerThreads:       8,
		MaxConnectionsToApp: 100,
		BreakCycle:          "30s",
		BreakDuration:       "10s",
		BreakPodCount:       2,
		FixedBreakCount:     9,
		BumperDuration:      "6s",
		LegacyResumeOffset:  false,
	}

	data, err := json.MarshalIndent(example, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ClearConfigCache resets the configCache to nil, forcing a reload on the
// next LoadConfig() call.
func ClearConfigCache() {
	configMutex.Lock()
	defer configMutex.Unlock()
	configCache = nil
}

// obfuscateURL masks sensitive parts of a URL for logging.
func obfuscateURL(urlStr string) string {
	if urlStr == "" {
		return ""
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return "***OBFUSCATED***"
	}
	result := u.Scheme + "://" + u.Host
	if u.Path != "" && u.Path != "/" {
		result += "/***"
	}
	if u.RawQuery != "" {
		result += "?***"
	}
	if u.Fragment != "" {
		result += "#***"
	}
	return result
}
