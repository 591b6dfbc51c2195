package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config is the application configuration, layered defaults -> file(s) ->
// environment, mirroring the teacher's TOML config shape.
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Logging     LoggingConfig `toml:"logging"`
	Storage     StorageConfig `toml:"storage"`
	Queue       QueueConfig   `toml:"queue"`
	Tor         TorConfig     `toml:"tor"`
	DarkWeb     DarkWebConfig `toml:"dark_web"`
	Crawler     CrawlerConfig `toml:"crawler"`
	EmailAuth   EmailAuthConfig `toml:"email_auth"`
	GitHub      GitHubConfig  `toml:"github"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	InfraConfig InfraConfigConfig `toml:"infra_config"`
	Investigation InvestigationConfig `toml:"investigation"`
	NetworkSecurity NetworkSecurityConfig `toml:"network_security"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`
	Output []string `toml:"output"`
}

type StorageConfig struct {
	BadgerPath     string `toml:"badger_path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type QueueConfig struct {
	Capacity int `toml:"capacity"`
}

// TorConfig configures the SOCKS5 Tor proxy dialer (§6).
type TorConfig struct {
	ProxyHost string `toml:"proxy_host"`
	ProxyPort int    `toml:"proxy_port"`
	ProxyType string `toml:"proxy_type"`
	Timeout   string `toml:"timeout"`
	Required  bool   `toml:"required"`
}

// TimeoutDuration parses Timeout, defaulting to 30s.
func (t TorConfig) TimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(t.Timeout); err == nil {
		return d
	}
	return 30 * time.Second
}

// Addr returns host:port for the SOCKS5 proxy.
func (t TorConfig) Addr() string {
	return t.ProxyHost + ":" + strconv.Itoa(t.ProxyPort)
}

// DarkWebConfig configures the C9 pipeline (§6 environment subset).
type DarkWebConfig struct {
	BatchSize         int    `toml:"batch_size"`
	DefaultCrawlLimit int    `toml:"default_crawl_limit"`
	MaxWorkers        int    `toml:"max_workers"`
	CrawlTimeout      string `toml:"crawl_timeout"`
	DiscoveryTimeout  string `toml:"discovery_timeout"`
	Engines           []string `toml:"engines"`
	MaxPages          int    `toml:"max_pages"`
	EngineTimeout     string `toml:"engine_timeout"`
}

func (d DarkWebConfig) CrawlTimeoutDuration() time.Duration {
	if dur, err := time.ParseDuration(d.CrawlTimeout); err == nil {
		return dur
	}
	return 600 * time.Second
}

func (d DarkWebConfig) DiscoveryTimeoutDuration() time.Duration {
	if dur, err := time.ParseDuration(d.DiscoveryTimeout); err == nil {
		return dur
	}
	return 120 * time.Second
}

func (d DarkWebConfig) EngineTimeoutDuration() time.Duration {
	if dur, err := time.ParseDuration(d.EngineTimeout); err == nil {
		return dur
	}
	return 60 * time.Second
}

// CrawlerConfig tunes exposure/HTTP fan-out concurrency.
type CrawlerConfig struct {
	DNSTimeout  string `toml:"dns_timeout"`
	HTTPTimeout string `toml:"http_timeout"`
	Concurrency int    `toml:"concurrency"`
}

func (c CrawlerConfig) DNSTimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(c.DNSTimeout); err == nil {
		return d
	}
	return 2 * time.Second
}

func (c CrawlerConfig) HTTPTimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(c.HTTPTimeout); err == nil {
		return d
	}
	return 5 * time.Second
}

// EmailAuthConfig configures the DMARC bypass-analyzer mailbox check.
type EmailAuthConfig struct {
	MonitorIMAPHost     string `toml:"monitor_imap_host"`
	MonitorIMAPPort     int    `toml:"monitor_imap_port"`
	MonitorIMAPUser     string `toml:"monitor_imap_user"`
	MonitorIMAPPassword string `toml:"monitor_imap_password"`
	MonitorMailbox      string `toml:"monitor_mailbox"`
}

// GitHubConfig configures the code-search exposure check.
type GitHubConfig struct {
	Token   string `toml:"token"`
	Enabled bool   `toml:"enabled"`
}

// SchedulerConfig configures the cron-driven recurring scan scheduler.
type SchedulerConfig struct {
	Enabled bool `toml:"enabled"`
}

// InfraConfigConfig configures the C7 infra-config collector's optional
// NVD cross-reference step.
type InfraConfigConfig struct {
	NVDEnabled bool   `toml:"nvd_enabled"`
	NVDAPIKey  string `toml:"nvd_api_key"`
}

// InvestigationConfig configures the C8 headless investigation collector.
type InvestigationConfig struct {
	NavigationTimeout string `toml:"navigation_timeout"`
	DarkWebCrossRef   bool   `toml:"dark_web_cross_ref"`
	ReputationCheck   bool   `toml:"reputation_check"`
	PerceptualHash    bool   `toml:"perceptual_hash"`
}

func (i InvestigationConfig) NavigationTimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(i.NavigationTimeout); err == nil {
		return d
	}
	return 30 * time.Second
}

// NetworkSecurityConfig configures the C-network-security tunnel/beaconing
// detector collector.
type NetworkSecurityConfig struct {
	ProbeTimeout    string `toml:"probe_timeout"`
	BeaconMinSamples int   `toml:"beacon_min_samples"`
}

func (n NetworkSecurityConfig) ProbeTimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(n.ProbeTimeout); err == nil {
		return d
	}
	return 5 * time.Second
}

// DefaultConfig returns the built-in defaults, before file/env overrides.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server:      ServerConfig{Port: 8080, Host: "0.0.0.0"},
		Logging:     LoggingConfig{Level: "info", Output: []string{"console"}},
		Storage:     StorageConfig{BadgerPath: "./data/badger"},
		Queue:       QueueConfig{Capacity: 10000},
		Tor: TorConfig{
			ProxyHost: "127.0.0.1",
			ProxyPort: 9050,
			ProxyType: "socks5",
			Timeout:   "30s",
			Required:  false,
		},
		DarkWeb: DarkWebConfig{
			BatchSize:         100,
			DefaultCrawlLimit: 50,
			MaxWorkers:        8,
			CrawlTimeout:      "600s",
			DiscoveryTimeout:  "120s",
			Engines:           []string{"ahmia", "tor66", "onionland"},
			MaxPages:          30,
			EngineTimeout:     "60s",
		},
		Crawler: CrawlerConfig{
			DNSTimeout:  "2s",
			HTTPTimeout: "5s",
			Concurrency: 20,
		},
		Scheduler: SchedulerConfig{Enabled: true},
		Investigation: InvestigationConfig{
			NavigationTimeout: "30s",
			DarkWebCrossRef:   true,
			ReputationCheck:   true,
			PerceptualHash:    false,
		},
		NetworkSecurity: NetworkSecurityConfig{
			ProbeTimeout:     "5s",
			BeaconMinSamples: 10,
		},
	}
}

// LoadConfig layers defaults, then each TOML file in order, then
// environment variable overrides.
func LoadConfig(files ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Scheduler.Enabled {
		// cron expressions are validated by the callers that register
		// them; nothing is parsed here, this only references the package.
		_ = cron.New
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TOR_PROXY_HOST"); v != "" {
		cfg.Tor.ProxyHost = v
	}
	if v := os.Getenv("TOR_PROXY_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Tor.ProxyPort = n
		}
	}
	if v := os.Getenv("TOR_PROXY_TYPE"); v != "" {
		cfg.Tor.ProxyType = v
	}
	if v := os.Getenv("TOR_TIMEOUT"); v != "" {
		cfg.Tor.Timeout = v
	}
	if v := os.Getenv("TOR_REQUIRED"); v != "" {
		cfg.Tor.Required = v == "true" || v == "1"
	}
	if v := os.Getenv("DARKWEB_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DarkWeb.BatchSize = n
		}
	}
	if v := os.Getenv("DARKWEB_DEFAULT_CRAWL_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DarkWeb.DefaultCrawlLimit = n
		}
	}
	if v := os.Getenv("DARKWEB_MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DarkWeb.MaxWorkers = n
		}
	}
	if v := os.Getenv("DARKWEB_CRAWL_TIMEOUT"); v != "" {
		cfg.DarkWeb.CrawlTimeout = v
	}
	if v := os.Getenv("DARKWEB_DISCOVERY_TIMEOUT"); v != "" {
		cfg.DarkWeb.DiscoveryTimeout = v
	}
	if v := os.Getenv("ONIONSEARCH_TIMEOUT"); v != "" {
		cfg.DarkWeb.EngineTimeout = v
	}
	if v := os.Getenv("ONIONSEARCH_MAX_PAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DarkWeb.MaxPages = n
		}
	}
}
