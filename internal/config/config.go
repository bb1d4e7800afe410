package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

const (
	DirName         = "jobsearch"
	ConfigFileName  = "config.json"
	ProxiesFileName = "proxies.txt"
	SavedDirName    = "saved"
)

// Config holds client and server settings. Environment variables provide
// the defaults and config.json overrides them.
type Config struct {
	ServerURL       string `json:"server_url"`
	UserEmail       string `json:"user_email"`
	DefaultLocation string `json:"default_location"`

	ListenAddr    string   `json:"listen_addr"`
	AllowOrigins  []string `json:"allow_origins"`
	Source        string   `json:"source"`
	ScraperURL    string   `json:"scraper_url"`
	BoardURL      string   `json:"board_url"`
	BoardCards    string   `json:"board_card_selector,omitempty"`
	MockFallback  bool     `json:"mock_fallback"`
	MaxJobs       int      `json:"max_jobs"`
	ResultStore   string   `json:"result_store"`
	ResultsTTL    string   `json:"results_ttl"`
	PurgeSchedule string   `json:"purge_schedule"`

	SavedStore  string `json:"saved_store"`
	DataDir     string `json:"data_dir"`
	RedisURL    string `json:"redis_url"`
	DatabaseURL string `json:"database_url"`
}

func DefaultConfig() Config {
	return Config{
		ServerURL:       envString("JOBSEARCH_SERVER_URL", "http://localhost:3000"),
		UserEmail:       envString("JOBSEARCH_USER_EMAIL", ""),
		DefaultLocation: envString("JOBSEARCH_DEFAULT_LOCATION", ""),
		ListenAddr:      envString("JOBSEARCH_LISTEN_ADDR", ":3000"),
		AllowOrigins:    splitCSV(envString("JOBSEARCH_ALLOW_ORIGINS", "*")),
		Source:          envString("JOBSEARCH_SOURCE", "cloud"),
		ScraperURL:      envString("JOBSEARCH_SCRAPER_URL", "https://linkedin-scraper-84814621060.us-central1.run.app/scrape-jobs"),
		BoardURL:        envString("JOBSEARCH_BOARD_URL", ""),
		BoardCards:      envString("JOBSEARCH_BOARD_CARD_SELECTOR", ""),
		MockFallback:    envBool("JOBSEARCH_MOCK_FALLBACK", true),
		MaxJobs:         envInt("JOBSEARCH_MAX_JOBS", 150),
		ResultStore:     envString("JOBSEARCH_RESULT_STORE", "memory"),
		ResultsTTL:      envString("JOBSEARCH_RESULTS_TTL", "24h"),
		PurgeSchedule:   envString("JOBSEARCH_PURGE_SCHEDULE", "@every 1h"),
		SavedStore:      envString("JOBSEARCH_SAVED_STORE", "file"),
		DataDir:         envString("JOBSEARCH_DATA_DIR", ""),
		RedisURL:        envString("JOBSEARCH_REDIS_URL", envString("REDIS_URL", "")),
		DatabaseURL:     envString("JOBSEARCH_DATABASE_URL", envString("DATABASE_URL", "")),
	}
}

// TTL parses ResultsTTL; zero disables purging.
func (c Config) TTL() (time.Duration, error) {
	value := strings.TrimSpace(c.ResultsTTL)
	if value == "" || value == "0" {
		return 0, nil
	}
	ttl, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("results_ttl: %w", err)
	}
	return ttl, nil
}

// SavedDir is where the file store keeps one JSON file per user.
func (c Config) SavedDir() (string, error) {
	if strings.TrimSpace(c.DataDir) != "" {
		return c.DataDir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SavedDirName), nil
}

func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, DirName), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

func ProxiesPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ProxiesFileName), nil
}

func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), err
	}
	return LoadFile(path)
}

// LoadFile reads a JSON5 config from path on top of the defaults. A missing
// or empty file yields the defaults.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}

	if err := json5.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Init writes default config.json and proxies.txt if they don't already exist.
func Init() ([]string, error) {
	var created []string

	dir, err := ConfigDir()
	if err != nil {
		return created, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return created, err
	}

	configPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := writeConfig(configPath, DefaultConfig()); err != nil {
			return created, err
		}
		created = append(created, configPath)
	}

	proxiesPath := filepath.Join(dir, ProxiesFileName)
	if _, err := os.Stat(proxiesPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(proxiesPath, []byte(""), 0o644); err != nil {
			return created, err
		}
		created = append(created, proxiesPath)
	}

	return created, nil
}

func writeConfig(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// LoadProxies resolves proxies from the flag, JOBSEARCH_PROXIES, then
// proxies.txt, in that order.
func LoadProxies(flagValue string) ([]string, error) {
	if strings.TrimSpace(flagValue) != "" {
		return splitCSV(flagValue), nil
	}

	if env := strings.TrimSpace(os.Getenv("JOBSEARCH_PROXIES")); env != "" {
		return splitCSV(env), nil
	}

	path, err := ProxiesPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var proxies []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		proxies = append(proxies, line)
	}
	return proxies, nil
}

func envString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
