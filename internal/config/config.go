// Package config loads service configuration.
//
// Precedence, lowest to highest: built-in defaults, an optional YAML file
// (CONFIG_PATH or ./config.yaml), a ./.env file, then process environment.
// Environment keys map onto the nested layout with "__" as separator, e.g.
// RECOMMEND__MAX_RESULTS -> recommend.max_results. A few flat legacy names
// (HTTP_PORT, MONGO_URI, REDIS_ADDR, ML_NODE_ADDRS, LOG_LEVEL) are accepted too.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the YAML config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Data      DataConfig      `koanf:"data"`
	Recommend RecommendConfig `koanf:"recommend"`
	Cluster   ClusterConfig   `koanf:"cluster"`
	Redis     RedisConfig     `koanf:"redis"`
	Mongo     MongoConfig     `koanf:"mongo"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimit       int           `koanf:"rate_limit"` // requests per minute per IP; 0 disables
}

// DataConfig names the artifacts. Each *URL is optional: when set, a
// missing file is downloaded into Dir before loading.
type DataConfig struct {
	Dir            string        `koanf:"dir"`
	FetchTimeout   time.Duration `koanf:"fetch_timeout"`
	ItemsFile      string        `koanf:"items_file"`
	ItemsURL       string        `koanf:"items_url"`
	UsersFile      string        `koanf:"users_file"`
	UsersURL       string        `koanf:"users_url"`
	RatingsFile    string        `koanf:"ratings_file"`
	RatingsURL     string        `koanf:"ratings_url"`
	SimilarityFile string        `koanf:"similarity_file"`
	SimilarityURL  string        `koanf:"similarity_url"`
	ModelFile      string        `koanf:"model_file"`
	ModelURL       string        `koanf:"model_url"`
}

type RecommendConfig struct {
	DefaultResults int           `koanf:"default_results"`
	MaxResults     int           `koanf:"max_results"`
	Workers        int           `koanf:"workers"`
	CacheTTL       time.Duration `koanf:"cache_ttl"`
}

type ClusterConfig struct {
	NodeAddrs        []string      `koanf:"node_addrs"`
	ListenAddr       string        `koanf:"listen_addr"` // used by the scoring node
	Timeout          time.Duration `koanf:"timeout"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
	OpenTimeout      time.Duration `koanf:"open_timeout"`
	LocalFallback    bool          `koanf:"local_fallback"`
}

// RedisConfig enables the result cache when Addr is set.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// MongoConfig enables recommendation history when URI is set.
type MongoConfig struct {
	URI      string `koanf:"uri"`
	Database string `koanf:"database"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimit:       120,
		},
		Data: DataConfig{
			Dir:            "data",
			FetchTimeout:   5 * time.Minute,
			ItemsFile:      "book_meta.csv",
			UsersFile:      "users_names.csv",
			RatingsFile:    "ratings.csv",
			SimilarityFile: "item_similarity_topk.gob",
			ModelFile:      "svd_model.gob",
		},
		Recommend: RecommendConfig{
			DefaultResults: 5,
			MaxResults:     50,
			Workers:        4,
			CacheTTL:       time.Hour,
		},
		Cluster: ClusterConfig{
			ListenAddr:       ":9000",
			Timeout:          10 * time.Second,
			FailureThreshold: 3,
			OpenTimeout:      30 * time.Second,
			LocalFallback:    true,
		},
		Mongo: MongoConfig{Database: "bookrec"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// legacyEnv maps flat environment names onto config paths.
var legacyEnv = map[string]string{
	"http_port":      "server.port",
	"mongo_uri":      "mongo.uri",
	"mongo_db":       "mongo.database",
	"redis_addr":     "redis.addr",
	"redis_password": "redis.password",
	"ml_node_addrs":  "cluster.node_addrs",
	"node_addr":      "cluster.listen_addr",
	"data_dir":       "data.dir",
	"log_level":      "logging.level",
	"log_format":     "logging.format",
}

// sliceKeys are parsed from comma-separated strings when they come from env.
var sliceKeys = []string{"server.cors_origins", "cluster.node_addrs"}

// sections are the top-level keys nested env names may address.
var sections = []string{"server", "data", "recommend", "cluster", "redis", "mongo", "logging"}

// envKey maps an environment name to a config path. Unrelated variables map
// to "" and are skipped by the provider.
func envKey(key string) string {
	key = strings.ToLower(key)
	if path, ok := legacyEnv[key]; ok {
		return path
	}
	for _, s := range sections {
		if strings.HasPrefix(key, s+"__") {
			return strings.ReplaceAll(key, "__", ".")
		}
	}
	return ""
}

// Load builds the configuration from defaults, file, .env and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if err := splitSlices(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	candidates := []string{"config.yaml", "config.yml"}
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		candidates = append([]string{p}, candidates...)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func splitSlices(k *koanf.Koanf) error {
	for _, key := range sliceKeys {
		s, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(key, parts); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Recommend.MaxResults <= 0 {
		errs = append(errs, errors.New("recommend.max_results must be positive"))
	}
	if c.Recommend.DefaultResults <= 0 || c.Recommend.DefaultResults > c.Recommend.MaxResults {
		errs = append(errs, fmt.Errorf("recommend.default_results must be in [1, %d]", c.Recommend.MaxResults))
	}
	if c.Recommend.Workers <= 0 {
		errs = append(errs, errors.New("recommend.workers must be positive"))
	}
	if c.Data.Dir == "" {
		errs = append(errs, errors.New("data.dir is required"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must not be negative"))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}
