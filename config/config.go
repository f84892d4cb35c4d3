package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig     `json:"server"`
	Simulation SimulationConfig `json:"simulation"`
	Detection  DetectionConfig  `json:"detection"`
	AI         AIConfig         `json:"ai"`
	Redis      RedisConfig      `json:"redis"`
	MongoDB    MongoDBConfig    `json:"mongodb"`
	GeoIP      GeoIPConfig      `json:"geoip"`
	Frontend   FrontendConfig   `json:"frontend"`
}

type ServerConfig struct {
	Port           int      `json:"port"`
	Host           string   `json:"host"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// SimulationConfig holds the orchestrator tuning. These are simulation
// constants rather than operational knobs; the defaults match the shipped
// dashboard behavior.
type SimulationConfig struct {
	TickIntervalMs      int     `json:"tick_interval_ms"`
	AnomalyChance       float64 `json:"anomaly_chance"` // per-tick chance of an anomaly-flavored batch
	ErrorBurstSize      int     `json:"error_burst_size"`
	TrafficCap          int     `json:"traffic_cap"`
	AnomalyCap          int     `json:"anomaly_cap"`
	DetectionMinTraffic int     `json:"detection_min_traffic"`
	DetectionWindow     int     `json:"detection_window"`
	MetricsWindow       int     `json:"metrics_window"`
	DedupSeconds        int     `json:"dedup_seconds"`
}

// DetectionConfig holds the anomaly classification thresholds.
type DetectionConfig struct {
	LatencyMultiplier    float64 `json:"latency_multiplier"`
	LatencyShare         float64 `json:"latency_share"`
	LatencyCriticalShare float64 `json:"latency_critical_share"`
	ErrorRate            float64 `json:"error_rate"`
	ErrorRateHigh        float64 `json:"error_rate_high"`
	ErrorRateCritical    float64 `json:"error_rate_critical"`
	TimeoutRate          float64 `json:"timeout_rate"`
	TimeoutRateHigh      float64 `json:"timeout_rate_high"`
}

// AIConfig points at the hosted model endpoint used for analysis.
type AIConfig struct {
	Endpoint    string  `json:"endpoint"`
	Model       string  `json:"model"`
	APIToken    string  `json:"-"` // env only, never written to a config file
	Timeout     int     `json:"timeout_seconds"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Enabled  bool   `json:"enabled"`
	UseTLS   bool   `json:"use_tls"`
}

type MongoDBConfig struct {
	URI      string `json:"uri"`
	Database string `json:"database"`
	Enabled  bool   `json:"enabled"`
}

type GeoIPConfig struct {
	DBPath string `json:"db_path"`
}

// FrontendConfig drives the dashboard client compatibility check on /health.
type FrontendConfig struct {
	CurrentVersion string `json:"current_version"`
	MinVersion     string `json:"min_version"`
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           8787,
			Host:           "0.0.0.0",
			AllowedOrigins: []string{"*"},
		},
		Simulation: SimulationConfig{
			TickIntervalMs:      500,
			AnomalyChance:       0.1,
			ErrorBurstSize:      3,
			TrafficCap:          1000,
			AnomalyCap:          10,
			DetectionMinTraffic: 20,
			DetectionWindow:     50,
			MetricsWindow:       100,
			DedupSeconds:        10,
		},
		Detection: DetectionConfig{
			LatencyMultiplier:    3,
			LatencyShare:         0.1,
			LatencyCriticalShare: 0.3,
			ErrorRate:            0.15,
			ErrorRateHigh:        0.2,
			ErrorRateCritical:    0.3,
			TimeoutRate:          0.05,
			TimeoutRateHigh:      0.15,
		},
		AI: AIConfig{
			Endpoint:    "",
			Model:       "@cf/meta/llama-3-8b-instruct",
			Timeout:     60,
			MaxTokens:   1024,
			Temperature: 0.3,
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
			DB:      0,
			Enabled: true,
			UseTLS:  false,
		},
		MongoDB: MongoDBConfig{
			URI:      "mongodb://localhost:27017",
			Database: "edgescope",
			Enabled:  true,
		},
		GeoIP: GeoIPConfig{
			DBPath: "",
		},
		Frontend: FrontendConfig{
			CurrentVersion: "1.0.0",
			MinVersion:     "0.9.0",
		},
	}

	// Load from config file if exists
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config/config.json"
	}

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.Open(configPath)
		if err == nil {
			defer file.Close()
			decoder := json.NewDecoder(file)
			if err := decoder.Decode(cfg); err != nil {
				fmt.Printf("Warning: Failed to decode config file: %v\n", err)
			}
		}
	}

	// Environment variables override the config file
	loadEnv(cfg)

	// Command-line flags override everything
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	var serverPort int
	var serverHost string

	fs.IntVar(&serverPort, "port", 0, "Server port")
	fs.StringVar(&serverHost, "host", "", "Server host")

	_ = fs.Parse(os.Args[1:])

	if isFlagPassed(fs, "port") {
		cfg.Server.Port = serverPort
	}
	if isFlagPassed(fs, "host") {
		cfg.Server.Host = serverHost
	}

	return cfg, nil
}

func isFlagPassed(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func loadEnv(cfg *Config) {
	// Server configuration
	if val := os.Getenv("SERVER_PORT"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = p
		}
	}
	if val := os.Getenv("SERVER_HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := os.Getenv("ALLOWED_ORIGINS"); val != "" {
		cfg.Server.AllowedOrigins = strings.Split(val, ",")
	}

	// Simulation configuration
	if val := os.Getenv("SIM_TICK_INTERVAL_MS"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Simulation.TickIntervalMs = p
		}
	}
	if val := os.Getenv("SIM_ANOMALY_CHANCE"); val != "" {
		if p, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Simulation.AnomalyChance = p
		}
	}
	if val := os.Getenv("SIM_TRAFFIC_CAP"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Simulation.TrafficCap = p
		}
	}
	if val := os.Getenv("SIM_ANOMALY_CAP"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Simulation.AnomalyCap = p
		}
	}
	if val := os.Getenv("SIM_DEDUP_SECONDS"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Simulation.DedupSeconds = p
		}
	}

	// AI configuration
	if val := os.Getenv("AI_ENDPOINT"); val != "" {
		cfg.AI.Endpoint = val
	}
	if val := os.Getenv("AI_MODEL"); val != "" {
		cfg.AI.Model = val
	}
	if val := os.Getenv("AI_API_TOKEN"); val != "" {
		cfg.AI.APIToken = val
	}
	if val := os.Getenv("AI_TIMEOUT"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.AI.Timeout = p
		}
	}

	// Redis configuration
	if val := os.Getenv("REDIS_ADDRESS"); val != "" {
		cfg.Redis.Address = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = p
		}
	}
	if val := os.Getenv("REDIS_ENABLED"); val != "" {
		cfg.Redis.Enabled = val == "true" || val == "1"
	}
	if val := os.Getenv("REDIS_USE_TLS"); val != "" {
		cfg.Redis.UseTLS = val == "true" || val == "1"
	}

	// MongoDB configuration
	if val := os.Getenv("MONGODB_URI"); val != "" {
		cfg.MongoDB.URI = val
	}
	if val := os.Getenv("MONGODB_DATABASE"); val != "" {
		cfg.MongoDB.Database = val
	}
	if val := os.Getenv("MONGODB_ENABLED"); val != "" {
		cfg.MongoDB.Enabled = val == "true" || val == "1"
	}

	// GeoIP configuration
	if val := os.Getenv("GEOIP_DB_PATH"); val != "" {
		cfg.GeoIP.DBPath = val
	}

	// Frontend configuration
	if val := os.Getenv("FRONTEND_CURRENT_VERSION"); val != "" {
		cfg.Frontend.CurrentVersion = val
	}
	if val := os.Getenv("FRONTEND_MIN_VERSION"); val != "" {
		cfg.Frontend.MinVersion = val
	}
}

// Helper methods for duration conversion
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Simulation.TickIntervalMs) * time.Millisecond
}

func (c *Config) DedupWindow() time.Duration {
	return time.Duration(c.Simulation.DedupSeconds) * time.Second
}

func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AI.Timeout) * time.Second
}
