package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	commoncfg "github.com/caramaschiHG/Dilutio/common/config"
	"github.com/caramaschiHG/Dilutio/internal/compounding"
)

// Config dilutio（HTTP API / CLI）配置
type Config struct {
	HTTP struct {
		Addr string
	}

	// 计算结果缓存（按输入快照记忆化）
	Cache struct {
		Backend   string // "memory" 或 "redis"
		TTL       time.Duration
		KeyPrefix string
	}
	Redis commoncfg.RedisConfig

	// 每种提取物的密度（g/ml）
	Densities compounding.DensityTable

	Metrics struct {
		Enabled bool
	}

	Log commoncfg.LogConfig
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Cache.Backend = strings.ToLower(getEnv("CACHE_BACKEND", "memory"))
	cfg.Cache.TTL = time.Duration(parseInt(getEnv("CACHE_TTL_SECONDS", "300"), 300)) * time.Second
	cfg.Cache.KeyPrefix = getEnv("CACHE_KEY_PREFIX", "dilutio:calc:")

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.Densities = compounding.DefaultDensities()
	for _, t := range compounding.ExtractTypes {
		key := "DENSITY_" + strings.ToUpper(string(t))
		if v, ok := parsePositiveFloat(os.Getenv(key)); ok {
			cfg.Densities[t] = v
		}
	}

	cfg.Metrics.Enabled = getEnv("METRICS_ENABLED", "true") == "true"

	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	cfg.Log.LoadFromEnv("LOG")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return def
	}
	return i
}

func parsePositiveFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !(v > 0 && v <= 100) {
		return 0, false
	}
	return v, true
}
