// Package config loads server configuration from an optional YAML file with
// environment overrides on top.
package config

import (
    "fmt"
    "os"
    "strconv"

    "gopkg.in/yaml.v3"

    "supplygw/internal/model"
)

type Config struct {
    Port        int    `yaml:"port"`
    DatabaseURL string `yaml:"databaseUrl"`
    SQLitePath  string `yaml:"sqlitePath"`
    RedisURL    string `yaml:"redisUrl"`
    LogLevel    string `yaml:"logLevel"`

    // Suppliers seeded into the store at startup; the API can change them
    // afterwards.
    Suppliers []model.SupplierConfig `yaml:"suppliers"`
}

func Default() Config {
    return Config{Port: 8080, LogLevel: "info"}
}

// Load reads the YAML file at path (skipped when path is empty or missing)
// and then applies environment overrides.
func Load(path string) (Config, error) {
    cfg := Default()
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil && !os.IsNotExist(err) {
            return cfg, fmt.Errorf("read config: %w", err)
        }
        if err == nil {
            if err := yaml.Unmarshal(b, &cfg); err != nil {
                return cfg, fmt.Errorf("parse config: %w", err)
            }
        }
    }
    cfg.applyEnv()
    if cfg.Port <= 0 { cfg.Port = 8080 }
    return cfg, nil
}

func (c *Config) applyEnv() {
    if v := os.Getenv("PORT"); v != "" {
        if n, err := strconv.Atoi(v); err == nil { c.Port = n }
    }
    if v := os.Getenv("DATABASE_URL"); v != "" { c.DatabaseURL = v }
    if v := os.Getenv("SQLITE_PATH"); v != "" { c.SQLitePath = v }
    if v := os.Getenv("REDIS_URL"); v != "" { c.RedisURL = v }
    if v := os.Getenv("LOG_LEVEL"); v != "" { c.LogLevel = v }
}
