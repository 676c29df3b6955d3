package config

import (
    "os"
    "path/filepath"
    "testing"
)

const sampleYAML = `
port: 9090
sqlitePath: /tmp/supply.db
logLevel: debug
suppliers:
  - supplierId: sup-1
    locationsUrl: http://supplier.example/locations
    role: locations-only
`

func TestLoadYAML(t *testing.T) {
    path := filepath.Join(t.TempDir(), "config.yaml")
    if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
        t.Fatal(err)
    }
    cfg, err := Load(path)
    if err != nil {
        t.Fatal(err)
    }
    if cfg.Port != 9090 || cfg.SQLitePath != "/tmp/supply.db" || cfg.LogLevel != "debug" {
        t.Fatalf("cfg=%+v", cfg)
    }
    if len(cfg.Suppliers) != 1 || cfg.Suppliers[0].SupplierID != "sup-1" {
        t.Fatalf("suppliers=%+v", cfg.Suppliers)
    }
    if cfg.Suppliers[0].Role != "locations-only" {
        t.Fatalf("role=%q", cfg.Suppliers[0].Role)
    }
}

func TestEnvOverridesFile(t *testing.T) {
    path := filepath.Join(t.TempDir(), "config.yaml")
    if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
        t.Fatal(err)
    }
    t.Setenv("PORT", "7070")
    t.Setenv("REDIS_URL", "redis://localhost:6379")
    cfg, err := Load(path)
    if err != nil {
        t.Fatal(err)
    }
    if cfg.Port != 7070 {
        t.Fatalf("env must win: port=%d", cfg.Port)
    }
    if cfg.RedisURL != "redis://localhost:6379" {
        t.Fatalf("redis=%q", cfg.RedisURL)
    }
    if cfg.SQLitePath != "/tmp/supply.db" {
        t.Fatal("file values without overrides must survive")
    }
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
    cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
    if err != nil {
        t.Fatal(err)
    }
    if cfg.Port != 8080 || cfg.LogLevel != "info" {
        t.Fatalf("cfg=%+v", cfg)
    }
}

func TestLoadRejectsBadYAML(t *testing.T) {
    path := filepath.Join(t.TempDir(), "config.yaml")
    if err := os.WriteFile(path, []byte("port: [nope"), 0o644); err != nil {
        t.Fatal(err)
    }
    if _, err := Load(path); err == nil {
        t.Fatal("expected parse error")
    }
}
