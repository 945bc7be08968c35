package config

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}

	if cfg.Database.Driver != DriverPostgres {
		t.Errorf("driver = %q, want %q", cfg.Database.Driver, DriverPostgres)
	}
	if !cfg.Bidding.AutoBidIncrement.Equal(decimal.NewFromInt(1)) {
		t.Errorf("increment = %s, want 1", cfg.Bidding.AutoBidIncrement)
	}
	if cfg.Closer.GracePeriod != 5*time.Minute {
		t.Errorf("grace period = %s, want 5m", cfg.Closer.GracePeriod)
	}
	if cfg.Bidding.CascadeMaxSteps != 100 {
		t.Errorf("cascade max steps = %d, want 100", cfg.Bidding.CascadeMaxSteps)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv(StorageDriver, "MEMORY")
	t.Setenv(BidAutoIncrement, "0.25")
	t.Setenv(BidLockBackend, "redis")
	t.Setenv(BidLockWait, "500ms")
	t.Setenv(CloserGracePeriod, "10m")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Database.Driver != DriverMemory {
		t.Errorf("driver = %q, want %q", cfg.Database.Driver, DriverMemory)
	}
	if cfg.Bidding.AutoBidIncrement.String() != "0.25" {
		t.Errorf("increment = %s, want 0.25", cfg.Bidding.AutoBidIncrement)
	}
	if cfg.Bidding.LockWait != 500*time.Millisecond {
		t.Errorf("lock wait = %s, want 500ms", cfg.Bidding.LockWait)
	}
	if cfg.Closer.GracePeriod != 10*time.Minute {
		t.Errorf("grace period = %s, want 10m", cfg.Closer.GracePeriod)
	}
}

func TestLoadConfigRejectsBadIncrement(t *testing.T) {
	t.Setenv(BidAutoIncrement, "one")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig accepted a non-numeric increment")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }, "storage driver"},
		{"postgres without url", func(c *Config) { c.Database.URL = "" }, "database URL"},
		{"memory without url", func(c *Config) { c.Database.Driver = DriverMemory; c.Database.URL = "" }, ""},
		{"unknown lock", func(c *Config) { c.Bidding.LockBackend = "etcd" }, "lock backend"},
		{"zero increment", func(c *Config) { c.Bidding.AutoBidIncrement = decimal.Zero }, "increment"},
		{"redis ttl too short", func(c *Config) { c.Bidding.LockBackend = LockRedis; c.Bidding.LockTTL = time.Second }, "TTL"},
		{"nats without stream", func(c *Config) { c.NATS.Enabled = true; c.NATS.Stream = "" }, "NATS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig()
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}
