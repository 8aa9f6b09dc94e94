package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Backend.Driver != DriverPostgres {
		t.Errorf("Expected default driver %q, got %q", DriverPostgres, cfg.Backend.Driver)
	}
	if cfg.Checkout.DeliveryETA != 45*time.Minute {
		t.Errorf("Expected delivery ETA 45m, got %s", cfg.Checkout.DeliveryETA)
	}
	if cfg.Features.EnablePaymentCapture {
		t.Error("Expected payment capture to be disabled by default")
	}
	if cfg.Auth.JWTSecret != "" {
		t.Errorf("Expected no default JWT secret, got %q", cfg.Auth.JWTSecret)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("BACKEND_DRIVER", DriverMemory)
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("FEATURE_CATALOG_CACHING", "false")
	t.Setenv("DELIVERY_ETA_MINUTES", "30")

	cfg := Load()

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Backend.Driver != DriverMemory {
		t.Errorf("Expected driver %q, got %q", DriverMemory, cfg.Backend.Driver)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Unexpected brokers: %v", cfg.Kafka.Brokers)
	}
	if cfg.Features.EnableCatalogCaching {
		t.Error("Expected catalog caching to be disabled")
	}
	if cfg.Checkout.DeliveryETA != 30*time.Minute {
		t.Errorf("Expected delivery ETA 30m, got %s", cfg.Checkout.DeliveryETA)
	}
}

func TestGetEnvInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")

	if got := getEnvInt("SOME_INT", 7); got != 7 {
		t.Errorf("Expected fallback 7, got %d", got)
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}

	want := "host=db port=5432 user=u password=p dbname=n sslmode=disable"
	if got := d.ConnectionString(); got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}
}
