package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.Env != "development" || cfg.LogLevel != "info" {
		t.Errorf("unexpected server defaults: %+v", cfg)
	}
	if cfg.JWTTTL != 24*time.Hour || cfg.Idempotency.TTL != 24*time.Hour {
		t.Errorf("unexpected ttl defaults: jwt=%v idem=%v", cfg.JWTTTL, cfg.Idempotency.TTL)
	}
	if cfg.Postgres.MaxConns != 10 || cfg.Jobs.AuditWorkers != 4 || cfg.Jobs.CardStatsSchedule != "@every 1m" {
		t.Errorf("unexpected defaults: %+v %+v", cfg.Postgres, cfg.Jobs)
	}
	if cfg.Admin.Enabled() {
		t.Error("admin bootstrap must be off by default")
	}
}

func TestLoad_PANKeyFallsBackToJWTSecret(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{"JWT_SECRET": "jwt"}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PANKey() != "jwt" {
		t.Errorf("PANKey = %q, want jwt", cfg.PANKey())
	}

	cfg, err = load(context.Background(), envconfig.MapLookuper(map[string]string{"JWT_SECRET": "jwt", "PAN_SECRET": "pan"}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PANKey() != "pan" {
		t.Errorf("PANKey = %q, want pan", cfg.PANKey())
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := map[string]map[string]string{
		"JWT_SECRET":     {},
		"JWT_TTL":        {"JWT_SECRET": "x", "JWT_TTL": "0s"},
		"ADMIN_PASSWORD": {"JWT_SECRET": "x", "ADMIN_USERNAME": "root"},
	}
	for want, env := range cases {
		_, err := load(context.Background(), envconfig.MapLookuper(env))
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("env %v: expected error mentioning %s, got %v", env, want, err)
		}
	}
}
