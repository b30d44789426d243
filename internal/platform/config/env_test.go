package config

import "testing"

type testConfig struct {
	Addr     string `env:"TABLETALLY_TEST_ADDR" envDefault:":8090"`
	MaxLevel int    `env:"TABLETALLY_TEST_MAX_LEVEL" envDefault:"10"`
}

func TestParseEnv_Defaults(t *testing.T) {
	var cfg testConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("ParseEnv() error = %v", err)
	}
	if cfg.Addr != ":8090" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, ":8090")
	}
	if cfg.MaxLevel != 10 {
		t.Errorf("MaxLevel = %d, want 10", cfg.MaxLevel)
	}
}

func TestParseEnv_Override(t *testing.T) {
	t.Setenv("TABLETALLY_TEST_ADDR", ":9999")

	var cfg testConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("ParseEnv() error = %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, ":9999")
	}
}
