package config

import "testing"

func TestParseEnv(t *testing.T) {
	type cfg struct {
		Port string `env:"TEST_CFG_PORT" envDefault:"8080"`
		Name string `env:"TEST_CFG_NAME"`
	}

	t.Setenv("TEST_CFG_NAME", "fitment")

	var c cfg
	if err := ParseEnv(&c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Port != "8080" {
		t.Errorf("default not applied, port=%q", c.Port)
	}
	if c.Name != "fitment" {
		t.Errorf("env not read, name=%q", c.Name)
	}
}

func TestParseEnv_InvalidTarget(t *testing.T) {
	var notAStruct int
	if err := ParseEnv(&notAStruct); err == nil {
		t.Fatal("expected error for non-struct target")
	}
}
