package config

import (
	"testing"
	"time"
)

func TestLoadSettingsDefaults(t *testing.T) {
	s := LoadSettings()

	if s.AdminAddr != ":8081" {
		t.Errorf("expected default admin addr :8081, got %s", s.AdminAddr)
	}
	if s.SecretKey != insecureDefaultSecret {
		t.Errorf("expected the insecure default secret, got %s", s.SecretKey)
	}
	if s.HeaderLimit != 8192 {
		t.Errorf("expected default header limit 8192, got %d", s.HeaderLimit)
	}
	if s.BodyReadTimeout != 5*time.Second {
		t.Errorf("expected default body timeout 5s, got %s", s.BodyReadTimeout)
	}
}

func TestLoadSettingsFromEnvironment(t *testing.T) {
	t.Setenv("PICO_SECRET_KEY", "hunter2")
	t.Setenv("PICO_ADMIN_ADDR", ":9999")
	t.Setenv("PICO_HEADER_LIMIT", "4096")
	t.Setenv("PICO_BODY_READ_TIMEOUT_MS", "250")

	s := LoadSettings()
	if s.SecretKey != "hunter2" {
		t.Errorf("expected secret from env, got %s", s.SecretKey)
	}
	if s.AdminAddr != ":9999" {
		t.Errorf("expected admin addr from env, got %s", s.AdminAddr)
	}
	if s.HeaderLimit != 4096 {
		t.Errorf("expected header limit from env, got %d", s.HeaderLimit)
	}
	if s.BodyReadTimeout != 250*time.Millisecond {
		t.Errorf("expected body timeout from env, got %s", s.BodyReadTimeout)
	}
}

func TestLoadSettingsRejectsBadValues(t *testing.T) {
	t.Setenv("PICO_HEADER_LIMIT", "-1")

	s := LoadSettings()
	if s.HeaderLimit != 8192 {
		t.Errorf("expected fallback header limit, got %d", s.HeaderLimit)
	}
}
