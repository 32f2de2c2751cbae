package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Settings is the environment-level configuration, read from PICO_*
// variables. Application behavior (routes, database, hooks) lives in
// pico.lua; Settings only covers the operational knobs around it.
type Settings struct {
	Addr            string
	AdminAddr       string
	SecretKey       string
	PublicDir       string
	FunctionsDir    string
	MigrationsDir   string
	HeaderLimit     int
	BodyReadTimeout time.Duration
}

const insecureDefaultSecret = "default_secret"

// LoadSettings reads the PICO_* environment with defaults applied.
// An empty Addr defers to the PORT value in pico.lua.
func LoadSettings() Settings {
	v := viper.New()
	v.SetEnvPrefix("PICO")
	v.AutomaticEnv()

	v.SetDefault("addr", "")
	v.SetDefault("admin_addr", ":8081")
	v.SetDefault("secret_key", insecureDefaultSecret)
	v.SetDefault("public_dir", "public")
	v.SetDefault("functions_dir", "functions")
	v.SetDefault("migrations_dir", "migrations")
	v.SetDefault("header_limit", 8192)
	v.SetDefault("body_read_timeout_ms", 5000)

	s := Settings{
		Addr:            v.GetString("addr"),
		AdminAddr:       v.GetString("admin_addr"),
		SecretKey:       v.GetString("secret_key"),
		PublicDir:       v.GetString("public_dir"),
		FunctionsDir:    v.GetString("functions_dir"),
		MigrationsDir:   v.GetString("migrations_dir"),
		HeaderLimit:     v.GetInt("header_limit"),
		BodyReadTimeout: time.Duration(v.GetInt("body_read_timeout_ms")) * time.Millisecond,
	}

	if s.SecretKey == insecureDefaultSecret {
		log.Printf("[config] PICO_SECRET_KEY not set, using insecure default")
	}
	if s.HeaderLimit <= 0 {
		log.Printf("[config] invalid PICO_HEADER_LIMIT %d, using 8192", s.HeaderLimit)
		s.HeaderLimit = 8192
	}
	if s.BodyReadTimeout <= 0 {
		log.Printf("[config] invalid PICO_BODY_READ_TIMEOUT_MS, using 5000")
		s.BodyReadTimeout = 5 * time.Second
	}

	return s
}
