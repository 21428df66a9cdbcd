package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	once sync.Once
	v    *viper.Viper
)

// env returns the process-wide viper instance. A local .env file is loaded
// into the environment first; real environment variables win over it.
func env() *viper.Viper {
	once.Do(func() {
		_ = godotenv.Load()
		v = viper.New()
		v.AutomaticEnv()
	})
	return v
}

func String(key, fallback string) string {
	s := strings.TrimSpace(env().GetString(key))
	if s == "" {
		return fallback
	}
	return s
}

func RequiredString(key string) (string, error) {
	s := String(key, "")
	if s == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return s, nil
}

func Port(key, fallback string) (string, error) {
	s := String(key, fallback)
	p, err := strconv.Atoi(s)
	if err != nil || p < 1 || p > 65535 {
		return "", fmt.Errorf("%s must be a valid TCP port (got %q)", key, s)
	}
	return s, nil
}

func Int(key string, fallback int) (int, error) {
	s := String(key, "")
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got %q)", key, s)
	}
	return n, nil
}

func Duration(key string, fallback time.Duration) (time.Duration, error) {
	s := String(key, "")
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s must be a duration like 5s (got %q)", key, s)
	}
	return d, nil
}

func Bool(key string, fallback bool) bool {
	s := strings.ToLower(String(key, ""))
	switch s {
	case "":
		return fallback
	case "0", "false", "no", "off":
		return false
	default:
		return true
	}
}

func Float(key string, fallback float64) float64 {
	s := String(key, "")
	if s == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return f
}

// List splits a comma-separated value, dropping blanks.
func List(key string) []string {
	var out []string
	for _, item := range strings.Split(String(key, ""), ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
