package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"cadastre/internal/cadastre"
	"cadastre/internal/sheets"
	"cadastre/internal/viewport"

	"gopkg.in/yaml.v3"
)

type APIConfig struct {
	Addr           string
	DatabaseURL    string
	RefreshEvery   time.Duration
	SessionTTL     time.Duration
	PINHashCost    int
	LoginPerMinute float64
	LoginBurst     int
	BootstrapFetch bool
	Sources        Sources
}

type WorkerConfig struct {
	DatabaseURL string
	FetchEvery  time.Duration
	RunOnce     bool
	// MetricsAddr serves /metrics; "off" leaves it empty and disables it.
	MetricsAddr string
	Sources     Sources
}

type CLIConfig struct {
	APIBaseURL string
}

// Sources describes where row-sets come from and how to read them.
type Sources struct {
	Spreadsheet    sheets.Spreadsheet `yaml:"spreadsheet"`
	World          World              `yaml:"world"`
	LotterySetting string             `yaml:"lottery_setting"`
	Columns        cadastre.Schema    `yaml:"columns"`
}

type World struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

func DefaultSources() Sources {
	return Sources{
		Spreadsheet:    sheets.DefaultSpreadsheet(),
		World:          World{Width: viewport.DefaultWorldWidth, Height: viewport.DefaultWorldHeight},
		LotterySetting: cadastre.LotterySetting,
		Columns:        cadastre.DefaultSchema(),
	}
}

// Viewport returns the camera configuration for the configured world.
func (s Sources) Viewport() viewport.Config {
	cfg := viewport.DefaultConfig()
	cfg.WorldWidth = s.World.Width
	cfg.WorldHeight = s.World.Height
	return cfg
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("CADASTRE_API_ADDR", ":8080")
	}

	sources, err := LoadSources(os.Getenv("CADASTRE_SOURCES_FILE"))
	if err != nil {
		return APIConfig{}, err
	}
	cfg := APIConfig{
		Addr:           addr,
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RefreshEvery:   envDurationDefault("CADASTRE_REFRESH_EVERY", 5*time.Minute),
		SessionTTL:     envDurationDefault("CADASTRE_SESSION_TTL", 12*time.Hour),
		PINHashCost:    envIntDefault("CADASTRE_PIN_HASH_COST", 4),
		LoginPerMinute: envFloatDefault("CADASTRE_LOGIN_PER_MINUTE", 6),
		LoginBurst:     envIntDefault("CADASTRE_LOGIN_BURST", 3),
		BootstrapFetch: envBoolDefault("CADASTRE_BOOTSTRAP_FETCH", true),
		Sources:        sources,
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	sources, err := LoadSources(os.Getenv("CADASTRE_SOURCES_FILE"))
	if err != nil {
		return WorkerConfig{}, err
	}
	cfg := WorkerConfig{
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		FetchEvery:  envDurationDefault("CADASTRE_FETCH_EVERY", 10*time.Minute),
		RunOnce:     envBoolDefault("CADASTRE_WORKER_RUN_ONCE", false),
		MetricsAddr: envDefault("CADASTRE_WORKER_METRICS_ADDR", ":9091"),
		Sources:     sources,
	}
	if strings.EqualFold(cfg.MetricsAddr, "off") {
		cfg.MetricsAddr = ""
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("CADASTRE_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

// LoadSources reads a YAML sources file over the compiled-in defaults. An
// empty path yields the defaults.
func LoadSources(path string) (Sources, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultSources(), nil
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return Sources{}, fmt.Errorf("read sources file: %w", err)
	}
	out, err := ParseSources(body)
	if err != nil {
		return Sources{}, fmt.Errorf("sources file %s: %w", path, err)
	}
	return out, nil
}

func ParseSources(body []byte) (Sources, error) {
	var s Sources
	dec := yaml.NewDecoder(bytes.NewReader(body))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Sources{}, err
	}

	d := DefaultSources()
	s.Spreadsheet = s.Spreadsheet.WithDefaults()
	s.Columns = s.Columns.WithDefaults()
	if strings.TrimSpace(s.LotterySetting) == "" {
		s.LotterySetting = d.LotterySetting
	}
	if s.World.Width == 0 && s.World.Height == 0 {
		s.World = d.World
	}
	if s.World.Width <= 0 || s.World.Height <= 0 {
		return Sources{}, fmt.Errorf("world must have positive width and height, got %gx%g", s.World.Width, s.World.Height)
	}
	return s, nil
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
