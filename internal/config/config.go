package config

import (
	"errors"
	"fmt"
	"gop-scraper/lib/configutil"
	"gop-scraper/lib/scrapers/gop"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
)

const (
	EnvUsername     = "USER_MUNI"
	EnvPassword     = "PASS_MUNI"
	EnvDownloadPdfs = "DOWNLOAD_PDFS"
	EnvHeadless     = "HEADLESS"
)

var ErrMissingCredentials = fmt.Errorf("%s and %s must be set", EnvUsername, EnvPassword)

// Config is built once at startup and passed down explicitly.
type Config struct {
	BaseUrl   string `json:"base_url"`
	LoginPath string `json:"login_path"`
	TraysPath string `json:"trays_path"`

	Username string `json:"username"`
	Password string `json:"password"`

	// nil means unset: no downloads, headless
	DownloadPdfs *bool `json:"download_pdfs"`
	Headless     *bool `json:"headless"`

	OutputDir   string `json:"output_dir"`
	DownloadDir string `json:"download_dir"`
	// diagnostic html snapshots, defaults to OutputDir
	SnapshotDir string `json:"snapshot_dir"`

	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	CloudflareBypass  bool    `json:"cloudflare_bypass"`

	Selectors gop.Selectors `json:"selectors"`
}

func ptr[T any](v T) *T { return &v }

func Defaults() Config {
	return Config{
		BaseUrl:           "https://posadas.gestiondeobrasprivadas.com.ar",
		LoginPath:         "/frontend/web/site/login",
		TraysPath:         "/frontend/web/formality/index-all",
		OutputDir:         "data",
		DownloadDir:       "downloads",
		TimeoutSeconds:    30,
		RequestsPerSecond: 2,
		Selectors:         gop.DefaultSelectors(),
	}
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) ShouldDownloadPdfs() bool { return c.DownloadPdfs != nil && *c.DownloadPdfs }
func (c Config) IsHeadless() bool         { return c.Headless == nil || *c.Headless }

func (c Config) resolve(path string) (string, error) {
	base, err := url.Parse(c.BaseUrl)
	if err != nil {
		return "", fmt.Errorf("parse base_url: %w", err)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func (c Config) LoginUrl() (string, error) { return c.resolve(c.LoginPath) }
func (c Config) TraysUrl() (string, error) { return c.resolve(c.TraysPath) }

func (c Config) Validate() error {
	var errs []error
	if c.Username == "" || c.Password == "" {
		errs = append(errs, ErrMissingCredentials)
	}
	base, err := url.Parse(c.BaseUrl)
	if err != nil || !base.IsAbs() {
		errs = append(errs, fmt.Errorf("base_url must be an absolute url: %q", c.BaseUrl))
	}
	if c.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("timeout_seconds must be positive, got %d", c.TimeoutSeconds))
	}
	if c.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("requests_per_second must not be negative"))
	}
	if c.OutputDir == "" {
		errs = append(errs, fmt.Errorf("output_dir must be set"))
	}
	if c.ShouldDownloadPdfs() && c.DownloadDir == "" {
		errs = append(errs, fmt.Errorf("download_dir must be set when downloading documents"))
	}
	return errors.Join(errs...)
}

type LoadOptions struct {
	// config file name, <name>.local.<ext> is merged on top of it
	File string
	// .env file consulted for keys missing from the environment
	DotEnv string
	// defaults to os.Getenv
	Getenv func(string) string
}

// Load layers defaults, the config file, its local override and finally the
// environment. a missing config file is not an error.
func Load(opts LoadOptions) (Config, error) {
	if opts.File == "" {
		opts.File = "gop.json5"
	}
	if opts.DotEnv == "" {
		opts.DotEnv = ".env"
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	cfg := Defaults()

	fromFile, err := configutil.ReadConfig[Config](opts.File)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}
	if err == nil {
		err = mergo.Merge(&cfg, fromFile, mergo.WithOverride, mergo.WithoutDereference)
		if err != nil {
			return Config{}, fmt.Errorf("merge %s: %w", opts.File, err)
		}
	}

	dotenv, err := godotenv.Read(opts.DotEnv)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read %s: %w", opts.DotEnv, err)
	}
	lookup := func(key string) string {
		if v := opts.Getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}

	if v := lookup(EnvUsername); v != "" {
		cfg.Username = v
	}
	if v := lookup(EnvPassword); v != "" {
		cfg.Password = v
	}
	for key, target := range map[string]**bool{
		EnvDownloadPdfs: &cfg.DownloadPdfs,
		EnvHeadless:     &cfg.Headless,
	} {
		raw := strings.TrimSpace(lookup(key))
		if raw == "" {
			continue
		}
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s: expected a boolean, got %q", key, raw)
		}
		*target = ptr(parsed)
	}

	if cfg.SnapshotDir == "" {
		cfg.SnapshotDir = cfg.OutputDir
	}

	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}
