package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// MB is one megabyte as used by the upload limits.
	MB = 1024 * 1024

	// legacyBaseURLEnv is the variable the web console was built with.
	legacyBaseURLEnv = "VITE_API_BASE_URL"
)

// DefaultPath returns the default config file path.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "bookdesk", "config.yml")
}

// Path returns the config path in effect, honouring BOOKDESK_CONFIG.
func Path() string {
	if p := os.Getenv("BOOKDESK_CONFIG"); p != "" {
		return p
	}
	return DefaultPath()
}

// Load reads the config from disk, .env and the environment. A missing
// config file is not an error; defaults apply.
func Load() (*Config, error) {
	// A .env in the working directory is optional.
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("api.base_url", "")
	v.SetDefault("api.timeout", "60s")
	v.SetDefault("session.db_path", filepath.Join(dataDir(), "session.db"))
	v.SetDefault("media.cache_dir", filepath.Join(dataDir(), "cache"))
	v.SetDefault("media.preview_width", 320)
	v.SetDefault("media.max_images", 7)
	v.SetDefault("media.image_bytes", 5*MB)
	v.SetDefault("media.book_image_bytes", 7*MB)
	v.SetDefault("media.pdf_bytes", 10*MB)
	v.SetDefault("media.video_bytes", 0)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("inquiries.refresh_interval", "5m")

	v.SetEnvPrefix("BOOKDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(Path())

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = os.Getenv(legacyBaseURLEnv)
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")

	cfg.Session.DBPath = ExpandHome(cfg.Session.DBPath)
	cfg.Media.CacheDir = ExpandHome(cfg.Media.CacheDir)

	return &cfg, nil
}

// Validate checks field constraints. Commands that talk to the backend call
// it after Load; login and version do not need a valid config.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config: %s failed %q", strings.ToLower(fe.Namespace()), fe.Tag())
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Save writes the config to Path().
func Save(cfg *Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	return enc.Encode(cfg)
}

// ExpandHome expands a leading ~/ in a path.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

func dataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "bookdesk")
}
