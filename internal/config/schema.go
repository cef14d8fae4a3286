package config

import "time"

// Config is the top-level bookdesk configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api" yaml:"api"`
	Session   SessionConfig   `mapstructure:"session" yaml:"session"`
	Media     MediaConfig     `mapstructure:"media" yaml:"media"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Inquiries InquiriesConfig `mapstructure:"inquiries" yaml:"inquiries"`
}

// APIConfig holds the backend connection settings.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`
}

// SessionConfig locates the durable session store.
type SessionConfig struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path" validate:"required"`
}

// MediaConfig holds staging limits and the preview cache location.
type MediaConfig struct {
	CacheDir       string `mapstructure:"cache_dir" yaml:"cache_dir" validate:"required"`
	PreviewWidth   int    `mapstructure:"preview_width" yaml:"preview_width" validate:"gt=0"`
	MaxImages      int    `mapstructure:"max_images" yaml:"max_images" validate:"gt=0"`
	ImageBytes     int64  `mapstructure:"image_bytes" yaml:"image_bytes" validate:"gt=0"`
	BookImageBytes int64  `mapstructure:"book_image_bytes" yaml:"book_image_bytes" validate:"gt=0"`
	PDFBytes       int64  `mapstructure:"pdf_bytes" yaml:"pdf_bytes" validate:"gt=0"`
	VideoBytes     int64  `mapstructure:"video_bytes" yaml:"video_bytes" validate:"gte=0"` // 0 = unlimited
}

// LogConfig configures the developer log.
type LogConfig struct {
	Level    string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Encoding string `mapstructure:"encoding" yaml:"encoding" validate:"omitempty,oneof=console json"`
	Output   string `mapstructure:"output" yaml:"output"`
}

// InquiriesConfig controls the inquiry dashboard refresh schedule.
type InquiriesConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval" yaml:"refresh_interval" validate:"gte=0"`
}

// EffectiveTimeout returns the request timeout, defaulting to 60s.
func (a APIConfig) EffectiveTimeout() time.Duration {
	if a.Timeout > 0 {
		return a.Timeout
	}
	return 60 * time.Second
}

// EffectiveRefresh returns the inquiry refresh period, defaulting to 5m.
func (i InquiriesConfig) EffectiveRefresh() time.Duration {
	if i.RefreshInterval > 0 {
		return i.RefreshInterval
	}
	return 5 * time.Minute
}
