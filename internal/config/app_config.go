package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StorageModeLocal = "local"
	StorageModeS3    = "s3"

	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

type AppConfig struct {
	AppPort               string        `env:"APP_PORT" envDefault:"5000" validate:"required,numeric"`
	AppEnv                string        `env:"APP_ENV" envDefault:"development"`
	AppCorsAllowedOrigins []string      `env:"APP_CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	HTTPRequestTimeout    time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"10m" validate:"gt=0"`

	MaxFileSizeBytes  int64    `env:"MAX_FILE_SIZE_BYTES" envDefault:"31457280" validate:"gt=0"`
	AllowedExtensions []string `env:"ALLOWED_EXTENSIONS" envDefault:"mkv,mp4,avi,flv,mov,webm,wmv,asf,wav,flac,mp3,ogg,oga,m4a,m4v,jpeg,jpg,png,gif,bmp,tif,tiff,webp,odt,epub,docx,pdf" envSeparator:"," validate:"required,min=1,dive,extension_name"`
	UploadFieldName   string   `env:"UPLOAD_FIELD_NAME" envDefault:"fileData" validate:"required"`

	StorageRoot          string `env:"STORAGE_ROOT" envDefault:"uploads" validate:"required"`
	StorageMode          string `env:"STORAGE_MODE" envDefault:"local" validate:"oneof=local s3"`
	StorageKeepOriginals bool   `env:"STORAGE_KEEP_ORIGINALS" envDefault:"true"`
	PublicHost           string `env:"PUBLIC_HOST"`
	PublicScheme         string `env:"PUBLIC_SCHEME" envDefault:"https" validate:"oneof=http https"`

	// MediaURLPrefix is the path segment of returned URLs and the bucket
	// key prefix. It is independent of where STORAGE_ROOT lives on disk.
	MediaURLPrefix string `env:"MEDIA_URL_PREFIX" envDefault:"uploads" validate:"required"`

	NormalizeWebImages bool `env:"MEDIA_NORMALIZE_WEB_IMAGES" envDefault:"false"`
	VideoMaxWidth      int  `env:"VIDEO_MAX_WIDTH" envDefault:"360" validate:"gt=0"`
	ImageMaxWidth      int  `env:"IMAGE_MAX_WIDTH" envDefault:"400" validate:"gt=0"`

	FFmpegBin              string        `env:"FFMPEG_BIN" envDefault:"ffmpeg" validate:"required"`
	ImageMagickBin         string        `env:"IMAGEMAGICK_BIN" envDefault:"convert" validate:"required"`
	PandocBin              string        `env:"PANDOC_BIN" envDefault:"pandoc" validate:"required"`
	PandocPDFEngine        string        `env:"PANDOC_PDF_ENGINE"`
	TranscodePresetFile    string        `env:"TRANSCODE_PRESET_FILE"`
	TranscodeMaxConcurrent int           `env:"TRANSCODE_MAX_CONCURRENT" envDefault:"4" validate:"gte=0"`
	TranscodeTimeout       time.Duration `env:"TRANSCODE_TIMEOUT" envDefault:"5m" validate:"gt=0"`

	S3Bucket       string `env:"S3_BUCKET" validate:"required_if=StorageMode s3"`
	S3Region       string `env:"S3_REGION"`
	S3AccessKey    string `env:"S3_ACCESS_KEY"`
	S3SecretKey    string `env:"S3_SECRET_KEY"`
	S3Endpoint     string `env:"S3_ENDPOINT"`
	S3PublicDomain string `env:"S3_PUBLIC_DOMAIN"`

	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	RateLimitBackend  string        `env:"RATE_LIMIT_BACKEND" envDefault:"memory" validate:"oneof=memory redis"`
	UploadRateLimit   int           `env:"UPLOAD_RATE_LIMIT" envDefault:"20" validate:"gte=0"`
	UploadRateWindow  time.Duration `env:"UPLOAD_RATE_WINDOW" envDefault:"1m" validate:"gt=0"`
	TrustedProxyCIDRs []string      `env:"TRUSTED_PROXY_CIDRS" envSeparator:","`
}

func LoadAppConfig() *AppConfig {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, reading from system environment variables")
	}

	cfg, err := ParseAppConfig()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	return cfg
}

// ParseAppConfig reads the process environment into an AppConfig and
// validates it. Extensions are normalised to lower case without a dot.
func ParseAppConfig() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.AllowedExtensions = normalizeExtensions(cfg.AllowedExtensions)
	cfg.StorageRoot = strings.TrimRight(cfg.StorageRoot, "/\\")
	cfg.MediaURLPrefix = strings.Trim(strings.TrimSpace(cfg.MediaURLPrefix), "/")

	if err := NewValidator().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *AppConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	seen := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}
