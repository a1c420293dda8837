package bootstrap

import (
	"RNChatMedia/internal/adapter"
	"RNChatMedia/internal/config"
	"RNChatMedia/internal/controller"
	"RNChatMedia/internal/media"
	"RNChatMedia/internal/metrics"
	"RNChatMedia/internal/middleware"
	"RNChatMedia/internal/repository"
	"RNChatMedia/internal/service"
	"RNChatMedia/internal/transcoder"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Init wires the upload pipeline onto chiMux. runner is nil in production
// and a fake in tests. The returned func releases background resources.
func Init(appConfig *config.AppConfig, chiMux *chi.Mux, registry *prometheus.Registry, runner transcoder.Runner) (func(), error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	validator := config.NewValidator()

	s3Client := config.NewS3Client(appConfig)
	if appConfig.StorageMode == config.StorageModeS3 && s3Client == nil {
		return nil, fmt.Errorf("storage mode %q needs a working S3 client", appConfig.StorageMode)
	}

	storageAdapter, err := adapter.NewStorageAdapter(appConfig, s3Client)
	if err != nil {
		return nil, err
	}

	recorder, err := metrics.NewPrometheusRecorder("", registry)
	if err != nil {
		return nil, err
	}

	policy := NewPolicy(appConfig)
	slog.Info("Upload policy loaded", "extensions", policy.Extensions(), "max_file_size", policy.MaxFileSize())
	dispatcher, err := NewDispatcher(appConfig, runner, recorder)
	if err != nil {
		return nil, err
	}

	limiter, closeLimiter, err := newLimiter(appConfig)
	if err != nil {
		return nil, err
	}

	mediaService := service.NewMediaService(appConfig, validator, storageAdapter, policy, dispatcher, recorder)
	mediaController := controller.NewMediaController(mediaService, policy, appConfig.UploadFieldName)

	rateLimitMiddleware := middleware.NewRateLimitMiddleware(limiter, appConfig.TrustedProxyCIDRs)

	route := NewRoute(appConfig, chiMux, registry, mediaController, rateLimitMiddleware)
	route.Register()

	return closeLimiter, nil
}

func NewPolicy(cfg *config.AppConfig) *media.Policy {
	return media.NewPolicy(cfg.AllowedExtensions, cfg.MaxFileSizeBytes,
		media.WithWebImageNormalization(cfg.NormalizeWebImages))
}

func NewDispatcher(cfg *config.AppConfig, runner transcoder.Runner, recorder metrics.Recorder) (*transcoder.Dispatcher, error) {
	presets := transcoder.DefaultPresetLibrary()
	if cfg.TranscodePresetFile != "" {
		var err error
		presets, err = transcoder.LoadPresetFile(cfg.TranscodePresetFile)
		if err != nil {
			return nil, err
		}
		slog.Info("Loaded transcode presets", "file", cfg.TranscodePresetFile)
	}

	opts := transcoder.Options{
		FFmpegBin:       cfg.FFmpegBin,
		ImageMagickBin:  cfg.ImageMagickBin,
		PandocBin:       cfg.PandocBin,
		PandocPDFEngine: cfg.PandocPDFEngine,
		VideoMaxWidth:   cfg.VideoMaxWidth,
		ImageMaxWidth:   cfg.ImageMaxWidth,
		MaxConcurrent:   cfg.TranscodeMaxConcurrent,
		Timeout:         cfg.TranscodeTimeout,
		Presets:         presets,
	}
	return transcoder.NewDispatcher(opts, runner, recorder), nil
}

func newLimiter(cfg *config.AppConfig) (middleware.Limiter, func(), error) {
	if cfg.RateLimitBackend == config.RateLimitBackendRedis {
		redisAdapter, err := adapter.NewRedisAdapter(cfg)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewRepository(redisAdapter)
		return repo.RateLimit, func() {
			if err := redisAdapter.Close(); err != nil {
				slog.Error("Error closing Redis connection", "error", err)
			}
		}, nil
	}

	rl := config.NewRateLimiter(cfg)
	return rl, rl.Stop, nil
}
