package bootstrap

import (
	"RNChatMedia/internal/config"
	"RNChatMedia/internal/controller"
	"RNChatMedia/internal/helper"
	"RNChatMedia/internal/middleware"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Route struct {
	cfg                 *config.AppConfig
	chi                 *chi.Mux
	registry            *prometheus.Registry
	mediaController     *controller.MediaController
	rateLimitMiddleware *middleware.RateLimitMiddleware
}

func NewRoute(cfg *config.AppConfig, chi *chi.Mux, registry *prometheus.Registry, mediaController *controller.MediaController, rateLimitMiddleware *middleware.RateLimitMiddleware) *Route {
	return &Route{
		cfg:                 cfg,
		chi:                 chi,
		registry:            registry,
		mediaController:     mediaController,
		rateLimitMiddleware: rateLimitMiddleware,
	}
}

func (route *Route) Register() {
	route.chi.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("RNChatMedia upload service"))
	})

	route.chi.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		helper.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if route.registry != nil {
		route.chi.Handle("/metrics", promhttp.HandlerFor(route.registry, promhttp.HandlerOpts{}))
	}

	if route.cfg.StorageMode == config.StorageModeLocal {
		route.serveStatic(route.cfg.MediaURLPrefix, route.cfg.StorageRoot)
	}

	uploadLimit := route.rateLimitMiddleware.Limit("upload", route.cfg.UploadRateLimit, route.cfg.UploadRateWindow)

	route.chi.With(uploadLimit).Post("/upload", route.mediaController.UploadMedia)

	route.chi.Route("/api", func(r chi.Router) {
		r.With(uploadLimit).Post("/media/upload", route.mediaController.UploadMedia)
	})
}

// serveStatic exposes the storage root under the path prefix the upload
// URLs use. Directory listings are never served.
func (route *Route) serveStatic(urlPrefix, root string) {
	urlPath := strings.TrimSuffix(helper.MediaKey(urlPrefix, ""), "/")
	if urlPath == "" {
		return
	}

	prefix := fmt.Sprintf("/%s", urlPath)
	fileServer := http.StripPrefix(prefix, http.FileServer(http.Dir(root)))

	route.chi.Get(prefix+"/*", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			helper.WriteError(w, helper.NewNotFoundError(""))
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}
