package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sd-owens/YelpCamp/internal/platform/logger"
	"go.uber.org/zap"
)

// MetricsManager holds custom Prometheus metrics.
type MetricsManager struct {
	Registry                     *prometheus.Registry
	CampgroundsCreatedTotal      prometheus.Counter
	CampgroundUpdatesTotal       prometheus.Counter
	CampgroundDeletesTotal       prometheus.Counter
	CommentsCreatedTotal         prometheus.Counter
	LikeTogglesTotal             prometheus.Counter
	PasswordResetRequestsTotal   prometheus.Counter
	PasswordResetsCompletedTotal prometheus.Counter
	NotifierFailuresTotal        *prometheus.CounterVec
}

// NewMetricsManager initializes and registers custom Prometheus metrics.
func NewMetricsManager(serviceName string) *MetricsManager {
	registry := prometheus.NewRegistry()

	campgroundsCreatedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "campgrounds_created_total",
		Help:      "Total number of campgrounds created.",
	})
	campgroundUpdatesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "campground_updates_total",
		Help:      "Total number of campgrounds updated.",
	})
	campgroundDeletesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "campground_deletes_total",
		Help:      "Total number of campgrounds deleted.",
	})
	commentsCreatedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "comments_created_total",
		Help:      "Total number of comments created.",
	})
	likeTogglesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "like_toggles_total",
		Help:      "Total number of like toggles applied.",
	})
	passwordResetRequestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "password_reset_requests_total",
		Help:      "Total number of password reset tokens issued.",
	})
	passwordResetsCompletedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "password_resets_completed_total",
		Help:      "Total number of password resets completed.",
	})
	notifierFailuresTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "notifier_failures_total",
		Help:      "Total number of failed notification deliveries by kind.",
	}, []string{"kind"})

	registry.MustRegister(
		campgroundsCreatedTotal,
		campgroundUpdatesTotal,
		campgroundDeletesTotal,
		commentsCreatedTotal,
		likeTogglesTotal,
		passwordResetRequestsTotal,
		passwordResetsCompletedTotal,
		notifierFailuresTotal,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return &MetricsManager{
		Registry:                     registry,
		CampgroundsCreatedTotal:      campgroundsCreatedTotal,
		CampgroundUpdatesTotal:       campgroundUpdatesTotal,
		CampgroundDeletesTotal:       campgroundDeletesTotal,
		CommentsCreatedTotal:         commentsCreatedTotal,
		LikeTogglesTotal:             likeTogglesTotal,
		PasswordResetRequestsTotal:   passwordResetRequestsTotal,
		PasswordResetsCompletedTotal: passwordResetsCompletedTotal,
		NotifierFailuresTotal:        notifierFailuresTotal,
	}
}

// StartMetricsServer starts an HTTP server exposing Prometheus metrics.
func StartMetricsServer(port string, appLogger *logger.Logger, registry *prometheus.Registry) error {
	if port == "" {
		appLogger.Info("Prometheus metrics server port not configured, server will not start.")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	appLogger.Info("Prometheus metrics server starting", zap.String("port", port), zap.String("path", "/metrics"))

	server := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	return server.ListenAndServe()
}
