package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sejinpark/posportal-backend/api/controllers"
	"github.com/sejinpark/posportal-backend/api/middleware"
	"github.com/sejinpark/posportal-backend/internal/notifications"
	"github.com/sejinpark/posportal-backend/internal/posstatus"
	"github.com/sejinpark/posportal-backend/pkg/config"
	"github.com/sejinpark/posportal-backend/pkg/logger"
	"github.com/sejinpark/posportal-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         *redis.Client
	PosService    posstatus.Service
	Notifications notifications.Service
	Scheduler     *posstatus.Manager
	Metrics       prometheus.Gatherer
}

func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
		middleware.CORS(),
	)

	var redisPinger redis.Pinger
	if p.Redis != nil {
		redisPinger = p.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, p.Logger, p.DB, redisPinger))
	})

	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.StoreContext(p.Logger))

		r.Route("/pos", func(r chi.Router) {
			r.Get("/", controllers.GetPosRecord(p.PosService, p.Logger))
			r.Post("/transitions", controllers.RequestTransition(p.PosService, p.Logger))
			r.Get("/history", controllers.GetPosHistory(p.PosService, p.Logger))
			r.Post("/history/{changeId}/approve", controllers.ApproveStatusChange(p.PosService, p.Logger))
			r.Put("/settings", controllers.UpdatePosSettings(p.PosService, p.Scheduler, p.Logger))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.Notifications, p.Logger))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, p.Logger))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, p.Logger))
		})
	})

	return r
}
