package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/sales-backend/api/controllers"
	"github.com/angelmondragon/sales-backend/api/middleware"
	"github.com/angelmondragon/sales-backend/internal/sales"
	"github.com/angelmondragon/sales-backend/pkg/config"
	"github.com/angelmondragon/sales-backend/pkg/db"
	"github.com/angelmondragon/sales-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/sales-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	salesService sales.Service,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger(redisClient)))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/sales", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotencyStore(redisClient), logg))

		r.Post("/", controllers.CreateSale(salesService, logg))
		r.Route("/{saleID}", func(r chi.Router) {
			r.Get("/", controllers.GetSale(salesService, logg))
			r.Put("/", controllers.UpdateSale(salesService, logg))
			r.Post("/cancel", controllers.CancelSale(salesService, logg))
			r.Delete("/", controllers.DeleteSale(salesService, logg))
		})
	})

	return r
}

// a nil *Client must become a nil interface; a typed nil would make the
// middleware and health check dereference it
func redisPinger(client *pkgredis.Client) pkgredis.Pinger {
	if client == nil {
		return nil
	}
	return client
}

func idempotencyStore(client *pkgredis.Client) pkgredis.IdempotencyStore {
	if client == nil {
		return nil
	}
	return client
}
