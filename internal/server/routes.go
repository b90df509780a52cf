package server

import (
	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/metrics"
	"storefront/internal/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type Handlers struct {
	Checkout   *handler.CheckoutHandler
	Orders     *handler.OrderHandler
	AdminOrder *handler.AdminOrderHandler
	Health     *handler.HealthHandler
}

// NewRouter wires every route onto a fresh echo instance.
func NewRouter(cfg config.Config, log zerolog.Logger, m *metrics.ServerMetrics, gatherer prometheus.Gatherer, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
	if m != nil {
		e.Use(m.Middleware())
	}

	h.Health.RegisterRoutes(e)
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(gatherer)))
	}

	auth := middleware.AuthJWT(cfg)

	h.Checkout.RegisterRoutes(e.Group("/order", auth))
	h.Orders.RegisterRoutes(e.Group("/me", auth))
	h.AdminOrder.RegisterRoutes(e.Group("/admin", auth, middleware.AdminRoleGuard()))

	return e
}
