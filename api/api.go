// Package api exposes the HTTP surface: REST handlers over the domain
// services, cache introspection, and the live notification socket.
package api

import (
	"context"
	"log/slog"

	"github.com/fatimetou23083/CacheFlow/auth"
	"github.com/fatimetou23083/CacheFlow/cache"
	"github.com/fatimetou23083/CacheFlow/currency"
	"github.com/fatimetou23083/CacheFlow/httpx"
	"github.com/fatimetou23083/CacheFlow/notification"
	"github.com/fatimetou23083/CacheFlow/product"
	"github.com/fatimetou23083/CacheFlow/weather"
)

// Pinger probes the backing store; *redis.Store satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config bundles the services the API routes dispatch to. Hub and
// Logger are optional.
type Config struct {
	Weather       *weather.Service
	Currencies    *currency.Service
	Products      *product.Service
	Notifications *notification.Service
	Auth          *auth.Service
	Cache         *cache.Manager
	Store         Pinger
	Hub           *Hub
	Logger        *slog.Logger
}

type API struct {
	weather       *weather.Service
	currencies    *currency.Service
	products      *product.Service
	notifications *notification.Service
	auth          *auth.Service
	cache         *cache.Manager
	store         Pinger
	hub           *Hub
	log           *slog.Logger
}

func New(cfg Config) *API {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	hub := cfg.Hub
	if hub == nil {
		hub = NewHub(log)
	}
	return &API{
		weather:       cfg.Weather,
		currencies:    cfg.Currencies,
		products:      cfg.Products,
		notifications: cfg.Notifications,
		auth:          cfg.Auth,
		cache:         cfg.Cache,
		store:         cfg.Store,
		hub:           hub,
		log:           log,
	}
}

// Hub returns the WebSocket hub so the relay listener can feed it.
func (a *API) Hub() *Hub { return a.hub }

// Register wires all routes onto the server. Mutating product routes
// require a bearer token; reads stay open.
func (a *API) Register(e *httpx.Echo) {
	guard := httpx.RequireAuth(a.auth)

	e.GET("/api/weather/:city", a.getWeather)
	e.POST("/api/weather/refresh/:city", a.refreshWeather)

	e.GET("/api/currencies/all", a.listCurrencies)
	e.GET("/api/currencies/supported", a.supportedCurrencies)
	e.POST("/api/currencies/refresh", a.refreshRates)
	e.GET("/api/currencies/:from/:to", a.getRate)
	e.GET("/api/currencies/:from/:to/:amount", a.convert)

	e.GET("/api/products", a.listProducts)
	e.GET("/api/products/:id", a.getProduct)
	e.POST("/api/products", a.createProduct, guard)
	e.PUT("/api/products/:id", a.updateProduct, guard)
	e.DELETE("/api/products/:id", a.deleteProduct, guard)

	e.POST("/api/notifications/send", a.sendNotification)
	e.GET("/api/notifications", a.listNotifications)
	e.GET("/api/notifications/user/:userId", a.userNotifications)
	e.GET("/api/notifications/broadcast", a.broadcastNotifications)

	e.GET("/api/cache/stats", a.cacheStats)
	e.POST("/api/cache/clear/:name", a.clearCache)
	e.POST("/api/cache/clear-all", a.clearAllCaches)

	e.POST("/api/auth/register", a.register)
	e.POST("/api/auth/login", a.login)
	e.GET("/api/auth/me", a.me, guard)

	e.GET("/ws/notifications", httpx.WrapHandler(a.hub.Handler()))
}
