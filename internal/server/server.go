package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/middleware"
)

type Server struct {
	config     *config.Config
	router     *gin.Engine
	handlers   *handlers.Handlers
	auth       *middleware.Authenticator
	httpServer *http.Server
	logger     *logging.Logger
}

func New(h *handlers.Handlers, auth *middleware.Authenticator, cfg *config.Config) *Server {
	logger := logging.NewLogger("server")

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger))
	router.Use(middleware.Metrics())
	router.Use(cors.New(corsConfig(cfg.CORS)))

	s := &Server{
		config:   cfg,
		router:   router,
		handlers: h,
		auth:     auth,
		logger:   logger,
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handlers.Health)
	s.router.GET("/ready", s.handlers.Ready)
	s.router.GET("/live", s.handlers.Live)
	s.router.GET("/version", s.handlers.Version)
	s.router.GET("/metrics", s.handlers.Metrics)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/restaurants", s.handlers.ListRestaurants)
		v1.GET("/restaurants/:id", s.handlers.GetRestaurant)
		v1.GET("/restaurants/:id/menu", s.handlers.GetMenu)
		v1.GET("/menu-items/:id", s.handlers.GetMenuItem)
		v1.GET("/categories", s.handlers.ListCategories)
	}

	authed := v1.Group("", s.auth.Required())
	{
		authed.POST("/session", s.handlers.OpenSession)
		authed.DELETE("/session", s.handlers.CloseSession)

		authed.GET("/cart", s.handlers.GetCart)
		authed.DELETE("/cart", s.handlers.ClearCart)
		authed.POST("/cart/items", s.handlers.AddCartItem)
		authed.PATCH("/cart/items/:id", s.handlers.UpdateCartItem)
		authed.DELETE("/cart/items/:id", s.handlers.RemoveCartItem)

		authed.GET("/checkout", s.handlers.GetCheckout)
		authed.POST("/orders", s.handlers.PlaceOrder)
		authed.GET("/orders", s.handlers.ListOrders)
		authed.GET("/orders/:id", s.handlers.GetOrder)
		authed.POST("/orders/:id/reorder", s.handlers.Reorder)

		authed.GET("/profile", s.handlers.GetProfile)
		authed.PUT("/profile", s.handlers.UpdateProfile)

		authed.GET("/stream/orders", s.handlers.StreamOrderStatus)
	}
}

// Router exposes the configured engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting server", logging.Fields{"addr": s.httpServer.Addr})
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			c.AllowAllOrigins = true
			c.AllowCredentials = false
			return c
		}
	}
	c.AllowOrigins = cfg.AllowedOrigins
	return c
}
