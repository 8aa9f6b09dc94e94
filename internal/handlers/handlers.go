package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/service"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/stream"
)

// Handlers holds all HTTP handlers for the storefront service.
type Handlers struct {
	catalogService *service.CatalogService
	orderService   *service.OrderService
	profileService *service.ProfileService
	sessions       *service.SessionRegistry
	hub            *stream.Hub
	store          repository.Store
	config         *config.Config
	logger         *logging.Logger
}

// Deps groups the collaborators passed to NewHandlers.
type Deps struct {
	Catalog  *service.CatalogService
	Orders   *service.OrderService
	Profiles *service.ProfileService
	Sessions *service.SessionRegistry
	Hub      *stream.Hub
	Store    repository.Store
}

// NewHandlers creates a new handlers instance.
func NewHandlers(deps Deps, cfg *config.Config) *Handlers {
	return &Handlers{
		catalogService: deps.Catalog,
		orderService:   deps.Orders,
		profileService: deps.Profiles,
		sessions:       deps.Sessions,
		hub:            deps.Hub,
		store:          deps.Store,
		config:         cfg,
		logger:         logging.NewLogger("handlers"),
	}
}

// session returns the caller's cart session, writing 401 when the user has
// not opened one.
func (h *Handlers) session(c *gin.Context) (*service.CartSession, bool) {
	session, err := h.sessions.Get(middleware.UserID(c))
	if err != nil {
		h.handleError(c, err)
		return nil, false
	}
	return session, true
}

func (h *Handlers) handleError(c *gin.Context, err error) {
	if stderrors.Is(err, errors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if stderrors.Is(err, errors.ErrUnauthenticated) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	if stderrors.Is(err, errors.ErrEmptyCart) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var validationErr *errors.ValidationError
	if stderrors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   validationErr.Message,
			"details": validationErr.Details,
		})
		return
	}

	h.logger.Error("Request failed", logging.Fields{
		"path":       c.Request.URL.Path,
		"request_id": middleware.GetRequestID(c.Request.Context()),
		"error":      err.Error(),
	})
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
