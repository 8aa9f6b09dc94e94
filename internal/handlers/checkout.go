package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/service"
)

// GetCheckout handles GET /api/v1/checkout. The delivery address is
// pre-filled from the user's profile when one exists.
func (h *Handlers) GetCheckout(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var addr models.DeliveryAddress
	profile, err := h.profileService.GetProfile(c.Request.Context(), middleware.UserID(c))
	switch {
	case err == nil:
		addr = models.AddressFromProfile(profile)
	case stderrors.Is(err, errors.ErrNotFound):
	default:
		h.handleError(c, err)
		return
	}

	summary, err := h.orderService.Summary(session, addr)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// PlaceOrder handles POST /api/v1/orders
func (h *Handlers) PlaceOrder(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req service.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Failed to bind request", logging.Fields{"error": err.Error()})
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	order, err := h.orderService.PlaceOrder(c.Request.Context(), session, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}
