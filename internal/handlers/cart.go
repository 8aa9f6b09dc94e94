package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/service"
)

type addCartItemRequest struct {
	RestaurantID        string  `json:"restaurant_id" binding:"required"`
	MenuItemID          string  `json:"menu_item_id" binding:"required"`
	Quantity            *int    `json:"quantity"`
	SpecialInstructions *string `json:"special_instructions"`
	ConfirmReplace      bool    `json:"confirm_replace"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// GetCart handles GET /api/v1/cart
func (h *Handlers) GetCart(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := session.Refresh(c.Request.Context()); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, session.Snapshot())
}

// AddCartItem handles POST /api/v1/cart/items. A cart holding another
// restaurant's items is only replaced when confirm_replace is set; otherwise
// the response asks for confirmation and nothing changes.
func (h *Handlers) AddCartItem(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Failed to bind request", logging.Fields{"error": err.Error()})
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	item, err := h.catalogService.GetMenuItem(c.Request.Context(), req.MenuItemID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	outcome, err := session.AddItem(c.Request.Context(), req.RestaurantID, *item, quantity, service.AddOptions{
		ConfirmReplace:      req.ConfirmReplace,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"added":                 outcome != service.AddOutcomeDeclined,
		"outcome":               outcome,
		"requires_confirmation": outcome == service.AddOutcomeDeclined,
		"cart":                  session.Snapshot(),
	})
}

// UpdateCartItem handles PATCH /api/v1/cart/items/:id. Quantities of zero or
// less remove the line.
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, errors.NewValidationError("quantity", "quantity is required"))
		return
	}

	if err := session.SetItemQuantity(c.Request.Context(), c.Param("id"), *req.Quantity); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, session.Snapshot())
}

// RemoveCartItem handles DELETE /api/v1/cart/items/:id
func (h *Handlers) RemoveCartItem(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := session.RemoveItem(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, session.Snapshot())
}

// ClearCart handles DELETE /api/v1/cart
func (h *Handlers) ClearCart(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := session.Clear(c.Request.Context()); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, session.Snapshot())
}
