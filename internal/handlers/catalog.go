package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/service"
)

// ListRestaurants handles GET /api/v1/restaurants
func (h *Handlers) ListRestaurants(c *gin.Context) {
	filter := service.RestaurantFilter{
		Search:     c.Query("search"),
		CategoryID: c.Query("category"),
	}

	restaurants, err := h.catalogService.ListRestaurants(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"restaurants": restaurants,
		"total":       len(restaurants),
	})
}

// GetRestaurant handles GET /api/v1/restaurants/:id
func (h *Handlers) GetRestaurant(c *gin.Context) {
	restaurant, err := h.catalogService.GetRestaurant(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, restaurant)
}

// GetMenu handles GET /api/v1/restaurants/:id/menu
func (h *Handlers) GetMenu(c *gin.Context) {
	menu, err := h.catalogService.GetMenu(c.Request.Context(), c.Param("id"), c.Query("category"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, menu)
}

// GetMenuItem handles GET /api/v1/menu-items/:id
func (h *Handlers) GetMenuItem(c *gin.Context) {
	item, err := h.catalogService.GetMenuItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// ListCategories handles GET /api/v1/categories
func (h *Handlers) ListCategories(c *gin.Context) {
	categories, err := h.catalogService.ListCategories(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}
