package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
	logging.SetOutput(io.Discard)
}

const testSecret = "test-secret"

func strPtr(s string) *string { return &s }

type testEnv struct {
	router *gin.Engine
	store  *repository.MemoryStore
	auth   *middleware.Authenticator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := repository.NewMemoryStore()
	seed := func(table string, records ...interface{}) {
		if err := store.Seed(table, records...); err != nil {
			t.Fatalf("seed %s: %v", table, err)
		}
	}
	seed(repository.TableRestaurants,
		models.Restaurant{ID: "r1", Name: "Spice Route", CuisineTypes: []string{"Indian"}, Rating: 4.6, DeliveryFee: 30, IsOpen: true, IsActive: true},
		models.Restaurant{ID: "r2", Name: "Burger Barn", CuisineTypes: []string{"American"}, Rating: 4.2, DeliveryFee: 20, IsOpen: true, IsActive: true},
	)
	seed(repository.TableCategories,
		models.Category{ID: "c-main", Name: "Mains", DisplayOrder: 1, IsActive: true},
	)
	seed(repository.TableMenuItems,
		models.MenuItem{ID: "m-tikka", RestaurantID: "r1", CategoryID: "c-main", Name: "Paneer Tikka", Price: 250, IsAvailable: true},
		models.MenuItem{ID: "m-dal", RestaurantID: "r1", CategoryID: "c-main", Name: "Dal Makhani", Price: 150, IsAvailable: true},
		models.MenuItem{ID: "m-burger", RestaurantID: "r2", CategoryID: "c-main", Name: "Classic Burger", Price: 199, IsAvailable: true},
	)
	seed(repository.TableProfiles,
		models.Profile{ID: "p1", UserID: "user-1", FullName: "Asha", Email: "asha@example.com", AddressLine1: strPtr("12 MG Road"), City: strPtr("Pune")},
	)

	cfg := &config.Config{Checkout: config.CheckoutConfig{DeliveryETA: 45 * time.Minute}}
	h := NewHandlers(Deps{
		Catalog:  service.NewCatalogService(store, nil, cfg),
		Orders:   service.NewOrderService(store, nil, nil, nil, nil, cfg),
		Profiles: service.NewProfileService(store),
		Sessions: service.NewSessionRegistry(store),
		Store:    store,
	}, cfg)

	auth := middleware.NewAuthenticator(testSecret, "")

	router := gin.New()
	router.Use(middleware.RequestID())
	router.GET("/restaurants", h.ListRestaurants)
	router.GET("/restaurants/:id", h.GetRestaurant)
	router.GET("/restaurants/:id/menu", h.GetMenu)
	router.GET("/categories", h.ListCategories)

	authed := router.Group("", auth.Required())
	authed.POST("/session", h.OpenSession)
	authed.DELETE("/session", h.CloseSession)
	authed.GET("/cart", h.GetCart)
	authed.DELETE("/cart", h.ClearCart)
	authed.POST("/cart/items", h.AddCartItem)
	authed.PATCH("/cart/items/:id", h.UpdateCartItem)
	authed.DELETE("/cart/items/:id", h.RemoveCartItem)
	authed.GET("/checkout", h.GetCheckout)
	authed.POST("/orders", h.PlaceOrder)
	authed.GET("/orders", h.ListOrders)
	authed.GET("/orders/:id", h.GetOrder)
	authed.POST("/orders/:id/reorder", h.Reorder)
	authed.GET("/profile", h.GetProfile)
	authed.PUT("/profile", h.UpdateProfile)
	authed.GET("/stream/orders", h.StreamOrderStatus)

	return &testEnv{router: router, store: store, auth: auth}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := e.auth.SignToken(jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	if err != nil {
		t.Fatalf("SignToken failed: %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to parse response %q: %v", w.Body.String(), err)
	}
}

type cartResponse struct {
	Cart *struct {
		RestaurantID string `json:"restaurant_id"`
		Items        []struct {
			ID         string `json:"id"`
			MenuItemID string `json:"menu_item_id"`
			Quantity   int    `json:"quantity"`
		} `json:"items"`
	} `json:"cart"`
	ItemCount int     `json:"item_count"`
	Subtotal  float64 `json:"subtotal"`
}

func TestHealth(t *testing.T) {
	h := &Handlers{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Health(c)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	decode(t, w, &resp)

	if resp["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", resp["status"])
	}

	if resp["service"] != serviceName {
		t.Errorf("Expected service %q, got %v", serviceName, resp["service"])
	}
}

func TestReady(t *testing.T) {
	h := &Handlers{store: repository.NewMemoryStore(), logger: logging.NewLogger("test")}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

	h.Ready(c)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestLive(t *testing.T) {
	h := &Handlers{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Live(c)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", errors.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load order: %w", errors.ErrNotFound), http.StatusNotFound},
		{"unauthenticated", errors.ErrUnauthenticated, http.StatusUnauthorized},
		{"empty cart", errors.ErrEmptyCart, http.StatusBadRequest},
		{"validation", errors.NewValidationError("city", "city is required"), http.StatusBadRequest},
		{"backend failure", fmt.Errorf("connection refused"), http.StatusInternalServerError},
	}

	h := &Handlers{logger: logging.NewLogger("handlers")}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			h.handleError(c, tt.err)

			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestHandleErrorHidesBackendDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	h := &Handlers{logger: logging.NewLogger("handlers")}
	h.handleError(c, fmt.Errorf("pq: password authentication failed"))

	var resp map[string]string
	decode(t, w, &resp)
	if resp["error"] != "internal server error" {
		t.Errorf("Expected generic message, got %q", resp["error"])
	}
}

func TestCatalogEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/restaurants?search=burger", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var list struct {
		Restaurants []models.Restaurant `json:"restaurants"`
		Total       int                 `json:"total"`
	}
	decode(t, w, &list)
	if list.Total != 1 || list.Restaurants[0].ID != "r2" {
		t.Errorf("Expected only Burger Barn, got %+v", list.Restaurants)
	}

	w = env.do(t, http.MethodGet, "/restaurants/r1/menu", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var menu service.Menu
	decode(t, w, &menu)
	if len(menu.Items) != 2 {
		t.Errorf("Expected 2 menu items, got %d", len(menu.Items))
	}

	w = env.do(t, http.MethodGet, "/restaurants/missing", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestCartRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/cart", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/cart", "not-a-jwt", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with bad token, got %d", w.Code)
	}
}

func TestCartRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "user-1")

	before := env.store.Requests()
	w := env.do(t, http.MethodPost, "/cart/items", token, gin.H{
		"restaurant_id": "r1",
		"menu_item_id":  "m-tikka",
	})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without session, got %d", w.Code)
	}
	if env.store.Requests() != before {
		t.Errorf("Expected no backend requests, got %d", env.store.Requests()-before)
	}
}

func TestCartFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "user-1")

	if w := env.do(t, http.MethodPost, "/session", token, nil); w.Code != http.StatusOK {
		t.Fatalf("Expected 200 opening session, got %d", w.Code)
	}

	w := env.do(t, http.MethodPost, "/cart/items", token, gin.H{
		"restaurant_id": "r1",
		"menu_item_id":  "m-tikka",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/cart/items", token, gin.H{
		"restaurant_id": "r1",
		"menu_item_id":  "m-tikka",
		"quantity":      2,
	})
	var added struct {
		Added bool         `json:"added"`
		Cart  cartResponse `json:"cart"`
	}
	decode(t, w, &added)
	if !added.Added || added.Cart.ItemCount != 3 || len(added.Cart.Cart.Items) != 1 {
		t.Fatalf("Expected one line with quantity 3, got %+v", added.Cart)
	}
	if added.Cart.Subtotal != 750 {
		t.Errorf("Expected subtotal 750, got %v", added.Cart.Subtotal)
	}

	// A different restaurant needs confirmation.
	w = env.do(t, http.MethodPost, "/cart/items", token, gin.H{
		"restaurant_id": "r2",
		"menu_item_id":  "m-burger",
	})
	var conflict struct {
		Added                bool         `json:"added"`
		RequiresConfirmation bool         `json:"requires_confirmation"`
		Cart                 cartResponse `json:"cart"`
	}
	decode(t, w, &conflict)
	if w.Code != http.StatusOK || conflict.Added || !conflict.RequiresConfirmation {
		t.Fatalf("Expected confirmation request, got %d %+v", w.Code, conflict)
	}
	if conflict.Cart.Cart.RestaurantID != "r1" || conflict.Cart.ItemCount != 3 {
		t.Errorf("Expected cart unchanged, got %+v", conflict.Cart)
	}

	lineID := added.Cart.Cart.Items[0].ID
	w = env.do(t, http.MethodPatch, "/cart/items/"+lineID, token, gin.H{"quantity": 0})
	var cleared cartResponse
	decode(t, w, &cleared)
	if w.Code != http.StatusOK || cleared.ItemCount != 0 {
		t.Errorf("Expected line removed, got %d %+v", w.Code, cleared)
	}
}

func TestCheckoutAndOrders(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "user-1")

	env.do(t, http.MethodPost, "/session", token, nil)
	env.do(t, http.MethodPost, "/cart/items", token, gin.H{"restaurant_id": "r1", "menu_item_id": "m-tikka"})
	env.do(t, http.MethodPost, "/cart/items", token, gin.H{"restaurant_id": "r1", "menu_item_id": "m-dal"})

	w := env.do(t, http.MethodGet, "/checkout", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var summary struct {
		Display     map[string]string      `json:"display"`
		Address     models.DeliveryAddress `json:"address"`
		CanCheckout bool                   `json:"can_checkout"`
	}
	decode(t, w, &summary)
	if summary.Display["tax"] != "20.00" || summary.Display["total"] != "450.00" {
		t.Errorf("Unexpected totals: %v", summary.Display)
	}
	if summary.Address.City != "Pune" || !summary.CanCheckout {
		t.Errorf("Expected profile address pre-filled, got %+v", summary.Address)
	}

	w = env.do(t, http.MethodPost, "/orders", token, gin.H{
		"address":        gin.H{"address_line1": "12 MG Road", "city": "Pune"},
		"payment_method": "bitcoin",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown payment method, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/orders", token, gin.H{
		"address":        gin.H{"address_line1": "12 MG Road", "city": "Pune"},
		"payment_method": "cod",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var order models.Order
	decode(t, w, &order)
	if order.PaymentStatus != models.PaymentStatusPending || len(order.OrderItems) != 2 {
		t.Errorf("Unexpected order: %+v", order)
	}

	w = env.do(t, http.MethodGet, "/cart", token, nil)
	var cart cartResponse
	decode(t, w, &cart)
	if cart.ItemCount != 0 {
		t.Errorf("Expected empty cart after checkout, got %d items", cart.ItemCount)
	}

	w = env.do(t, http.MethodPost, "/orders", token, gin.H{
		"address":        gin.H{"address_line1": "12 MG Road", "city": "Pune"},
		"payment_method": "card",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty cart, got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/orders", token, nil)
	var list struct {
		Total int `json:"total"`
	}
	decode(t, w, &list)
	if list.Total != 1 {
		t.Errorf("Expected 1 order, got %d", list.Total)
	}

	other := env.token(t, "user-2")
	if w := env.do(t, http.MethodGet, "/orders/"+order.ID, other, nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for another user's order, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/orders/"+order.ID+"/reorder", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on reorder, got %d: %s", w.Code, w.Body.String())
	}
	var reorder struct {
		Cart cartResponse `json:"cart"`
	}
	decode(t, w, &reorder)
	if reorder.Cart.ItemCount != 2 {
		t.Errorf("Expected 2 items re-added, got %d", reorder.Cart.ItemCount)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "user-1")

	env.do(t, http.MethodPost, "/session", token, nil)
	if w := env.do(t, http.MethodDelete, "/session", token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", w.Code)
	}

	if w := env.do(t, http.MethodDelete, "/cart", token, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 after logout, got %d", w.Code)
	}
}

func TestProfileEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "user-1")

	w := env.do(t, http.MethodPut, "/profile", token, gin.H{"city": "Mumbai"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/profile", token, nil)
	var profile models.Profile
	decode(t, w, &profile)
	if profile.City == nil || *profile.City != "Mumbai" || profile.FullName != "Asha" {
		t.Errorf("Unexpected profile: %+v", profile)
	}

	w = env.do(t, http.MethodGet, "/profile", env.token(t, "user-9"), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing profile, got %d", w.Code)
	}
}

func TestStreamDisabledWithoutHub(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/stream/orders", env.token(t, "user-1"), nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", w.Code)
	}
}
