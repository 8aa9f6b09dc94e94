package service

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
)

// AddOutcome describes what AddItem did.
type AddOutcome string

const (
	// AddOutcomeAdded means a new line item was created.
	AddOutcomeAdded AddOutcome = "added"
	// AddOutcomeMerged means an existing line's quantity was increased.
	AddOutcomeMerged AddOutcome = "merged"
	// AddOutcomeDeclined means the cart belongs to another restaurant and
	// replacing it was not confirmed. Nothing changed.
	AddOutcomeDeclined AddOutcome = "declined"
)

type AddOptions struct {
	// ConfirmReplace allows discarding a cart that holds items from another restaurant.
	ConfirmReplace      bool
	SpecialInstructions *string
}

// CartView is a read-only copy of the cart with its derived values.
type CartView struct {
	Cart      *models.Cart `json:"cart"`
	ItemCount int          `json:"item_count"`
	Subtotal  float64      `json:"subtotal"`
}

// CartSession owns one signed-in user's cart. Every mutation is followed by a
// full re-read so the snapshot always mirrors the backend.
type CartSession struct {
	mu     sync.Mutex
	userID string
	store  repository.Store
	closed bool
	cart   *models.Cart
	logger *logging.Logger
}

// NewCartSession binds a session to userID. Call Refresh to load the cart.
func NewCartSession(userID string, store repository.Store) *CartSession {
	return &CartSession{
		userID: userID,
		store:  store,
		logger: logging.NewLogger("cart").With(logging.Fields{"user_id": userID}),
	}
}

func (s *CartSession) UserID() string {
	return s.userID
}

// AddItem adds quantity units of item, sold by restaurantID, to the cart.
func (s *CartSession) AddItem(ctx context.Context, restaurantID string, item models.MenuItem, quantity int, opts AddOptions) (AddOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorize(); err != nil {
		return "", err
	}
	if err := ValidateQuantity(quantity); err != nil {
		return "", err
	}
	if err := ValidateMenuItemForCart(item, restaurantID); err != nil {
		return "", err
	}

	cart := s.cart
	if cart != nil && cart.RestaurantID != restaurantID {
		if len(cart.Items) > 0 {
			if !opts.ConfirmReplace {
				s.logger.Info("Add declined: cart holds another restaurant", logging.Fields{
					"cart_restaurant_id": cart.RestaurantID,
					"restaurant_id":      restaurantID,
				})
				metrics.CartMutations.WithLabelValues("add", string(AddOutcomeDeclined)).Inc()
				return AddOutcomeDeclined, nil
			}
			if err := s.clearLocked(ctx); err != nil {
				return "", err
			}
			cart = nil
		} else {
			var rescoped models.Cart
			if err := s.store.Update(ctx, repository.TableCarts, cart.ID, repository.Values{"restaurant_id": restaurantID}, &rescoped); err != nil {
				return "", s.fail("add", err)
			}
			cart = &rescoped
		}
	}

	if cart == nil {
		var created models.Cart
		err := s.store.Insert(ctx, repository.TableCarts, repository.Values{
			"user_id":       s.userID,
			"restaurant_id": restaurantID,
			"created_at":    time.Now().UTC(),
		}, &created)
		if err != nil {
			return "", s.fail("add", err)
		}
		cart = &created
	}

	instructions := SanitizeInstructions(opts.SpecialInstructions)
	outcome := AddOutcomeAdded

	if existing := findByMenuItem(cart.Items, item.ID); existing != nil {
		values := repository.Values{"quantity": existing.Quantity + quantity}
		if instructions != nil {
			values["special_instructions"] = *instructions
		}
		if err := s.store.Update(ctx, repository.TableCartItems, existing.ID, values, nil); err != nil {
			return "", s.fail("add", err)
		}
		outcome = AddOutcomeMerged
	} else {
		err := s.store.Insert(ctx, repository.TableCartItems, repository.Values{
			"cart_id":              cart.ID,
			"menu_item_id":         item.ID,
			"quantity":             quantity,
			"special_instructions": instructions,
			"created_at":           time.Now().UTC(),
		}, nil)
		if err != nil {
			return "", s.fail("add", err)
		}
	}

	metrics.CartMutations.WithLabelValues("add", string(outcome)).Inc()
	s.logger.Debug("Item added to cart", logging.Fields{
		"menu_item_id": item.ID,
		"quantity":     quantity,
		"outcome":      string(outcome),
	})

	return outcome, s.loadLocked(ctx)
}

// SetItemQuantity overwrites a line's quantity; zero or less removes the line.
func (s *CartSession) SetItemQuantity(ctx context.Context, cartItemID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorize(); err != nil {
		return err
	}
	if s.findLine(cartItemID) == nil {
		return errors.ErrNotFound
	}

	if quantity <= 0 {
		if err := s.store.Delete(ctx, repository.TableCartItems, repository.Where(repository.Eq("id", cartItemID))); err != nil {
			return s.fail("remove", err)
		}
		metrics.CartMutations.WithLabelValues("remove", "ok").Inc()
		return s.loadLocked(ctx)
	}

	if err := s.store.Update(ctx, repository.TableCartItems, cartItemID, repository.Values{"quantity": quantity}, nil); err != nil {
		return s.fail("set_quantity", err)
	}
	metrics.CartMutations.WithLabelValues("set_quantity", "ok").Inc()
	return s.loadLocked(ctx)
}

// RemoveItem deletes a line regardless of its quantity.
func (s *CartSession) RemoveItem(ctx context.Context, cartItemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorize(); err != nil {
		return err
	}
	if s.findLine(cartItemID) == nil {
		return errors.ErrNotFound
	}

	if err := s.store.Delete(ctx, repository.TableCartItems, repository.Where(repository.Eq("id", cartItemID))); err != nil {
		return s.fail("remove", err)
	}
	metrics.CartMutations.WithLabelValues("remove", "ok").Inc()
	return s.loadLocked(ctx)
}

// Clear deletes every line and then the cart itself.
func (s *CartSession) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorize(); err != nil {
		return err
	}
	if err := s.clearLocked(ctx); err != nil {
		return err
	}
	metrics.CartMutations.WithLabelValues("clear", "ok").Inc()
	return s.loadLocked(ctx)
}

// Refresh re-reads the cart, its lines with their menu items and the restaurant.
func (s *CartSession) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorize(); err != nil {
		return err
	}
	return s.loadLocked(ctx)
}

// Snapshot returns a copy of the current cart and its derived values.
func (s *CartSession) Snapshot() CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *CartSession) viewLocked() CartView {
	if s.cart == nil {
		return CartView{}
	}

	cart := *s.cart
	cart.Items = append([]models.CartItem(nil), s.cart.Items...)

	view := CartView{Cart: &cart}
	for _, item := range cart.Items {
		view.ItemCount += item.Quantity
		view.Subtotal += item.LineTotal()
	}
	return view
}

// checkout re-reads the cart and hands it to place while the session stays
// locked. The cart is cleared only when place succeeds, so a second checkout
// waiting on the lock finds it empty.
func (s *CartSession) checkout(ctx context.Context, place func(view CartView) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorize(); err != nil {
		return err
	}
	if err := s.loadLocked(ctx); err != nil {
		return err
	}

	view := s.viewLocked()
	if view.Cart == nil || len(view.Cart.Items) == 0 {
		return errors.ErrEmptyCart
	}
	if err := place(view); err != nil {
		return err
	}

	if err := s.clearLocked(ctx); err != nil {
		return err
	}
	metrics.CartMutations.WithLabelValues("checkout", "ok").Inc()
	return s.loadLocked(ctx)
}

// Close ends the session. Later mutations fail with ErrUnauthenticated.
func (s *CartSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.cart = nil
}

func (s *CartSession) authorize() error {
	if s.closed || s.userID == "" {
		return errors.ErrUnauthenticated
	}
	return nil
}

func (s *CartSession) clearLocked(ctx context.Context) error {
	if s.cart == nil {
		return nil
	}

	if err := s.store.Delete(ctx, repository.TableCartItems, repository.Where(repository.Eq("cart_id", s.cart.ID))); err != nil {
		return s.fail("clear", err)
	}
	if err := s.store.Delete(ctx, repository.TableCarts, repository.Where(repository.Eq("id", s.cart.ID))); err != nil {
		return s.fail("clear", err)
	}

	s.logger.Info("Cart cleared", logging.Fields{"cart_id": s.cart.ID})
	s.cart = nil
	return nil
}

func (s *CartSession) loadLocked(ctx context.Context) error {
	var carts []models.Cart
	query := repository.Where(repository.Eq("user_id", s.userID)).Order("created_at", true).Take(1)
	if err := s.store.Select(ctx, repository.TableCarts, query, &carts); err != nil {
		return s.fail("refresh", err)
	}
	if len(carts) == 0 {
		s.cart = nil
		return nil
	}
	cart := carts[0]

	var items []models.CartItem
	itemsQuery := repository.Where(repository.Eq("cart_id", cart.ID)).Order("created_at", false)
	if err := s.store.Select(ctx, repository.TableCartItems, itemsQuery, &items); err != nil {
		return s.fail("refresh", err)
	}

	if len(items) > 0 {
		ids := make([]string, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.MenuItemID)
		}

		var menuItems []models.MenuItem
		if err := s.store.Select(ctx, repository.TableMenuItems, repository.Where(repository.In("id", ids)), &menuItems); err != nil {
			return s.fail("refresh", err)
		}
		byID := make(map[string]models.MenuItem, len(menuItems))
		for _, mi := range menuItems {
			byID[mi.ID] = mi
		}
		for i := range items {
			if mi, ok := byID[items[i].MenuItemID]; ok {
				mi := mi
				items[i].MenuItem = &mi
			}
		}
	}
	cart.Items = items

	var restaurant models.Restaurant
	err := s.store.Get(ctx, repository.TableRestaurants, cart.RestaurantID, &restaurant)
	switch {
	case err == nil:
		cart.Restaurant = &restaurant
	case stderrors.Is(err, errors.ErrNotFound):
	default:
		return s.fail("refresh", err)
	}

	s.cart = &cart
	return nil
}

func (s *CartSession) findLine(cartItemID string) *models.CartItem {
	if s.cart == nil {
		return nil
	}
	for i := range s.cart.Items {
		if s.cart.Items[i].ID == cartItemID {
			return &s.cart.Items[i]
		}
	}
	return nil
}

func findByMenuItem(items []models.CartItem, menuItemID string) *models.CartItem {
	for i := range items {
		if items[i].MenuItemID == menuItemID {
			return &items[i]
		}
	}
	return nil
}

func (s *CartSession) fail(operation string, err error) error {
	metrics.CartMutations.WithLabelValues(operation, "error").Inc()
	s.logger.Error("Cart operation failed", logging.Fields{
		"operation": operation,
		"error":     err.Error(),
	})
	return err
}

func (s *CartSession) ensureActive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authorize()
}
