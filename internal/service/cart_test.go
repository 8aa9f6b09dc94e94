package service

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
)

func TestCartSession_AddItemCreatesCart(t *testing.T) {
	store := newTestStore(t)
	session := openSession(t, store, "user-1")
	ctx := context.Background()

	outcome, err := session.AddItem(ctx, "r1", menuItem(t, store, "m-tikka"), 2, AddOptions{})
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if outcome != AddOutcomeAdded {
		t.Errorf("Expected outcome %s, got %s", AddOutcomeAdded, outcome)
	}

	view := session.Snapshot()
	if view.Cart == nil || view.Cart.RestaurantID != "r1" {
		t.Fatalf("Expected cart scoped to r1, got %+v", view.Cart)
	}
	if view.Cart.Restaurant == nil || view.Cart.Restaurant.Name != "Spice Route" {
		t.Errorf("Expected restaurant to be loaded, got %+v", view.Cart.Restaurant)
	}
	if view.ItemCount != 2 {
		t.Errorf("Expected item count 2, got %d", view.ItemCount)
	}
	if view.Subtotal != 500 {
		t.Errorf("Expected subtotal 500, got %v", view.Subtotal)
	}
}

func TestCartSession_AddSameItemMerges(t *testing.T) {
	store := newTestStore(t)
	session := openSession(t, store, "user-1")
	ctx := context.Background()
	item := menuItem(t, store, "m-dal")

	if _, err := session.AddItem(ctx, "r1", item, 1, AddOptions{}); err != nil {
		t.Fatalf("first AddItem failed: %v", err)
	}
	outcome, err := session.AddItem(ctx, "r1", item, 2, AddOptions{})
	if err != nil {
		t.Fatalf("second AddItem failed: %v", err)
	}

	if outcome != AddOutcomeMerged {
		t.Errorf("Expected outcome %s, got %s", AddOutcomeMerged, outcome)
	}
	view := session.Snapshot()
	if len(view.Cart.Items) != 1 {
		t.Fatalf("Expected a single line, got %d", len(view.Cart.Items))
	}
	if view.Cart.Items[0].Quantity != 3 {
		t.Errorf("Expected quantity 3, got %d", view.Cart.Items[0].Quantity)
	}
}

func TestCartSession_CrossRestaurantAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("declined without confirmation", func(t *testing.T) {
		store := newTestStore(t)
		session := openSession(t, store, "user-1")
		if _, err := session.AddItem(ctx, "r1", menuItem(t, store, "m-tikka"), 1, AddOptions{}); err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}
		burger := menuItem(t, store, "m-burger")
		before := session.Snapshot()
		requests := store.Requests()

		outcome, err := session.AddItem(ctx, "r2", burger, 1, AddOptions{})
		if err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}
		if outcome != AddOutcomeDeclined {
			t.Errorf("Expected outcome %s, got %s", AddOutcomeDeclined, outcome)
		}

		after := session.Snapshot()
		if after.Cart.RestaurantID != "r1" || after.ItemCount != before.ItemCount || after.Subtotal != before.Subtotal {
			t.Errorf("Expected cart unchanged, got %+v", after)
		}
		if store.Requests() != requests {
			t.Errorf("Expected no backend request, got %d", store.Requests()-requests)
		}
	})

	t.Run("replaced with confirmation", func(t *testing.T) {
		store := newTestStore(t)
		session := openSession(t, store, "user-1")
		if _, err := session.AddItem(ctx, "r1", menuItem(t, store, "m-tikka"), 1, AddOptions{}); err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}
		oldCartID := session.Snapshot().Cart.ID

		outcome, err := session.AddItem(ctx, "r2", menuItem(t, store, "m-burger"), 1, AddOptions{ConfirmReplace: true})
		if err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}
		if outcome != AddOutcomeAdded {
			t.Errorf("Expected outcome %s, got %s", AddOutcomeAdded, outcome)
		}

		view := session.Snapshot()
		if view.Cart.RestaurantID != "r2" || len(view.Cart.Items) != 1 || view.Cart.Items[0].MenuItemID != "m-burger" {
			t.Errorf("Expected cart with only the burger, got %+v", view.Cart)
		}

		var leftovers []models.CartItem
		if err := store.Select(ctx, repository.TableCartItems, repository.Where(repository.Eq("cart_id", oldCartID)), &leftovers); err != nil {
			t.Fatalf("Select failed: %v", err)
		}
		if len(leftovers) != 0 {
			t.Errorf("Expected old cart lines to be deleted, got %d", len(leftovers))
		}
	})

	t.Run("empty cart is rescoped", func(t *testing.T) {
		store := newTestStore(t)
		if err := store.Seed(repository.TableCarts, models.Cart{ID: "cart-empty", UserID: "user-1", RestaurantID: "r1"}); err != nil {
			t.Fatalf("Seed failed: %v", err)
		}
		session := openSession(t, store, "user-1")

		outcome, err := session.AddItem(ctx, "r2", menuItem(t, store, "m-burger"), 1, AddOptions{})
		if err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}
		if outcome != AddOutcomeAdded {
			t.Errorf("Expected outcome %s, got %s", AddOutcomeAdded, outcome)
		}
		view := session.Snapshot()
		if view.Cart.ID != "cart-empty" || view.Cart.RestaurantID != "r2" {
			t.Errorf("Expected existing cart rescoped to r2, got %+v", view.Cart)
		}
	})
}

func TestCartSession_AddItemValidation(t *testing.T) {
	store := newTestStore(t)
	session := openSession(t, store, "user-1")
	ctx := context.Background()

	tests := []struct {
		name         string
		restaurantID string
		itemID       string
		quantity     int
	}{
		{"zero quantity", "r1", "m-tikka", 0},
		{"item from another restaurant", "r2", "m-tikka", 1},
		{"unavailable item", "r1", "m-kulfi", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := session.AddItem(ctx, tt.restaurantID, menuItem(t, store, tt.itemID), tt.quantity, AddOptions{})
			if !errors.IsValidation(err) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}

	if session.Snapshot().Cart != nil {
		t.Error("Expected no cart after rejected adds")
	}
}

func TestCartSession_SetItemQuantity(t *testing.T) {
	store := newTestStore(t)
	session := openSession(t, store, "user-1")
	ctx := context.Background()

	if _, err := session.AddItem(ctx, "r1", menuItem(t, store, "m-tikka"), 1, AddOptions{}); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if _, err := session.AddItem(ctx, "r1", menuItem(t, store, "m-dal"), 1, AddOptions{}); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	lines := session.Snapshot().Cart.Items

	if err := session.SetItemQuantity(ctx, lines[0].ID, 4); err != nil {
		t.Fatalf("SetItemQuantity failed: %v", err)
	}
	view := session.Snapshot()
	if view.ItemCount != 5 {
		t.Errorf("Expected item count 5, got %d", view.ItemCount)
	}
	if view.Subtotal != 4*250+150 {
		t.Errorf("Expected subtotal %v, got %v", 4*250+150, view.Subtotal)
	}

	if err := session.SetItemQuantity(ctx, lines[1].ID, 0); err != nil {
		t.Fatalf("SetItemQuantity(0) failed: %v", err)
	}
	view = session.Snapshot()
	if len(view.Cart.Items) != 1 || view.ItemCount != 4 {
		t.Errorf("Expected the line to be removed, got %+v", view)
	}

	if err := session.SetItemQuantity(ctx, "unknown", 1); !stderrors.Is(err, errors.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCartSession_RemoveAndClear(t *testing.T) {
	store := newTestStore(t)
	session := openSession(t, store, "user-1")
	ctx := context.Background()

	for _, id := range []string{"m-tikka", "m-dal"} {
		if _, err := session.AddItem(ctx, "r1", menuItem(t, store, id), 1, AddOptions{}); err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}
	}

	first := session.Snapshot().Cart.Items[0]
	if err := session.RemoveItem(ctx, first.ID); err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}
	if got := len(session.Snapshot().Cart.Items); got != 1 {
		t.Errorf("Expected 1 line after remove, got %d", got)
	}

	cartID := session.Snapshot().Cart.ID
	if err := session.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if session.Snapshot().Cart != nil {
		t.Error("Expected no cart after clear")
	}

	var cart models.Cart
	if err := store.Get(ctx, repository.TableCarts, cartID, &cart); !stderrors.Is(err, errors.ErrNotFound) {
		t.Errorf("Expected cart row to be deleted, got %v", err)
	}
}

func TestCartSession_RefreshReplacesSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	registry := NewSessionRegistry(store)

	first, err := registry.Open(ctx, "user-1")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := first.AddItem(ctx, "r1", menuItem(t, store, "m-tikka"), 1, AddOptions{}); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	// A change made behind the session's back shows up only after Refresh.
	line := first.Snapshot().Cart.Items[0]
	if err := store.Update(ctx, repository.TableCartItems, line.ID, repository.Values{"quantity": 7}, nil); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if first.Snapshot().ItemCount != 1 {
		t.Error("Expected snapshot to be unchanged before refresh")
	}
	if err := first.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if first.Snapshot().ItemCount != 7 {
		t.Errorf("Expected item count 7 after refresh, got %d", first.Snapshot().ItemCount)
	}
}

func TestCartSession_ClosedSessionIssuesNoRequests(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	registry := NewSessionRegistry(store)

	session, err := registry.Open(ctx, "user-1")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := session.AddItem(ctx, "r1", menuItem(t, store, "m-tikka"), 1, AddOptions{}); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	lineID := session.Snapshot().Cart.Items[0].ID
	item := menuItem(t, store, "m-dal")

	registry.Close("user-1")
	requests := store.Requests()

	checks := map[string]error{
		"add":      func() error { _, err := session.AddItem(ctx, "r1", item, 1, AddOptions{}); return err }(),
		"quantity": session.SetItemQuantity(ctx, lineID, 3),
		"remove":   session.RemoveItem(ctx, lineID),
		"clear":    session.Clear(ctx),
		"refresh":  session.Refresh(ctx),
	}
	for name, err := range checks {
		if !stderrors.Is(err, errors.ErrUnauthenticated) {
			t.Errorf("%s: expected ErrUnauthenticated, got %v", name, err)
		}
	}

	if store.Requests() != requests {
		t.Errorf("Expected no backend requests, got %d", store.Requests()-requests)
	}
	if session.Snapshot().Cart != nil {
		t.Error("Expected closed session to expose no cart")
	}
	if _, err := registry.Get("user-1"); !stderrors.Is(err, errors.ErrUnauthenticated) {
		t.Errorf("Expected registry to forget the session, got %v", err)
	}
}

func TestSessionRegistry_OpenRequiresUser(t *testing.T) {
	registry := NewSessionRegistry(repository.NewMemoryStore())

	if _, err := registry.Open(context.Background(), ""); !stderrors.Is(err, errors.ErrUnauthenticated) {
		t.Errorf("Expected ErrUnauthenticated, got %v", err)
	}
	if registry.Len() != 0 {
		t.Errorf("Expected no sessions, got %d", registry.Len())
	}
}

func TestSessionRegistry_OpenResumesSession(t *testing.T) {
	registry := NewSessionRegistry(repository.NewMemoryStore())
	ctx := context.Background()

	a, err := registry.Open(ctx, "user-1")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	b, err := registry.Open(ctx, "user-1")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if a != b {
		t.Error("Expected the same session for repeated logins")
	}
	if registry.Len() != 1 {
		t.Errorf("Expected 1 session, got %d", registry.Len())
	}
}
