package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
)

func init() {
	logging.SetOutput(io.Discard)
}

func strPtr(s string) *string { return &s }

func testConfig() *config.Config {
	return &config.Config{
		Checkout: config.CheckoutConfig{DeliveryETA: 45 * time.Minute},
		Features: config.FeatureFlags{
			EnableOrderEvents:   true,
			EnableNotifications: true,
		},
	}
}

// newTestStore seeds two restaurants with a small menu each.
func newTestStore(t *testing.T) *repository.MemoryStore {
	t.Helper()
	store := repository.NewMemoryStore()

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	must(store.Seed(repository.TableRestaurants,
		models.Restaurant{ID: "r1", Name: "Spice Route", Description: "North Indian curries", CuisineTypes: []string{"Indian", "Mughlai"}, Rating: 4.6, DeliveryFee: 30, IsOpen: true, IsActive: true},
		models.Restaurant{ID: "r2", Name: "Burger Barn", Description: "Smash burgers", CuisineTypes: []string{"American"}, Rating: 4.2, DeliveryFee: 20, IsOpen: true, IsActive: true},
		models.Restaurant{ID: "r3", Name: "Closed Kitchen", Rating: 4.9, IsActive: false},
	))
	must(store.Seed(repository.TableCategories,
		models.Category{ID: "c-main", Name: "Mains", DisplayOrder: 2, IsActive: true},
		models.Category{ID: "c-starter", Name: "Starters", DisplayOrder: 1, IsActive: true},
		models.Category{ID: "c-dessert", Name: "Desserts", DisplayOrder: 3, IsActive: false},
	))
	must(store.Seed(repository.TableMenuItems,
		models.MenuItem{ID: "m-tikka", RestaurantID: "r1", CategoryID: "c-starter", Name: "Paneer Tikka", Price: 250, IsAvailable: true},
		models.MenuItem{ID: "m-dal", RestaurantID: "r1", CategoryID: "c-main", Name: "Dal Makhani", Price: 150, IsAvailable: true},
		models.MenuItem{ID: "m-kulfi", RestaurantID: "r1", CategoryID: "c-dessert", Name: "Kulfi", Price: 90, IsAvailable: false},
		models.MenuItem{ID: "m-burger", RestaurantID: "r2", CategoryID: "c-main", Name: "Classic Burger", Price: 199, IsAvailable: true},
	))
	return store
}

func menuItem(t *testing.T, store repository.Store, id string) models.MenuItem {
	t.Helper()
	var item models.MenuItem
	if err := store.Get(context.Background(), repository.TableMenuItems, id, &item); err != nil {
		t.Fatalf("menu item %s: %v", id, err)
	}
	return item
}

func openSession(t *testing.T, store repository.Store, userID string) *CartSession {
	t.Helper()
	session, err := NewSessionRegistry(store).Open(context.Background(), userID)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return session
}

type recordingPublisher struct {
	mu     sync.Mutex
	orders []*models.Order
}

func (p *recordingPublisher) PublishOrderPlaced(ctx context.Context, order *models.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, order)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*models.Notification
}

func (n *recordingNotifier) SendNotification(ctx context.Context, notification *models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return nil
}

type stubPayments struct {
	mu     sync.Mutex
	status models.PaymentStatus
	err    error
	calls  int
}

func (p *stubPayments) CapturePayment(ctx context.Context, req *models.CapturePaymentRequest) (*models.CapturePaymentResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &models.CapturePaymentResponse{PaymentID: "pay_1", Status: p.status}, nil
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events map[string][]models.StatusEvent
}

func (b *recordingBroadcaster) Broadcast(userID string, event models.StatusEvent) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.events == nil {
		b.events = make(map[string][]models.StatusEvent)
	}
	b.events[userID] = append(b.events[userID], event)
	return 1
}

// faultyStore wraps a store to slow down or fail writes to one table.
type faultyStore struct {
	repository.Store
	table       string
	insertDelay time.Duration
	insertErr   error
	updateErr   error
}

func (f *faultyStore) Insert(ctx context.Context, table string, values repository.Values, dest interface{}) error {
	if table == f.table {
		time.Sleep(f.insertDelay)
		if f.insertErr != nil {
			return f.insertErr
		}
	}
	return f.Store.Insert(ctx, table, values, dest)
}

func (f *faultyStore) Update(ctx context.Context, table, id string, values repository.Values, dest interface{}) error {
	if table == f.table && f.updateErr != nil {
		return f.updateErr
	}
	return f.Store.Update(ctx, table, id, values, dest)
}
