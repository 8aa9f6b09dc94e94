package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/interfaces"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
)

const orderNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

type PlaceOrderRequest struct {
	Address              models.DeliveryAddress `json:"address"`
	PaymentMethod        models.PaymentMethod   `json:"payment_method"`
	DeliveryInstructions *string                `json:"delivery_instructions,omitempty"`
}

// CheckoutSummary is what the checkout page shows before an order is placed.
type CheckoutSummary struct {
	Cart        CartView               `json:"cart"`
	Totals      OrderTotals            `json:"totals"`
	Display     map[string]string      `json:"display"`
	Address     models.DeliveryAddress `json:"address"`
	CanCheckout bool                   `json:"can_checkout"`
}

type ReorderResult struct {
	Outcome AddOutcome `json:"outcome"`
	Added   int        `json:"added"`
	// Skipped lists items that are no longer on the menu or not available.
	Skipped []string `json:"skipped"`
}

// OrderService handles checkout and order history.
type OrderService struct {
	store              repository.Store
	paymentClient      interfaces.PaymentClient
	notificationClient interfaces.NotificationSender
	eventPublisher     interfaces.OrderEventPublisher
	broadcaster        interfaces.StatusBroadcaster
	config             *config.Config
	logger             *logging.Logger
	now                func() time.Time
	background         sync.WaitGroup
}

// NewOrderService creates a new order service. Every collaborator except
// store and cfg may be nil, which disables the matching feature.
func NewOrderService(
	store repository.Store,
	paymentClient interfaces.PaymentClient,
	notificationClient interfaces.NotificationSender,
	eventPublisher interfaces.OrderEventPublisher,
	broadcaster interfaces.StatusBroadcaster,
	cfg *config.Config,
) *OrderService {
	return &OrderService{
		store:              store,
		paymentClient:      paymentClient,
		notificationClient: notificationClient,
		eventPublisher:     eventPublisher,
		broadcaster:        broadcaster,
		config:             cfg,
		logger:             logging.NewLogger("order-service"),
		now:                time.Now,
	}
}

// Summary prices the session's cart for the given delivery address.
func (s *OrderService) Summary(session *CartSession, addr models.DeliveryAddress) (*CheckoutSummary, error) {
	if session == nil {
		return nil, errors.ErrUnauthenticated
	}
	if err := session.ensureActive(); err != nil {
		return nil, err
	}

	view := session.Snapshot()
	totals := CalculateOrderTotals(view.Subtotal, deliveryFee(view))

	return &CheckoutSummary{
		Cart:        view,
		Totals:      totals,
		Display:     totals.Formatted(),
		Address:     addr,
		CanCheckout: CanCheckout(view, addr),
	}, nil
}

// PlaceOrder turns the session's cart into an order and clears the cart.
// Preconditions are checked before any backend request is made. The cart is
// re-read and consumed under the session lock, so one cart yields one order.
func (s *OrderService) PlaceOrder(ctx context.Context, session *CartSession, req *PlaceOrderRequest) (*models.Order, error) {
	if session == nil {
		return nil, errors.ErrUnauthenticated
	}
	if err := session.ensureActive(); err != nil {
		return nil, err
	}

	if err := checkCart(session.Snapshot()); err != nil {
		return nil, err
	}
	if err := ValidateDeliveryAddress(req.Address); err != nil {
		return nil, err
	}
	if err := ValidatePaymentMethod(req.PaymentMethod); err != nil {
		return nil, err
	}

	var order *models.Order
	err := session.checkout(ctx, func(view CartView) error {
		if err := checkCart(view); err != nil {
			return err
		}
		placed, err := s.createOrder(ctx, session.UserID(), view, req)
		if err != nil {
			return err
		}
		order = placed
		return nil
	})
	if err != nil {
		if order != nil {
			s.logger.Error("Order placed but cart could not be cleared", logging.Fields{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
		return nil, err
	}

	if s.config.Features.EnableOrderEvents && s.eventPublisher != nil {
		if err := s.eventPublisher.PublishOrderPlaced(ctx, order); err != nil {
			// Log but don't fail
			s.logger.Error("Failed to publish order placed event", logging.Fields{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
	}

	if s.config.Features.EnableNotifications && s.notificationClient != nil {
		placed := *order
		s.background.Add(1)
		go func() {
			defer s.background.Done()
			s.sendOrderConfirmationNotification(context.Background(), &placed)
		}()
	}

	metrics.OrdersPlaced.WithLabelValues(string(req.PaymentMethod)).Inc()
	s.logger.Info("Order placed successfully", logging.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"total":        FormatAmount(order.TotalAmount),
	})

	return order, nil
}

// createOrder writes the order with payment pending, snapshots every line,
// then captures payment and records its outcome on the order.
func (s *OrderService) createOrder(ctx context.Context, userID string, view CartView, req *PlaceOrderRequest) (*models.Order, error) {
	now := s.now().UTC()
	totals := CalculateOrderTotals(view.Subtotal, deliveryFee(view))
	orderNumber := generateOrderNumber(now)

	s.logger.Info("Placing order", logging.Fields{
		"user_id":        userID,
		"order_number":   orderNumber,
		"item_count":     view.ItemCount,
		"payment_method": string(req.PaymentMethod),
	})

	eta := now.Add(s.config.Checkout.DeliveryETA)
	var order models.Order
	err := s.store.Insert(ctx, repository.TableOrders, repository.Values{
		"user_id":                 userID,
		"restaurant_id":           view.Cart.RestaurantID,
		"order_number":            orderNumber,
		"status":                  models.OrderStatusPending,
		"subtotal":                totals.Subtotal,
		"delivery_fee":            totals.DeliveryFee,
		"tax":                     totals.Tax,
		"discount":                totals.Discount,
		"total_amount":            totals.Total,
		"payment_method":          req.PaymentMethod,
		"payment_status":          models.PaymentStatusPending,
		"delivery_address_line1":  req.Address.AddressLine1,
		"delivery_address_line2":  req.Address.AddressLine2,
		"delivery_city":           req.Address.City,
		"delivery_postal_code":    req.Address.PostalCode,
		"delivery_instructions":   SanitizeInstructions(req.DeliveryInstructions),
		"estimated_delivery_time": eta,
		"created_at":              now,
		"updated_at":              now,
	}, &order)
	if err != nil {
		s.logger.Error("Failed to create order", logging.Fields{
			"order_number": orderNumber,
			"error":        err.Error(),
		})
		return nil, err
	}

	for _, line := range view.Cart.Items {
		menuItemID := line.MenuItemID
		var item models.OrderItem
		err := s.store.Insert(ctx, repository.TableOrderItems, repository.Values{
			"order_id":             order.ID,
			"menu_item_id":         &menuItemID,
			"item_name":            line.MenuItem.Name,
			"item_price":           line.MenuItem.Price,
			"quantity":             line.Quantity,
			"special_instructions": line.SpecialInstructions,
		}, &item)
		if err != nil {
			s.logger.Error("Failed to create order item", logging.Fields{
				"order_id":     order.ID,
				"menu_item_id": menuItemID,
				"error":        err.Error(),
			})
			return nil, err
		}
		order.OrderItems = append(order.OrderItems, item)
	}
	order.Restaurant = view.Cart.Restaurant

	payment, err := s.capturePayment(ctx, userID, orderNumber, req.PaymentMethod, totals.Total)
	if err != nil {
		s.abandonOrder(ctx, &order, err)
		return nil, err
	}

	if payment.Status != models.PaymentStatusPending {
		var updated models.Order
		err := s.store.Update(ctx, repository.TableOrders, order.ID, repository.Values{
			"payment_status": payment.Status,
			"updated_at":     s.now().UTC(),
		}, &updated)
		if err != nil {
			// The charge went through; keep the order and leave the stored
			// status for reconciliation by payment id.
			s.logger.Error("Payment captured but order not updated", logging.Fields{
				"order_id":     order.ID,
				"order_number": orderNumber,
				"payment_id":   payment.PaymentID,
				"error":        err.Error(),
			})
			order.PaymentStatus = payment.Status
		} else {
			updated.OrderItems = order.OrderItems
			updated.Restaurant = order.Restaurant
			order = updated
		}
	}

	return &order, nil
}

// abandonOrder marks an order whose payment did not go through as cancelled.
func (s *OrderService) abandonOrder(ctx context.Context, order *models.Order, cause error) {
	err := s.store.Update(ctx, repository.TableOrders, order.ID, repository.Values{
		"status":         models.OrderStatusCancelled,
		"payment_status": models.PaymentStatusFailed,
		"updated_at":     s.now().UTC(),
	}, nil)

	fields := logging.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"cause":        cause.Error(),
	}
	if err != nil {
		fields["error"] = err.Error()
		s.logger.Error("Failed to cancel unpaid order", fields)
		return
	}
	s.logger.Warn("Order cancelled after payment failure", fields)
}

// checkCart refuses carts that cannot be turned into an order.
func checkCart(view CartView) error {
	if view.Cart == nil || len(view.Cart.Items) == 0 {
		return errors.ErrEmptyCart
	}
	for _, line := range view.Cart.Items {
		if line.MenuItem == nil {
			return errors.NewValidationError("items", "cart contains an item that is no longer on the menu")
		}
	}
	return nil
}

// ListOrders returns the user's orders, newest first, with restaurant and items.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	if userID == "" {
		return nil, errors.ErrUnauthenticated
	}

	orders := []models.Order{}
	query := repository.Where(repository.Eq("user_id", userID)).Order("created_at", true)
	if err := s.store.Select(ctx, repository.TableOrders, query, &orders); err != nil {
		s.logger.Error("Failed to list orders", logging.Fields{
			"user_id": userID,
			"error":   err.Error(),
		})
		return nil, err
	}

	if err := s.attachDetails(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder returns one of the user's orders. Other users' orders are not found.
func (s *OrderService) GetOrder(ctx context.Context, userID, id string) (*models.Order, error) {
	if userID == "" {
		return nil, errors.ErrUnauthenticated
	}

	var order models.Order
	if err := s.store.Get(ctx, repository.TableOrders, id, &order); err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, errors.ErrNotFound
	}

	orders := []models.Order{order}
	if err := s.attachDetails(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// Reorder adds every still-orderable item of a past order to the cart,
// following the same restaurant rules as AddItem.
func (s *OrderService) Reorder(ctx context.Context, session *CartSession, orderID string, confirmReplace bool) (*ReorderResult, error) {
	if session == nil {
		return nil, errors.ErrUnauthenticated
	}
	if err := session.ensureActive(); err != nil {
		return nil, err
	}

	order, err := s.GetOrder(ctx, session.UserID(), orderID)
	if err != nil {
		return nil, err
	}

	result := &ReorderResult{Outcome: AddOutcomeAdded, Skipped: []string{}}
	for _, line := range order.OrderItems {
		if line.MenuItemID == nil {
			result.Skipped = append(result.Skipped, line.ItemName)
			continue
		}

		var item models.MenuItem
		err := s.store.Get(ctx, repository.TableMenuItems, *line.MenuItemID, &item)
		if stderrors.Is(err, errors.ErrNotFound) || (err == nil && !item.IsAvailable) {
			result.Skipped = append(result.Skipped, line.ItemName)
			continue
		}
		if err != nil {
			return nil, err
		}

		outcome, err := session.AddItem(ctx, order.RestaurantID, item, line.Quantity, AddOptions{
			ConfirmReplace:      confirmReplace,
			SpecialInstructions: line.SpecialInstructions,
		})
		if err != nil {
			return nil, err
		}
		if outcome == AddOutcomeDeclined {
			result.Outcome = AddOutcomeDeclined
			return result, nil
		}
		result.Added++
	}

	s.logger.Info("Order re-added to cart", logging.Fields{
		"order_id": orderID,
		"added":    result.Added,
		"skipped":  len(result.Skipped),
	})
	return result, nil
}

// HandleStatusEvent validates a status change from the order backend and
// forwards it to the user's live connections.
func (s *OrderService) HandleStatusEvent(ctx context.Context, event models.StatusEvent) error {
	if err := ValidateStatusEvent(event); err != nil {
		s.logger.Warn("Dropping invalid status event", logging.Fields{
			"order_id": event.OrderID,
			"status":   string(event.Status),
			"error":    err.Error(),
		})
		return err
	}

	delivered := 0
	if s.broadcaster != nil {
		delivered = s.broadcaster.Broadcast(event.UserID, event)
	}

	metrics.StatusEvents.WithLabelValues(string(event.Status), strconv.FormatBool(delivered > 0)).Inc()
	s.logger.Debug("Status event forwarded", logging.Fields{
		"order_id":    event.OrderID,
		"status":      string(event.Status),
		"connections": delivered,
	})
	return nil
}

// Wait blocks until background notifications have finished.
func (s *OrderService) Wait() {
	s.background.Wait()
}

// capturePayment charges the order. Cash on delivery stays pending and,
// without capture, other methods are recorded as completed.
func (s *OrderService) capturePayment(ctx context.Context, userID, orderNumber string, method models.PaymentMethod, amount float64) (*models.CapturePaymentResponse, error) {
	if method == models.PaymentMethodCOD {
		return &models.CapturePaymentResponse{Status: models.PaymentStatusPending}, nil
	}
	if !s.config.Features.EnablePaymentCapture || s.paymentClient == nil {
		return &models.CapturePaymentResponse{Status: models.PaymentStatusCompleted}, nil
	}

	resp, err := s.paymentClient.CapturePayment(ctx, &models.CapturePaymentRequest{
		OrderNumber: orderNumber,
		UserID:      userID,
		Method:      method,
		Amount:      amount,
	})
	if err != nil {
		s.logger.Error("Payment capture failed", logging.Fields{
			"order_number": orderNumber,
			"error":        err.Error(),
		})
		return nil, err
	}
	if resp.Status == models.PaymentStatusFailed {
		return nil, errors.NewValidationError("payment_method", "payment was declined")
	}
	return resp, nil
}

func (s *OrderService) attachDetails(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	orderIDs := make([]string, 0, len(orders))
	restaurantIDs := make([]string, 0, len(orders))
	seen := make(map[string]bool)
	for _, o := range orders {
		orderIDs = append(orderIDs, o.ID)
		if !seen[o.RestaurantID] {
			seen[o.RestaurantID] = true
			restaurantIDs = append(restaurantIDs, o.RestaurantID)
		}
	}

	var items []models.OrderItem
	if err := s.store.Select(ctx, repository.TableOrderItems, repository.Where(repository.In("order_id", orderIDs)), &items); err != nil {
		return err
	}
	var restaurants []models.Restaurant
	if err := s.store.Select(ctx, repository.TableRestaurants, repository.Where(repository.In("id", restaurantIDs)), &restaurants); err != nil {
		return err
	}

	itemsByOrder := make(map[string][]models.OrderItem)
	for _, item := range items {
		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}
	restaurantByID := make(map[string]*models.Restaurant, len(restaurants))
	for i := range restaurants {
		restaurantByID[restaurants[i].ID] = &restaurants[i]
	}

	for i := range orders {
		orders[i].OrderItems = itemsByOrder[orders[i].ID]
		orders[i].Restaurant = restaurantByID[orders[i].RestaurantID]
	}
	return nil
}

func (s *OrderService) sendOrderConfirmationNotification(ctx context.Context, order *models.Order) {
	notification := &models.Notification{
		UserID:  order.UserID,
		Type:    models.NotificationOrderConfirmation,
		Channel: "email",
		Subject: "Order Confirmation",
		Body:    fmt.Sprintf("Your order %s has been received.", order.OrderNumber),
		Data: map[string]string{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
			"total":        FormatAmount(order.TotalAmount),
		},
	}

	if err := s.notificationClient.SendNotification(ctx, notification); err != nil {
		s.logger.Error("Failed to send order confirmation", logging.Fields{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}
}

func deliveryFee(view CartView) float64 {
	if view.Cart == nil || view.Cart.Restaurant == nil {
		return 0
	}
	return view.Cart.Restaurant.DeliveryFee
}

// generateOrderNumber builds ORD<unix millis><9 uppercase alphanumerics>.
func generateOrderNumber(now time.Time) string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = orderNumberAlphabet[rand.Intn(len(orderNumberAlphabet))]
	}
	return "ORD" + strconv.FormatInt(now.UnixMilli(), 10) + string(suffix)
}
