package service

import (
	"context"
	"sort"
	"strings"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
)

type RestaurantFilter struct {
	Search     string
	CategoryID string
}

// Menu is a restaurant's orderable items with the categories they fall into.
type Menu struct {
	Restaurant *models.Restaurant `json:"restaurant"`
	Categories []models.Category  `json:"categories"`
	Items      []models.MenuItem  `json:"items"`
}

// CatalogService serves restaurants, categories and menus.
type CatalogService struct {
	store  repository.Store
	cache  repository.CatalogCache
	config *config.Config
	logger *logging.Logger
}

// NewCatalogService creates a catalog service. cache may be nil.
func NewCatalogService(store repository.Store, cache repository.CatalogCache, cfg *config.Config) *CatalogService {
	return &CatalogService{
		store:  store,
		cache:  cache,
		config: cfg,
		logger: logging.NewLogger("catalog-service"),
	}
}

// ListRestaurants returns active restaurants, best rated first.
func (s *CatalogService) ListRestaurants(ctx context.Context, filter RestaurantFilter) ([]models.Restaurant, error) {
	if s.cachingEnabled() {
		cached, err := s.cache.GetRestaurants(ctx, filter.Search, filter.CategoryID)
		if err == nil && cached != nil {
			s.recordLookup("restaurants", true)
			return cached, nil
		}
		s.recordLookup("restaurants", false)
	}

	var restaurants []models.Restaurant
	query := repository.Where(repository.Eq("is_active", true)).Order("rating", true)
	if err := s.store.Select(ctx, repository.TableRestaurants, query, &restaurants); err != nil {
		s.logger.Error("Failed to list restaurants", logging.Fields{"error": err.Error()})
		return nil, err
	}

	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		restaurants = filterRestaurants(restaurants, func(r models.Restaurant) bool {
			return matchesSearch(r, search)
		})
	}

	if filter.CategoryID != "" {
		var items []models.MenuItem
		if err := s.store.Select(ctx, repository.TableMenuItems, repository.Where(repository.Eq("category_id", filter.CategoryID)), &items); err != nil {
			s.logger.Error("Failed to load category items", logging.Fields{
				"category_id": filter.CategoryID,
				"error":       err.Error(),
			})
			return nil, err
		}
		serving := make(map[string]bool, len(items))
		for _, item := range items {
			serving[item.RestaurantID] = true
		}
		restaurants = filterRestaurants(restaurants, func(r models.Restaurant) bool {
			return serving[r.ID]
		})
	}

	if restaurants == nil {
		restaurants = []models.Restaurant{}
	}

	if s.cachingEnabled() {
		if err := s.cache.SetRestaurants(ctx, filter.Search, filter.CategoryID, restaurants); err != nil {
			s.logger.Warn("Failed to cache restaurants", logging.Fields{"error": err.Error()})
		}
	}

	return restaurants, nil
}

// GetRestaurant returns an active restaurant.
func (s *CatalogService) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	if s.cachingEnabled() {
		if cached, err := s.cache.GetRestaurant(ctx, id); err == nil && cached != nil {
			s.recordLookup("restaurant", true)
			return cached, nil
		}
		s.recordLookup("restaurant", false)
	}

	var restaurant models.Restaurant
	if err := s.store.Get(ctx, repository.TableRestaurants, id, &restaurant); err != nil {
		return nil, err
	}
	if !restaurant.IsActive {
		return nil, errors.ErrNotFound
	}

	if s.cachingEnabled() {
		if err := s.cache.SetRestaurant(ctx, &restaurant); err != nil {
			s.logger.Warn("Failed to cache restaurant", logging.Fields{
				"restaurant_id": id,
				"error":         err.Error(),
			})
		}
	}

	return &restaurant, nil
}

// GetMenu returns the available items of a restaurant ordered by name,
// optionally narrowed to one category. Categories always cover the whole menu.
func (s *CatalogService) GetMenu(ctx context.Context, restaurantID, categoryID string) (*Menu, error) {
	restaurant, err := s.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	items, err := s.menuItems(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	categories, err := s.categoriesFor(ctx, items)
	if err != nil {
		return nil, err
	}

	if categoryID != "" {
		filtered := make([]models.MenuItem, 0, len(items))
		for _, item := range items {
			if item.CategoryID == categoryID {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	return &Menu{Restaurant: restaurant, Categories: categories, Items: items}, nil
}

// GetMenuItem returns a single menu item, available or not.
func (s *CatalogService) GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := s.store.Get(ctx, repository.TableMenuItems, id, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListCategories returns active categories in display order.
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	if s.cachingEnabled() {
		if cached, err := s.cache.GetCategories(ctx); err == nil && cached != nil {
			s.recordLookup("categories", true)
			return cached, nil
		}
		s.recordLookup("categories", false)
	}

	categories := []models.Category{}
	query := repository.Where(repository.Eq("is_active", true)).Order("display_order", false)
	if err := s.store.Select(ctx, repository.TableCategories, query, &categories); err != nil {
		s.logger.Error("Failed to list categories", logging.Fields{"error": err.Error()})
		return nil, err
	}

	if s.cachingEnabled() {
		if err := s.cache.SetCategories(ctx, categories); err != nil {
			s.logger.Warn("Failed to cache categories", logging.Fields{"error": err.Error()})
		}
	}

	return categories, nil
}

func (s *CatalogService) menuItems(ctx context.Context, restaurantID string) ([]models.MenuItem, error) {
	if s.cachingEnabled() {
		if cached, err := s.cache.GetMenu(ctx, restaurantID); err == nil && cached != nil {
			s.recordLookup("menu", true)
			return cached, nil
		}
		s.recordLookup("menu", false)
	}

	items := []models.MenuItem{}
	query := repository.Where(
		repository.Eq("restaurant_id", restaurantID),
		repository.Eq("is_available", true),
	).Order("name", false)
	if err := s.store.Select(ctx, repository.TableMenuItems, query, &items); err != nil {
		s.logger.Error("Failed to load menu", logging.Fields{
			"restaurant_id": restaurantID,
			"error":         err.Error(),
		})
		return nil, err
	}

	if s.cachingEnabled() {
		if err := s.cache.SetMenu(ctx, restaurantID, items); err != nil {
			s.logger.Warn("Failed to cache menu", logging.Fields{
				"restaurant_id": restaurantID,
				"error":         err.Error(),
			})
		}
	}

	return items, nil
}

func (s *CatalogService) categoriesFor(ctx context.Context, items []models.MenuItem) ([]models.Category, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, item := range items {
		if item.CategoryID != "" && !seen[item.CategoryID] {
			seen[item.CategoryID] = true
			ids = append(ids, item.CategoryID)
		}
	}

	categories := []models.Category{}
	if len(ids) == 0 {
		return categories, nil
	}

	if err := s.store.Select(ctx, repository.TableCategories, repository.Where(repository.In("id", ids)), &categories); err != nil {
		return nil, err
	}
	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].DisplayOrder < categories[j].DisplayOrder
	})
	return categories, nil
}

func (s *CatalogService) cachingEnabled() bool {
	return s.cache != nil && s.config.Features.EnableCatalogCaching
}

func (s *CatalogService) recordLookup(resource string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	metrics.CatalogCacheLookups.WithLabelValues(resource, result).Inc()
}

func matchesSearch(r models.Restaurant, search string) bool {
	if strings.Contains(strings.ToLower(r.Name), search) ||
		strings.Contains(strings.ToLower(r.Description), search) {
		return true
	}
	for _, cuisine := range r.CuisineTypes {
		if strings.Contains(strings.ToLower(cuisine), search) {
			return true
		}
	}
	return false
}

func filterRestaurants(restaurants []models.Restaurant, keep func(models.Restaurant) bool) []models.Restaurant {
	out := make([]models.Restaurant, 0, len(restaurants))
	for _, r := range restaurants {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
