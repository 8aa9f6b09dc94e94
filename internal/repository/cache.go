package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

const (
	restaurantsKeyPrefix = "catalog:restaurants:"
	restaurantKeyPrefix  = "catalog:restaurant:"
	menuKeyPrefix        = "catalog:menu:"
	categoriesKey        = "catalog:categories"
	defaultCacheTTL      = 5 * time.Minute
)

// CatalogCache caches read-mostly catalog rows. A miss is (nil, nil).
type CatalogCache interface {
	GetRestaurants(ctx context.Context, search, categoryID string) ([]models.Restaurant, error)
	SetRestaurants(ctx context.Context, search, categoryID string, restaurants []models.Restaurant) error
	GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error)
	SetRestaurant(ctx context.Context, restaurant *models.Restaurant) error
	GetMenu(ctx context.Context, restaurantID string) ([]models.MenuItem, error)
	SetMenu(ctx context.Context, restaurantID string, items []models.MenuItem) error
	GetCategories(ctx context.Context) ([]models.Category, error)
	SetCategories(ctx context.Context, categories []models.Category) error
}

// RedisCatalogCache implements CatalogCache using Redis.
type RedisCatalogCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewRedisCatalogCache creates a new Redis-based catalog cache.
func NewRedisCatalogCache(cfg config.RedisConfig) *RedisCatalogCache {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultCacheTTL
	}

	return &RedisCatalogCache{
		client: client,
		ttl:    ttl,
		logger: logging.NewLogger("catalog-cache"),
	}
}

func (c *RedisCatalogCache) GetRestaurants(ctx context.Context, search, categoryID string) ([]models.Restaurant, error) {
	var restaurants []models.Restaurant
	hit, err := c.get(ctx, restaurantsKey(search, categoryID), &restaurants)
	if err != nil || !hit {
		return nil, err
	}
	return restaurants, nil
}

func (c *RedisCatalogCache) SetRestaurants(ctx context.Context, search, categoryID string, restaurants []models.Restaurant) error {
	return c.set(ctx, restaurantsKey(search, categoryID), restaurants)
}

func (c *RedisCatalogCache) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	hit, err := c.get(ctx, restaurantKeyPrefix+id, &restaurant)
	if err != nil || !hit {
		return nil, err
	}
	return &restaurant, nil
}

func (c *RedisCatalogCache) SetRestaurant(ctx context.Context, restaurant *models.Restaurant) error {
	return c.set(ctx, restaurantKeyPrefix+restaurant.ID, restaurant)
}

func (c *RedisCatalogCache) GetMenu(ctx context.Context, restaurantID string) ([]models.MenuItem, error) {
	var items []models.MenuItem
	hit, err := c.get(ctx, menuKeyPrefix+restaurantID, &items)
	if err != nil || !hit {
		return nil, err
	}
	return items, nil
}

func (c *RedisCatalogCache) SetMenu(ctx context.Context, restaurantID string, items []models.MenuItem) error {
	return c.set(ctx, menuKeyPrefix+restaurantID, items)
}

func (c *RedisCatalogCache) GetCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	hit, err := c.get(ctx, categoriesKey, &categories)
	if err != nil || !hit {
		return nil, err
	}
	return categories, nil
}

func (c *RedisCatalogCache) SetCategories(ctx context.Context, categories []models.Category) error {
	return c.set(ctx, categoriesKey, categories)
}

// Ping checks the Redis connection.
func (c *RedisCatalogCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCatalogCache) Close() error {
	return c.client.Close()
}

func (c *RedisCatalogCache) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		c.logger.Debug("Cache miss", logging.Fields{"key": key})
		return false, nil
	}
	if err != nil {
		c.logger.Error("Cache get error", logging.Fields{
			"key":   key,
			"error": err.Error(),
		})
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}

	c.logger.Debug("Cache hit", logging.Fields{"key": key})
	return true, nil
}

func (c *RedisCatalogCache) set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Error("Cache set error", logging.Fields{
			"key":   key,
			"error": err.Error(),
		})
		return err
	}
	return nil
}

// restaurantsKey normalizes the listing filter so equivalent searches share an entry.
func restaurantsKey(search, categoryID string) string {
	return restaurantsKeyPrefix + strings.ToLower(strings.TrimSpace(search)) + ":" + categoryID
}
