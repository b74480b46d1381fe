package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/retreivo/retreivo/internal/reward/domain"
)

// ProductRedisCache 合作商品列表的读穿缓存
type ProductRedisCache struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

func NewProductRedisCache(client redis.UniversalClient) *ProductRedisCache {
	return &ProductRedisCache{
		client: client,
		key:    "reward:products:active",
		ttl:    5 * time.Minute,
	}
}

func (r *ProductRedisCache) GetProducts(ctx context.Context) ([]*domain.Product, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get products from redis: %w", err)
	}
	var products []*domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to unmarshal products: %w", err)
	}
	return products, nil
}

func (r *ProductRedisCache) SetProducts(ctx context.Context, products []*domain.Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("failed to marshal products: %w", err)
	}
	return r.client.Set(ctx, r.key, data, r.ttl).Err()
}
