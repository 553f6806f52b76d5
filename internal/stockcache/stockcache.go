package stockcache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Кэш локальных остатков по товарам витрины. Источник истины — хранилище,
// кэш хранит его последнее известное значение

type Cache interface {
	// Get возвращает остаток и признак наличия значения в кэше
	Get(ctx context.Context, sallaProductID string) (int, bool, error)
	Set(ctx context.Context, sallaProductID string, stock int) error
}

type redisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string) Cache {
	return &redisCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func (r *redisCache) Get(ctx context.Context, sallaProductID string) (int, bool, error) {
	val, err := r.client.Get(ctx, stockKey(sallaProductID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	stock, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, err
	}
	return stock, true, nil
}

func (r *redisCache) Set(ctx context.Context, sallaProductID string, stock int) error {
	return r.client.Set(ctx, stockKey(sallaProductID), stock, 0).Err()
}

func stockKey(sallaProductID string) string {
	return fmt.Sprintf("vouchermart:stock:%s", sallaProductID)
}

// Заглушка, когда redis не настроен

type noop struct{}

func NewNoop() Cache {
	return noop{}
}

func (noop) Get(ctx context.Context, sallaProductID string) (int, bool, error) {
	return 0, false, nil
}

func (noop) Set(ctx context.Context, sallaProductID string, stock int) error {
	return nil
}
