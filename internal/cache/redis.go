package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/avelinag/skyfare/config"
	"github.com/avelinag/skyfare/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client     *redis.Client
	flightsTTL time.Duration
	demandTTL  time.Duration
}

func NewRedisCache(cfg config.RedisConfig, flightsTTL, demandTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		flightsTTL: flightsTTL,
		demandTTL:  demandTTL,
	}
}

func (c *RedisCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	data, err := c.client.Get(ctx, flightsKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var flights []domain.Flight
	if err := json.Unmarshal(data, &flights); err != nil {
		return nil, err
	}
	return flights, nil
}

func (c *RedisCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	payload, err := json.Marshal(flights)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flightsKey(), payload, c.flightsTTL).Err()
}

// SetDemand publishes the market simulator's latest demand signal for a
// flight. Quote paths fold it into pricing while it lives.
func (c *RedisCache) SetDemand(ctx context.Context, flightID int64, demand float64) error {
	return c.client.Set(ctx, demandKey(flightID), strconv.FormatFloat(demand, 'f', -1, 64), c.demandTTL).Err()
}

// GetDemand returns the current demand signal for a flight, or nil when none
// has been published (the calculator then samples its own).
func (c *RedisCache) GetDemand(ctx context.Context, flightID int64) (*float64, error) {
	val, err := c.client.Get(ctx, demandKey(flightID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	demand, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil, err
	}
	return &demand, nil
}

func flightsKey() string {
	return "cache:flights"
}

func demandKey(flightID int64) string {
	return fmt.Sprintf("demand:flight:%d", flightID)
}
