package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"angeleyes-http-service/config"
)

// RedisService handles Redis operations
type RedisService struct {
	Client *redis.Client
	Ctx    context.Context
}

// NewRedisService creates a new Redis service
func NewRedisService(cfg *config.Config) *RedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: "", // No password set
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()

	return &RedisService{
		Client: client,
		Ctx:    ctx,
	}
}

// Set sets a key-value pair in Redis with expiration
func (s *RedisService) Set(key string, value interface{}, expiration time.Duration) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return s.Client.Set(s.Ctx, key, jsonValue, expiration).Err()
}

// Get gets a value from Redis by key
func (s *RedisService) Get(key string, dest interface{}) error {
	val, err := s.Client.Get(s.Ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(val), dest)
}

// Delete deletes a key from Redis
func (s *RedisService) Delete(key string) error {
	return s.Client.Del(s.Ctx, key).Err()
}

// CacheBabyStatistics caches aggregated statistics for a baby
func (s *RedisService) CacheBabyStatistics(babyID uint, stats interface{}, expiration time.Duration) error {
	key := fmt.Sprintf("baby_stats:%d", babyID)
	return s.Set(key, stats, expiration)
}

// GetBabyStatistics reads cached statistics for a baby
func (s *RedisService) GetBabyStatistics(babyID uint, dest interface{}) error {
	key := fmt.Sprintf("baby_stats:%d", babyID)
	return s.Get(key, dest)
}

// InvalidateBabyStatistics drops the cached statistics after new activity
func (s *RedisService) InvalidateBabyStatistics(babyID uint) error {
	key := fmt.Sprintf("baby_stats:%d", babyID)
	return s.Delete(key)
}

// CacheDetectionReport caches a detection statistics report
func (s *RedisService) CacheDetectionReport(babyID uint, days int, report interface{}, expiration time.Duration) error {
	key := fmt.Sprintf("detection_report:%d:%d", babyID, days)
	return s.Set(key, report, expiration)
}

// GetDetectionReport reads a cached detection statistics report
func (s *RedisService) GetDetectionReport(babyID uint, days int, dest interface{}) error {
	key := fmt.Sprintf("detection_report:%d:%d", babyID, days)
	return s.Get(key, dest)
}

// CacheStreamToken caches a live stream token with expiration
func (s *RedisService) CacheStreamToken(userID, roomID, token string, expiration time.Duration) error {
	key := "stream_token:" + userID + ":" + roomID
	return s.Client.Set(s.Ctx, key, token, expiration).Err()
}

// GetStreamToken gets a live stream token from cache
func (s *RedisService) GetStreamToken(userID, roomID string) (string, error) {
	key := "stream_token:" + userID + ":" + roomID
	return s.Client.Get(s.Ctx, key).Result()
}
