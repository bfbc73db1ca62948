package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// =============================================================================
// 💾 Redis 结果缓存
// =============================================================================

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	// Redis 地址
	Addr string `yaml:"addr" json:"addr" env:"ADDR"`

	// 密码
	Password string `yaml:"password" json:"-" env:"PASSWORD"`

	// 数据库编号
	DB int `yaml:"db" json:"db" env:"DB"`

	// 条目过期时间
	TTL time.Duration `yaml:"ttl" json:"ttl" env:"TTL"`

	// 连接池大小
	PoolSize int `yaml:"pool_size" json:"pool_size" env:"POOL_SIZE"`

	// 最小空闲连接数
	MinIdleConns int `yaml:"min_idle_conns" json:"min_idle_conns" env:"MIN_IDLE_CONNS"`

	// 健康检查间隔（0 关闭）
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval" env:"HEALTH_CHECK_INTERVAL"`
}

// DefaultRedisConfig 返回默认 Redis 缓存配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:                "localhost:6379",
		DB:                  0,
		TTL:                 24 * time.Hour,
		PoolSize:            10,
		MinIdleConns:        2,
		HealthCheckInterval: 30 * time.Second,
	}
}

// Redis 基于 go-redis 的共享结果缓存
type Redis struct {
	redis  *redis.Client
	config RedisConfig
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// NewRedis 创建 Redis 结果缓存并验证连接。
func NewRedis(config RedisConfig, logger *zap.Logger) (*Redis, error) {
	if config.TTL <= 0 {
		config.TTL = 24 * time.Hour
	}
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	c := &Redis{
		redis:  client,
		config: config,
		logger: logger.With(zap.String("component", "cache")),
	}

	// 启动健康检查
	if config.HealthCheckInterval > 0 {
		go c.healthCheckLoop()
	}

	c.logger.Info("redis result cache initialized",
		zap.String("addr", config.Addr),
		zap.Duration("ttl", config.TTL),
	)

	return c, nil
}

// Get 获取缓存条目
func (c *Redis) Get(ctx context.Context, key string) (*Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("cache is closed")
	}

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		c.logger.Error("cache get failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("cache get failed: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return &entry, nil
}

// Set 写入缓存条目
func (c *Redis) Set(ctx context.Context, key string, entry *Entry) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return fmt.Errorf("cache is closed")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	if err := c.redis.Set(ctx, key, string(data), c.config.TTL).Err(); err != nil {
		c.logger.Error("cache set failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// Ping 检查 Redis 连接
func (c *Redis) Ping(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return fmt.Errorf("cache is closed")
	}

	return c.redis.Ping(ctx).Err()
}

// Close 关闭缓存连接
func (c *Redis) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	c.logger.Info("closing redis result cache")

	return c.redis.Close()
}

// =============================================================================
// 🏥 健康检查
// =============================================================================

// healthCheckLoop 健康检查循环
func (c *Redis) healthCheckLoop() {
	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.RLock()
		if c.closed {
			c.mu.RUnlock()
			return
		}
		c.mu.RUnlock()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.Ping(ctx); err != nil {
			c.logger.Error("cache health check failed", zap.Error(err))
		} else {
			c.logger.Debug("cache health check passed")
		}
		cancel()
	}
}
