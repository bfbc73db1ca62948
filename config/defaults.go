// =============================================================================
// 📦 ImageFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/imageflow/cache"
	"github.com/BaSui01/imageflow/history"
	"github.com/BaSui01/imageflow/internal/telemetry"
	"github.com/BaSui01/imageflow/job"
)

// DefaultConfig 返回默认配置
//
// 网关地址、对象存储地址与访问凭证没有默认值，必须显式提供。
func DefaultConfig() *Config {
	return &Config{
		Gateway:   DefaultGatewayConfig(),
		Storage:   StorageConfig{},
		Poll:      DefaultPollConfig(),
		Log:       DefaultLogConfig(),
		Cache:     DefaultCacheConfig(),
		History:   history.DefaultConfig(),
		Telemetry: telemetry.DefaultConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// DefaultGatewayConfig 返回默认网关配置
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		BaseURL: "",
		Timeout: 30 * time.Second,
		QPS:     0,
		Burst:   0,
	}
}

// DefaultPollConfig 返回默认轮询预算
func DefaultPollConfig() job.Config {
	return job.Config{
		MaxAttempts: job.DefaultMaxAttempts,
		Interval:    job.DefaultInterval,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultCacheConfig 返回默认缓存配置
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:  false,
		Backend:  "memory",
		Capacity: 1000,
		TTL:      24 * time.Hour,
		Redis:    cache.DefaultRedisConfig(),
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Namespace: "imageflow",
	}
}
