// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// 验证网关默认值
	assert.Empty(t, cfg.Gateway.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 0.0, cfg.Gateway.QPS)

	// 验证轮询默认值
	assert.Equal(t, 60, cfg.Poll.MaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.Poll.Interval)

	// 验证日志默认值
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"stdout"}, cfg.Log.OutputPaths)
	assert.True(t, cfg.Log.EnableCaller)

	// 验证缓存默认值
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 1000, cfg.Cache.Capacity)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "localhost:6379", cfg.Cache.Redis.Addr)

	// 验证历史存储默认值
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "imageflow.db", cfg.History.Path)

	// 验证遥测默认值
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, "imageflow", cfg.Telemetry.ServiceName)

	// 验证指标默认值
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "imageflow", cfg.Metrics.Namespace)
}

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	// 不指定配置文件，应该返回默认值
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 60, cfg.Poll.MaxAttempts)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	// 创建临时配置文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
gateway:
  base_url: "https://proxy.example.com"
  timeout: 60s
  qps: 5
  burst: 10

credentials:
  access_key: "ak-test"
  secret_key: "sk-test"

storage:
  base_url: "https://img.example.com"

poll:
  max_attempts: 10
  interval: 1s

cache:
  enabled: true
  backend: "redis"
  redis:
    addr: "redis.example.com:6379"
    db: 1

history:
  enabled: true
  path: "/tmp/runs.db"

log:
  level: "debug"
  format: "console"
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	// 加载配置
	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	// 验证 YAML 值覆盖了默认值
	assert.Equal(t, "https://proxy.example.com", cfg.Gateway.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 5.0, cfg.Gateway.QPS)
	assert.Equal(t, 10, cfg.Gateway.Burst)

	assert.Equal(t, "ak-test", cfg.Credentials.AccessKey)
	assert.Equal(t, "sk-test", cfg.Credentials.SecretKey)
	assert.Equal(t, "https://img.example.com", cfg.Storage.BaseURL)

	assert.Equal(t, 10, cfg.Poll.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Poll.Interval)

	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "redis.example.com:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 1, cfg.Cache.Redis.DB)

	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "/tmp/runs.db", cfg.History.Path)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	// 设置环境变量
	envVars := map[string]string{
		"IMAGEFLOW_GATEWAY_BASE_URL":       "https://env-proxy.example.com",
		"IMAGEFLOW_GATEWAY_QPS":            "2.5",
		"IMAGEFLOW_CREDENTIALS_ACCESS_KEY": "ak-env",
		"IMAGEFLOW_CREDENTIALS_SECRET_KEY": "sk-env",
		"IMAGEFLOW_POLL_MAX_ATTEMPTS":      "15",
		"IMAGEFLOW_POLL_INTERVAL":          "5s",
		"IMAGEFLOW_CACHE_REDIS_ADDR":       "env-redis:6379",
		"IMAGEFLOW_LOG_LEVEL":              "warn",
		"IMAGEFLOW_HISTORY_ENABLED":        "true",
	}

	// 设置环境变量
	for k, v := range envVars {
		os.Setenv(k, v)
	}
	// 清理环境变量
	defer func() {
		for k := range envVars {
			os.Unsetenv(k)
		}
	}()

	// 加载配置
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	// 验证环境变量覆盖了默认值
	assert.Equal(t, "https://env-proxy.example.com", cfg.Gateway.BaseURL)
	assert.Equal(t, 2.5, cfg.Gateway.QPS)
	assert.Equal(t, "ak-env", cfg.Credentials.AccessKey)
	assert.Equal(t, "sk-env", cfg.Credentials.SecretKey)
	assert.Equal(t, 15, cfg.Poll.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Poll.Interval)
	assert.Equal(t, "env-redis:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.History.Enabled)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	// 创建临时配置文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
gateway:
  base_url: "https://yaml-proxy.example.com"
poll:
  max_attempts: 10
log:
  level: "debug"
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	// 设置环境变量（应该覆盖 YAML）
	os.Setenv("IMAGEFLOW_POLL_MAX_ATTEMPTS", "99")
	defer os.Unsetenv("IMAGEFLOW_POLL_MAX_ATTEMPTS")

	// 加载配置
	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	// 环境变量应该覆盖 YAML
	assert.Equal(t, 99, cfg.Poll.MaxAttempts)
	// YAML 值应该保留（没有被环境变量覆盖）
	assert.Equal(t, "https://yaml-proxy.example.com", cfg.Gateway.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	// 设置自定义前缀的环境变量
	os.Setenv("MYAPP_GATEWAY_BASE_URL", "https://custom.example.com")
	os.Setenv("MYAPP_LOG_LEVEL", "error")
	defer func() {
		os.Unsetenv("MYAPP_GATEWAY_BASE_URL")
		os.Unsetenv("MYAPP_LOG_LEVEL")
	}()

	// 使用自定义前缀加载
	cfg, err := NewLoader().
		WithEnvPrefix("MYAPP").
		Load()
	require.NoError(t, err)

	assert.Equal(t, "https://custom.example.com", cfg.Gateway.BaseURL)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoader_WithValidator(t *testing.T) {
	// 添加验证器
	validator := func(cfg *Config) error {
		if cfg.Poll.MaxAttempts < 5 {
			return assert.AnError
		}
		return nil
	}

	// 设置无效轮询次数
	os.Setenv("IMAGEFLOW_POLL_MAX_ATTEMPTS", "1")
	defer os.Unsetenv("IMAGEFLOW_POLL_MAX_ATTEMPTS")

	// 加载应该失败
	_, err := NewLoader().
		WithValidator(validator).
		Load()
	assert.Error(t, err)
}

func TestLoader_ValidateAsValidator(t *testing.T) {
	// Config.Validate 本身可以直接作为验证器；默认配置缺少
	// 网关地址与凭证，应加载失败
	_, err := NewLoader().
		WithValidator((*Config).Validate).
		Load()
	assert.Error(t, err)
}

func TestLoader_NonExistentFile(t *testing.T) {
	// 指定不存在的文件，应该使用默认值（不报错）
	cfg, err := NewLoader().
		WithConfigPath("/non/existent/path/config.yaml").
		Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// 应该返回默认值
	assert.Equal(t, 60, cfg.Poll.MaxAttempts)
}

func TestLoader_InvalidYAML(t *testing.T) {
	// 创建无效的 YAML 文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
gateway:
  base_url: [invalid
  this is not valid yaml
`
	err := os.WriteFile(configPath, []byte(invalidYAML), 0644)
	require.NoError(t, err)

	// 加载应该失败
	_, err = NewLoader().
		WithConfigPath(configPath).
		Load()
	assert.Error(t, err)
}

// --- Config 方法测试 ---

// validTestConfig 返回一个通过 Validate 的最小配置
func validTestConfig() *Config {
	cfg := DefaultConfig()
	cfg.Gateway.BaseURL = "https://proxy.example.com"
	cfg.Credentials.AccessKey = "ak"
	cfg.Credentials.SecretKey = "sk"
	cfg.Storage.BaseURL = "https://img.example.com"
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "missing gateway base url",
			modify: func(c *Config) {
				c.Gateway.BaseURL = ""
			},
			wantErr: true,
		},
		{
			name: "relative gateway base url",
			modify: func(c *Config) {
				c.Gateway.BaseURL = "/proxy"
			},
			wantErr: true,
		},
		{
			name: "missing credentials",
			modify: func(c *Config) {
				c.Credentials.SecretKey = ""
			},
			wantErr: true,
		},
		{
			name: "missing storage base url",
			modify: func(c *Config) {
				c.Storage.BaseURL = ""
			},
			wantErr: true,
		},
		{
			name: "relative storage base url",
			modify: func(c *Config) {
				c.Storage.BaseURL = "img.example.com/assets"
			},
			wantErr: true,
		},
		{
			name: "zero max attempts",
			modify: func(c *Config) {
				c.Poll.MaxAttempts = 0
			},
			wantErr: true,
		},
		{
			name: "negative interval",
			modify: func(c *Config) {
				c.Poll.Interval = -time.Second
			},
			wantErr: true,
		},
		{
			name: "unknown cache backend when enabled",
			modify: func(c *Config) {
				c.Cache.Enabled = true
				c.Cache.Backend = "memcached"
			},
			wantErr: true,
		},
		{
			name: "unknown cache backend tolerated when disabled",
			modify: func(c *Config) {
				c.Cache.Enabled = false
				c.Cache.Backend = "memcached"
			},
			wantErr: false,
		},
		{
			name: "sample rate out of range",
			modify: func(c *Config) {
				c.Telemetry.SampleRate = 1.5
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// --- MustLoad 测试 ---

func TestMustLoad_Success(t *testing.T) {
	// 创建有效配置文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
gateway:
  base_url: "https://proxy.example.com"
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	// 不应该 panic
	assert.NotPanics(t, func() {
		cfg := MustLoad(configPath)
		assert.Equal(t, "https://proxy.example.com", cfg.Gateway.BaseURL)
	})
}

func TestMustLoad_InvalidFile(t *testing.T) {
	// 创建无效配置文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	err := os.WriteFile(configPath, []byte("invalid: [yaml"), 0644)
	require.NoError(t, err)

	// 应该 panic
	assert.Panics(t, func() {
		MustLoad(configPath)
	})
}

func TestLoadFromEnv_Function(t *testing.T) {
	os.Setenv("IMAGEFLOW_LOG_FORMAT", "console")
	defer os.Unsetenv("IMAGEFLOW_LOG_FORMAT")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "console", cfg.Log.Format)
}
