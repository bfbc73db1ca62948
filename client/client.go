// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/cache"
	"github.com/BaSui01/imageflow/config"
	"github.com/BaSui01/imageflow/gateway"
	"github.com/BaSui01/imageflow/history"
	"github.com/BaSui01/imageflow/internal/metrics"
	"github.com/BaSui01/imageflow/internal/tlsutil"
	"github.com/BaSui01/imageflow/job"
	"github.com/BaSui01/imageflow/sign"
	"github.com/BaSui01/imageflow/types"
	"github.com/BaSui01/imageflow/upload"
)

// defaultBatchConcurrency 批量生成的默认并发上限
const defaultBatchConcurrency = 5

// Recorder 生成历史的窄接口。*history.Store 满足该接口；
// 注入自定义实现可以把记录写到任何地方。
type Recorder interface {
	Save(ctx context.Context, run *history.Run) error
}

// Client 图像生成平台的顶层客户端。
type Client struct {
	signer    *sign.Signer
	gateway   *gateway.Client
	uploader  *upload.Uploader
	submitter *job.Submitter
	poller    *job.Poller
	logger    *zap.Logger

	storageBase string

	// 可选能力，nil 表示关闭
	cache     cache.ResultCache
	cacheType string
	recorder  Recorder
	metrics   *metrics.Collector

	// New 自行构建的资源由 Close 负责释放；注入的依赖归调用方管
	ownedCache   cache.ResultCache
	ownedHistory *history.Store

	batchConcurrency int
}

// options 收集构建期的覆盖项
type options struct {
	logger           *zap.Logger
	httpClient       *http.Client
	cache            cache.ResultCache
	recorder         Recorder
	metrics          *metrics.Collector
	poll             *job.Config
	batchConcurrency int
}

// Option 配置 Client 的可选项。
type Option func(*options)

// WithLogger 注入 zap 日志器，默认 zap.NewNop()。
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithHTTPClient 为网关与上传共用自定义 HTTP 客户端。
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithCache 注入结果缓存，覆盖配置文件中的缓存设置。
// 注入的缓存不会被 Client.Close 关闭。
func WithCache(rc cache.ResultCache) Option {
	return func(o *options) { o.cache = rc }
}

// WithHistory 注入历史记录器，覆盖配置文件中的历史设置。
func WithHistory(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithMetrics 注入指标采集器。
func WithMetrics(col *metrics.Collector) Option {
	return func(o *options) { o.metrics = col }
}

// WithPollConfig 覆盖轮询预算。
func WithPollConfig(cfg job.Config) Option {
	return func(o *options) { o.poll = &cfg }
}

// WithBatchConcurrency 设置 GenerateBatch 的并发上限。
func WithBatchConcurrency(n int) Option {
	return func(o *options) { o.batchConcurrency = n }
}

// New 按配置装配客户端。
//
// 配置里启用的可选能力（缓存、历史、指标）由 New 构建并由 Close
// 释放；通过 Option 注入的实例优先于配置，且生命周期归调用方。
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, types.NewValidationError("client: config is required")
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	signer, err := sign.New(cfg.Credentials)
	if err != nil {
		return nil, err
	}

	c := &Client{
		signer:           signer,
		logger:           logger,
		storageBase:      cfg.Storage.BaseURL,
		batchConcurrency: o.batchConcurrency,
	}
	if c.batchConcurrency <= 0 {
		c.batchConcurrency = defaultBatchConcurrency
	}

	// 指标：注入优先，其次按配置构建
	c.metrics = o.metrics
	if c.metrics == nil && cfg.Metrics.Enabled {
		c.metrics = metrics.NewCollector(cfg.Metrics.Namespace, logger)
	}

	// 网关
	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = tlsutil.SecureHTTPClient(cfg.Gateway.Timeout)
	}
	gwOpts := []gateway.Option{
		gateway.WithLogger(logger),
		gateway.WithHTTPClient(httpClient),
	}
	if cfg.Gateway.QPS > 0 {
		gwOpts = append(gwOpts, gateway.WithQPS(cfg.Gateway.QPS, cfg.Gateway.Burst))
	}
	if c.metrics != nil {
		gwOpts = append(gwOpts, gateway.WithMetrics(c.metrics))
	}
	gw, err := gateway.New(cfg.Gateway.BaseURL, signer, gwOpts...)
	if err != nil {
		return nil, err
	}
	c.gateway = gw

	// 上传器：直连对象存储，不复用网关的短超时
	upOpts := []upload.Option{upload.WithLogger(logger)}
	if o.httpClient != nil {
		upOpts = append(upOpts, upload.WithHTTPClient(o.httpClient))
	}
	if c.metrics != nil {
		upOpts = append(upOpts, upload.WithMetrics(c.metrics))
	}
	up, err := upload.New(gw, upOpts...)
	if err != nil {
		return nil, err
	}
	c.uploader = up

	// 提交器与轮询器
	sub, err := job.NewSubmitter(gw, cfg.Storage.BaseURL, job.WithSubmitterLogger(logger))
	if err != nil {
		return nil, err
	}
	c.submitter = sub

	pollCfg := cfg.Poll
	if o.poll != nil {
		pollCfg = *o.poll
	}
	pollerOpts := []job.PollerOption{job.WithPollerLogger(logger)}
	if c.metrics != nil {
		pollerOpts = append(pollerOpts, job.WithPollerMetrics(c.metrics))
	}
	poller, err := job.NewPoller(gw, pollCfg, pollerOpts...)
	if err != nil {
		return nil, err
	}
	c.poller = poller

	// 结果缓存：注入优先，其次按配置构建
	if o.cache != nil {
		c.cache = o.cache
		c.cacheType = "custom"
	} else if cfg.Cache.Enabled {
		rc, cacheType, err := buildCache(cfg.Cache, logger)
		if err != nil {
			return nil, err
		}
		c.cache = rc
		c.cacheType = cacheType
		c.ownedCache = rc
	}

	// 生成历史：注入优先，其次按配置构建
	if o.recorder != nil {
		c.recorder = o.recorder
	} else if cfg.History.Enabled {
		store, err := history.Open(cfg.History, logger)
		if err != nil {
			return nil, err
		}
		c.recorder = store
		c.ownedHistory = store
	}

	logger.Info("imageflow client ready",
		zap.String("gateway", cfg.Gateway.BaseURL),
		zap.Bool("cache", c.cache != nil),
		zap.Bool("history", c.recorder != nil),
	)
	return c, nil
}

// buildCache 按配置构建缓存后端
func buildCache(cfg config.CacheConfig, logger *zap.Logger) (cache.ResultCache, string, error) {
	switch cfg.Backend {
	case "", "memory":
		return cache.NewMemory(cfg.Capacity, cfg.TTL), "memory", nil
	case "redis":
		r, err := cache.NewRedis(cfg.Redis, logger)
		if err != nil {
			return nil, "", err
		}
		return r, "redis", nil
	default:
		return nil, "", types.NewValidationError(fmt.Sprintf("client: unknown cache backend %q", cfg.Backend))
	}
}

// Upload 上传一张参考图，返回可在后续请求中复用的素材引用。
func (c *Client) Upload(ctx context.Context, data []byte, filename string) (types.AssetRef, error) {
	key, err := c.uploader.Upload(ctx, data, filename)
	if err != nil {
		return types.AssetRef{}, err
	}
	return types.AssetFromKey(key), nil
}

// Status 单次查询任务状态，不等待终态。
func (c *Client) Status(ctx context.Context, generateID string) (*job.Result, error) {
	return c.poller.Poll(ctx, generateID)
}

// Close 释放 New 构建的资源。注入的缓存与历史记录器不受影响。
func (c *Client) Close() error {
	var errs []error
	if c.ownedCache != nil {
		if err := c.ownedCache.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.ownedHistory != nil {
		if err := c.ownedHistory.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
