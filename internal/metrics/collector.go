// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// 网关指标
	gatewayRequestsTotal   *prometheus.CounterVec
	gatewayRequestDuration *prometheus.HistogramVec

	// 上传指标
	uploadsTotal *prometheus.CounterVec
	uploadBytes  prometheus.Counter

	// 任务指标
	pollsTotal  *prometheus.CounterVec
	jobsTotal   *prometheus.CounterVec
	jobDuration prometheus.Histogram

	// 缓存指标
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 网关指标
	c.gatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Total number of signed gateway calls",
		},
		[]string{"path", "status"},
	)

	c.gatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Gateway call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	// 上传指标
	c.uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Total number of asset uploads",
		},
		[]string{"status"},
	)

	c.uploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Total bytes uploaded to object storage",
		},
	)

	// 任务指标
	c.pollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Total number of status polls by observed job status",
		},
		[]string{"status"},
	)

	c.jobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Total number of generation jobs by final outcome",
		},
		[]string{"status"},
	)

	c.jobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "End-to-end generation job duration in seconds",
			Buckets:   []float64{1, 3, 5, 10, 30, 60, 120, 180, 300},
		},
	)

	// 缓存指标
	c.cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 网关指标记录
// =============================================================================

// RecordGatewayRequest 记录一次签名网关调用
func (c *Collector) RecordGatewayRequest(path, status string, duration time.Duration) {
	c.gatewayRequestsTotal.WithLabelValues(path, status).Inc()
	c.gatewayRequestDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// =============================================================================
// 📤 上传指标记录
// =============================================================================

// RecordUpload 记录一次素材上传
func (c *Collector) RecordUpload(status string, size int64) {
	c.uploadsTotal.WithLabelValues(status).Inc()
	if size > 0 {
		c.uploadBytes.Add(float64(size))
	}
}

// =============================================================================
// 🔄 任务指标记录
// =============================================================================

// RecordPoll 记录一次状态轮询及其观测到的任务状态
func (c *Collector) RecordPoll(status string) {
	c.pollsTotal.WithLabelValues(status).Inc()
}

// RecordJob 记录任务终态与端到端耗时
func (c *Collector) RecordJob(status string, duration time.Duration) {
	c.jobsTotal.WithLabelValues(status).Inc()
	c.jobDuration.Observe(duration.Seconds())
}

// =============================================================================
// 💾 缓存指标记录
// =============================================================================

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(cacheType string) {
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (c *Collector) RecordCacheMiss(cacheType string) {
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}
