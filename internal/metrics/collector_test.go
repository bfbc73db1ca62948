package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.gatewayRequestsTotal)
	assert.NotNil(t, collector.gatewayRequestDuration)
	assert.NotNil(t, collector.uploadsTotal)
	assert.NotNil(t, collector.pollsTotal)
	assert.NotNil(t, collector.jobsTotal)
}

func TestCollector_RecordGatewayRequest(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	// 记录请求
	collector.RecordGatewayRequest("/api/workflow/run", "ok", 100*time.Millisecond)

	// 验证指标
	count := testutil.CollectAndCount(collector.gatewayRequestsTotal)
	assert.Greater(t, count, 0)

	// 再记录一次失败请求
	collector.RecordGatewayRequest("/api/workflow/run", "TRANSPORT", 50*time.Millisecond)

	newCount := testutil.CollectAndCount(collector.gatewayRequestsTotal)
	assert.GreaterOrEqual(t, newCount, count)
}

func TestCollector_RecordUpload(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordUpload("ok", 2048)
	collector.RecordUpload("VALIDATION", 0)

	count := testutil.CollectAndCount(collector.uploadsTotal)
	assert.Greater(t, count, 0)

	assert.Equal(t, float64(2048), testutil.ToFloat64(collector.uploadBytes))
}

func TestCollector_RecordPollAndJob(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	// 轮询过程：两次中间态 + 一次终态
	collector.RecordPoll("processing")
	collector.RecordPoll("processing")
	collector.RecordPoll("success")
	collector.RecordJob("success", 9*time.Second)

	pollCount := testutil.CollectAndCount(collector.pollsTotal)
	assert.Greater(t, pollCount, 0)

	jobCount := testutil.CollectAndCount(collector.jobsTotal)
	assert.Greater(t, jobCount, 0)

	assert.Equal(t, float64(2), testutil.ToFloat64(collector.pollsTotal.WithLabelValues("processing")))
}

func TestCollector_RecordCacheOperation(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	// 记录缓存命中
	collector.RecordCacheHit("redis")

	// 记录缓存未命中
	collector.RecordCacheMiss("redis")

	// 验证指标
	hitCount := testutil.CollectAndCount(collector.cacheHits)
	assert.Greater(t, hitCount, 0)

	missCount := testutil.CollectAndCount(collector.cacheMisses)
	assert.Greater(t, missCount, 0)
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	// 并发记录多个指标
	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			collector.RecordGatewayRequest("/api/workflow/status", "ok", 100*time.Millisecond)
			collector.RecordPoll("processing")
			collector.RecordCacheHit("memory")
			done <- true
		}()
	}

	// 等待所有 goroutine 完成
	for i := 0; i < 10; i++ {
		<-done
	}

	// 验证指标被正确记录
	gatewayCount := testutil.CollectAndCount(collector.gatewayRequestsTotal)
	assert.Greater(t, gatewayCount, 0)

	pollCount := testutil.CollectAndCount(collector.pollsTotal)
	assert.Greater(t, pollCount, 0)

	cacheCount := testutil.CollectAndCount(collector.cacheHits)
	assert.Greater(t, cacheCount, 0)
}
