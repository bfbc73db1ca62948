package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/imageflow/internal/bufpool"
	"github.com/BaSui01/imageflow/internal/metrics"
	"github.com/BaSui01/imageflow/internal/tlsutil"
	"github.com/BaSui01/imageflow/sign"
	"github.com/BaSui01/imageflow/types"
)

const instrumentationName = "imageflow/gateway"

// defaultTimeout 单次代理调用的默认超时
const defaultTimeout = 30 * time.Second

// maxErrorBodyBytes 错误响应体在错误消息中保留的最大长度
const maxErrorBodyBytes = 512

// envelopeBufs 信封编码缓冲池，轮询高频调用下复用
var envelopeBufs = bufpool.New(0)

// envelope 请求信封：逻辑路径 + 签名参数 + 业务负载
type envelope struct {
	Path            string          `json:"path"`
	SignatureParams string          `json:"signatureParams"`
	Data            json.RawMessage `json:"data,omitempty"`
}

// reply 响应信封：code 为 0 表示成功，非 0 为平台权威拒绝
type reply struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Client 签名传输客户端
// 并发安全：可被多个 goroutine 同时使用
type Client struct {
	baseURL string
	signer  *sign.Signer
	http    *http.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// Option 配置 Client 的可选项。
type Option func(*Client)

// WithHTTPClient 注入自定义 HTTP 客户端（代理、超时、传输层定制）。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger 注入 zap 日志器。
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithQPS 启用客户端侧限流。qps <= 0 表示不限流。
func WithQPS(qps float64, burst int) Option {
	return func(c *Client) {
		if qps > 0 {
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(qps), burst)
		}
	}
}

// WithMetrics 挂载 Prometheus 指标收集器。
func WithMetrics(col *metrics.Collector) Option {
	return func(c *Client) { c.metrics = col }
}

// New 创建网关客户端。baseURL 为反向代理入口的完整 URL。
func New(baseURL string, signer *sign.Signer, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, types.NewValidationError("gateway: base URL is required")
	}
	if signer == nil {
		return nil, types.NewValidationError("gateway: signer is required")
	}
	c := &Client{
		baseURL: baseURL,
		signer:  signer,
		http:    tlsutil.SecureHTTPClient(defaultTimeout),
		logger:  zap.NewNop(),
		tracer:  otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "gateway"))
	return c, nil
}

// Call 对 path 签名后经代理调用平台 API，返回响应信封的 data 字段。
// data 为业务负载，nil 表示无负载。响应 code 非 0 时返回 REMOTE_REJECTION。
func (c *Client) Call(ctx context.Context, path string, data any) (json.RawMessage, error) {
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "gateway.Call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("gateway.path", path)),
	)
	defer span.End()

	raw, err := c.call(ctx, path, data)
	status := "ok"
	if err != nil {
		status = string(types.GetErrorCode(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	}
	if c.metrics != nil {
		c.metrics.RecordGatewayRequest(path, status, time.Since(start))
	}
	return raw, err
}

func (c *Client) call(ctx context.Context, path string, data any) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, types.NewTransportError("gateway: rate limit wait interrupted", err)
		}
	}

	var payload json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, types.NewValidationError("gateway: encode request payload").WithCause(err)
		}
		payload = b
	}

	// 签名每次调用现场生成，nonce 一次性使用
	q := c.signer.Sign(path)
	buf := envelopeBufs.Get()
	defer envelopeBufs.Put(buf)
	if err := json.NewEncoder(buf).Encode(envelope{
		Path:            path,
		SignatureParams: q.Encode(),
		Data:            payload,
	}); err != nil {
		return nil, types.NewValidationError("gateway: encode envelope").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, types.NewValidationError("gateway: build request").WithCause(err)
	}
	requestID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	c.logger.Debug("gateway call",
		zap.String("path", path),
		zap.String("request_id", requestID),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("gateway request failed",
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return nil, types.NewTransportError("gateway: request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewTransportError("gateway: read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("gateway rejected request",
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Int("http_status", resp.StatusCode),
		)
		return nil, mapHTTPStatus(resp.StatusCode, snippet(respBody))
	}

	var r reply
	if err := json.Unmarshal(respBody, &r); err != nil {
		return nil, types.NewTransportError("gateway: malformed response envelope", err)
	}
	if r.Code != 0 {
		c.logger.Warn("platform rejected request",
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Int("api_code", r.Code),
			zap.String("api_msg", r.Msg),
		)
		return nil, types.NewRemoteRejection(r.Code, r.Msg).WithHTTPStatus(resp.StatusCode)
	}

	c.logger.Debug("gateway call succeeded",
		zap.String("path", path),
		zap.String("request_id", requestID),
	)

	return r.Data, nil
}

// mapHTTPStatus 将非 2xx HTTP 状态映射为带有合适重试标记的错误
func mapHTTPStatus(status int, body string) *types.Error {
	msg := fmt.Sprintf("gateway returned HTTP %d: %s", status, body)
	retryable := status == http.StatusTooManyRequests || status >= 500
	return types.NewError(types.ErrRemoteRejection, msg).
		WithHTTPStatus(status).
		WithRetryable(retryable)
}

// snippet 截断响应体，避免超长 HTML 错误页进入错误消息
func snippet(b []byte) string {
	if len(b) > maxErrorBodyBytes {
		return string(b[:maxErrorBodyBytes]) + "..."
	}
	return string(b)
}
